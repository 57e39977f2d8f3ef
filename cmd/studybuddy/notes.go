package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/edgard/studybuddy/internal/database"
	"github.com/edgard/studybuddy/internal/study"
)

func newNotesCommand(cc *commandContext) *cobra.Command {
	var (
		focus string
		list  bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "notes <topic...>",
		Short: "Generate study notes on a topic, or list saved notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !list && len(args) == 0 {
				return errors.New("a topic is required unless --list is given")
			}

			ctx := cmd.Context()
			a, err := cc.openApp(ctx)
			if err != nil {
				return err
			}
			defer cc.closeApp(a)

			out := cmd.OutOrStdout()
			if list {
				notes, err := a.Store.ListNotes(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, notesTable(notes))
				return nil
			}

			svc, err := a.Service(ctx)
			if err != nil {
				return err
			}
			note, err := svc.GenerateNotes(ctx, study.NotesRequest{
				Topic:          strings.Join(args, " "),
				FocusAreas:     focus,
				ConversationID: cliOwner,
			})
			if err != nil {
				return err
			}
			printMarkdown(out, note.Content)
			return nil
		},
	}

	cmd.Flags().StringVar(&focus, "focus", "", "Areas to cover in more depth")
	cmd.Flags().BoolVar(&list, "list", false, "List saved notes instead of generating new ones")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of notes to list")
	return cmd
}

func notesTable(notes []database.Note) string {
	rows := lo.Map(notes, func(n database.Note, _ int) []string {
		return []string{
			strconv.FormatInt(n.ID, 10),
			n.Topic,
			n.FocusAreas,
			humanize.Bytes(uint64(len(n.Content))),
			humanize.Time(n.CreatedAt),
		}
	})
	return renderTable(
		[]string{"ID", "Topic", "Focus", "Size", "Created"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
		[]int{0, 40, 40, 0, 0},
		nil,
	)
}
