package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edgard/studybuddy/internal/study"
)

func newAskCommand(cc *commandContext) *cobra.Command {
	var conversation string

	cmd := &cobra.Command{
		Use:   "ask <video-url> <question...>",
		Short: "Ask a question about a YouTube video",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cc.openApp(ctx)
			if err != nil {
				return err
			}
			defer cc.closeApp(a)

			svc, err := a.Service(ctx)
			if err != nil {
				return err
			}

			res, err := svc.AskVideo(ctx, study.AskRequest{
				VideoURL:       args[0],
				Question:       strings.Join(args[1:], " "),
				ConversationID: conversation,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Title != "" {
				fmt.Fprintf(out, "🎬 %s\n\n", res.Title)
			}
			printMarkdown(out, res.Answer)
			return nil
		},
	}

	cmd.Flags().StringVar(&conversation, "conversation", cliOwner, "Conversation ID used for follow-up questions")
	return cmd
}
