package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/edgard/studybuddy/internal/youtube"
)

func newTranscriptCommand(cc *commandContext) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "transcript <video-url>",
		Short: "Print the captions of a YouTube video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cc.openApp(ctx)
			if err != nil {
				return err
			}
			defer cc.closeApp(a)

			t, err := a.Transcriber.FetchTranscript(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if plain {
				fmt.Fprintln(out, t.PlainText())
			} else {
				printTranscript(out, t)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%s (%s, %s captions): %s segments, %s, %s\n",
				t.Title, t.Language, t.Kind,
				humanize.Comma(int64(len(t.Segments))),
				youtube.FormatTimestamp(t.Duration()),
				humanize.Bytes(uint64(len(t.PlainText()))))
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print the text without timestamps")
	return cmd
}

// printTranscript writes one "[MM:SS] text" line per caption segment.
func printTranscript(w io.Writer, t *youtube.Transcript) {
	for _, seg := range t.Segments {
		fmt.Fprintf(w, "[%s] %s\n", youtube.FormatTimestamp(seg.Start), seg.Text)
	}
}
