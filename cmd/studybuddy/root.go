package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	cc := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "studybuddy",
		Short:         "Study with YouTube lectures and practise for exams",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return cc.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cc.configFlag, "config", "c", "config.yaml", "Configuration file path")

	rootCmd.AddCommand(
		newServeCommand(cc),
		newAskCommand(cc),
		newTranscriptCommand(cc),
		newExamCommand(cc),
		newNotesCommand(cc),
		newMigrateCommand(cc),
	)
	return rootCmd
}
