package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgard/studybuddy/internal/database"
)

func newMigrateCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := database.NewDB(cc.cfg.Database.Path)
			if err != nil {
				return err
			}
			defer database.CloseDB(db)

			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date\n", cc.cfg.Database.Path)
			return nil
		},
	}
}
