package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/edgard/studybuddy/internal/app"
	"github.com/edgard/studybuddy/internal/config"
	"github.com/edgard/studybuddy/internal/logger"
)

// cliOwner owns the exam sessions and the conversation started from the
// terminal.
const cliOwner = "cli"

type commandContext struct {
	configFlag string

	cfg *config.Config
	log *slog.Logger
}

// load reads the configuration. Interactive commands log to stderr so their
// output stays clean; serve replaces the logger with its own.
func (c *commandContext) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(c.configFlag)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.log = logger.New(cmd.ErrOrStderr(), cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(c.log)
	return nil
}

func (c *commandContext) openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, c.cfg, c.log)
}

func (c *commandContext) closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		c.log.Warn("Failed to close application", "error", err)
	}
}
