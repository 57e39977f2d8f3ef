// Package bot wires the long-running parts of studybuddy together: the HTTP
// API, the optional Telegram listener and the maintenance scheduler.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"
)

// HTTPServer is the API server run by the orchestrator.
type HTTPServer interface {
	Run(ctx context.Context) error
}

// Bot manages the lifecycle of the running components.
type Bot struct {
	logger    *slog.Logger
	server    HTTPServer
	tgBot     *tgbot.Bot
	scheduler *Scheduler
}

// NewBot creates the orchestrator. tg may be nil when Telegram is disabled.
func NewBot(logger *slog.Logger, server HTTPServer, tg *tgbot.Bot, scheduler *Scheduler) *Bot {
	return &Bot{
		logger:    logger.With("component", "orchestrator"),
		server:    server,
		tgBot:     tg,
		scheduler: scheduler,
	}
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails, which stops the others.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	if b.server != nil {
		g.Go(func() error {
			if err := b.server.Run(gCtx); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			if gCtx.Err() == nil {
				return errors.New("http server stopped unexpectedly")
			}
			return nil
		})
	}

	if b.tgBot != nil {
		g.Go(func() error {
			b.logger.Info("Starting Telegram bot listener...")
			b.tgBot.Start(gCtx)
			b.logger.Info("Telegram bot listener stopped.")

			if gCtx.Err() == nil {
				b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
				return errors.New("telegram listener stopped unexpectedly")
			}
			return nil
		})
	}

	if b.scheduler != nil {
		g.Go(func() error {
			if err := b.scheduler.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			b.logger.Info("Shutdown signal received, stopping scheduler...")
			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	b.logger.Info("Orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Orchestrator stopped gracefully.")
	return nil
}
