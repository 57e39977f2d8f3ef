package main

import (
	"context"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/edgard/studybuddy/internal/bot"
	"github.com/edgard/studybuddy/internal/bot/handlers"
	"github.com/edgard/studybuddy/internal/bot/tasks"
	"github.com/edgard/studybuddy/internal/config"
	"github.com/edgard/studybuddy/internal/logger"
	"github.com/edgard/studybuddy/internal/server"
	"github.com/edgard/studybuddy/internal/telegram"
)

func newServeCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the scheduler and the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := cc.cfg
			log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
			cc.log = log
			log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

			a, err := cc.openApp(ctx)
			if err != nil {
				return err
			}
			defer cc.closeApp(a)

			svc, err := a.Service(ctx)
			if err != nil {
				return err
			}

			srv := server.New(server.Options{
				Config:    cfg.Server,
				RateLimit: cfg.RateLimit,
				Service:   svc,
				Store:     a.Store,
				Metrics:   a.Metrics,
				Logger:    log,
			})

			sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
				Logger: log,
				Store:  a.Store,
				Cache:  a.Cache,
				Config: cfg,
			}))
			if err != nil {
				return err
			}

			var tg *tgbot.Bot
			if cfg.Telegram.Enabled {
				tg, err = newTelegramBot(ctx, cfg, log, handlers.HandlerDeps{
					Logger:  log,
					Config:  cfg,
					Service: svc,
					Metrics: a.Metrics,
				})
				if err != nil {
					return err
				}
			}

			return bot.NewBot(log, srv, tg, sched).Run(ctx)
		},
	}
}

func newTelegramBot(ctx context.Context, cfg *config.Config, log *slog.Logger, deps handlers.HandlerDeps) (*tgbot.Bot, error) {
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log,
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewAnswerHandler(deps)),
	)
	if err != nil {
		return nil, err
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	cmds := handlers.RegisterAllCommands(deps)
	if err := telegram.RegisterHandlers(tg, log, cmds); err != nil {
		return nil, err
	}
	if err := telegram.PublishCommands(ctx, tg, cmds); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}
	return tg, nil
}
