// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly creates a middleware that checks if the message sender is the configured admin user.
// Anyone else gets the unauthorized message and the handler is not called.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			msg := messageOf(update)
			if msg == nil {
				return
			}

			if !deps.Config.IsAdmin(msg.From.ID) {
				log := deps.Logger.With("middleware", "AdminOnly")
				log.WarnContext(ctx, "Unauthorized access attempt", "user_id", msg.From.ID, "chat_id", msg.Chat.ID)
				reply(ctx, bot, deps, msg.Chat.ID, deps.Config.Messages.Unauthorized)
				return
			}

			next(ctx, bot, update)
		}
	}
}
