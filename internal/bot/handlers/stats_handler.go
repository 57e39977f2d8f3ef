package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStatsHandler returns a handler for /stats. It is registered behind
// AdminOnly.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		msg := messageOf(update)
		if msg == nil {
			return
		}
		reply(ctx, b, deps, msg.Chat.ID, "📈 Stats\n\n"+deps.Metrics.Format())
	}
}
