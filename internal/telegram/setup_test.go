package telegram

import (
	"context"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/studybuddy/internal/bot/handlers"
	"github.com/edgard/studybuddy/internal/logger"
)

func TestApplyMiddlewareOrder(t *testing.T) {
	t.Parallel()

	var calls []string
	mark := func(name string) bot.Middleware {
		return func(next bot.HandlerFunc) bot.HandlerFunc {
			return func(ctx context.Context, b *bot.Bot, u *models.Update) {
				calls = append(calls, name)
				next(ctx, b, u)
			}
		}
	}
	h := applyMiddleware(func(context.Context, *bot.Bot, *models.Update) {
		calls = append(calls, "handler")
	}, []bot.Middleware{mark("outer"), mark("inner")})

	h(context.Background(), nil, &models.Update{})
	assert.Equal(t, []string{"outer", "inner", "handler"}, calls)
}

func TestBotCommands(t *testing.T) {
	t.Parallel()

	cmds := BotCommands(map[string]handlers.RegisteredHandler{
		"/notes": {Pattern: "notes", Description: "Study notes"},
		"/ask":   {Pattern: "ask", Description: "Ask about a video"},
		"/quiet": {Pattern: "quiet"},
	})
	assert.Equal(t, []models.BotCommand{
		{Command: "ask", Description: "Ask about a video"},
		{Command: "notes", Description: "Study notes"},
	}, cmds)
}

func TestNewTelegramBotRequiresToken(t *testing.T) {
	t.Parallel()

	_, err := NewTelegramBot("", logger.Discard())
	require.Error(t, err)
	assert.Error(t, RegisterHandlers(nil, logger.Discard(), nil))
}
