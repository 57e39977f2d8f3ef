package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/studybuddy/internal/config"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return infoHandler{deps: deps, name: "start", text: func(m config.MessagesConfig) string { return m.Welcome }}.Handle
}

// NewHelpHandler returns a handler for the /help command.
func NewHelpHandler(deps HandlerDeps) bot.HandlerFunc {
	return infoHandler{deps: deps, name: "help", text: func(m config.MessagesConfig) string { return m.Help }}.Handle
}

// infoHandler answers a command with one of the configured messages.
type infoHandler struct {
	deps HandlerDeps
	name string
	text func(config.MessagesConfig) string
}

func (h infoHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", h.name)

	msg := messageOf(update)
	if msg == nil {
		log.WarnContext(ctx, "Received update with nil message or sender", "update_id", updateID(update))
		return
	}

	log.InfoContext(ctx, "Handling /"+h.name+" command", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)
	reply(ctx, b, h.deps, msg.Chat.ID, withBotName(h.deps.Config, h.text(h.deps.Config.Messages)))
}

// withBotName replaces the @botname placeholder with the bot's username.
func withBotName(cfg *config.Config, text string) string {
	if cfg.Telegram.BotInfo == nil || cfg.Telegram.BotInfo.Username == "" {
		return text
	}
	return strings.ReplaceAll(text, "@botname", "@"+cfg.Telegram.BotInfo.Username)
}
