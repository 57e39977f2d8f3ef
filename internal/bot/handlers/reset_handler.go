package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const resetTimeout = 30 * time.Second

// NewResetHandler returns a handler for the /reset command. It clears the
// chat's conversation buffer and expires its active exam session.
func NewResetHandler(deps HandlerDeps) bot.HandlerFunc {
	return resetHandler{deps}.Handle
}

type resetHandler struct {
	deps HandlerDeps
}

func (h resetHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "reset")
	msg := messageOf(update)
	if msg == nil {
		log.ErrorContext(ctx, "Reset handler called with nil Message or From", "update_id", updateID(update))
		return
	}

	chatID := msg.Chat.ID
	log.InfoContext(ctx, "Chat requested reset", "chat_id", chatID, "user_id", msg.From.ID)

	timeoutCtx, cancel := context.WithTimeout(ctx, resetTimeout)
	defer cancel()

	key := ChatKey(chatID)
	err := h.deps.Service.ResetConversation(timeoutCtx, key)
	var expired int64
	if err == nil {
		expired, err = h.deps.Service.AbandonSessions(timeoutCtx, key)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		log.WarnContext(ctx, "Reset operation timed out", "chat_id", chatID)
	}
	if err != nil {
		replyError(ctx, b, h.deps, chatID, err)
		return
	}

	log.InfoContext(ctx, "Chat reset", "chat_id", chatID, "expired_sessions", expired)
	reply(ctx, b, h.deps, chatID, h.deps.Config.Messages.ResetConfirm)
}
