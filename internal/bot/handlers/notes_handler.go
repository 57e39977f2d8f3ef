package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/studybuddy/internal/sanitize"
	"github.com/edgard/studybuddy/internal/study"
)

// NewNotesHandler returns a handler for /notes <topic>.
func NewNotesHandler(deps HandlerDeps) bot.HandlerFunc {
	return notesHandler{deps}.Handle
}

type notesHandler struct {
	deps HandlerDeps
}

func (h notesHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := messageOf(update)
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	topic := commandArgs(msg.Text)
	if topic == "" {
		reply(ctx, b, h.deps, chatID, h.deps.Config.Messages.ProvideArgs)
		return
	}
	h.deps.Logger.InfoContext(ctx, "Handling /notes command", "chat_id", chatID, "topic", topic)

	stop := keepTyping(ctx, b, chatID)
	opCtx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()
	note, err := h.deps.Service.GenerateNotes(opCtx, study.NotesRequest{Topic: topic, ConversationID: ChatKey(chatID)})
	stop()
	if err != nil {
		replyError(ctx, b, h.deps, chatID, err)
		return
	}
	reply(ctx, b, h.deps, chatID, sanitize.PlainText(note.Content))
}
