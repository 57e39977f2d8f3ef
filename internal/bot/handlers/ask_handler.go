package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/studybuddy/internal/sanitize"
	"github.com/edgard/studybuddy/internal/study"
)

// NewAskHandler returns a handler for /ask <url> <question>.
func NewAskHandler(deps HandlerDeps) bot.HandlerFunc {
	return askHandler{deps}.Handle
}

type askHandler struct {
	deps HandlerDeps
}

func (h askHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "ask")

	msg := messageOf(update)
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	videoURL, question, ok := parseAskArgs(commandArgs(msg.Text))
	if !ok {
		reply(ctx, b, h.deps, chatID, h.deps.Config.Messages.ProvideArgs)
		return
	}
	log.InfoContext(ctx, "Handling /ask command", "chat_id", chatID, "video_url", videoURL)

	stop := keepTyping(ctx, b, chatID)
	opCtx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()
	res, err := h.deps.Service.AskVideo(opCtx, study.AskRequest{
		VideoURL:       videoURL,
		Question:       question,
		ConversationID: ChatKey(chatID),
	})
	stop()
	if err != nil {
		replyError(ctx, b, h.deps, chatID, err)
		return
	}

	text := sanitize.PlainText(res.Answer)
	if res.Title != "" {
		text = fmt.Sprintf("🎬 %s\n\n%s", res.Title, text)
	}
	reply(ctx, b, h.deps, chatID, text)
}
