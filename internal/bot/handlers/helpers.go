package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	apperrors "github.com/edgard/studybuddy/internal/errors"
	"github.com/edgard/studybuddy/internal/sanitize"
	"github.com/edgard/studybuddy/internal/study"
)

const (
	// maxMessageLength is Telegram's limit for one text message.
	maxMessageLength = 4096
	serviceTimeout   = 5 * time.Minute
	typingInterval   = 4 * time.Second
)

// ChatKey is the owner and conversation ID used for a Telegram chat.
func ChatKey(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

// commandArgs returns the text after the leading command, so "/ask@bot x y"
// yields "x y".
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i:])
}

// parseAskArgs splits "/ask" arguments into the video URL and the question.
func parseAskArgs(args string) (videoURL, question string, ok bool) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", "", false
	}
	videoURL = fields[0]
	question = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(args), videoURL))
	return videoURL, question, question != ""
}

// splitMessage cuts text into chunks of at most limit bytes, preferring line
// breaks and never splitting a rune.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func reply(ctx context.Context, b *bot.Bot, deps HandlerDeps, chatID int64, text string) {
	for _, chunk := range splitMessage(text, maxMessageLength) {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: chunk}); err != nil {
			deps.Logger.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
			return
		}
	}
}

// replyError tells the user what went wrong. Input problems are explained,
// anything else gets the generic error message.
func replyError(ctx context.Context, b *bot.Bot, deps HandlerDeps, chatID int64, err error) {
	switch apperrors.Code(err) {
	case apperrors.CodeInvalidInput, apperrors.CodeTranscriptUnavailable, apperrors.CodeNotFound:
		reply(ctx, b, deps, chatID, "⚠️ "+apperrors.PublicMessage(err))
	default:
		deps.Logger.ErrorContext(ctx, "Request failed", "error", err, "chat_id", chatID)
		reply(ctx, b, deps, chatID, deps.Config.Messages.GeneralError)
	}
}

// keepTyping shows the typing indicator until the returned stop is called.
func keepTyping(ctx context.Context, b *bot.Bot, chatID int64) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()
		for {
			_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return cancel
}

// updateID returns the ID of update for logging, 0 for a nil update.
func updateID(update *models.Update) int64 {
	if update == nil {
		return 0
	}
	return update.ID
}

// messageOf returns the message of update, or nil when it has no sender.
func messageOf(update *models.Update) *models.Message {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return nil
	}
	return update.Message
}

func formatQuestion(index, total int, question string) string {
	return fmt.Sprintf("❓ Question %d/%d\n\n%s", index+1, total, question)
}

func formatEvaluation(eval *study.Evaluation) string {
	var sb strings.Builder
	if eval.Score != nil {
		fmt.Fprintf(&sb, "📊 Score: %d/10\n\n", *eval.Score)
	}
	sb.WriteString(sanitize.PlainText(eval.Evaluation))
	return sb.String()
}

func formatReport(report *study.FinalReport) string {
	return fmt.Sprintf("🏁 Final evaluation\n\n%s\n\n🎯 Weak topics: %s", sanitize.PlainText(report.TotalEvaluation), report.WeakTopics)
}
