package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	apperrors "github.com/edgard/studybuddy/internal/errors"
	"github.com/edgard/studybuddy/internal/sanitize"
	"github.com/edgard/studybuddy/internal/study"
)

// NewExamHandler returns a handler for /exam <topics>. It starts a session
// owned by the chat and sends the first question.
func NewExamHandler(deps HandlerDeps) bot.HandlerFunc {
	return examHandler{deps}.Handle
}

// NewAnswerHandler returns the default handler. Plain text is taken as the
// answer to the current question of the chat's active session.
func NewAnswerHandler(deps HandlerDeps) bot.HandlerFunc {
	return examHandler{deps}.HandleAnswer
}

// NewSkipHandler returns a handler for /skip.
func NewSkipHandler(deps HandlerDeps) bot.HandlerFunc {
	return examHandler{deps}.HandleSkip
}

// NewFinishHandler returns a handler for /finish.
func NewFinishHandler(deps HandlerDeps) bot.HandlerFunc {
	return examHandler{deps}.HandleFinish
}

type examHandler struct {
	deps HandlerDeps
}

func (h examHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "exam")

	msg := messageOf(update)
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	topics := commandArgs(msg.Text)
	if topics == "" {
		reply(ctx, b, h.deps, chatID, h.deps.Config.Messages.ProvideArgs)
		return
	}
	log.InfoContext(ctx, "Handling /exam command", "chat_id", chatID, "topics", topics)

	reply(ctx, b, h.deps, chatID, h.deps.Config.Messages.Thinking)
	stop := keepTyping(ctx, b, chatID)
	opCtx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()
	session, err := h.deps.Service.StartSession(opCtx, study.StartRequest{Topics: topics, Owner: ChatKey(chatID)})
	stop()
	if err != nil {
		replyError(ctx, b, h.deps, chatID, err)
		return
	}

	started := h.deps.Config.Messages.SessionStarted
	if strings.Contains(started, "%d") {
		started = fmt.Sprintf(started, len(session.Questions))
	}
	reply(ctx, b, h.deps, chatID, started)
	reply(ctx, b, h.deps, chatID, formatQuestion(0, len(session.Questions), session.Questions[0]))
}

// active returns the chat's active session. When there is none the user is
// told so, except in group chats where stray text is ignored.
func (h examHandler) active(ctx context.Context, b *bot.Bot, msg *models.Message, quiet bool) *study.SessionView {
	view, err := h.deps.Service.ActiveSession(ctx, ChatKey(msg.Chat.ID))
	if err == nil {
		return view
	}
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		if !quiet {
			reply(ctx, b, h.deps, msg.Chat.ID, h.deps.Config.Messages.NoActiveSession)
		}
		return nil
	}
	replyError(ctx, b, h.deps, msg.Chat.ID, err)
	return nil
}

func (h examHandler) sendNext(ctx context.Context, b *bot.Bot, chatID int64, view *study.SessionView, next int) {
	if next < 0 {
		reply(ctx, b, h.deps, chatID, h.deps.Config.Messages.AllAnswered)
		return
	}
	questions := view.Session.Questions
	reply(ctx, b, h.deps, chatID, formatQuestion(next, len(questions), questions[next]))
}

func (h examHandler) HandleAnswer(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := messageOf(update)
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	private := msg.Chat.Type == models.ChatTypePrivate
	if strings.HasPrefix(msg.Text, "/") {
		if private {
			reply(ctx, b, h.deps, msg.Chat.ID, withBotName(h.deps.Config, h.deps.Config.Messages.Help))
		}
		return
	}

	view := h.active(ctx, b, msg, !private)
	if view == nil {
		return
	}
	chatID := msg.Chat.ID
	h.deps.Logger.InfoContext(ctx, "Evaluating answer", "chat_id", chatID, "session_id", view.Session.ID)

	stop := keepTyping(ctx, b, chatID)
	opCtx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()
	eval, err := h.deps.Service.SubmitAnswer(opCtx, study.AnswerRequest{
		SessionID:  view.Session.ID,
		AnswerText: msg.Text,
	})
	stop()
	if err != nil {
		replyError(ctx, b, h.deps, chatID, err)
		return
	}

	reply(ctx, b, h.deps, chatID, formatEvaluation(eval))
	h.sendNext(ctx, b, chatID, view, eval.NextIndex)
}

func (h examHandler) HandleSkip(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := messageOf(update)
	if msg == nil {
		return
	}
	view := h.active(ctx, b, msg, false)
	if view == nil {
		return
	}
	chatID := msg.Chat.ID

	eval, err := h.deps.Service.SkipQuestion(ctx, view.Session.ID, nil)
	if err != nil {
		replyError(ctx, b, h.deps, chatID, err)
		return
	}
	reply(ctx, b, h.deps, chatID, fmt.Sprintf("⏭ Question %d skipped.", eval.QuestionIndex+1))
	h.sendNext(ctx, b, chatID, view, eval.NextIndex)
}

func (h examHandler) HandleFinish(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := messageOf(update)
	if msg == nil {
		return
	}
	view := h.active(ctx, b, msg, false)
	if view == nil {
		return
	}
	chatID := msg.Chat.ID
	h.deps.Logger.InfoContext(ctx, "Finishing exam", "chat_id", chatID, "session_id", view.Session.ID, "answers", len(view.Answers))

	reply(ctx, b, h.deps, chatID, h.deps.Config.Messages.Thinking)
	stop := keepTyping(ctx, b, chatID)
	opCtx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()
	report, err := h.deps.Service.FinalEvaluation(opCtx, study.FinalRequest{SessionID: view.Session.ID})
	stop()
	if err != nil {
		replyError(ctx, b, h.deps, chatID, err)
		return
	}

	reply(ctx, b, h.deps, chatID, formatReport(report))
	reply(ctx, b, h.deps, chatID, "📚 Notes\n\n"+sanitize.PlainText(report.Notes))
}
