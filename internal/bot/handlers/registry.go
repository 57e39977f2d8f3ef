package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler represents a command handler with its description and middleware.
// It encapsulates all information needed to register and document a command.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Description string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

func command(pattern, description string, handler tgbot.HandlerFunc, mw ...tgbot.Middleware) RegisteredHandler {
	return RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     pattern,
		Description: description,
		Handler:     handler,
		Middleware:  mw,
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
}

// RegisterAllCommands initializes and returns a map of all available bot commands.
// Plain text answers are not in the map; they go to NewAnswerHandler, which
// is installed as the default handler.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["/start"] = command("start", "Welcome message", NewStartHandler(deps))
	handlers["/help"] = command("help", "List commands", NewHelpHandler(deps))
	handlers["/ask"] = command("ask", "Ask about a YouTube video: /ask <url> <question>", NewAskHandler(deps))
	handlers["/exam"] = command("exam", "Start an exam session: /exam <topics>", NewExamHandler(deps))
	handlers["/skip"] = command("skip", "Skip the current question", NewSkipHandler(deps))
	handlers["/finish"] = command("finish", "Final evaluation and notes", NewFinishHandler(deps))
	handlers["/notes"] = command("notes", "Study notes: /notes <topic>", NewNotesHandler(deps))
	handlers["/reset"] = command("reset", "Clear this chat's history", NewResetHandler(deps))

	handlers["/stats"] = command("stats", "Service counters (admin)", NewStatsHandler(deps), AdminOnly(deps))

	return handlers
}
