package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/regbot/core/telegram"
	"github.com/m3rciful/regbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Conversation is the part of the dialogue engine the text router needs.
type Conversation interface {
	InProgress(userID int64) bool
	HandleText(c tele.Context) error
}

// TextOptions controls fallbacks for text and non-text messages.
type TextOptions struct {
	UnknownText  tele.HandlerFunc
	UnknownMedia tele.HandlerFunc
}

// TextRoutes routes plain text. Text from a user with an open conversation
// goes to the conversation; slash text never does, so an unregistered
// command cannot be recorded as an answer. Everything else falls through to
// a registered command, the registry fallback or opts.UnknownText.
func TextRoutes(conv Conversation, reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		start := time.Now()
		body := c.Text()
		command := strings.HasPrefix(body, "/")

		if conv != nil && !command && c.Sender() != nil && conv.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "conversation", start, "", conv.HandleText)
		}

		if reg != nil && command {
			if key, cmd, ok := reg.LookupCommand(body); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, "", cmd.Handler)
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", fb)
			}
		}
		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", opts.UnknownText)
		}
		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	media := func(c tele.Context) error {
		start := time.Now()
		if opts.UnknownMedia != nil {
			return handleWithSummary(c, "unexpected_media", start, "", opts.UnknownMedia)
		}
		logHandlerSummary(c, "unexpected_media", start, "skip", nil)
		return nil
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	routes := []tg.Route{{Endpoint: tele.OnText, Handler: wrap(text)}}
	for _, ep := range []string{tele.OnPhoto, tele.OnDocument, tele.OnSticker, tele.OnVoice, tele.OnVideo} {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: wrap(media)})
	}
	return routes
}
