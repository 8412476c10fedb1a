package middleware

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/regbot/core/logger"
	tghelpers "github.com/m3rciful/regbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const updateStartKey = "update_start"

// recentUpdates remembers update ids already logged, since a route may be
// wrapped by this middleware both globally and per handler.
type recentUpdates struct {
	mu      sync.Mutex
	seen    map[int]time.Time
	keepFor time.Duration
}

var received = &recentUpdates{seen: make(map[int]time.Time), keepFor: 10 * time.Second}

func (r *recentUpdates) mark(updateID int, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ts := range r.seen {
		if now.Sub(ts) > r.keepFor {
			delete(r.seen, id)
		}
	}
	if _, ok := r.seen[updateID]; ok {
		return false
	}
	r.seen[updateID] = now
	return true
}

// LoggerMiddleware assigns the request id, stores the logging context on the
// update and logs one sampled receipt line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, ok := tghelpers.ContextFrom(c); !ok {
			c.Set(updateStartKey, time.Now())
		}
		ctx := tghelpers.BuildContext(c)

		upd := c.Update()
		if received.mark(upd.ID, time.Now()) && logger.ShouldSampleDebug() {
			attrs := []slog.Attr{slog.String("status", "ok")}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user := c.Sender(); user != nil && user.LanguageCode != "" {
				attrs = append(attrs, slog.String("lang", user.LanguageCode))
			}
			if text := c.Text(); text != "" {
				if strings.HasPrefix(text, "/") {
					name, _, _ := strings.Cut(text, " ")
					attrs = append(attrs, slog.String("command", logger.SanitizeLimit(name, 32)))
				}
				attrs = append(attrs,
					slog.Int("text_len", len([]rune(text))),
					slog.String("text", logger.SanitizeLimit(text, 256)),
				)
			}
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", attrs...)
		}

		return next(c)
	}
}

// UpdateStart returns when LoggerMiddleware first saw the update.
func UpdateStart(c tele.Context) (time.Time, bool) {
	ts, ok := c.Get(updateStartKey).(time.Time)
	return ts, ok
}
