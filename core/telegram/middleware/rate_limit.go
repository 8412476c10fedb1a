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

// Update kinds understood by RateLimitOptions.Exclude.
const (
	KindMessage = "message"
	KindCommand = "command"
	KindOther   = "other"
)

// RateLimitOptions configures the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// UpdateKind classifies an update for rate limiting: slash commands,
// other messages, or anything else.
func UpdateKind(c tele.Context) string {
	msg := c.Message()
	switch {
	case msg == nil:
		return KindOther
	case strings.HasPrefix(msg.Text, "/"):
		return KindCommand
	default:
		return KindMessage
	}
}

type limiter struct {
	interval time.Duration
	mu       sync.Mutex
	lastSeen map[int64]time.Time
	sweptAt  time.Time
}

// allow records a hit for userID and reports whether it came at least one
// interval after the previous accepted hit.
func (l *limiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.sweptAt) > time.Minute {
		for id, ts := range l.lastSeen {
			if now.Sub(ts) > l.interval {
				delete(l.lastSeen, id)
			}
		}
		l.sweptAt = now
	}
	if last, ok := l.lastSeen[userID]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.lastSeen[userID] = now
	return true
}

// RateLimitMiddleware enforces a minimum interval between updates from the
// same user. Limited updates are dropped after OnLimited runs.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	l := &limiter{interval: opts.Interval, lastSeen: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c)
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			if l.allow(user.ID, time.Now()) {
				return next(c)
			}

			ctx := tghelpers.BuildContext(c)
			logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "tg.rate_limit",
				slog.String("status", "limited"),
				slog.String("mode", kind),
				slog.Bool("rate_limited", true),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
