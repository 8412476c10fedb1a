package middleware

import (
	"log/slog"

	"github.com/m3rciful/regbot/core/logger"
	tghelpers "github.com/m3rciful/regbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions defines who passes admin-only checks.
type AdminOptions struct {
	AdminIDs []int64
	OnReject tele.HandlerFunc
}

// IsAdmin reports whether userID is listed in AdminIDs.
func (o AdminOptions) IsAdmin(userID int64) bool {
	for _, id := range o.AdminIDs {
		if id != 0 && id == userID {
			return true
		}
	}
	return false
}

// AdminOnlyMiddleware lets only configured admins reach downstream handlers.
// With no admins configured every sender is rejected.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user != nil && opts.IsAdmin(user.ID) {
				return next(c)
			}
			ctx := tghelpers.BuildContext(c)
			logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "access.denied",
				slog.String("status", "denied"),
				slog.String("command", logger.SanitizeLimit(c.Text(), 32)),
			)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
