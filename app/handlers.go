package app

import (
	"log/slog"

	"github.com/m3rciful/regbot/conversation"
	"github.com/m3rciful/regbot/core/logger"
	tghelpers "github.com/m3rciful/regbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

func senderID(c tele.Context) (int64, bool) {
	if u := c.Sender(); u != nil {
		return u.ID, true
	}
	return 0, false
}

func (a *App) reply(c tele.Context, r conversation.Reply) error {
	return a.send(c, r.Text, r.Choices)
}

func (a *App) onStart(c tele.Context) error {
	id, ok := senderID(c)
	if !ok {
		return nil
	}
	return a.reply(c, a.machine.Start(tghelpers.BuildContext(c), id))
}

func (a *App) onCancel(c tele.Context) error {
	id, ok := senderID(c)
	if !ok {
		return nil
	}
	r, cancelled := a.machine.Cancel(tghelpers.BuildContext(c), id)
	if !cancelled {
		return a.send(c, msgNothingToCancel, nil)
	}
	return a.reply(c, r)
}

func (a *App) onHelp(c tele.Context) error {
	return a.send(c, msgHelp, nil)
}

// onList sends the roster. Store failures are reported to the admin and
// logged rather than returned.
func (a *App) onList(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	records, err := a.store.List(ctx)
	if err != nil {
		logger.Error(ctx, "app", "roster.failed", slog.String("status", "fail"), slog.Any("err", err))
		return a.send(c, msgRosterFailed, nil)
	}
	roster := BuildRoster(records)
	logger.Info(ctx, "app", "roster.sent",
		slog.Int("count", roster.Count),
		slog.Int("guests", roster.Guests),
	)
	for _, msg := range roster.Messages() {
		if err := a.send(c, msg, nil); err != nil {
			return err
		}
	}
	return nil
}

// InProgress reports whether the user has an open registration dialogue.
func (a *App) InProgress(userID int64) bool {
	return a.machine.InProgress(userID)
}

// HandleText feeds a text message to the user's dialogue.
func (a *App) HandleText(c tele.Context) error {
	id, ok := senderID(c)
	if !ok {
		return nil
	}
	r, handled := a.machine.Handle(tghelpers.BuildContext(c), id, c.Text())
	if !handled {
		return a.send(c, msgUseStart, nil)
	}
	return a.reply(c, r)
}

func (a *App) onUnknownText(c tele.Context) error {
	return a.send(c, msgUseStart, nil)
}

func (a *App) onMedia(c tele.Context) error {
	if id, ok := senderID(c); ok && a.machine.InProgress(id) {
		return a.send(c, msgTextOnly, nil)
	}
	return a.send(c, msgUseStart, nil)
}

func (a *App) onAdminReject(c tele.Context) error {
	return a.send(c, msgAdminOnly, nil)
}

func (a *App) onLimited(c tele.Context) error {
	return a.send(c, msgSlowDown, nil)
}
