package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/m3rciful/regbot/core/logger"
	"github.com/m3rciful/regbot/core/telegram/keyboard"
	"github.com/m3rciful/regbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// queueWait bounds how long a send waits for room in a full chat queue
// before it gives up on ordering and runs inline.
var queueWait = 2 * time.Second

// SetDispatcher wires the asynchronous sender used by the send helpers.
// With no dispatcher set, sends run inline.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, action string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	err := disp.EnqueueWait(ctx, action, "sendMessage", run, queueWait)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		// Earlier queued sends for this chat may land after this one.
		logger.LogEvent(ctx, logger.Sender, slog.LevelWarn, "queue.order_lost",
			slog.String("action", action),
			slog.Duration("waited", queueWait),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendText sends plain text to the current chat.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(c, "send.text", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// ChoiceMarkup lays choices out side by side on one one-time keyboard row.
// With no choices it removes any previous keyboard.
func ChoiceMarkup(choices []string) *tele.ReplyMarkup {
	if len(choices) == 0 {
		return keyboard.RemoveKeyboard()
	}
	return keyboard.OneTime(keyboard.Row(choices...)...)
}

// SendChoices sends text with the keyboard built by ChoiceMarkup.
func SendChoices(c tele.Context, text string, choices []string) error {
	markup := ChoiceMarkup(choices)
	return sendAsync(c, "send.choices", func() error {
		return c.Send(text, &tele.SendOptions{ReplyMarkup: markup})
	})
}
