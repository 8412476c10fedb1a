package helpers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/regbot/core/logger"
	"github.com/m3rciful/regbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

func offlineContext(t *testing.T, chatID int64) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("offline bot: %v", err)
	}
	return bot.NewContext(tele.Update{
		ID:      1,
		Message: &tele.Message{Sender: &tele.User{ID: chatID}, Chat: &tele.Chat{ID: chatID}, Text: "hi"},
	})
}

func TestChoiceMarkupSingleRow(t *testing.T) {
	m := ChoiceMarkup([]string{"بله ✅", "خیر ❌"})
	if !m.OneTimeKeyboard {
		t.Fatal("choices keyboard should be one-time")
	}
	if len(m.ReplyKeyboard) != 1 || len(m.ReplyKeyboard[0]) != 2 {
		t.Fatalf("keyboard = %+v, want one row of two", m.ReplyKeyboard)
	}
	if !ChoiceMarkup(nil).RemoveKeyboard {
		t.Fatal("no choices should remove the keyboard")
	}
}

// blockedDispatcher returns a single-worker dispatcher whose worker is busy
// and whose queue is full, plus a func that frees the worker.
func blockedDispatcher(t *testing.T, order *[]string, mu *sync.Mutex) (*sender.Dispatcher, func()) {
	t.Helper()
	d := sender.NewDispatcher(sender.Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	record := func(name string) {
		mu.Lock()
		*order = append(*order, name)
		mu.Unlock()
	}
	ctx := logger.WithUpdateMeta(context.Background(), 0, 9, 9)
	_ = d.Enqueue(ctx, "block", "", func() error {
		close(started)
		<-release
		record("block")
		return nil
	})
	<-started
	_ = d.Enqueue(ctx, "fill", "", func() error {
		record("fill")
		return nil
	})
	var once sync.Once
	return d, func() { once.Do(func() { close(release) }) }
}

func TestSendAsyncWaitsForQueueRoom(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	d, release := blockedDispatcher(t, &order, &mu)
	SetDispatcher(d)
	t.Cleanup(func() { SetDispatcher(nil) })

	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()
	err := sendAsync(offlineContext(t, 9), "send.text", func() error {
		mu.Lock()
		order = append(order, "reply")
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("sendAsync: %v", err)
	}
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	want := []string{"block", "fill", "reply"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestSendAsyncRunsInlineAfterWait(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	d, release := blockedDispatcher(t, &order, &mu)
	SetDispatcher(d)
	prev := queueWait
	queueWait = 10 * time.Millisecond
	t.Cleanup(func() {
		queueWait = prev
		SetDispatcher(nil)
		release()
		d.Close()
	})

	ran := false
	err := sendAsync(offlineContext(t, 9), "send.text", func() error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("sendAsync: %v", err)
	}
	if !ran {
		t.Fatal("send should run inline once the wait runs out")
	}
}
