package sender

import (
	"context"
	"errors"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m3rciful/regbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

func TestDispatcherRunsJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2})
	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		ctx := logger.WithUpdateMeta(context.Background(), i, int64(i), int64(i))
		if err := d.Enqueue(ctx, "send.text", "sendMessage", func() error {
			ran.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	d.Close()
	if ran.Load() != 10 {
		t.Fatalf("ran = %d, want 10", ran.Load())
	}
	if err := d.Enqueue(context.Background(), "send.text", "", func() error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Enqueue after Close = %v, want ErrQueueClosed", err)
	}
	d.Close()
}

func TestDispatcherKeepsChatOrder(t *testing.T) {
	d := NewDispatcher(Options{Workers: 4})
	ctx := logger.WithUpdateMeta(context.Background(), 1, 42, 42)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 20; i++ {
		i := i
		if err := d.Enqueue(ctx, "send.text", "", func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	d.Close()
	for i, v := range got {
		if v != i {
			t.Fatalf("order = %v", got)
		}
	}
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	_ = d.Enqueue(context.Background(), "send.text", "", func() error {
		if calls.Add(1) < 3 {
			return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
		}
		return nil
	})
	_ = d.Enqueue(context.Background(), "send.text", "", func() error {
		return errors.New("bad request")
	})
	d.Close()
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
	if d.ErrorCount() != 1 {
		t.Fatalf("ErrorCount = %d, want 1", d.ErrorCount())
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	_ = d.Enqueue(context.Background(), "block", "", func() error {
		close(started)
		<-release
		return nil
	})
	<-started
	_ = d.Enqueue(context.Background(), "fill", "", func() error { return nil })
	err := d.Enqueue(context.Background(), "overflow", "", func() error { return nil })
	close(release)
	d.Close()
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
}

func TestDispatcherEnqueueWait(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	defer d.Close()
	release := make(chan struct{})
	started := make(chan struct{})
	_ = d.Enqueue(context.Background(), "block", "", func() error {
		close(started)
		<-release
		return nil
	})
	<-started
	_ = d.Enqueue(context.Background(), "fill", "", func() error { return nil })

	if err := d.EnqueueWait(context.Background(), "late", "", func() error { return nil }, 20*time.Millisecond); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull after wait", err)
	}

	done := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	if err := d.EnqueueWait(context.Background(), "queued", "", func() error {
		close(done)
		return nil
	}, 2*time.Second); err != nil {
		t.Fatalf("EnqueueWait: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waited job did not run")
	}
}

func TestClassifyError(t *testing.T) {
	cases := map[string]error{
		"timeout":  context.DeadlineExceeded,
		"dial":     &url.Error{Op: "Post", URL: "u", Err: &net.OpError{Op: "dial", Err: errors.New("refused")}},
		"dns":      &net.DNSError{Err: "no such host", Name: "api.telegram.org"},
		"http_4xx": &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"},
		"unknown":  errors.New("mystery"),
	}
	for want, err := range cases {
		if got := classifyError(err); got != want {
			t.Errorf("classifyError(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestSanitizeError(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAE-secret_token/sendMessage": EOF`)
	got := SanitizeError(err)
	want := `Post "https://api.telegram.org/bot<redacted>/sendMessage": EOF`
	if got != want {
		t.Fatalf("sanitize = %q, want %q", got, want)
	}
}
