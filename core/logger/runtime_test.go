package logger

import (
	"context"
	"testing"
)

func TestSanitizeKeepsPersianJoiners(t *testing.T) {
	in := "ثبت\u200cنام\u200b\x07\tok"
	want := "ثبت\u200cنام\tok"
	if got := Sanitize(in); got != want {
		t.Fatalf("Sanitize = %q, want %q", got, want)
	}
	if got := SanitizeLimit("کد دانشجویی", 2); got != "کد" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("x", 0); got != "" {
		t.Fatalf("SanitizeLimit(0) = %q", got)
	}
}

func TestUpdateMetaRoundTrip(t *testing.T) {
	ctx := WithUpdateMeta(context.Background(), 901, 42, -100)
	ctx = WithRID(ctx, BuildRID(901, -100, 42))
	ctx = WithHandler(ctx, "start")

	if UpdateIDFrom(ctx) != 901 || UserIDFrom(ctx) != 42 || ChatIDFrom(ctx) != -100 {
		t.Fatalf("meta = %d/%d/%d", UpdateIDFrom(ctx), UserIDFrom(ctx), ChatIDFrom(ctx))
	}
	if RIDFrom(ctx) != "901:-100:42" || HandlerFrom(ctx) != "start" {
		t.Fatalf("rid=%q handler=%q", RIDFrom(ctx), HandlerFrom(ctx))
	}
	if UserIDFrom(context.Background()) != 0 {
		t.Fatal("empty context should yield zero")
	}
}

func TestCompactRID(t *testing.T) {
	if got := CompactRID("36:-1:35"); got != "10.-1.z" {
		t.Fatalf("CompactRID = %q", got)
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("CompactRID passthrough = %q", got)
	}
}
