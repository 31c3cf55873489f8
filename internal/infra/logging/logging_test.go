//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"codecraft-ai/internal/config"
)

func TestWithAttachesContextIDs(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, config.LogConfig{Level: "info", Format: "json"}, false)

	ctx := WithChatID(WithUserID(WithTraceID(context.Background(), "t-1"), "u-1"), "c-1")
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	for k, want := range map[string]string{"trace_id": "t-1", "user_id": "u-1", "chat_id": "c-1", "message": "hello"} {
		if line[k] != want {
			t.Errorf("%s: want %q, got %v", k, want, line[k])
		}
	}
	if TraceID(ctx) != "t-1" {
		t.Errorf("TraceID: want t-1, got %q", TraceID(ctx))
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"}, false)
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level, got %s", buf.String())
	}
	l.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Fatal("warn must be written")
	}
}

func TestRedact(t *testing.T) {
	cases := []struct {
		in   string
		dev  bool
		want string
	}{
		{"short", false, "***"},
		{"abcdefghijkl", false, "abcd...kl"},
		{"abcdefghijkl", true, "abcdefghijkl"},
		{"héllo wörld", false, "héll...ld"},
	}
	for _, c := range cases {
		if got := Redact(c.in, c.dev); got != c.want {
			t.Errorf("Redact(%q,%v): want %q, got %q", c.in, c.dev, c.want, got)
		}
	}
}
