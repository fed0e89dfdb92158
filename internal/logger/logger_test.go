package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewRespectsLevel(t *testing.T) {
	log := New("warn", "json")
	if log.GetLevel() != zerolog.WarnLevel {
		t.Errorf("expected warn level, got %s", log.GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"error": zerolog.ErrorLevel,
		"":      zerolog.InfoLevel,
		"loud":  zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Str("transaction_id", "tx-1").Msg("linked")

	output := buf.String()
	if !strings.Contains(output, "linked") || !strings.Contains(output, "tx-1") {
		t.Errorf("unexpected output: %s", output)
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_Nop(t *testing.T) {
	log := FromContext(context.Background())
	if log.GetLevel() != zerolog.Disabled {
		t.Errorf("expected disabled logger, got %s", log.GetLevel())
	}
}
