package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{" WARN ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	t.Cleanup(func() { SetLevel(LevelInfo) })

	Info("hidden message", "k", "v")
	assert.Empty(t, buf.String())

	Error("visible message", errors.New("boom"), "calendar", "work")
	out := buf.String()
	assert.Contains(t, out, "visible message")
	assert.Contains(t, out, "err=boom")
	assert.Contains(t, out, "calendar=work")
}

func TestFieldsSkipsMalformedPairs(t *testing.T) {
	f := fields("a", 1, 2, "ignored", "dangling")
	assert.Equal(t, 1, f["a"])
	assert.Len(t, f, 1)
}
