package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zerolog.Level
	}{
		{-1, zerolog.WarnLevel},
		{0, zerolog.WarnLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{3, zerolog.TraceLevel},
		{7, zerolog.TraceLevel},
	}
	for _, tt := range tests {
		if got := Level(tt.verbosity); got != tt.want {
			t.Errorf("Level(%d) = %v, want %v", tt.verbosity, got, tt.want)
		}
	}
}

func TestSetupFiltersByVerbosity(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	Setup(0, &buf)

	logger := Get("test")
	logger.Info().Msg("hidden message")
	logger.Warn().Msg("visible message")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("info record should be filtered at verbosity 0:\n%s", out)
	}
	if !strings.Contains(out, "visible message") {
		t.Errorf("warn record missing:\n%s", out)
	}
	if !strings.Contains(out, "component=test") {
		t.Errorf("component field missing:\n%s", out)
	}
}

func TestOperationLogsCompletion(t *testing.T) {
	var buf bytes.Buffer
	old := log.Logger
	defer func() { log.Logger = old }()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	logger := zerolog.New(&buf)
	done := Operation(logger, "index")
	done()

	out := buf.String()
	if !strings.Contains(out, `"operation":"index"`) {
		t.Errorf("operation field missing: %s", out)
	}
	if !strings.Contains(out, "Operation completed") || !strings.Contains(out, "duration") {
		t.Errorf("completion record missing: %s", out)
	}
}
