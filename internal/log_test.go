package internal

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"ERROR": LogLevelError,
		"warn":  LogLevelWarn,
		" Info": LogLevelInfo,
		"DEBUG": LogLevelDebug,
		"trace": LogLevelTrace,
		"":      LogLevelInfo,
		"loud":  LogLevelInfo,
	}
	for in, want := range cases {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestLoggerLevelsAndPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LogLevelInfo).With("Loader")

	logger.Debug("hidden %d", 1)
	logger.Info("inserted %d rows", 42)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line should be filtered: %q", out)
	}
	if !strings.Contains(out, "[INFO] [Loader] inserted 42 rows") {
		t.Errorf("unexpected output: %q", out)
	}
}
