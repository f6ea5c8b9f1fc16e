package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	log := Console(&buf, "warn")
	log.Info().Msg("hidden")
	log.Warn().Str("page", "2").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "page=") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pagecast.log")
	log, closer, err := File(path, "debug")
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	log.Debug().Str("token", "abc").Msg("poll started")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"token":"abc"`) {
		t.Errorf("log file = %q", data)
	}
}

func TestParseLevelFallback(t *testing.T) {
	if got := parseLevel("loud"); got.String() != "info" {
		t.Errorf("parseLevel(loud) = %s, want info", got)
	}
}
