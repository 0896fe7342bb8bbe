package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "huddle.log")

	logger, err := New(path, "work", Options{Level: zapcore.InfoLevel})
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.Info("hello", zap.String("k", "v"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1 (debug filtered): %s", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	for key, want := range map[string]any{"msg": "hello", "k": "v", "profile": "work"} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %v", key, entry[key], want)
		}
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("missing ts field")
	}
	if _, ok := entry["pid"]; !ok {
		t.Error("missing pid field")
	}
}
