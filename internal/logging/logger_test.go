package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer := New(Options{Level: "debug", File: path, Format: "json"})
	logger.Debug("hello", "k", "v")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", data, err)
	}
	if entry["msg"] != "hello" || entry["k"] != "v" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewLevelFiltering(t *testing.T) {
	logger, closer := New(Options{Level: "warn", File: filepath.Join(t.TempDir(), "app.log")})
	defer closer.Close()
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled at warn level")
	}
	if !logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Fatal("warn should be enabled at warn level")
	}
}

func TestNewFallsBackOnBadLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer := New(Options{Level: "loud", File: path})
	defer closer.Close()
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected info level after fallback")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "could not parse logger level") {
		t.Fatalf("expected fallback warning, got %q", data)
	}
}

func TestNewDevNullDiscards(t *testing.T) {
	logger, closer := New(Options{File: os.DevNull})
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected discard handler")
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewCloserReleasesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	_, closer := New(Options{File: path})
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := closer.Close(); err == nil {
		t.Fatal("second close should report the file is already closed")
	}
}

func TestNewFallsBackOnBadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer := New(Options{File: path, Format: "xml"})
	logger.Info("after fallback")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "could not parse logger format") || !strings.Contains(string(data), "after fallback") {
		t.Fatalf("unexpected log output %q", data)
	}
}
