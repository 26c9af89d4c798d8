package applog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	maxFileSize = 5 << 20 // 5 MB
	maxValueLen = 200
	truncSuffix = "…"
)

var (
	mu     sync.Mutex
	file   *os.File
	logger *slog.Logger
)

// Init opens the log file for appending. Call once at startup.
// If the file exceeds 5 MB, it is rotated (renamed to .log.1) before opening.
// Without Init every log call is a no-op.
func Init(dir, level string) error {
	path := filepath.Join(dir, "recentswitch.log")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// Rotate if too large.
	if info, err := os.Stat(path); err == nil && info.Size() > maxFileSize {
		os.Rename(path, path+".1")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	mu.Lock()
	file = f
	logger = newLogger(f, level)
	mu.Unlock()
	return nil
}

// SetOutput routes log lines to w instead of a file. Used by tests and by
// the foreground `serve --stderr` mode.
func SetOutput(w io.Writer, level string) {
	mu.Lock()
	logger = newLogger(w, level)
	mu.Unlock()
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
	}
	logger = nil
}

// Debug logs a verbose event line, dropped unless the level is debug.
func Debug(event string, kv ...any) {
	write(slog.LevelDebug, event, nil, kv)
}

// Info logs a structured event line.
//
//	applog.Info("ws.connected", "remote", addr)
//	applog.Info("history.upsert", "tab", 5, "size", 3)
func Info(event string, kv ...any) {
	write(slog.LevelInfo, event, nil, kv)
}

// Error logs an event with an error.
//
//	applog.Error("ws.send", err, "action", "tabs.get")
func Error(event string, err error, kv ...any) {
	write(slog.LevelError, event, err, kv)
}

func write(level slog.Level, event string, err error, kv []any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l == nil {
		return
	}

	attrs := make([]any, 0, len(kv)+2)
	if err != nil {
		attrs = append(attrs, slog.String("err", truncate(err.Error())))
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if s, ok := kv[i+1].(string); ok {
			attrs = append(attrs, slog.String(key, truncate(s)))
			continue
		}
		attrs = append(attrs, slog.Any(key, kv[i+1]))
	}
	l.Log(context.Background(), level, event, attrs...)
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func truncate(s string) string {
	if len(s) > maxValueLen {
		return s[:maxValueLen] + truncSuffix
	}
	return s
}
