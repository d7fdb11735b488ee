package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger owns the log sink for one run. There is no package-level state:
// main constructs one and hands it to every component that logs.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New opens the append-only log file at path. When enabled is false, or the
// file cannot be opened, records are discarded; a login manager must come up
// even when /var/log is read-only.
func New(path string, enabled bool) *Logger {
	if !enabled || path == "" {
		return Discard()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return Discard()
	}
	_ = os.Chmod(path, 0640)
	h := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &Logger{Logger: slog.New(h), file: f}
}

// Discard returns a logger that drops everything. Used by tests and by
// runs with logging disabled.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (l *Logger) Close() {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}
