// Package logger provides a dual-output logrus logger that writes to both
// stderr and a timestamped log file inside the site's .reqcheck directory.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// StateDir is the per-site directory holding logs and reports.
const StateDir = ".reqcheck"

// Logger writes to both stderr and a log file simultaneously.
type Logger struct {
	*logrus.Logger
	file *os.File
}

// New creates a logger that writes to stderr and to
// <dir>/.reqcheck/logs/check-<ts>.log at the given level.
func New(dir string, level logrus.Level) (*Logger, error) {
	logsDir := filepath.Join(dir, StateDir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}

	ts := time.Now().Format("20060102-150405")
	logPath := filepath.Join(logsDir, fmt.Sprintf("check-%s.log", ts))

	f, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	return &Logger{
		Logger: newLogrus(io.MultiWriter(os.Stderr, f), level),
		file:   f,
	}, nil
}

// NewDiscard returns a logger that drops everything (used before a site dir is known).
func NewDiscard() *Logger {
	return &Logger{Logger: newLogrus(io.Discard, logrus.PanicLevel)}
}

// NewConsole returns a logger that writes to stderr only.
func NewConsole(level logrus.Level) *Logger {
	return &Logger{Logger: newLogrus(os.Stderr, level)}
}

func newLogrus(w io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: true, // the same stream lands in a file
	})
	l.SetLevel(level)
	return l
}

// ParseLevel maps a --log-level value to a logrus level, defaulting to info.
func ParseLevel(s string) logrus.Level {
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// LogPath returns the path of the current log file, or empty string if discarded.
func (l *Logger) LogPath() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// LatestLogPath returns the path to the most recent check log in <dir>.
// Returns "" if no logs exist.
func LatestLogPath(dir string) string {
	logsDir := filepath.Join(dir, StateDir, "logs")
	entries, err := os.ReadDir(logsDir)
	if err != nil || len(entries) == 0 {
		return ""
	}
	// ReadDir returns sorted by name; check-<ts> logs sort chronologically.
	latest := ""
	for _, e := range entries {
		if !e.IsDir() {
			latest = filepath.Join(logsDir, e.Name())
		}
	}
	return latest
}
