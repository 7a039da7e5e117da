// Package logging provides photocopy's leveled console logger with an
// optional plain-text file sink.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"photocopy/internal/config"
)

// Log levels, lowest first.
const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

// Logger writes timestamped, leveled lines to stdout (errors to stderr) and,
// when configured, appends the uncolored line to a log file. It is safe for
// concurrent use.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	file   *os.File
	level  int

	debug   *color.Color
	info    *color.Color
	success *color.Color
	warn    *color.Color
	errc    *color.Color
}

// NewLogger builds a Logger from cfg: level from LogLevel (debug when
// Verbose), colors from Color, and an append-mode file sink from LogFile.
// Call Close when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	l := New(os.Stdout, os.Stderr, cfg.LogLevel, colorEnabled(cfg.Color))
	if cfg.Verbose {
		l.level = levelDebug
	}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = f
	}
	return l, nil
}

// New returns a Logger writing to out and errOut with no file sink.
func New(out, errOut io.Writer, level string, useColor bool) *Logger {
	l := &Logger{
		out:     out,
		errOut:  errOut,
		level:   parseLevel(level),
		debug:   color.New(color.FgCyan),
		info:    color.New(color.FgBlue),
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		errc:    color.New(color.FgRed),
	}
	for _, c := range []*color.Color{l.debug, l.info, l.success, l.warn, l.errc} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return l
}

// SetOutput redirects console output. The file sink is unaffected.
func (l *Logger) SetOutput(out, errOut io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out, l.errOut = out, errOut
}

// Discard returns a Logger that drops everything. Handy in tests.
func Discard() *Logger {
	return New(io.Discard, io.Discard, "error", false)
}

func colorEnabled(mode config.ColorMode) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" || strings.EqualFold(os.Getenv("TERM"), "dumb") {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func parseLevel(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) line(level int, name string, c *color.Color, text string) {
	if level < l.level {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05")

	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.out
	if level == levelError {
		out = l.errOut
	}
	_, _ = io.WriteString(out, ts+" "+c.Sprint("["+name+"]")+" "+text+"\n")
	if l.file != nil {
		_, _ = io.WriteString(l.file, ts+" ["+name+"] "+text+"\n")
	}
}

// Debugf logs at DEBUG level (cyan); dropped unless the level is debug.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.line(levelDebug, "DEBUG", l.debug, fmt.Sprintf(format, args...))
}

// Infof logs at INFO level (blue).
func (l *Logger) Infof(format string, args ...interface{}) {
	l.line(levelInfo, "INFO", l.info, fmt.Sprintf(format, args...))
}

// Successf logs at INFO level with a green SUCCESS tag.
func (l *Logger) Successf(format string, args ...interface{}) {
	l.line(levelInfo, "SUCCESS", l.success, fmt.Sprintf(format, args...))
}

// Warnf logs at WARN level (yellow).
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.line(levelWarn, "WARN", l.warn, fmt.Sprintf(format, args...))
}

// Errorf logs at ERROR level (red) to the error writer.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.line(levelError, "ERROR", l.errc, fmt.Sprintf(format, args...))
}
