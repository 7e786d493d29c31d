// Package logger is the process-wide structured logger.
//
// It wraps log/slog with a colored text handler for terminals and the slog
// JSON handler for log shippers. The server configures it once from the
// config file; one-shot CLI commands reconfigure it to stay quiet on stderr.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Config holds logger configuration
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

const (
	formatText = "text"
	formatJSON = "json"
)

var (
	// level is shared by every handler built here, so SetLevel takes
	// effect without rebuilding the logger.
	level = new(slog.LevelVar)

	mu      sync.RWMutex
	out     io.Writer = os.Stdout
	logFile *os.File
	format  = formatText
	color   bool
	current *slog.Logger
)

func init() {
	color = isTerminal(os.Stdout.Fd())
	rebuild()
}

// rebuild swaps in a logger for the current output and format. Callers
// hold mu, except init.
func rebuild() {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if format == formatJSON {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = NewColorTextHandler(out, opts, color)
	}
	current = slog.New(h)
}

// ParseLevel maps DEBUG, INFO, WARN or ERROR (any case) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Init applies cfg. Empty fields keep their current setting. A file output
// is opened for appending and replaces any file opened by an earlier Init.
func Init(cfg Config) error {
	var lvl slog.Level
	if cfg.Level != "" {
		l, err := ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		lvl = l
	}
	f := strings.ToLower(cfg.Format)
	if f != "" && f != formatText && f != formatJSON {
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	mu.Lock()
	defer mu.Unlock()

	if cfg.Output != "" {
		if err := openOutput(cfg.Output); err != nil {
			return err
		}
	}
	if cfg.Level != "" {
		level.Set(lvl)
	}
	if f != "" {
		format = f
	}
	rebuild()
	return nil
}

// openOutput switches to dest. Callers hold mu.
func openOutput(dest string) error {
	var (
		w    io.Writer
		file *os.File
	)
	switch strings.ToLower(dest) {
	case "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", dest, err)
		}
		w, file = f, f
	}

	if logFile != nil {
		_ = logFile.Close()
	}
	out, logFile = w, file
	if f, ok := w.(*os.File); ok && file == nil {
		color = isTerminal(f.Fd())
	} else {
		color = false
	}
	return nil
}

// SetOutput sends logs to w. Tests use it to capture output.
func SetOutput(w io.Writer, enableColor bool) {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	out, color = w, enableColor
	rebuild()
}

// SetLevel sets the minimum log level.
func SetLevel(s string) error {
	l, err := ParseLevel(s)
	if err != nil {
		return err
	}
	level.Set(l)
	return nil
}

// Enabled reports whether records at l are written.
func Enabled(l slog.Level) bool {
	return l >= level.Level()
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func emit(ctx context.Context, l slog.Level, msg string, args []any) {
	if !Enabled(l) {
		return
	}
	if lc := FromContext(ctx); lc != nil {
		args = append(lc.fields(), args...)
	}
	get().Log(ctx, l, msg, args...)
}

// Debug logs at debug level. Usage: Debug("message", "key1", value1, ...)
func Debug(msg string, args ...any) { emit(context.Background(), slog.LevelDebug, msg, args) }

// Info logs at info level.
func Info(msg string, args ...any) { emit(context.Background(), slog.LevelInfo, msg, args) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { emit(context.Background(), slog.LevelWarn, msg, args) }

// Error logs at error level.
func Error(msg string, args ...any) { emit(context.Background(), slog.LevelError, msg, args) }

// DebugCtx logs at debug level, prefixed with the LogContext fields of ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	emit(ctx, slog.LevelDebug, msg, args)
}

// InfoCtx logs at info level with context fields.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	emit(ctx, slog.LevelInfo, msg, args)
}

// WarnCtx logs at warn level with context fields.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	emit(ctx, slog.LevelWarn, msg, args)
}

// ErrorCtx logs at error level with context fields.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	emit(ctx, slog.LevelError, msg, args)
}

// With returns a logger with pre-bound attributes.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

// Duration returns the time since start in milliseconds.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
