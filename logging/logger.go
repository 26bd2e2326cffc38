// Package logging provides structured logging for tokenberry.
package logging

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/blockberries/tokenberry/types"
)

// Logger is a structured logger wrapping slog.Logger with convenience
// methods for common token-domain logging patterns.
type Logger struct {
	*slog.Logger
}

// New creates a new Logger with the given handler.
func New(handler slog.Handler) *Logger {
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a new Logger with text output format.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}
	return New(slog.NewTextHandler(w, opts))
}

// NewJSONLogger creates a new Logger with JSON output format.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}
	return New(slog.NewJSONHandler(w, opts))
}

// NewDevelopmentLogger creates a logger suitable for development.
// Uses text format with debug level output to stderr.
func NewDevelopmentLogger() *Logger {
	return NewTextLogger(os.Stderr, slog.LevelDebug)
}

// NewProductionLogger creates a logger suitable for production.
// Uses JSON format with info level output to stdout.
func NewProductionLogger() *Logger {
	return NewJSONLogger(os.Stdout, slog.LevelInfo)
}

// NewNopLogger creates a logger that discards all output.
func NewNopLogger() *Logger {
	return New(nopHandler{})
}

// With returns a new Logger with the given attributes added to every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// WithComponent returns a new Logger with a component attribute.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With(Component(name))
}

// WithOperation returns a new Logger with an operation attribute.
func (l *Logger) WithOperation(op string) *Logger {
	return l.With(Operation(op))
}

// Common attribute constructors for token-domain fields.

// Component creates a component attribute for identifying the source module.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Operation creates an operation name attribute.
func Operation(op string) slog.Attr {
	return slog.String("op", op)
}

// Addr creates an address attribute under the given key.
func Addr(key string, a types.Address) slog.Attr {
	return slog.String(key, a.Short())
}

// Sender creates a sender address attribute.
func Sender(a types.Address) slog.Attr {
	return Addr("sender", a)
}

// Recipient creates a recipient address attribute.
func Recipient(a types.Address) slog.Attr {
	return Addr("recipient", a)
}

// Caller creates a caller address attribute.
func Caller(a types.Address) slog.Attr {
	return Addr("caller", a)
}

// Amount creates a token amount attribute.
func Amount(v uint64) slog.Attr {
	return slog.Uint64("amount", v)
}

// Identity creates an identity handle attribute.
func Identity(id types.IdentityID) slog.Attr {
	return slog.String("identity", id.String())
}

// Topic creates a claim topic attribute.
func Topic(t types.ClaimTopic) slog.Attr {
	return slog.Uint64("topic", uint64(t))
}

// Hash creates a hash attribute (hex-encoded).
func Hash(h []byte) slog.Attr {
	return slog.String("hash", hex.EncodeToString(h))
}

// TxHash creates a transaction hash attribute (hex-encoded).
func TxHash(h []byte) slog.Attr {
	return slog.String("tx_hash", hex.EncodeToString(h))
}

// Version creates a state version attribute.
func Version(v int64) slog.Attr {
	return slog.Int64("version", v)
}

// Duration creates a duration attribute in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Float64("duration_ms", float64(d.Nanoseconds())/1e6)
}

// Err creates an error attribute.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// nopHandler discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }

// ParseLevel converts a level string to a slog.Level.
// Unknown strings default to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
