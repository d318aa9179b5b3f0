// Package logging builds the process-wide zap logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output is the logger's destination. It can be redirected while a
// terminal view owns stderr.
type Output struct {
	mu sync.Mutex
	w  io.Writer
}

func NewOutput(w io.Writer) *Output {
	return &Output{w: w}
}

func (o *Output) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.w.Write(p)
}

// Sync flushes the current writer when it supports it.
func (o *Output) Sync() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.w.(zapcore.WriteSyncer); ok {
		return s.Sync()
	}
	return nil
}

// Redirect sends entries to w until restore is called.
func (o *Output) Redirect(w io.Writer) (restore func()) {
	o.mu.Lock()
	prev := o.w
	o.w = w
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		o.w = prev
		o.mu.Unlock()
	}
}

// New returns a console-encoded logger writing to stderr. debug forces the
// debug level regardless of level.
func New(level string, debug bool) (*zap.Logger, error) {
	return NewWithOutput(level, debug, NewOutput(os.Stderr))
}

// NewWithOutput is New writing to out.
func NewWithOutput(level string, debug bool, out *Output) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if debug {
		lvl = zapcore.DebugLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), out, zap.NewAtomicLevelAt(lvl))
	opts := []zap.Option{zap.AddCaller(), zap.ErrorOutput(out)}
	if debug {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(core, opts...), nil
}

// ParseLevel maps debug, info, warn and error onto zap levels. Empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}
