// Copyright 2020 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides structured, leveled logging on top of zap. Log calls
// take a message and an even number of key value arguments:
//
//	log.Info("Path refreshed", "dst", dst, "expiry", expiry)
//
// Libraries should prefer the logger attached to the context (see FromCtx)
// over the package level functions.
package log

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync/atomic"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scionproto/scion-client/pkg/private/serrors"
)

// Level of a log entry.
type Level zapcore.Level

const (
	DebugLevel Level = Level(zapcore.DebugLevel)
	InfoLevel  Level = Level(zapcore.InfoLevel)
	ErrorLevel Level = Level(zapcore.ErrorLevel)
)

// Logger describes the logger interface.
type Logger interface {
	New(ctx ...any) Logger
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Enabled(lvl Level) bool
}

type logger struct {
	logger *zap.Logger
}

var root atomic.Pointer[logger]

func init() {
	// Until Setup is called, log to nowhere. Library users that never call
	// Setup must not get unexpected output.
	root.Store(&logger{logger: zap.NewNop()})
}

// Setup configures the root logger according to cfg. It must be called at
// most once, early in main.
func Setup(cfg Config) error {
	cfg.InitDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	lvl, err := zapcore.ParseLevel(cfg.Console.Level)
	if err != nil {
		return serrors.Wrap("parsing console log level", err, "level", cfg.Console.Level)
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch cfg.Console.Format {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		if isatty.IsTerminal(os.Stderr.Fd()) {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(lvl))
	opts := []zap.Option{zap.AddCallerSkip(1)}
	if !cfg.Console.DisableCaller {
		opts = append(opts, zap.AddCaller())
	}
	zl := zap.New(core, opts...)
	root.Store(&logger{logger: zl})
	zap.ReplaceGlobals(zl)
	return nil
}

// Root returns the root logger. It is never nil.
func Root() Logger {
	return root.Load()
}

// New creates a logger with the given context attached.
func New(ctx ...any) Logger {
	return Root().New(ctx...)
}

func (l *logger) New(ctx ...any) Logger {
	return &logger{logger: l.logger.With(convertCtx(ctx)...)}
}

func (l *logger) Debug(msg string, ctx ...any) {
	l.logger.Debug(msg, convertCtx(ctx)...)
}

func (l *logger) Info(msg string, ctx ...any) {
	l.logger.Info(msg, convertCtx(ctx)...)
}

func (l *logger) Error(msg string, ctx ...any) {
	l.logger.Error(msg, convertCtx(ctx)...)
}

func (l *logger) Enabled(lvl Level) bool {
	return l.logger.Core().Enabled(zapcore.Level(lvl))
}

// WithOptions returns a copy of the logger with the zap options applied.
func (l *logger) WithOptions(opts ...zap.Option) Logger {
	return &logger{logger: l.logger.WithOptions(opts...)}
}

// Debug logs at debug level.
func Debug(msg string, ctx ...any) {
	root.Load().logger.Debug(msg, convertCtx(ctx)...)
}

// Info logs at info level.
func Info(msg string, ctx ...any) {
	root.Load().logger.Info(msg, convertCtx(ctx)...)
}

// Error logs at error level.
func Error(msg string, ctx ...any) {
	root.Load().logger.Error(msg, convertCtx(ctx)...)
}

// Flush writes the buffered log entries, if any.
func Flush() {
	_ = root.Load().logger.Sync()
}

// HandlePanic catches panics, logs them with the stack trace and re-panics.
// It must be deferred at the top of every goroutine.
func HandlePanic() {
	if msg := recover(); msg != nil {
		root.Load().logger.Error("Panic", zap.Any("msg", msg),
			zap.ByteString("stack", debug.Stack()))
		Flush()
		panic(msg)
	}
}

// DiscardLogger implements the Logger interface and discards all messages.
type DiscardLogger struct{}

func (d DiscardLogger) New(ctx ...any) Logger      { return d }
func (DiscardLogger) Debug(msg string, ctx ...any) {}
func (DiscardLogger) Info(msg string, ctx ...any)  {}
func (DiscardLogger) Error(msg string, ctx ...any) {}
func (DiscardLogger) Enabled(lvl Level) bool       { return false }

func convertCtx(ctx []any) []zap.Field {
	fields := make([]zap.Field, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			key = fmt.Sprint(ctx[i])
		}
		fields = append(fields, zap.Any(key, ctx[i+1]))
	}
	return fields
}
