// Copyright 2019 ETH Zurich, Anapaya Systems
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

package log

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"
)

type ctxKey struct{}

// CtxWith returns a copy of ctx that carries logger. It replaces a logger
// attached earlier.
func CtxWith(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromCtx returns the logger attached to ctx, or the root logger. If ctx
// carries a tracing span, the entries are also recorded on the span. The
// result is never nil.
func FromCtx(ctx context.Context) Logger {
	if ctx == nil {
		return Root()
	}
	l, ok := ctx.Value(ctxKey{}).(Logger)
	if !ok {
		l = Root()
	}
	if _, traced := l.(spanLogger); traced {
		return l
	}
	span := opentracing.SpanFromContext(ctx)
	if span == nil {
		return l
	}
	// The span logger adds a frame between the caller and zap.
	if o, ok := l.(interface{ WithOptions(...zap.Option) Logger }); ok {
		l = o.WithOptions(zap.AddCallerSkip(1))
	}
	return spanLogger{Logger: l, span: span}
}

// spanLogger writes every entry to the wrapped logger and to the span.
type spanLogger struct {
	Logger
	span opentracing.Span
}

func (s spanLogger) New(ctx ...any) Logger {
	return spanLogger{Logger: s.Logger.New(ctx...), span: s.span}
}

func (s spanLogger) Debug(msg string, ctx ...any) {
	s.Logger.Debug(msg, ctx...)
	s.record("debug", msg, ctx)
}

func (s spanLogger) Info(msg string, ctx ...any) {
	s.Logger.Info(msg, ctx...)
	s.record("info", msg, ctx)
}

func (s spanLogger) Error(msg string, ctx ...any) {
	s.Logger.Error(msg, ctx...)
	s.record("error", msg, ctx)
}

func (s spanLogger) record(lvl, msg string, ctx []any) {
	s.span.LogKV(append([]any{"level", lvl, "event", msg}, ctx...)...)
}
