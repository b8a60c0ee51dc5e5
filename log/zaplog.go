// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package log

import (
	"context"
	"log/slog"

	"github.com/luxfi/log"
	"go.uber.org/zap"
)

// ZapLogger is a log.Logger backed by a real *zap.Logger, completing the
// interface NoLog only stubs out. engine.NewProductionHandler wires one into
// the engine.Handler it builds.
type ZapLogger struct {
	z     *zap.Logger
	level slog.Level
}

// NewZapLogger wraps z as a log.Logger.
func NewZapLogger(z *zap.Logger) log.Logger {
	return &ZapLogger{z: z}
}

// NewProductionLogger builds a ZapLogger from zap's production config.
func NewProductionLogger() (log.Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(z), nil
}

func (l *ZapLogger) with(ctx []interface{}) *ZapLogger {
	return &ZapLogger{z: l.z.With(toZapFields(ctx)...), level: l.level}
}

func (l *ZapLogger) With(ctx ...interface{}) log.Logger { return l.with(ctx) }
func (l *ZapLogger) New(ctx ...interface{}) log.Logger  { return l.with(ctx) }

func (l *ZapLogger) Log(level slog.Level, msg string, ctx ...interface{}) {
	switch {
	case level >= slog.LevelError:
		l.Error(msg, ctx...)
	case level >= slog.LevelWarn:
		l.Warn(msg, ctx...)
	case level >= slog.LevelInfo:
		l.Info(msg, ctx...)
	default:
		l.Debug(msg, ctx...)
	}
}

func (l *ZapLogger) Trace(msg string, ctx ...interface{}) { l.z.Debug(msg, toZapFields(ctx)...) }
func (l *ZapLogger) Debug(msg string, ctx ...interface{}) { l.z.Debug(msg, toZapFields(ctx)...) }
func (l *ZapLogger) Info(msg string, ctx ...interface{})  { l.z.Info(msg, toZapFields(ctx)...) }
func (l *ZapLogger) Warn(msg string, ctx ...interface{})  { l.z.Warn(msg, toZapFields(ctx)...) }
func (l *ZapLogger) Error(msg string, ctx ...interface{}) { l.z.Error(msg, toZapFields(ctx)...) }
func (l *ZapLogger) Crit(msg string, ctx ...interface{})  { l.z.Error(msg, toZapFields(ctx)...) }

func (l *ZapLogger) WriteLog(level slog.Level, msg string, attrs ...any) {
	l.Log(level, msg, attrs...)
}

func (l *ZapLogger) Enabled(_ context.Context, level slog.Level) bool {
	return level >= l.level
}

func (l *ZapLogger) Handler() slog.Handler { return nil }

func (l *ZapLogger) Fatal(msg string, fields ...zap.Field) { l.z.Fatal(msg, fields...) }
func (l *ZapLogger) Verbo(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }

func (l *ZapLogger) WithFields(fields ...zap.Field) log.Logger {
	return &ZapLogger{z: l.z.With(fields...), level: l.level}
}

func (l *ZapLogger) WithOptions(opts ...zap.Option) log.Logger {
	return &ZapLogger{z: l.z.WithOptions(opts...), level: l.level}
}

func (l *ZapLogger) SetLevel(level slog.Level) { l.level = level }
func (l *ZapLogger) GetLevel() slog.Level      { return l.level }
func (l *ZapLogger) EnabledLevel(lvl slog.Level) bool { return lvl >= l.level }

func (l *ZapLogger) StopOnPanic() {}

func (l *ZapLogger) RecoverAndPanic(f func()) { f() }

func (l *ZapLogger) RecoverAndExit(f, exit func()) {
	defer func() {
		if r := recover(); r != nil {
			l.z.Error("recovered panic", zap.Any("panic", r))
			exit()
		}
	}()
	f()
}

func (l *ZapLogger) Stop() { _ = l.z.Sync() }

func (l *ZapLogger) Write(p []byte) (int, error) {
	l.z.Info(string(p))
	return len(p), nil
}

// toZapFields turns Geth-style alternating key/value pairs into zap.Fields,
// matching the calling convention the Logger interface's Debug/Info/Warn/
// Error methods use throughout the codebase.
func toZapFields(ctx []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, ctx[i+1]))
	}
	return fields
}
