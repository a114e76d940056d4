package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// SQLLogConfig controls what the GORM bridge emits
type SQLLogConfig struct {
	// Level is one of silent, error, warn, info or debug
	Level         string
	SlowThreshold time.Duration
	// LogNotFound reports gorm.ErrRecordNotFound as an error. Mirror lookups
	// miss routinely, so it is off by default.
	LogNotFound bool
}

// SQLLogger routes GORM statements into zap with the request, organization
// and sync job ids carried by the statement context
type SQLLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
	cfg   SQLLogConfig
}

var _ gormlogger.Interface = (*SQLLogger)(nil)

// NewSQLLogger creates the bridge. A zero SlowThreshold disables slow query warnings.
func NewSQLLogger(base *zap.Logger, cfg SQLLogConfig) *SQLLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &SQLLogger{
		log:   base.Named("sql"),
		level: gormLevel(cfg.Level),
		cfg:   cfg,
	}
}

func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *SQLLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zap.InfoLevel, msg, data)
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zap.WarnLevel, msg, data)
}

func (l *SQLLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zap.ErrorLevel, msg, data)
}

func (l *SQLLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	l.log.With(Fields(ctx)...).Sugar().Logf(lvl, msg, data...)
}

// Trace is called once per statement
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	slow := l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold
	notFound := errors.Is(err, gormlogger.ErrRecordNotFound) && !l.cfg.LogNotFound
	failed := err != nil && !notFound

	switch {
	case failed && l.level >= gormlogger.Error:
	case slow && l.level >= gormlogger.Warn:
	case l.level >= gormlogger.Info:
	default:
		return
	}

	sql, rows := fc()
	fields := append(Fields(ctx),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	switch {
	case failed:
		l.log.Error("Query failed", append(fields, zap.Error(err))...)
	case slow:
		l.log.Warn("Slow query", append(fields, zap.Duration("threshold", l.cfg.SlowThreshold))...)
	default:
		l.log.Debug("Query", fields...)
	}
}

func gormLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
