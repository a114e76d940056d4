package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const queryStartKey = "otel_timing:start"

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // Keep bind variables in db.statement
	SlowQueryThresh time.Duration // Default: 200ms
	DBName          string
	TracerProvider  trace.TracerProvider // Defaults to the global provider
}

// DBTracingPlugin installs otelgorm and annotates its spans with row counts
// and slow query markers.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBName == "" {
		cfg.DBName = "postgresql"
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type registrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

// Register installs the plugin on db. It is a no-op when tracing is disabled.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if p.config.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.config.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	// The annotating callbacks must run before otelgorm ends the span.
	cb := db.Callback()
	hooks := []struct {
		name string
		at   registrar
		fn   func(*gorm.DB)
	}{
		{"otel_timing:before_create", cb.Create().Before("gorm:create"), markStart},
		{"otel_timing:before_query", cb.Query().Before("gorm:query"), markStart},
		{"otel_timing:before_update", cb.Update().Before("gorm:update"), markStart},
		{"otel_timing:before_delete", cb.Delete().Before("gorm:delete"), markStart},
		{"otel_timing:before_row", cb.Row().Before("gorm:row"), markStart},
		{"otel_timing:before_raw", cb.Raw().Before("gorm:raw"), markStart},
		{"otel_timing:after_create", cb.Create().After("gorm:create").Before("otel:after:create"), p.annotate},
		{"otel_timing:after_query", cb.Query().After("gorm:query").Before("otel:after:query"), p.annotate},
		{"otel_timing:after_update", cb.Update().After("gorm:update").Before("otel:after:update"), p.annotate},
		{"otel_timing:after_delete", cb.Delete().After("gorm:delete").Before("otel:after:delete"), p.annotate},
		{"otel_timing:after_row", cb.Row().After("gorm:row").Before("otel:after:row"), p.annotate},
		{"otel_timing:after_raw", cb.Raw().After("gorm:raw").Before("otel:after:raw"), p.annotate},
	}
	for _, h := range hooks {
		if err := h.at.Register(h.name, h.fn); err != nil {
			return err
		}
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func markStart(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	v, ok := db.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		p.logger.Warn("Slow query",
			zap.String("table", db.Statement.Table),
			zap.Duration("elapsed", elapsed),
		)
	}
}
