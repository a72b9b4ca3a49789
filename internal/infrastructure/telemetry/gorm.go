package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormConfig selects the instrumentation installed on a gorm.DB
type GormConfig struct {
	// Tracing registers otelgorm spans for every statement
	Tracing bool
	// FullSQL keeps bound variables in traced statements
	FullSQL bool
	// SlowQuery marks and logs statements slower than this; defaults to 200ms
	SlowQuery time.Duration
	DBName    string
}

const startKey = "telemetry:start"

type gormInstruments struct {
	cfg      GormConfig
	logger   *zap.Logger
	duration *Histogram
	errors   *Counter
}

// InstrumentGorm registers statement tracing, query duration and error
// metrics and slow query logging on db. A nil meter skips the metrics.
func InstrumentGorm(db *gorm.DB, cfg GormConfig, meter metric.Meter, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQuery <= 0 {
		cfg.SlowQuery = 200 * time.Millisecond
	}
	if cfg.DBName == "" {
		cfg.DBName = "postgresql"
	}

	if cfg.Tracing {
		opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
		if !cfg.FullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	g := &gormInstruments{cfg: cfg, logger: logger}
	if meter != nil {
		var err error
		if g.duration, err = NewHistogram(meter, HistogramOpts{
			Name:        "db_client_query_duration_seconds",
			Description: "Database statement latency",
			Unit:        "s",
			Boundaries:  DBDurationBuckets,
		}); err != nil {
			return err
		}
		if g.errors, err = NewCounter(meter, "db_client_query_errors_total",
			"Database statements that returned an error", "{statements}"); err != nil {
			return err
		}
	}
	return g.register(db)
}

func (g *gormInstruments) register(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("telemetry:before_create", markStart),
		cb.Create().After("gorm:create").Register("telemetry:after_create", g.after("INSERT")),
		cb.Query().Before("gorm:query").Register("telemetry:before_query", markStart),
		cb.Query().After("gorm:query").Register("telemetry:after_query", g.after("SELECT")),
		cb.Update().Before("gorm:update").Register("telemetry:before_update", markStart),
		cb.Update().After("gorm:update").Register("telemetry:after_update", g.after("UPDATE")),
		cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", markStart),
		cb.Delete().After("gorm:delete").Register("telemetry:after_delete", g.after("DELETE")),
		cb.Row().Before("gorm:row").Register("telemetry:before_row", markStart),
		cb.Row().After("gorm:row").Register("telemetry:after_row", g.after("")),
		cb.Raw().Before("gorm:raw").Register("telemetry:before_raw", markStart),
		cb.Raw().After("gorm:raw").Register("telemetry:after_raw", g.after("")),
	)
}

// after observes a finished statement; an empty operation is read from the SQL
func (g *gormInstruments) after(operation string) func(*gorm.DB) {
	return func(tx *gorm.DB) { g.observe(tx, operation) }
}

func markStart(tx *gorm.DB) {
	tx.InstanceSet(startKey, time.Now())
}

func (g *gormInstruments) observe(tx *gorm.DB, operation string) {
	v, ok := tx.InstanceGet(startKey)
	if !ok {
		return
	}
	elapsed := time.Since(v.(time.Time))
	if operation == "" {
		operation = StatementOperation(tx.Statement.SQL.String())
	}
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	attrs := []attribute.KeyValue{AttrDBOperation.String(operation), AttrDBTable.String(tx.Statement.Table)}

	failed := tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound)
	if g.duration != nil {
		g.duration.RecordDuration(ctx, elapsed, attrs...)
		if failed {
			g.errors.Inc(ctx, attrs...)
		}
	}

	if elapsed < g.cfg.SlowQuery {
		return
	}
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Bool("db.slow_query", true), attribute.Int64("db.duration_ms", elapsed.Milliseconds()))
	}
	g.logger.Warn("Slow query",
		zap.String("operation", operation),
		zap.String("table", tx.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.Duration("threshold", g.cfg.SlowQuery),
	)
}

// StatementOperation returns the leading SQL verb of a statement, or OTHER
func StatementOperation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "OTHER"
	}
	switch verb := strings.ToUpper(fields[0]); verb {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return verb
	case "WITH":
		return "SELECT"
	default:
		return "OTHER"
	}
}
