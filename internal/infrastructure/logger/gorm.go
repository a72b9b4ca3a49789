package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultMaxSQLLength = 2048

// GormLogger writes GORM statements to zap with the request and tenant of
// the calling request attached.
//
// Constraint violations are logged as warnings, not errors: the ledger
// relies on unique indexes to turn away duplicate orders, double-claimed
// commissions and replayed bank rows, so they are expected outcomes.
type GormLogger struct {
	log          *zap.Logger
	level        gormlogger.LogLevel
	slow         time.Duration
	maxSQLLength int
	logNotFound  bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold marks statements slower than d. Zero disables it.
func WithSlowThreshold(d time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slow = d }
}

// WithMaxSQLLength truncates logged statements. Bulk inserts of journal
// lines and bank rows otherwise produce very large records.
func WithMaxSQLLength(n int) GormLoggerOption {
	return func(l *GormLogger) { l.maxSQLLength = n }
}

// WithRecordNotFound logs lookups that found nothing
func WithRecordNotFound() GormLoggerOption {
	return func(l *GormLogger) { l.logNotFound = true }
}

// NewGormLogger creates a GORM logger backed by log
func NewGormLogger(log *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		log:          log.Named("gorm"),
		level:        level,
		slow:         200 * time.Millisecond,
		maxSQLLength: defaultMaxSQLLength,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.log.Sugar().Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Sugar().Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.log.Sugar().Errorf(msg, data...)
	}
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if errors.Is(err, gormlogger.ErrRecordNotFound) && !l.logNotFound {
		return
	}

	elapsed := time.Since(begin)
	fields := func() []zap.Field {
		sql, rows := fc()
		if l.maxSQLLength > 0 && len(sql) > l.maxSQLLength {
			sql = sql[:l.maxSQLLength] + "..."
		}
		fs := []zap.Field{
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", rows),
			zap.String("sql", sql),
		}
		if id := GetRequestID(ctx); id != "" {
			fs = append(fs, zap.String("request_id", id))
		}
		if id := GetTenantID(ctx); id != "" {
			fs = append(fs, zap.String("tenant_id", id))
		}
		return fs
	}

	switch {
	case err != nil && isConstraintViolation(err) && l.level >= gormlogger.Warn:
		l.log.Warn("SQL constraint rejected statement", append(fields(), zap.Error(err))...)
	case err != nil && l.level >= gormlogger.Error:
		l.log.Error("SQL Error", append(fields(), zap.Error(err))...)
	case err == nil && l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		l.log.Warn("SLOW SQL >= "+l.slow.String(), fields()...)
	case err == nil && l.level >= gormlogger.Info:
		l.log.Debug("SQL Query", fields()...)
	}
}

func isConstraintViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated)
}

// MapGormLogLevel maps the process log level to a GORM level. Statements
// are only traced when the process logs at debug.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
