package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormLogger adapts a logrus logger to GORM's logger.Interface
type gormLogger struct {
	log    logrus.FieldLogger
	level  logger.LogLevel
	config LoggingConfig
}

// NewGormLogger creates a GORM logger that writes through logrus
func NewGormLogger(log logrus.FieldLogger, config LoggingConfig) logger.Interface {
	return &gormLogger{
		log:    log,
		level:  getLogLevel(config.Level),
		config: config,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		l.log.Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		l.log.Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		l.log.Errorf(msg, data...)
	}
}

// Trace logs failed, slow and (optionally) all statements
func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	slow := l.config.LogSlowQueries && l.config.SlowQueryThreshold > 0 && elapsed > l.config.SlowQueryThreshold

	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.fields(sql, rows, elapsed).WithError(err).Error("query failed")
	case slow && l.level >= logger.Warn:
		sql, rows := fc()
		l.fields(sql, rows, elapsed).Warn("slow query")
	case l.config.LogQueries && l.level >= logger.Info:
		sql, rows := fc()
		l.fields(sql, rows, elapsed).Debug("query")
	}
}

// ParamsFilter hides bound values from logged SQL unless explicitly enabled
func (l *gormLogger) ParamsFilter(_ context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if l.config.LogQueryParameters {
		return sql, params
	}
	return sql, nil
}

func (l *gormLogger) fields(sql string, rows int64, elapsed time.Duration) logrus.FieldLogger {
	return l.log.WithFields(logrus.Fields{
		"sql":      sql,
		"rows":     rows,
		"duration": elapsed.String(),
	})
}

func getLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "info", "debug":
		return logger.Info
	case "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Error
	}
}
