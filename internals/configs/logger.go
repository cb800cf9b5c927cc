package configs

import (
	"context"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// SetupLogger mengatur logrus global (JSON ke stdout, level dari LOG_LEVEL).
func SetupLogger() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})

	level, err := log.ParseLevel(strings.ToLower(GetEnv("LOG_LEVEL", "info")))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// =======================
// GORM LOGGER CUSTOM
// =======================
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormLogger.LogLevel
}

func NewGormLogger() gormLogger.Interface {
	return &GormLogger{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      gormLogger.Warn,
	}
}

func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	cp := *l
	cp.LogLevel = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Info {
		log.Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Warn {
		log.Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Error {
		log.Errorf(msg, data...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	entry := log.WithFields(log.Fields{
		"file":    utils.FileWithLineNum(),
		"elapsed": elapsed.String(),
		"rows":    rows,
	})

	switch {
	case err != nil && l.LogLevel >= gormLogger.Error:
		entry.WithError(err).Errorf("[SQL] %s", sql)
	case elapsed > l.SlowThreshold && l.LogLevel >= gormLogger.Warn:
		entry.Warnf("[SLOW SQL] %s", sql)
	case l.LogLevel >= gormLogger.Info:
		entry.Debugf("[QUERY] %s", sql)
	}
}
