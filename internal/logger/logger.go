package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	logrus "github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"

	"tutorfinder/internal/config"
)

// Setup configures the standard logrus logger from cfg. When cfg.File is set
// the output goes to a rotating file instead of stdout.
func Setup(cfg config.LogConfig) io.Closer {
	var closer io.Closer = nopCloser{}
	var out io.Writer = os.Stdout
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 7,
			MaxAge:     7, // days
			Compress:   true,
		}
		out = rotator
		closer = rotator
	}
	Configure(logrus.StandardLogger(), cfg, out)
	return closer
}

// Configure applies level, format and output to l.
func Configure(l *logrus.Logger, cfg config.LogConfig, out io.Writer) {
	l.SetOutput(out)
	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}
	l.SetLevel(ParseLevel(cfg.Level))
}

// ParseLevel maps a level name to a logrus level, falling back to info.
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// GormLogger returns a gorm logger that writes through the standard logrus logger.
func GormLogger() gormlogger.Interface {
	level := gormlogger.Warn
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		level = gormlogger.Info
	}
	return gormlogger.New(logrus.StandardLogger(), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
