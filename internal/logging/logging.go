// Package logging builds the logrus logger used by the CLI and the engine.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"

	"github.com/mohaanymo/gpmfx/internal/config"
)

// LogConfig describes where and how to log.
type LogConfig struct {
	LogPath      string // empty logs to stderr
	RotationTime time.Duration
	ReserveDays  int
	Level        string
	Format       string
	ReportCaller bool
}

// FromConfig derives a LogConfig from the application config.
func FromConfig(cfg *config.Config) LogConfig {
	lc := LogConfig{
		LogPath:      cfg.LogFile,
		RotationTime: 24 * time.Hour,
		ReserveDays:  7,
		Level:        cfg.LogLevel,
		Format:       cfg.LogFormat,
	}
	if cfg.Verbose {
		lc.Level = "debug"
		lc.ReportCaller = true
	}
	return lc
}

// NewLogger creates a logger. Unknown levels fall back to error.
func (lc *LogConfig) NewLogger() (*logrus.Logger, error) {
	var out io.Writer = os.Stderr
	if lc.LogPath != "" {
		rotationTime := lc.RotationTime
		if rotationTime <= 0 {
			rotationTime = 24 * time.Hour
		}
		logWriter, err := rotatelogs.New(
			lc.LogPath+"_%Y%m%d",
			rotatelogs.WithLinkName(lc.LogPath),
			rotatelogs.WithRotationTime(rotationTime),
			rotatelogs.WithMaxAge(time.Duration(lc.ReserveDays)*24*time.Hour),
		)
		if err != nil {
			return nil, err
		}
		out = logWriter
	}

	logger := logrus.New()
	logger.SetOutput(out)

	switch strings.ToLower(lc.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	}

	if level, err := logrus.ParseLevel(lc.Level); err != nil {
		logger.SetLevel(logrus.ErrorLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.SetReportCaller(lc.ReportCaller)
	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}
