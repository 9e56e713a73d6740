package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/mohaanymo/gpmfx/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"WARN", logrus.WarnLevel},
		{"nonsense", logrus.ErrorLevel},
	}

	for _, tt := range tests {
		lc := LogConfig{Level: tt.level}
		logger, err := lc.NewLogger()
		require.NoError(t, err)
		require.Equal(t, tt.expected, logger.GetLevel(), tt.level)
	}
}

func TestNewLoggerFormat(t *testing.T) {
	lc := LogConfig{Format: "json", Level: "info"}
	logger, err := lc.NewLogger()
	require.NoError(t, err)
	require.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	lc.Format = "text"
	logger, err = lc.NewLogger()
	require.NoError(t, err)
	require.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpmfx.log")
	lc := LogConfig{LogPath: path, Level: "info", Format: "text", RotationTime: time.Hour, ReserveDays: 1}
	logger, err := lc.NewLogger()
	require.NoError(t, err)

	logger.WithField("run", "abc").Info("extraction finished")

	matches, err := filepath.Glob(path + "_*")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "extraction finished"))
	require.True(t, strings.Contains(string(data), "run=abc"))
}

func TestFromConfig(t *testing.T) {
	cfg := config.New()
	cfg.LogLevel = "warn"
	require.Equal(t, "warn", FromConfig(cfg).Level)

	cfg.Verbose = true
	lc := FromConfig(cfg)
	require.Equal(t, "debug", lc.Level)
	require.True(t, lc.ReportCaller)
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	require.False(t, logger.IsLevelEnabled(logrus.ErrorLevel))
}
