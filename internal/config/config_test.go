package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
		check   func(*testing.T, *Config)
	}{
		{
			name:   "defaults",
			modify: func(*Config) {},
			check: func(t *testing.T, c *Config) {
				require.Equal(t, DefaultChunkSize, c.ChunkSize)
				require.Equal(t, DefaultFallbackChunkSize, c.FallbackChunkSize)
				require.True(t, c.UseBackground)
			},
		},
		{
			name:    "zero chunk size",
			modify:  func(c *Config) { c.ChunkSize = 0 },
			wantErr: ErrInvalidChunkSize,
		},
		{
			name:   "tiny chunk size is clamped",
			modify: func(c *Config) { c.FallbackChunkSize = 10 },
			check: func(t *testing.T, c *Config) {
				require.Equal(t, MinChunkSize, c.FallbackChunkSize)
			},
		},
		{
			name:    "bad codec",
			modify:  func(c *Config) { c.Codec = "gpmf5" },
			wantErr: ErrInvalidCodec,
		},
		{
			name:    "bad log format",
			modify:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: ErrInvalidLogFormat,
		},
		{
			name:   "threads clamped",
			modify: func(c *Config) { c.Threads = 1000 },
			check: func(t *testing.T, c *Config) {
				require.Equal(t, MaxThreads, c.Threads)
			},
		},
		{
			name:   "nil location defaults to local",
			modify: func(c *Config) { c.Location = nil },
			check: func(t *testing.T, c *Config) {
				require.Equal(t, time.Local, c.Location)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			tt.modify(c)
			err := c.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gpmfx.yaml")
	content := []byte(`
use_background: false
codec: gpmd
fallback_chunk_size: 1048576
output_dir: /tmp/out
threads: 2
log_format: json
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.False(t, cfg.UseBackground)
	require.Equal(t, 1048576, cfg.FallbackChunkSize)
	require.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	require.Equal(t, "/tmp/out", cfg.OutputDir)
	require.Equal(t, 2, cfg.Threads)
	require.Equal(t, "json", cfg.LogFormat)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
