package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mohaanymo/gpmfx/internal/mp4test"
	"github.com/mohaanymo/gpmfx/internal/source"
)

func TestInputFor(t *testing.T) {
	require.Equal(t, source.URL{Address: "https://cam.local/DCIM/GX010001.MP4"}, inputFor("https://cam.local/DCIM/GX010001.MP4"))
	require.Equal(t, source.Path{Name: "GX010001.MP4"}, inputFor("GX010001.MP4"))

	require.Equal(t, "GX010001", baseNameFor("https://cam.local/DCIM/GX010001.MP4?x=1"))
	require.Equal(t, "GX010002", baseNameFor("/media/GX010002.MP4"))
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "GX010001.MP4")
	require.NoError(t, os.WriteFile(in, mp4test.GoPro(8).Bytes(), 0644))
	out := filepath.Join(dir, "out")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"extract", in, "-o", out, "--no-progress", "--log-level", "error"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	require.Contains(t, buf.String(), "✓ "+in)
	raw, err := os.ReadFile(filepath.Join(out, "GX010001.gpmf"))
	require.NoError(t, err)
	require.Equal(t, mp4test.GoPro(8).Track(3).Payload(), raw)
	require.FileExists(t, filepath.Join(out, "GX010001.timing.json"))

	buf.Reset()
	rootCmd.SetArgs([]string{"tracks", in, "--no-progress"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	require.Contains(t, buf.String(), "[extract]")
	require.Contains(t, buf.String(), "gpmd")
}
