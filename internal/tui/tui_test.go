package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/mohaanymo/gpmfx/internal/engine"
	"github.com/mohaanymo/gpmfx/internal/models"
)

func TestModelProgress(t *testing.T) {
	ch := make(chan engine.ProgressUpdate)
	canceled := false
	m := NewModel([]string{"/v/GX010001.MP4", "/v/GX010002.MP4"}, "gpmd", "out", ch, func() { canceled = true })

	updates := []engine.ProgressUpdate{
		{JobIndex: 0, Percent: 40},
		{JobIndex: 0, Percent: 30}, // stale
		{JobIndex: 1, Percent: 100, Error: errors.New("track not found")},
		{JobIndex: 0, Percent: 100, Completed: true, Bytes: 2048},
		{JobIndex: 7, Percent: 10}, // unknown job
	}
	for _, u := range updates {
		m.Update(progressMsg(u))
	}

	require.Equal(t, 100, m.jobs[0].percent)
	require.True(t, m.jobs[0].done)
	require.Error(t, m.jobs[1].err)
	require.Equal(t, 2, m.finished)
	require.Equal(t, 1, m.failed)
	require.Equal(t, int64(2048), m.extracted)

	m.Update(DoneMsg{})
	view := m.View()
	require.Contains(t, view, "GX010001.MP4")
	require.Contains(t, view, "1 of 2 files failed")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.True(t, canceled)
}

func TestTrackTable(t *testing.T) {
	tracks := []*models.Track{
		{ID: 1, Type: models.TrackVideo, Codec: "avc1", Width: 1920, Height: 1080, SampleCount: 600},
		{ID: 2, Type: models.TrackAudio, Codec: "mp4a", SampleCount: 940},
		{ID: 3, Type: models.TrackMetadata, Codec: "gpmd", Name: "GoPro MET", SampleCount: 20},
	}
	tt := NewTrackTable("GX010001.MP4", tracks, "gpmd")

	tt.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	require.Equal(t, 2, tt.cursor)
	tt.Update(tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, 2, tt.cursor)
	tt.Update(tea.KeyMsg{Type: tea.KeyUp})
	require.Equal(t, 1, tt.cursor)

	view := tt.View()
	require.Contains(t, view, "extracts track 3")
	require.Contains(t, view, "1920x1080")

	plain := RenderTracks(tracks, "gpmd")
	lines := strings.Split(strings.TrimSpace(plain), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "[timing]")
	require.Contains(t, lines[2], "[extract]")

	require.Contains(t, NewTrackTable("x", tracks[:2], "gpmd").View(), "no metadata track")
}

func TestFormatHelpers(t *testing.T) {
	require.Equal(t, "512 B", formatBytes(512))
	require.Equal(t, "1.50 KB", formatBytes(1536))
	require.Equal(t, "1m05s", formatDuration(65e9))
	require.Equal(t, "ab...", truncate("abcdefgh", 5))
}

func TestPill(t *testing.T) {
	require.Contains(t, pill(colorAmber, "META"), "META")
	require.Contains(t, pill(colorRed, "FAIL"), "FAIL")
}
