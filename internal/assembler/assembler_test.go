package assembler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mohaanymo/gpmfx/internal/models"
)

func samples(sizes ...int) []*models.Sample {
	var out []*models.Sample
	for i, n := range sizes {
		data := make([]byte, n)
		for j := range data {
			data[j] = byte(i + 1)
		}
		out = append(out, &models.Sample{
			Number:    uint32(i + 1),
			CTS:       int64(i * 90),
			Duration:  90,
			Timescale: 90,
			Size:      uint32(n),
			Data:      data,
		})
	}
	return out
}

func TestAssemble(t *testing.T) {
	created := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	meta := &models.Track{ID: 3, Codec: "gpmd", SampleCount: 3, Created: created}
	video := &models.Track{ID: 1, SampleCount: 300, MovieTimescale: 1000, MovieDuration: 10010}

	out, err := Assemble(Input{
		Meta:     meta,
		Video:    video,
		Samples:  samples(2, 3, 1),
		Location: time.UTC,
	})
	require.NoError(t, err)

	require.Equal(t, []byte{1, 1, 2, 2, 2, 3}, out.RawData)
	require.Equal(t, []models.SampleTiming{
		{CTS: 0, Duration: 1000},
		{CTS: 1000, Duration: 1000},
		{CTS: 2000, Duration: 1000},
	}, out.Timing.Samples)
	require.InDelta(t, 10.01, out.Timing.VideoDuration, 1e-9)
	require.InDelta(t, 10.01/300, out.Timing.FrameDuration, 1e-12)
	require.True(t, out.Timing.Start.Equal(created))
}

func TestAssembleWithoutVideo(t *testing.T) {
	meta := &models.Track{SampleCount: 1}
	out, err := Assemble(Input{Meta: meta, Samples: samples(4)})
	require.NoError(t, err)
	require.Zero(t, out.Timing.VideoDuration)
	require.Zero(t, out.Timing.FrameDuration)
	require.True(t, out.Timing.Start.IsZero())

	// A video track without samples has a duration but no frame duration.
	video := &models.Track{MovieTimescale: 10, MovieDuration: 25}
	out, err = Assemble(Input{Meta: meta, Video: video, Samples: samples(4)})
	require.NoError(t, err)
	require.InDelta(t, 2.5, out.Timing.VideoDuration, 1e-9)
	require.Zero(t, out.Timing.FrameDuration)
}

func TestAssembleErrors(t *testing.T) {
	meta := &models.Track{SampleCount: 2}

	_, err := Assemble(Input{Meta: meta, Samples: samples(1)})
	require.ErrorIs(t, err, ErrSampleCount)

	bad := samples(1, 1)
	bad[1].Timescale = 0
	_, err = Assemble(Input{Meta: meta, Samples: bad})
	require.ErrorIs(t, err, ErrTimescale)

	bad = samples(1, 1)
	bad[0].Size = 5
	_, err = Assemble(Input{Meta: meta, Samples: bad})
	require.ErrorIs(t, err, ErrSampleSize)

	_, err = Assemble(Input{Samples: samples(1)})
	require.Error(t, err)
}

func TestStartTime(t *testing.T) {
	created := time.Date(2023, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		loc      *time.Location
		expected time.Time
	}{
		{"utc", time.UTC, created},
		{"east", time.FixedZone("east", 2*3600), created.Add(2 * time.Hour)},
		{"west", time.FixedZone("west", -5*3600), created.Add(-5 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StartTime(created, tt.loc)
			require.True(t, got.Equal(tt.expected), "got %s, want %s", got, tt.expected)
			require.Equal(t, time.UTC, got.Location())
		})
	}

	require.True(t, StartTime(time.Time{}, time.UTC).IsZero())
}
