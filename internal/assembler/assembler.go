// Package assembler turns delivered samples into one payload buffer and
// its timing record.
package assembler

import (
	"errors"
	"fmt"
	"time"

	"github.com/mohaanymo/gpmfx/internal/models"
)

// Errors returned by Assemble. No partial output is produced.
var (
	ErrSampleCount = errors.New("sample count mismatch")
	ErrTimescale   = errors.New("zero timescale")
	ErrSampleSize  = errors.New("sample size mismatch")
)

// Input gathers what Assemble needs.
type Input struct {
	// Meta is the extracted track, Video the optional reference video track.
	Meta  *models.Track
	Video *models.Track

	Samples []*models.Sample

	// Location is the zone whose offset corrects the start time. Defaults to time.Local.
	Location *time.Location
}

// Assemble concatenates sample payloads in delivery order and derives timing.
func Assemble(in Input) (*models.Outcome, error) {
	if in.Meta == nil {
		return nil, errors.New("no metadata track")
	}
	if len(in.Samples) != in.Meta.SampleCount {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSampleCount, len(in.Samples), in.Meta.SampleCount)
	}

	var total int
	for _, s := range in.Samples {
		if s.Timescale == 0 {
			return nil, fmt.Errorf("%w: sample %d", ErrTimescale, s.Number)
		}
		if int(s.Size) != len(s.Data) {
			return nil, fmt.Errorf("%w: sample %d has %d bytes, want %d", ErrSampleSize, s.Number, len(s.Data), s.Size)
		}
		total += int(s.Size)
	}

	raw := make([]byte, total)
	timing := models.Timing{
		Samples: make([]models.SampleTiming, 0, len(in.Samples)),
	}

	var pos int
	for _, s := range in.Samples {
		pos += copy(raw[pos:], s.Data)
		timing.Samples = append(timing.Samples, models.SampleTiming{
			CTS:      float64(s.CTS) * 1000 / float64(s.Timescale),
			Duration: float64(s.Duration) * 1000 / float64(s.Timescale),
		})
	}

	if v := in.Video; v != nil {
		timing.VideoDuration = v.MovieSeconds()
		if v.SampleCount > 0 {
			timing.FrameDuration = timing.VideoDuration / float64(v.SampleCount)
		}
	}
	timing.Start = StartTime(in.Meta.Created, in.Location)

	return &models.Outcome{RawData: raw, Timing: timing}, nil
}

// StartTime shifts created by the UTC offset loc had at that instant, so
// a camera clock recorded as local time reads back as the right instant.
func StartTime(created time.Time, loc *time.Location) time.Time {
	if created.IsZero() {
		return created
	}
	if loc == nil {
		loc = time.Local
	}
	_, offset := created.In(loc).Zone()
	return created.Add(time.Duration(offset) * time.Second).UTC()
}
