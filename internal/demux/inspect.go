package demux

import (
	"context"
	"errors"
	"io"

	"github.com/mohaanymo/gpmfx/internal/models"
	"github.com/mohaanymo/gpmfx/internal/source"
)

// trackCollector stops at the header.
type trackCollector struct {
	tracks []*models.Track
	err    error
}

func (c *trackCollector) OnReady(tracks []*models.Track)     { c.tracks = tracks }
func (c *trackCollector) OnSamples(uint32, []*models.Sample) {}
func (c *trackCollector) OnError(err error)                  { c.err = err }

// Inspect reads r until the header is decoded and returns the tracks.
// Only the bytes up to the end of moov are read. r is closed.
func Inspect(ctx context.Context, r source.Reader) ([]*models.Track, error) {
	defer r.Close()

	var c trackCollector
	d := New(&c)
	var offset int64
	for c.tracks == nil && c.err == nil {
		data, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			d.Flush()
			break
		}
		if err != nil {
			return nil, err
		}
		d.Append(data, offset)
		offset += int64(len(data))
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.tracks, nil
}
