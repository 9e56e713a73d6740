// Package demux locates tracks and samples in a progressively appended MP4 file.
//
// The container header is decoded with mp4ff once the moov box has been
// received in full. Media bytes are retained only as long as they may hold
// samples of the extraction target.
package demux

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/mohaanymo/gpmfx/internal/models"
)

// Errors reported through Listener.OnError.
var (
	ErrOutOfOrder   = errors.New("appended range is not contiguous")
	ErrNoMovie      = errors.New("no moov box found")
	ErrIncomplete   = errors.New("file ended before all samples were received")
	ErrUnknownTrack = errors.New("unknown track")
	ErrBadBox       = errors.New("invalid box header")
)

// Listener receives demuxer events. Calls are made synchronously from
// Append, Start and Flush.
type Listener interface {
	// OnReady is called once with every track once the header is parsed.
	OnReady(tracks []*models.Track)
	// OnSamples delivers all target samples in one batch.
	OnSamples(trackID uint32, samples []*models.Sample)
	// OnError reports a structural failure. Nothing follows it.
	OnError(err error)
}

// Demuxer is an incremental MP4 demuxer. It is not safe for concurrent use.
type Demuxer struct {
	l Listener

	chunks []models.Chunk // retained, ordered by offset
	next   int64          // offset expected by the next Append

	// Top-level box scan
	scan     int64 // header offset of the next unscanned box
	scanDone bool  // a box running to end of file was reached
	openMoov bool  // moov runs to end of file

	moov   *mp4.MoovBox
	tracks []*models.Track

	target   uint32
	samples  []*models.Sample
	ranges   []span // merged byte ranges of samples
	maxEnd   int64
	armed    bool
	started  bool
	finished bool
}

type span struct{ start, end int64 }

// New creates a demuxer reporting to l.
func New(l Listener) *Demuxer {
	return &Demuxer{l: l}
}

// Tracks returns the tracks found in the header, or nil before OnReady.
func (d *Demuxer) Tracks() []*models.Track {
	return d.tracks
}

// Append feeds the byte range starting at offset. Ranges must be
// contiguous; the first one starts at 0.
func (d *Demuxer) Append(data []byte, offset int64) error {
	if d.finished {
		return nil
	}
	if offset != d.next {
		return d.fail(fmt.Errorf("%w: got offset %d, want %d", ErrOutOfOrder, offset, d.next))
	}
	if len(data) == 0 {
		return nil
	}
	d.next += int64(len(data))

	c := models.Chunk{Data: data, Offset: offset}
	if !d.started || d.wanted(c.Offset, c.End()) {
		d.chunks = append(d.chunks, c)
	}

	if d.moov == nil {
		if err := d.scanBoxes(); err != nil {
			return d.fail(err)
		}
	}
	d.deliver()
	return nil
}

// SetExtractionTarget selects the track whose first count samples are
// delivered after Start. A count <= 0 selects every sample.
func (d *Demuxer) SetExtractionTarget(trackID uint32, count int) error {
	if d.moov == nil {
		return d.fail(ErrNoMovie)
	}
	for _, trak := range d.moov.Traks {
		if trak.Tkhd == nil || trak.Tkhd.TrackID != trackID {
			continue
		}
		samples, err := layout(sampleTable(trak), trak.Mdia.Mdhd.Timescale, count)
		if err != nil {
			return d.fail(fmt.Errorf("track %d: %w", trackID, err))
		}
		d.target = trackID
		d.armed = true
		d.samples = samples
		d.ranges = mergeRanges(samples)
		d.maxEnd = 0
		if n := len(d.ranges); n > 0 {
			d.maxEnd = d.ranges[n-1].end
		}
		return nil
	}
	return d.fail(fmt.Errorf("%w: %d", ErrUnknownTrack, trackID))
}

// Start arms delivery. Samples already received are delivered at once.
func (d *Demuxer) Start() {
	if d.finished || !d.armed {
		return
	}
	d.started = true

	kept := d.chunks[:0]
	for _, c := range d.chunks {
		if d.wanted(c.Offset, c.End()) {
			kept = append(kept, c)
		}
	}
	clear(d.chunks[len(kept):])
	d.chunks = kept

	d.deliver()
}

// Flush signals the end of the file.
func (d *Demuxer) Flush() error {
	if d.finished {
		return nil
	}
	if d.moov == nil && d.openMoov {
		if err := d.decodeMoov(d.scan, d.next-d.scan); err != nil {
			return d.fail(err)
		}
		d.deliver()
		if d.finished {
			return nil
		}
	}
	if d.moov == nil {
		return d.fail(ErrNoMovie)
	}
	if d.started {
		return d.fail(fmt.Errorf("%w: have %d of %d bytes", ErrIncomplete, d.next, d.maxEnd))
	}
	return nil
}

// scanBoxes walks top-level box headers until moov is complete or more
// data is needed.
func (d *Demuxer) scanBoxes() error {
	for !d.scanDone {
		hdr, ok := d.read(d.scan, 8)
		if !ok {
			return nil
		}
		size := int64(binary.BigEndian.Uint32(hdr))
		typ := string(hdr[4:8])
		headerLen := int64(8)

		switch size {
		case 0:
			// Box runs to end of file.
			d.scanDone = true
			d.openMoov = typ == "moov"
			return nil
		case 1:
			ext, ok := d.read(d.scan+8, 8)
			if !ok {
				return nil
			}
			size = int64(binary.BigEndian.Uint64(ext))
			headerLen = 16
		}
		if size < headerLen {
			return fmt.Errorf("%w: %q of size %d at offset %d", ErrBadBox, typ, size, d.scan)
		}

		if typ == "moov" {
			if d.next < d.scan+size {
				return nil
			}
			return d.decodeMoov(d.scan, size)
		}
		d.scan += size
	}
	return nil
}

func (d *Demuxer) decodeMoov(start, size int64) error {
	data, ok := d.read(start, size)
	if !ok {
		return fmt.Errorf("moov at offset %d: data not retained", start)
	}
	if binary.BigEndian.Uint32(data) == 0 {
		// mp4ff needs an explicit size for a box running to end of file.
		binary.BigEndian.PutUint32(data, uint32(size))
	}
	box, err := mp4.DecodeBox(uint64(start), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode moov: %w", err)
	}
	moov, ok := box.(*mp4.MoovBox)
	if !ok {
		return fmt.Errorf("decode moov: unexpected box %s", box.Type())
	}

	var movieTimescale uint32
	if moov.Mvhd != nil {
		movieTimescale = moov.Mvhd.Timescale
	}
	tracks := make([]*models.Track, 0, len(moov.Traks))
	for _, trak := range moov.Traks {
		t, err := trackFromTrak(trak, movieTimescale)
		if err != nil {
			return err
		}
		tracks = append(tracks, t)
	}

	d.moov = moov
	d.tracks = tracks
	d.scanDone = true
	d.l.OnReady(tracks)
	return nil
}

// deliver hands over the target samples once every byte is present.
func (d *Demuxer) deliver() {
	if !d.started || d.finished || d.next < d.maxEnd {
		return
	}
	for _, s := range d.samples {
		data, ok := d.read(s.Offset, int64(s.Size))
		if !ok {
			d.fail(fmt.Errorf("sample %d at offset %d: data not retained", s.Number, s.Offset))
			return
		}
		s.Data = data
	}
	d.finished = true
	d.chunks = nil
	d.l.OnSamples(d.target, d.samples)
}

// wanted reports whether [start, end) intersects a target sample.
func (d *Demuxer) wanted(start, end int64) bool {
	i := sort.Search(len(d.ranges), func(i int) bool { return d.ranges[i].end > start })
	return i < len(d.ranges) && d.ranges[i].start < end
}

// read copies n bytes at off out of the retained chunks.
func (d *Demuxer) read(off, n int64) ([]byte, bool) {
	if n == 0 {
		return []byte{}, true
	}
	i := sort.Search(len(d.chunks), func(i int) bool { return d.chunks[i].End() > off })
	out := make([]byte, 0, n)
	pos := off
	for ; i < len(d.chunks) && pos < off+n; i++ {
		c := d.chunks[i]
		if c.Offset > pos {
			return nil, false
		}
		from := pos - c.Offset
		to := min(int64(len(c.Data)), off+n-c.Offset)
		out = append(out, c.Data[from:to]...)
		pos = c.Offset + to
	}
	if pos < off+n {
		return nil, false
	}
	return out, true
}

func (d *Demuxer) fail(err error) error {
	if d.finished {
		return err
	}
	d.finished = true
	d.chunks = nil
	d.l.OnError(err)
	return err
}

func mergeRanges(samples []*models.Sample) []span {
	spans := make([]span, 0, len(samples))
	for _, s := range samples {
		if s.Size > 0 {
			spans = append(spans, span{s.Offset, s.Offset + int64(s.Size)})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	merged := spans[:0]
	for _, s := range spans {
		if n := len(merged); n > 0 && s.start <= merged[n-1].end {
			merged[n-1].end = max(merged[n-1].end, s.end)
			continue
		}
		merged = append(merged, s)
	}
	return merged
}
