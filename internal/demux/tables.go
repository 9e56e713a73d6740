package demux

import (
	"errors"
	"fmt"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/mohaanymo/gpmfx/internal/models"
)

// epoch1904 is the offset between MP4 and Unix timestamps in seconds.
const epoch1904 = 2082844800

var errMissingTables = errors.New("missing sample tables")

// trackFromTrak describes a trak box. movieTimescale comes from mvhd.
func trackFromTrak(trak *mp4.TrakBox, movieTimescale uint32) (*models.Track, error) {
	if trak.Tkhd == nil || trak.Mdia == nil || trak.Mdia.Mdhd == nil {
		return nil, fmt.Errorf("incomplete trak box")
	}

	t := &models.Track{
		ID:             trak.Tkhd.TrackID,
		Created:        fromMP4Time(trak.Tkhd.CreationTime),
		Width:          uint32(trak.Tkhd.Width) >> 16,
		Height:         uint32(trak.Tkhd.Height) >> 16,
		Timescale:      trak.Mdia.Mdhd.Timescale,
		Duration:       trak.Mdia.Mdhd.Duration,
		MovieTimescale: movieTimescale,
		MovieDuration:  trak.Tkhd.Duration,
	}

	if hdlr := trak.Mdia.Hdlr; hdlr != nil {
		t.Type = models.TrackTypeFromHandler(hdlr.HandlerType)
		t.Name = hdlr.Name
	}

	if stbl := sampleTable(trak); stbl != nil {
		if stbl.Stsd != nil && len(stbl.Stsd.Children) > 0 {
			t.Codec = stbl.Stsd.Children[0].Type()
		}
		if stbl.Stsz != nil {
			t.SampleCount = int(stbl.Stsz.SampleNumber)
		}
	}
	return t, nil
}

func sampleTable(trak *mp4.TrakBox) *mp4.StblBox {
	if trak.Mdia == nil || trak.Mdia.Minf == nil {
		return nil
	}
	return trak.Mdia.Minf.Stbl
}

func fromMP4Time(secs uint64) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(int64(secs)-epoch1904, 0).UTC()
}

// layout resolves the position and timing of the first count samples of
// a track from its sample tables. Data is left empty.
func layout(stbl *mp4.StblBox, timescale uint32, count int) ([]*models.Sample, error) {
	if stbl == nil || stbl.Stsz == nil || stbl.Stsc == nil || stbl.Stts == nil {
		return nil, errMissingTables
	}

	var chunkOffsets []int64
	switch {
	case stbl.Stco != nil:
		for _, o := range stbl.Stco.ChunkOffset {
			chunkOffsets = append(chunkOffsets, int64(o))
		}
	case stbl.Co64 != nil:
		for _, o := range stbl.Co64.ChunkOffset {
			chunkOffsets = append(chunkOffsets, int64(o))
		}
	default:
		return nil, errMissingTables
	}

	total := int(stbl.Stsz.SampleNumber)
	if count <= 0 || count > total {
		count = total
	}
	samples := make([]*models.Sample, 0, count)

	// Positions: walk stsc runs over the chunk list.
	entries := stbl.Stsc.Entries
	nr := 0
	for i := 0; i < len(entries) && nr < count; i++ {
		first := int(entries[i].FirstChunk)
		last := len(chunkOffsets)
		if i+1 < len(entries) {
			last = int(entries[i+1].FirstChunk) - 1
		}
		if first < 1 || last > len(chunkOffsets) {
			return nil, fmt.Errorf("stsc entry %d references chunk outside stco", i+1)
		}
		for c := first; c <= last && nr < count; c++ {
			off := chunkOffsets[c-1]
			for s := uint32(0); s < entries[i].SamplesPerChunk && nr < count; s++ {
				nr++
				size := stbl.Stsz.GetSampleSize(nr)
				samples = append(samples, &models.Sample{
					Number:    uint32(nr),
					Offset:    off,
					Size:      size,
					Timescale: timescale,
				})
				off += int64(size)
			}
		}
	}
	if len(samples) < count {
		return nil, fmt.Errorf("sample tables describe %d of %d samples", len(samples), count)
	}

	// Timing: walk stts runs.
	var dts uint64
	idx := 0
	stts := stbl.Stts
	for run := 0; run < len(stts.SampleCount) && idx < count; run++ {
		delta := stts.SampleTimeDelta[run]
		for n := uint32(0); n < stts.SampleCount[run] && idx < count; n++ {
			s := samples[idx]
			s.DTS = dts
			s.CTS = int64(dts)
			s.Duration = delta
			if stbl.Ctts != nil {
				s.CTS += int64(stbl.Ctts.GetCompositionTimeOffset(s.Number))
			}
			dts += uint64(delta)
			idx++
		}
	}
	if idx < count {
		return nil, fmt.Errorf("stts describes %d of %d samples", idx, count)
	}
	return samples, nil
}
