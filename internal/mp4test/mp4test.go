// Package mp4test builds small progressive MP4 files in memory for tests.
package mp4test

import (
	"bytes"
	"encoding/binary"
	"time"
)

// Epoch1904 is the number of seconds between 1904-01-01 and the Unix epoch.
const Epoch1904 = 2082844800

// Track describes one trak to encode.
type Track struct {
	ID        uint32
	Handler   string // hdlr handler type: vide, soun, meta, text
	Name      string // hdlr name
	Codec     string // sample entry type
	Timescale uint32
	Width     uint32
	Height    uint32
	Created   time.Time

	Samples [][]byte
	Delta   uint32 // duration of every sample
	// SamplesPerChunk groups samples into chunks, 1 when zero.
	SamplesPerChunk int
}

// Duration is the media duration in the track timescale.
func (t Track) Duration() uint64 {
	return uint64(t.Delta) * uint64(len(t.Samples))
}

// Payload returns the concatenation of every sample.
func (t Track) Payload() []byte {
	return bytes.Join(t.Samples, nil)
}

func (t Track) chunks() [][][]byte {
	spc := t.SamplesPerChunk
	if spc <= 0 {
		spc = 1
	}
	var out [][][]byte
	for i := 0; i < len(t.Samples); i += spc {
		out = append(out, t.Samples[i:min(i+spc, len(t.Samples))])
	}
	return out
}

// File describes a whole movie.
type File struct {
	Timescale uint32
	Duration  uint64
	Created   time.Time
	Tracks    []Track
	// MoovFirst places moov before mdat (fast start).
	MoovFirst bool
}

// GoPro returns a camera-like file with a video track of 2*n frames, an
// audio track and a gpmd metadata track of n one-second samples.
func GoPro(n int) File {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	video := Track{
		ID: 1, Handler: "vide", Name: "GoPro AVC  ", Codec: "tstv",
		Timescale: 30000, Width: 1920, Height: 1080, Created: created,
		Delta: 15000, SamplesPerChunk: 2,
	}
	for i := 0; i < 2*n; i++ {
		video.Samples = append(video.Samples, bytes.Repeat([]byte{0xAA}, 64))
	}

	audio := Track{
		ID: 2, Handler: "soun", Name: "GoPro AAC  ", Codec: "tsta",
		Timescale: 48000, Created: created, Delta: 48000,
	}
	meta := Track{
		ID: 3, Handler: "meta", Name: "GoPro MET", Codec: "gpmd",
		Timescale: 1000, Created: created, Delta: 1000,
	}
	for i := 0; i < n; i++ {
		audio.Samples = append(audio.Samples, bytes.Repeat([]byte{0xBB}, 32))
		meta.Samples = append(meta.Samples, MetaSample(i))
	}

	return File{
		Timescale: 600,
		Duration:  600 * uint64(n),
		Created:   created,
		Tracks:    []Track{video, audio, meta},
	}
}

// MetaSample returns a deterministic payload of varying size for sample i.
func MetaSample(i int) []byte {
	b := make([]byte, 16+i%7)
	copy(b, "DEVC")
	for j := 4; j < len(b); j++ {
		b[j] = byte(i + j)
	}
	return b
}

// Track returns the track with the given ID.
func (f File) Track(id uint32) Track {
	for _, t := range f.Tracks {
		if t.ID == id {
			return t
		}
	}
	return Track{}
}

// Bytes encodes the file as ftyp, mdat and moov (order per MoovFirst).
func (f File) Bytes() []byte {
	ftyp := box("ftyp", []byte("mp41"), u32(0), []byte("mp41isom"))

	// Chunk offsets depend on where mdat lands, and moov's size does not
	// depend on the offset values, so encode twice.
	moov := f.moov(nil)
	var mdatStart int
	if f.MoovFirst {
		mdatStart = len(ftyp) + len(moov)
	} else {
		mdatStart = len(ftyp)
	}
	payload, offsets := f.mdat(uint32(mdatStart + 8))
	mdat := box("mdat", payload)
	moov = f.moov(offsets)

	if f.MoovFirst {
		return concat(ftyp, moov, mdat)
	}
	return concat(ftyp, mdat, moov)
}

// mdat interleaves chunks of every track and returns the payload and
// each track's chunk offsets.
func (f File) mdat(base uint32) ([]byte, [][]uint32) {
	chunks := make([][][][]byte, len(f.Tracks))
	most := 0
	for i, t := range f.Tracks {
		chunks[i] = t.chunks()
		most = max(most, len(chunks[i]))
	}

	var buf bytes.Buffer
	offsets := make([][]uint32, len(f.Tracks))
	for c := 0; c < most; c++ {
		for i := range f.Tracks {
			if c >= len(chunks[i]) {
				continue
			}
			offsets[i] = append(offsets[i], base+uint32(buf.Len()))
			for _, s := range chunks[i][c] {
				buf.Write(s)
			}
		}
	}
	return buf.Bytes(), offsets
}

func (f File) moov(offsets [][]uint32) []byte {
	children := [][]byte{f.mvhd()}
	for i, t := range f.Tracks {
		var off []uint32
		if offsets != nil {
			off = offsets[i]
		} else {
			off = make([]uint32, len(t.chunks()))
		}
		children = append(children, f.trak(t, off))
	}
	return box("moov", children...)
}

func (f File) mvhd() []byte {
	created := since1904(f.Created)
	return fullBox("mvhd", 0, 0,
		u32(created), u32(created),
		u32(f.Timescale), u32(uint32(f.Duration)),
		u32(0x00010000), u16(0x0100), make([]byte, 10),
		matrix(), make([]byte, 24),
		u32(uint32(len(f.Tracks)+1)),
	)
}

func (f File) trak(t Track, offsets []uint32) []byte {
	created := since1904(t.Created)
	var movieDur uint64
	if t.Timescale > 0 {
		movieDur = t.Duration() * uint64(f.Timescale) / uint64(t.Timescale)
	}

	tkhd := fullBox("tkhd", 0, 3,
		u32(created), u32(created), u32(t.ID), u32(0), u32(uint32(movieDur)),
		make([]byte, 8), u16(0), u16(0), u16(0), u16(0),
		matrix(), u32(t.Width<<16), u32(t.Height<<16),
	)
	mdhd := fullBox("mdhd", 0, 0,
		u32(created), u32(created), u32(t.Timescale), u32(uint32(t.Duration())),
		u16(0x55c4), u16(0),
	)
	hdlr := fullBox("hdlr", 0, 0,
		u32(0), []byte(t.Handler), make([]byte, 12), []byte(t.Name), []byte{0},
	)
	return box("trak", tkhd, box("mdia", mdhd, hdlr, box("minf", t.stbl(offsets))))
}

func (t Track) stbl(offsets []uint32) []byte {
	entry := box(t.Codec, make([]byte, 6), u16(1))
	stsd := fullBox("stsd", 0, 0, u32(1), entry)

	var stts []byte
	if len(t.Samples) > 0 {
		stts = fullBox("stts", 0, 0, u32(1), u32(uint32(len(t.Samples))), u32(t.Delta))
	} else {
		stts = fullBox("stts", 0, 0, u32(0))
	}

	chunks := t.chunks()
	var stscEntries [][]byte
	for i, c := range chunks {
		if i == 0 || len(c) != len(chunks[i-1]) {
			stscEntries = append(stscEntries, u32(uint32(i+1)), u32(uint32(len(c))), u32(1))
		}
	}
	stsc := fullBox("stsc", 0, 0, append([][]byte{u32(uint32(len(stscEntries) / 3))}, stscEntries...)...)

	sizes := [][]byte{u32(0), u32(uint32(len(t.Samples)))}
	for _, s := range t.Samples {
		sizes = append(sizes, u32(uint32(len(s))))
	}
	stsz := fullBox("stsz", 0, 0, sizes...)

	co := [][]byte{u32(uint32(len(offsets)))}
	for _, o := range offsets {
		co = append(co, u32(o))
	}
	stco := fullBox("stco", 0, 0, co...)

	return box("stbl", stsd, stts, stsc, stsz, stco)
}

func since1904(t time.Time) uint32 {
	if t.IsZero() {
		return 0
	}
	return uint32(t.Unix() + Epoch1904)
}

func matrix() []byte {
	return concat(
		u32(0x00010000), u32(0), u32(0),
		u32(0), u32(0x00010000), u32(0),
		u32(0), u32(0), u32(0x40000000),
	)
}

func box(typ string, payload ...[]byte) []byte {
	body := concat(payload...)
	return concat(u32(uint32(8+len(body))), []byte(typ), body)
}

func fullBox(typ string, version byte, flags uint32, payload ...[]byte) []byte {
	vf := u32(uint32(version)<<24 | flags&0xffffff)
	return box(typ, append([][]byte{vf}, payload...)...)
}

func u32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

func u16(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}
