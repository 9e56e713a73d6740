package models

import (
	"sync/atomic"
	"time"
)

// Chunk is a contiguous range of file bytes starting at Offset.
type Chunk struct {
	Data   []byte
	Offset int64
}

// End returns the offset just past the chunk.
func (c Chunk) End() int64 {
	return c.Offset + int64(len(c.Data))
}

// Sample is one timestamped unit of track payload.
// Timestamps and durations are in Timescale units.
type Sample struct {
	Number    uint32 // 1-based
	DTS       uint64
	CTS       int64
	Duration  uint32
	Timescale uint32
	Offset    int64
	Size      uint32
	Data      []byte
}

// SampleTiming holds a sample's composition time and duration in milliseconds.
type SampleTiming struct {
	CTS      float64 `json:"cts"`
	Duration float64 `json:"duration"`
}

// Timing describes the timing of an extracted metadata track.
type Timing struct {
	// VideoDuration is the duration of the reference video in seconds.
	VideoDuration float64 `json:"videoDuration"`

	// FrameDuration is VideoDuration divided by the video sample count.
	FrameDuration float64 `json:"frameDuration"`

	// Start is the capture start, corrected for the host zone offset.
	Start time.Time `json:"start"`

	Samples []SampleTiming `json:"samples"`
}

// Outcome is the result of a successful extraction.
type Outcome struct {
	RawData []byte
	Timing  Timing
}

// CancelToken is a cooperative cancellation flag shared with the caller.
// It is checked between chunk deliveries, never preemptively.
type CancelToken struct {
	canceled atomic.Bool
}

// Cancel requests cancellation.
func (c *CancelToken) Cancel() {
	c.canceled.Store(true)
}

// Canceled reports whether Cancel has been called. A nil token is never canceled.
func (c *CancelToken) Canceled() bool {
	return c != nil && c.canceled.Load()
}
