// Package models defines core data structures for container tracks and samples.
package models

import (
	"fmt"
	"strings"
	"time"
)

// TrackType represents the kind of stream a track carries.
type TrackType int

const (
	TrackUnknown TrackType = iota
	TrackVideo
	TrackAudio
	TrackMetadata
	TrackSubtitle
)

func (t TrackType) String() string {
	switch t {
	case TrackVideo:
		return "video"
	case TrackAudio:
		return "audio"
	case TrackMetadata:
		return "metadata"
	case TrackSubtitle:
		return "subtitle"
	default:
		return "unknown"
	}
}

// TrackTypeFromHandler maps an hdlr handler type to a TrackType.
func TrackTypeFromHandler(handler string) TrackType {
	switch handler {
	case "vide":
		return TrackVideo
	case "soun":
		return TrackAudio
	case "meta", "data", "tmcd":
		return TrackMetadata
	case "text", "sbtl", "subt", "clcp":
		return TrackSubtitle
	default:
		return TrackUnknown
	}
}

// Track describes one track of a container. It is produced once the
// container header has been parsed and is never modified afterwards.
type Track struct {
	ID          uint32
	Codec       string // sample entry four-character code, e.g. "gpmd", "avc1"
	Type        TrackType
	Name        string // hdlr name
	SampleCount int
	Created     time.Time
	Width       uint32
	Height      uint32

	// Media timing (mdhd)
	Timescale uint32
	Duration  uint64

	// Movie timing: mvhd timescale and the tkhd duration expressed in it
	MovieTimescale uint32
	MovieDuration  uint64
}

// VideoHandlerName is the hdlr name some cameras use for their video track.
const VideoHandlerName = "VideoHandler"

// IsVideo returns true if the track looks like a video track.
func (t *Track) IsVideo() bool {
	if t.Type == TrackVideo {
		return true
	}
	if t.Name == VideoHandlerName {
		return true
	}
	return t.Height > 0
}

// HasCodec returns true if the sample entry matches codec (case-insensitive).
func (t *Track) HasCodec(codec string) bool {
	return strings.EqualFold(strings.TrimSpace(t.Codec), strings.TrimSpace(codec))
}

// MovieSeconds returns the movie duration in seconds, or 0 if unknown.
func (t *Track) MovieSeconds() float64 {
	if t.MovieTimescale == 0 {
		return 0
	}
	return float64(t.MovieDuration) / float64(t.MovieTimescale)
}

// Resolution returns the dimensions as "WxH" (empty for non-visual tracks).
func (t *Track) Resolution() string {
	if t.Width == 0 && t.Height == 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", t.Width, t.Height)
}

func (t *Track) String() string {
	return fmt.Sprintf("track %d (%s, %s, %d samples)", t.ID, t.Type, t.Codec, t.SampleCount)
}
