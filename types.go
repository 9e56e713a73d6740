package gpmfx

import (
	"time"

	"github.com/mohaanymo/gpmfx/internal/models"
)

// TrackType represents the kind of stream a track carries.
type TrackType int

const (
	TrackUnknown  TrackType = TrackType(models.TrackUnknown)
	TrackVideo    TrackType = TrackType(models.TrackVideo)
	TrackAudio    TrackType = TrackType(models.TrackAudio)
	TrackMetadata TrackType = TrackType(models.TrackMetadata)
	TrackSubtitle TrackType = TrackType(models.TrackSubtitle)
)

func (t TrackType) String() string {
	return models.TrackType(t).String()
}

// Track is one track of a container.
type Track struct {
	internal *models.Track
}

// ID returns the track ID from the container header.
func (t *Track) ID() uint32 {
	return t.internal.ID
}

// Type returns the track type derived from its handler.
func (t *Track) Type() TrackType {
	return TrackType(t.internal.Type)
}

// Codec returns the sample entry code (e.g. "gpmd", "avc1").
func (t *Track) Codec() string {
	return t.internal.Codec
}

// Name returns the handler name (e.g. "GoPro MET").
func (t *Track) Name() string {
	return t.internal.Name
}

// SampleCount returns the number of samples.
func (t *Track) SampleCount() int {
	return t.internal.SampleCount
}

// Width returns the width in pixels (0 for non-visual tracks).
func (t *Track) Width() int {
	return int(t.internal.Width)
}

// Height returns the height in pixels (0 for non-visual tracks).
func (t *Track) Height() int {
	return int(t.internal.Height)
}

// Resolution returns the resolution as "WxH" (empty for non-visual tracks).
func (t *Track) Resolution() string {
	return t.internal.Resolution()
}

// Created returns the creation time recorded in the header, in UTC.
func (t *Track) Created() time.Time {
	return t.internal.Created
}

// Timescale returns the media timescale in units per second.
func (t *Track) Timescale() uint32 {
	return t.internal.Timescale
}

// Duration returns the track duration.
func (t *Track) Duration() time.Duration {
	return time.Duration(t.internal.MovieSeconds() * float64(time.Second))
}

// IsVideo returns true if the track looks like a video track.
func (t *Track) IsVideo() bool {
	return t.internal.IsVideo()
}

// HasCodec returns true if the track carries codec (case-insensitive).
func (t *Track) HasCodec(codec string) bool {
	return t.internal.HasCodec(codec)
}

func (t *Track) String() string {
	return t.internal.String()
}
