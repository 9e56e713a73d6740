package engine

import (
	"fmt"
	"strings"

	"github.com/mohaanymo/gpmfx/internal/models"
)

// TrackSelector categorizes the tracks of a file, preserving their order.
type TrackSelector struct {
	Metadata []*models.Track // tracks carrying the wanted codec
	Videos   []*models.Track // video-like tracks without it
	Others   []*models.Track
}

// NewTrackSelector categorizes tracks by codec and type.
func NewTrackSelector(tracks []*models.Track, codec string) *TrackSelector {
	ts := &TrackSelector{}
	for _, t := range tracks {
		switch {
		case t.HasCodec(codec):
			ts.Metadata = append(ts.Metadata, t)
		case t.IsVideo():
			ts.Videos = append(ts.Videos, t)
		default:
			ts.Others = append(ts.Others, t)
		}
	}
	return ts
}

// Meta returns the first metadata track, or nil.
func (ts *TrackSelector) Meta() *models.Track {
	if len(ts.Metadata) == 0 {
		return nil
	}
	return ts.Metadata[0]
}

// Video returns the first video-like track, or nil.
func (ts *TrackSelector) Video() *models.Track {
	if len(ts.Videos) == 0 {
		return nil
	}
	return ts.Videos[0]
}

// SelectTracks picks the metadata track and the reference video track.
// The video track is optional.
func SelectTracks(tracks []*models.Track, codec string) (meta, video *models.Track, err error) {
	ts := NewTrackSelector(tracks, codec)
	if meta = ts.Meta(); meta == nil {
		return nil, nil, fmt.Errorf("%w: no %s track among %d", ErrTrackNotFound, strings.TrimSpace(codec), len(tracks))
	}
	return meta, ts.Video(), nil
}
