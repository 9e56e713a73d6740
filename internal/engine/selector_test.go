package engine

import (
	"errors"
	"testing"

	"github.com/mohaanymo/gpmfx/internal/models"
)

// createTestTracks creates a camera-like set of tracks for testing
func createTestTracks() []*models.Track {
	return []*models.Track{
		{ID: 1, Type: models.TrackVideo, Codec: "avc1", Name: "GoPro AVC  ", Width: 1920, Height: 1080, SampleCount: 600},
		{ID: 2, Type: models.TrackAudio, Codec: "mp4a", Name: "GoPro AAC  ", SampleCount: 940},
		{ID: 3, Type: models.TrackMetadata, Codec: "tmcd", Name: "GoPro TCD  ", SampleCount: 1},
		{ID: 4, Type: models.TrackMetadata, Codec: "gpmd", Name: "GoPro MET", SampleCount: 20},
		{ID: 5, Type: models.TrackVideo, Codec: "avc1", Name: "GoPro LRV", Width: 864, Height: 480, SampleCount: 600},
	}
}

func TestTrackSelectorCategories(t *testing.T) {
	ts := NewTrackSelector(createTestTracks(), "gpmd")

	if len(ts.Metadata) != 1 || ts.Metadata[0].ID != 4 {
		t.Errorf("Metadata = %v, want track 4", ts.Metadata)
	}
	if len(ts.Videos) != 2 {
		t.Errorf("got %d videos, want 2", len(ts.Videos))
	}
	if len(ts.Others) != 2 {
		t.Errorf("got %d others, want 2", len(ts.Others))
	}
}

func TestSelectTracks(t *testing.T) {
	tests := []struct {
		name      string
		tracks    []*models.Track
		codec     string
		wantMeta  uint32
		wantVideo uint32 // 0 = none
		wantErr   error
	}{
		{
			name:      "camera file",
			tracks:    createTestTracks(),
			codec:     "gpmd",
			wantMeta:  4,
			wantVideo: 1,
		},
		{
			name:      "codec is case-insensitive",
			tracks:    createTestTracks(),
			codec:     "GPMD",
			wantMeta:  4,
			wantVideo: 1,
		},
		{
			name:      "other codec",
			tracks:    createTestTracks(),
			codec:     "tmcd",
			wantMeta:  3,
			wantVideo: 1,
		},
		{
			name: "first metadata track wins",
			tracks: []*models.Track{
				{ID: 7, Codec: "gpmd"},
				{ID: 8, Codec: "gpmd"},
			},
			codec:    "gpmd",
			wantMeta: 7,
		},
		{
			name: "video by handler name",
			tracks: []*models.Track{
				{ID: 1, Codec: "gpmd"},
				{ID: 2, Codec: "xxxx", Name: models.VideoHandlerName},
			},
			codec:     "gpmd",
			wantMeta:  1,
			wantVideo: 2,
		},
		{
			name: "video by height",
			tracks: []*models.Track{
				{ID: 1, Type: models.TrackAudio, Codec: "mp4a"},
				{ID: 2, Codec: "xxxx", Height: 720},
				{ID: 3, Codec: "gpmd"},
			},
			codec:     "gpmd",
			wantMeta:  3,
			wantVideo: 2,
		},
		{
			name:    "no metadata track",
			tracks:  createTestTracks()[:3],
			codec:   "gpmd",
			wantErr: ErrTrackNotFound,
		},
		{
			name:    "no tracks",
			codec:   "gpmd",
			wantErr: ErrTrackNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, video, err := SelectTracks(tt.tracks, tt.codec)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if meta.ID != tt.wantMeta {
				t.Errorf("meta = %d, want %d", meta.ID, tt.wantMeta)
			}
			switch {
			case tt.wantVideo == 0 && video != nil:
				t.Errorf("video = %d, want none", video.ID)
			case tt.wantVideo != 0 && (video == nil || video.ID != tt.wantVideo):
				t.Errorf("video = %v, want %d", video, tt.wantVideo)
			}
		})
	}
}
