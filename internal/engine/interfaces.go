package engine

import (
	"context"
	"errors"

	"github.com/mohaanymo/gpmfx/internal/demux"
	"github.com/mohaanymo/gpmfx/internal/models"
)

// Extraction failures. Errors returned by Extract wrap exactly one of these.
var (
	ErrInputNotProvided       = errors.New("input not provided")
	ErrTrackNotFound          = errors.New("track not found")
	ErrNotCompatible          = errors.New("file not compatible")
	ErrCanceled               = errors.New("canceled by user")
	ErrDemuxer                = errors.New("demuxer error")
	ErrUnsupportedEnvironment = errors.New("unsupported environment")
	ErrRead                   = errors.New("read error")
	ErrBridgeFault            = errors.New("execution bridge fault")
)

// ProgressUpdate reports the progress of one job of a batch.
type ProgressUpdate struct {
	JobIndex  int
	Percent   int
	Completed bool
	Bytes     int // extracted payload size, set on completion
	Error     error
}

// Demuxer is the incremental container parser driven by the engine.
type Demuxer interface {
	Append(data []byte, offset int64) error
	SetExtractionTarget(trackID uint32, count int) error
	Start()
	Flush() error
}

// DemuxerFactory creates a fresh demuxer reporting to l.
type DemuxerFactory func(l demux.Listener) Demuxer

// DefaultDemuxer is the mp4ff-backed demuxer.
func DefaultDemuxer(l demux.Listener) Demuxer {
	return demux.New(l)
}

// Writer persists an extraction outcome.
type Writer interface {
	Write(ctx context.Context, out *models.Outcome, basePath string) ([]string, error)
}
