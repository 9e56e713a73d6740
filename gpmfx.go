// Package gpmfx extracts the telemetry metadata track (GPMF) embedded in
// MP4 camera recordings.
//
// Basic usage:
//
//	res, err := gpmfx.Extract(ctx, gpmfx.FromPath("GX010001.MP4"),
//		gpmfx.WithProgress(func(p int) { fmt.Printf("\r%3d%%", p) }),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(len(res.RawData), res.Timing.Start)
//
// Only the bytes needed to reach the metadata samples are kept in memory.
// Reading happens on a background goroutine by default and falls back to
// the calling goroutine once if that fails.
package gpmfx

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mohaanymo/gpmfx/internal/config"
	"github.com/mohaanymo/gpmfx/internal/engine"
	"github.com/mohaanymo/gpmfx/internal/logging"
	"github.com/mohaanymo/gpmfx/internal/metrics"
	"github.com/mohaanymo/gpmfx/internal/models"
	"github.com/mohaanymo/gpmfx/internal/source"
)

// Failures returned by Extract and Inspect. Use errors.Is to compare.
var (
	ErrInputNotProvided       = engine.ErrInputNotProvided
	ErrTrackNotFound          = engine.ErrTrackNotFound
	ErrNotCompatible          = engine.ErrNotCompatible
	ErrCanceled               = engine.ErrCanceled
	ErrDemuxer                = engine.ErrDemuxer
	ErrUnsupportedEnvironment = engine.ErrUnsupportedEnvironment
	ErrRead                   = engine.ErrRead
	ErrBridgeFault            = engine.ErrBridgeFault
)

// Input is the file to read. Build one with a From function.
type Input struct {
	src source.Input
}

// FromBytes reads an in-memory file.
func FromBytes(data []byte) Input {
	return Input{src: source.Bytes{Data: data}}
}

// FromPath reads a file from disk.
func FromPath(name string) Input {
	return Input{src: source.Path{Name: name}}
}

// FromFile reads an open file from offset 0. f is not closed.
func FromFile(f *os.File) Input {
	return Input{src: source.File{F: f}}
}

// FromReader reads a stream. size <= 0 means unknown, in which case
// progress is only reported at the end. A reader that is also an
// io.Seeker can be read again if the background read fails.
func FromReader(r io.Reader, size int64) Input {
	return Input{src: source.Stream{R: r, Size: size}}
}

// FromURL streams a remote file over HTTP.
func FromURL(url string, headers map[string]string) Input {
	return Input{src: source.URL{Address: url, Headers: headers}}
}

// Target accepts byte ranges from a FromPush input.
type Target = source.Target

// FromPush lets fn append the file's bytes itself, in order and starting
// at offset 0. Returning without calling Flush ends the input. Progress is
// not reported for pushed input.
func FromPush(fn func(ctx context.Context, t Target) error) Input {
	if fn == nil {
		return Input{src: source.Push{}}
	}
	return Input{src: source.Push{Fn: fn}}
}

// CancelToken cancels an extraction between two chunks.
type CancelToken = models.CancelToken

// Timing and SampleTiming describe the extracted samples. Times are in
// milliseconds, durations of the video in seconds.
type (
	Timing       = models.Timing
	SampleTiming = models.SampleTiming
)

// Result is the extracted track.
type Result struct {
	// RawData is the concatenation of every sample payload in order.
	RawData []byte
	Timing  Timing
}

type options struct {
	cfg      *config.Config
	progress func(int)
	cancel   *CancelToken
	logger   logrus.FieldLogger
	metrics  *metrics.Collector
}

// Option configures one call.
type Option func(*options)

// WithBackground selects whether reading happens on a background goroutine
// (default true).
func WithBackground(on bool) Option {
	return func(o *options) { o.cfg.UseBackground = on }
}

// WithProgress sets a callback receiving non-decreasing percentages.
// It is called from the goroutine running Extract.
func WithProgress(fn func(percent int)) Option {
	return func(o *options) { o.progress = fn }
}

// WithCancel sets a cancellation token.
func WithCancel(t *CancelToken) Option {
	return func(o *options) { o.cancel = t }
}

// WithChunkSize sets the read size of the background read.
func WithChunkSize(n int) Option {
	return func(o *options) { o.cfg.ChunkSize = n }
}

// WithFallbackChunkSize sets the read size used in the calling goroutine.
// It is lowered automatically when the host is short on memory.
func WithFallbackChunkSize(n int) Option {
	return func(o *options) { o.cfg.FallbackChunkSize = n }
}

// WithCodec sets the sample entry code of the track to extract (default "gpmd").
func WithCodec(codec string) Option {
	return func(o *options) { o.cfg.Codec = codec }
}

// WithLocation sets the zone used to correct the capture start time
// (default time.Local).
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.cfg.Location = loc }
}

// WithMaxBandwidth limits reading to bytesPerSec. 0 means unlimited.
func WithMaxBandwidth(bytesPerSec int64) Option {
	return func(o *options) { o.cfg.MaxBandwidth = bytesPerSec }
}

// WithLogger sets the logger. Nothing is logged by default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

// Metrics collects extraction counters. Serve Handler() to expose them.
type Metrics = metrics.Collector

// NewMetrics creates a collector on its own Prometheus registry.
func NewMetrics() *Metrics {
	return metrics.New()
}

// WithMetrics records the call into c.
func WithMetrics(c *Metrics) Option {
	return func(o *options) { o.metrics = c }
}

func newEngine(opts []Option) (*engine.Engine, *options, error) {
	o := &options{cfg: config.New()}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	eng := engine.New(o.cfg, engine.WithLogger(o.logger), engine.WithMetrics(o.metrics))
	return eng, o, nil
}

// Extract reads in and returns its metadata track.
func Extract(ctx context.Context, in Input, opts ...Option) (*Result, error) {
	eng, o, err := newEngine(opts)
	if err != nil {
		return nil, err
	}
	out, err := eng.Extract(ctx, in.src, engine.Hooks{Progress: o.progress, Cancel: o.cancel})
	if err != nil {
		return nil, err
	}
	return &Result{RawData: out.RawData, Timing: out.Timing}, nil
}

// Inspect reads the container header of in and returns its tracks.
func Inspect(ctx context.Context, in Input, opts ...Option) ([]*Track, error) {
	eng, _, err := newEngine(opts)
	if err != nil {
		return nil, err
	}
	tracks, err := eng.Inspect(ctx, in.src)
	if err != nil {
		return nil, err
	}
	out := make([]*Track, len(tracks))
	for i, t := range tracks {
		out[i] = &Track{internal: t}
	}
	return out, nil
}
