// Package engine drives one metadata extraction: it reads the input through
// an execution bridge, feeds the demuxer and assembles the result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mohaanymo/gpmfx/internal/bridge"
	"github.com/mohaanymo/gpmfx/internal/config"
	"github.com/mohaanymo/gpmfx/internal/demux"
	"github.com/mohaanymo/gpmfx/internal/httpclient"
	"github.com/mohaanymo/gpmfx/internal/metrics"
	"github.com/mohaanymo/gpmfx/internal/models"
	"github.com/mohaanymo/gpmfx/internal/source"
)

// Engine is the extraction orchestrator. It is safe for concurrent use;
// every call builds its own bridge, demuxer and state machine.
type Engine struct {
	cfg      *config.Config
	client   *http.Client
	registry *source.Registry
	log      logrus.FieldLogger
	metrics  *metrics.Collector

	// Pluggable components
	newBackground bridge.Factory
	newInline     bridge.Factory
	newDemuxer    DemuxerFactory
	ram           bridge.MemoryFunc
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithBridges replaces the bridge constructors.
func WithBridges(background, inline bridge.Factory) Option {
	return func(e *Engine) {
		if background != nil {
			e.newBackground = background
		}
		if inline != nil {
			e.newInline = inline
		}
	}
}

// WithDemuxer replaces the demuxer constructor.
func WithDemuxer(f DemuxerFactory) Option {
	return func(e *Engine) { e.newDemuxer = f }
}

// WithMemoryFunc replaces the host memory query used to size fallback reads.
func WithMemoryFunc(f bridge.MemoryFunc) Option {
	return func(e *Engine) { e.ram = f }
}

// New creates an Engine. cfg must be valid.
func New(cfg *config.Config, opts ...Option) *Engine {
	client := httpclient.New(httpclient.Config{HeaderTimeout: cfg.HTTPTimeout})
	registry := source.NewRegistry(client, cfg.MaxBandwidth)

	e := &Engine{
		cfg:           cfg,
		client:        client,
		registry:      registry,
		log:           logrus.StandardLogger(),
		newBackground: bridge.WorkerFactory(registry, bridge.DefaultBuffer),
		newInline:     bridge.InlineFactory(registry),
		newDemuxer:    DefaultDemuxer,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the input strategies used by the engine.
func (e *Engine) Registry() *source.Registry {
	return e.registry
}

// Hooks are per-call callbacks.
type Hooks struct {
	Progress func(percent int)
	Cancel   *models.CancelToken
}

// Extract runs one extraction to completion.
func (e *Engine) Extract(ctx context.Context, in source.Input, hooks Hooks) (*models.Outcome, error) {
	start := time.Now()
	log := e.log.WithField("run", uuid.NewString())

	out, err := e.extract(ctx, log, in, hooks)

	result := metrics.ResultSuccess
	switch {
	case errors.Is(err, ErrCanceled):
		result = metrics.ResultCancel
	case err != nil:
		result = metrics.ResultFailure
	}
	e.metrics.ObserveExtraction(result, time.Since(start))

	if err != nil {
		log.WithError(err).Debug("extraction failed")
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"bytes":   len(out.RawData),
		"samples": len(out.Timing.Samples),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("extraction finished")
	return out, nil
}

func (e *Engine) extract(ctx context.Context, log logrus.FieldLogger, in source.Input, hooks Hooks) (*models.Outcome, error) {
	if in == nil {
		return nil, ErrInputNotProvided
	}

	mcfg := machineConfig{
		Codec:    e.cfg.Codec,
		Location: e.cfg.Location,
		Cancel:   hooks.Cancel,
		Progress: hooks.Progress,
		Log:      log,
		OnAppend: e.metrics.AddBytes,
	}

	if p, ok := in.(source.Push); ok {
		return e.extractPush(ctx, p, mcfg)
	}
	if !e.registry.Supports(in) {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedEnvironment, in)
	}

	r := &run{engine: e, log: log, input: in}
	mcfg.Terminate = r.terminate
	r.m = newMachine(ctx, mcfg, e.newDemuxer)
	defer r.close()

	r.m.Start()
	if e.cfg.UseBackground {
		r.startBackground()
	} else {
		if err := r.startInline(); err != nil {
			return nil, err
		}
	}
	return r.drive(ctx)
}

// run is the I/O side of one extraction: the current bridge and the
// single allowed fallback.
type run struct {
	engine   *Engine
	log      logrus.FieldLogger
	input    source.Input
	m        *machine
	b        bridge.Bridge
	fellBack bool
	// reading is set once a bridge accepted the read. Until then the
	// input is untouched and a restart needs no rewind.
	reading bool
}

func (r *run) startBackground() {
	b, err := r.engine.newBackground()
	if err != nil {
		r.fallback(err)
		return
	}
	r.b = b
	if err := b.Post(bridge.ReadBlock{Input: r.input, ChunkSize: r.engine.cfg.ChunkSize}); err != nil {
		r.fallback(err)
		return
	}
	r.reading = true
}

func (r *run) startInline() error {
	b, err := r.engine.newInline()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBridgeFault, err)
	}
	r.b = b
	size := bridge.FallbackChunkSize(r.engine.cfg.FallbackChunkSize, r.engine.ram)
	if err := b.Post(bridge.ReadBlock{Input: r.input, ChunkSize: size}); err != nil {
		return fmt.Errorf("%w: %v", ErrBridgeFault, err)
	}
	r.reading = true
	return nil
}

// fallback tears the bridge down and restarts the read inline from
// offset 0 with a fresh demuxer. The input is only rewound if the failed
// bridge started reading it. The second fault is fatal.
func (r *run) fallback(cause error) {
	if r.fellBack {
		r.m.abort(fmt.Errorf("%w: %v", ErrBridgeFault, cause))
		return
	}
	r.fellBack = true
	r.engine.metrics.Fallback()
	r.log.WithError(cause).Warn("background read failed, reading in context")

	r.close()
	if r.reading {
		if err := source.Rewind(r.input); err != nil {
			r.m.fail(fmt.Errorf("%w: %v (restart: %v)", ErrBridgeFault, cause, err))
			return
		}
		r.reading = false
	}
	r.m.Restart(r.engine.newDemuxer)
	if err := r.startInline(); err != nil {
		r.m.fail(err)
	}
}

// drive pumps bridge messages into the machine until it is done.
func (r *run) drive(ctx context.Context) (*models.Outcome, error) {
	for !r.m.Done() {
		msg, err := r.b.Receive(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			r.m.abort(ErrCanceled)
			continue
		case errors.Is(err, io.EOF):
			r.m.OnEnd()
			continue
		case err != nil:
			r.fallback(err)
			continue
		}

		switch msg.Kind {
		case bridge.KindChunk:
			r.m.OnChunk(msg.Chunk)
		case bridge.KindProgress:
			r.m.OnProgress(msg.Percent)
		case bridge.KindFlush:
			r.m.OnFlush()
		case bridge.KindError:
			r.m.OnSourceError(msg.Err)
		case bridge.KindFault:
			r.fallback(msg.Fault)
		}
	}
	return r.m.Result()
}

func (r *run) terminate(reason error) {
	if r.b != nil {
		r.b.Post(bridge.Terminate{Reason: reason})
	}
}

func (r *run) close() {
	if r.b != nil {
		r.b.Close()
		r.b = nil
	}
}

// Inspect reads only as far as the container header and returns its tracks.
func (e *Engine) Inspect(ctx context.Context, in source.Input) ([]*models.Track, error) {
	if in == nil {
		return nil, ErrInputNotProvided
	}
	if !e.registry.Supports(in) {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedEnvironment, in)
	}
	rd, err := e.registry.Open(ctx, in, e.cfg.FallbackChunkSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	tracks, err := demux.Inspect(ctx, rd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDemuxer, err)
	}
	return tracks, nil
}
