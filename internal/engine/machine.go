package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mohaanymo/gpmfx/internal/assembler"
	"github.com/mohaanymo/gpmfx/internal/models"
)

// State is the lifecycle position of one extraction.
type State int

const (
	StateIdle State = iota
	StateReading
	StateDemuxing
	StateAssembling
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateDemuxing:
		return "demuxing"
	case StateAssembling:
		return "assembling"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further event is honored.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// machineConfig holds what one extraction needs besides I/O.
type machineConfig struct {
	Codec    string
	Location *time.Location
	Cancel   *models.CancelToken
	Progress func(int)

	// Terminate stops the chunk source. It may be called more than once.
	Terminate func(reason error)
	Log       logrus.FieldLogger
	OnAppend  func(n int)
}

// machine is the extraction state machine. It is driven from a single
// goroutine and has one transition function per event. It doubles as the
// demuxer's listener.
type machine struct {
	cfg   machineConfig
	ctx   context.Context
	demux Demuxer

	state   State
	chunks  int
	percent int

	meta  *models.Track
	video *models.Track

	outcome *models.Outcome
	err     error
}

func newMachine(ctx context.Context, cfg machineConfig, newDemuxer DemuxerFactory) *machine {
	if cfg.Progress == nil {
		cfg.Progress = func(int) {}
	}
	if cfg.Terminate == nil {
		cfg.Terminate = func(error) {}
	}
	if cfg.OnAppend == nil {
		cfg.OnAppend = func(int) {}
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	m := &machine{cfg: cfg, ctx: ctx, percent: -1}
	m.demux = newDemuxer(m)
	return m
}

// Start moves Idle to Reading.
func (m *machine) Start() {
	if m.state == StateIdle {
		m.setState(StateReading)
	}
}

// Restart discards everything read so far and reads again with a fresh
// demuxer. Progress already reported is kept so it never goes backwards.
func (m *machine) Restart(newDemuxer DemuxerFactory) {
	if m.state.Terminal() {
		return
	}
	m.chunks = 0
	m.meta, m.video = nil, nil
	m.demux = newDemuxer(m)
	m.setState(StateReading)
}

// Done reports whether the machine reached a terminal state.
func (m *machine) Done() bool {
	return m.state.Terminal()
}

// Result returns the outcome or the failure once Done.
func (m *machine) Result() (*models.Outcome, error) {
	return m.outcome, m.err
}

// OnChunk appends one delivered byte range.
func (m *machine) OnChunk(c models.Chunk) {
	if m.Done() {
		return
	}
	if m.chunks == 0 && len(c.Data) == 0 {
		m.abort(ErrNotCompatible)
		return
	}
	if m.canceled() {
		m.abort(ErrCanceled)
		return
	}

	m.chunks++
	m.cfg.OnAppend(len(c.Data))
	if err := m.demux.Append(c.Data, c.Offset); err != nil {
		m.OnError(err)
	}
}

// OnProgress forwards a source progress value if it moves forward.
func (m *machine) OnProgress(percent int) {
	if m.Done() {
		return
	}
	m.report(percent)
}

// OnFlush handles the end of the input.
func (m *machine) OnFlush() {
	if m.Done() {
		return
	}
	if m.chunks == 0 {
		m.fail(ErrNotCompatible)
		return
	}
	if err := m.demux.Flush(); err != nil {
		m.OnError(err)
	}
	m.OnEnd()
}

// OnEnd is called when the source stops without another terminal event.
func (m *machine) OnEnd() {
	if m.Done() {
		return
	}
	if m.canceled() {
		m.abort(ErrCanceled)
		return
	}
	if m.chunks == 0 {
		m.fail(ErrNotCompatible)
		return
	}
	m.fail(fmt.Errorf("%w: input ended in state %s", ErrNotCompatible, m.state))
}

// OnSourceError handles a read failure.
func (m *machine) OnSourceError(msg string) {
	if m.Done() {
		return
	}
	if m.canceled() {
		m.abort(ErrCanceled)
		return
	}
	m.fail(fmt.Errorf("%w: %s", ErrRead, msg))
}

// OnReady selects the tracks and arms the demuxer.
func (m *machine) OnReady(tracks []*models.Track) {
	if m.Done() {
		return
	}
	meta, video, err := SelectTracks(tracks, m.cfg.Codec)
	if err != nil {
		m.cfg.Log.WithError(err).Debug("no metadata track")
		m.abort(ErrTrackNotFound)
		return
	}
	m.meta, m.video = meta, video
	m.cfg.Log.WithFields(logrus.Fields{
		"track":   meta.ID,
		"samples": meta.SampleCount,
	}).Debug("metadata track found")

	m.setState(StateDemuxing)
	if err := m.demux.SetExtractionTarget(meta.ID, meta.SampleCount); err != nil {
		m.OnError(err)
		return
	}
	m.demux.Start()
}

// OnSamples assembles the delivered batch.
func (m *machine) OnSamples(trackID uint32, samples []*models.Sample) {
	if m.Done() || m.meta == nil || trackID != m.meta.ID {
		return
	}
	m.setState(StateAssembling)

	out, err := assembler.Assemble(assembler.Input{
		Meta:     m.meta,
		Video:    m.video,
		Samples:  samples,
		Location: m.cfg.Location,
	})
	if err != nil {
		m.abort(fmt.Errorf("%w: %v", ErrDemuxer, err))
		return
	}

	if m.percent < 100 {
		m.report(100)
	}
	m.outcome = out
	m.setState(StateSucceeded)
	// Bytes past the last sample are not needed.
	m.cfg.Terminate(nil)
}

// OnError handles a structural demuxer failure.
func (m *machine) OnError(err error) {
	if m.Done() {
		return
	}
	m.abort(fmt.Errorf("%w: %v", ErrDemuxer, err))
}

func (m *machine) canceled() bool {
	if m.cfg.Cancel.Canceled() {
		return true
	}
	return m.ctx != nil && m.ctx.Err() != nil
}

func (m *machine) report(percent int) {
	if percent <= m.percent {
		return
	}
	m.percent = min(percent, 100)
	m.cfg.Progress(m.percent)
}

// abort fails and stops the source.
func (m *machine) abort(err error) {
	m.fail(err)
	m.cfg.Terminate(err)
}

func (m *machine) fail(err error) {
	if m.Done() {
		return
	}
	m.err = err
	m.setState(StateFailed)
}

func (m *machine) setState(s State) {
	if m.state == s {
		return
	}
	m.cfg.Log.WithFields(logrus.Fields{"from": m.state, "to": s}).Debug("state change")
	m.state = s
}
