package source

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/mohaanymo/gpmfx/internal/models"
)

// Options are the callbacks a Pump reports through. Nil callbacks are ignored.
type Options struct {
	OnProgress func(percent int)
	OnChunk    func(c models.Chunk)
	OnFlush    func()
	OnError    func(msg string)
}

// ErrTerminated is wrapped by the reason Run returns after Terminate.
var ErrTerminated = errors.New("read terminated")

// Pump drives a Reader to exhaustion. Chunks are delivered in strictly
// increasing, contiguous offset order. After the last chunk OnFlush is
// called exactly once; on a read failure OnError is called exactly once
// and nothing follows it. Terminate, or canceling the context passed to
// Step, stops the pump silently.
type Pump struct {
	r    Reader
	opts Options

	offset  int64
	percent int
	done    bool
	err     error

	mu     sync.Mutex
	reason error
}

// NewPump prepares a pump over r.
func NewPump(r Reader, opts Options) *Pump {
	if opts.OnProgress == nil {
		opts.OnProgress = func(int) {}
	}
	if opts.OnChunk == nil {
		opts.OnChunk = func(models.Chunk) {}
	}
	if opts.OnFlush == nil {
		opts.OnFlush = func() {}
	}
	if opts.OnError == nil {
		opts.OnError = func(string) {}
	}
	return &Pump{r: r, opts: opts, percent: -1}
}

// Run steps until the input is exhausted, fails or is terminated. It
// returns nil after OnFlush, the read error after OnError, or the
// termination reason.
func (p *Pump) Run(ctx context.Context) error {
	for p.Step(ctx) {
	}
	if reason := p.terminated(); reason != nil {
		return reason
	}
	return p.err
}

// Step pulls and delivers one chunk. It returns false once the pump is done.
func (p *Pump) Step(ctx context.Context) bool {
	if p.done {
		return false
	}
	if p.terminated() != nil {
		p.finish()
		return false
	}

	data, err := p.r.Next(ctx)
	if err != nil && ctx.Err() != nil {
		// Canceled by the caller, not a read failure.
		p.Terminate(ctx.Err())
	}
	if p.terminated() != nil {
		p.finish()
		return false
	}

	if errors.Is(err, io.EOF) {
		p.finish()
		if p.percent < 100 {
			p.report(100)
		}
		p.opts.OnFlush()
		return false
	}
	if err != nil {
		p.finish()
		p.err = err
		p.opts.OnError(err.Error())
		return false
	}

	c := models.Chunk{Data: data, Offset: p.offset}
	p.offset += int64(len(data))
	p.opts.OnChunk(c)

	// OnChunk may have terminated the pump.
	if p.terminated() != nil {
		p.finish()
		return false
	}

	if pct := Percent(p.offset, p.r.Size()); pct > p.percent {
		p.report(pct)
	}
	return true
}

// Terminate stops the pump. It is idempotent and safe to call from any
// goroutine; only the first reason is kept.
func (p *Pump) Terminate(reason error) {
	if reason == nil {
		reason = ErrTerminated
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reason == nil {
		p.reason = reason
	}
}

// Offset returns the number of bytes delivered so far.
func (p *Pump) Offset() int64 {
	return p.offset
}

func (p *Pump) terminated() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reason
}

func (p *Pump) report(pct int) {
	p.percent = pct
	p.opts.OnProgress(pct)
}

func (p *Pump) finish() {
	if p.done {
		return
	}
	p.done = true
	p.r.Close()
}

// Percent returns ceil(done/total*100) clamped to 100, or -1 if total is unknown.
func Percent(done, total int64) int {
	if total <= 0 {
		return -1
	}
	pct := (done*100 + total - 1) / total
	if pct > 100 {
		return 100
	}
	return int(pct)
}
