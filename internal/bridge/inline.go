package bridge

import (
	"context"
	"fmt"
	"io"

	"github.com/mohaanymo/gpmfx/internal/source"
)

// Inline reads in the caller's goroutine: each Receive steps the pump
// until it has produced a message.
type Inline struct {
	registry *source.Registry

	pending  *ReadBlock
	pump     *source.Pump
	queue    []Message
	started  bool
	finished bool
	closed   bool
}

// NewInline creates an in-context bridge.
func NewInline(registry *source.Registry) *Inline {
	return &Inline{registry: registry}
}

// InlineFactory returns a Factory creating Inline bridges over registry.
func InlineFactory(registry *source.Registry) Factory {
	return func() (Bridge, error) {
		return NewInline(registry), nil
	}
}

// Post sends a command. A second ReadBlock returns ErrAlreadyStarted.
func (b *Inline) Post(cmd Command) error {
	switch c := cmd.(type) {
	case ReadBlock:
		if b.closed {
			return ErrClosed
		}
		if b.started {
			return ErrAlreadyStarted
		}
		b.started = true
		// Opened on the first Receive, under the caller's context.
		b.pending = &c
		return nil
	case Terminate:
		b.stop(c.Reason)
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

func (b *Inline) open(ctx context.Context, c ReadBlock) {
	rd, err := b.registry.Open(ctx, c.Input, c.ChunkSize)
	if err != nil {
		b.queue = append(b.queue, Message{Kind: KindError, Err: err.Error()})
		b.finished = true
		return
	}
	b.pump = source.NewPump(rd, pumpOptions(func(m Message) {
		b.queue = append(b.queue, m)
	}))
}

// Receive steps the read until a message is available.
func (b *Inline) Receive(ctx context.Context) (m Message, err error) {
	defer func() {
		if v := recover(); v != nil {
			b.finished = true
			b.queue = nil
			m, err = Message{Kind: KindFault, Fault: panicError(v)}, nil
		}
	}()

	if c := b.pending; c != nil && !b.finished {
		b.pending = nil
		b.open(ctx, *c)
	}

	for len(b.queue) == 0 {
		if b.finished || b.pump == nil {
			return Message{}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		if !b.pump.Step(ctx) {
			b.finished = true
		}
	}
	m = b.queue[0]
	b.queue = b.queue[1:]
	return m, nil
}

func (b *Inline) stop(reason error) {
	if b.pump != nil && !b.finished {
		b.pump.Terminate(reason)
		// A terminated pump closes its reader on the next step.
		b.pump.Step(context.Background())
	}
	b.finished = true
	b.queue = nil
}

// Close terminates the read.
func (b *Inline) Close() error {
	b.stop(nil)
	b.closed = true
	return nil
}
