package engine

import (
	"context"
	"fmt"

	"github.com/mohaanymo/gpmfx/internal/models"
	"github.com/mohaanymo/gpmfx/internal/source"
)

// pushTarget lets a caller-driven input feed the machine directly.
// Once the machine is done every call returns source.ErrTerminated.
type pushTarget struct {
	m *machine
}

func (t *pushTarget) Append(data []byte, offset int64) error {
	if t.m.Done() {
		return source.ErrTerminated
	}
	t.m.OnChunk(models.Chunk{Data: data, Offset: offset})
	if t.m.Done() {
		return source.ErrTerminated
	}
	return nil
}

func (t *pushTarget) Flush() error {
	if t.m.Done() {
		return source.ErrTerminated
	}
	t.m.OnFlush()
	_, err := t.m.Result()
	return err
}

func (e *Engine) extractPush(ctx context.Context, p source.Push, mcfg machineConfig) (*models.Outcome, error) {
	if p.Fn == nil {
		return nil, ErrInputNotProvided
	}

	m := newMachine(ctx, mcfg, e.newDemuxer)
	m.Start()

	err := p.Fn(ctx, &pushTarget{m: m})
	switch {
	case m.Done():
	case err != nil && ctx.Err() != nil:
		m.fail(ErrCanceled)
	case err != nil:
		m.fail(fmt.Errorf("%w: %v", ErrRead, err))
	default:
		// Returning without Flush ends the input.
		m.OnFlush()
	}
	return m.Result()
}
