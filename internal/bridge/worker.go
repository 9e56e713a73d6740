package bridge

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/mohaanymo/gpmfx/internal/source"
)

// DefaultBuffer is the message queue capacity of a Worker.
const DefaultBuffer = 8

// Worker reads on a goroutine owned by a single-slot ants pool. Sends
// block while the queue is full, so a slow caller throttles the read.
type Worker struct {
	registry *source.Registry
	pool     *ants.Pool
	msgs     chan Message
	done     chan struct{}

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	pump    *source.Pump
	reason  error
	started bool
	closed  bool
}

// NewWorker creates the isolated execution context.
func NewWorker(registry *source.Registry, buffer int) (*Worker, error) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStartFailed, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		registry: registry,
		pool:     pool,
		msgs:     make(chan Message, buffer),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// WorkerFactory returns a Factory creating Workers over registry.
func WorkerFactory(registry *source.Registry, buffer int) Factory {
	return func() (Bridge, error) {
		return NewWorker(registry, buffer)
	}
}

// Post sends a command. A second ReadBlock returns ErrAlreadyStarted.
func (w *Worker) Post(cmd Command) error {
	switch c := cmd.(type) {
	case ReadBlock:
		return w.start(c)
	case Terminate:
		w.terminate(c.Reason)
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

func (w *Worker) start(c ReadBlock) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.started {
		return ErrAlreadyStarted
	}
	if err := w.pool.Submit(func() { w.run(c) }); err != nil {
		return fmt.Errorf("%w: %v", ErrStartFailed, err)
	}
	w.started = true
	return nil
}

func (w *Worker) run(c ReadBlock) {
	defer close(w.done)
	defer close(w.msgs)
	defer func() {
		if v := recover(); v != nil {
			w.send(Message{Kind: KindFault, Fault: panicError(v)})
		}
	}()

	rd, err := w.registry.Open(w.ctx, c.Input, c.ChunkSize)
	if err != nil {
		w.send(Message{Kind: KindError, Err: err.Error()})
		return
	}

	pump := source.NewPump(rd, pumpOptions(w.send))
	w.mu.Lock()
	w.pump = pump
	if w.reason != nil {
		pump.Terminate(w.reason)
	}
	w.mu.Unlock()

	pump.Run(w.ctx)
}

// send queues m unless the read was terminated.
func (w *Worker) send(m Message) {
	if w.ctx.Err() != nil {
		return
	}
	select {
	case w.msgs <- m:
	case <-w.ctx.Done():
	}
}

func (w *Worker) terminate(reason error) {
	if reason == nil {
		reason = source.ErrTerminated
	}
	w.mu.Lock()
	if w.reason == nil {
		w.reason = reason
	}
	if w.pump != nil {
		w.pump.Terminate(reason)
	}
	w.mu.Unlock()
	w.cancel()
}

// Receive waits for the next message.
func (w *Worker) Receive(ctx context.Context) (Message, error) {
	select {
	case m, ok := <-w.msgs:
		if !ok {
			return Message{}, io.EOF
		}
		return m, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Close terminates the read, waits for the goroutine and releases the pool.
func (w *Worker) Close() error {
	w.terminate(nil)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	started := w.started
	w.mu.Unlock()

	if started {
		<-w.done
	}
	w.pool.Release()
	return nil
}
