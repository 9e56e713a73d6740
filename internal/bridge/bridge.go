// Package bridge runs a chunk source behind a small message protocol, either
// on an isolated background goroutine or inline in the caller's goroutine.
//
// Commands flow caller -> bridge (ReadBlock, Terminate); messages flow
// bridge -> caller (Progress, Chunk, Flush, Error, Fault) in FIFO order.
// Both implementations behave identically; callers never branch on which
// one they hold.
package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohaanymo/gpmfx/internal/models"
	"github.com/mohaanymo/gpmfx/internal/source"
)

// Common errors.
var (
	ErrAlreadyStarted = errors.New("bridge already started")
	ErrClosed         = errors.New("bridge closed")
	ErrStartFailed    = errors.New("could not start background reader")
	ErrUnknownCommand = errors.New("unknown command")
)

// Command is sent from the caller to the bridge.
type Command interface {
	command()
}

// ReadBlock starts reading Input. Only one is accepted per bridge.
type ReadBlock struct {
	Input     source.Input
	ChunkSize int
}

// Terminate stops the read silently. Reason is kept for diagnostics.
type Terminate struct {
	Reason error
}

func (ReadBlock) command() {}
func (Terminate) command() {}

// Kind identifies a message.
type Kind int

const (
	KindProgress Kind = iota
	KindChunk
	KindFlush
	KindError
	KindFault
)

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindChunk:
		return "chunk"
	case KindFlush:
		return "flush"
	case KindError:
		return "error"
	case KindFault:
		return "fault"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is sent from the bridge to the caller.
type Message struct {
	Kind    Kind
	Percent int          // KindProgress
	Chunk   models.Chunk // KindChunk
	Err     string       // KindError: I/O failure message
	Fault   error        // KindFault: the bridge itself broke
}

// Terminal reports whether no message follows m.
func (m Message) Terminal() bool {
	return m.Kind == KindFlush || m.Kind == KindError || m.Kind == KindFault
}

// Bridge is one read operation. Receive returns io.EOF once the read has
// ended and every message was consumed.
type Bridge interface {
	Post(cmd Command) error
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// Factory creates a bridge for one call.
type Factory func() (Bridge, error)

// pumpOptions adapts pump callbacks to messages.
func pumpOptions(send func(Message)) source.Options {
	return source.Options{
		OnProgress: func(p int) { send(Message{Kind: KindProgress, Percent: p}) },
		OnChunk:    func(c models.Chunk) { send(Message{Kind: KindChunk, Chunk: c}) },
		OnFlush:    func() { send(Message{Kind: KindFlush}) },
		OnError:    func(msg string) { send(Message{Kind: KindError, Err: msg}) },
	}
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", v)
}
