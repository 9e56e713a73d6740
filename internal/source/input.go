// Package source delivers a file's bytes as an ordered sequence of chunks.
//
// The input shape selects a reading strategy once, through a Registry of
// Openers. A Pump drives a Reader to exhaustion and reports chunks,
// progress, end of input and errors through callbacks.
package source

import (
	"context"
	"errors"
	"io"
	"os"
)

// Input is one of Bytes, Path, File, Stream, URL or Push.
type Input interface {
	input()
}

// Bytes is an in-memory buffer, delivered as a single chunk.
type Bytes struct {
	Data []byte
}

// Path is a file read sequentially from disk.
type Path struct {
	Name string
}

// File is an open platform file handle. It is read with ReadAt from
// offset 0 and is never closed by the source.
type File struct {
	F *os.File
}

// Stream is a pull-based byte stream. Size <= 0 means unknown; readers
// exposing Size() int64 report their own size.
type Stream struct {
	R    io.Reader
	Size int64
}

// URL is a remote file streamed over HTTP.
type URL struct {
	Address string
	Headers map[string]string
}

// Push hands control to the caller, who appends byte ranges directly.
// Progress and flushing are then the caller's responsibility.
type Push struct {
	Fn PushFunc
}

func (Bytes) input()  {}
func (Path) input()   {}
func (File) input()   {}
func (Stream) input() {}
func (URL) input()    {}
func (Push) input()   {}

// Target accepts byte ranges pushed by a caller-driven input.
type Target interface {
	// Append feeds one contiguous byte range starting at offset.
	Append(data []byte, offset int64) error
	// Flush signals that no more data follows.
	Flush() error
}

// PushFunc drives a Target. Returning without calling Flush is an implicit flush.
type PushFunc func(ctx context.Context, t Target) error

// ErrNotRestartable is returned by Rewind for streams that cannot be read twice.
var ErrNotRestartable = errors.New("stream cannot be restarted")

// Rewind prepares in to be read again from offset 0.
func Rewind(in Input) error {
	switch v := in.(type) {
	case Stream:
		s, ok := v.R.(io.Seeker)
		if !ok {
			return ErrNotRestartable
		}
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			return err
		}
	case Push:
		return ErrNotRestartable
	}
	return nil
}
