package source

import (
	"context"
	"errors"
	"io"
)

// Reader yields consecutive chunks of a file.
type Reader interface {
	// Next returns the next chunk, or io.EOF after the last one.
	Next(ctx context.Context) ([]byte, error)
	// Size returns the total size in bytes, or -1 if unknown.
	Size() int64
	// Close releases resources held by the reader.
	Close() error
}

// bufferReader wraps a buffer as one synthetic chunk.
type bufferReader struct {
	data []byte
	read bool
}

func newBufferReader(data []byte) *bufferReader {
	return &bufferReader{data: data}
}

func (r *bufferReader) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.read {
		return nil, io.EOF
	}
	r.read = true
	return r.data, nil
}

func (r *bufferReader) Size() int64  { return int64(len(r.data)) }
func (r *bufferReader) Close() error { return nil }

// chunkReader reads fixed-size chunks from an io.Reader. Each chunk gets
// its own buffer since chunks are retained downstream.
type chunkReader struct {
	r         io.Reader
	closer    io.Closer
	size      int64
	chunkSize int
	eof       bool
}

func newChunkReader(r io.Reader, closer io.Closer, size int64, chunkSize int) *chunkReader {
	if size <= 0 {
		size = -1
	}
	return &chunkReader{
		r:         r,
		closer:    closer,
		size:      size,
		chunkSize: chunkSize,
	}
}

func (r *chunkReader) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.eof {
		return nil, io.EOF
	}

	buf := make([]byte, r.chunkSize)
	n, err := io.ReadFull(r.r, buf)
	switch {
	case err == nil:
		return buf, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		r.eof = true
		return buf[:n], nil
	case errors.Is(err, io.EOF):
		r.eof = true
		return nil, io.EOF
	default:
		return nil, err
	}
}

func (r *chunkReader) Size() int64 { return r.size }

func (r *chunkReader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}
