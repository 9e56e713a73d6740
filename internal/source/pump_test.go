package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mohaanymo/gpmfx/internal/models"
)

// recorder collects every callback a pump makes, in order.
type recorder struct {
	events   []string
	chunks   []models.Chunk
	progress []int
	errs     []string
	flushes  int
}

func (r *recorder) options() Options {
	return Options{
		OnProgress: func(p int) {
			r.events = append(r.events, "progress")
			r.progress = append(r.progress, p)
		},
		OnChunk: func(c models.Chunk) {
			r.events = append(r.events, "chunk")
			r.chunks = append(r.chunks, c)
		},
		OnFlush: func() {
			r.events = append(r.events, "flush")
			r.flushes++
		},
		OnError: func(msg string) {
			r.events = append(r.events, "error")
			r.errs = append(r.errs, msg)
		},
	}
}

func (r *recorder) requireContiguous(t *testing.T, want []byte) {
	t.Helper()
	var next int64
	var got []byte
	for _, c := range r.chunks {
		require.Equal(t, next, c.Offset)
		next = c.End()
		got = append(got, c.Data...)
	}
	require.Equal(t, want, got)
}

func (r *recorder) requireMonotonicProgress(t *testing.T) {
	t.Helper()
	last := -1
	for _, p := range r.progress {
		require.GreaterOrEqual(t, p, last)
		require.GreaterOrEqual(t, p, 0)
		require.LessOrEqual(t, p, 100)
		last = p
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		done, total int64
		expected    int
	}{
		{0, 100, 0},
		{1, 100, 1},
		{1, 1000, 1}, // ceil
		{999, 1000, 100},
		{500, 1000, 50},
		{1000, 1000, 100},
		{2000, 1000, 100},
		{10, 0, -1},
		{10, -1, -1},
	}

	for _, tt := range tests {
		result := Percent(tt.done, tt.total)
		if result != tt.expected {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.done, tt.total, result, tt.expected)
		}
	}
}

func TestPumpPath(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 1000)
	path := filepath.Join(t.TempDir(), "in.mp4")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	reg := NewRegistry(nil, 0)
	rd, err := reg.Open(context.Background(), Path{Name: path}, 3000)
	require.NoError(t, err)

	var rec recorder
	require.NoError(t, NewPump(rd, rec.options()).Run(context.Background()))

	require.Len(t, rec.chunks, 4)
	rec.requireContiguous(t, data)
	rec.requireMonotonicProgress(t)
	require.Equal(t, []int{30, 60, 90, 100}, rec.progress)
	require.Equal(t, 1, rec.flushes)
	require.Equal(t, "flush", rec.events[len(rec.events)-1])
	require.Empty(t, rec.errs)
}

func TestPumpBufferIsSingleChunk(t *testing.T) {
	data := []byte("whole file")
	rd, err := NewRegistry(nil, 0).Open(context.Background(), Bytes{Data: data}, 2)
	require.NoError(t, err)

	var rec recorder
	require.NoError(t, NewPump(rd, rec.options()).Run(context.Background()))
	require.Equal(t, []string{"chunk", "progress", "flush"}, rec.events)
	require.Equal(t, data, rec.chunks[0].Data)
	require.Equal(t, []int{100}, rec.progress)
}

func TestPumpEmptyBufferStillDeliversChunk(t *testing.T) {
	rd, err := NewRegistry(nil, 0).Open(context.Background(), Bytes{}, 2)
	require.NoError(t, err)

	var rec recorder
	require.NoError(t, NewPump(rd, rec.options()).Run(context.Background()))
	require.Len(t, rec.chunks, 1)
	require.Empty(t, rec.chunks[0].Data)
	require.Equal(t, 1, rec.flushes)
}

func TestPumpStreamUnknownSize(t *testing.T) {
	data := []byte(strings.Repeat("x", 100))
	// io.MultiReader hides the underlying Size method.
	in := Stream{R: io.MultiReader(bytes.NewReader(data))}
	rd, err := NewRegistry(nil, 0).Open(context.Background(), in, 30)
	require.NoError(t, err)
	require.Equal(t, int64(-1), rd.Size())

	var rec recorder
	require.NoError(t, NewPump(rd, rec.options()).Run(context.Background()))
	rec.requireContiguous(t, data)
	require.Equal(t, []int{100}, rec.progress)
}

func TestPumpStreamSizeFromReader(t *testing.T) {
	rd, err := NewRegistry(nil, 0).Open(context.Background(), Stream{R: bytes.NewReader(make([]byte, 10))}, 5)
	require.NoError(t, err)
	require.Equal(t, int64(10), rd.Size())
}

type failingReader struct {
	chunks int
	closed bool
}

func (r *failingReader) Next(context.Context) ([]byte, error) {
	if r.chunks == 0 {
		return nil, errors.New("disk on fire")
	}
	r.chunks--
	return []byte{1, 2, 3}, nil
}
func (r *failingReader) Size() int64  { return 9 }
func (r *failingReader) Close() error { r.closed = true; return nil }

func TestPumpErrorIsFinal(t *testing.T) {
	fr := &failingReader{chunks: 2}
	var rec recorder
	p := NewPump(fr, rec.options())

	err := p.Run(context.Background())
	require.EqualError(t, err, "disk on fire")
	require.Equal(t, []string{"disk on fire"}, rec.errs)
	require.Zero(t, rec.flushes)
	require.Equal(t, "error", rec.events[len(rec.events)-1])
	require.True(t, fr.closed)

	// Nothing more after the error.
	require.False(t, p.Step(context.Background()))
	require.Len(t, rec.errs, 1)
}

func TestPumpTerminateFromCallback(t *testing.T) {
	reason := errors.New("track not found")
	fr := &failingReader{chunks: 3}

	var p *Pump
	var rec recorder
	opts := rec.options()
	onChunk := opts.OnChunk
	opts.OnChunk = func(c models.Chunk) {
		onChunk(c)
		p.Terminate(reason)
		p.Terminate(errors.New("ignored"))
	}
	p = NewPump(fr, opts)

	err := p.Run(context.Background())
	require.ErrorIs(t, err, reason)
	require.Len(t, rec.chunks, 1)
	require.Empty(t, rec.progress)
	require.Zero(t, rec.flushes)
	require.Empty(t, rec.errs)
	require.True(t, fr.closed)
}

// blockingReader delivers one chunk, then blocks until ctx is done.
type blockingReader struct {
	calls  int
	closed bool
}

func (r *blockingReader) Next(ctx context.Context) ([]byte, error) {
	r.calls++
	if r.calls == 1 {
		return []byte("abc"), nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}
func (r *blockingReader) Size() int64  { return 6 }
func (r *blockingReader) Close() error { r.closed = true; return nil }

func TestPumpCanceledContextIsNotAReadError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	br := &blockingReader{}
	var rec recorder
	opts := rec.options()
	onChunk := opts.OnChunk
	opts.OnChunk = func(c models.Chunk) {
		onChunk(c)
		cancel()
	}
	p := NewPump(br, opts)

	err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, rec.chunks, 1)
	require.Empty(t, rec.errs)
	require.Zero(t, rec.flushes)
	require.True(t, br.closed)
}

func TestFileInputReadsFromStart(t *testing.T) {
	data := []byte("0123456789")
	path := filepath.Join(t.TempDir(), "in.mp4")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Seek(5, io.SeekStart)
	require.NoError(t, err)

	rd, err := NewRegistry(nil, 0).Open(context.Background(), File{F: f}, 4)
	require.NoError(t, err)

	var rec recorder
	require.NoError(t, NewPump(rd, rec.options()).Run(context.Background()))
	rec.requireContiguous(t, data)

	// The caller's handle stays open.
	_, err = f.Stat()
	require.NoError(t, err)
}

func TestRegistryUnsupported(t *testing.T) {
	reg := NewRegistry(nil, 0)
	require.False(t, reg.Supports(nil))
	require.False(t, reg.Supports(Push{}))
	require.False(t, reg.Supports(URL{Address: "http://example.com/a.mp4"})) // no client
	require.False(t, reg.Supports(Stream{}))

	_, err := reg.Open(context.Background(), Push{}, 10)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestRewind(t *testing.T) {
	r := bytes.NewReader([]byte("abc"))
	_, err := r.Read(make([]byte, 2))
	require.NoError(t, err)

	require.NoError(t, Rewind(Stream{R: r}))
	require.Equal(t, 3, r.Len())

	require.ErrorIs(t, Rewind(Stream{R: io.MultiReader(r)}), ErrNotRestartable)
	require.ErrorIs(t, Rewind(Push{}), ErrNotRestartable)
	require.NoError(t, Rewind(Bytes{}))
}

func TestLimitedReaderPassesData(t *testing.T) {
	data := bytes.Repeat([]byte{7}, 200*1024)
	reg := NewRegistry(nil, 1<<30)
	rd, err := reg.Open(context.Background(), Bytes{Data: data}, 0)
	require.NoError(t, err)

	var rec recorder
	require.NoError(t, NewPump(rd, rec.options()).Run(context.Background()))
	rec.requireContiguous(t, data)
}
