package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/mohaanymo/gpmfx/internal/httpclient"
)

// ErrUnsupported is returned when no strategy can read an input.
var ErrUnsupported = errors.New("unsupported input")

// Opener is one reading strategy.
type Opener interface {
	CanOpen(in Input) bool
	Open(ctx context.Context, in Input, chunkSize int) (Reader, error)
}

// Registry manages available reading strategies.
type Registry struct {
	openers      []Opener
	maxBandwidth int64
}

// NewRegistry creates a registry with the default strategies. client is
// used for URL inputs; maxBandwidth (bytes per second, 0 = unlimited)
// throttles every reader it opens.
func NewRegistry(client *http.Client, maxBandwidth int64) *Registry {
	return &Registry{
		openers: []Opener{
			bufferOpener{},
			pathOpener{},
			fileOpener{},
			streamOpener{},
			urlOpener{client: client},
		},
		maxBandwidth: maxBandwidth,
	}
}

// Supports reports whether some strategy can read in.
func (r *Registry) Supports(in Input) bool {
	return r.find(in) != nil
}

// Open selects a strategy for in and opens it.
func (r *Registry) Open(ctx context.Context, in Input, chunkSize int) (Reader, error) {
	o := r.find(in)
	if o == nil {
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, in)
	}

	rd, err := o.Open(ctx, in, chunkSize)
	if err != nil {
		return nil, err
	}
	if r.maxBandwidth > 0 {
		return newLimitedReader(rd, r.maxBandwidth), nil
	}
	return rd, nil
}

func (r *Registry) find(in Input) Opener {
	if in == nil {
		return nil
	}
	for _, o := range r.openers {
		if o.CanOpen(in) {
			return o
		}
	}
	return nil
}

type bufferOpener struct{}

func (bufferOpener) CanOpen(in Input) bool {
	_, ok := in.(Bytes)
	return ok
}

func (bufferOpener) Open(_ context.Context, in Input, _ int) (Reader, error) {
	return newBufferReader(in.(Bytes).Data), nil
}

type pathOpener struct{}

func (pathOpener) CanOpen(in Input) bool {
	p, ok := in.(Path)
	return ok && p.Name != ""
}

func (pathOpener) Open(_ context.Context, in Input, chunkSize int) (Reader, error) {
	f, err := os.Open(in.(Path).Name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return newChunkReader(f, f, info.Size(), chunkSize), nil
}

type fileOpener struct{}

func (fileOpener) CanOpen(in Input) bool {
	f, ok := in.(File)
	return ok && f.F != nil
}

func (fileOpener) Open(_ context.Context, in Input, chunkSize int) (Reader, error) {
	f := in.(File).F
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	// SectionReader reads with ReadAt, so a restarted read starts at 0
	// regardless of the handle's current position.
	sr := io.NewSectionReader(f, 0, info.Size())
	return newChunkReader(sr, nil, info.Size(), chunkSize), nil
}

type streamOpener struct{}

func (streamOpener) CanOpen(in Input) bool {
	s, ok := in.(Stream)
	return ok && s.R != nil
}

func (streamOpener) Open(_ context.Context, in Input, chunkSize int) (Reader, error) {
	s := in.(Stream)
	size := s.Size
	if sz, ok := s.R.(interface{ Size() int64 }); ok && size <= 0 {
		size = sz.Size()
	}
	// The stream belongs to the caller and stays open.
	return newChunkReader(s.R, nil, size, chunkSize), nil
}

type urlOpener struct {
	client *http.Client
}

func (o urlOpener) CanOpen(in Input) bool {
	u, ok := in.(URL)
	return ok && u.Address != "" && o.client != nil
}

func (o urlOpener) Open(ctx context.Context, in Input, chunkSize int) (Reader, error) {
	u := in.(URL)
	body, size, err := httpclient.Get(ctx, o.client, u.Address, u.Headers)
	if err != nil {
		return nil, err
	}
	return newChunkReader(body, body, size, chunkSize), nil
}
