package source

import (
	"context"

	"golang.org/x/time/rate"
)

// limitBurst bounds a single limiter wait; larger chunks wait in steps.
const limitBurst = 64 * 1024

// limitedReader throttles another Reader to a fixed bandwidth.
type limitedReader struct {
	Reader
	limiter *rate.Limiter
}

func newLimitedReader(r Reader, bytesPerSec int64) *limitedReader {
	return &limitedReader{
		Reader:  r,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), limitBurst),
	}
}

func (r *limitedReader) Next(ctx context.Context) ([]byte, error) {
	data, err := r.Reader.Next(ctx)
	if err != nil {
		return nil, err
	}
	for n := len(data); n > 0; n -= limitBurst {
		if err := r.limiter.WaitN(ctx, min(n, limitBurst)); err != nil {
			return nil, err
		}
	}
	return data, nil
}
