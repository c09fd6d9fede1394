// Package bandwidth throttles stream reads to a configured byte rate.
package bandwidth

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/time/rate"

	"github.com/substantialcattle5/redup/util"
)

const minBurst = 4096

// Limiter provides bandwidth limiting using a token bucket
type Limiter struct {
	rateLimiter *rate.Limiter
	limit       string
}

// NewLimiter creates a limiter from a rate such as "10MB" (per second).
// An empty string means no limit and yields a nil *Limiter, which is valid
// to use.
func NewLimiter(limitStr string) (*Limiter, error) {
	if limitStr == "" {
		return nil, nil
	}

	bytesPerSecond, err := util.ParseChunkSize(limitStr)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit '%s': %w", limitStr, err)
	}
	if bytesPerSecond <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d bytes/second", bytesPerSecond)
	}

	// One second of data per burst keeps reads smooth.
	burst := int(min(bytesPerSecond, int64(1<<30)))
	burst = max(burst, minBurst)

	return &Limiter{
		rateLimiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burst),
		limit:       limitStr,
	}, nil
}

// WaitN blocks until n bytes may pass. n must not exceed Burst.
func (l *Limiter) WaitN(ctx context.Context, n int) error {
	if l == nil {
		return nil
	}
	return l.rateLimiter.WaitN(ctx, n)
}

// Limit returns the original limit string
func (l *Limiter) Limit() string {
	if l == nil {
		return ""
	}
	return l.limit
}

// Rate returns the limit in bytes per second, or 0 when unlimited.
func (l *Limiter) Rate() float64 {
	if l == nil {
		return 0
	}
	return float64(l.rateLimiter.Limit())
}

// Burst returns the largest single read the limiter admits.
func (l *Limiter) Burst() int {
	if l == nil {
		return 0
	}
	return l.rateLimiter.Burst()
}

// Reader wraps r so reads are paced by l. A nil limiter returns r unchanged.
func (l *Limiter) Reader(ctx context.Context, r io.Reader) io.Reader {
	if l == nil {
		return r
	}
	return &limitedReader{ctx: ctx, r: r, l: l}
}

type limitedReader struct {
	ctx context.Context
	r   io.Reader
	l   *Limiter
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	if len(p) > lr.l.Burst() {
		p = p[:lr.l.Burst()]
	}
	n, err := lr.r.Read(p)
	if n > 0 {
		if werr := lr.l.WaitN(lr.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
