package executor

import (
	"context"
	"sync"

	"github.com/reqprobe/reqprobe/packages/request"
	"golang.org/x/time/rate"
)

// DefaultWindowSize is how many requests run concurrently per batch window.
const DefaultWindowSize = 5

// ExecuteFunc runs one request to completion and always returns an outcome.
type ExecuteFunc func(ctx context.Context, req *request.Request) *request.Outcome

// Batch executes requests in fixed-size windows: each window runs
// concurrently and fully resolves before the next window starts, bounding
// peak concurrency at the window size. Output order matches input order.
type Batch struct {
	windowSize int
	limiter    *rate.Limiter
}

type BatchOption func(*Batch)

func WithWindowSize(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.windowSize = n
		}
	}
}

// WithRateLimit throttles request launches to the given requests per second.
func WithRateLimit(rps float64) BatchOption {
	return func(b *Batch) {
		if rps > 0 {
			b.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func NewBatch(opts ...BatchOption) *Batch {
	b := &Batch{
		windowSize: DefaultWindowSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ExecuteBatch runs every request through fn. outcomes[i] always corresponds
// to reqs[i]; a failing request fills its own slot and never disturbs the
// rest of the batch.
func (b *Batch) ExecuteBatch(ctx context.Context, reqs []*request.Request, fn ExecuteFunc) []*request.Outcome {
	outcomes := make([]*request.Outcome, len(reqs))

	for start := 0; start < len(reqs); start += b.windowSize {
		end := start + b.windowSize
		if end > len(reqs) {
			end = len(reqs)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			if b.limiter != nil {
				if err := b.limiter.Wait(ctx); err != nil {
					outcomes[i] = request.FailureOutcome(reqs[i].ID, request.ErrorKindTimeout, err.Error())
					continue
				}
			}

			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i] = fn(ctx, reqs[i])
			}(i)
		}
		wg.Wait()
	}

	return outcomes
}
