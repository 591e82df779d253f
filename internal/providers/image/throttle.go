package image

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled waits on a shared limiter before every call to next.
type Throttled struct {
	next    Transformer
	limiter *rate.Limiter
}

// NewThrottled limits next to perMinute calls with a burst of one. A
// non-positive rate returns next unchanged.
func NewThrottled(next Transformer, perMinute int) Transformer {
	if perMinute <= 0 {
		return next
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
	}
}

func (t *Throttled) Name() string { return NameOf(t.next) }

// Transform fulfils the Transformer interface.
func (t *Throttled) Transform(ctx context.Context, req TransformRequest) (*Result, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle: %w", err)
	}
	return t.next.Transform(ctx, req)
}

var _ Transformer = (*Throttled)(nil)
