package image

import (
	"context"
	"time"
)

// Echo returns the source unchanged after an optional delay. It stands in
// for a real provider during development.
type Echo struct {
	Delay time.Duration
}

func (e *Echo) Name() string { return "echo" }

// Transform fulfils the Transformer interface.
func (e *Echo) Transform(ctx context.Context, req TransformRequest) (*Result, error) {
	if len(req.Source.Data) == 0 {
		return nil, ErrEmptySource
	}
	if e != nil && e.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.Delay):
		}
	}
	data := append([]byte(nil), req.Source.Data...)
	return &Result{Data: data, MIME: sourceMIME(req.Source)}, nil
}

var _ Transformer = (*Echo)(nil)
