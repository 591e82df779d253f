package image

import (
	"context"
	"errors"
	"fmt"

	"caricagen/internal/infra"
)

// Fallback tries primary first and secondary once when primary fails.
type Fallback struct {
	primary   Transformer
	secondary Transformer
	logger    *infra.Logger
}

// NewFallback wires a primary transformer with an optional secondary.
func NewFallback(primary, secondary Transformer, logger *infra.Logger) *Fallback {
	if logger == nil {
		nop := infra.NopLogger()
		logger = &nop
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *Fallback) Name() string {
	if f == nil || f.primary == nil {
		return "fallback"
	}
	return NameOf(f.primary)
}

// Transform fulfils the Transformer interface.
func (f *Fallback) Transform(ctx context.Context, req TransformRequest) (*Result, error) {
	if f == nil {
		return nil, fmt.Errorf("fallback transformer not configured")
	}
	if f.primary == nil {
		if f.secondary != nil {
			return f.secondary.Transform(ctx, req)
		}
		return nil, fmt.Errorf("fallback transformer not configured")
	}
	res, err := f.primary.Transform(ctx, req)
	if err == nil {
		return res, nil
	}
	if !shouldFallback(ctx, err) || f.secondary == nil {
		return nil, err
	}
	f.logger.Warn().
		Err(err).
		Str("primary", NameOf(f.primary)).
		Str("secondary", NameOf(f.secondary)).
		Msg("image provider failed, trying fallback")
	res, fbErr := f.secondary.Transform(ctx, req)
	if fbErr != nil {
		return nil, errors.Join(err, fbErr)
	}
	return res, nil
}

// shouldFallback is false once the caller has given up.
func shouldFallback(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, ErrEmptySource)
}

var _ Transformer = (*Fallback)(nil)
