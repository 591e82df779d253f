package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownStyle      = errors.New("unknown style")
	ErrMissingImage      = errors.New("no image provided")
	ErrInvalidImage      = errors.New("invalid image")
	ErrInvalidRatio      = errors.New("invalid aspect ratio")
	ErrProviderFailure   = errors.New("provider failure")
	ErrProviderNotConfig = errors.New("provider not configured")
)
