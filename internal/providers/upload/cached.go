package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Cached remembers the URL of every payload it has uploaded, keyed by
// content hash, and collapses concurrent uploads of the same bytes.
type Cached struct {
	next  Uploader
	urls  *cache.Cache
	group singleflight.Group
}

// NewCached wraps next. ttl bounds how long a hosted URL is reused.
func NewCached(next Uploader, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cached{next: next, urls: cache.New(ttl, 2*ttl)}
}

// Upload returns the cached URL for data or uploads it once.
func (c *Cached) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyPayload
	}
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])
	if url, ok := c.urls.Get(key); ok {
		return url.(string), nil
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if url, ok := c.urls.Get(key); ok {
			return url, nil
		}
		url, err := c.next.Upload(ctx, data, filename)
		if err != nil {
			return nil, err
		}
		c.urls.SetDefault(key, url)
		return url, nil
	})
	if err != nil {
		return "", err
	}
	url, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("upload: unexpected return type from singleflight: %T", val)
	}
	return url, nil
}

var _ Uploader = (*Cached)(nil)
