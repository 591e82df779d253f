// Package geoip maps client IPs to ISO country codes so the service can pick
// Portuguese for Lusophone visitors without an Accept-Language header.
package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/patrickmn/go-cache"
)

// ErrUnavailable is returned when the resolver is not initialized.
var ErrUnavailable = errors.New("geoip: resolver unavailable")

// CountryResolver resolves ISO country codes from IP addresses.
type CountryResolver interface {
	CountryCode(ip string) (string, error)
}

// Resolver provides country lookups backed by a MaxMind GeoIP2 database.
type Resolver struct {
	reader *geoip2.Reader
}

// NewResolver opens the GeoIP database at the given path. When the path is empty, nil is returned.
func NewResolver(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	return &Resolver{reader: reader}, nil
}

// CountryCode returns the ISO country code for the provided IP.
func (r *Resolver) CountryCode(ip string) (string, error) {
	if r == nil || r.reader == nil {
		return "", ErrUnavailable
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	if parsed.IsLoopback() || parsed.IsPrivate() {
		return "", nil
	}
	record, err := r.reader.Country(parsed)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup country: %w", err)
	}
	if record == nil || record.Country.IsoCode == "" {
		return "", nil
	}
	return record.Country.IsoCode, nil
}

// Close closes the underlying database reader.
func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}

// Cached memoizes lookups per IP, including empty answers.
type Cached struct {
	next  CountryResolver
	codes *cache.Cache
}

// NewCached wraps next with a TTL cache.
func NewCached(next CountryResolver, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cached{next: next, codes: cache.New(ttl, 2*ttl)}
}

// CountryCode serves from the cache before asking the wrapped resolver.
// Lookup errors are not cached.
func (c *Cached) CountryCode(ip string) (string, error) {
	if c == nil || c.next == nil {
		return "", ErrUnavailable
	}
	if v, ok := c.codes.Get(ip); ok {
		return v.(string), nil
	}
	code, err := c.next.CountryCode(ip)
	if err != nil {
		return "", err
	}
	c.codes.SetDefault(ip, code)
	return code, nil
}

// Lookup adapts a resolver to a plain function; nil resolvers yield nil.
func Lookup(res CountryResolver) func(ip string) (string, error) {
	if res == nil {
		return nil
	}
	if r, ok := res.(*Resolver); ok && r == nil {
		return nil
	}
	return res.CountryCode
}
