package geoip

import (
	"errors"
	"testing"
	"time"
)

type countingResolver struct {
	calls int
	code  string
	err   error
}

func (c *countingResolver) CountryCode(string) (string, error) {
	c.calls++
	return c.code, c.err
}

func TestNewResolverEmptyPath(t *testing.T) {
	res, err := NewResolver("  ")
	if err != nil || res != nil {
		t.Fatalf("NewResolver(empty) = %v, %v", res, err)
	}
	if Lookup(res) != nil {
		t.Fatal("Lookup of nil resolver should be nil")
	}
}

func TestNewResolverMissingFile(t *testing.T) {
	if _, err := NewResolver("/nonexistent/GeoLite2-Country.mmdb"); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestNilResolverUnavailable(t *testing.T) {
	var r *Resolver
	if _, err := r.CountryCode("203.0.113.1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close on nil: %v", err)
	}
}

func TestCachedMemoizes(t *testing.T) {
	inner := &countingResolver{code: "BR"}
	cached := NewCached(inner, time.Minute)
	lookup := Lookup(cached)

	for i := 0; i < 3; i++ {
		code, err := lookup("203.0.113.7")
		if err != nil || code != "BR" {
			t.Fatalf("lookup = %q, %v", code, err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("inner called %d times, want 1", inner.calls)
	}
}

func TestCachedSkipsErrors(t *testing.T) {
	inner := &countingResolver{err: errors.New("boom")}
	cached := NewCached(inner, time.Minute)
	for i := 0; i < 2; i++ {
		if _, err := cached.CountryCode("203.0.113.8"); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 {
		t.Fatalf("errors should not be cached, calls = %d", inner.calls)
	}
}
