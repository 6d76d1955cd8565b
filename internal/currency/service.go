package currency

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrNoRate is returned by Refresh when no usable value could be obtained.
var ErrNoRate = errors.New("no exchange rate available")

// Fetcher obtains today's UF value from an external indicator service.
type Fetcher interface {
	FetchUF(ctx context.Context) (float64, error)
}

// Service resolves the UF rate through a cache. Concurrent callers that miss
// the cache share a single upstream fetch.
type Service struct {
	cache   Cache
	fetcher Fetcher
	timeout time.Duration
	now     func() time.Time
	group   singleflight.Group
}

// NewService creates a rate service. timeout bounds each upstream fetch.
func NewService(cache Cache, fetcher Fetcher, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		cache:   cache,
		fetcher: fetcher,
		timeout: timeout,
		now:     time.Now,
	}
}

// Cache returns the underlying cache
func (s *Service) Cache() Cache {
	return s.cache
}

// Rate returns the UF value to use for conversions. It never fails: on
// upstream errors it falls back to the last known value, and ok is false only
// when no value was ever obtained.
func (s *Service) Rate(ctx context.Context) (float64, bool) {
	if r, ok := s.cache.Get(); ok {
		return r.Value, true
	}

	value, err := s.Refresh(ctx)
	if err == nil {
		return value, true
	}

	if last, ok := s.cache.LastKnown(); ok {
		log.Printf("[UF] refresh failed, serving last known value %.2f from %s: %v",
			last.Value, last.FetchedAt.Format(time.RFC3339), err)
		return last.Value, true
	}

	log.Printf("[UF] no exchange rate available: %v", err)
	return 0, false
}

// Refresh fetches a new value and stores it, bypassing the TTL check.
func (s *Service) Refresh(ctx context.Context) (float64, error) {
	if s.fetcher == nil {
		return 0, ErrNoRate
	}

	v, err, _ := s.group.Do("uf", func() (interface{}, error) {
		// Detached from the first caller so one cancelled request does not
		// fail every caller sharing the fetch.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		value, err := s.fetcher.FetchUF(fetchCtx)
		if err != nil {
			return 0.0, err
		}
		if !ValidRate(value) {
			return 0.0, ErrNoRate
		}

		s.cache.Set(value, s.now())
		log.Printf("[UF] refreshed exchange rate: %.2f", value)
		return value, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// Pointer is a convenience for JSON responses: nil when no rate exists.
func Pointer(value float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &value
}
