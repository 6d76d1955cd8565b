package indicator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
)

var (
	// ErrNoValue means the upstream answered but carried no usable UF value.
	ErrNoValue = errors.New("indicator: no UF value in response")
	// ErrCircuitOpen means the provider is cooling down after repeated failures.
	ErrCircuitOpen = errors.New("indicator: circuit open")
)

// Provider returns today's UF value in CLP.
type Provider interface {
	Name() string
	FetchUF(ctx context.Context) (float64, error)
}

// StatusError is an unexpected HTTP status from an indicator service.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.Code)
}

// Chain tries providers in order and returns the first value obtained.
type Chain []Provider

func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, p := range c {
		names[i] = p.Name()
	}
	return strings.Join(names, ",")
}

func (c Chain) FetchUF(ctx context.Context) (float64, error) {
	var errs error
	for _, p := range c {
		value, err := p.FetchUF(ctx)
		if err == nil {
			return value, nil
		}
		log.Printf("[UF] provider %s failed: %v", p.Name(), err)
		errs = errors.Join(errs, fmt.Errorf("%s: %w", p.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}
	if errs == nil {
		errs = ErrNoValue
	}
	return 0, errs
}

// parseCLPNumber reads Chilean formatted numbers: "37.517,25" -> 37517.25.
func parseCLPNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, ErrNoValue
	}
	return strconv.ParseFloat(s, 64)
}
