package locale

import (
	"context"
	"errors"
	"time"
)

// ErrUnusable is returned when a provider answered without a usable country code.
var ErrUnusable = errors.New("provider response has no usable country code")

// Lookup is a provider answer normalized to the common shape.
type Lookup struct {
	CountryCode string
	CountryName string
	City        string
	Region      string
}

// Provider is one IP geolocation service in the waterfall.
type Provider interface {
	Name() string
	Source() Source
	// Timeout bounds a single attempt.
	Timeout() time.Duration
	Lookup(ctx context.Context, ip string) (Lookup, error)
}

// Observer is notified about provider attempts and store failures.
type Observer interface {
	ProviderAttempt(provider string, err error, d time.Duration)
	StoreError(op string, err error)
}

type nopObserver struct{}

func (nopObserver) ProviderAttempt(string, error, time.Duration) {}
func (nopObserver) StoreError(string, error)                     {}
