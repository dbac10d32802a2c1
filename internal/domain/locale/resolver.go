package locale

import (
	"context"
	"strings"
	"time"

	"github.com/mayanov/tarotsite-go/internal/domain/tracking"
)

// Query parameter values understood by the resolver.
const (
	GeoLocal  = "id"
	GeoGlobal = "global"
)

// Request carries the per-invocation inputs of a resolution.
type Request struct {
	// IP is the visitor address handed to the providers. Empty means the
	// providers look up the caller's own address.
	IP string
	// Geo is the raw value of the geo query parameter.
	Geo string
	// SimulateError forces the failure path.
	SimulateError bool
	// Retry bypasses the cache for this invocation.
	Retry bool
}

// Resolver runs the locale precedence chain over an ordered provider list.
type Resolver struct {
	providers []Provider
	observer  Observer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithObserver reports provider attempts and store failures to o.
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		if o != nil {
			r.observer = o
		}
	}
}

// NewResolver returns a resolver trying providers in the given order.
func NewResolver(providers []Provider, opts ...Option) *Resolver {
	r := &Resolver{
		providers: providers,
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveLocale returns exactly one decision and, on every path, sets the
// visitor's user properties and emits one page view through tracker. It never
// returns an error; a failed lookup is reported through Decision.Failed.
func (r *Resolver) ResolveLocale(ctx context.Context, req Request, store CountryStore, tracker *tracking.Tracker) Decision {
	if tracker == nil {
		tracker = tracking.NewTracker(nil)
	}

	if DevOverrideEnabled && (req.Geo == GeoLocal || req.Geo == GeoGlobal) {
		return r.devOverride(req.Geo == GeoLocal, tracker)
	}

	if req.SimulateError {
		return r.fail(SourceSimulatedError, tracker)
	}

	if !DevOverrideEnabled && !req.Retry && req.Geo == "" && store != nil {
		if code, ok := store.Load(ctx); ok && code != "" {
			return r.cached(code, tracker)
		}
	}

	for _, p := range r.providers {
		lookup, err := r.attempt(ctx, p, req.IP)
		if err != nil {
			continue
		}

		if store != nil {
			if err := store.Save(ctx, lookup.CountryCode); err != nil {
				r.observer.StoreError("save", err)
			}
		}

		d := Decision{
			IsLocal:     IsLocalCountry(lookup.CountryCode),
			Source:      p.Source(),
			Provider:    p.Name(),
			CountryCode: lookup.CountryCode,
			CountryName: lookup.CountryName,
			City:        lookup.City,
			Region:      lookup.Region,
		}
		tracker.SetUserProperties(liveProperties(d))
		tracker.TrackPageView(nil)
		return d
	}

	return r.fail(SourceFallback, tracker)
}

// attempt runs one provider under its own timeout. Cancelling this attempt
// leaves later attempts untouched.
func (r *Resolver) attempt(ctx context.Context, p Provider, ip string) (Lookup, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout())
	defer cancel()

	start := time.Now()
	lookup, err := p.Lookup(attemptCtx, ip)
	if err == nil {
		lookup.CountryCode = strings.ToUpper(strings.TrimSpace(lookup.CountryCode))
		if len(lookup.CountryCode) != 2 {
			err = ErrUnusable
		}
	}
	r.observer.ProviderAttempt(p.Name(), err, time.Since(start))
	return lookup, err
}

func (r *Resolver) devOverride(isLocal bool, tracker *tracking.Tracker) Decision {
	country := "Global (Dev)"
	if isLocal {
		country = "Indonesia (Dev)"
	}
	tracker.SetUserProperties(tracking.Properties{
		"country": country,
		"status":  "DEV_OVERRIDE",
	})
	tracker.TrackPageView(nil)
	return Decision{IsLocal: isLocal, Source: SourceDevOverride}
}

func (r *Resolver) cached(code string, tracker *tracking.Tracker) Decision {
	d := Decision{
		IsLocal:     IsLocalCountry(code),
		Source:      SourceCache,
		CountryCode: code,
	}
	country := code
	if d.IsLocal {
		country = "Indonesia"
	}
	tracker.SetUserProperties(tracking.Properties{
		"country": country + " (Cached)",
		"source":  string(SourceCache),
	})
	tracker.TrackPageView(nil)
	return d
}

func (r *Resolver) fail(source Source, tracker *tracking.Tracker) Decision {
	tracker.SetUserProperties(tracking.Properties{
		"source": string(source),
	})
	tracker.TrackPageView(tracking.Properties{"note": "geo_failed"})
	return Decision{IsLocal: false, Source: source, Failed: true}
}

func liveProperties(d Decision) tracking.Properties {
	city := d.City
	if city == "" {
		city = "Unknown"
	}
	props := tracking.Properties{
		"city":   city,
		"source": d.Provider,
	}
	if d.IsLocal {
		props["country"] = "Indonesia"
		if d.Region != "" {
			props["region"] = d.Region
		}
		return props
	}
	if d.CountryName != "" {
		props["country"] = d.CountryName
	} else {
		props["country"] = d.CountryCode
	}
	return props
}
