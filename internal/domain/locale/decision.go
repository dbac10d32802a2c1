// Package locale decides whether a visitor sees the Indonesian or the
// international variant of the site.
package locale

import "golang.org/x/text/language"

// PrimaryMarket is the only country code classified as local.
const PrimaryMarket = "ID"

// Source records where a Decision came from.
type Source string

const (
	SourceDevOverride    Source = "dev_override"
	SourceCache          Source = "cache"
	SourceProviderA      Source = "provider_a"
	SourceProviderB      Source = "provider_b"
	SourceProviderC      Source = "provider_c"
	SourceSimulatedError Source = "simulated_error"
	SourceFallback       Source = "fallback"
)

// Decision is the outcome of one resolution. It is never mutated after
// ResolveLocale returns it.
type Decision struct {
	IsLocal     bool   `json:"isLocal"`
	Source      Source `json:"source"`
	Provider    string `json:"provider,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	CountryName string `json:"countryName,omitempty"`
	City        string `json:"city,omitempty"`
	Region      string `json:"region,omitempty"`
	// Failed is set when every provider failed or a failure was simulated.
	// Callers offer a retry in that case.
	Failed bool `json:"failed"`
}

// IsLocalCountry reports whether code belongs to the primary market.
func IsLocalCountry(code string) bool {
	return code == PrimaryMarket
}

// Language returns the content language matching the decision.
func (d Decision) Language() language.Tag {
	if d.IsLocal {
		return language.Indonesian
	}
	return language.English
}

// Market returns "id" or "global".
func (d Decision) Market() string {
	if d.IsLocal {
		return "id"
	}
	return "global"
}
