package geoip

import (
	"net/http"
	"time"

	"github.com/mayanov/tarotsite-go/internal/domain/locale"
)

// DefaultTimeout bounds each provider attempt.
const DefaultTimeout = 2500 * time.Millisecond

// DefaultDescriptors returns the production waterfall: geojs.io, ipapi.co, ipwho.is.
func DefaultDescriptors(timeout time.Duration) []Descriptor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return []Descriptor{
		{
			Name:            "geojs",
			Source:          locale.SourceProviderA,
			URLTemplate:     "https://get.geojs.io/v1/ip/geo/{ip}.json",
			SelfURL:         "https://get.geojs.io/v1/ip/geo.json",
			CountryCodePath: "country_code",
			CountryNamePath: "country",
			CityPath:        "city",
			RegionPath:      "region",
			Timeout:         timeout,
		},
		{
			Name:            "ipapi",
			Source:          locale.SourceProviderB,
			URLTemplate:     "https://ipapi.co/{ip}/json/",
			SelfURL:         "https://ipapi.co/json/",
			CountryCodePath: "country_code",
			CountryNamePath: "country_name",
			CityPath:        "city",
			RegionPath:      "region",
			Timeout:         timeout,
		},
		{
			Name:            "ipwhois",
			Source:          locale.SourceProviderC,
			URLTemplate:     "https://ipwho.is/{ip}",
			SelfURL:         "https://ipwho.is/",
			CountryCodePath: "country_code",
			CountryNamePath: "country",
			CityPath:        "city",
			RegionPath:      "region",
			SuccessPath:     "success",
			Timeout:         timeout,
		},
	}
}

// NewProviders builds one HTTPProvider per descriptor, in order.
func NewProviders(descs []Descriptor, client *http.Client) []locale.Provider {
	providers := make([]locale.Provider, 0, len(descs))
	for _, d := range descs {
		providers = append(providers, NewHTTPProvider(d, client))
	}
	return providers
}
