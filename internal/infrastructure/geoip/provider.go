// Package geoip implements the HTTP geolocation providers used by the locale
// resolver. Each provider is a Descriptor: an endpoint plus the gjson paths
// that map its payload onto locale.Lookup.
package geoip

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mayanov/tarotsite-go/internal/domain/locale"
)

const maxPayloadBytes = 64 << 10

// Descriptor describes one provider. Adding a provider is a data change.
type Descriptor struct {
	Name   string
	Source locale.Source
	// URLTemplate contains {ip}, replaced by the visitor address.
	URLTemplate string
	// SelfURL looks up the caller's own address; used when no public IP is known.
	SelfURL string

	CountryCodePath string
	CountryNamePath string
	CityPath        string
	RegionPath      string
	// SuccessPath, when set, must resolve to true for the payload to count.
	SuccessPath string

	Timeout time.Duration
}

// HTTPProvider performs lookups for one Descriptor.
type HTTPProvider struct {
	desc   Descriptor
	client *http.Client
}

// NewHTTPProvider returns a provider using client for requests.
func NewHTTPProvider(desc Descriptor, client *http.Client) *HTTPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProvider{desc: desc, client: client}
}

func (p *HTTPProvider) Name() string           { return p.desc.Name }
func (p *HTTPProvider) Source() locale.Source  { return p.desc.Source }
func (p *HTTPProvider) Timeout() time.Duration { return p.desc.Timeout }

// Lookup queries the provider. Transport errors, non-2xx answers and
// malformed payloads are all returned as errors.
func (p *HTTPProvider) Lookup(ctx context.Context, ip string) (locale.Lookup, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint(ip), nil)
	if err != nil {
		return locale.Lookup{}, fmt.Errorf("%s: build request: %w", p.desc.Name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "tarotsite-go/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return locale.Lookup{}, fmt.Errorf("%s: request failed: %w", p.desc.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return locale.Lookup{}, fmt.Errorf("%s: unexpected status %d", p.desc.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return locale.Lookup{}, fmt.Errorf("%s: read body: %w", p.desc.Name, err)
	}

	return p.parse(body)
}

func (p *HTTPProvider) parse(body []byte) (locale.Lookup, error) {
	if !gjson.ValidBytes(body) {
		return locale.Lookup{}, fmt.Errorf("%s: malformed payload", p.desc.Name)
	}
	if p.desc.SuccessPath != "" && !gjson.GetBytes(body, p.desc.SuccessPath).Bool() {
		return locale.Lookup{}, fmt.Errorf("%s: provider reported failure: %s", p.desc.Name, gjson.GetBytes(body, "message").String())
	}

	lookup := locale.Lookup{
		CountryCode: gjson.GetBytes(body, p.desc.CountryCodePath).String(),
		City:        field(body, p.desc.CityPath),
		CountryName: field(body, p.desc.CountryNamePath),
		Region:      field(body, p.desc.RegionPath),
	}
	if lookup.CountryCode == "" {
		return locale.Lookup{}, fmt.Errorf("%s: %w", p.desc.Name, locale.ErrUnusable)
	}
	return lookup, nil
}

func (p *HTTPProvider) endpoint(ip string) string {
	if !IsPublicIP(ip) && p.desc.SelfURL != "" {
		return p.desc.SelfURL
	}
	return strings.ReplaceAll(p.desc.URLTemplate, "{ip}", ip)
}

func field(body []byte, path string) string {
	if path == "" {
		return ""
	}
	return gjson.GetBytes(body, path).String()
}

// IsPublicIP reports whether ip is a routable address worth geolocating.
func IsPublicIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !(parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() ||
		parsed.IsLinkLocalUnicast() || parsed.IsLinkLocalMulticast())
}
