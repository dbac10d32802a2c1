package sinks

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"net/url"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/mayanov/tarotsite-go/internal/domain/tracking"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
)

// GA4Config holds the Measurement Protocol credentials.
type GA4Config struct {
	MeasurementID string
	APISecret     string
	Endpoint      string
}

// GA4 sends events to the Google Analytics 4 Measurement Protocol.
type GA4 struct {
	queue  *Queue
	clock  clock.Clock
	logger *logging.ChanneledLogger
}

// NewGA4 starts the delivery queue for the configured property.
func NewGA4(cfg GA4Config, client *http.Client, opts QueueOptions, clk clock.Clock, observe DeliveryObserver, logger *logging.ChanneledLogger) *GA4 {
	endpoint := cfg.Endpoint + "?" + url.Values{
		"measurement_id": {cfg.MeasurementID},
		"api_secret":     {cfg.APISecret},
	}.Encode()

	return &GA4{
		queue:  NewQueue("ga4", NewHTTPSender(client, endpoint), opts, observe, logger),
		clock:  clk,
		logger: logger,
	}
}

// ForVisitor returns the analytics sink bound to one visitor id.
func (g *GA4) ForVisitor(clientID string) *GA4Visitor {
	return &GA4Visitor{ga4: g, clientID: clientID}
}

// Close drains pending payloads.
func (g *GA4) Close(ctx context.Context) error {
	return g.queue.Close(ctx)
}

// GA4Visitor implements tracking.AnalyticsSink for one client id.
type GA4Visitor struct {
	ga4      *GA4
	clientID string

	mu        sync.Mutex
	userProps tracking.Properties
}

type ga4Value struct {
	Value any `json:"value"`
}

type ga4Event struct {
	Name   string              `json:"name"`
	Params tracking.Properties `json:"params,omitempty"`
}

type ga4Payload struct {
	ClientID        string              `json:"client_id"`
	TimestampMicros int64               `json:"timestamp_micros"`
	UserProperties  map[string]ga4Value `json:"user_properties,omitempty"`
	Events          []ga4Event          `json:"events"`
}

// SetUserProperties replaces the user properties sent with later events.
// The Measurement Protocol has no standalone call for them.
func (v *GA4Visitor) SetUserProperties(props tracking.Properties) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.userProps = maps.Clone(props)
}

// Event queues one event.
func (v *GA4Visitor) Event(name string, params tracking.Properties) {
	v.mu.Lock()
	userProps := make(map[string]ga4Value, len(v.userProps))
	for k, val := range v.userProps {
		userProps[k] = ga4Value{Value: val}
	}
	v.mu.Unlock()

	payload, err := json.Marshal(ga4Payload{
		ClientID:        v.clientID,
		TimestampMicros: v.ga4.clock.Now().UnixMicro(),
		UserProperties:  userProps,
		Events:          []ga4Event{{Name: name, Params: params}},
	})
	if err != nil {
		v.ga4.logger.Analytics().Error("Failed to encode GA4 payload", "event", name, "error", err.Error())
		return
	}
	v.ga4.queue.Push(payload)
}
