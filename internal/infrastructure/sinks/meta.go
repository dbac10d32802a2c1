package sinks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/mayanov/tarotsite-go/internal/domain/tracking"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/security"
)

// MetaConfig holds the Conversions API credentials.
type MetaConfig struct {
	PixelID     string
	AccessToken string
	GraphURL    string
}

// Meta sends events to the Meta Conversions API.
type Meta struct {
	queue  *Queue
	clock  clock.Clock
	logger *logging.ChanneledLogger
}

// NewMeta starts the delivery queue for the configured pixel.
func NewMeta(cfg MetaConfig, client *http.Client, opts QueueOptions, clk clock.Clock, observe DeliveryObserver, logger *logging.ChanneledLogger) *Meta {
	endpoint := fmt.Sprintf("%s/%s/events?%s",
		strings.TrimRight(cfg.GraphURL, "/"),
		url.PathEscape(cfg.PixelID),
		url.Values{"access_token": {cfg.AccessToken}}.Encode())

	return &Meta{
		queue:  NewQueue("meta", NewHTTPSender(client, endpoint), opts, observe, logger),
		clock:  clk,
		logger: logger,
	}
}

// ForVisitor returns the pixel sink bound to one visitor.
func (m *Meta) ForVisitor(visitorID, clientIP, userAgent, sourceURL string) *MetaVisitor {
	return &MetaVisitor{
		meta:      m,
		visitorID: visitorID,
		clientIP:  clientIP,
		userAgent: userAgent,
		sourceURL: sourceURL,
	}
}

// Close drains pending payloads.
func (m *Meta) Close(ctx context.Context) error {
	return m.queue.Close(ctx)
}

// MetaVisitor implements tracking.PixelSink for one visitor.
type MetaVisitor struct {
	meta      *Meta
	visitorID string

	mu        sync.Mutex
	clientIP  string
	userAgent string
	sourceURL string
}

// UpdateRequest sets the request data reported with later events. Empty
// values keep the previous ones.
func (v *MetaVisitor) UpdateRequest(clientIP, userAgent, sourceURL string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if clientIP != "" {
		v.clientIP = clientIP
	}
	if userAgent != "" {
		v.userAgent = userAgent
	}
	if sourceURL != "" {
		v.sourceURL = sourceURL
	}
}

type metaUserData struct {
	ClientIPAddress string   `json:"client_ip_address,omitempty"`
	ClientUserAgent string   `json:"client_user_agent,omitempty"`
	ExternalID      []string `json:"external_id,omitempty"`
}

type metaEvent struct {
	EventName      string              `json:"event_name"`
	EventTime      int64               `json:"event_time"`
	EventID        string              `json:"event_id"`
	ActionSource   string              `json:"action_source"`
	EventSourceURL string              `json:"event_source_url,omitempty"`
	UserData       metaUserData        `json:"user_data"`
	CustomData     tracking.Properties `json:"custom_data,omitempty"`
}

type metaPayload struct {
	Data []metaEvent `json:"data"`
}

// Track queues one event.
func (v *MetaVisitor) Track(eventName string, params tracking.Properties) {
	v.mu.Lock()
	event := metaEvent{
		EventName:      eventName,
		EventTime:      v.meta.clock.Now().Unix(),
		EventID:        security.GenerateULID(),
		ActionSource:   "website",
		EventSourceURL: v.sourceURL,
		UserData: metaUserData{
			ClientIPAddress: v.clientIP,
			ClientUserAgent: v.userAgent,
		},
		CustomData: params,
	}
	v.mu.Unlock()
	if v.visitorID != "" {
		event.UserData.ExternalID = []string{hashIdentifier(v.visitorID)}
	}

	payload, err := json.Marshal(metaPayload{Data: []metaEvent{event}})
	if err != nil {
		v.meta.logger.Analytics().Error("Failed to encode Meta payload", "event", eventName, "error", err.Error())
		return
	}
	v.meta.queue.Push(payload)
}

// hashIdentifier normalizes and SHA-256 hashes an identifier the way the
// Conversions API expects customer information parameters.
func hashIdentifier(id string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(id))))
	return hex.EncodeToString(sum[:])
}
