package sinks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/mayanov/tarotsite-go/internal/domain/tracking"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
)

type capture struct {
	mu       sync.Mutex
	bodies   [][]byte
	queries  []string
	paths    []string
	received chan struct{}
}

func newCaptureServer(t *testing.T) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{received: make(chan struct{}, 16)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.queries = append(c.queries, r.URL.RawQuery)
		c.paths = append(c.paths, r.URL.Path)
		c.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
		c.received <- struct{}{}
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func (c *capture) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.received:
	case <-time.After(2 * time.Second):
		t.Fatal("sink did not deliver")
	}
}

type outcomes struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *outcomes) observe(sink, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[sink+":"+outcome]++
}

func (o *outcomes) get(key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[key]
}

func TestGA4Visitor_Event(t *testing.T) {
	srv, captured := newCaptureServer(t)
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	ga4 := NewGA4(GA4Config{MeasurementID: "G-TEST", APISecret: "s3cret", Endpoint: srv.URL + "/mp/collect"},
		srv.Client(), QueueOptions{Size: 4, Workers: 1}, mock, nil, logging.NewDiscardLogger())
	defer ga4.Close(context.Background())

	visitor := ga4.ForVisitor("01HZCLIENT")
	visitor.SetUserProperties(tracking.Properties{"country": "Indonesia"})
	visitor.Event("initiate_checkout", tracking.CommercePayload(tracking.Properties{"item_name": "3 Card Reading", "value": 12}))
	captured.wait(t)

	captured.mu.Lock()
	defer captured.mu.Unlock()
	body := captured.bodies[0]
	assert.Equal(t, "/mp/collect", captured.paths[0])
	assert.Contains(t, captured.queries[0], "measurement_id=G-TEST")
	assert.Contains(t, captured.queries[0], "api_secret=s3cret")
	assert.Equal(t, "01HZCLIENT", gjson.GetBytes(body, "client_id").String())
	assert.Equal(t, mock.Now().UnixMicro(), gjson.GetBytes(body, "timestamp_micros").Int())
	assert.Equal(t, "Indonesia", gjson.GetBytes(body, "user_properties.country.value").String())
	assert.Equal(t, "initiate_checkout", gjson.GetBytes(body, "events.0.name").String())
	assert.Equal(t, "3 Card Reading", gjson.GetBytes(body, "events.0.params.items.0.item_name").String())
	assert.Equal(t, "Mayanov Tarot", gjson.GetBytes(body, "events.0.params.items.0.brand").String())
	assert.False(t, gjson.GetBytes(body, "events.0.params.item_name").Exists())
}

func TestMetaVisitor_Track(t *testing.T) {
	srv, captured := newCaptureServer(t)
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	meta := NewMeta(MetaConfig{PixelID: "123456", AccessToken: "tok", GraphURL: srv.URL + "/v18.0/"},
		srv.Client(), QueueOptions{Size: 4, Workers: 1}, mock, nil, logging.NewDiscardLogger())
	defer meta.Close(context.Background())

	meta.ForVisitor("visitor-1", "36.68.1.1", "Mozilla/5.0", "https://tarotreadingbymayanov.com/").
		Track("PageView", tracking.Properties{"country": "Indonesia"})
	captured.wait(t)

	captured.mu.Lock()
	defer captured.mu.Unlock()
	body := captured.bodies[0]
	assert.Equal(t, "/v18.0/123456/events", captured.paths[0])
	assert.Equal(t, "access_token=tok", captured.queries[0])
	assert.Equal(t, "PageView", gjson.GetBytes(body, "data.0.event_name").String())
	assert.Equal(t, mock.Now().Unix(), gjson.GetBytes(body, "data.0.event_time").Int())
	assert.Equal(t, "website", gjson.GetBytes(body, "data.0.action_source").String())
	assert.Equal(t, "36.68.1.1", gjson.GetBytes(body, "data.0.user_data.client_ip_address").String())
	assert.Equal(t, hashIdentifier("visitor-1"), gjson.GetBytes(body, "data.0.user_data.external_id.0").String())
	assert.Len(t, gjson.GetBytes(body, "data.0.event_id").String(), 26)
	assert.Equal(t, "Indonesia", gjson.GetBytes(body, "data.0.custom_data.country").String())
}

func TestMetaVisitor_UpdateRequest(t *testing.T) {
	srv, captured := newCaptureServer(t)
	meta := NewMeta(MetaConfig{PixelID: "123456", AccessToken: "tok", GraphURL: srv.URL + "/v18.0/"},
		srv.Client(), QueueOptions{Size: 4, Workers: 1}, clock.NewMock(), nil, logging.NewDiscardLogger())
	defer meta.Close(context.Background())

	visitor := meta.ForVisitor("visitor-1", "36.68.1.1", "Mozilla/5.0", "https://tarotreadingbymayanov.com/")
	visitor.UpdateRequest("110.136.2.2", "", "https://tarotreadingbymayanov.com/readings")
	visitor.Track("InitiateCheckout", nil)
	captured.wait(t)

	captured.mu.Lock()
	defer captured.mu.Unlock()
	body := captured.bodies[0]
	assert.Equal(t, "110.136.2.2", gjson.GetBytes(body, "data.0.user_data.client_ip_address").String())
	assert.Equal(t, "Mozilla/5.0", gjson.GetBytes(body, "data.0.user_data.client_user_agent").String())
	assert.Equal(t, "https://tarotreadingbymayanov.com/readings", gjson.GetBytes(body, "data.0.event_source_url").String())
}

func TestQueue_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	send := func(ctx context.Context, payload []byte) error {
		started <- struct{}{}
		<-release
		return nil
	}
	observed := &outcomes{}
	q := NewQueue("test", send, QueueOptions{Size: 1, Workers: 1}, observed.observe, logging.NewDiscardLogger())

	require.True(t, q.Push([]byte("first")))
	<-started // the worker holds "first"
	require.True(t, q.Push([]byte("second")))
	assert.False(t, q.Push([]byte("third")))
	assert.Equal(t, 1, observed.get("test:dropped"))

	close(release)
	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, 2, observed.get("test:sent"))
	assert.False(t, q.Push([]byte("late")))
}

func TestQueue_ReportsFailures(t *testing.T) {
	observed := &outcomes{}
	q := NewQueue("test", func(context.Context, []byte) error { return errors.New("boom") },
		QueueOptions{Size: 2, Workers: 1}, observed.observe, logging.NewDiscardLogger())

	q.Push([]byte("x"))
	require.NoError(t, q.Close(context.Background()))

	assert.Equal(t, 1, observed.get("test:failed"))
}

func TestHTTPSender_RejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewHTTPSender(srv.Client(), srv.URL)(context.Background(), []byte(`{}`))
	assert.Error(t, err)
}
