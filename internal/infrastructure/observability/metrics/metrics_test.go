package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveResolution(t *testing.T) {
	m := New()

	m.ObserveResolution("cache", true)
	m.ObserveResolution("cache", true)
	m.ObserveResolution("fallback", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("cache", "id")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("fallback", "global")))
}

func TestHandlerExposesApplicationMetrics(t *testing.T) {
	m := New()
	m.ObserveProviderAttempt("geojs", "success", 120*time.Millisecond)
	m.ObserveSinkDelivery("ga4", "dropped")
	m.ObserveEvent("page_view")
	m.RegisterSessionGauge(func() int { return 3 })

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `tarotsite_geo_provider_attempts_total{outcome="success",provider="geojs"} 1`)
	assert.Contains(t, string(body), `tarotsite_sink_deliveries_total{outcome="dropped",sink="ga4"} 1`)
	assert.Contains(t, string(body), `tarotsite_events_tracked_total{event="page_view"} 1`)
	assert.Contains(t, string(body), "tarotsite_active_sessions 3")
}
