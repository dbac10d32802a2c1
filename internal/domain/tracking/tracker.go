package tracking

import (
	"fmt"
	"maps"
	"sync"
)

// AnalyticsSink is the web-analytics destination.
type AnalyticsSink interface {
	SetUserProperties(props Properties)
	Event(name string, params Properties)
}

// PixelSink is the ad-attribution destination.
type PixelSink interface {
	Track(eventName string, params Properties)
}

// Ledger keeps a local copy of every emitted event.
type Ledger interface {
	Record(event TrackedEvent)
}

// Environment resolves the optional destinations at call time. A nil result
// means the destination is absent in this environment.
type Environment interface {
	Analytics() AnalyticsSink
	Pixel() PixelSink
	Ledger() Ledger
}

// Sinks is a fixed Environment; any field may be nil.
type Sinks struct {
	AnalyticsSink AnalyticsSink
	PixelSink     PixelSink
	EventLedger   Ledger
}

func (s Sinks) Analytics() AnalyticsSink { return s.AnalyticsSink }
func (s Sinks) Pixel() PixelSink         { return s.PixelSink }
func (s Sinks) Ledger() Ledger           { return s.EventLedger }

// Tracker accumulates user properties for one visitor session and forwards
// enriched events to whichever sinks the environment provides.
type Tracker struct {
	mu    sync.Mutex
	props Properties
	env   Environment
}

// NewTracker returns a tracker with empty user properties. A nil env turns
// every emission into a no-op.
func NewTracker(env Environment) *Tracker {
	return &Tracker{
		props: make(Properties),
		env:   env,
	}
}

// SetUserProperties merges props into the accumulated user properties and
// forwards the merged mapping to the analytics sink when present.
func (t *Tracker) SetUserProperties(props Properties) {
	t.mu.Lock()
	maps.Copy(t.props, props)
	merged := maps.Clone(t.props)
	t.mu.Unlock()

	if t.env == nil {
		return
	}
	if sink := t.env.Analytics(); sink != nil {
		sink.SetUserProperties(merged)
	}
}

// UserProperties returns a copy of the accumulated user properties.
func (t *Tracker) UserProperties() Properties {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.props)
}

// TrackEvent emits name to the analytics sink and, when secondaryName is not
// empty, secondaryName to the pixel sink. It never fails.
func (t *Tracker) TrackEvent(name string, primary Properties, secondaryName string, secondary Properties) {
	if t.env == nil {
		return
	}

	t.mu.Lock()
	global := maps.Clone(t.props)
	t.mu.Unlock()

	event := TrackedEvent{
		Name:               name,
		PrimaryParams:      merge(primary, global),
		SecondaryEventName: secondaryName,
	}
	if secondaryName != "" {
		event.SecondaryParams = merge(secondary, global)
	}

	if sink := t.env.Analytics(); sink != nil {
		sink.Event(name, CommercePayload(event.PrimaryParams))
	}
	if sink := t.env.Pixel(); sink != nil && secondaryName != "" {
		sink.Track(secondaryName, event.SecondaryParams)
	}
	if ledger := t.env.Ledger(); ledger != nil {
		ledger.Record(event)
	}
}

// TrackPageView emits a page view to both destinations with the same params.
func (t *Tracker) TrackPageView(params Properties) {
	t.TrackEvent(PageViewEvent, params, PixelPageViewEvent, params)
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
