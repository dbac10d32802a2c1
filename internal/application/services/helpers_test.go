package services

import (
	"context"
	"sync"
	"time"

	"github.com/mayanov/tarotsite-go/internal/domain/analytics"
	"github.com/mayanov/tarotsite-go/internal/domain/tracking"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/performance"
)

func testLogger() *logging.ChanneledLogger {
	return logging.NewDiscardLogger()
}

func testPerf() *performance.Tracker {
	return performance.NewTracker(time.Second, nil, testLogger())
}

type memoryEvents struct {
	mu     sync.Mutex
	events []*analytics.Event
	err    error
}

func (m *memoryEvents) Store(_ context.Context, event *analytics.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	m.events = append(m.events, event)
	return nil
}

func (m *memoryEvents) FindInRange(_ context.Context, start, end time.Time) ([]*analytics.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*analytics.Event
	for _, e := range m.events {
		if !e.CreatedAt.Before(start) && e.CreatedAt.Before(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryEvents) all() []*analytics.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*analytics.Event(nil), m.events...)
}

type fakeAnalytics struct {
	mu        sync.Mutex
	userProps []tracking.Properties
	events    []string
}

func (f *fakeAnalytics) SetUserProperties(props tracking.Properties) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userProps = append(f.userProps, props)
}

func (f *fakeAnalytics) Event(name string, _ tracking.Properties) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, name)
}

type fakePixel struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePixel) Track(name string, _ tracking.Properties) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, name)
}

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) SendAdminWelcomeEmail(toEmail, _ string) error {
	f.sent = append(f.sent, toEmail)
	return f.err
}
