package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mayanov/tarotsite-go/internal/domain/analytics"
)

func at(day int, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
}

func newDashboardService(events *memoryEvents) *DashboardAnalyticsService {
	svc := NewDashboardAnalyticsService(events, testLogger(), testPerf())
	svc.now = func() time.Time { return at(7, 15) }
	return svc
}

func TestComputeDashboard(t *testing.T) {
	events := &memoryEvents{events: []*analytics.Event{
		{VisitorID: "a", Name: "page_view", Country: "Indonesia", City: "Jakarta", Device: "mobile", CreatedAt: at(1, 9)},
		{VisitorID: "a", Name: "page_view", Country: "Indonesia (Cached)", Device: "mobile", CreatedAt: at(2, 9)},
		{VisitorID: "a", Name: "initiate_checkout", Country: "Indonesia", City: "Jakarta", Device: "mobile", ItemName: "3 Card Reading", CreatedAt: at(2, 10)},
		{VisitorID: "b", Name: "page_view", Country: "Indonesia", City: "Jakarta", Device: "desktop", CreatedAt: at(2, 11)},
		{VisitorID: "b", Name: "view_item", Country: "Indonesia", City: "Jakarta", Device: "desktop", ItemName: "3 Card Reading", CreatedAt: at(2, 12)},
		{VisitorID: "c", Name: "page_view", Country: "Singapore", City: "Singapore", Device: "desktop", CreatedAt: at(3, 8)},
		{VisitorID: "c", Name: "schedule", Country: "Singapore", City: "Singapore", Device: "desktop", ItemName: "5 Card Reading", CreatedAt: at(3, 9)},
		{VisitorID: "d", Name: "page_view", City: "(not set)", Device: "mobile", CreatedAt: at(3, 10)},
		{VisitorID: "e", Name: "page_view", Country: "Japan", CreatedAt: at(20, 10)},
	}}
	svc := newDashboardService(events)

	report, err := svc.ComputeDashboard(context.Background(), "2026-03-01", "2026-03-03")
	require.NoError(t, err)

	assert.Equal(t, "2026-03-01", report.StartDate)
	assert.Equal(t, "2026-03-03", report.EndDate)
	assert.Equal(t, DashboardSummary{PageViews: 5, Visitors: 4, LocalVisitors: 2, GlobalVisitors: 2, Events: 8}, report.Summary)
	assert.Equal(t, []DailyVisits{
		{Date: "2026-03-01", Indonesia: 1},
		{Date: "2026-03-02", Indonesia: 2},
		{Date: "2026-03-03", Global: 2},
	}, report.DailyVisits)
	assert.Equal(t, []LocationCount{
		{Country: "Indonesia", City: "Jakarta", Visitors: 2},
		{Country: "Singapore", City: "Singapore", Visitors: 1},
	}, report.Locations)
	assert.Equal(t, []DeviceCount{{Device: "desktop", Visitors: 2}, {Device: "mobile", Visitors: 2}}, report.Devices)
	assert.Equal(t, []ServiceCount{{ItemName: "3 Card Reading", Visitors: 2}}, report.TopServices["id"])
	assert.Equal(t, []ServiceCount{{ItemName: "5 Card Reading", Visitors: 1}}, report.TopServices["global"])
}

func TestComputeDashboard_DefaultRange(t *testing.T) {
	svc := newDashboardService(&memoryEvents{})

	report, err := svc.ComputeDashboard(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", report.StartDate)
	assert.Equal(t, "2026-03-07", report.EndDate)
	assert.Len(t, report.DailyVisits, 7)
	assert.Empty(t, report.Locations)
}

func TestComputeDashboard_RelativeDates(t *testing.T) {
	svc := newDashboardService(&memoryEvents{})

	report, err := svc.ComputeDashboard(context.Background(), "30daysAgo", "yesterday")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-05", report.StartDate)
	assert.Equal(t, "2026-03-06", report.EndDate)
}

func TestComputeDashboard_InvalidRange(t *testing.T) {
	svc := newDashboardService(&memoryEvents{})

	_, err := svc.ComputeDashboard(context.Background(), "2026-03-05", "2026-03-01")
	assert.ErrorIs(t, err, ErrInvalidDateRange)
	_, err = svc.ComputeDashboard(context.Background(), "last week", "")
	assert.ErrorIs(t, err, ErrInvalidDateRange)
	_, err = svc.ComputeDashboard(context.Background(), "2020-01-01", "2026-01-01")
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestComputeDashboard_RepositoryError(t *testing.T) {
	svc := newDashboardService(&memoryEvents{err: errors.New("no such table")})

	_, err := svc.ComputeDashboard(context.Background(), "", "")
	assert.ErrorContains(t, err, "no such table")
}
