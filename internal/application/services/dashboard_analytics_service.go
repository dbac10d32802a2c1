package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mayanov/tarotsite-go/internal/domain/analytics"
	"github.com/mayanov/tarotsite-go/internal/domain/tracking"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/performance"
)

const (
	dateLayout       = "2006-01-02"
	defaultRangeDays = 7
	maxRangeDays     = 366
	topLocations     = 10
)

// ErrInvalidDateRange is returned for unparseable or inverted ranges.
var ErrInvalidDateRange = errors.New("invalid date range")

// checkoutEvents are the interactions that count towards a service's interest.
var checkoutEvents = map[string]bool{
	"initiate_checkout": true,
	"begin_checkout":    true,
	"schedule":          true,
	"view_item":         true,
}

type DailyVisits struct {
	Date      string `json:"date"`
	Indonesia int    `json:"indonesia"`
	Global    int    `json:"global"`
}

type LocationCount struct {
	Country  string `json:"country"`
	City     string `json:"city"`
	Visitors int    `json:"visitors"`
}

type DeviceCount struct {
	Device   string `json:"device"`
	Visitors int    `json:"visitors"`
}

type ServiceCount struct {
	ItemName string `json:"itemName"`
	Visitors int    `json:"visitors"`
}

type DashboardSummary struct {
	PageViews      int `json:"pageViews"`
	Visitors       int `json:"visitors"`
	LocalVisitors  int `json:"localVisitors"`
	GlobalVisitors int `json:"globalVisitors"`
	Events         int `json:"events"`
}

type DashboardAnalytics struct {
	StartDate   string                    `json:"startDate"`
	EndDate     string                    `json:"endDate"`
	Summary     DashboardSummary          `json:"summary"`
	DailyVisits []DailyVisits             `json:"dailyVisits"`
	Locations   []LocationCount           `json:"locations"`
	Devices     []DeviceCount             `json:"devices"`
	TopServices map[string][]ServiceCount `json:"topServices"`
}

type DashboardAnalyticsService struct {
	events      analytics.EventRepository
	now         func() time.Time
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

func NewDashboardAnalyticsService(events analytics.EventRepository, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *DashboardAnalyticsService {
	return &DashboardAnalyticsService{
		events:      events,
		now:         time.Now,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// ComputeDashboard aggregates the ledger between two inclusive dates.
// Dates are YYYY-MM-DD, "today", "yesterday" or "NdaysAgo"; empty values
// default to the last seven days.
func (s *DashboardAnalyticsService) ComputeDashboard(ctx context.Context, startDate, endDate string) (*DashboardAnalytics, error) {
	start := time.Now()
	marker := s.perfTracker.StartOperation("compute_dashboard", startDate+".."+endDate)
	defer marker.Complete()

	from, to, err := s.parseRange(startDate, endDate)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}

	events, err := s.events.FindInRange(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	report := s.aggregate(events, from, to)

	s.logger.Analytics().Info("Successfully computed dashboard analytics",
		"startDate", report.StartDate, "endDate", report.EndDate, "eventCount", len(events), "duration", time.Since(start))
	marker.SetSuccess(true)
	return report, nil
}

func (s *DashboardAnalyticsService) aggregate(events []*analytics.Event, from, to time.Time) *DashboardAnalytics {
	report := &DashboardAnalytics{
		StartDate:   from.Format(dateLayout),
		EndDate:     to.Format(dateLayout),
		Locations:   []LocationCount{},
		Devices:     []DeviceCount{},
		TopServices: map[string][]ServiceCount{"id": {}, "global": {}},
	}

	days := make(map[string]int)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days[d.Format(dateLayout)] = len(report.DailyVisits)
		report.DailyVisits = append(report.DailyVisits, DailyVisits{Date: d.Format(dateLayout)})
	}

	visitors := make(map[string]bool)
	localVisitors := make(map[string]bool)
	locations := make(map[[2]string]map[string]bool)
	devices := make(map[string]map[string]bool)
	services := map[string]map[string]map[string]bool{"id": {}, "global": {}}

	for _, event := range events {
		report.Summary.Events++
		visitors[event.VisitorID] = true
		local := isLocalCountry(event.Country)
		if local {
			localVisitors[event.VisitorID] = true
		}

		if event.Name == tracking.PageViewEvent {
			report.Summary.PageViews++
			if i, ok := days[event.CreatedAt.UTC().Format(dateLayout)]; ok {
				if local {
					report.DailyVisits[i].Indonesia++
				} else {
					report.DailyVisits[i].Global++
				}
			}
		}

		if country, city := baseCountry(event.Country), event.City; country != "" && hasCity(city) {
			key := [2]string{country, city}
			if locations[key] == nil {
				locations[key] = make(map[string]bool)
			}
			locations[key][event.VisitorID] = true
		}

		if event.Device != "" {
			if devices[event.Device] == nil {
				devices[event.Device] = make(map[string]bool)
			}
			devices[event.Device][event.VisitorID] = true
		}

		if checkoutEvents[event.Name] && event.ItemName != "" {
			market := "global"
			if local {
				market = "id"
			}
			if services[market][event.ItemName] == nil {
				services[market][event.ItemName] = make(map[string]bool)
			}
			services[market][event.ItemName][event.VisitorID] = true
		}
	}

	report.Summary.Visitors = len(visitors)
	report.Summary.LocalVisitors = len(localVisitors)
	report.Summary.GlobalVisitors = len(visitors) - len(localVisitors)

	for key, set := range locations {
		report.Locations = append(report.Locations, LocationCount{Country: key[0], City: key[1], Visitors: len(set)})
	}
	sort.Slice(report.Locations, func(i, j int) bool {
		a, b := report.Locations[i], report.Locations[j]
		if a.Visitors != b.Visitors {
			return a.Visitors > b.Visitors
		}
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		return a.City < b.City
	})
	if len(report.Locations) > topLocations {
		report.Locations = report.Locations[:topLocations]
	}

	for device, set := range devices {
		report.Devices = append(report.Devices, DeviceCount{Device: device, Visitors: len(set)})
	}
	sort.Slice(report.Devices, func(i, j int) bool {
		if report.Devices[i].Visitors != report.Devices[j].Visitors {
			return report.Devices[i].Visitors > report.Devices[j].Visitors
		}
		return report.Devices[i].Device < report.Devices[j].Device
	})

	for market, items := range services {
		counts := make([]ServiceCount, 0, len(items))
		for name, set := range items {
			counts = append(counts, ServiceCount{ItemName: name, Visitors: len(set)})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].Visitors != counts[j].Visitors {
				return counts[i].Visitors > counts[j].Visitors
			}
			return counts[i].ItemName < counts[j].ItemName
		})
		report.TopServices[market] = counts
	}

	return report
}

func (s *DashboardAnalyticsService) parseRange(startDate, endDate string) (time.Time, time.Time, error) {
	today := truncateDay(s.now())

	to := today
	if endDate != "" {
		parsed, err := parseDate(endDate, today)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}

	from := to.AddDate(0, 0, -(defaultRangeDays - 1))
	if startDate != "" {
		parsed, err := parseDate(startDate, today)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}

	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s is after %s", ErrInvalidDateRange, from.Format(dateLayout), to.Format(dateLayout))
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: longer than %d days", ErrInvalidDateRange, maxRangeDays)
	}
	return from, to, nil
}

func parseDate(value string, today time.Time) (time.Time, error) {
	switch value {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}
	if n, ok := strings.CutSuffix(value, "daysAgo"); ok {
		days, err := strconv.Atoi(n)
		if err != nil || days < 0 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateRange, value)
		}
		return today.AddDate(0, 0, -days), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateRange, value)
	}
	return t, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// baseCountry strips the "(Cached)" and "(Dev)" markers from a stored country property.
func baseCountry(country string) string {
	if i := strings.Index(country, " ("); i > 0 {
		return country[:i]
	}
	return country
}

func isLocalCountry(country string) bool {
	base := baseCountry(country)
	return base == "Indonesia" || base == "ID"
}

func hasCity(city string) bool {
	return city != "" && city != "(not set)" && city != "Unknown"
}
