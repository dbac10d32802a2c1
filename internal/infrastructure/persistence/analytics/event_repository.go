// Package analytics provides the concrete SQL-based implementation of the
// local event ledger.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mayanov/tarotsite-go/internal/domain/analytics"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/persistence/database"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/security"
)

const timestampLayout = "2006-01-02 15:04:05"

// SQLEventRepository handles event persistence to the database.
type SQLEventRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLEventRepository creates a new instance of the repository.
func NewSQLEventRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLEventRepository {
	return &SQLEventRepository{
		db:     db,
		logger: logger,
	}
}

// Store saves an event. Missing ids and timestamps are filled in.
func (r *SQLEventRepository) Store(ctx context.Context, event *analytics.Event) error {
	if event.ID == "" {
		event.ID = security.GenerateULID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	params := []byte("{}")
	if len(event.Params) > 0 {
		encoded, err := json.Marshal(event.Params)
		if err != nil {
			return fmt.Errorf("failed to encode event params: %w", err)
		}
		params = encoded
	}

	const query = `
		INSERT INTO events (id, visitor_id, name, pixel_name, country, city, device, item_name, params, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing event insert",
		"eventId", event.ID,
		"name", event.Name)

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.VisitorID,
		event.Name,
		nullable(event.PixelName),
		nullable(event.Country),
		nullable(event.City),
		nullable(event.Device),
		nullable(event.ItemName),
		string(params),
		event.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		r.logger.Database().Error("Event insert failed",
			"error", err.Error(),
			"eventId", event.ID,
			"name", event.Name)
		return fmt.Errorf("failed to store event: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Debug("Event insert completed",
		"eventId", event.ID,
		"name", event.Name,
		"duration", duration)
	r.db.CheckSlowQuery(query, duration)
	return nil
}

// FindInRange retrieves events with start <= created_at < end, oldest first.
func (r *SQLEventRepository) FindInRange(ctx context.Context, startTime, endTime time.Time) ([]*analytics.Event, error) {
	const query = `
		SELECT id, visitor_id, name, pixel_name, country, city, device, item_name, params, created_at
		FROM events
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at`

	start := time.Now()
	r.logger.Database().Debug("Loading events in range",
		"startTime", startTime,
		"endTime", endTime)

	rows, err := r.db.QueryContext(ctx, query,
		startTime.UTC().Format(timestampLayout),
		endTime.UTC().Format(timestampLayout))
	if err != nil {
		r.logger.Database().Error("Failed to query events in range",
			"error", err.Error(),
			"startTime", startTime,
			"endTime", endTime)
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*analytics.Event
	for rows.Next() {
		var event analytics.Event
		var pixelName, country, city, device, itemName *string
		var params, createdAtStr string

		if err := rows.Scan(
			&event.ID,
			&event.VisitorID,
			&event.Name,
			&pixelName,
			&country,
			&city,
			&device,
			&itemName,
			&params,
			&createdAtStr,
		); err != nil {
			r.logger.Database().Error("Failed to scan event row", "error", err.Error())
			continue
		}

		event.CreatedAt, err = parseTimestamp(createdAtStr)
		if err != nil {
			r.logger.Database().Error("Failed to parse event timestamp", "error", err.Error(), "timestamp", createdAtStr)
			continue
		}
		if params != "" && params != "{}" {
			if err := json.Unmarshal([]byte(params), &event.Params); err != nil {
				r.logger.Database().Warn("Failed to decode event params", "error", err.Error(), "eventId", event.ID)
			}
		}

		event.PixelName = deref(pixelName)
		event.Country = deref(country)
		event.City = deref(city)
		event.Device = deref(device)
		event.ItemName = deref(itemName)
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		r.logger.Database().Error("Row iteration error for events", "error", err.Error())
		return nil, err
	}

	duration := time.Since(start)
	r.logger.Database().Info("Events loaded in range",
		"startTime", startTime,
		"endTime", endTime,
		"count", len(events),
		"duration", duration)
	r.db.CheckSlowQuery(query, duration)
	return events, nil
}

func parseTimestamp(timestampStr string) (time.Time, error) {
	for _, layout := range []string{timestampLayout, time.RFC3339, "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, timestampStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp format: %s", timestampStr)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
