package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mayanov/tarotsite-go/internal/domain/analytics"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/persistence/database"
)

func newMockRepository(t *testing.T) (*SQLEventRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logging.NewDiscardLogger()
	return NewSQLEventRepository(database.Wrap(db, logger, time.Second), logger), mock
}

func TestStore(t *testing.T) {
	repo, mock := newMockRepository(t)
	created := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO events").
		WithArgs("01HZEVENT", "visitor-1", "initiate_checkout", "InitiateCheckout", "Indonesia", "Jakarta", "mobile",
			"3 Card Reading", `{"value":12}`, "2026-03-01 10:30:00").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Store(context.Background(), &analytics.Event{
		ID:        "01HZEVENT",
		VisitorID: "visitor-1",
		Name:      "initiate_checkout",
		PixelName: "InitiateCheckout",
		Country:   "Indonesia",
		City:      "Jakarta",
		Device:    "mobile",
		ItemName:  "3 Card Reading",
		Params:    map[string]any{"value": 12},
		CreatedAt: created,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FillsDefaults(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("INSERT INTO events").
		WithArgs(sqlmock.AnyArg(), "visitor-1", "page_view", nil, nil, nil, nil, nil, "{}", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &analytics.Event{VisitorID: "visitor-1", Name: "page_view"}
	require.NoError(t, repo.Store(context.Background(), event))

	assert.Len(t, event.ID, 26)
	assert.False(t, event.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Error(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec("INSERT INTO events").WillReturnError(errors.New("disk full"))

	err := repo.Store(context.Background(), &analytics.Event{VisitorID: "v", Name: "page_view"})
	assert.ErrorContains(t, err, "disk full")
}

func TestFindInRange(t *testing.T) {
	repo, mock := newMockRepository(t)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	rows := sqlmock.NewRows([]string{"id", "visitor_id", "name", "pixel_name", "country", "city", "device", "item_name", "params", "created_at"}).
		AddRow("e1", "v1", "page_view", "PageView", "Indonesia", "Bandung", "desktop", nil, "{}", "2026-03-01 09:00:00").
		AddRow("e2", "v2", "view_item", nil, nil, nil, nil, "5 Card Reading", `{"value":20}`, "2026-03-02T11:00:00Z").
		AddRow("e3", "v3", "page_view", nil, nil, nil, nil, nil, "{}", "yesterday")

	mock.ExpectQuery("FROM events").
		WithArgs("2026-03-01 00:00:00", "2026-03-08 00:00:00").
		WillReturnRows(rows)

	events, err := repo.FindInRange(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Bandung", events[0].City)
	assert.Equal(t, "PageView", events[0].PixelName)
	assert.Nil(t, events[0].Params)
	assert.Equal(t, "5 Card Reading", events[1].ItemName)
	assert.Equal(t, float64(20), events[1].Params["value"])
	assert.Equal(t, time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC), events[1].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
