package performance

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMarkerCompleteReportsOnce(t *testing.T) {
	var observed []string
	tracker := NewTracker(0, func(op string, success bool, _ time.Duration) {
		if success {
			observed = append(observed, op+":ok")
		} else {
			observed = append(observed, op+":fail")
		}
	}, nil)

	ok := tracker.StartOperation("locale:resolve", "visitor")
	ok.Complete()
	ok.Complete()

	failed := tracker.StartOperation("auth:login", "admin@example.com")
	failed.SetError(errors.New("invalid credentials"))
	failed.Complete()

	assert.Equal(t, []string{"locale:resolve:ok", "auth:login:fail"}, observed)

	stats := tracker.Stats()
	assert.EqualValues(t, 1, stats["locale:resolve"].Count)
	assert.EqualValues(t, 1, stats["auth:login"].Failures)
	assert.Equal(t, "invalid credentials", failed.Error)
}

func TestSlowOperationsAreCounted(t *testing.T) {
	tracker := NewTracker(time.Nanosecond, nil, nil)

	marker := tracker.StartOperation("dashboard:query", "system")
	marker.StartTime = time.Now().Add(-time.Second)
	marker.Complete()

	stats := tracker.Stats()["dashboard:query"]
	assert.EqualValues(t, 1, stats.SlowCount)
	assert.GreaterOrEqual(t, stats.AverageDuration(), time.Second)
}
