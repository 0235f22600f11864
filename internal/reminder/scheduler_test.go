package reminder

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanNotifier chan Reminder

func (c chanNotifier) Notify(_ context.Context, r Reminder) error {
	c <- r
	return nil
}

func newTestScheduler(now time.Time) (*Scheduler, chanNotifier) {
	n := make(chanNotifier, 4)
	s := NewScheduler(n, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return now }
	return s, n
}

func TestScheduleRefusesPast(t *testing.T) {
	now := time.Date(2024, 12, 14, 10, 30, 20, 0, time.UTC)
	s, _ := newTestScheduler(now)
	defer s.Stop()

	assert.False(t, s.Schedule(Reminder{Key: "a", At: now.Add(-time.Hour)}))
	// Truncated to 10:30, which has already started.
	assert.False(t, s.Schedule(Reminder{Key: "b", At: now.Add(10 * time.Second)}))
	assert.Empty(t, s.Pending())
}

func TestScheduleReplaceAndCancel(t *testing.T) {
	now := time.Now()
	s, _ := newTestScheduler(now)
	defer s.Stop()

	require.True(t, s.Schedule(Reminder{Key: "a", At: now.Add(time.Hour)}))
	require.True(t, s.Schedule(Reminder{Key: "a", At: now.Add(2 * time.Hour)}))
	require.True(t, s.Schedule(Reminder{Key: "b", At: now.Add(time.Hour)}))
	assert.Equal(t, []string{"a", "b"}, s.Pending())

	assert.True(t, s.Cancel("a"))
	assert.False(t, s.Cancel("a"))
	assert.Equal(t, []string{"b"}, s.Pending())
}

func TestScheduleFires(t *testing.T) {
	// Pretend it is just before a minute boundary so the truncated trigger is near.
	next := time.Now().Truncate(time.Minute).Add(time.Minute)
	s, n := newTestScheduler(next.Add(-50 * time.Millisecond))
	defer s.Stop()

	require.True(t, s.Schedule(Reminder{Key: "a", Title: "Reminder", Body: "Groceries", At: next.Add(5 * time.Second)}))

	select {
	case r := <-n:
		assert.Equal(t, "a", r.Key)
		assert.Equal(t, "Groceries", r.Body)
	case <-time.After(2 * time.Second):
		t.Fatal("reminder did not fire")
	}
	assert.Empty(t, s.Pending())
}

func TestStopRefusesNewReminders(t *testing.T) {
	s, _ := newTestScheduler(time.Now())
	s.Stop()
	assert.False(t, s.Schedule(Reminder{Key: "a", At: time.Now().Add(time.Hour)}))
}
