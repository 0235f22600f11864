// Package reminder schedules one-shot task reminders.
//
// A reminder fires once at a calendar minute and is keyed by a string, so
// scheduling the same key again replaces the pending reminder.
package reminder

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type Reminder struct {
	Key   string
	Title string
	Body  string
	At    time.Time
}

// Notifier delivers a reminder when it fires.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// LogNotifier writes fired reminders to the log.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, r Reminder) error {
	n.Log.Info("reminder", "key", r.Key, "title", r.Title, "body", r.Body, "at", r.At)
	return nil
}

type Scheduler struct {
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	timers  map[string]*entry
	stopped bool
}

type entry struct {
	timer *time.Timer
	r     Reminder
}

func NewScheduler(notifier Notifier, log *slog.Logger) *Scheduler {
	return &Scheduler{
		notifier: notifier,
		log:      log,
		now:      time.Now,
		timers:   make(map[string]*entry),
	}
}

// Schedule arms r, replacing any reminder with the same key. The trigger is
// truncated to the minute; a trigger that is not in the future is refused.
func (s *Scheduler) Schedule(r Reminder) bool {
	r.At = r.At.Truncate(time.Minute)
	delay := r.At.Sub(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(r.Key)
	if s.stopped || delay <= 0 {
		return false
	}

	e := &entry{r: r}
	e.timer = time.AfterFunc(delay, func() { s.fire(e) })
	s.timers[r.Key] = e
	return true
}

// Cancel removes the pending reminder for key.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(key)
}

// Pending returns the keys of armed reminders, sorted.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.timers))
	for k := range s.timers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stop cancels every pending reminder and refuses new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.timers {
		s.cancelLocked(k)
	}
	s.stopped = true
}

func (s *Scheduler) cancelLocked(key string) bool {
	e, ok := s.timers[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.timers, key)
	return true
}

func (s *Scheduler) fire(e *entry) {
	s.mu.Lock()
	if s.timers[e.r.Key] != e {
		// Replaced or cancelled after the timer already fired.
		s.mu.Unlock()
		return
	}
	delete(s.timers, e.r.Key)
	s.mu.Unlock()

	if err := s.notifier.Notify(context.Background(), e.r); err != nil {
		s.log.Error("failed to deliver reminder", "key", e.r.Key, "error", err)
	}
}
