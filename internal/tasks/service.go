package tasks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"notesync/internal/reminder"
	"notesync/internal/session"
	"notesync/internal/syncvm"
)

// Reminders is the part of the reminder scheduler tasks depend on.
type Reminders interface {
	Schedule(r reminder.Reminder) bool
	Cancel(key string) bool
}

// ViewModel adds completion toggling and reminder bookkeeping to the generic
// view model. Reminders are keyed by remote id, which survives refreshes.
type ViewModel struct {
	*syncvm.ViewModel[Task, Fields]
	reminders Reminders
	log       *slog.Logger
}

func NewViewModel(remote syncvm.RemoteStore[Task, Fields], local syncvm.LocalStore[Task], reminders Reminders, log *slog.Logger, opts ...syncvm.Option) *ViewModel {
	return &ViewModel{
		ViewModel: syncvm.New[Task, Fields]("task", remote, local, log, opts...),
		reminders: reminders,
		log:       log.With("kind", "task"),
	}
}

// Add creates an open task and schedules its reminder, if any.
func (vm *ViewModel) Add(ctx context.Context, sess *session.Session, f Fields) (string, error) {
	id, err := vm.ViewModel.Add(ctx, sess, f)
	if err != nil {
		return "", err
	}
	vm.arm(Task{RemoteID: id, Title: f.Title, ReminderDate: f.ReminderDate})
	return id, nil
}

// Update rewrites title and reminder date, rescheduling the reminder.
func (vm *ViewModel) Update(ctx context.Context, sess *session.Session, t Task, f Fields) error {
	if err := vm.ViewModel.Update(ctx, sess, t, f); err != nil {
		return err
	}
	t.Title, t.ReminderDate = f.Title, f.ReminderDate
	vm.arm(t)
	return nil
}

// Edit writes only the fields present in p and rearms the reminder. It
// returns t with the patch applied.
func (vm *ViewModel) Edit(ctx context.Context, sess *session.Session, t Task, p TaskPatch) (Task, error) {
	patch, err := p.Patch()
	if err != nil {
		return t, err
	}
	if len(patch) == 0 {
		return t, nil
	}
	if err := vm.Apply(ctx, sess, t, patch); err != nil {
		return t, err
	}
	p.applyTo(&t)
	vm.arm(t)
	return t, nil
}

// ToggleCompletion flips isCompleted remotely. Completing a task cancels its
// reminder; reopening it rearms a future one.
func (vm *ViewModel) ToggleCompletion(ctx context.Context, sess *session.Session, t Task) error {
	completed := !t.IsCompleted
	if err := vm.Apply(ctx, sess, t, syncvm.Patch{"isCompleted": completed}); err != nil {
		return err
	}
	t.IsCompleted = completed
	vm.arm(t)
	return nil
}

// Delete cancels the pending reminder, then deletes the task. The two steps
// are not transactional.
func (vm *ViewModel) Delete(ctx context.Context, sess *session.Session, t Task) error {
	if t.RemoteID != "" && vm.reminders.Cancel(t.RemoteID) {
		vm.log.Debug("cancelled reminder", "remote_id", t.RemoteID)
	}
	return vm.ViewModel.Delete(ctx, sess, t)
}

// Refresh reloads the cache and reconciles reminders with the snapshot.
// Tasks that were cached before but are gone from the snapshot lose their
// reminder.
func (vm *ViewModel) Refresh(ctx context.Context, sess *session.Session) ([]Task, error) {
	owner, err := sess.OwnerID()
	if err != nil {
		return vm.ViewModel.Refresh(ctx, sess)
	}
	prev := vm.Items(owner)
	if prev == nil {
		if prev, err = vm.Load(ctx, sess); err != nil {
			vm.log.Warn("failed to load cache before refresh", "owner", owner, "error", err)
		}
	}
	tasks, err := vm.ViewModel.Refresh(ctx, sess)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		seen[t.RemoteID] = true
		vm.arm(t)
	}
	for _, t := range prev {
		if t.RemoteID != "" && !seen[t.RemoteID] && vm.reminders.Cancel(t.RemoteID) {
			vm.log.Debug("cancelled reminder of removed task", "remote_id", t.RemoteID)
		}
	}
	return tasks, nil
}

// Purge cancels the owner's reminders and drops the cached tasks.
func (vm *ViewModel) Purge(ctx context.Context, ownerID string) error {
	for _, t := range vm.Items(ownerID) {
		vm.reminders.Cancel(t.RemoteID)
	}
	return vm.ViewModel.Purge(ctx, ownerID)
}

func (vm *ViewModel) arm(t Task) {
	if t.RemoteID == "" {
		return
	}
	if t.IsCompleted || t.ReminderDate == nil {
		vm.reminders.Cancel(t.RemoteID)
		return
	}
	vm.reminders.Schedule(reminder.Reminder{
		Key:   t.RemoteID,
		Title: "Reminder",
		Body:  t.Title,
		At:    *t.ReminderDate,
	})
}

type Service struct {
	vm *ViewModel
}

func NewService(vm *ViewModel) *Service {
	return &Service{vm: vm}
}

func (s *Service) ViewModel() *ViewModel {
	return s.vm
}

func (s *Service) Create(ctx context.Context, sess *session.Session, input TaskInput) (*Task, error) {
	f := input.Fields()
	id, err := s.vm.Add(ctx, sess, f)
	if err != nil {
		return nil, err
	}
	return s.cachedOrPending(ctx, sess, Task{RemoteID: id, Title: f.Title, ReminderDate: f.ReminderDate, OwnerID: sess.UserID}), nil
}

func (s *Service) Update(ctx context.Context, sess *session.Session, remoteID string, input TaskInput) (*Task, error) {
	t, err := s.Get(ctx, sess, remoteID)
	if err != nil {
		return nil, err
	}
	f := input.Fields()
	if err := s.vm.Update(ctx, sess, *t, f); err != nil {
		return nil, err
	}
	t.Title, t.ReminderDate = f.Title, f.ReminderDate
	return s.cachedOrPending(ctx, sess, *t), nil
}

// Patch edits only the fields present in p.
func (s *Service) Patch(ctx context.Context, sess *session.Session, remoteID string, p TaskPatch) (*Task, error) {
	if _, err := p.Patch(); err != nil {
		return nil, err
	}
	t, err := s.Get(ctx, sess, remoteID)
	if err != nil {
		return nil, err
	}
	edited, err := s.vm.Edit(ctx, sess, *t, p)
	if err != nil {
		return nil, err
	}
	return s.cachedOrPending(ctx, sess, edited), nil
}

func (s *Service) Toggle(ctx context.Context, sess *session.Session, remoteID string) (*Task, error) {
	t, err := s.Get(ctx, sess, remoteID)
	if err != nil {
		return nil, err
	}
	if err := s.vm.ToggleCompletion(ctx, sess, *t); err != nil {
		return nil, err
	}
	t.IsCompleted = !t.IsCompleted
	return s.cachedOrPending(ctx, sess, *t), nil
}

func (s *Service) Delete(ctx context.Context, sess *session.Session, remoteID string) error {
	t, err := s.Get(ctx, sess, remoteID)
	if err != nil {
		return err
	}
	return s.vm.Delete(ctx, sess, *t)
}

func (s *Service) Get(ctx context.Context, sess *session.Session, remoteID string) (*Task, error) {
	t, err := s.vm.Find(ctx, sess, remoteID)
	if errors.Is(err, syncvm.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns cached tasks; pending limits the result to open ones.
func (s *Service) List(ctx context.Context, sess *session.Session, pending bool) ([]Task, error) {
	owner, err := sess.OwnerID()
	if err != nil {
		return nil, err
	}
	all := s.vm.Items(owner)
	if all == nil {
		if all, err = s.vm.Load(ctx, sess); err != nil {
			return nil, err
		}
	}
	if !pending {
		return all, nil
	}
	var out []Task
	for _, t := range all {
		if !t.IsCompleted {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Service) Refresh(ctx context.Context, sess *session.Session) ([]Task, error) {
	return s.vm.Refresh(ctx, sess)
}

func (s *Service) Purge(ctx context.Context, ownerID string) error {
	return s.vm.Purge(ctx, ownerID)
}

func (s *Service) cachedOrPending(ctx context.Context, sess *session.Session, fallback Task) *Task {
	if t, err := s.vm.Find(ctx, sess, fallback.RemoteID); err == nil {
		return &t
	}
	return &fallback
}

// TaskInput is the JSON body for creating or editing a task
type TaskInput struct {
	Title        string     `json:"title"`
	ReminderDate *time.Time `json:"reminderDate,omitempty"`
}

func (in TaskInput) Fields() Fields {
	return Fields{Title: in.Title, ReminderDate: in.ReminderDate}
}
