package activity

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

var (
	// ErrResourceBusy is returned when a requirement is held by another scheduled
	// activity.
	ErrResourceBusy = errors.New("resource busy")
	// ErrAlreadyScheduled is returned when the same activity is scheduled twice.
	ErrAlreadyScheduled = errors.New("activity already scheduled")
)

// Scheduler runs scheduled activities once per tick and keeps any resource owned
// by at most one of them.
type Scheduler struct {
	logger    golog.Logger
	scheduled []Activity
	owners    map[Resource]Activity
}

// NewScheduler returns an empty scheduler.
func NewScheduler(logger golog.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		owners: make(map[Resource]Activity),
	}
}

// Schedule claims a's requirements and initializes it. It refuses when any
// requirement is already owned.
func (s *Scheduler) Schedule(a Activity) error {
	if s.IsScheduled(a) {
		return ErrAlreadyScheduled
	}
	for _, r := range a.Requirements() {
		if owner, ok := s.owners[r]; ok {
			return errors.Wrapf(ErrResourceBusy, "%s is held by %s", r.Name(), NameOf(owner))
		}
	}
	s.start(a)
	return nil
}

// SchedulePreempting cancels whatever owns a's requirements, then schedules a.
func (s *Scheduler) SchedulePreempting(a Activity) error {
	if s.IsScheduled(a) {
		return ErrAlreadyScheduled
	}
	for _, r := range a.Requirements() {
		if owner, ok := s.owners[r]; ok {
			s.finish(owner, true)
		}
	}
	s.start(a)
	return nil
}

func (s *Scheduler) start(a Activity) {
	for _, r := range a.Requirements() {
		s.owners[r] = a
	}
	s.scheduled = append(s.scheduled, a)
	s.logger.Debugw("activity scheduled", "activity", NameOf(a))
	a.Initialize()
}

// Run executes every scheduled activity once and ends those that finish.
func (s *Scheduler) Run() {
	for _, a := range append([]Activity(nil), s.scheduled...) {
		if !s.IsScheduled(a) {
			continue
		}
		a.Execute()
		if a.IsFinished() {
			s.finish(a, false)
		}
	}
}

// Cancel ends a as interrupted. It reports whether a was scheduled.
func (s *Scheduler) Cancel(a Activity) bool {
	if !s.IsScheduled(a) {
		return false
	}
	s.finish(a, true)
	return true
}

// CancelAll ends every scheduled activity as interrupted, newest first.
func (s *Scheduler) CancelAll() {
	for len(s.scheduled) > 0 {
		s.finish(s.scheduled[len(s.scheduled)-1], true)
	}
}

func (s *Scheduler) finish(a Activity, interrupted bool) {
	for i, cur := range s.scheduled {
		if cur == a {
			s.scheduled = append(s.scheduled[:i], s.scheduled[i+1:]...)
			break
		}
	}
	for _, r := range a.Requirements() {
		if s.owners[r] == a {
			delete(s.owners, r)
		}
	}
	a.End(interrupted)
	s.logger.Debugw("activity ended", "activity", NameOf(a), "interrupted", interrupted)
}

// IsScheduled reports whether a is running.
func (s *Scheduler) IsScheduled(a Activity) bool {
	for _, cur := range s.scheduled {
		if cur == a {
			return true
		}
	}
	return false
}

// Owner returns the activity holding r, if any.
func (s *Scheduler) Owner(r Resource) (Activity, bool) {
	a, ok := s.owners[r]
	return a, ok
}

// Active returns the names of the scheduled activities in scheduling order.
func (s *Scheduler) Active() []string {
	names := make([]string, 0, len(s.scheduled))
	for _, a := range s.scheduled {
		names = append(names, NameOf(a))
	}
	return names
}
