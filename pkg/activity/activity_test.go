package activity

import (
	"errors"
	"testing"
	"time"

	"github.com/edaniels/golog"
)

type resource string

func (r *resource) Name() string { return string(*r) }

func newResource(name string) *resource {
	r := resource(name)
	return &r
}

// recorder logs lifecycle calls and finishes after a fixed number of executes.
type recorder struct {
	name     string
	runs     int
	calls    []string
	reqs     []Resource
	executed int
}

func (r *recorder) Initialize() { r.calls = append(r.calls, "init") }
func (r *recorder) Execute() {
	r.executed++
	r.calls = append(r.calls, "exec")
}
func (r *recorder) End(interrupted bool) {
	if interrupted {
		r.calls = append(r.calls, "interrupted")
	} else {
		r.calls = append(r.calls, "end")
	}
}
func (r *recorder) IsFinished() bool          { return r.runs > 0 && r.executed >= r.runs }
func (r *recorder) Requirements() []Resource { return r.reqs }
func (r *recorder) String() string           { return r.name }

func equalCalls(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScheduler_Lifecycle(t *testing.T) {
	s := NewScheduler(golog.NewTestLogger(t))
	r := &recorder{name: "two", runs: 2}

	if err := s.Schedule(r); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	s.Run()
	if !s.IsScheduled(r) {
		t.Fatal("finished too early")
	}
	s.Run()
	if s.IsScheduled(r) {
		t.Fatal("still scheduled after finishing")
	}

	want := []string{"init", "exec", "exec", "end"}
	if !equalCalls(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
}

func TestScheduler_RefusesConflicts(t *testing.T) {
	s := NewScheduler(golog.NewTestLogger(t))
	arm := newResource("arm")
	claw := newResource("claw")

	first := &recorder{name: "first", reqs: []Resource{arm}}
	second := &recorder{name: "second", reqs: []Resource{arm, claw}}
	other := &recorder{name: "other", reqs: []Resource{claw}}

	if err := s.Schedule(first); err != nil {
		t.Fatal(err)
	}
	if err := s.Schedule(second); !errors.Is(err, ErrResourceBusy) {
		t.Errorf("Schedule() error = %v, want ErrResourceBusy", err)
	}
	if len(second.calls) != 0 {
		t.Errorf("refused activity was touched: %v", second.calls)
	}
	if err := s.Schedule(other); err != nil {
		t.Errorf("Schedule() disjoint error = %v", err)
	}
	if err := s.Schedule(first); !errors.Is(err, ErrAlreadyScheduled) {
		t.Errorf("Schedule() twice error = %v, want ErrAlreadyScheduled", err)
	}

	s.Cancel(first)
	if err := s.Schedule(second); !errors.Is(err, ErrResourceBusy) {
		t.Errorf("claw still held, error = %v", err)
	}
	s.CancelAll()
	if err := s.Schedule(second); err != nil {
		t.Errorf("Schedule() after CancelAll error = %v", err)
	}
}

func TestScheduler_Preempting(t *testing.T) {
	s := NewScheduler(golog.NewTestLogger(t))
	arm := newResource("arm")

	old := &recorder{name: "old", reqs: []Resource{arm}}
	next := &recorder{name: "next", reqs: []Resource{arm}}
	s.Schedule(old)

	if err := s.SchedulePreempting(next); err != nil {
		t.Fatalf("SchedulePreempting() error = %v", err)
	}
	if !equalCalls(old.calls, []string{"init", "interrupted"}) {
		t.Errorf("old calls = %v", old.calls)
	}
	if owner, _ := s.Owner(arm); owner != next {
		t.Errorf("owner = %v, want next", owner)
	}
	if got := s.Active(); len(got) != 1 || got[0] != "next" {
		t.Errorf("Active() = %v", got)
	}
}

func TestScheduler_CancelFromActivity(t *testing.T) {
	s := NewScheduler(golog.NewTestLogger(t))
	victim := &recorder{name: "victim"}
	killer := RunOnce(func() { s.Cancel(victim) })

	s.Schedule(Run(func() {}))
	s.Schedule(victim)
	// RunOnce fires on scheduling, before the next Run.
	s.Schedule(killer)

	s.Run()
	if victim.executed != 0 {
		t.Errorf("cancelled activity executed %d times", victim.executed)
	}
	if !equalCalls(victim.calls, []string{"init", "interrupted"}) {
		t.Errorf("victim calls = %v", victim.calls)
	}
}

func TestSequence(t *testing.T) {
	s := NewScheduler(golog.NewTestLogger(t))
	a := &recorder{name: "a", runs: 1, reqs: []Resource{newResource("x")}}
	b := &recorder{name: "b", runs: 2}
	seq := NewSequence(a, b)

	if got := len(seq.Requirements()); got != 1 {
		t.Errorf("requirements = %d, want 1", got)
	}

	s.Schedule(seq)
	for i := 0; i < 3; i++ {
		s.Run()
	}
	if s.IsScheduled(seq) {
		t.Fatal("sequence still scheduled")
	}
	if !equalCalls(a.calls, []string{"init", "exec", "end"}) {
		t.Errorf("a calls = %v", a.calls)
	}
	if !equalCalls(b.calls, []string{"init", "exec", "exec", "end"}) {
		t.Errorf("b calls = %v", b.calls)
	}
}

func TestSequence_Interrupted(t *testing.T) {
	s := NewScheduler(golog.NewTestLogger(t))
	a := &recorder{name: "a", runs: 1}
	b := &recorder{name: "b"}
	seq := NewSequence(a, b)

	s.Schedule(seq)
	s.Run()
	s.Cancel(seq)

	if !equalCalls(b.calls, []string{"init", "interrupted"}) {
		t.Errorf("b calls = %v", b.calls)
	}
}

func TestParallel(t *testing.T) {
	a := &recorder{name: "a", runs: 1}
	b := &recorder{name: "b", runs: 3}
	p := NewParallel(a, b)

	p.Initialize()
	for i := 0; i < 3; i++ {
		if p.IsFinished() {
			t.Fatalf("finished after %d executes", i)
		}
		p.Execute()
	}
	if !p.IsFinished() {
		t.Error("not finished when every member is")
	}
	if a.executed != 1 {
		t.Errorf("finished member executed %d times", a.executed)
	}
}

func TestParallel_OverlapPanics(t *testing.T) {
	arm := newResource("arm")
	defer func() {
		if recover() == nil {
			t.Error("overlapping requirements did not panic")
		}
	}()
	NewParallel(
		&recorder{reqs: []Resource{arm}},
		&recorder{reqs: []Resource{arm}},
	)
}

func TestWithTimeout(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	inner := &recorder{name: "forever"}
	to := WithTimeout(inner, time.Second, clock)

	to.Initialize()
	to.Execute()
	if to.IsFinished() {
		t.Fatal("finished before the deadline")
	}
	clock.Advance(time.Second)
	if !to.IsFinished() || !to.Expired() {
		t.Fatal("not expired at the deadline")
	}
	to.End(false)
	if last := inner.calls[len(inner.calls)-1]; last != "interrupted" {
		t.Errorf("expired inner ended with %q, want interrupted", last)
	}
}

func TestWaitAndWaitFor(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	w := Wait(500*time.Millisecond, clock)
	w.Initialize()
	if w.IsFinished() {
		t.Error("Wait finished immediately")
	}
	clock.Advance(500 * time.Millisecond)
	if !w.IsFinished() {
		t.Error("Wait not finished after its duration")
	}

	ready := false
	wf := WaitFor(func() bool { return ready })
	if wf.IsFinished() {
		t.Error("WaitFor finished before the predicate")
	}
	ready = true
	if !wf.IsFinished() {
		t.Error("WaitFor not finished after the predicate")
	}
}

func TestRunUntilAndRunOnce(t *testing.T) {
	s := NewScheduler(golog.NewTestLogger(t))

	count := 0
	ru := RunUntil(func() { count++ }, func() bool { return count >= 3 })
	s.Schedule(ru)
	for i := 0; i < 5; i++ {
		s.Run()
	}
	if count != 3 {
		t.Errorf("RunUntil ran %d times, want 3", count)
	}

	ran := false
	once := RunOnce(func() { ran = true })
	s.Schedule(once)
	if !ran {
		t.Error("RunOnce did not run when scheduled")
	}
	s.Run()
	if s.IsScheduled(once) {
		t.Error("RunOnce still scheduled")
	}
}

func TestNameOf(t *testing.T) {
	if got := NameOf(Named("place", RunOnce(func() {}))); got != "place" {
		t.Errorf("NameOf() = %q, want place", got)
	}
	if got := NameOf(&recorder{name: "rec"}); got != "rec" {
		t.Errorf("NameOf() = %q, want rec", got)
	}
}
