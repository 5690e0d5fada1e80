package activity

import (
	"fmt"
	"time"
)

// Sequence runs activities one after another. It requires the union of their
// requirements for its whole run.
type Sequence struct {
	acts  []Activity
	index int
	reqs  []Resource
}

// NewSequence returns a sequence of acts.
func NewSequence(acts ...Activity) *Sequence {
	return &Sequence{acts: acts, index: len(acts), reqs: union(acts)}
}

func (s *Sequence) Initialize() {
	s.index = 0
	if len(s.acts) > 0 {
		s.acts[0].Initialize()
	}
}

func (s *Sequence) Execute() {
	if s.index >= len(s.acts) {
		return
	}
	cur := s.acts[s.index]
	cur.Execute()
	if !cur.IsFinished() {
		return
	}
	cur.End(false)
	s.index++
	if s.index < len(s.acts) {
		s.acts[s.index].Initialize()
	}
}

func (s *Sequence) End(interrupted bool) {
	if interrupted && s.index < len(s.acts) {
		s.acts[s.index].End(true)
	}
}

func (s *Sequence) IsFinished() bool {
	return s.index >= len(s.acts)
}

func (s *Sequence) Requirements() []Resource {
	return s.reqs
}

// Current returns the index of the running step.
func (s *Sequence) Current() int {
	return s.index
}

func (s *Sequence) String() string {
	return fmt.Sprintf("sequence(%d)", len(s.acts))
}

// Parallel runs activities side by side and finishes when all of them have.
type Parallel struct {
	acts    []Activity
	running []bool
	reqs    []Resource
}

// NewParallel returns acts grouped to run together. It panics when two of them
// share a requirement, since they could never be scheduled together.
func NewParallel(acts ...Activity) *Parallel {
	seen := make(map[Resource]bool)
	for _, a := range acts {
		for _, r := range a.Requirements() {
			if seen[r] {
				panic(fmt.Sprintf("activity: parallel members both require %s", r.Name()))
			}
			seen[r] = true
		}
	}
	return &Parallel{acts: acts, running: make([]bool, len(acts)), reqs: union(acts)}
}

func (p *Parallel) Initialize() {
	for i, a := range p.acts {
		a.Initialize()
		p.running[i] = true
	}
}

func (p *Parallel) Execute() {
	for i, a := range p.acts {
		if !p.running[i] {
			continue
		}
		a.Execute()
		if a.IsFinished() {
			a.End(false)
			p.running[i] = false
		}
	}
}

func (p *Parallel) End(interrupted bool) {
	if !interrupted {
		return
	}
	for i, a := range p.acts {
		if p.running[i] {
			a.End(true)
			p.running[i] = false
		}
	}
}

func (p *Parallel) IsFinished() bool {
	for _, r := range p.running {
		if r {
			return false
		}
	}
	return true
}

func (p *Parallel) Requirements() []Resource {
	return p.reqs
}

func (p *Parallel) String() string {
	return fmt.Sprintf("parallel(%d)", len(p.acts))
}

// Timeout ends the wrapped activity as interrupted when it runs past a deadline.
type Timeout struct {
	inner    Activity
	d        time.Duration
	clock    Clock
	deadline time.Time
	expired  bool
}

// WithTimeout bounds a to d on clock.
func WithTimeout(a Activity, d time.Duration, clock Clock) *Timeout {
	return &Timeout{inner: a, d: d, clock: clock}
}

func (t *Timeout) Initialize() {
	t.deadline = t.clock.Now().Add(t.d)
	t.expired = false
	t.inner.Initialize()
}

func (t *Timeout) Execute() {
	t.inner.Execute()
}

func (t *Timeout) End(interrupted bool) {
	t.inner.End(interrupted || t.expired)
}

func (t *Timeout) IsFinished() bool {
	if t.inner.IsFinished() {
		return true
	}
	if !t.clock.Now().Before(t.deadline) {
		t.expired = true
		return true
	}
	return false
}

// Expired reports whether the deadline ended the run.
func (t *Timeout) Expired() bool {
	return t.expired
}

func (t *Timeout) Requirements() []Resource {
	return t.inner.Requirements()
}

func (t *Timeout) String() string {
	return fmt.Sprintf("%s (timeout %v)", NameOf(t.inner), t.d)
}

func union(acts []Activity) []Resource {
	var out []Resource
	seen := make(map[Resource]bool)
	for _, a := range acts {
		for _, r := range a.Requirements() {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	return out
}
