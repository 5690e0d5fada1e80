// Package activity runs cooperative, tick-driven activities that claim resources
// exclusively.
//
// An activity is initialized when scheduled, executed once per tick, and ended
// either when it reports finished or when it is cancelled. Everything runs on the
// control loop goroutine; nothing in this package blocks.
package activity

import (
	"fmt"
	"time"
)

// Resource is something at most one scheduled activity may use at a time.
type Resource interface {
	Name() string
}

// Activity is a unit of cooperative work.
type Activity interface {
	Initialize()
	Execute()
	// End is called once after IsFinished returns true, with interrupted false,
	// or when the activity is cancelled, with interrupted true.
	End(interrupted bool)
	IsFinished() bool
	Requirements() []Resource
}

// Func is an activity assembled from optional callbacks. A nil Finished never
// finishes.
type Func struct {
	Label    string
	OnInit   func()
	OnExec   func()
	OnEnd    func(interrupted bool)
	Finished func() bool
	Requires []Resource
}

func (f *Func) Initialize() {
	if f.OnInit != nil {
		f.OnInit()
	}
}

func (f *Func) Execute() {
	if f.OnExec != nil {
		f.OnExec()
	}
}

func (f *Func) End(interrupted bool) {
	if f.OnEnd != nil {
		f.OnEnd(interrupted)
	}
}

func (f *Func) IsFinished() bool {
	return f.Finished != nil && f.Finished()
}

func (f *Func) Requirements() []Resource {
	return f.Requires
}

func (f *Func) String() string {
	if f.Label == "" {
		return "func"
	}
	return f.Label
}

// RunOnce runs fn when scheduled and finishes immediately.
func RunOnce(fn func(), reqs ...Resource) *Func {
	return &Func{
		Label:    "run-once",
		OnInit:   fn,
		Finished: func() bool { return true },
		Requires: reqs,
	}
}

// Run runs fn every tick until cancelled.
func Run(fn func(), reqs ...Resource) *Func {
	return &Func{Label: "run", OnExec: fn, Requires: reqs}
}

// RunUntil runs fn every tick until done reports true.
func RunUntil(fn func(), done func() bool, reqs ...Resource) *Func {
	return &Func{Label: "run-until", OnExec: fn, Finished: done, Requires: reqs}
}

// WaitFor finishes once pred reports true.
func WaitFor(pred func() bool) *Func {
	return &Func{Label: "wait-for", Finished: pred}
}

// Wait finishes once d has passed on clock since it was scheduled.
func Wait(d time.Duration, clock Clock) *Func {
	var deadline time.Time
	return &Func{
		Label:    fmt.Sprintf("wait %v", d),
		OnInit:   func() { deadline = clock.Now().Add(d) },
		Finished: func() bool { return !clock.Now().Before(deadline) },
	}
}

type named struct {
	Activity
	name string
}

func (n *named) String() string {
	return n.name
}

// Named labels a for logs and Scheduler.Active.
func Named(name string, a Activity) Activity {
	return &named{Activity: a, name: name}
}

// NameOf returns the label of a, falling back to its type.
func NameOf(a Activity) string {
	if s, ok := a.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", a)
}
