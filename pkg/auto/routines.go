package auto

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/gwillem/turretarm/pkg/activity"
	"github.com/gwillem/turretarm/pkg/arm"
	"github.com/gwillem/turretarm/pkg/telemetry"
)

// DefaultTimeout bounds every arm move of a routine.
const DefaultTimeout = 3 * time.Second

// Env is what routines are built from.
type Env struct {
	Arm   *arm.Arm
	Claw  Claw
	Table *telemetry.Table
	Clock activity.Clock
	// Timeout bounds each arm move. Zero means DefaultTimeout.
	Timeout time.Duration
}

func (e Env) timeout() time.Duration {
	if e.Timeout <= 0 {
		return DefaultTimeout
	}
	return e.Timeout
}

func (e Env) validate() error {
	switch {
	case e.Arm == nil:
		return errors.New("routine needs an arm")
	case e.Claw == nil:
		return errors.New("routine needs a claw")
	case e.Table == nil:
		return errors.New("routine needs a telemetry table")
	case e.Clock == nil:
		return errors.New("routine needs a clock")
	}
	return nil
}

// Routine is a named autonomous routine.
type Routine struct {
	Name        string
	Description string
	build       func(Env) (activity.Activity, error)
}

var (
	topCenter = arm.Cell{Level: arm.Top, Column: arm.Middle, Depth: arm.Far}
	topRight  = arm.Cell{Level: arm.Top, Column: arm.Right, Depth: arm.Far}
)

func place(cell arm.Cell) func(Env) (activity.Activity, error) {
	return func(e Env) (activity.Activity, error) {
		goTo, err := arm.GoTowardPosition(e.Arm, cell, e.timeout(), e.Clock)
		if err != nil {
			return nil, err
		}
		return activity.NewSequence(
			EnablePID(e.Arm),
			PlaceGamePiece(e.Claw, goTo, GoHome(e.Arm, e.timeout(), e.Clock), e.Clock),
		), nil
	}
}

func pickup(e Env) activity.Activity {
	return PickupGamePiece(e.Table, e.Arm, e.Claw, AbovePickupPosition, PickupPosition,
		GoHome(e.Arm, e.timeout(), e.Clock), e.timeout(), e.Clock)
}

var routines = []Routine{
	{
		Name:        "calibrate",
		Description: "drive both pivots onto their limits and re-home",
		build: func(e Env) (activity.Activity, error) {
			return arm.NewCalibration(e.Arm), nil
		},
	},
	{
		Name:        "place-top-center",
		Description: "place the preloaded cube on the top center platform",
		build:       place(topCenter),
	},
	{
		Name:        "place-top-right",
		Description: "place the preloaded cone on the top right pole",
		build:       place(topRight),
	},
	{
		Name:        "pickup",
		Description: "pick up a cone from the floor in front of the robot",
		build: func(e Env) (activity.Activity, error) {
			return activity.NewSequence(EnablePID(e.Arm), pickup(e)), nil
		},
	},
	{
		Name:        "calibrate-then-place",
		Description: "calibrate, then place the preloaded cube on the top center platform",
		build: func(e Env) (activity.Activity, error) {
			return CalibrateThenPlace(e.Arm, e.Claw, topCenter, e.timeout(), e.Clock)
		},
	},
	{
		Name:        "double-placement",
		Description: "place the cube top center, pick up a cone, place it top right",
		build: func(e Env) (activity.Activity, error) {
			first, err := place(topCenter)(e)
			if err != nil {
				return nil, err
			}
			second, err := place(topRight)(e)
			if err != nil {
				return nil, err
			}
			return activity.NewSequence(first, pickup(e), second), nil
		},
	},
}

// Routines returns the registered routines sorted by name.
func Routines() []Routine {
	out := make([]Routine, len(routines))
	copy(out, routines)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Build returns the named routine built for env.
func Build(name string, env Env) (activity.Activity, error) {
	if err := env.validate(); err != nil {
		return nil, err
	}
	for _, r := range routines {
		if r.Name != name {
			continue
		}
		act, err := r.build(env)
		if err != nil {
			return nil, errors.Wrapf(err, "build %s", name)
		}
		return activity.Named(name, act), nil
	}
	return nil, errors.Errorf("unknown routine %q", name)
}
