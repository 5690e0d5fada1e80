// Package auto composes autonomous routines from arm activities.
package auto

import (
	"time"

	"github.com/golang/geo/r3"

	"github.com/gwillem/turretarm/pkg/activity"
	"github.com/gwillem/turretarm/pkg/arm"
	"github.com/gwillem/turretarm/pkg/kinematics"
	"github.com/gwillem/turretarm/pkg/telemetry"
)

// Pauses around claw actions.
const (
	PlaceSettle  = 200 * time.Millisecond
	PickupSettle = 500 * time.Millisecond
)

// ConePipeline is the vision pipeline that detects cones.
const ConePipeline = 1

// Pickup poses in front of the robot, on the floor and 10 inches above it.
var (
	PickupPosition      = r3.Vector{X: 30, Y: 5, Z: 0}
	AbovePickupPosition = r3.Vector{X: 30, Y: 15, Z: 0}
)

func setClaw(claw Claw, opened bool) activity.Activity {
	label := "close-claw"
	if opened {
		label = "open-claw"
	}
	return activity.Named(label, activity.RunOnce(func() { claw.SetOpened(opened) }, claw))
}

// EnablePID switches the arm to closed loop.
func EnablePID(a *arm.Arm) activity.Activity {
	return activity.Named("enable-pid", activity.RunOnce(func() { a.SetPIDControlState(true) }, a))
}

// GoHome moves the arm back to its home pose at the current turret angle and
// finishes when it arrives or after timeout.
func GoHome(a *arm.Arm, timeout time.Duration, clock activity.Clock) activity.Activity {
	var act activity.Activity = activity.NewSequence(
		activity.RunOnce(a.ResetCoords, a),
		activity.WaitFor(a.AtTarget),
	)
	if timeout > 0 {
		act = activity.WithTimeout(act, timeout, clock)
	}
	return activity.Named("go-home", act)
}

// PlaceGamePiece closes the claw on the preloaded piece, runs goTo, drops the
// piece and runs goHome.
func PlaceGamePiece(claw Claw, goTo, goHome activity.Activity, clock activity.Clock) activity.Activity {
	return activity.Named("place-game-piece", activity.NewSequence(
		setClaw(claw, false),
		goTo,
		activity.Wait(PlaceSettle, clock),
		setClaw(claw, true),
		activity.Wait(PlaceSettle, clock),
		goHome,
	))
}

// PickupGamePiece moves above the pickup pose, switches the vision pipeline to
// cones, lowers onto the piece, grips it and returns to home.
func PickupGamePiece(table *telemetry.Table, a *arm.Arm, claw Claw, above, pickup r3.Vector, home activity.Activity, timeout time.Duration, clock activity.Clock) activity.Activity {
	goTo := func(p r3.Vector) activity.Activity {
		g := arm.NewGoToward(a, p, kinematics.SideApproach)
		if timeout > 0 {
			g.WithTimeout(timeout, clock)
		}
		return g
	}
	return activity.Named("pickup-game-piece", activity.NewSequence(
		setClaw(claw, true),
		goTo(above),
		activity.RunOnce(func() { table.SetPipeline(ConePipeline) }),
		goTo(pickup),
		activity.Wait(PickupSettle, clock),
		setClaw(claw, false),
		activity.Wait(PickupSettle, clock),
		home,
	))
}

// CalibrateThenPlace calibrates the arm against its limits, then places the
// preloaded piece at cell.
func CalibrateThenPlace(a *arm.Arm, claw Claw, cell arm.Cell, timeout time.Duration, clock activity.Clock) (activity.Activity, error) {
	goTo, err := arm.GoTowardPosition(a, cell, timeout, clock)
	if err != nil {
		return nil, err
	}
	return activity.Named("calibrate-then-place", activity.NewSequence(
		arm.NewCalibration(a),
		PlaceGamePiece(claw, goTo, GoHome(a, timeout, clock), clock),
	)), nil
}
