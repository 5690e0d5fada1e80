package arm

import (
	"fmt"
	"time"

	"github.com/golang/geo/r3"

	"github.com/gwillem/turretarm/pkg/activity"
	"github.com/gwillem/turretarm/pkg/kinematics"
)

// GoToward sets the arm's target once and finishes when every joint is within
// AngleDelta of it, or when its optional timeout passes.
type GoToward struct {
	arm      *Arm
	target   r3.Vector
	approach kinematics.Approach

	timeout  time.Duration
	clock    activity.Clock
	deadline time.Time
	timedOut bool
	accepted bool
}

// NewGoToward returns a move to target without a timeout.
func NewGoToward(a *Arm, target r3.Vector, approach kinematics.Approach) *GoToward {
	return &GoToward{arm: a, target: target, approach: approach}
}

// WithTimeout ends the move after d on clock even when the arm has not arrived.
// A timed-out move keeps its target.
func (g *GoToward) WithTimeout(d time.Duration, clock activity.Clock) *GoToward {
	g.timeout = d
	g.clock = clock
	return g
}

// TimedOut reports whether the last run ended on its timeout.
func (g *GoToward) TimedOut() bool {
	return g.timedOut
}

func (g *GoToward) Initialize() {
	g.timedOut = false
	g.accepted = g.arm.SetIntendedPose(g.target, g.approach)
	if !g.accepted {
		g.arm.logger.Warnw("go-toward target unreachable", "target", g.target, "approach", g.approach)
	}
	if g.timeout > 0 {
		g.deadline = g.clock.Now().Add(g.timeout)
	}
}

func (g *GoToward) Execute() {}

func (g *GoToward) IsFinished() bool {
	if !g.accepted || g.arm.AtTarget() {
		return true
	}
	if g.timeout > 0 && !g.clock.Now().Before(g.deadline) {
		g.timedOut = true
		return true
	}
	return false
}

func (g *GoToward) End(interrupted bool) {
	if g.timedOut {
		g.arm.logger.Infow("go-toward timed out", "target", g.target, "current", g.arm.CurrentPose())
	}
	if !interrupted {
		return
	}
	g.arm.StopAllMotors()
	g.arm.ResetCoords()
	g.arm.SetPIDControlState(true)
}

func (g *GoToward) Requirements() []activity.Resource {
	return []activity.Resource{g.arm}
}

func (g *GoToward) String() string {
	return fmt.Sprintf("go-toward (%.1f, %.1f, %.1f)", g.target.X, g.target.Y, g.target.Z)
}
