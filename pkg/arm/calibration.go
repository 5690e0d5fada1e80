package arm

import (
	"fmt"

	"github.com/gwillem/turretarm/pkg/activity"
)

// CalibrationState is a step of the homing procedure.
type CalibrationState int

const (
	CalibPivot2 CalibrationState = iota
	CalibPivot1
	CalibFinish
)

func (s CalibrationState) String() string {
	switch s {
	case CalibPivot2:
		return "CALIB_PIVOT_2"
	case CalibPivot1:
		return "CALIB_PIVOT_1"
	case CalibFinish:
		return "FINISH"
	default:
		return fmt.Sprintf("CalibrationState(%d)", int(s))
	}
}

// Calibration homes the arm by driving pivot2, then pivot1, down onto their limit
// switches at the calibration speed. It holds the arm exclusively and leaves it
// in closed loop at the home pose.
type Calibration struct {
	arm   *Arm
	state CalibrationState
}

// NewCalibration returns the homing activity for a.
func NewCalibration(a *Arm) *Calibration {
	return &Calibration{arm: a, state: CalibPivot2}
}

// State returns the current step.
func (c *Calibration) State() CalibrationState {
	return c.state
}

func (c *Calibration) Initialize() {
	c.arm.SetPIDControlState(false)
	c.arm.StopAllMotors()
	c.state = CalibPivot2
	c.arm.logger.Infow("calibration started", "state", c.state)
}

func (c *Calibration) Execute() {
	speed := c.arm.cfg.CalibrationSpeed
	switch c.state {
	case CalibPivot2:
		if c.arm.Pivot2LimitPressed() {
			c.arm.SetPivot2Speed(0)
			c.transition(CalibPivot1)
			return
		}
		c.arm.SetPivot2Speed(speed)
	case CalibPivot1:
		if c.arm.Pivot1LimitPressed() {
			c.arm.SetPivot1Speed(0)
			c.transition(CalibFinish)
			return
		}
		c.arm.SetPivot1Speed(speed)
	case CalibFinish:
		c.arm.SetPivot1Speed(0)
		c.arm.SetPivot2Speed(0)
	}
}

func (c *Calibration) transition(next CalibrationState) {
	c.arm.logger.Infow("calibration state changed", "from", c.state, "to", next)
	c.state = next
}

func (c *Calibration) End(interrupted bool) {
	c.arm.StopAllMotors()
	if interrupted {
		c.arm.ResetCoords()
	} else {
		c.arm.Rehome()
	}
	c.arm.SetPIDControlState(true)
	c.arm.logger.Infow("calibration ended", "state", c.state, "interrupted", interrupted)
}

func (c *Calibration) IsFinished() bool {
	return c.state == CalibFinish || (c.arm.Pivot1LimitPressed() && c.arm.Pivot2LimitPressed())
}

func (c *Calibration) Requirements() []activity.Resource {
	return []activity.Resource{c.arm}
}

func (c *Calibration) String() string {
	return "calibration"
}
