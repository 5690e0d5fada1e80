package arm

import (
	"fmt"
	"math"
	"time"

	"github.com/felixge/pidctrl"

	"github.com/gwillem/turretarm/pkg/hardware"
	"github.com/gwillem/turretarm/pkg/mathutil"
)

// Joint identifies one of the arm's three joints.
type Joint int

const (
	Pivot1 Joint = iota
	Pivot2
	Turret
)

func (j Joint) String() string {
	switch j {
	case Pivot1:
		return "pivot1"
	case Pivot2:
		return "pivot2"
	case Turret:
		return "turret"
	default:
		return fmt.Sprintf("Joint(%d)", int(j))
	}
}

// AllJoints returns the joints in encoder order.
func AllJoints() []Joint {
	return []Joint{Pivot1, Pivot2, Turret}
}

// JointHardware is the motor and encoder driving one joint.
type JointHardware struct {
	Motor   hardware.Motor
	Encoder hardware.Encoder
}

// JointController is a bounded PID loop on one joint's encoder position.
//
// With the integral and derivative gains at zero it is a clamped proportional
// controller.
type JointController struct {
	gains     Gains
	maxOutput float64
	tolerance float64
	period    time.Duration

	pid         *pidctrl.PIDController
	setpoint    float64
	measurement float64
}

// NewJointController creates a controller whose output is clamped to
// [-maxOutput, maxOutput].
func NewJointController(gains Gains, maxOutput, tolerance float64, period time.Duration) *JointController {
	c := &JointController{
		gains:       gains,
		maxOutput:   maxOutput,
		tolerance:   tolerance,
		period:      period,
		setpoint:    math.NaN(),
		measurement: math.NaN(),
	}
	c.Reset()
	return c
}

// Reset clears the integrator and derivative history.
func (c *JointController) Reset() {
	c.pid = pidctrl.NewPIDController(c.gains.Kp, c.gains.Ki, c.gains.Kd)
	c.pid.SetOutputLimits(-c.maxOutput, c.maxOutput)
}

// Calculate returns the output driving measurement toward setpoint, both in
// degrees. It returns NaN, and leaves the controller history untouched, when
// either input is NaN.
func (c *JointController) Calculate(measurement, setpoint float64) float64 {
	c.measurement = measurement
	c.setpoint = setpoint
	if mathutil.AnyNaN(measurement, setpoint) {
		return math.NaN()
	}
	c.pid.Set(setpoint)
	out := c.pid.UpdateDuration(measurement, c.period)
	return mathutil.Clamp(out, -c.maxOutput, c.maxOutput)
}

// AtSetpoint reports whether the last measurement was within tolerance of the
// last setpoint.
func (c *JointController) AtSetpoint() bool {
	return math.Abs(c.setpoint-c.measurement) <= c.tolerance
}

// Error returns the last setpoint minus the last measurement.
func (c *JointController) Error() float64 {
	return c.setpoint - c.measurement
}
