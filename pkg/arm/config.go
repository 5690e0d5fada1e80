package arm

import (
	"time"

	"github.com/pkg/errors"

	"github.com/gwillem/turretarm/pkg/kinematics"
)

// Gains are the PID gains of one joint controller.
type Gains struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`
}

// JointConfig holds the per-joint motor and controller settings.
type JointConfig struct {
	Gains            Gains   `json:"gains"`
	ConversionFactor float64 `json:"conversion_factor"` // degrees per motor revolution
	Inverted         bool    `json:"inverted"`
}

// Config holds the arm constants.
type Config struct {
	Geometry kinematics.Geometry `json:"geometry"`

	Arm1InitialAngle float64 `json:"arm1_initial_angle"`
	Arm2InitialAngle float64 `json:"arm2_initial_angle"`

	// AngleDelta is the on-target tolerance in degrees.
	AngleDelta float64 `json:"angle_delta"`
	// MaxOutput bounds every output written by the PID path to [-MaxOutput, MaxOutput].
	MaxOutput float64 `json:"max_output"`
	// LimitTolerance is how far an encoder may drift from its initial angle while
	// the pivot's limit switch is pressed before it is snapped back.
	LimitTolerance   float64 `json:"limit_tolerance"`
	CalibrationSpeed float64 `json:"calibration_speed"`

	Pivot1 JointConfig `json:"pivot1"`
	Pivot2 JointConfig `json:"pivot2"`
	Turret JointConfig `json:"turret"`

	// Period is the control tick, set from the loop rate.
	Period time.Duration `json:"-"`
}

// DefaultConfig returns the constants of the competition arm.
func DefaultConfig() Config {
	return Config{
		Geometry: kinematics.Geometry{
			Limb1Length: 38,
			Limb2Length: 33,
			BaseHeight:  8.5,
		},
		Arm1InitialAngle: 35,
		Arm2InitialAngle: 20,
		AngleDelta:       1.5,
		MaxOutput:        0.1,
		LimitTolerance:   0.1,
		CalibrationSpeed: -0.2,
		Pivot1: JointConfig{
			Gains:            Gains{Kp: 1.69e-2},
			ConversionFactor: 2.88, // 125:1 gearbox
			Inverted:         true,
		},
		Pivot2: JointConfig{
			Gains:            Gains{Kp: 9.6e-3},
			ConversionFactor: 2.88, // 125:1 gearbox
			Inverted:         true,
		},
		Turret: JointConfig{
			Gains:            Gains{Kp: 9.6e-3},
			ConversionFactor: 1, // 60:1 gearbox into the lazy susan drive wheel
			Inverted:         false,
		},
		Period: 20 * time.Millisecond,
	}
}

// Joint returns the settings for j.
func (c Config) Joint(j Joint) JointConfig {
	switch j {
	case Pivot1:
		return c.Pivot1
	case Pivot2:
		return c.Pivot2
	default:
		return c.Turret
	}
}

// HomeAngles returns the initial pivot angles with the given turret angle.
func (c Config) HomeAngles(turret float64) kinematics.Angles {
	return kinematics.Angles{
		Pivot1: c.Arm1InitialAngle,
		Pivot2: c.Arm2InitialAngle,
		Turret: turret,
	}
}

// Validate checks the constants for values the arm cannot run with.
func (c Config) Validate() error {
	if c.Geometry.Limb1Length <= 0 || c.Geometry.Limb2Length <= 0 {
		return errors.New("limb lengths must be positive")
	}
	if c.MaxOutput <= 0 || c.MaxOutput > 1 {
		return errors.Errorf("max output %v must be in (0, 1]", c.MaxOutput)
	}
	if c.AngleDelta <= 0 {
		return errors.Errorf("angle delta %v must be positive", c.AngleDelta)
	}
	if c.CalibrationSpeed >= 0 || c.CalibrationSpeed < -1 {
		return errors.Errorf("calibration speed %v must be in [-1, 0)", c.CalibrationSpeed)
	}
	for _, j := range AllJoints() {
		if c.Joint(j).ConversionFactor == 0 {
			return errors.Errorf("%s conversion factor must be non-zero", j)
		}
	}
	if c.Period <= 0 {
		return errors.Errorf("period %v must be positive", c.Period)
	}
	home := c.Geometry.Inverse(c.Geometry.Forward(c.HomeAngles(0)), kinematics.SideApproach)
	if home.HasNaN() {
		return errors.New("home pose is not reachable on the side approach branch")
	}
	return nil
}
