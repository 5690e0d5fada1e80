package hardware

import (
	"context"
	"math"
	"time"

	"github.com/gwillem/turretarm/pkg/mathutil"
)

// SimJointConfig describes one simulated joint.
type SimJointConfig struct {
	// DegreesPerRev is the joint travel per motor revolution (the gear ratio).
	DegreesPerRev float64 `json:"degrees_per_rev"`
	// MaxSpeed is the joint speed in degrees per second at full output.
	MaxSpeed float64 `json:"max_speed"`
	// Wiring is +1 or -1: the direction the joint moves for a positive output on a
	// non-inverted motor.
	Wiring     float64 `json:"wiring"`
	StartAngle float64 `json:"start_angle"`
	// HasStop enables a hard stop at StopAngle with a normally-closed switch that
	// opens when the joint rests on it.
	HasStop   bool    `json:"has_stop"`
	StopAngle float64 `json:"stop_angle"`
}

// SimConfig describes the simulated arm plant.
type SimConfig struct {
	Pivot1 SimJointConfig `json:"pivot1"`
	Pivot2 SimJointConfig `json:"pivot2"`
	Turret SimJointConfig `json:"turret"`
}

// SimJoint is a simulated motor, its relative encoder and the joint it drives.
type SimJoint struct {
	cfg SimJointConfig

	angle     float64 // true joint angle, degrees
	output    float64
	inverted  bool
	factor    float64
	offset    float64
	failReads int
}

// NewSimJoint creates a joint resting at its start angle with a unit conversion
// factor.
func NewSimJoint(cfg SimJointConfig) *SimJoint {
	if cfg.DegreesPerRev == 0 {
		cfg.DegreesPerRev = 1
	}
	if cfg.Wiring == 0 {
		cfg.Wiring = 1
	}
	j := &SimJoint{cfg: cfg, factor: 1}
	j.SetAngle(cfg.StartAngle)
	return j
}

func (j *SimJoint) Set(output float64) error {
	j.output = mathutil.Clamp(output, -1, 1)
	return nil
}

func (j *SimJoint) Get() float64 {
	return j.output
}

func (j *SimJoint) SetInverted(inverted bool) {
	j.inverted = inverted
}

// Position returns the encoder reading, or NaN while injected read faults remain.
func (j *SimJoint) Position() float64 {
	if j.failReads > 0 {
		j.failReads--
		return math.NaN()
	}
	return j.revolutions()*j.factor + j.offset
}

func (j *SimJoint) SetPosition(position float64) {
	j.offset = position - j.revolutions()*j.factor
}

func (j *SimJoint) SetPositionConversionFactor(factor float64) {
	j.factor = factor
}

// Angle returns the true joint angle.
func (j *SimJoint) Angle() float64 {
	return j.angle
}

// SetAngle moves the joint without touching the encoder offset, so the encoder
// reading follows the move.
func (j *SimJoint) SetAngle(angle float64) {
	if j.cfg.HasStop && angle < j.cfg.StopAngle {
		angle = j.cfg.StopAngle
	}
	j.angle = angle
}

// FailReads makes the next n encoder reads return NaN.
func (j *SimJoint) FailReads(n int) {
	j.failReads = n
}

// AtStop reports whether the joint rests on its hard stop.
func (j *SimJoint) AtStop() bool {
	return j.cfg.HasStop && j.angle <= j.cfg.StopAngle+1e-9
}

func (j *SimJoint) revolutions() float64 {
	return j.angle / j.cfg.DegreesPerRev
}

func (j *SimJoint) step(dt float64) {
	dir := j.cfg.Wiring
	if j.inverted {
		dir = -dir
	}
	j.SetAngle(j.angle + j.output*dir*j.cfg.MaxSpeed*dt)
}

// SimLimit is the normally-closed switch on a simulated joint's hard stop. Get
// returns true while the switch is not pressed.
type SimLimit struct {
	joint  *SimJoint
	forced *bool
}

func (l *SimLimit) Get() bool {
	if l.forced != nil {
		return !*l.forced
	}
	return !l.joint.AtStop()
}

// Force overrides the switch state until Release is called.
func (l *SimLimit) Force(pressed bool) {
	l.forced = &pressed
}

// Release returns the switch to following the joint's hard stop.
func (l *SimLimit) Release() {
	l.forced = nil
}

// SimSolenoid records the state of a simulated digital output.
type SimSolenoid struct {
	on bool
}

func (s *SimSolenoid) Set(on bool) error {
	s.on = on
	return nil
}

// On returns the last state written.
func (s *SimSolenoid) On() bool {
	return s.on
}

// Sim is a simulated turret arm: three joints, the two pivot limit switches and a
// claw solenoid.
type Sim struct {
	Pivot1 *SimJoint
	Pivot2 *SimJoint
	Turret *SimJoint

	Limit1 *SimLimit
	Limit2 *SimLimit

	Claw *SimSolenoid
}

// NewSim builds a simulated plant.
func NewSim(cfg SimConfig) *Sim {
	s := &Sim{
		Pivot1: NewSimJoint(cfg.Pivot1),
		Pivot2: NewSimJoint(cfg.Pivot2),
		Turret: NewSimJoint(cfg.Turret),
		Claw:   &SimSolenoid{},
	}
	s.Limit1 = &SimLimit{joint: s.Pivot1}
	s.Limit2 = &SimLimit{joint: s.Pivot2}
	return s
}

// Step integrates every joint over dt.
func (s *Sim) Step(ctx context.Context, dt time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	seconds := dt.Seconds()
	s.Pivot1.step(seconds)
	s.Pivot2.step(seconds)
	s.Turret.step(seconds)
	return nil
}
