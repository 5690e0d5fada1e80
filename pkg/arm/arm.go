// Package arm implements the turret arm motion core: target bookkeeping through
// the kinematics, a bounded PID loop per joint, limit-switch re-homing and the
// activities that drive the arm (calibration and go-toward moves).
//
// The Arm is not safe for concurrent use. It is owned by the single control loop
// goroutine, which calls Periodic once per tick; other goroutines reach it through
// the loop.
package arm

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/gwillem/turretarm/pkg/hardware"
	"github.com/gwillem/turretarm/pkg/kinematics"
	"github.com/gwillem/turretarm/pkg/mathutil"
)

// Mode is the arm's drive mode.
type Mode int

const (
	// OpenLoop leaves the motors to direct speed commands.
	OpenLoop Mode = iota
	// ClosedLoop drives every joint toward its target angle each tick.
	ClosedLoop
)

func (m Mode) String() string {
	if m == ClosedLoop {
		return "CLOSED_LOOP"
	}
	return "OPEN_LOOP"
}

// Hardware is everything the arm drives or reads.
type Hardware struct {
	Pivot1 JointHardware
	Pivot2 JointHardware
	Turret JointHardware

	// Normally-closed limit switches at the pivots' initial angles.
	Pivot1Limit hardware.DigitalInput
	Pivot2Limit hardware.DigitalInput
}

func (h Hardware) validate() error {
	for _, j := range []JointHardware{h.Pivot1, h.Pivot2, h.Turret} {
		if j.Motor == nil || j.Encoder == nil {
			return errors.New("every joint needs a motor and an encoder")
		}
	}
	if h.Pivot1Limit == nil || h.Pivot2Limit == nil {
		return errors.New("both pivot limit switches are required")
	}
	return nil
}

// Arm coordinates the three joints of the turret arm.
type Arm struct {
	cfg    Config
	logger golog.Logger

	joints      [3]JointHardware
	controllers [3]*JointController
	limits      [2]*LimitReference

	targetAngles   kinematics.Angles
	targetPose     r3.Vector
	currentPose    r3.Vector
	startingCoords r3.Vector
	lastAngles     kinematics.Angles
	mode           Mode
}

// New configures the motors and encoders and returns an arm resting at its home
// pose with PID control off. The encoders are forced to the initial pivot angles
// and a turret angle of zero.
func New(hw Hardware, cfg Config, logger golog.Logger) (*Arm, error) {
	if err := hw.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid arm config")
	}

	a := &Arm{
		cfg:    cfg,
		logger: logger,
		joints: [3]JointHardware{hw.Pivot1, hw.Pivot2, hw.Turret},
		mode:   OpenLoop,
	}

	home := cfg.HomeAngles(0)
	for _, j := range AllJoints() {
		jc := cfg.Joint(j)
		a.joints[j].Motor.SetInverted(jc.Inverted)
		a.joints[j].Encoder.SetPositionConversionFactor(jc.ConversionFactor)
		a.joints[j].Encoder.SetPosition(angleOf(home, j))
		a.controllers[j] = NewJointController(jc.Gains, cfg.MaxOutput, cfg.AngleDelta, cfg.Period)
	}
	a.limits[Pivot1] = NewLimitReference(hw.Pivot1Limit, hw.Pivot1.Encoder, cfg.Arm1InitialAngle, cfg.LimitTolerance)
	a.limits[Pivot2] = NewLimitReference(hw.Pivot2Limit, hw.Pivot2.Encoder, cfg.Arm2InitialAngle, cfg.LimitTolerance)

	a.lastAngles = home
	a.startingCoords = cfg.Geometry.Forward(home)
	a.targetAngles = home
	a.targetPose = a.startingCoords
	a.currentPose = a.startingCoords

	logger.Infow("arm ready", "home", a.startingCoords, "mode", a.mode)
	return a, nil
}

// Name identifies the arm as a scheduler resource.
func (a *Arm) Name() string {
	return "arm"
}

// Config returns the constants the arm was built with.
func (a *Arm) Config() Config {
	return a.cfg
}

// SetIntendedCoordinates sets a new target. Requests equal to the current
// target and requests the kinematics cannot reach are ignored.
func (a *Arm) SetIntendedCoordinates(x, y, z float64, approach kinematics.Approach) {
	a.SetIntendedPose(r3.Vector{X: x, Y: y, Z: z}, approach)
}

// SetIntendedPose is SetIntendedCoordinates for a vector. It reports false when
// the target was unreachable and left unchanged.
func (a *Arm) SetIntendedPose(p r3.Vector, approach kinematics.Approach) bool {
	if p == a.targetPose {
		return true
	}
	angles := a.cfg.Geometry.Inverse(p, approach)
	if angles.HasNaN() {
		a.logger.Debugw("unreachable target ignored", "target", p, "approach", approach)
		return false
	}
	// The turret has no hard stops; turn the short way from where it is.
	turret := a.homeTurret(a.joints[Turret].Encoder.Position())
	angles.Turret = mathutil.NearestAngle(angles.Turret, turret)
	a.setTargetAngles(angles)
	return true
}

// setTargetAngles keeps the target pose the forward image of the target angles.
func (a *Arm) setTargetAngles(angles kinematics.Angles) {
	a.targetAngles = angles
	a.targetPose = a.cfg.Geometry.Forward(angles)
}

// MoveVector shifts the target by (dx, dy, dz) on the side approach branch.
func (a *Arm) MoveVector(dx, dy, dz float64) {
	a.updateCurrentCoordinates()
	t := a.targetPose
	a.SetIntendedCoordinates(t.X+dx, t.Y+dy, t.Z+dz, kinematics.SideApproach)
}

// IntendedCoordinates returns the target pose.
func (a *Arm) IntendedCoordinates() r3.Vector {
	return a.targetPose
}

// TargetAngles returns the target joint angles.
func (a *Arm) TargetAngles() kinematics.Angles {
	return a.targetAngles
}

// CurrentCoordinates reads the encoders and returns the end-effector position.
func (a *Arm) CurrentCoordinates() r3.Vector {
	a.updateCurrentCoordinates()
	return a.currentPose
}

// CurrentPose returns the pose computed on the last tick without touching the
// encoders.
func (a *Arm) CurrentPose() r3.Vector {
	return a.currentPose
}

func (a *Arm) updateCurrentCoordinates() {
	a.currentPose = a.cfg.Geometry.Forward(a.CurrentAnglesDeg())
}

// StartingCoords returns the home pose for the turret angle seen on the last
// tick.
func (a *Arm) StartingCoords() r3.Vector {
	return a.startingCoords
}

// CurrentAnglesDeg reads the three encoders.
func (a *Arm) CurrentAnglesDeg() kinematics.Angles {
	return kinematics.Angles{
		Pivot1: a.joints[Pivot1].Encoder.Position(),
		Pivot2: a.joints[Pivot2].Encoder.Position(),
		Turret: a.joints[Turret].Encoder.Position(),
	}
}

// CurrentAnglesRad reads the three encoders in radians.
func (a *Arm) CurrentAnglesRad() kinematics.Angles {
	return a.CurrentAnglesDeg().Radians()
}

// LastAngles returns the encoder snapshot taken on the last tick.
func (a *Arm) LastAngles() kinematics.Angles {
	return a.lastAngles
}

// ClawPose reads the encoders and returns the claw pose for publishing.
func (a *Arm) ClawPose() ClawPose {
	return NewClawPose(a.CurrentCoordinates())
}

// AtTarget reports whether every joint was within AngleDelta of its target on
// the last tick.
func (a *Arm) AtTarget() bool {
	for _, j := range AllJoints() {
		if !(math.Abs(angleOf(a.targetAngles, j)-angleOf(a.lastAngles, j)) <= a.cfg.AngleDelta) {
			return false
		}
	}
	return true
}

// Outputs returns the last output commanded to each motor.
func (a *Arm) Outputs() [3]float64 {
	var out [3]float64
	for _, j := range AllJoints() {
		out[j] = a.joints[j].Motor.Get()
	}
	return out
}

// Mode returns the drive mode.
func (a *Arm) Mode() Mode {
	return a.mode
}

// PIDControlOn reports whether the arm is in closed loop.
func (a *Arm) PIDControlOn() bool {
	return a.mode == ClosedLoop
}

// SetPIDControlState switches between closed and open loop.
func (a *Arm) SetPIDControlState(on bool) {
	mode := OpenLoop
	if on {
		mode = ClosedLoop
	}
	if mode == a.mode {
		return
	}
	if mode == ClosedLoop {
		for _, c := range a.controllers {
			c.Reset()
		}
	}
	a.mode = mode
	a.logger.Infow("arm mode changed", "mode", mode)
}

// Pivot1LimitPressed reports whether pivot1 rests on its limit switch.
func (a *Arm) Pivot1LimitPressed() bool {
	return a.limits[Pivot1].Pressed()
}

// Pivot2LimitPressed reports whether pivot2 rests on its limit switch.
func (a *Arm) Pivot2LimitPressed() bool {
	return a.limits[Pivot2].Pressed()
}

// SetPivot1Speed drives pivot1 open loop.
func (a *Arm) SetPivot1Speed(speed float64) {
	a.setOutput(Pivot1, speed)
}

// SetPivot2Speed drives pivot2 open loop.
func (a *Arm) SetPivot2Speed(speed float64) {
	a.setOutput(Pivot2, speed)
}

// SetTurretSpeed drives the turret open loop.
func (a *Arm) SetTurretSpeed(speed float64) {
	a.setOutput(Turret, speed)
}

// StopAllMotors zeroes every output.
func (a *Arm) StopAllMotors() {
	for _, j := range AllJoints() {
		a.setOutput(j, 0)
	}
}

func (a *Arm) setOutput(j Joint, output float64) {
	if err := a.joints[j].Motor.Set(output); err != nil {
		a.logger.Warnw("motor write failed", "joint", j, "output", output, "error", err)
	}
}

// Reset turns PID control off and puts the current and target pose back at the
// home pose.
func (a *Arm) Reset() {
	a.SetPIDControlState(false)
	a.ResetCoords()
}

// ResetCoords sets the target angles to home at the live turret angle and the
// current and target pose to the matching home pose.
func (a *Arm) ResetCoords() {
	turret := a.homeTurret(a.joints[Turret].Encoder.Position())
	a.startingCoords = a.cfg.Geometry.Forward(a.cfg.HomeAngles(turret))
	a.snapToStart(turret)
}

// Rehome forces both pivot encoders to their initial angles, then resets the
// coordinates. It is only correct while both pivots rest on their limits.
func (a *Arm) Rehome() {
	a.joints[Pivot1].Encoder.SetPosition(a.cfg.Arm1InitialAngle)
	a.joints[Pivot2].Encoder.SetPosition(a.cfg.Arm2InitialAngle)
	a.lastAngles.Pivot1 = a.cfg.Arm1InitialAngle
	a.lastAngles.Pivot2 = a.cfg.Arm2InitialAngle
	a.ResetCoords()
	a.logger.Infow("arm re-homed", "home", a.startingCoords)
}

func (a *Arm) snapToStart(turret float64) {
	a.targetAngles = a.cfg.HomeAngles(turret)
	a.targetPose = a.startingCoords
	a.currentPose = a.startingCoords
}

// homeTurret falls back to the target turret angle when the reading is invalid.
func (a *Arm) homeTurret(reading float64) float64 {
	if math.IsNaN(reading) {
		return a.targetAngles.Turret
	}
	return reading
}

// Periodic runs one control tick: snapshot the encoders, re-home any pivot
// resting on its limit with a drifted encoder, then drive the joints toward the
// target when in closed loop.
func (a *Arm) Periodic() {
	angles := a.CurrentAnglesDeg()
	turret := a.homeTurret(angles.Turret)
	a.currentPose = a.cfg.Geometry.Forward(angles)
	a.startingCoords = a.cfg.Geometry.Forward(a.cfg.HomeAngles(turret))

	for _, j := range []Joint{Pivot1, Pivot2} {
		limit := a.limits[j]
		reading := angleOf(angles, j)
		if !limit.Check(reading) {
			continue
		}
		a.logger.Infow("limit pressed, encoder re-homed", "joint", j, "encoder", reading, "reference", limit.Angle())
		setAngleOf(&angles, j, limit.Angle())
		a.snapToStart(turret)
	}
	a.lastAngles = angles

	if a.mode != ClosedLoop {
		return
	}
	a.driveTowardTarget(angles)
}

func (a *Arm) driveTowardTarget(angles kinematics.Angles) {
	if angles.HasNaN() || a.targetAngles.HasNaN() {
		a.logger.Debugw("invalid angles, tick skipped", "encoders", angles, "target_angles", a.targetAngles)
		return
	}

	var outputs [3]float64
	for _, j := range AllJoints() {
		outputs[j] = a.controllers[j].Calculate(angleOf(angles, j), angleOf(a.targetAngles, j))
	}
	if mathutil.AnyNaN(outputs[:]...) {
		a.logger.Debugw("invalid output, tick skipped", "outputs", outputs)
		return
	}

	for _, j := range AllJoints() {
		a.setOutput(j, mathutil.Clamp(outputs[j], -a.cfg.MaxOutput, a.cfg.MaxOutput))
	}
	a.logger.Debugw("arm tick",
		"encoders", angles,
		"target_coords", a.targetPose,
		"target_angles", a.targetAngles,
		"outputs", outputs,
	)
}

func angleOf(a kinematics.Angles, j Joint) float64 {
	switch j {
	case Pivot1:
		return a.Pivot1
	case Pivot2:
		return a.Pivot2
	default:
		return a.Turret
	}
}

func setAngleOf(a *kinematics.Angles, j Joint, v float64) {
	switch j {
	case Pivot1:
		a.Pivot1 = v
	case Pivot2:
		a.Pivot2 = v
	default:
		a.Turret = v
	}
}
