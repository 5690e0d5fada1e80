package robot

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/edaniels/golog"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/pkg/errors"

	"github.com/gwillem/turretarm/pkg/mathutil"
)

// BenchConfig holds configuration for the desktop bench rig: three STS servos
// standing in for the arm's motors.
type BenchConfig struct {
	Port        string      `json:"port"`
	Calibration Calibration `json:"calibration,omitempty"`

	// DegreesPerRev presents each servo as a geared motor: the encoder counts
	// servo degrees divided by this value as revolutions.
	DegreesPerRev map[MotorName]float64 `json:"degrees_per_rev,omitempty"`
	// Wiring is +1 or -1 per motor: the direction the servo turns for a positive
	// output on a non-inverted motor.
	Wiring map[MotorName]float64 `json:"wiring,omitempty"`
	// MaxSpeed is the servo speed in degrees per second at full output.
	MaxSpeed float64 `json:"max_speed"`
	// LimitMargin is how close, in degrees, a pivot must come to the low end of
	// its recorded range before its soft limit switch reads pressed.
	LimitMargin float64 `json:"limit_margin"`
}

// IsCalibrated returns true if every bench motor has calibration data.
func (b *BenchConfig) IsCalibrated() bool {
	for _, name := range AllMotors() {
		if _, ok := b.Calibration[name]; !ok {
			return false
		}
	}
	return true
}

// servoIO is the bulk servo access the bench rig needs.
type servoIO interface {
	ReadPositions(ctx context.Context) (map[int]int, error)
	WritePositions(ctx context.Context, positions map[int]int) error
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Close() error
}

type feetechIO struct {
	bus   *feetech.Bus
	group *feetech.ServoGroup
}

func openFeetech(port string, ids []int) (*feetechIO, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}
	return &feetechIO{bus: bus, group: feetech.NewServoGroupByIDs(bus, ids...)}, nil
}

func (f *feetechIO) ReadPositions(ctx context.Context) (map[int]int, error) {
	raw, err := f.group.Positions(ctx)
	if err != nil {
		return nil, err
	}
	positions := make(map[int]int, len(raw))
	for id, pos := range raw {
		positions[id] = pos
	}
	return positions, nil
}

func (f *feetechIO) WritePositions(ctx context.Context, positions map[int]int) error {
	return f.group.SetPositions(ctx, feetech.PositionMap(positions))
}

func (f *feetechIO) Enable(ctx context.Context) error  { return f.group.EnableAll(ctx) }
func (f *feetechIO) Disable(ctx context.Context) error { return f.group.DisableAll(ctx) }
func (f *feetechIO) Close() error                      { return f.bus.Close() }

// BenchJoint is one bench servo seen as a motor and a relative encoder.
type BenchJoint struct {
	cal       MotorCalibration
	degPerRev float64
	wiring    float64

	raw   int
	valid bool

	output   float64
	inverted bool
	factor   float64
	offset   float64
}

func newBenchJoint(cal MotorCalibration, degPerRev, wiring float64) *BenchJoint {
	if degPerRev == 0 {
		degPerRev = 1
	}
	if wiring == 0 {
		wiring = 1
	}
	return &BenchJoint{cal: cal, degPerRev: degPerRev, wiring: wiring, factor: 1}
}

func (j *BenchJoint) Set(output float64) error {
	j.output = mathutil.Clamp(output, -1, 1)
	return nil
}

func (j *BenchJoint) Get() float64 {
	return j.output
}

func (j *BenchJoint) SetInverted(inverted bool) {
	j.inverted = inverted
}

// Position returns NaN until the servo has been read, and after a failed read.
func (j *BenchJoint) Position() float64 {
	if !j.valid {
		return math.NaN()
	}
	return j.revolutions()*j.factor + j.offset
}

func (j *BenchJoint) SetPosition(position float64) {
	if !j.valid {
		return
	}
	j.offset = position - j.revolutions()*j.factor
}

func (j *BenchJoint) SetPositionConversionFactor(factor float64) {
	j.factor = factor
}

// Degrees returns the servo angle from its homing offset.
func (j *BenchJoint) Degrees() float64 {
	return j.cal.Degrees(j.raw)
}

func (j *BenchJoint) revolutions() float64 {
	return j.Degrees() / j.degPerRev
}

func (j *BenchJoint) direction() float64 {
	if j.inverted {
		return -j.wiring
	}
	return j.wiring
}

// lowEnd returns the smallest servo angle in the recorded range.
func (j *BenchJoint) lowEnd() float64 {
	return math.Min(j.cal.Degrees(j.cal.RangeMin), j.cal.Degrees(j.cal.RangeMax))
}

// BenchLimit is a soft normally-closed switch at the low end of a servo's
// recorded range.
type BenchLimit struct {
	joint  *BenchJoint
	margin float64
}

func (l *BenchLimit) Get() bool {
	if !l.joint.valid {
		return true
	}
	return l.joint.Degrees() > l.joint.lowEnd()+l.margin
}

// BenchArm is the bench rig. Step reads every servo with one sync read, then
// turns each commanded output into a position step with one sync write.
type BenchArm struct {
	io       servoIO
	logger   golog.Logger
	maxSpeed float64

	Pivot1 *BenchJoint
	Pivot2 *BenchJoint
	Turret *BenchJoint

	Limit1 *BenchLimit
	Limit2 *BenchLimit
}

// OpenBenchArm connects to the bench rig's servo bus.
func OpenBenchArm(cfg BenchConfig, logger golog.Logger) (*BenchArm, error) {
	if !cfg.IsCalibrated() {
		return nil, errors.New("bench rig is not calibrated, run setup first")
	}
	io, err := openFeetech(cfg.Port, cfg.Calibration.MotorIDs())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bench rig on %s", cfg.Port)
	}
	return newBenchArm(io, cfg, logger), nil
}

func newBenchArm(io servoIO, cfg BenchConfig, logger golog.Logger) *BenchArm {
	joint := func(name MotorName) *BenchJoint {
		return newBenchJoint(cfg.Calibration[name], cfg.DegreesPerRev[name], cfg.Wiring[name])
	}
	b := &BenchArm{
		io:       io,
		logger:   logger,
		maxSpeed: cfg.MaxSpeed,
		Pivot1:   joint(Pivot1Motor),
		Pivot2:   joint(Pivot2Motor),
		Turret:   joint(TurretMotor),
	}
	b.Limit1 = &BenchLimit{joint: b.Pivot1, margin: cfg.LimitMargin}
	b.Limit2 = &BenchLimit{joint: b.Pivot2, margin: cfg.LimitMargin}
	return b
}

func (b *BenchArm) joints() []*BenchJoint {
	return []*BenchJoint{b.Pivot1, b.Pivot2, b.Turret}
}

// Enable enables torque and takes the first reading.
func (b *BenchArm) Enable(ctx context.Context) error {
	if err := b.io.Enable(ctx); err != nil {
		return errors.Wrap(err, "enable bench servos")
	}
	return b.read(ctx)
}

// Close disables torque and closes the bus.
func (b *BenchArm) Close() error {
	if err := b.io.Disable(context.Background()); err != nil {
		b.logger.Warnw("failed to disable bench servos", "error", err)
	}
	return b.io.Close()
}

func (b *BenchArm) read(ctx context.Context) error {
	raw, err := b.io.ReadPositions(ctx)
	if err != nil {
		for _, j := range b.joints() {
			j.valid = false
		}
		return errors.Wrap(err, "read bench positions")
	}
	for _, j := range b.joints() {
		j.raw, j.valid = raw[j.cal.ID]
	}
	return nil
}

// Step reads the servos and moves each one by its output over dt.
func (b *BenchArm) Step(ctx context.Context, dt time.Duration) error {
	if err := b.read(ctx); err != nil {
		return err
	}
	targets := make(map[int]int, 3)
	for _, j := range b.joints() {
		if !j.valid {
			continue
		}
		deg := j.Degrees() + j.output*j.direction()*b.maxSpeed*dt.Seconds()
		targets[j.cal.ID] = j.cal.Raw(deg)
	}
	if err := b.io.WritePositions(ctx, targets); err != nil {
		return errors.Wrap(err, "write bench positions")
	}
	return nil
}
