package hardware

import (
	"context"
	"math"
	"testing"
	"time"
)

func testSimConfig() SimConfig {
	pivot := SimJointConfig{
		DegreesPerRev: 2.88,
		MaxSpeed:      270,
		Wiring:        -1,
		StartAngle:    60,
		HasStop:       true,
		StopAngle:     35,
	}
	return SimConfig{
		Pivot1: pivot,
		Pivot2: pivot,
		Turret: SimJointConfig{DegreesPerRev: 1, MaxSpeed: 180, Wiring: 1},
	}
}

func TestSimJoint_EncoderFollowsConversionFactor(t *testing.T) {
	j := NewSimJoint(testSimConfig().Pivot1)
	j.SetPositionConversionFactor(2.88)

	if got := j.Position(); math.Abs(got-60) > 1e-9 {
		t.Errorf("Position() = %f, want 60", got)
	}

	j.SetPosition(10)
	if got := j.Position(); math.Abs(got-10) > 1e-9 {
		t.Errorf("Position() after SetPosition(10) = %f, want 10", got)
	}

	j.SetAngle(70)
	if got := j.Position(); math.Abs(got-20) > 1e-9 {
		t.Errorf("Position() after moving 10 degrees = %f, want 20", got)
	}
}

func TestSimJoint_InvertedWiring(t *testing.T) {
	sim := NewSim(testSimConfig())
	sim.Pivot1.SetInverted(true)
	sim.Pivot1.Set(0.1)

	if err := sim.Step(context.Background(), time.Second); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	// Wiring -1 flipped by the inverted flag: positive output raises the joint.
	if got := sim.Pivot1.Angle(); math.Abs(got-87) > 1e-9 {
		t.Errorf("Angle() = %f, want 87", got)
	}

	sim.Pivot1.SetInverted(false)
	sim.Step(context.Background(), time.Second)
	if got := sim.Pivot1.Angle(); math.Abs(got-60) > 1e-9 {
		t.Errorf("Angle() = %f, want 60", got)
	}
}

func TestSimJoint_HardStopAndLimit(t *testing.T) {
	sim := NewSim(testSimConfig())
	sim.Pivot2.SetInverted(true)

	if !sim.Limit2.Get() {
		t.Fatal("limit reads pressed before reaching the stop")
	}

	sim.Pivot2.Set(-1)
	sim.Step(context.Background(), time.Second)

	if got := sim.Pivot2.Angle(); got != 35 {
		t.Errorf("Angle() = %f, want hard stop at 35", got)
	}
	if sim.Limit2.Get() {
		t.Error("normally-closed limit should read false when pressed")
	}
	if !sim.Limit1.Get() {
		t.Error("untouched limit1 should read true")
	}
}

func TestSimLimit_Force(t *testing.T) {
	sim := NewSim(testSimConfig())

	sim.Limit1.Force(true)
	if sim.Limit1.Get() {
		t.Error("forced pressed limit should read false")
	}
	sim.Limit1.Release()
	if !sim.Limit1.Get() {
		t.Error("released limit should follow the joint")
	}
}

func TestSimJoint_FailReads(t *testing.T) {
	j := NewSimJoint(testSimConfig().Turret)
	j.FailReads(2)

	for i := 0; i < 2; i++ {
		if got := j.Position(); !math.IsNaN(got) {
			t.Errorf("read %d = %f, want NaN", i, got)
		}
	}
	if got := j.Position(); math.IsNaN(got) {
		t.Error("read after faults should be valid")
	}
}

func TestSimJoint_OutputClamped(t *testing.T) {
	j := NewSimJoint(testSimConfig().Turret)
	j.Set(3)
	if got := j.Get(); got != 1 {
		t.Errorf("Get() = %f, want 1", got)
	}
}

func TestSim_StepCancelled(t *testing.T) {
	sim := NewSim(testSimConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sim.Step(ctx, time.Second); err == nil {
		t.Error("Step() with cancelled context should fail")
	}
}

func TestSimSolenoid(t *testing.T) {
	s := &SimSolenoid{}
	s.Set(true)
	if !s.On() {
		t.Error("On() = false after Set(true)")
	}
}
