package control

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/edaniels/golog"

	"github.com/gwillem/turretarm/pkg/activity"
	"github.com/gwillem/turretarm/pkg/arm"
	"github.com/gwillem/turretarm/pkg/hardware"
	"github.com/gwillem/turretarm/pkg/telemetry"
)

func newTestController(t *testing.T, placer func(*arm.Arm) *arm.KeypadPlacer) (*Controller, *arm.Arm, *hardware.Sim) {
	t.Helper()
	pivot := func(start float64) hardware.SimJointConfig {
		return hardware.SimJointConfig{
			DegreesPerRev: 2.88,
			MaxSpeed:      90,
			Wiring:        -1,
			StartAngle:    start,
			HasStop:       true,
			StopAngle:     start,
		}
	}
	sim := hardware.NewSim(hardware.SimConfig{
		Pivot1: pivot(35),
		Pivot2: pivot(20),
		Turret: hardware.SimJointConfig{DegreesPerRev: 1, MaxSpeed: 60, Wiring: 1},
	})
	logger := golog.NewTestLogger(t)
	a, err := arm.New(arm.Hardware{
		Pivot1:      arm.JointHardware{Motor: sim.Pivot1, Encoder: sim.Pivot1},
		Pivot2:      arm.JointHardware{Motor: sim.Pivot2, Encoder: sim.Pivot2},
		Turret:      arm.JointHardware{Motor: sim.Turret, Encoder: sim.Turret},
		Pivot1Limit: sim.Limit1,
		Pivot2Limit: sim.Limit2,
	}, arm.DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("arm.New() error = %v", err)
	}
	cfg := Config{Hz: 50, Plant: sim}
	if placer != nil {
		cfg.Placer = placer(a)
	}
	return NewController(a, activity.NewScheduler(logger), cfg, logger), a, sim
}

func latest(t *testing.T, c *Controller) State {
	t.Helper()
	select {
	case s := <-c.States():
		return s
	default:
		t.Fatal("no state published")
		return State{}
	}
}

func TestController_StepPublishesState(t *testing.T) {
	c, a, _ := newTestController(t, nil)
	c.Step(context.Background(), 20*time.Millisecond)

	s := latest(t, c)
	if math.Abs(s.Angles.Pivot1-35) > 1e-6 || math.Abs(s.Angles.Pivot2-20) > 1e-6 {
		t.Errorf("Angles = %+v, want home", s.Angles)
	}
	if s.Current.Sub(a.StartingCoords()).Norm() > 1e-6 {
		t.Errorf("Current = %v, want %v", s.Current, a.StartingCoords())
	}
	if !s.Limit1 || !s.Limit2 {
		t.Error("pivots resting on their stops should read pressed")
	}
	if s.PID {
		t.Error("arm should boot in open loop")
	}
}

func TestController_StateReplacesStale(t *testing.T) {
	c, _, _ := newTestController(t, nil)
	c.Step(context.Background(), 20*time.Millisecond)
	c.Submit(func(a *arm.Arm, _ *activity.Scheduler) { a.SetPIDControlState(true) })
	c.Step(context.Background(), 20*time.Millisecond)

	if s := latest(t, c); !s.PID {
		t.Error("stale state was not replaced")
	}
	select {
	case <-c.States():
		t.Error("more than one state buffered")
	default:
	}
}

func TestController_SubmitRunsBeforePlant(t *testing.T) {
	c, _, sim := newTestController(t, nil)
	c.Submit(func(a *arm.Arm, _ *activity.Scheduler) { a.SetTurretSpeed(0.5) })
	c.Step(context.Background(), time.Second)

	// 0.5 of 60 deg/s for one second.
	if got := sim.Turret.Angle(); math.Abs(got-30) > 1e-6 {
		t.Errorf("turret angle = %f, want 30", got)
	}
	if got := latest(t, c).Angles.Turret; math.Abs(got-30) > 1e-6 {
		t.Errorf("published turret = %f, want 30", got)
	}
}

func TestController_Schedule(t *testing.T) {
	c, a, _ := newTestController(t, nil)
	hold := activity.Named("hold", activity.Run(func() {}, a))
	other := activity.Named("other", activity.Run(func() {}, a))

	c.Schedule(hold)
	c.Schedule(other)
	c.Step(context.Background(), 20*time.Millisecond)

	if active := latest(t, c).Active; len(active) != 1 || active[0] != "hold" {
		t.Errorf("Active = %v, want [hold]", active)
	}
	var logs []string
	for len(c.Logs()) > 0 {
		logs = append(logs, <-c.Logs())
	}
	if !strings.Contains(strings.Join(logs, "\n"), "Cannot start other") {
		t.Errorf("refusal not logged: %v", logs)
	}
}

func TestController_KeypadPlacer(t *testing.T) {
	table := telemetry.NewTable()
	c, _, _ := newTestController(t, func(a *arm.Arm) *arm.KeypadPlacer {
		return arm.NewKeypadPlacer(a, table, arm.Far)
	})

	table.SetNumber(telemetry.KeyKeypad, 5)
	c.Step(context.Background(), 20*time.Millisecond)

	cell, _ := arm.KeypadCell(5, arm.Far)
	want, _ := arm.PositionFor(cell)
	if got := latest(t, c).Target; got.Sub(want).Norm() > 1e-6 {
		t.Errorf("Target = %v, want %v", got, want)
	}
}

func TestController_StartAndShutdown(t *testing.T) {
	c, a, sim := newTestController(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !c.Running() {
		if time.Now().After(deadline) {
			t.Fatal("loop did not start")
		}
		time.Sleep(time.Millisecond)
	}
	if err := c.Start(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	c.Submit(func(a *arm.Arm, s *activity.Scheduler) {
		a.SetTurretSpeed(0.5)
		s.Schedule(activity.Run(func() {}, a))
	})
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	if c.Running() {
		t.Error("Running() after shutdown")
	}
	if sim.Turret.Get() != 0 {
		t.Error("motors not stopped on shutdown")
	}
	if a.Outputs() != [3]float64{} {
		t.Errorf("Outputs() = %v after shutdown", a.Outputs())
	}
}
