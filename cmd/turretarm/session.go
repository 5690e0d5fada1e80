package main

import (
	"context"
	"fmt"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/gwillem/turretarm/pkg/activity"
	"github.com/gwillem/turretarm/pkg/arm"
	"github.com/gwillem/turretarm/pkg/auto"
	"github.com/gwillem/turretarm/pkg/control"
	"github.com/gwillem/turretarm/pkg/robot"
	"github.com/gwillem/turretarm/pkg/telemetry"
)

// session is an opened rig with the arm, scheduler and control loop on top.
type session struct {
	cfg    *robot.Config
	logger golog.Logger
	rig    *robot.Rig
	arm    *arm.Arm
	sched  *activity.Scheduler
	table  *telemetry.Table
	feed   *telemetry.SerialFeed
	claw   *auto.SolenoidClaw
	ctrl   *control.Controller
}

func openSession(ctx context.Context, cfg *robot.Config, logger golog.Logger) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	rig, err := robot.Open(ctx, cfg, logger.Named("robot"))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s backend", cfg.Backend)
	}
	a, err := arm.New(rig.Hardware, cfg.ArmConfig(), logger.Named("arm"))
	if err != nil {
		rig.Close()
		return nil, err
	}

	s := &session{
		cfg:    cfg,
		logger: logger,
		rig:    rig,
		arm:    a,
		sched:  activity.NewScheduler(logger.Named("activity")),
		table:  telemetry.NewTable(),
		claw:   auto.NewSolenoidClaw(rig.Claw, logger.Named("claw")),
	}
	if cfg.Telemetry.Port != "" {
		s.feed, err = telemetry.OpenSerialFeed(cfg.Telemetry.Port, cfg.Telemetry.Baud, s.table, logger.Named("telemetry"))
		if err != nil {
			rig.Close()
			return nil, err
		}
	}

	var placer *arm.KeypadPlacer
	if cfg.Keypad.Enabled {
		depth, err := cfg.KeypadDepth()
		if err != nil {
			rig.Close()
			return nil, err
		}
		placer = arm.NewKeypadPlacer(a, s.table, depth)
	}
	s.ctrl = control.NewController(a, s.sched, control.Config{
		Hz:     cfg.Hz,
		Plant:  rig.Plant,
		Placer: placer,
	}, logger.Named("control"))
	return s, nil
}

// start runs the telemetry feed and the control loop until ctx is done. The
// returned channel yields the control loop's exit error.
func (s *session) start(ctx context.Context) <-chan error {
	if s.feed != nil {
		go func() {
			if err := s.feed.Run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warnw("telemetry feed stopped", "error", err)
			}
		}()
	}
	done := make(chan error, 1)
	go func() { done <- s.ctrl.Start(ctx) }()
	return done
}

func (s *session) env() auto.Env {
	return auto.Env{
		Arm:   s.arm,
		Claw:  s.claw,
		Table: s.table,
		Clock: activity.SystemClock{},
	}
}

func (s *session) Close() error {
	return s.rig.Close()
}

// watched reports on done when the wrapped activity ends.
type watched struct {
	activity.Activity
	done chan bool
}

func (w *watched) End(interrupted bool) {
	w.Activity.End(interrupted)
	select {
	case w.done <- interrupted:
	default:
	}
}

func (w *watched) String() string {
	return activity.NameOf(w.Activity)
}

// runActivity schedules act on the running loop and waits for it to end. A
// positive timeout cancels it.
func (s *session) runActivity(ctx context.Context, act activity.Activity, timeout time.Duration) error {
	w := &watched{Activity: act, done: make(chan bool, 1)}
	refused := make(chan error, 1)
	queued := s.ctrl.Submit(func(_ *arm.Arm, sched *activity.Scheduler) {
		if err := sched.Schedule(w); err != nil {
			refused <- err
		}
	})
	if !queued {
		return errors.New("control loop is busy")
	}

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case err := <-refused:
		return errors.Wrapf(err, "cannot start %s", activity.NameOf(act))
	case interrupted := <-w.done:
		if interrupted {
			return fmt.Errorf("%s was interrupted", activity.NameOf(act))
		}
		return nil
	case <-expired:
		timedOut := fmt.Errorf("%s timed out after %v", activity.NameOf(act), timeout)
		if !s.ctrl.Submit(func(_ *arm.Arm, sched *activity.Scheduler) { sched.Cancel(w) }) {
			return errors.Wrap(timedOut, "control loop is busy, activity left running")
		}
		select {
		case <-w.done:
			return timedOut
		case <-ctx.Done():
			return ctx.Err()
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}
