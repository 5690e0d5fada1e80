// Package control runs the robot's periodic control loop.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"

	"github.com/gwillem/turretarm/pkg/activity"
	"github.com/gwillem/turretarm/pkg/arm"
	"github.com/gwillem/turretarm/pkg/hardware"
	"github.com/gwillem/turretarm/pkg/kinematics"
)

// ErrAlreadyRunning is returned by Start when the loop is already running.
var ErrAlreadyRunning = errors.New("already running")

// State is a snapshot of the arm published after every tick.
type State struct {
	Angles       kinematics.Angles
	TargetAngles kinematics.Angles
	Current      r3.Vector
	Target       r3.Vector
	Claw         arm.ClawPose
	Outputs      [3]float64
	Limit1       bool
	Limit2       bool
	PID          bool
	Active       []string
	Timestamp    time.Time
	Error        error
}

// Request is work run on the loop goroutine between ticks.
type Request func(a *arm.Arm, s *activity.Scheduler)

// Controller manages the control loop.
type Controller struct {
	arm    *arm.Arm
	plant  hardware.Plant
	sched  *activity.Scheduler
	placer *arm.KeypadPlacer
	logger golog.Logger
	hz     int

	mu       sync.RWMutex
	running  bool
	requests chan Request
	stateCh  chan State
	logCh    chan string
}

// Config holds configuration for the controller.
type Config struct {
	Hz int
	// Plant is stepped before the arm on every tick. It may be nil.
	Plant hardware.Plant
	// Placer, when set, turns keypad presses into targets on every tick.
	Placer *arm.KeypadPlacer
}

// NewController creates a new controller driving a.
func NewController(a *arm.Arm, sched *activity.Scheduler, cfg Config, logger golog.Logger) *Controller {
	if cfg.Hz <= 0 {
		cfg.Hz = 50
	}
	return &Controller{
		arm:      a,
		plant:    cfg.Plant,
		sched:    sched,
		placer:   cfg.Placer,
		logger:   logger,
		hz:       cfg.Hz,
		requests: make(chan Request, 16),
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 32),
	}
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Period returns the control tick.
func (c *Controller) Period() time.Duration {
	return time.Second / time.Duration(c.hz)
}

// Running reports whether Start is looping.
func (c *Controller) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Log records a message for the log channel and the logger.
func (c *Controller) Log(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	c.logger.Info(text)
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), text)
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Submit queues r to run on the loop goroutine before the next tick. It
// reports false when the queue is full.
func (c *Controller) Submit(r Request) bool {
	select {
	case c.requests <- r:
		return true
	default:
		return false
	}
}

// Schedule submits a request scheduling act, logging a refusal.
func (c *Controller) Schedule(act activity.Activity) bool {
	return c.Submit(func(_ *arm.Arm, s *activity.Scheduler) {
		if err := s.Schedule(act); err != nil {
			c.Log("Cannot start %s: %v", activity.NameOf(act), err)
			return
		}
		c.Log("Started %s", activity.NameOf(act))
	})
}

// Start runs the control loop until ctx is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.mu.Unlock()

	c.Log("Control loop started at %d Hz", c.hz)

	ticker := time.NewTicker(c.Period())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.Step(ctx, c.Period())
		}
	}
}

// Step runs one tick: queued requests, the plant, the arm, keypad placement,
// then the scheduled activities.
func (c *Controller) Step(ctx context.Context, dt time.Duration) {
	c.drainRequests()

	var plantErr error
	if c.plant != nil {
		if err := c.plant.Step(ctx, dt); err != nil && ctx.Err() == nil {
			plantErr = err
			c.logger.Warnw("plant step failed", "error", err)
		}
	}

	c.arm.Periodic()
	if c.placer != nil {
		c.placer.Update()
	}
	c.sched.Run()

	c.sendState(c.snapshot(plantErr))
}

func (c *Controller) drainRequests() {
	for {
		select {
		case r := <-c.requests:
			r(c.arm, c.sched)
		default:
			return
		}
	}
}

func (c *Controller) snapshot(err error) State {
	return State{
		Angles:       c.arm.LastAngles(),
		TargetAngles: c.arm.TargetAngles(),
		Current:      c.arm.CurrentPose(),
		Target:       c.arm.IntendedCoordinates(),
		Claw:         arm.NewClawPose(c.arm.CurrentPose()),
		Outputs:      c.arm.Outputs(),
		Limit1:       c.arm.Pivot1LimitPressed(),
		Limit2:       c.arm.Pivot2LimitPressed(),
		PID:          c.arm.PIDControlOn(),
		Active:       c.sched.Active(),
		Timestamp:    time.Now(),
		Error:        err,
	}
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	c.sched.CancelAll()
	c.arm.StopAllMotors()
	c.Log("Control loop stopped")
}
