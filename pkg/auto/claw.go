package auto

import (
	"github.com/edaniels/golog"

	"github.com/gwillem/turretarm/pkg/hardware"
)

// Claw grips and releases game pieces. Routines claim it as a resource.
type Claw interface {
	Name() string
	SetOpened(opened bool)
	Opened() bool
}

// SolenoidClaw is a claw actuated by a single solenoid. The solenoid is
// energized while the claw is closed.
type SolenoidClaw struct {
	out    hardware.DigitalOutput
	logger golog.Logger
	opened bool
}

// NewSolenoidClaw returns a claw on out, initially open.
func NewSolenoidClaw(out hardware.DigitalOutput, logger golog.Logger) *SolenoidClaw {
	c := &SolenoidClaw{out: out, logger: logger}
	c.SetOpened(true)
	return c
}

func (c *SolenoidClaw) Name() string {
	return "claw"
}

// SetOpened opens or closes the claw. A failed write leaves the recorded state
// unchanged.
func (c *SolenoidClaw) SetOpened(opened bool) {
	if err := c.out.Set(!opened); err != nil {
		c.logger.Warnw("claw write failed", "opened", opened, "error", err)
		return
	}
	c.opened = opened
}

func (c *SolenoidClaw) Opened() bool {
	return c.opened
}
