// Package hardware defines the actuator and sensor interfaces the arm is built on,
// together with a simulated plant, SocketCAN motor controllers and Raspberry Pi GPIO
// switches that implement them.
package hardware

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrNotOpen is returned when a closed device is used.
var ErrNotOpen = errors.New("device not open")

// Motor is an open-loop motor controller.
type Motor interface {
	// Set commands an output in [-1, 1].
	Set(output float64) error

	// Get returns the last commanded output.
	Get() float64

	// SetInverted flips the direction the motor turns for positive outputs.
	SetInverted(inverted bool)
}

// Encoder is a relative position sensor.
//
// Position returns NaN when no valid reading is available.
type Encoder interface {
	Position() float64
	SetPosition(position float64)
	SetPositionConversionFactor(factor float64)
}

// DigitalInput is a single digital input line.
type DigitalInput interface {
	Get() bool
}

// DigitalOutput is a single digital output line.
type DigitalOutput interface {
	Set(on bool) error
}

// Plant is hardware that needs to be serviced once per control tick before the
// arm reads its sensors.
type Plant interface {
	Step(ctx context.Context, dt time.Duration) error
}
