package arm

import (
	"math"

	"github.com/gwillem/turretarm/pkg/hardware"
)

// LimitReference is a pivot's normally-closed limit switch together with the
// angle its encoder must read while the switch is pressed.
type LimitReference struct {
	input     hardware.DigitalInput
	encoder   hardware.Encoder
	angle     float64
	tolerance float64
}

// NewLimitReference ties input to encoder at the given reference angle.
func NewLimitReference(input hardware.DigitalInput, encoder hardware.Encoder, angle, tolerance float64) *LimitReference {
	return &LimitReference{
		input:     input,
		encoder:   encoder,
		angle:     angle,
		tolerance: tolerance,
	}
}

// Pressed reports whether the switch is pressed. The input reads true while the
// switch is closed, so a broken wire also reads as pressed.
func (l *LimitReference) Pressed() bool {
	return !l.input.Get()
}

// Angle returns the reference angle.
func (l *LimitReference) Angle() float64 {
	return l.angle
}

// Check snaps the encoder to the reference angle when the switch is pressed and
// reading has drifted past the tolerance. It reports whether it snapped.
func (l *LimitReference) Check(reading float64) bool {
	if !l.Pressed() || !(math.Abs(reading-l.angle) > l.tolerance) {
		return false
	}
	l.encoder.SetPosition(l.angle)
	return true
}
