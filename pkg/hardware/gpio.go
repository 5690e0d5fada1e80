package hardware

import (
	"github.com/pkg/errors"
	rpio "github.com/stianeikeland/go-rpio/v4"
)

// OpenGPIO maps the Raspberry Pi GPIO registers. It must be called before any
// GPIOInput or GPIOOutput is created.
func OpenGPIO() error {
	if err := rpio.Open(); err != nil {
		return errors.Wrap(err, "failed to open GPIO")
	}
	return nil
}

// CloseGPIO unmaps the GPIO registers.
func CloseGPIO() error {
	return rpio.Close()
}

// GPIOInput reads a pin with the internal pull-down enabled. A normally-closed
// switch wired to 3.3V reads high until it is pressed or its wire breaks.
type GPIOInput struct {
	pin rpio.Pin
}

// NewGPIOInput configures a BCM pin as a pulled-down input.
func NewGPIOInput(bcm int) *GPIOInput {
	pin := rpio.Pin(bcm)
	pin.Input()
	pin.PullDown()
	return &GPIOInput{pin: pin}
}

func (g *GPIOInput) Get() bool {
	return g.pin.Read() == rpio.High
}

// GPIOOutput drives a pin, for example a solenoid valve driver.
type GPIOOutput struct {
	pin rpio.Pin
}

// NewGPIOOutput configures a BCM pin as an output, initially low.
func NewGPIOOutput(bcm int) *GPIOOutput {
	pin := rpio.Pin(bcm)
	pin.Output()
	pin.Low()
	return &GPIOOutput{pin: pin}
}

func (g *GPIOOutput) Set(on bool) error {
	if on {
		g.pin.High()
	} else {
		g.pin.Low()
	}
	return nil
}
