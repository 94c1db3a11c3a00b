// Package gpio provides the controller's hardware I/O with hardware abstraction.
// The real implementations use the Linux GPIO character device (gpiocdev)
// or periph. The fake implementations allow testing without hardware.
package gpio

import (
	"time"

	"github.com/sweeney/temp-controller/internal/logic"
)

// PanelState is one sample of the front panel inputs, already in logical form.
type PanelState struct {
	EncoderA   bool // raw quadrature levels
	EncoderB   bool
	SelectLow  bool // true = pressed
	SelectHigh bool
}

// Panel reads the front panel inputs.
type Panel interface {
	// Read returns the current panel state.
	// Buttons are active low: raw 0 = pressed.
	Read() (PanelState, error)

	// Close releases GPIO resources.
	Close() error
}

// Outputs drives the status LED and the buzzer.
type Outputs interface {
	SetIndicator(ind logic.Indicator) error

	// Tone sounds the buzzer at freq Hz for d without blocking.
	// A tone requested while another plays is dropped.
	Tone(freq int, d time.Duration)

	Close() error
}

// Actuator positions the setpoint needle.
type Actuator interface {
	// SetPosition sets the 8-bit PWM compare value.
	SetPosition(pos int) error
	Close() error
}

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "gpiochip0"

// Pin definitions (BCM numbering)
const (
	PinOneWire    = 4
	PinEncoderA   = 17
	PinEncoderB   = 27
	PinSelectLow  = 22
	PinSelectHigh = 23
	PinRed        = 5
	PinGreen      = 6
	PinBlue       = 13
	PinBuzzer     = 19
	PinActuator   = 18 // PWM0
)

// ledLevels returns which LEDs are lit for ind.
func ledLevels(ind logic.Indicator) (red, green, blue bool) {
	switch ind {
	case logic.IndicatorRed:
		return true, false, false
	case logic.IndicatorGreen:
		return false, true, false
	case logic.IndicatorBlue:
		return false, false, true
	}
	return false, false, false
}

// activeLow converts a logical on state to a raw line value.
func activeLow(on bool) int {
	if on {
		return 0
	}
	return 1
}
