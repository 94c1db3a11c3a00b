//go:build !linux

package gpio

import (
	"errors"
	"time"

	"github.com/sweeney/temp-controller/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealPanel is not available on non-Linux platforms.
type RealPanel struct{}

// NewRealPanel returns an error on non-Linux platforms.
func NewRealPanel(chipName string) (*RealPanel, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (p *RealPanel) Read() (PanelState, error) {
	return PanelState{}, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (p *RealPanel) Close() error {
	return nil
}

// RealOutputs is not available on non-Linux platforms.
type RealOutputs struct{}

// NewRealOutputs returns an error on non-Linux platforms.
func NewRealOutputs(chipName string) (*RealOutputs, error) {
	return nil, errUnsupported
}

func (o *RealOutputs) SetIndicator(ind logic.Indicator) error { return errUnsupported }
func (o *RealOutputs) Tone(freq int, d time.Duration) {}
func (o *RealOutputs) Close() error { return nil }

// OneWireLine is not available on non-Linux platforms.
type OneWireLine struct{}

// NewOneWireLine returns an error on non-Linux platforms.
func NewOneWireLine(chipName string, pin int) (*OneWireLine, error) {
	return nil, errUnsupported
}

func (l *OneWireLine) Release() {}
func (l *OneWireLine) DriveLow() {}
func (l *OneWireLine) Sample() bool { return true }
func (l *OneWireLine) Err() error { return errUnsupported }
func (l *OneWireLine) TakeErr() error { return errUnsupported }
func (l *OneWireLine) Close() error { return nil }
