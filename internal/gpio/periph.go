package gpio

import (
	"errors"
	"fmt"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// ActuatorFrequency is the PWM period of the setpoint needle servo.
const ActuatorFrequency = 61 * physic.Hertz

// openPeriphPin initialises the periph host drivers and looks up name,
// e.g. "GPIO4" or "4".
func openPeriphPin(name string) (pgpio.PinIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("periph pin %q not found", name)
	}
	return p, nil
}

// PeriphLine is a 1-Wire data line driven through periph. Releasing switches
// the pin to a floating input so the external pull-up takes the line high.
type PeriphLine struct {
	pin pgpio.PinIO
	err error
}

// NewPeriphLine opens the named pin, initially released.
func NewPeriphLine(name string) (*PeriphLine, error) {
	p, err := openPeriphPin(name)
	if err != nil {
		return nil, err
	}
	return newPeriphLine(p)
}

func newPeriphLine(p pgpio.PinIO) (*PeriphLine, error) {
	l := &PeriphLine{pin: p}
	l.Release()
	if l.err != nil {
		return nil, l.err
	}
	return l, nil
}

// Release floats the pin.
func (l *PeriphLine) Release() {
	if err := l.pin.In(pgpio.Float, pgpio.NoEdge); err != nil {
		l.record(fmt.Errorf("release %s: %w", l.pin, err))
	}
}

// DriveLow outputs a low level.
func (l *PeriphLine) DriveLow() {
	if err := l.pin.Out(pgpio.Low); err != nil {
		l.record(fmt.Errorf("drive %s low: %w", l.pin, err))
	}
}

// Sample reads the pin level.
func (l *PeriphLine) Sample() bool {
	return l.pin.Read() == pgpio.High
}

// Err returns the first line failure, if any.
func (l *PeriphLine) Err() error {
	return l.err
}

// TakeErr returns the first line failure and clears it.
func (l *PeriphLine) TakeErr() error {
	err := l.err
	l.err = nil
	return err
}

// Close leaves the pin floating.
func (l *PeriphLine) Close() error {
	return l.pin.In(pgpio.Float, pgpio.NoEdge)
}

func (l *PeriphLine) record(err error) {
	if l.err == nil {
		l.err = err
	}
}

// PWMActuator drives the setpoint needle servo with hardware PWM.
type PWMActuator struct {
	pin pgpio.PinIO
}

// NewPWMActuator opens the named PWM capable pin.
func NewPWMActuator(name string) (*PWMActuator, error) {
	p, err := openPeriphPin(name)
	if err != nil {
		return nil, err
	}
	return &PWMActuator{pin: p}, nil
}

// SetPosition outputs duty pos/256 at ActuatorFrequency.
func (a *PWMActuator) SetPosition(pos int) error {
	duty, err := positionDuty(pos)
	if err != nil {
		return err
	}
	if err := a.pin.PWM(duty, ActuatorFrequency); err != nil {
		return fmt.Errorf("pwm %s: %w", a.pin, err)
	}
	return nil
}

// Close stops the PWM output.
func (a *PWMActuator) Close() error {
	return a.pin.Halt()
}

var errPosition = errors.New("actuator position out of range 0..255")

func positionDuty(pos int) (pgpio.Duty, error) {
	if pos < 0 || pos > 255 {
		return 0, fmt.Errorf("%w: %d", errPosition, pos)
	}
	return pgpio.Duty(int64(pos) * int64(pgpio.DutyMax) / 256), nil
}
