// Package onewiretest simulates a 1-Wire bus on a virtual clock so the
// master and the sensor sequence can be tested without hardware.
package onewiretest

import (
	"time"

	"github.com/sweeney/temp-controller/internal/onewire"
)

// Device-side timings used by the simulation.
const (
	// ResetThreshold is the shortest low pulse a device treats as reset.
	ResetThreshold = 480 * time.Microsecond

	// WriteZeroThreshold is the shortest low pulse read as a written 0.
	WriteZeroThreshold = 15 * time.Microsecond

	// DefaultPresenceStart and DefaultPresenceEnd bound the presence
	// pulse of a new Wire, measured from the release of the reset pulse.
	DefaultPresenceStart = 30 * time.Microsecond
	DefaultPresenceEnd   = 150 * time.Microsecond

	// HoldZero is how long after the slot start a device sending 0 keeps
	// the line low.
	HoldZero = 30 * time.Microsecond
)

// Clock is a virtual clock. Time only moves when Delay or Advance is called.
type Clock struct {
	now time.Duration
}

// Delay implements onewire.Delayer.
func (c *Clock) Delay(d time.Duration) {
	if d > 0 {
		c.now += d
	}
}

// Advance moves the clock forward, as if the caller slept.
func (c *Clock) Advance(d time.Duration) {
	c.Delay(d)
}

// Now returns the time elapsed since the clock was created.
func (c *Clock) Now() time.Duration {
	return c.now
}

// Responder is a simulated device attached to a Wire.
type Responder interface {
	// Reset is called when a reset pulse ends. n counts resets from 1.
	// It reports whether the device answers with a presence pulse.
	Reset(n int, now time.Duration) bool

	// Slot is called when a time slot's low pulse ends. It reports whether
	// the device holds the line low to send a 0.
	Slot(width, now time.Duration) bool
}

// Wire is a simulated open-drain line with an external pull-up.
type Wire struct {
	Clock  *Clock
	Device Responder // nil when nothing is attached

	// NoPullUp makes the released line read low.
	NoPullUp bool

	// PresenceStart and PresenceEnd bound the presence pulse a device
	// answers with. Real parts wait 15-60µs and hold for 60-240µs.
	PresenceStart time.Duration
	PresenceEnd   time.Duration

	driven    bool
	lowSince  time.Duration
	holdFrom  time.Duration
	holdUntil time.Duration
	pulses    []time.Duration
	resets    int
}

var _ onewire.Line = (*Wire)(nil)

// NewWire returns a released wire with dev attached.
func NewWire(dev Responder) *Wire {
	return &Wire{
		Clock:         &Clock{},
		Device:        dev,
		PresenceStart: DefaultPresenceStart,
		PresenceEnd:   DefaultPresenceEnd,
	}
}

// NewMaster returns a master on w using the default timings.
func NewMaster(w *Wire) *onewire.Master {
	m, err := onewire.NewMaster(w, w.Clock, onewire.DefaultTiming())
	if err != nil {
		panic(err)
	}
	return m
}

// NewSensor returns a sensor on a fresh wire with dev attached.
func NewSensor(dev Responder) (*onewire.Sensor, *Wire) {
	w := NewWire(dev)
	return onewire.NewSensor(NewMaster(w), w.Clock), w
}

// DriveLow implements onewire.Line.
func (w *Wire) DriveLow() {
	if w.driven {
		return
	}
	w.driven = true
	w.lowSince = w.Clock.Now()
}

// Release implements onewire.Line.
func (w *Wire) Release() {
	if !w.driven {
		return
	}
	w.driven = false
	now := w.Clock.Now()
	width := now - w.lowSince
	w.pulses = append(w.pulses, width)

	if width >= ResetThreshold {
		w.resets++
		if w.Device != nil && w.Device.Reset(w.resets, now) {
			w.hold(now+w.PresenceStart, now+w.PresenceEnd)
		}
		return
	}
	if w.Device != nil && w.Device.Slot(width, now) {
		w.hold(w.lowSince, w.lowSince+HoldZero)
	}
}

// Sample implements onewire.Line.
func (w *Wire) Sample() bool {
	if w.driven || w.NoPullUp {
		return false
	}
	now := w.Clock.Now()
	return now < w.holdFrom || now >= w.holdUntil
}

func (w *Wire) hold(from, until time.Duration) {
	w.holdFrom, w.holdUntil = from, until
}

// Pulses returns the widths of every low pulse the master drove.
func (w *Wire) Pulses() []time.Duration {
	return append([]time.Duration(nil), w.pulses...)
}

// ClearPulses forgets the recorded pulses.
func (w *Wire) ClearPulses() {
	w.pulses = nil
}

// Resets returns the number of reset pulses seen.
func (w *Wire) Resets() int {
	return w.resets
}

// IsWriteZero reports whether a slot pulse of width encodes a written 0.
func IsWriteZero(width time.Duration) bool {
	return width >= WriteZeroThreshold && width < ResetThreshold
}
