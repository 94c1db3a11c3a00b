// Package logic contains the pure thermostat logic: heat/cool decisions,
// the out-of-range alarm, setpoint editing and actuator positioning.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Threshold limits in whole °F.
const (
	MinThreshold     = 50
	MaxThreshold     = 90
	DefaultThreshold = 50
)

// Mode is the climate action requested by the thermostat.
type Mode string

const (
	ModeIdle Mode = "IDLE"
	ModeHeat Mode = "HEAT"
	ModeCool Mode = "COOL"
)

// Label returns the 4-character panel text for the mode.
func (m Mode) Label() string {
	switch m {
	case ModeHeat:
		return "HEAT"
	case ModeCool:
		return "A/C "
	}
	return "    "
}

// Indicator is the colour of the status LED.
type Indicator string

const (
	IndicatorOff   Indicator = "OFF"
	IndicatorRed   Indicator = "RED"
	IndicatorGreen Indicator = "GREEN"
	IndicatorBlue  Indicator = "BLUE"
)

// Setpoint selects which threshold the encoder edits.
type Setpoint string

const (
	SetpointNone Setpoint = ""
	SetpointLow  Setpoint = "LOW"
	SetpointHigh Setpoint = "HIGH"
)

// Thresholds are the low and high comfort limits in whole °F.
type Thresholds struct {
	Low  int
	High int
}

// DefaultThresholds returns both limits at DefaultThreshold.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: DefaultThreshold, High: DefaultThreshold}
}

// Clamp limits both values to MinThreshold..MaxThreshold.
func (t Thresholds) Clamp() Thresholds {
	return Thresholds{Low: clamp(t.Low, MinThreshold, MaxThreshold), High: clamp(t.High, MinThreshold, MaxThreshold)}
}

// Sanitize replaces out-of-range values with DefaultThreshold.
func (t Thresholds) Sanitize() Thresholds {
	if t.Low < MinThreshold || t.Low > MaxThreshold {
		t.Low = DefaultThreshold
	}
	if t.High < MinThreshold || t.High > MaxThreshold {
		t.High = DefaultThreshold
	}
	return t
}

// Valid reports whether both values are in range.
func (t Thresholds) Valid() bool {
	return t == t.Sanitize()
}

// EventType describes something the thermostat reports.
type EventType string

const (
	EventModeHeat   EventType = "MODE_HEAT"
	EventModeCool   EventType = "MODE_COOL"
	EventModeIdle   EventType = "MODE_IDLE"
	EventAlarm      EventType = "ALARM"
	EventThresholds EventType = "THRESHOLDS"
)

// Event is a change to be published.
type Event struct {
	Timestamp  time.Time
	Type       EventType
	Mode       Mode
	Temp       Fahrenheit
	HaveTemp   bool
	Thresholds Thresholds
}

// Reading is one decoded temperature sample.
type Reading struct {
	Timestamp time.Time
	Raw       int16 // 1/16 °C as reported by the sensor
}

// Celsius returns the reading in °C.
func (r Reading) Celsius() float64 {
	return float64(r.Raw) / 16
}

// Fahrenheit returns the reading in 1/16 °F.
func (r Reading) Fahrenheit() Fahrenheit {
	return FromRaw(r.Raw)
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Heat       int
	Cool       int
	Idle       int
	Alarm      int
	Thresholds int
	Readings   int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
