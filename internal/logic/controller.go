package logic

import (
	"fmt"
	"time"
)

// Controller constants.
const (
	// AlarmMargin is how far outside the thresholds, in °F, the alarm trips.
	AlarmMargin = 3

	AlarmFrequency = 400 // Hz
	AlarmDuration  = time.Second

	// ShowSetpointFor is how long the actuator points at a threshold after
	// its select button is pressed.
	ShowSetpointFor = 4 * time.Second

	// Actuator limits as PWM compare values (8-bit, 61Hz period).
	ActuatorMin = 12
	ActuatorMax = 36
)

// Controller holds the thermostat state. It is not safe for concurrent use;
// the control loop owns it.
type Controller struct {
	thresholds Thresholds
	focus      Setpoint
	selected   bool
	mode       Mode
	temp       Fahrenheit
	haveTemp   bool
	armed      bool

	show      Setpoint
	showUntil time.Time

	startTime     time.Time
	lastHeartbeat time.Time
	counts        EventCounts
}

// NewController creates a controller with the given thresholds.
// Out-of-range thresholds are replaced with DefaultThreshold.
// The encoder edits the high threshold until a setpoint is selected.
func NewController(th Thresholds, startTime time.Time) *Controller {
	return &Controller{
		thresholds:    th.Sanitize(),
		focus:         SetpointHigh,
		mode:          ModeIdle,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Observe takes a new reading and returns the resulting events.
func (c *Controller) Observe(r Reading) []Event {
	c.temp = r.Fahrenheit()
	c.haveTemp = true
	c.counts.Readings++
	return c.evaluate(r.Timestamp)
}

// Select makes sp the threshold the encoder edits and points the actuator
// at it for ShowSetpointFor.
func (c *Controller) Select(sp Setpoint, now time.Time) {
	if sp != SetpointLow && sp != SetpointHigh {
		return
	}
	c.focus = sp
	c.selected = true
	c.show = sp
	c.showUntil = now.Add(ShowSetpointFor)
}

// Adjust moves the focused threshold by delta, clamped to the limits.
func (c *Controller) Adjust(delta int, now time.Time) []Event {
	if delta == 0 {
		return nil
	}
	th := c.thresholds
	if c.focus == SetpointLow {
		th.Low += delta
	} else {
		th.High += delta
	}
	return c.SetThresholds(th, now)
}

// SetThresholds replaces both thresholds, clamped to the limits.
func (c *Controller) SetThresholds(th Thresholds, now time.Time) []Event {
	th = th.Clamp()
	if th == c.thresholds {
		return nil
	}
	c.thresholds = th
	c.counts.Thresholds++
	events := []Event{c.event(EventThresholds, now)}
	return append(events, c.evaluate(now)...)
}

// evaluate applies the mode decision and the alarm hysteresis to the
// current temperature.
func (c *Controller) evaluate(now time.Time) []Event {
	if !c.haveTemp {
		return nil
	}
	t := c.temp.Whole()
	var events []Event

	mode := ModeIdle
	switch {
	case t < c.thresholds.Low:
		mode = ModeHeat
	case t > c.thresholds.High:
		mode = ModeCool
	}
	if mode != c.mode {
		c.mode = mode
		var et EventType
		switch mode {
		case ModeHeat:
			et = EventModeHeat
			c.counts.Heat++
		case ModeCool:
			et = EventModeCool
			c.counts.Cool++
		default:
			et = EventModeIdle
			c.counts.Idle++
		}
		events = append(events, c.event(et, now))
	}

	// The alarm arms once the temperature is inside the widened band and
	// sounds once when it leaves it again.
	lo, hi := c.thresholds.Low-AlarmMargin, c.thresholds.High+AlarmMargin
	if !c.armed {
		if t > lo && t < hi {
			c.armed = true
		}
	} else if t < lo || t > hi {
		c.armed = false
		c.counts.Alarm++
		events = append(events, c.event(EventAlarm, now))
	}
	return events
}

func (c *Controller) event(et EventType, now time.Time) Event {
	return Event{
		Timestamp:  now,
		Type:       et,
		Mode:       c.mode,
		Temp:       c.temp,
		HaveTemp:   c.haveTemp,
		Thresholds: c.thresholds,
	}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Temp returns the last temperature and whether there is one.
func (c *Controller) Temp() (Fahrenheit, bool) {
	return c.temp, c.haveTemp
}

// Thresholds returns the current thresholds.
func (c *Controller) Thresholds() Thresholds {
	return c.thresholds
}

// Focus returns the threshold the encoder edits.
func (c *Controller) Focus() Setpoint {
	return c.focus
}

// Armed reports whether the alarm is armed.
func (c *Controller) Armed() bool {
	return c.armed
}

// EventCountsSnapshot returns a copy of the event counts.
func (c *Controller) EventCountsSnapshot() EventCounts {
	return c.counts
}

// Indicator returns the LED colour: red to heat, blue to cool, green when
// in range, off before the first reading.
func (c *Controller) Indicator() Indicator {
	if !c.haveTemp {
		return IndicatorOff
	}
	switch c.mode {
	case ModeHeat:
		return IndicatorRed
	case ModeCool:
		return IndicatorBlue
	}
	return IndicatorGreen
}

// Actuator returns the actuator position. It follows the temperature, or
// the selected threshold for ShowSetpointFor after a select.
func (c *Controller) Actuator(now time.Time) int {
	if c.show != SetpointNone && !now.Before(c.showUntil) {
		c.show = SetpointNone
	}
	var v int
	switch {
	case c.show == SetpointLow:
		v = c.thresholds.Low
	case c.show == SetpointHigh:
		v = c.thresholds.High
	case c.haveTemp:
		v = c.temp.Whole()
	default:
		return (ActuatorMin + ActuatorMax) / 2
	}
	return clamp(-24*v/60+52, ActuatorMin, ActuatorMax)
}

// Panel renders the 16x2 text view.
//
//	Temp: 77.0 HEAT
//	Low= 50 High= 90
func (c *Controller) Panel() [2]string {
	temp := "--.-"
	if c.haveTemp {
		temp = c.temp.String()
	}
	lowMark, highMark := "=", "="
	if c.selected {
		if c.focus == SetpointLow {
			highMark = "*"
		} else {
			lowMark = "*"
		}
	}
	return [2]string{
		fmt.Sprintf("%-16.16s", fmt.Sprintf("Temp: %-5s%s", temp, c.mode.Label())),
		fmt.Sprintf("Low%s%3d High%s%3d", lowMark, c.thresholds.Low, highMark, c.thresholds.High),
	}
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since
// the last heartbeat (or startup). Returns nil if the interval has not
// elapsed, or if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.counts,
	}
}
