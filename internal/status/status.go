// Package status provides a thread-safe status tracker for the thermostat daemon.
// It is read by the HTTP handlers and the MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/temp-controller/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs       int64
	InputPollMs  int64
	HeartbeatMs  int64
	Broker       string
	HTTPPort     string
	LineDriver   string
	StorePath    string
	PanelEnabled bool
}

// Control is the controller-derived part of the state, copied in by the
// control loop after each tick.
type Control struct {
	Temp       logic.Fahrenheit
	HaveTemp   bool
	Raw        int16
	Mode       logic.Mode
	Indicator  logic.Indicator
	Thresholds logic.Thresholds
	Focus      logic.Setpoint
	Armed      bool
	Actuator   int
	Panel      [2]string
	Counts     logic.EventCounts
}

// Sensor reports the health of the temperature sensor.
type Sensor struct {
	// Degraded is set when initialisation failed. The daemon keeps running
	// on the sensor's power-on configuration.
	Degraded    bool
	InitError   string
	Errors      int
	LastError   string
	LastErrorAt time.Time
	LastReading time.Time
}

// OK reports whether the last sensor transaction succeeded.
func (s Sensor) OK() bool {
	return !s.LastReading.IsZero() && !s.LastReading.Before(s.LastErrorAt)
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Control
	Sensor        Sensor
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Control: Control{
				Mode:       logic.ModeIdle,
				Indicator:  logic.IndicatorOff,
				Thresholds: logic.DefaultThresholds(),
			},
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update replaces the controller state.
// Called from the control loop after every tick.
func (t *Tracker) Update(c Control) {
	t.mu.Lock()
	t.snap.Control = c
	t.mu.Unlock()
}

// SetSensorDegraded records a failed sensor initialisation.
func (t *Tracker) SetSensorDegraded(err error) {
	t.mu.Lock()
	t.snap.Sensor.Degraded = true
	t.snap.Sensor.InitError = err.Error()
	t.mu.Unlock()
}

// RecordSensorError counts a failed transaction.
func (t *Tracker) RecordSensorError(err error, at time.Time) {
	t.mu.Lock()
	t.snap.Sensor.Errors++
	t.snap.Sensor.LastError = err.Error()
	t.snap.Sensor.LastErrorAt = at
	t.mu.Unlock()
}

// RecordReading notes a successful reading.
func (t *Tracker) RecordReading(at time.Time) {
	t.mu.Lock()
	t.snap.Sensor.LastReading = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
