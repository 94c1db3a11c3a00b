package internal

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sweeney/temp-controller/internal/logic"
	"github.com/sweeney/temp-controller/internal/mqtt"
	"github.com/sweeney/temp-controller/internal/onewire"
	"github.com/sweeney/temp-controller/internal/onewire/onewiretest"
	"github.com/sweeney/temp-controller/internal/status"
	"github.com/sweeney/temp-controller/internal/store"
)

var startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// convert runs one conversion on the simulated bus, polling every 50ms of
// virtual time the way the daemon does.
func convert(t *testing.T, s *onewire.Sensor, w *onewiretest.Wire) onewire.Raw {
	t.Helper()
	if err := s.StartConversion(); err != nil {
		t.Fatalf("start conversion: %v", err)
	}
	for i := 0; i < 40; i++ {
		w.Clock.Advance(50 * time.Millisecond)
		raw, ok, err := s.Poll()
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		if ok {
			return raw
		}
	}
	t.Fatal("conversion did not complete")
	return 0
}

func track(tracker *status.Tracker, c *logic.Controller, raw int16, now time.Time) {
	temp, have := c.Temp()
	tracker.Update(status.Control{
		Temp:       temp,
		HaveTemp:   have,
		Raw:        raw,
		Mode:       c.Mode(),
		Indicator:  c.Indicator(),
		Thresholds: c.Thresholds(),
		Focus:      c.Focus(),
		Armed:      c.Armed(),
		Actuator:   c.Actuator(now),
		Panel:      c.Panel(),
		Counts:     c.EventCountsSnapshot(),
	})
}

// TestIntegrationFullFlow drives the simulated sensor through a heat, idle,
// cool sequence and checks what reaches MQTT.
func TestIntegrationFullFlow(t *testing.T) {
	dev := onewiretest.NewDS18B20(0)
	sensor, wire := onewiretest.NewSensor(dev)
	if err := sensor.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	publisher := mqtt.NewFakePublisher()
	ctrl := logic.NewController(logic.Thresholds{Low: 60, High: 70}, startTime)

	temps := []onewire.Raw{
		160,    // 50°F, heat
		320,    // 68°F, idle
		0x0190, // 77°F, cool and out of band
	}
	for i, temp := range temps {
		dev.Temperature = temp
		raw := convert(t, sensor, wire)
		r := logic.Reading{Timestamp: startTime.Add(time.Duration(i) * time.Second), Raw: int16(raw)}

		if err := publisher.PublishReading(r); err != nil {
			t.Fatalf("reading %d: publish error: %v", i, err)
		}
		for _, event := range ctrl.Observe(r) {
			if err := publisher.Publish(event); err != nil {
				t.Fatalf("reading %d: publish error: %v", i, err)
			}
		}
	}

	if dev.Conversions != 3 {
		t.Errorf("expected 3 conversions, got %d", dev.Conversions)
	}
	if len(publisher.Readings) != 3 || publisher.Readings[2].Raw != 0x0190 {
		t.Fatalf("unexpected readings: %+v", publisher.Readings)
	}

	want := []logic.EventType{logic.EventModeHeat, logic.EventModeIdle, logic.EventModeCool, logic.EventAlarm}
	got := publisher.EventTypes()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// The alarm payload carries the temperature that tripped it.
	var parsed mqtt.Payload
	if err := json.Unmarshal(publisher.Payloads[3], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Thermostat.Event != "ALARM" || parsed.Thermostat.Mode != "COOL" {
		t.Errorf("unexpected alarm payload: %+v", parsed.Thermostat)
	}
	if parsed.Thermostat.Temperature == nil || *parsed.Thermostat.Temperature != 77 {
		t.Errorf("unexpected alarm temperature: %v", parsed.Thermostat.Temperature)
	}
}

// TestIntegrationInitConfiguresDevice checks that Init leaves the device in
// 12-bit mode with its alarm bytes intact and persisted.
func TestIntegrationInitConfiguresDevice(t *testing.T) {
	dev := onewiretest.NewDS18B20(0x0190)
	dev.Scratchpad[4] = 0x1f // 9-bit
	sensor, _ := onewiretest.NewSensor(dev)

	if err := sensor.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if dev.Scratchpad.Config() != onewire.Resolution12Bit {
		t.Errorf("expected resolution 0x%02x, got 0x%02x", onewire.Resolution12Bit, dev.Scratchpad.Config())
	}
	if dev.Scratchpad.TH() != 0x4b || dev.Scratchpad.TL() != 0x46 {
		t.Errorf("TH/TL changed: %02x/%02x", dev.Scratchpad.TH(), dev.Scratchpad.TL())
	}
	if dev.Copies != 1 {
		t.Errorf("expected 1 copy, got %d", dev.Copies)
	}
	if dev.EEPROM != [3]byte{0x4b, 0x46, onewire.Resolution12Bit} {
		t.Errorf("unexpected EEPROM: % x", dev.EEPROM)
	}
}

// TestIntegrationPowerOnReading reads the 85°C power-on value when no
// conversion has run yet, and still converts it sensibly.
func TestIntegrationPowerOnReading(t *testing.T) {
	dev := onewiretest.NewDS18B20(0x0190)
	sensor, _ := onewiretest.NewSensor(dev)

	raw, ok, err := sensor.Poll()
	if err != nil || !ok {
		t.Fatalf("poll: ok=%v err=%v", ok, err)
	}
	if raw != onewiretest.PowerOnRaw {
		t.Fatalf("expected power-on value, got %v", raw)
	}
	if f := logic.FromRaw(int16(raw)); f.Whole() != 185 {
		t.Errorf("expected 185°F, got %s", f)
	}
}

// TestIntegrationSensorFault runs the degraded path: init fails, the status
// payload says so, and later transactions keep failing with the same cause.
func TestIntegrationSensorFault(t *testing.T) {
	sensor, _ := onewiretest.NewSensor(nil)
	tracker := status.NewTracker(startTime, status.Config{LineDriver: "gpiocdev"})
	publisher := mqtt.NewFakePublisher()

	err := sensor.Init()
	if !errors.Is(err, onewire.ErrNoPresence) {
		t.Fatalf("expected ErrNoPresence, got %v", err)
	}
	tracker.SetSensorDegraded(err)

	if err := sensor.StartConversion(); !errors.Is(err, onewire.ErrNoPresence) {
		t.Fatalf("expected ErrNoPresence, got %v", err)
	}
	tracker.RecordSensorError(err, startTime.Add(time.Second))

	fault := mqtt.SystemEvent{
		Timestamp:  startTime,
		Event:      "SENSOR_FAULT",
		Reason:     err.Error(),
		RawPayload: status.FormatStatusEvent(tracker.Snapshot(), "SENSOR_FAULT", err.Error()),
	}
	if err := publisher.PublishSystem(fault); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(publisher.SystemPayloads[0], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status
	if s.Event != "SENSOR_FAULT" || s.Reason != "read scratchpad: onewire: no presence pulse" {
		t.Errorf("unexpected event/reason: %q %q", s.Event, s.Reason)
	}
	if s.Sensor.OK || !s.Sensor.Degraded || s.Sensor.Errors != 1 {
		t.Errorf("unexpected sensor status: %+v", s.Sensor)
	}
	if s.Temperature != nil {
		t.Errorf("expected null temperature, got %+v", s.Temperature)
	}
	if s.Config.LineDriver != "gpiocdev" {
		t.Errorf("unexpected line driver: %q", s.Config.LineDriver)
	}
}

type failingLine struct {
	*onewiretest.Wire
	err error
}

func (l *failingLine) TakeErr() error {
	err := l.err
	l.err = nil
	return err
}

// TestIntegrationSensorIOError checks that a line driver failure reaches the
// status payload with its cause instead of as a missing device.
func TestIntegrationSensorIOError(t *testing.T) {
	dev := onewiretest.NewDS18B20(0x0190)
	line := &failingLine{Wire: onewiretest.NewWire(dev)}
	m, err := onewire.NewMaster(line, line.Clock, onewire.DefaultTiming())
	if err != nil {
		t.Fatal(err)
	}
	sensor := onewire.NewSensor(m, line.Clock)
	tracker := status.NewTracker(startTime, status.Config{LineDriver: "periph"})

	line.err = errors.New("gpio4: write failed")
	err = sensor.StartConversion()
	if !errors.Is(err, onewire.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	tracker.RecordSensorError(err, startTime.Add(time.Second))

	var parsed status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(tracker.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	want := "start conversion: onewire: bus i/o error: gpio4: write failed"
	if got := parsed.Status.Sensor.LastError; got != want {
		t.Errorf("last_error: got %q, want %q", got, want)
	}
	if parsed.Status.Sensor.OK || parsed.Status.Sensor.Errors != 1 {
		t.Errorf("unexpected sensor status: %+v", parsed.Status.Sensor)
	}

	// The error was collected, so the next conversion goes through.
	if raw := convert(t, sensor, line.Wire); raw != 0x0190 {
		t.Errorf("expected 0x0190 after recovery, got %v", raw)
	}
}

// TestIntegrationStatusJSON checks the HTTP/heartbeat view after a reading.
func TestIntegrationStatusJSON(t *testing.T) {
	dev := onewiretest.NewDS18B20(0x0190)
	sensor, wire := onewiretest.NewSensor(dev)
	if err := sensor.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	tracker := status.NewTracker(startTime, status.Config{})
	ctrl := logic.NewController(logic.Thresholds{Low: 60, High: 70}, startTime)

	now := startTime.Add(time.Second)
	raw := convert(t, sensor, wire)
	ctrl.Observe(logic.Reading{Timestamp: now, Raw: int16(raw)})
	tracker.RecordReading(now)
	track(tracker, ctrl, int16(raw), now)

	var parsed status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(tracker.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status
	if s.Temperature == nil || s.Temperature.Fahrenheit != 77 || s.Temperature.Celsius != 25 || s.Temperature.Raw != 400 {
		t.Fatalf("unexpected temperature: %+v", s.Temperature)
	}
	if s.Mode != "COOL" || s.Indicator != "BLUE" {
		t.Errorf("unexpected mode/indicator: %s %s", s.Mode, s.Indicator)
	}
	if len(s.Panel) != 2 || s.Panel[0] != "Temp: 77.0 A/C  " {
		t.Errorf("unexpected panel: %q", s.Panel)
	}
	if !s.Sensor.OK {
		t.Error("sensor should be OK")
	}
	if s.Counts.Cool != 1 || s.Counts.Readings != 1 {
		t.Errorf("unexpected counts: %+v", s.Counts)
	}
}

// TestIntegrationThresholdsSurviveRestart edits the thresholds, saves them
// and starts a fresh controller from the store.
func TestIntegrationThresholdsSurviveRestart(t *testing.T) {
	st := store.New(filepath.Join(t.TempDir(), "thresholds.json"))

	initial, err := st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ctrl := logic.NewController(initial, startTime)
	ctrl.Select(logic.SetpointLow, startTime)

	var events []logic.Event
	for i := 0; i < 5; i++ {
		events = append(events, ctrl.Adjust(1, startTime)...)
	}
	events = append(events, ctrl.SetThresholds(logic.Thresholds{Low: 55, High: 75}, startTime)...)

	for _, e := range events {
		if e.Type == logic.EventThresholds {
			if err := st.Save(e.Thresholds); err != nil {
				t.Fatalf("save: %v", err)
			}
		}
	}

	loaded, err := st.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	restarted := logic.NewController(loaded, startTime.Add(time.Hour))
	if restarted.Thresholds() != (logic.Thresholds{Low: 55, High: 75}) {
		t.Errorf("unexpected thresholds after restart: %+v", restarted.Thresholds())
	}
}
