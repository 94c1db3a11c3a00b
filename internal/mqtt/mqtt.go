// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/temp-controller/internal/logic"
)

// Topics.
const (
	// TopicTemperature carries every decoded reading.
	TopicTemperature = "home/thermostat/temperature"

	// TopicEvents carries mode, alarm and threshold events.
	TopicEvents = "home/thermostat/events"

	// TopicSystem is the MQTT topic for system lifecycle events.
	TopicSystem = "home/thermostat/system"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a thermostat event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishReading sends a temperature reading.
	PublishReading(r logic.Reading) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "SENSOR_FAULT"
	Reason     string // e.g., "SIGTERM", or the sensor error
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for thermostat events.
type Payload struct {
	Thermostat EventPayload `json:"thermostat"`
}

// EventPayload contains the event details.
type EventPayload struct {
	Timestamp   string          `json:"timestamp"`
	Event       string          `json:"event"`
	Mode        string          `json:"mode"`
	Temperature *float64        `json:"temperature"` // °F, null before the first reading
	Thresholds  ThresholdsState `json:"thresholds"`
}

// ThresholdsState is the thresholds at the time of the event.
type ThresholdsState struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// FormatPayload creates the JSON payload for a thermostat event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Thermostat: EventPayload{
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Event:      string(event.Type),
			Mode:       string(event.Mode),
			Thresholds: ThresholdsState{Low: event.Thresholds.Low, High: event.Thresholds.High},
		},
	}
	if event.HaveTemp {
		f := event.Temp.Float()
		payload.Thermostat.Temperature = &f
	}
	return json.Marshal(payload)
}

// ReadingPayload represents the MQTT message payload for a reading.
type ReadingPayload struct {
	Temperature ReadingInner `json:"temperature"`
}

// ReadingInner contains the reading details.
type ReadingInner struct {
	Timestamp  string  `json:"timestamp"`
	Fahrenheit float64 `json:"fahrenheit"`
	Celsius    float64 `json:"celsius"`
	Raw        int16   `json:"raw"`
}

// FormatReadingPayload creates the JSON payload for a reading.
func FormatReadingPayload(r logic.Reading) ([]byte, error) {
	return json.Marshal(ReadingPayload{
		Temperature: ReadingInner{
			Timestamp:  r.Timestamp.UTC().Format(time.RFC3339),
			Fahrenheit: r.Fahrenheit().Float(),
			Celsius:    r.Celsius(),
			Raw:        r.Raw,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
