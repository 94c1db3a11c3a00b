package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string           `json:"event,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	Temperature   *TemperatureJSON `json:"temperature"`
	Mode          string           `json:"mode"`
	Indicator     string           `json:"indicator"`
	Thresholds    ThresholdsJSON   `json:"thresholds"`
	AlarmArmed    bool             `json:"alarm_armed"`
	Actuator      int              `json:"actuator"`
	Panel         []string         `json:"panel"`
	Sensor        SensorJSON       `json:"sensor"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	StartTime     string           `json:"start_time"`
	Timestamp     string           `json:"timestamp"`
	MQTT          MQTTStatus       `json:"mqtt"`
	Counts        CountsJSON       `json:"event_counts"`
	Network       *NetworkJSON     `json:"network,omitempty"`
	Config        ConfigJSON       `json:"config"`
}

// TemperatureJSON is the last reading. Omitted (null) before the first one.
type TemperatureJSON struct {
	Fahrenheit float64 `json:"fahrenheit"`
	Display    string  `json:"display"`
	Celsius    float64 `json:"celsius"`
	Raw        int16   `json:"raw"`
}

// ThresholdsJSON is the JSON representation of the thresholds.
type ThresholdsJSON struct {
	Low   int    `json:"low"`
	High  int    `json:"high"`
	Focus string `json:"focus"`
}

// SensorJSON reports sensor health.
type SensorJSON struct {
	OK          bool   `json:"ok"`
	Degraded    bool   `json:"degraded"`
	InitError   string `json:"init_error,omitempty"`
	Errors      int    `json:"errors"`
	LastError   string `json:"last_error,omitempty"`
	LastReading string `json:"last_reading,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Heat       int `json:"heat"`
	Cool       int `json:"cool"`
	Idle       int `json:"idle"`
	Alarm      int `json:"alarm"`
	Thresholds int `json:"thresholds"`
	Readings   int `json:"readings"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	InputPollMs int64  `json:"input_poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	LineDriver  string `json:"line_driver"`
	StorePath   string `json:"store_path"`
	Panel       bool   `json:"panel"`
}

func buildInner(snap Snapshot) StatusInner {
	mode := string(snap.Mode)
	if mode == "" {
		mode = "UNKNOWN"
	}
	indicator := string(snap.Indicator)
	if indicator == "" {
		indicator = "OFF"
	}
	focus := string(snap.Focus)
	if focus == "" {
		focus = "HIGH"
	}

	inner := StatusInner{
		Mode:      mode,
		Indicator: indicator,
		Thresholds: ThresholdsJSON{
			Low:   snap.Thresholds.Low,
			High:  snap.Thresholds.High,
			Focus: focus,
		},
		AlarmArmed: snap.Armed,
		Actuator:   snap.Actuator,
		Panel:      []string{snap.Panel[0], snap.Panel[1]},
		Sensor: SensorJSON{
			OK:        snap.Sensor.OK(),
			Degraded:  snap.Sensor.Degraded,
			InitError: snap.Sensor.InitError,
			Errors:    snap.Sensor.Errors,
			LastError: snap.Sensor.LastError,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Heat:       snap.Counts.Heat,
			Cool:       snap.Counts.Cool,
			Idle:       snap.Counts.Idle,
			Alarm:      snap.Counts.Alarm,
			Thresholds: snap.Counts.Thresholds,
			Readings:   snap.Counts.Readings,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			InputPollMs: snap.Config.InputPollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			LineDriver:  snap.Config.LineDriver,
			StorePath:   snap.Config.StorePath,
			Panel:       snap.Config.PanelEnabled,
		},
	}
	if snap.HaveTemp {
		inner.Temperature = &TemperatureJSON{
			Fahrenheit: snap.Temp.Float(),
			Display:    snap.Temp.String(),
			Celsius:    float64(snap.Raw) / 16,
			Raw:        snap.Raw,
		}
	}
	if !snap.Sensor.LastReading.IsZero() {
		inner.Sensor.LastReading = snap.Sensor.LastReading.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
