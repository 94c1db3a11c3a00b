package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/temp-controller/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"modeClass": func(s string) string {
		switch s {
		case "HEAT":
			return "heat"
		case "COOL":
			return "cool"
		case "IDLE":
			return "idle"
		}
		return "unknown"
	},
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format(time.RFC3339)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Thermostat</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
pre.panel { background: #1b3d1b; color: #b8f5b8; padding: 0.6em 1em; display: inline-block; font-size: 1.2em; }
.heat { color: #c00; font-weight: bold; }
.cool { color: #06c; font-weight: bold; }
.idle { color: green; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Thermostat</h1>

<pre class="panel" id="panel">{{index .Panel 0}}
{{index .Panel 1}}</pre>

<h2>State</h2>
<table>
<tr><th>Temperature</th><td id="temp">{{if .HaveTemp}}{{.Temp}}°F ({{printf "%.2f" .Celsius}}°C){{else}}--.-{{end}}</td></tr>
<tr><th>Mode</th><td id="mode" class="{{modeClass (printf "%s" .Mode)}}">{{.Mode}}</td></tr>
<tr><th>Indicator</th><td>{{.Indicator}}</td></tr>
<tr><th>Low threshold</th><td>{{.Thresholds.Low}}°F{{if eq (printf "%s" .Focus) "LOW"}} (editing){{end}}</td></tr>
<tr><th>High threshold</th><td>{{.Thresholds.High}}°F{{if eq (printf "%s" .Focus) "HIGH"}} (editing){{end}}</td></tr>
<tr><th>Alarm</th><td>{{if .Armed}}armed{{else}}disarmed{{end}}</td></tr>
<tr><th>Actuator</th><td>{{.Actuator}}</td></tr>
</table>

<h2>Sensor</h2>
<table>
<tr><th>Status</th><td class="{{if .Sensor.OK}}connected{{else}}disconnected{{end}}">{{if .Sensor.OK}}ok{{else}}fault{{end}}{{if .Sensor.Degraded}} (degraded: {{.Sensor.InitError}}){{end}}</td></tr>
<tr><th>Last reading</th><td>{{stamp .Sensor.LastReading}}</td></tr>
<tr><th>Errors</th><td>{{.Sensor.Errors}}</td></tr>
{{if .Sensor.LastError}}<tr><th>Last error</th><td>{{.Sensor.LastError}} at {{stamp .Sensor.LastErrorAt}}</td></tr>{{end}}
<tr><th>Bus driver</th><td>{{.Config.LineDriver}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Heat</th><td>{{.Counts.Heat}}</td></tr>
<tr><th>Cool</th><td>{{.Counts.Cool}}</td></tr>
<tr><th>Idle</th><td>{{.Counts.Idle}}</td></tr>
<tr><th>Alarm</th><td>{{.Counts.Alarm}}</td></tr>
<tr><th>Threshold changes</th><td>{{.Counts.Thresholds}}</td></tr>
<tr><th>Readings</th><td>{{.Counts.Readings}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Input poll</th><td>{{.Config.InputPollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
<tr><th>Thresholds file</th><td>{{.Config.StorePath}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/thresholds">Thresholds</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		Celsius float64
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Celsius:  float64(snap.Raw) / 16,
	}
	indexTmpl.Execute(w, data)
}
