package main

import (
	"log"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/temp-controller/internal/gpio"
	"github.com/sweeney/temp-controller/internal/logic"
	"github.com/sweeney/temp-controller/internal/mqtt"
	"github.com/sweeney/temp-controller/internal/status"
	"github.com/sweeney/temp-controller/internal/store"
)

// loop is the control loop. Panel, outputs, actuator, store and mqttStatus
// are optional.
type loop struct {
	sensor     sensor
	panel      gpio.Panel
	outputs    gpio.Outputs
	actuator   gpio.Actuator
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	store      *store.Store
	heartbeat  time.Duration
	now        func() time.Time

	ctrl       *logic.Controller
	encoder    *logic.Encoder
	buttons    gpio.PanelState
	converting bool
	lastRaw    int16
	lastErr    string
	indicator  logic.Indicator
	position   int
}

// run drives the controller from the tick channels until a signal arrives.
func (l *loop) run(initial logic.Thresholds, poll, input <-chan time.Time, setpoints <-chan logic.Thresholds, sig <-chan os.Signal) error {
	l.ctrl = logic.NewController(initial, l.now())
	l.position = -1
	l.startConversion(l.now())
	l.refresh(l.now())

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			l.shutdown(s)
			return nil

		case <-poll:
			t := l.now()
			l.pollSensor(t)
			l.checkHeartbeat(t)
			l.refresh(t)

		case <-input:
			t := l.now()
			l.readPanel(t)
			l.refresh(t)

		case th := <-setpoints:
			t := l.now()
			log.Printf("thresholds requested: low=%d high=%d", th.Low, th.High)
			l.handle(l.ctrl.SetThresholds(th, t))
			l.refresh(t)
		}
	}
}

func (l *loop) startConversion(t time.Time) {
	if err := l.sensor.StartConversion(); err != nil {
		l.sensorError(err, t)
		l.converting = false
		return
	}
	l.converting = true
}

func (l *loop) pollSensor(t time.Time) {
	if !l.converting {
		l.startConversion(t)
		return
	}
	raw, ready, err := l.sensor.Poll()
	if err != nil {
		l.sensorError(err, t)
		l.startConversion(t)
		return
	}
	if !ready {
		return
	}

	if l.lastErr != "" {
		log.Printf("sensor: recovered")
		l.lastErr = ""
	}
	reading := logic.Reading{Timestamp: t, Raw: int16(raw)}
	l.lastRaw = reading.Raw
	l.tracker.RecordReading(t)
	if err := l.publisher.PublishReading(reading); err != nil {
		log.Printf("reading publish error: %v", err)
	}
	l.handle(l.ctrl.Observe(reading))
	l.startConversion(t)
}

// sensorError counts every failure but logs only when the message changes.
func (l *loop) sensorError(err error, t time.Time) {
	l.tracker.RecordSensorError(err, t)
	if msg := err.Error(); msg != l.lastErr {
		log.Printf("sensor: %v", err)
		l.lastErr = msg
	}
}

func (l *loop) readPanel(t time.Time) {
	if l.panel == nil {
		return
	}
	st, err := l.panel.Read()
	if err != nil {
		log.Printf("panel read error: %v", err)
		return
	}
	if l.encoder == nil {
		l.encoder = logic.NewEncoder(st.EncoderA, st.EncoderB)
	} else if d := l.encoder.Update(st.EncoderA, st.EncoderB); d != 0 {
		l.handle(l.ctrl.Adjust(d, t))
	}

	if st.SelectLow && !l.buttons.SelectLow {
		l.ctrl.Select(logic.SetpointLow, t)
	}
	if st.SelectHigh && !l.buttons.SelectHigh {
		l.ctrl.Select(logic.SetpointHigh, t)
	}
	l.buttons = st
}

func (l *loop) handle(events []logic.Event) {
	for _, event := range events {
		log.Printf("event: %s (mode=%s temp=%s low=%d high=%d)",
			event.Type, event.Mode, event.Temp, event.Thresholds.Low, event.Thresholds.High)
		if err := l.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
		}

		switch event.Type {
		case logic.EventAlarm:
			if l.outputs != nil {
				l.outputs.Tone(logic.AlarmFrequency, logic.AlarmDuration)
			}
		case logic.EventThresholds:
			if l.store != nil {
				if err := l.store.Save(event.Thresholds); err != nil {
					log.Printf("thresholds save error: %v", err)
				}
			}
		}
	}
}

func (l *loop) checkHeartbeat(t time.Time) {
	hb := l.ctrl.CheckHeartbeat(t, l.heartbeat)
	if hb == nil {
		return
	}
	log.Printf("heartbeat: uptime=%v readings=%d heat=%d cool=%d idle=%d alarm=%d",
		hb.Uptime, hb.Counts.Readings, hb.Counts.Heat, hb.Counts.Cool, hb.Counts.Idle, hb.Counts.Alarm)

	// Refresh network info for heartbeat
	if net := readNetworkInfo(); net != nil {
		l.tracker.SetNetwork(net)
	}
	l.refresh(t)
	event := mqtt.SystemEvent{
		Timestamp:  hb.Timestamp,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", ""),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

// refresh pushes the controller state to the outputs and the tracker.
func (l *loop) refresh(t time.Time) {
	if ind := l.ctrl.Indicator(); ind != l.indicator {
		l.indicator = ind
		if l.outputs != nil {
			if err := l.outputs.SetIndicator(ind); err != nil {
				log.Printf("indicator error: %v", err)
			}
		}
	}
	pos := l.ctrl.Actuator(t)
	if pos != l.position {
		l.position = pos
		if l.actuator != nil {
			if err := l.actuator.SetPosition(pos); err != nil {
				log.Printf("actuator error: %v", err)
			}
		}
	}

	temp, haveTemp := l.ctrl.Temp()
	l.tracker.Update(status.Control{
		Temp:       temp,
		HaveTemp:   haveTemp,
		Raw:        l.lastRaw,
		Mode:       l.ctrl.Mode(),
		Indicator:  l.indicator,
		Thresholds: l.ctrl.Thresholds(),
		Focus:      l.ctrl.Focus(),
		Armed:      l.ctrl.Armed(),
		Actuator:   pos,
		Panel:      l.ctrl.Panel(),
		Counts:     l.ctrl.EventCountsSnapshot(),
	})
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

func (l *loop) shutdown(s os.Signal) {
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}

	l.refresh(l.now())
	event := mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      "SHUTDOWN",
		Reason:     signalName,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", signalName),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}

	if l.outputs != nil {
		if err := l.outputs.SetIndicator(logic.IndicatorOff); err != nil {
			log.Printf("indicator error: %v", err)
		}
	}
}
