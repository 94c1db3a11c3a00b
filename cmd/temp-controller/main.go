// Command temp-controller reads a DS18B20 over a 1-Wire bus, drives the
// thermostat panel and publishes temperature and mode changes to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/temp-controller/internal/gpio"
	"github.com/sweeney/temp-controller/internal/logic"
	"github.com/sweeney/temp-controller/internal/mqtt"
	"github.com/sweeney/temp-controller/internal/onewire"
	"github.com/sweeney/temp-controller/internal/status"
	"github.com/sweeney/temp-controller/internal/store"
	"github.com/sweeney/temp-controller/internal/web"
)

// Bus drivers selectable with -line-driver.
const (
	driverGPIOCDev = "gpiocdev"
	driverPeriph   = "periph"
	driverUART     = "uart"
)

type config struct {
	poll          time.Duration
	inputPoll     time.Duration
	broker        string
	heartbeat     time.Duration
	httpAddr      string
	lineDriver    string
	oneWirePin    int
	oneWireChip   string
	periphPin     string
	uartDevice    string
	presenceScan  bool
	thresholdFile string
	noPanel       bool
	printTemp     bool
}

func main() {
	var cfg config
	flag.DurationVar(&cfg.poll, "poll", 200*time.Millisecond, "Sensor polling interval")
	flag.DurationVar(&cfg.inputPoll, "input-poll", 2*time.Millisecond, "Panel input polling interval")
	flag.StringVar(&cfg.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.DurationVar(&cfg.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&cfg.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.StringVar(&cfg.lineDriver, "line-driver", driverGPIOCDev, "1-Wire bus driver: gpiocdev, periph or uart")
	flag.IntVar(&cfg.oneWirePin, "onewire-pin", gpio.PinOneWire, "BCM pin number of the 1-Wire data line (gpiocdev)")
	flag.StringVar(&cfg.oneWireChip, "onewire-chip", gpio.DefaultChip, "GPIO chip for the 1-Wire line and panel (gpiocdev)")
	flag.StringVar(&cfg.periphPin, "periph-pin", "GPIO4", "periph pin name of the 1-Wire data line (periph)")
	flag.StringVar(&cfg.uartDevice, "uart", "/dev/ttyAMA0", "serial device wired to the 1-Wire bus (uart)")
	flag.BoolVar(&cfg.presenceScan, "presence-scan", false, "Scan the whole presence window instead of sampling once")
	flag.StringVar(&cfg.thresholdFile, "thresholds", "/var/lib/temp-controller/thresholds.json", "Threshold storage file")
	flag.BoolVar(&cfg.noPanel, "no-panel", false, "Run without panel, LED, buzzer and actuator hardware")
	flag.BoolVar(&cfg.printTemp, "print-temp", false, "Print one temperature reading and exit")

	flag.Parse()

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config) error {
	bus, closeBus, err := openBus(cfg)
	if err != nil {
		return fmt.Errorf("init 1-wire bus: %w", err)
	}
	defer closeBus()
	ds := onewire.NewSensor(bus, onewire.SpinDelay{})

	// Print temperature mode
	if cfg.printTemp {
		return printTemperature(ds, os.Stdout, time.Sleep, 2*time.Second)
	}

	th := store.New(cfg.thresholdFile)
	initial, err := th.Load()
	if err != nil {
		log.Printf("thresholds: %v, using %d/%d", err, initial.Low, initial.High)
	}

	hw := hardware{}
	if !cfg.noPanel {
		hw, err = openHardware(cfg)
		if err != nil {
			return err
		}
		defer hw.close()
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(cfg.broker, "temp-controller")
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:       cfg.poll.Milliseconds(),
		InputPollMs:  cfg.inputPoll.Milliseconds(),
		HeartbeatMs:  cfg.heartbeat.Milliseconds(),
		Broker:       cfg.broker,
		HTTPPort:     cfg.httpAddr,
		LineDriver:   cfg.lineDriver,
		StorePath:    cfg.thresholdFile,
		PanelEnabled: !cfg.noPanel,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

	initSensor(ds, publisher, tracker, time.Now)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	setpoints := newThresholdQueue()

	// Start HTTP status server
	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker, setpoints)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.httpAddr)
	}

	log.Printf("started: driver=%s poll=%v input-poll=%v broker=%s heartbeat=%v thresholds=%d/%d",
		cfg.lineDriver, cfg.poll, cfg.inputPoll, cfg.broker, cfg.heartbeat, initial.Low, initial.High)

	pollTicker := time.NewTicker(cfg.poll)
	defer pollTicker.Stop()

	var inputTick <-chan time.Time
	if hw.panel != nil {
		inputTicker := time.NewTicker(cfg.inputPoll)
		defer inputTicker.Stop()
		inputTick = inputTicker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		sensor:     ds,
		panel:      hw.panel,
		outputs:    hw.outputs,
		actuator:   hw.actuator,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		store:      th,
		heartbeat:  cfg.heartbeat,
		now:        time.Now,
	}
	return l.run(initial, pollTicker.C, inputTick, setpoints.ch, sigCh)
}

// openBus builds the bus master selected by -line-driver.
func openBus(cfg config) (onewire.Bus, func() error, error) {
	timing := onewire.DefaultTiming()
	timing.PresenceScan = cfg.presenceScan

	switch cfg.lineDriver {
	case driverGPIOCDev:
		line, err := gpio.NewOneWireLine(cfg.oneWireChip, cfg.oneWirePin)
		if err != nil {
			return nil, nil, err
		}
		m, err := onewire.NewMaster(line, onewire.SpinDelay{}, timing)
		if err != nil {
			line.Close()
			return nil, nil, err
		}
		return m, line.Close, nil

	case driverPeriph:
		line, err := gpio.NewPeriphLine(cfg.periphPin)
		if err != nil {
			return nil, nil, err
		}
		m, err := onewire.NewMaster(line, onewire.SpinDelay{}, timing)
		if err != nil {
			line.Close()
			return nil, nil, err
		}
		return m, line.Close, nil

	case driverUART:
		u, err := onewire.OpenUART(cfg.uartDevice)
		if err != nil {
			return nil, nil, err
		}
		return u, u.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown line driver %q", cfg.lineDriver)
}

type hardware struct {
	panel    gpio.Panel
	outputs  gpio.Outputs
	actuator gpio.Actuator
}

func openHardware(cfg config) (hardware, error) {
	var hw hardware
	panel, err := gpio.NewRealPanel(cfg.oneWireChip)
	if err != nil {
		return hw, fmt.Errorf("init panel: %w", err)
	}
	hw.panel = panel

	outputs, err := gpio.NewRealOutputs(cfg.oneWireChip)
	if err != nil {
		hw.close()
		return hardware{}, fmt.Errorf("init outputs: %w", err)
	}
	hw.outputs = outputs

	actuator, err := gpio.NewPWMActuator(fmt.Sprintf("GPIO%d", gpio.PinActuator))
	if err != nil {
		hw.close()
		return hardware{}, fmt.Errorf("init actuator: %w", err)
	}
	hw.actuator = actuator
	return hw, nil
}

func (hw hardware) close() {
	if hw.actuator != nil {
		hw.actuator.Close()
	}
	if hw.outputs != nil {
		hw.outputs.Close()
	}
	if hw.panel != nil {
		hw.panel.Close()
	}
}

// sensor is the part of *onewire.Sensor the daemon uses.
type sensor interface {
	Init() error
	StartConversion() error
	Poll() (onewire.Raw, bool, error)
}

// initSensor configures the sensor once. A failure is reported and the
// daemon carries on with whatever configuration the device holds.
func initSensor(s sensor, publisher mqtt.Publisher, tracker *status.Tracker, now func() time.Time) {
	err := s.Init()
	if err == nil {
		log.Printf("sensor: initialised for 12-bit conversions")
		return
	}
	log.Printf("sensor: init failed, running degraded: %v", err)
	tracker.SetSensorDegraded(err)

	snap := tracker.Snapshot()
	fault := mqtt.SystemEvent{
		Timestamp:  now(),
		Event:      "SENSOR_FAULT",
		Reason:     err.Error(),
		RawPayload: status.FormatStatusEvent(snap, "SENSOR_FAULT", err.Error()),
	}
	if err := publisher.PublishSystem(fault); err != nil {
		log.Printf("failed to publish sensor fault: %v", err)
	}
}

// printTemperature runs one conversion and prints the result.
func printTemperature(s sensor, w io.Writer, sleep func(time.Duration), timeout time.Duration) error {
	if err := s.Init(); err != nil {
		log.Printf("sensor init: %v", err)
	}
	if err := s.StartConversion(); err != nil {
		return err
	}
	const step = 50 * time.Millisecond
	for waited := time.Duration(0); waited < timeout; waited += step {
		sleep(step)
		raw, ok, err := s.Poll()
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(w, "%s (%s°F)\n", raw, logic.FromRaw(int16(raw)))
			return nil
		}
	}
	return errors.New("conversion did not complete")
}

// thresholdQueue hands threshold updates from the web server to the control
// loop. At most one update may be pending.
type thresholdQueue struct {
	ch chan logic.Thresholds
}

func newThresholdQueue() *thresholdQueue {
	return &thresholdQueue{ch: make(chan logic.Thresholds, 1)}
}

var errUpdatePending = errors.New("threshold update already pending")

// SetThresholds queues th without blocking.
func (q *thresholdQueue) SetThresholds(th logic.Thresholds) error {
	select {
	case q.ch <- th:
		return nil
	default:
		return errUpdatePending
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
