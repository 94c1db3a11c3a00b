//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/temp-controller/internal/logic"
)

// closeLines closes lines and the chip, collecting errors.
func closeLines(chip *gpiocdev.Chip, lines ...*gpiocdev.Line) error {
	var errs []error
	for _, l := range lines {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", l.Offset(), err))
		}
	}
	if chip != nil {
		if err := chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealPanel reads the panel from actual hardware using Linux GPIO character device.
type RealPanel struct {
	chip  *gpiocdev.Chip
	encA  *gpiocdev.Line
	encB  *gpiocdev.Line
	selLo *gpiocdev.Line
	selHi *gpiocdev.Line
}

// NewRealPanel requests the encoder and button lines as inputs with pull-ups.
func NewRealPanel(chipName string) (*RealPanel, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	p := &RealPanel{chip: chip}
	pins := []struct {
		name string
		pin  int
		dst  **gpiocdev.Line
	}{
		{"encoder A", PinEncoderA, &p.encA},
		{"encoder B", PinEncoderB, &p.encB},
		{"select low", PinSelectLow, &p.selLo},
		{"select high", PinSelectHigh, &p.selHi},
	}
	for _, pn := range pins {
		l, err := chip.RequestLine(pn.pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", pn.name, pn.pin, err)
		}
		*pn.dst = l
	}
	return p, nil
}

// Read returns the panel state. Buttons are inverted: raw 0 = pressed.
func (p *RealPanel) Read() (PanelState, error) {
	var raw [4]int
	for i, l := range []*gpiocdev.Line{p.encA, p.encB, p.selLo, p.selHi} {
		v, err := l.Value()
		if err != nil {
			return PanelState{}, fmt.Errorf("read pin %d: %w", l.Offset(), err)
		}
		raw[i] = v
	}
	return PanelState{
		EncoderA:   raw[0] == 1,
		EncoderB:   raw[1] == 1,
		SelectLow:  raw[2] == 0,
		SelectHigh: raw[3] == 0,
	}, nil
}

// Close releases GPIO resources.
func (p *RealPanel) Close() error {
	return closeLines(p.chip, p.encA, p.encB, p.selLo, p.selHi)
}

// RealOutputs drives the active-low RGB LED and the buzzer.
type RealOutputs struct {
	chip   *gpiocdev.Chip
	red    *gpiocdev.Line
	green  *gpiocdev.Line
	blue   *gpiocdev.Line
	buzzer *gpiocdev.Line

	playing   atomic.Bool
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewRealOutputs requests the LED lines (initially off) and the buzzer line.
func NewRealOutputs(chipName string) (*RealOutputs, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	o := &RealOutputs{chip: chip, stop: make(chan struct{})}
	pins := []struct {
		name    string
		pin     int
		initial int
		dst     **gpiocdev.Line
	}{
		{"red", PinRed, activeLow(false), &o.red},
		{"green", PinGreen, activeLow(false), &o.green},
		{"blue", PinBlue, activeLow(false), &o.blue},
		{"buzzer", PinBuzzer, 0, &o.buzzer},
	}
	for _, pn := range pins {
		l, err := chip.RequestLine(pn.pin, gpiocdev.AsOutput(pn.initial))
		if err != nil {
			closeLines(chip, o.red, o.green, o.blue, o.buzzer)
			return nil, fmt.Errorf("request %s pin %d: %w", pn.name, pn.pin, err)
		}
		*pn.dst = l
	}
	return o, nil
}

// SetIndicator lights the LED for ind.
func (o *RealOutputs) SetIndicator(ind logic.Indicator) error {
	r, g, b := ledLevels(ind)
	if err := o.red.SetValue(activeLow(r)); err != nil {
		return fmt.Errorf("set red: %w", err)
	}
	if err := o.green.SetValue(activeLow(g)); err != nil {
		return fmt.Errorf("set green: %w", err)
	}
	if err := o.blue.SetValue(activeLow(b)); err != nil {
		return fmt.Errorf("set blue: %w", err)
	}
	return nil
}

// Tone toggles the buzzer line at freq Hz for d in a goroutine.
func (o *RealOutputs) Tone(freq int, d time.Duration) {
	if freq <= 0 || d <= 0 || !o.playing.CompareAndSwap(false, true) {
		return
	}
	half := time.Second / time.Duration(2*freq)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.playing.Store(false)
		defer o.buzzer.SetValue(0)

		ticker := time.NewTicker(half)
		defer ticker.Stop()
		deadline := time.After(d)
		level := 0
		for {
			select {
			case <-o.stop:
				return
			case <-deadline:
				return
			case <-ticker.C:
				level ^= 1
				o.buzzer.SetValue(level)
			}
		}
	}()
}

// Close silences the buzzer, turns the LED off and releases GPIO resources.
// Calls after the first return its result.
func (o *RealOutputs) Close() error {
	o.closeOnce.Do(func() {
		close(o.stop)
		o.wg.Wait()
		if o.red != nil {
			o.SetIndicator(logic.IndicatorOff)
		}
		o.closeErr = closeLines(o.chip, o.red, o.green, o.blue, o.buzzer)
	})
	return o.closeErr
}

// OneWireLine is a 1-Wire data line on an open-drain gpiocdev output.
// The bus pull-up is external, so the internal bias is disabled.
// Line failures are recorded and reported by Err.
type OneWireLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	err  error
}

// NewOneWireLine requests pin as an open-drain output, initially released.
func NewOneWireLine(chipName string, pin int) (*OneWireLine, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	line, err := chip.RequestLine(pin,
		gpiocdev.AsOutput(1),
		gpiocdev.AsOpenDrain,
		gpiocdev.WithBiasDisabled,
		gpiocdev.WithConsumer("onewire"))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request 1-wire pin %d: %w", pin, err)
	}
	return &OneWireLine{chip: chip, line: line}, nil
}

// Release stops driving the line; the pull-up takes it high.
func (l *OneWireLine) Release() {
	l.set(1)
}

// DriveLow pulls the line low.
func (l *OneWireLine) DriveLow() {
	l.set(0)
}

// Sample reads the line level. A failed read samples as high.
func (l *OneWireLine) Sample() bool {
	v, err := l.line.Value()
	if err != nil {
		l.record(fmt.Errorf("read 1-wire pin: %w", err))
		return true
	}
	return v == 1
}

// Err returns the first line failure, if any.
func (l *OneWireLine) Err() error {
	return l.err
}

// TakeErr returns the first line failure and clears it.
func (l *OneWireLine) TakeErr() error {
	err := l.err
	l.err = nil
	return err
}

// Close releases the line and the chip.
func (l *OneWireLine) Close() error {
	return closeLines(l.chip, l.line)
}

func (l *OneWireLine) set(v int) {
	if err := l.line.SetValue(v); err != nil {
		l.record(fmt.Errorf("set 1-wire pin: %w", err))
	}
}

func (l *OneWireLine) record(err error) {
	if l.err == nil {
		l.err = err
	}
}
