package gpio

import (
	"errors"
	"sync"
	"time"

	"github.com/sweeney/temp-controller/internal/logic"
)

// FakePanel is a test double that returns scripted panel states.
type FakePanel struct {
	// Samples contains scripted states to return.
	// Each call to Read() consumes the next sample.
	Samples []PanelState

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakePanel creates a FakePanel with the given samples.
func NewFakePanel(samples []PanelState) *FakePanel {
	return &FakePanel{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakePanel) Read() (PanelState, error) {
	if f.ReadError != nil {
		return PanelState{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return PanelState{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the panel as closed.
func (f *FakePanel) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the panel to the beginning of samples.
func (f *FakePanel) Reset() {
	f.index = 0
	f.Closed = false
}

// Tone is one recorded buzzer request.
type Tone struct {
	Freq     int
	Duration time.Duration
}

// FakeOutputs records indicator changes and tones.
type FakeOutputs struct {
	mu         sync.Mutex
	indicators []logic.Indicator
	tones      []Tone
	Closed     bool
	SetError   error
}

// NewFakeOutputs creates an empty FakeOutputs.
func NewFakeOutputs() *FakeOutputs {
	return &FakeOutputs{}
}

// SetIndicator records ind, or returns SetError.
func (f *FakeOutputs) SetIndicator(ind logic.Indicator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.indicators = append(f.indicators, ind)
	return nil
}

// Tone records the request.
func (f *FakeOutputs) Tone(freq int, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tones = append(f.tones, Tone{Freq: freq, Duration: d})
}

// Close marks the outputs as closed.
func (f *FakeOutputs) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Indicators returns a copy of all indicator values set.
func (f *FakeOutputs) Indicators() []logic.Indicator {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]logic.Indicator(nil), f.indicators...)
}

// Indicator returns the last indicator set, or OFF.
func (f *FakeOutputs) Indicator() logic.Indicator {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.indicators) == 0 {
		return logic.IndicatorOff
	}
	return f.indicators[len(f.indicators)-1]
}

// Tones returns a copy of all tones requested.
func (f *FakeOutputs) Tones() []Tone {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Tone(nil), f.tones...)
}

// FakeActuator records positions.
type FakeActuator struct {
	mu        sync.Mutex
	positions []int
	Closed    bool
}

// NewFakeActuator creates an empty FakeActuator.
func NewFakeActuator() *FakeActuator {
	return &FakeActuator{}
}

// SetPosition records pos, rejecting values the PWM cannot express.
func (f *FakeActuator) SetPosition(pos int) error {
	if _, err := positionDuty(pos); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = append(f.positions, pos)
	return nil
}

// Close marks the actuator as closed.
func (f *FakeActuator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Positions returns a copy of all positions set.
func (f *FakeActuator) Positions() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.positions...)
}

// Position returns the last position set, or -1.
func (f *FakeActuator) Position() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.positions) == 0 {
		return -1
	}
	return f.positions[len(f.positions)-1]
}
