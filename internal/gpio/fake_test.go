package gpio

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/temp-controller/internal/logic"
)

// Compile-time interface checks.
var (
	_ Panel    = (*FakePanel)(nil)
	_ Outputs  = (*FakeOutputs)(nil)
	_ Actuator = (*FakeActuator)(nil)
	_ Panel    = (*RealPanel)(nil)
	_ Outputs  = (*RealOutputs)(nil)
	_ Actuator = (*PWMActuator)(nil)
)

func TestFakePanelRead(t *testing.T) {
	samples := []PanelState{
		{EncoderA: true},
		{EncoderA: true, EncoderB: true},
		{SelectLow: true},
	}

	f := NewFakePanel(samples)

	for i, want := range samples {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("sample %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("sample %d: expected %+v, got %+v", i, want, got)
		}
	}

	// Further reads repeat the last sample
	got, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != samples[2] {
		t.Errorf("repeat: expected %+v, got %+v", samples[2], got)
	}
}

func TestFakePanelNoSamples(t *testing.T) {
	f := NewFakePanel(nil)

	_, err := f.Read()
	if err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakePanelError(t *testing.T) {
	f := NewFakePanel([]PanelState{{}})
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakePanelCloseAndReset(t *testing.T) {
	f := NewFakePanel([]PanelState{{SelectHigh: true}, {}})

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Read()
	f.Reset()
	if f.Closed {
		t.Error("Reset should clear Closed")
	}
	got, _ := f.Read()
	if !got.SelectHigh {
		t.Errorf("after reset: expected first sample, got %+v", got)
	}
}

func TestFakeOutputs(t *testing.T) {
	f := NewFakeOutputs()
	if f.Indicator() != logic.IndicatorOff {
		t.Errorf("expected OFF initially, got %s", f.Indicator())
	}

	f.SetIndicator(logic.IndicatorRed)
	f.SetIndicator(logic.IndicatorGreen)
	f.Tone(400, time.Second)

	if got := f.Indicators(); len(got) != 2 || got[1] != logic.IndicatorGreen {
		t.Errorf("unexpected indicators: %v", got)
	}
	if got := f.Tones(); len(got) != 1 || got[0] != (Tone{Freq: 400, Duration: time.Second}) {
		t.Errorf("unexpected tones: %v", got)
	}

	f.SetError = errors.New("boom")
	if err := f.SetIndicator(logic.IndicatorBlue); err == nil {
		t.Error("expected SetError")
	}
	if f.Indicator() != logic.IndicatorGreen {
		t.Errorf("failed set should not record, got %s", f.Indicator())
	}
}

func TestFakeActuator(t *testing.T) {
	f := NewFakeActuator()
	if f.Position() != -1 {
		t.Errorf("expected -1 initially, got %d", f.Position())
	}
	if err := f.SetPosition(24); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.SetPosition(256); !errors.Is(err, errPosition) {
		t.Errorf("expected errPosition, got %v", err)
	}
	if got := f.Positions(); len(got) != 1 || got[0] != 24 {
		t.Errorf("unexpected positions: %v", got)
	}
}

func TestLEDLevels(t *testing.T) {
	tests := []struct {
		ind     logic.Indicator
		r, g, b bool
	}{
		{logic.IndicatorOff, false, false, false},
		{logic.IndicatorRed, true, false, false},
		{logic.IndicatorGreen, false, true, false},
		{logic.IndicatorBlue, false, false, true},
	}
	for _, tt := range tests {
		r, g, b := ledLevels(tt.ind)
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("%s: got (%v, %v, %v)", tt.ind, r, g, b)
		}
	}
	if activeLow(true) != 0 || activeLow(false) != 1 {
		t.Error("LEDs are active low")
	}
}
