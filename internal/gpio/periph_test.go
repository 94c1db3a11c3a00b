package gpio

import (
	"errors"
	"testing"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/sweeney/temp-controller/internal/onewire"
)

var (
	_ onewire.Line = (*PeriphLine)(nil)
	_ onewire.Line = (*OneWireLine)(nil)
)

func TestPeriphLine(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO4", Num: 4, L: pgpio.High, P: pgpio.PullUp}
	l, err := newPeriphLine(pin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pin.P != pgpio.Float {
		t.Errorf("released line should float, got pull %s", pin.P)
	}
	if !l.Sample() {
		t.Error("expected high")
	}

	l.DriveLow()
	if pin.L != pgpio.Low {
		t.Fatal("DriveLow should output low")
	}
	if l.Sample() {
		t.Error("expected low")
	}
	if l.Err() != nil {
		t.Errorf("unexpected error: %v", l.Err())
	}
}

// dutyOf is pos/256 of full scale, computed wide enough not to overflow.
func dutyOf(pos int64) pgpio.Duty {
	return pgpio.Duty(int64(pgpio.DutyMax) * pos / 256)
}

func TestPositionDuty(t *testing.T) {
	tests := []struct {
		pos  int
		want pgpio.Duty
	}{
		{0, 0},
		{128, pgpio.DutyHalf},
		{24, dutyOf(24)},
		{255, dutyOf(255)},
	}
	for _, tt := range tests {
		got, err := positionDuty(tt.pos)
		if err != nil {
			t.Fatalf("pos %d: unexpected error: %v", tt.pos, err)
		}
		if got != tt.want {
			t.Errorf("pos %d: got %s, want %s", tt.pos, got, tt.want)
		}
	}
	for _, pos := range []int{-1, 256} {
		if _, err := positionDuty(pos); !errors.Is(err, errPosition) {
			t.Errorf("pos %d: expected errPosition, got %v", pos, err)
		}
	}
}

func TestPWMActuator(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO18", Num: 18}
	a := &PWMActuator{pin: pin}

	if err := a.SetPosition(32); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pin.D != pgpio.DutyMax/8 {
		t.Errorf("duty: got %s, want %s", pin.D, pgpio.DutyMax/8)
	}
	if pin.F != ActuatorFrequency {
		t.Errorf("frequency: got %s, want %s", pin.F, ActuatorFrequency)
	}
	if err := a.SetPosition(300); err == nil {
		t.Error("expected range error")
	}
	if err := a.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
