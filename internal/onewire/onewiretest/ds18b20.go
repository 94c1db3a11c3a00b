package onewiretest

import (
	"time"

	"github.com/sweeney/temp-controller/internal/onewire"
)

// PowerOnRaw is the temperature register value after power-up (85 °C).
const PowerOnRaw onewire.Raw = 0x0550

type devState int

const (
	stateROM devState = iota
	stateFunction
	stateWrite
	stateTransmit
	stateConverting
	stateIdle
)

// DS18B20 simulates a single DS18B20 answering Skip ROM.
type DS18B20 struct {
	// Scratchpad is the volatile memory. Bytes 0-1 are updated when a
	// conversion completes.
	Scratchpad onewire.Scratchpad

	// EEPROM holds TH, TL and config after Copy Scratchpad.
	EEPROM [3]byte

	// Temperature is the value the next conversion produces.
	Temperature onewire.Raw

	// ConversionTime is how long Convert T takes.
	ConversionTime time.Duration

	// MissPresence lists reset ordinals (from 1) the device ignores.
	MissPresence []int

	// Counters for assertions.
	Copies      int
	Conversions int
	Writes      int

	state     devState
	rx        byte
	rxBits    int
	tx        []bool
	writeIdx  int
	converted bool
	doneAt    time.Duration
	now       time.Duration
}

var _ Responder = (*DS18B20)(nil)

// NewDS18B20 returns a device that will measure temp. Its scratchpad is in
// the power-on state with thresholds 75/70 and 12-bit resolution.
func NewDS18B20(temp onewire.Raw) *DS18B20 {
	d := &DS18B20{
		Temperature:    temp,
		ConversionTime: 750 * time.Millisecond,
		state:          stateIdle,
		converted:      true,
	}
	lsb, msb := PowerOnRaw.Bytes()
	d.Scratchpad = onewire.Scratchpad{lsb, msb, 0x4b, 0x46, onewire.Resolution12Bit, 0xff, 0x0c, 0x10, 0x00}
	copy(d.EEPROM[:], d.Scratchpad[2:5])
	return d
}

// Converting reports whether a conversion is in progress at now.
func (d *DS18B20) Converting(now time.Duration) bool {
	d.tick(now)
	return !d.converted
}

// Reset implements Responder.
func (d *DS18B20) Reset(n int, now time.Duration) bool {
	d.tick(now)
	for _, m := range d.MissPresence {
		if m == n {
			d.state = stateIdle
			return false
		}
	}
	d.state = stateROM
	d.rx, d.rxBits = 0, 0
	d.tx = nil
	return true
}

// Slot implements Responder.
func (d *DS18B20) Slot(width, now time.Duration) bool {
	d.tick(now)
	if IsWriteZero(width) {
		d.receive(0)
		return false
	}
	switch d.state {
	case stateTransmit:
		if len(d.tx) == 0 {
			return false
		}
		bit := d.tx[0]
		d.tx = d.tx[1:]
		return !bit
	case stateConverting:
		return !d.converted
	}
	d.receive(1)
	return false
}

func (d *DS18B20) tick(now time.Duration) {
	d.now = now
	if !d.converted && now >= d.doneAt {
		d.converted = true
		d.Scratchpad[0], d.Scratchpad[1] = d.Temperature.Bytes()
	}
}

func (d *DS18B20) receive(bit byte) {
	switch d.state {
	case stateROM, stateFunction, stateWrite:
	default:
		return
	}
	d.rx |= bit << d.rxBits
	d.rxBits++
	if d.rxBits < 8 {
		return
	}
	b := d.rx
	d.rx, d.rxBits = 0, 0
	d.command(b)
}

func (d *DS18B20) command(b byte) {
	switch d.state {
	case stateROM:
		if b == onewire.CmdSkipROM {
			d.state = stateFunction
			return
		}
		d.state = stateIdle
	case stateFunction:
		switch b {
		case onewire.CmdReadScratchpad:
			d.tx = bits(d.Scratchpad[:])
			d.state = stateTransmit
		case onewire.CmdWriteScratchpad:
			d.writeIdx = 0
			d.state = stateWrite
		case onewire.CmdCopyScratchpad:
			d.Copies++
			copy(d.EEPROM[:], d.Scratchpad[2:5])
			d.state = stateIdle
		case onewire.CmdConvertT:
			d.Conversions++
			d.converted = false
			d.doneAt = d.now + d.ConversionTime
			d.state = stateConverting
		default:
			d.state = stateIdle
		}
	case stateWrite:
		d.Scratchpad[2+d.writeIdx] = b
		d.writeIdx++
		if d.writeIdx == 3 {
			d.Writes++
			d.state = stateIdle
		}
	}
}

func bits(data []byte) []bool {
	out := make([]bool, 0, len(data)*8)
	for _, b := range data {
		for i := 0; i < 8; i++ {
			out = append(out, b&(1<<i) != 0)
		}
	}
	return out
}
