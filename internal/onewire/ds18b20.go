package onewire

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// DS18B20 command bytes.
const (
	CmdSkipROM         byte = 0xcc
	CmdConvertT        byte = 0x44
	CmdCopyScratchpad  byte = 0x48
	CmdWriteScratchpad byte = 0x4e
	CmdReadScratchpad  byte = 0xbe
)

// Resolution12Bit is the configuration register value for 12-bit
// conversions (1/16 °C, 750ms).
const Resolution12Bit byte = 0x7f

// Settle delays between the configuration transactions.
const (
	writeSettle = 100 * time.Microsecond
	copySettle  = 20 * time.Millisecond
)

var (
	// ErrNoPresence is returned when a reset gets no presence pulse.
	ErrNoPresence = errors.New("onewire: no presence pulse")

	// ErrBusLow is returned when the released line does not idle high.
	ErrBusLow = errors.New("onewire: bus does not idle high (pull-up missing?)")

	// ErrIO is returned when the bus hardware recorded a failure during a
	// transaction. The cause is wrapped alongside it.
	ErrIO = errors.New("onewire: bus i/o error")
)

// Bus is the transaction-level view of a 1-Wire master.
type Bus interface {
	Reset() bool
	SendByte(b byte)
	RecvByte() byte
	ReadBit() bool
	IdleHigh() bool
}

// ScratchpadSize is the length of the DS18B20 scratchpad.
const ScratchpadSize = 9

// Scratchpad is a snapshot of the device memory. Bytes 0-1 hold the
// temperature, 2-3 the alarm thresholds, 4 the configuration register and 8
// the CRC.
type Scratchpad [ScratchpadSize]byte

// Raw returns the temperature bytes.
func (s Scratchpad) Raw() Raw { return RawFromBytes(s[0], s[1]) }

// TH returns the high alarm threshold byte.
func (s Scratchpad) TH() byte { return s[2] }

// TL returns the low alarm threshold byte.
func (s Scratchpad) TL() byte { return s[3] }

// Config returns the configuration register.
func (s Scratchpad) Config() byte { return s[4] }

// Sensor drives the lone DS18B20 on a bus. It is the only user of the bus:
// every operation holds the lock for the whole transaction.
//
// No operation is retried. A failed reset aborts the operation and partial
// writes already sent are left as they are.
type Sensor struct {
	mu    sync.Mutex
	bus   Bus
	delay Delayer
}

// NewSensor returns a Sensor that takes ownership of bus.
func NewSensor(bus Bus, delay Delayer) *Sensor {
	return &Sensor{bus: bus, delay: delay}
}

// Init checks the idle level, then configures the device for 12-bit
// conversions while keeping its TH and TL bytes, and copies the result to
// EEPROM. It must be called once before the other operations.
func (s *Sensor) Init() error {
	defer s.lock()()

	if !s.bus.IdleHigh() {
		return s.checkIO(ErrBusLow)
	}

	var spad Scratchpad
	if err := s.begin(CmdReadScratchpad); err != nil {
		return fmt.Errorf("read scratchpad: %w", err)
	}
	for i := range spad {
		spad[i] = s.bus.RecvByte()
	}
	if err := s.checkIO(nil); err != nil {
		return fmt.Errorf("read scratchpad: %w", err)
	}

	if err := s.begin(CmdWriteScratchpad); err != nil {
		return fmt.Errorf("write scratchpad: %w", err)
	}
	s.bus.SendByte(spad.TH())
	s.bus.SendByte(spad.TL())
	s.bus.SendByte(Resolution12Bit)
	if err := s.checkIO(nil); err != nil {
		return fmt.Errorf("write scratchpad: %w", err)
	}
	s.delay.Delay(writeSettle)

	if err := s.begin(CmdCopyScratchpad); err != nil {
		return fmt.Errorf("copy scratchpad: %w", err)
	}
	if err := s.checkIO(nil); err != nil {
		return fmt.Errorf("copy scratchpad: %w", err)
	}
	s.delay.Delay(copySettle)
	return nil
}

// StartConversion starts a temperature conversion and returns without
// waiting; Poll reports completion.
func (s *Sensor) StartConversion() error {
	defer s.lock()()

	err := s.begin(CmdConvertT)
	if err == nil {
		err = s.checkIO(nil)
	}
	if err != nil {
		return fmt.Errorf("start conversion: %w", err)
	}
	return nil
}

// Poll reads one bit from the bus. While the device is converting the bit
// is 0 and Poll returns ready=false without resetting the bus. Once the bit
// is 1 it reads the scratchpad and returns the raw temperature.
func (s *Sensor) Poll() (Raw, bool, error) {
	defer s.lock()()

	if !s.bus.ReadBit() {
		if err := s.checkIO(nil); err != nil {
			return 0, false, fmt.Errorf("read temperature: %w", err)
		}
		return 0, false, nil
	}
	if err := s.begin(CmdReadScratchpad); err != nil {
		return 0, false, fmt.Errorf("read temperature: %w", err)
	}
	lsb := s.bus.RecvByte()
	msb := s.bus.RecvByte()
	// Drain the rest so the device ends the transfer cleanly.
	for i := 2; i < ScratchpadSize; i++ {
		s.bus.RecvByte()
	}
	if err := s.checkIO(nil); err != nil {
		return 0, false, fmt.Errorf("read temperature: %w", err)
	}
	return RawFromBytes(lsb, msb), true, nil
}

// lock serializes transactions and pins the calling goroutine to its OS
// thread until the returned func runs.
func (s *Sensor) lock() func() {
	s.mu.Lock()
	runtime.LockOSThread()
	return func() {
		runtime.UnlockOSThread()
		s.mu.Unlock()
	}
}

// begin resets the bus and addresses the only device with Skip ROM.
func (s *Sensor) begin(cmd byte) error {
	if !s.bus.Reset() {
		return s.checkIO(ErrNoPresence)
	}
	s.bus.SendByte(CmdSkipROM)
	s.bus.SendByte(cmd)
	return nil
}

// checkIO replaces err with the failure the bus hardware recorded, if any,
// so a broken line is not reported as a missing device. Taking the failure
// clears it, and the next transaction starts clean.
func (s *Sensor) checkIO(err error) error {
	f, ok := s.bus.(Faulter)
	if !ok {
		return err
	}
	if ioErr := f.TakeErr(); ioErr != nil {
		return fmt.Errorf("%w: %w", ErrIO, ioErr)
	}
	return err
}
