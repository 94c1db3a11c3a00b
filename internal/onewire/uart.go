package onewire

// A UART wired to the data line through an open-drain buffer can generate
// the 1-Wire slots itself. At 9600 baud the character 0xF0 is a 520µs reset
// pulse and the echoed bits show whether a device pulled the line low. At
// 115200 baud each character is one time slot: 0xFF is a write-1 or read
// slot, 0x00 a write-0 slot, and an echo other than 0xFF means the device
// held the line low.
//
// See Maxim application note 214.

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

const (
	uartResetBaud = 9600
	uartSlotBaud  = 115200
	uartTimeout   = 100 * time.Millisecond

	uartResetPulse byte = 0xf0
	uartSlot1      byte = 0xff
	uartSlot0      byte = 0x00
)

// UART is a Bus backed by a serial port. I/O errors are sticky: once one
// occurs every reset fails until TakeErr collects it.
type UART struct {
	port serial.Port
	mode serial.Mode
	err  error
}

// OpenUART opens device as a 1-Wire bus master.
func OpenUART(device string) (*UART, error) {
	mode := slotMode()
	p, err := serial.Open(device, &mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	u, err := NewUART(p)
	if err != nil {
		p.Close()
		return nil, err
	}
	return u, nil
}

// NewUART uses an already open port.
func NewUART(port serial.Port) (*UART, error) {
	u := &UART{port: port, mode: slotMode()}
	if err := port.SetReadTimeout(uartTimeout); err != nil {
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	if err := port.SetMode(&u.mode); err != nil {
		return nil, fmt.Errorf("set mode: %w", err)
	}
	return u, nil
}

func slotMode() serial.Mode {
	return serial.Mode{
		BaudRate: uartSlotBaud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Err returns the first I/O error seen, if any.
func (u *UART) Err() error {
	return u.err
}

// TakeErr returns the recorded I/O error and clears it.
func (u *UART) TakeErr() error {
	err := u.err
	u.err = nil
	return err
}

// Close closes the port.
func (u *UART) Close() error {
	return u.port.Close()
}

// Reset sends a reset pulse and checks the echo for a presence pulse.
func (u *UART) Reset() bool {
	if !u.setBaud(uartResetBaud) {
		return false
	}
	echo := u.exchange([]byte{uartResetPulse})
	if !u.setBaud(uartSlotBaud) || echo == nil {
		return false
	}
	// The low nibble is driven by the UART itself; anything set there is
	// noise on the line.
	return echo[0] != uartResetPulse && echo[0]&0x0f == 0
}

// WriteBit sends one slot.
func (u *UART) WriteBit(v bool) {
	c := uartSlot0
	if v {
		c = uartSlot1
	}
	u.exchange([]byte{c})
}

// ReadBit runs one read slot. A failed exchange reads as 1, like a bus
// with nothing on it.
func (u *UART) ReadBit() bool {
	echo := u.exchange([]byte{uartSlot1})
	return echo == nil || echo[0] == uartSlot1
}

// SendByte writes b least significant bit first, one character per bit.
func (u *UART) SendByte(b byte) {
	var slots [8]byte
	for i := range slots {
		if b&(1<<i) != 0 {
			slots[i] = uartSlot1
		}
	}
	u.exchange(slots[:])
}

// RecvByte runs 8 read slots.
func (u *UART) RecvByte() byte {
	slots := [8]byte{uartSlot1, uartSlot1, uartSlot1, uartSlot1, uartSlot1, uartSlot1, uartSlot1, uartSlot1}
	echo := u.exchange(slots[:])
	if echo == nil {
		return 0xff
	}
	var b byte
	for i, c := range echo {
		if c == uartSlot1 {
			b |= 1 << i
		}
	}
	return b
}

// IdleHigh reports whether a read slot with no device activity comes back
// high.
func (u *UART) IdleHigh() bool {
	if u.err != nil {
		return false
	}
	echo := u.exchange([]byte{uartSlot1})
	return echo != nil && echo[0] == uartSlot1
}

// setBaud switches the port speed. It runs even after an I/O error so a
// failed reset still leaves the port at slot speed.
func (u *UART) setBaud(baud int) bool {
	if u.mode.BaudRate == baud {
		return true
	}
	mode := u.mode
	mode.BaudRate = baud
	if err := u.port.SetMode(&mode); err != nil {
		if u.err == nil {
			u.err = fmt.Errorf("set %d baud: %w", baud, err)
		}
		return false
	}
	u.mode = mode
	return true
}

// exchange writes out and returns the echoed characters, or nil on
// failure.
func (u *UART) exchange(out []byte) []byte {
	if u.err != nil {
		return nil
	}
	if err := u.port.ResetInputBuffer(); err != nil {
		u.err = fmt.Errorf("flush: %w", err)
		return nil
	}
	if _, err := u.port.Write(out); err != nil {
		u.err = fmt.Errorf("write: %w", err)
		return nil
	}
	echo := make([]byte, len(out))
	for got := 0; got < len(echo); {
		n, err := u.port.Read(echo[got:])
		if err != nil {
			u.err = fmt.Errorf("read: %w", err)
			return nil
		}
		if n == 0 {
			u.err = fmt.Errorf("read: timeout after %d of %d echoes", got, len(echo))
			return nil
		}
		got += n
	}
	return echo
}
