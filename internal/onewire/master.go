package onewire

import "time"

// Master bit-bangs the 1-Wire protocol on a Line.
type Master struct {
	line  Line
	delay Delayer
	t     Timing
}

// NewMaster validates t and returns a master with the line released.
func NewMaster(line Line, delay Delayer, t Timing) (*Master, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	line.Release()
	return &Master{line: line, delay: delay, t: t}, nil
}

// TakeErr returns the line's recorded failure when the line reports them.
func (m *Master) TakeErr() error {
	if f, ok := m.line.(Faulter); ok {
		return f.TakeErr()
	}
	return nil
}

// Timing returns the timings in use.
func (m *Master) Timing() Timing {
	return m.t
}

// WriteBit sends one bit. The length of the low pulse encodes the value.
func (m *Master) WriteBit(v bool) {
	low, rest := m.t.Write0Low, m.t.Write0Release
	if v {
		low, rest = m.t.Write1Low, m.t.Write1Release
	}
	m.line.DriveLow()
	m.delay.Delay(low)
	m.line.Release()
	m.delay.Delay(rest)
}

// ReadBit runs one read slot. A device sending 0 holds the line low past
// the sample point; an absent device reads as 1.
func (m *Master) ReadBit() bool {
	m.line.DriveLow()
	m.delay.Delay(m.t.ReadLow)
	m.line.Release()
	m.delay.Delay(m.t.ReadSample)
	v := m.line.Sample()
	m.delay.Delay(m.t.ReadRecovery)
	return v
}

// SendByte writes b least significant bit first.
func (m *Master) SendByte(b byte) {
	for i := 0; i < 8; i++ {
		m.WriteBit(b&1 == 1)
		b >>= 1
	}
}

// RecvByte reads 8 bits; the first bit received lands in bit 0.
func (m *Master) RecvByte() byte {
	var b byte
	for mask := byte(1); mask != 0; mask <<= 1 {
		if m.ReadBit() {
			b |= mask
		}
	}
	return b
}

// Reset sends a reset pulse and reports whether a device answered with a
// presence pulse.
func (m *Master) Reset() bool {
	m.line.DriveLow()
	m.delay.Delay(m.t.ResetLow)
	m.line.Release()
	if !m.presence() {
		return false
	}
	// The device ends its pulse within 240µs; a line still low after
	// PresenceMax is shorted or held by something else.
	for waited := time.Duration(0); !m.line.Sample(); waited += m.t.PollStep {
		if waited >= m.t.PresenceMax {
			return false
		}
		m.delay.Delay(m.t.PollStep)
	}
	m.delay.Delay(m.t.ResetSettle)
	return true
}

func (m *Master) presence() bool {
	if !m.t.PresenceScan {
		m.delay.Delay(m.t.PresenceWait)
		return !m.line.Sample()
	}
	for waited := time.Duration(0); waited < m.t.PresenceWait; waited += m.t.PollStep {
		m.delay.Delay(m.t.PollStep)
		if !m.line.Sample() {
			return true
		}
	}
	return false
}

// IdleHigh releases the line, lets the pull-up settle and reports whether
// the line rests high. A low idle line usually means the pull-up is missing.
func (m *Master) IdleHigh() bool {
	m.line.Release()
	m.delay.Delay(m.t.IdleSettle)
	return m.line.Sample()
}
