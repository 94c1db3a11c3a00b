package onewiretest

import "time"

// Loopback answers every reset and alternates between receiving 8 bits
// and sending them back on the next 8 slots.
type Loopback struct {
	bits    []bool
	sending bool
}

var _ Responder = (*Loopback)(nil)

// Reset implements Responder.
func (l *Loopback) Reset(int, time.Duration) bool {
	l.bits, l.sending = nil, false
	return true
}

// Slot implements Responder.
func (l *Loopback) Slot(width, _ time.Duration) bool {
	if l.sending {
		bit := l.bits[0]
		l.bits = l.bits[1:]
		if len(l.bits) == 0 {
			l.sending = false
		}
		return !bit
	}
	l.bits = append(l.bits, !IsWriteZero(width))
	if len(l.bits) == 8 {
		l.sending = true
	}
	return false
}
