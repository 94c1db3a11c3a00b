package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a bounded FIFO that stores messages while disconnected.
// When full, the oldest QoS 0 message (a reading or event) is dropped
// first, so lifecycle messages survive a long outage.
// Not safe for concurrent use; the caller synchronizes.
type ringBuffer struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int // since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	if len(r.msgs) == r.capacity {
		victim := 0
		for i, m := range r.msgs {
			if m.qos == 0 {
				victim = i
				break
			}
		}
		if r.dropped == 0 {
			log.Printf("mqtt: buffer full (%d messages), dropping oldest", r.capacity)
		}
		r.dropped++
		r.msgs = append(r.msgs[:victim], r.msgs[victim+1:]...)
	}
	r.msgs = append(r.msgs, msg)
}

// drainAll returns the buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if len(r.msgs) == 0 {
		return nil
	}
	result := r.msgs
	r.msgs = make([]bufferedMsg, 0, r.capacity)
	if r.dropped > 0 {
		log.Printf("mqtt: %d buffered messages were dropped while disconnected", r.dropped)
		r.dropped = 0
	}
	return result
}

func (r *ringBuffer) len() int {
	return len(r.msgs)
}
