package logic

// Encoder decodes a 2-bit Gray-code quadrature signal.
type Encoder struct {
	pos int
}

// NewEncoder starts the decoder at the current input levels.
func NewEncoder(a, b bool) *Encoder {
	return &Encoder{pos: grayPos(a, b)}
}

// Update takes the current levels and returns the count change: -1 for a
// step in the A-leads-B direction, +1 for the other, 0 when nothing moved
// or a state was skipped.
func (e *Encoder) Update(a, b bool) int {
	p := grayPos(a, b)
	d := (p - e.pos + 4) % 4
	e.pos = p
	switch d {
	case 1:
		return -1
	case 3:
		return 1
	}
	return 0
}

// grayPos maps the levels onto the cycle 00 -> A -> AB -> B.
func grayPos(a, b bool) int {
	switch {
	case !a && !b:
		return 0
	case a && !b:
		return 1
	case a && b:
		return 2
	}
	return 3
}
