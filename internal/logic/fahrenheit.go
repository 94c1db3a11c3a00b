package logic

import "fmt"

// Fahrenheit is a temperature in 1/16 °F.
type Fahrenheit int32

// FromRaw converts a sensor value in 1/16 °C.
func FromRaw(raw int16) Fahrenheit {
	return Fahrenheit(int32(raw)*9/5 + 32*16)
}

// FromWhole returns f whole degrees.
func FromWhole(f int) Fahrenheit {
	return Fahrenheit(f * 16)
}

// Whole returns the integer part, rounded down.
func (f Fahrenheit) Whole() int {
	return int(f >> 4)
}

// Float returns f in degrees.
func (f Fahrenheit) Float() float64 {
	return float64(f) / 16
}

// String formats f with one truncated decimal, e.g. "77.0".
func (f Fahrenheit) String() string {
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}
	return fmt.Sprintf("%s%d.%d", sign, int32(f/16), int32((f%16)*10/16))
}
