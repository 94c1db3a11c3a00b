package onewire

import (
	"strconv"

	"periph.io/x/conn/v3/physic"
)

// Raw is the signed fixed-point temperature reported by the device, in
// 1/16 °C.
type Raw int16

// RawFromBytes assembles the little-endian scratchpad bytes.
func RawFromBytes(lsb, msb byte) Raw {
	return Raw(int16(msb)<<8 | int16(lsb))
}

// Bytes returns the little-endian encoding of r.
func (r Raw) Bytes() (lsb, msb byte) {
	return byte(r), byte(uint16(r) >> 8)
}

// Celsius returns r in degrees Celsius.
func (r Raw) Celsius() float64 {
	return float64(r) / 16
}

// Temperature converts r to a periph temperature.
func (r Raw) Temperature() physic.Temperature {
	return physic.Temperature(r)*physic.Kelvin/16 + physic.ZeroCelsius
}

func (r Raw) String() string {
	return strconv.FormatFloat(r.Celsius(), 'f', -1, 64) + "°C"
}
