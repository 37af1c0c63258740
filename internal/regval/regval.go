// internal/regval/regval.go
package regval

// Pure register-to-physical conversions. No IO. No side effects.

// U32 composes an unsigned 32-bit value from a low/high register pair.
func U32(lo, hi uint16) uint32 {
	return uint32(hi)<<16 | uint32(lo)
}

// S32 composes a signed 32-bit value from a low/high register pair.
// Bit 31 set means two's-complement negative.
func S32(lo, hi uint16) int32 {
	return int32(U32(lo, hi))
}

// Milli converts a raw milli-unit quantity to its physical value.
func Milli(raw int64) float64 {
	return float64(raw) / 1000.0
}

// Celsius converts a deci-Kelvin register to degrees Celsius.
func Celsius(raw uint16) float64 {
	return (float64(raw) - 2731) / 10.0
}

// Bit reports whether bit index is set in value.
func Bit(value uint16, index uint) bool {
	return (value>>index)&1 == 1
}
