// internal/telemetry/registers.go
package telemetry

// BMU register map (16-bit holding registers, function code 0x03).
// Addresses and field offsets are protocol-locked.

// FnReadHolding is the only function code this monitor uses.
const FnReadHolding = 0x03

// Block geometry.
const (
	PackBase  uint16 = 0x0400
	PackWords uint16 = 0x16 // 22

	CellBase  uint16 = 0x0800
	CellWords uint16 = 16 // max, min, cells 1-14

	TempBase  uint16 = 0x0C00
	TempWords uint16 = 4 // max, min, probe 1, probe 2

	AFEBase  uint16 = 0x1000
	AFEWords uint16 = 3 // status, safety, balancing
)

// Pack block word offsets. 32-bit fields are low word first.
const (
	pwCurrentLo = 0 // mA, signed
	pwCurrentHi = 1
	pwRemCapLo  = 2 // mAh
	pwRemCapHi  = 3
	pwFullCapLo = 4
	pwFullCapHi = 5
	pwChgCurLo  = 6 // mA
	pwChgCurHi  = 7
	pwChgVoltLo = 8 // mV
	pwChgVoltHi = 9

	// Pack voltage is the 32-bit composite at words 10/11. One scan
	// variant of the source device reads word 10 alone; confirm against
	// the authoritative register map before changing the width.
	pwPackVoltLo = 10
	pwPackVoltHi = 11

	pwBattVolt = 12 // mV, single word
	pwCycles   = 14
	pwTimeToE  = 15 // min, 65535 = n/a
	pwTimeToF  = 16
	pwSOC      = 17
	pwSOH      = 18
	pwStatus   = 19
	pwAlarm    = 20
	pwSafety   = 21
)

// TimeNotApplicable is the sentinel for time-to-empty/full fields.
const TimeNotApplicable uint16 = 65535
