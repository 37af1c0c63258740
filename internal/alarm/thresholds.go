// internal/alarm/thresholds.go
package alarm

// Thresholds are the configurable safety limits evaluated against decoded
// physical values every tick. They are configuration, not protocol.
type Thresholds struct {
	PackOvervoltage  float64 // V
	PackUndervoltage float64 // V
	Overtemperature  float64 // °C
	Undertemperature float64 // °C
	SOCFull          uint16  // %, informational
	SOCLow           uint16  // %, informational
}

// DefaultThresholds returns the limits for the stock 48 V pack.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PackOvervoltage:  58.4,
		PackUndervoltage: 40.0,
		Overtemperature:  60.0,
		Undertemperature: 0.0,
		SOCFull:          100,
		SOCLow:           5,
	}
}

// Evaluate returns the threshold alarms for one sample, in fixed order:
// voltage, temperature, then the informational charge-level notes.
func (t Thresholds) Evaluate(packVoltage, maxTempC float64, soc uint16) []string {
	var alarms []string

	if packVoltage > t.PackOvervoltage {
		alarms = append(alarms, "pack overvoltage")
	}
	if packVoltage < t.PackUndervoltage {
		alarms = append(alarms, "pack undervoltage")
	}

	if maxTempC > t.Overtemperature {
		alarms = append(alarms, "overtemperature")
	}
	if maxTempC < t.Undertemperature {
		alarms = append(alarms, "ambient undertemperature")
	}

	if soc >= t.SOCFull {
		alarms = append(alarms, "fully charged")
	}
	if soc <= t.SOCLow {
		alarms = append(alarms, "low charge")
	}

	return alarms
}

// Derive builds the full derived-alarm set for a snapshot: threshold
// alarms first, then decoded operational alarms, then decoded safety
// trips. Duplicates across sources are kept.
func Derive(t Thresholds, packVoltage, maxTempC float64, soc, alarmBits, safetyBits uint16) []string {
	out := t.Evaluate(packVoltage, maxTempC, soc)
	out = append(out, Decode(alarmBits, BatteryAlarmBits)...)
	out = append(out, Decode(safetyBits, BatterySafetyBits)...)
	return out
}
