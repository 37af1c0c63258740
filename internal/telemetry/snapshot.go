// internal/telemetry/snapshot.go
package telemetry

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Snapshot is the decoded telemetry of one successful sampling tick.
// It is created fresh per tick and never mutated after hand-off.
type Snapshot struct {
	At  time.Time
	Seq uint64

	// Pack summary (always present; its read is critical).
	Current           float64 // A, positive = charging
	RemainingCapacity uint32  // mAh
	FullCapacity      uint32  // mAh
	ChargeCurrent     float64 // A
	ChargeVoltage     float64 // V
	PackVoltage       float64 // V
	BatteryVoltage    float64 // V
	CycleCount        uint16
	TimeToEmpty       uint16 // min, TimeNotApplicable = n/a
	TimeToFull        uint16
	SOC               uint16 // %
	SOH               uint16 // %
	StatusBits        uint16
	AlarmBits         uint16
	SafetyBits        uint16

	// Optional sections; Valid is false when the backing read failed.
	Cells CellBlock
	Temps TempBlock
	AFE   AFEBlock

	// Alarms is the derived condition set: thresholds, then operational
	// alarm bits, then safety bits. Empty means nominal.
	Alarms []string
}

// CellBlock carries per-cell voltages in millivolts.
type CellBlock struct {
	Valid bool
	Max   uint16
	Min   uint16
	Cells []uint16
}

// TempBlock carries probe temperatures in °C.
type TempBlock struct {
	Valid bool
	Max   float64
	Min   float64
	Probe [2]float64
}

// AFEBlock carries the analog-front-end status registers.
type AFEBlock struct {
	Valid      bool
	StatusBits uint16
	SafetyBits uint16
	Balancing  bool
}

// MaxTemp returns the highest probe temperature, or NaN when the
// temperature read was unavailable.
func (s *Snapshot) MaxTemp() float64 {
	if !s.Temps.Valid {
		return math.NaN()
	}
	return s.Temps.Max
}

// Direction describes the current sign convention in words.
func (s *Snapshot) Direction() string {
	switch {
	case s.Current > 0:
		return "charging"
	case s.Current < 0:
		return "discharging"
	default:
		return "idle"
	}
}

// LogLine formats the one-line rolling-log record for this snapshot.
func (s *Snapshot) LogLine() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] PACK %6.2f V | %s %6.2f A | SOC %3d %%",
		s.At.Format("2006-01-02 15:04:05"),
		s.PackVoltage, s.Direction(), math.Abs(s.Current), s.SOC)

	if s.Temps.Valid {
		fmt.Fprintf(&b, " | Tmax %5.1f C", s.Temps.Max)
	} else {
		b.WriteString(" | Tmax   n/a")
	}

	if len(s.Alarms) > 0 {
		fmt.Fprintf(&b, " | alarm: %s", strings.Join(s.Alarms, "; "))
	} else {
		b.WriteString(" | status: normal")
	}

	return b.String()
}
