// internal/cloud/payload.go
package cloud

import (
	"fmt"
	"math"

	"github.com/tamzrod/bms-monitor/internal/telemetry"
)

// payload is the outbound telemetry message, one per report. The field
// set and wording are fixed by the receiving endpoint.
type payload struct {
	UUID           string  `json:"uuid"`
	Type           string  `json:"type"`
	Kind           string  `json:"kind"`
	Value          float64 `json:"value"`
	Current        float64 `json:"current"`
	BatteryPercent uint16  `json:"batteryPercent"`
	BatteryMaxTemp float64 `json:"batteryMaxTemp"`
	BatteryVoltage float64 `json:"batteryVoltage"`
	Seq            uint64  `json:"seq"`
	Message        string  `json:"message"`
}

func buildPayload(deviceID string, snap *telemetry.Snapshot) payload {
	maxTemp := snap.MaxTemp()
	if math.IsNaN(maxTemp) {
		maxTemp = 0
	}

	return payload{
		UUID:           deviceID,
		Type:           "telemetry",
		Kind:           "temperature",
		Value:          round1(maxTemp),
		Current:        round2(snap.Current),
		BatteryPercent: snap.SOC,
		BatteryMaxTemp: round1(maxTemp),
		BatteryVoltage: round1(snap.PackVoltage),
		Seq:            snap.Seq,
		Message: fmt.Sprintf(
			"device %s temperature=%.1fC, current=%.2fA, charge=%d%%, max temp=%.1fC, voltage=%.1fV (report %d)",
			deviceID, maxTemp, snap.Current, snap.SOC, maxTemp, snap.PackVoltage, snap.Seq),
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
