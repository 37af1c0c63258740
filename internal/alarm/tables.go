// internal/alarm/tables.go
package alarm

// Protocol bit tables. These values define the protocol and MUST NOT be
// configurable. Unused bit positions carry no label and are ignored.

// Table maps a bit index to its condition label.
type Table map[uint]string

// BatteryAlarmBits is the operational alarm register (pack word 20).
var BatteryAlarmBits = Table{
	0:  "CUV cell undervoltage",
	1:  "OCD discharge overcurrent",
	2:  "SCD short circuit",
	3:  "DSG_OT discharge overtemperature",
	4:  "RCA remaining capacity",
	5:  "DSG_UT discharge undertemperature",
	8:  "COV cell overvoltage",
	9:  "OCC charge overcurrent",
	10: "CHG_OT charge overtemperature",
	11: "CHG_UT charge undertemperature",
}

// BatterySafetyBits is the safety-trip register (pack word 21). The wording
// is distinct from the alarm table on purpose; the two sources are never
// deduplicated.
var BatterySafetyBits = Table{
	0:  "CUV safety cell undervoltage",
	1:  "OCD safety discharge overcurrent",
	2:  "SCD safety short circuit",
	3:  "DSG_OT safety discharge overtemperature",
	4:  "RCA safety remaining capacity",
	5:  "DSG_UT safety discharge undertemperature",
	8:  "COV safety cell overvoltage",
	9:  "OCC safety charge overcurrent",
	10: "CHG_OT safety charge overtemperature",
	11: "CHG_UT safety charge undertemperature",
}

// AFEStatusBits is the analog-front-end status register (AFE block word 0).
var AFEStatusBits = Table{
	0:  "AFE CUV cell undervoltage",
	1:  "AFE OCD discharge overcurrent",
	2:  "AFE SCD short circuit",
	3:  "AFE DSG_OT discharge overtemperature",
	5:  "AFE DSG_UT discharge undertemperature",
	8:  "AFE COV cell overvoltage",
	9:  "AFE OCC charge overcurrent",
	10: "AFE CHG_OT charge overtemperature",
	11: "AFE CHG_UT charge undertemperature",
}

// tableBits is one past the highest decodable bit index.
const tableBits = 16

// Decode collects the labels of every set bit present in the table, in
// ascending bit order. A zero value decodes to nil without touching the
// table.
func Decode(value uint16, t Table) []string {
	if value == 0 {
		return nil
	}

	var labels []string
	for bit := uint(0); bit < tableBits; bit++ {
		if value&(1<<bit) == 0 {
			continue
		}
		if label, ok := t[bit]; ok {
			labels = append(labels, label)
		}
	}
	return labels
}
