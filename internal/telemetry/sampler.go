// internal/telemetry/sampler.go
package telemetry

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/bms-monitor/internal/alarm"
	"github.com/tamzrod/bms-monitor/internal/bus"
	"github.com/tamzrod/bms-monitor/internal/frame"
	"github.com/tamzrod/bms-monitor/internal/regval"
)

// Bus is the register-read contract the sampler needs.
type Bus interface {
	ReadRegisters(start, count uint16) ([]uint16, error)
}

// Sampler assembles one Snapshot per tick from a fixed sequence of block
// reads. The pack-summary read is critical; the cell, temperature and AFE
// reads degrade to an unavailable section.
type Sampler struct {
	bus        Bus
	thresholds alarm.Thresholds
	log        *zap.Logger

	seq    uint64
	warned bool
}

// NewSampler builds a sampler over one bus session.
func NewSampler(b Bus, th alarm.Thresholds, log *zap.Logger) *Sampler {
	return &Sampler{bus: b, thresholds: th, log: log}
}

// Sample performs one tick. A nil error means a complete (possibly
// degraded) snapshot; a frame-classified error means the critical read
// failed softly and the tick should be skipped; anything else is fatal.
func (s *Sampler) Sample() (*Snapshot, error) {
	pack, err := s.bus.ReadRegisters(PackBase, PackWords)
	if err != nil {
		return nil, fmt.Errorf("pack summary read: %w", err)
	}
	if len(pack) < int(PackWords) {
		return nil, fmt.Errorf("pack summary read: %w: got %d words", frame.ErrShort, len(pack))
	}

	snap := &Snapshot{At: time.Now()}
	decodePack(snap, pack)

	degraded := false

	if cells, err := s.readOptional("cell voltages", CellBase, CellWords); err != nil {
		return nil, err
	} else if cells != nil {
		decodeCells(snap, cells)
	} else {
		degraded = true
	}

	if temps, err := s.readOptional("temperatures", TempBase, TempWords); err != nil {
		return nil, err
	} else if temps != nil {
		decodeTemps(snap, temps)
	} else {
		degraded = true
	}

	if afe, err := s.readOptional("afe status", AFEBase, AFEWords); err != nil {
		return nil, err
	} else if afe != nil {
		decodeAFE(snap, afe)
		if conds := append(
			alarm.Decode(snap.AFE.StatusBits, alarm.AFEStatusBits),
			alarm.Decode(snap.AFE.SafetyBits, alarm.AFEStatusBits)...,
		); len(conds) > 0 {
			s.log.Warn("afe condition reported", zap.Strings("conditions", conds))
		}
	} else {
		degraded = true
	}

	maxTemp := snap.MaxTemp()
	if math.IsNaN(maxTemp) {
		// Threshold checks still run; an unavailable probe must not
		// trip the temperature limits.
		maxTemp = (s.thresholds.Undertemperature + s.thresholds.Overtemperature) / 2
	}
	snap.Alarms = alarm.Derive(s.thresholds, snap.PackVoltage, maxTemp, snap.SOC, snap.AlarmBits, snap.SafetyBits)

	if !degraded && s.warned {
		s.warned = false
		s.log.Info("all register blocks readable again")
	}

	s.seq++
	snap.Seq = s.seq
	return snap, nil
}

// readOptional returns (nil, nil) on a soft failure so the caller can
// mark the section unavailable instead of aborting the tick.
func (s *Sampler) readOptional(name string, base, words uint16) ([]uint16, error) {
	regs, err := s.bus.ReadRegisters(base, words)
	if err != nil {
		if bus.IsFrameError(err) {
			if !s.warned {
				s.warned = true
				s.log.Warn("register block unavailable", zap.String("block", name), zap.Error(err))
			}
			return nil, nil
		}
		return nil, fmt.Errorf("%s read: %w", name, err)
	}
	if len(regs) < int(words) {
		return nil, nil
	}
	return regs, nil
}

func decodePack(snap *Snapshot, regs []uint16) {
	snap.Current = regval.Milli(int64(regval.S32(regs[pwCurrentLo], regs[pwCurrentHi])))
	snap.RemainingCapacity = regval.U32(regs[pwRemCapLo], regs[pwRemCapHi])
	snap.FullCapacity = regval.U32(regs[pwFullCapLo], regs[pwFullCapHi])
	snap.ChargeCurrent = regval.Milli(int64(regval.U32(regs[pwChgCurLo], regs[pwChgCurHi])))
	snap.ChargeVoltage = regval.Milli(int64(regval.U32(regs[pwChgVoltLo], regs[pwChgVoltHi])))
	snap.PackVoltage = regval.Milli(int64(regval.U32(regs[pwPackVoltLo], regs[pwPackVoltHi])))
	snap.BatteryVoltage = regval.Milli(int64(regs[pwBattVolt]))
	snap.CycleCount = regs[pwCycles]
	snap.TimeToEmpty = regs[pwTimeToE]
	snap.TimeToFull = regs[pwTimeToF]
	snap.SOC = regs[pwSOC]
	snap.SOH = regs[pwSOH]
	snap.StatusBits = regs[pwStatus]
	snap.AlarmBits = regs[pwAlarm]
	snap.SafetyBits = regs[pwSafety]
}

func decodeCells(snap *Snapshot, regs []uint16) {
	snap.Cells = CellBlock{
		Valid: true,
		Max:   regs[0],
		Min:   regs[1],
		Cells: append([]uint16(nil), regs[2:]...),
	}
}

func decodeTemps(snap *Snapshot, regs []uint16) {
	snap.Temps = TempBlock{
		Valid: true,
		Max:   regval.Celsius(regs[0]),
		Min:   regval.Celsius(regs[1]),
		Probe: [2]float64{regval.Celsius(regs[2]), regval.Celsius(regs[3])},
	}
}

func decodeAFE(snap *Snapshot, regs []uint16) {
	snap.AFE = AFEBlock{
		Valid:      true,
		StatusBits: regs[0],
		SafetyBits: regs[1],
		Balancing:  regs[2] != 0,
	}
}
