// internal/monitor/monitor.go
package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/bms-monitor/internal/bus"
	"github.com/tamzrod/bms-monitor/internal/telemetry"
)

// Sampler produces one snapshot per call.
type Sampler interface {
	Sample() (*telemetry.Snapshot, error)
}

// Appender receives one formatted line per tick.
type Appender interface {
	Append(line string)
}

// Reporter delivers one snapshot to the cloud per tick.
type Reporter interface {
	Report(snap *telemetry.Snapshot)
}

// Loop is the top-level scheduler: sample on a fixed period, fan the
// result out to the rolling log and the cloud session. It never
// terminates on bus or cloud trouble; only a dead transport or ctx
// cancellation stops it.
type Loop struct {
	sampler  Sampler
	rolling  Appender
	reporter Reporter
	interval time.Duration
	log      *zap.Logger

	// warned suppresses repeated skipped-tick diagnostics until a tick
	// succeeds again.
	warned bool

	// Console sink for the operator-facing line; stdout in production.
	Console func(line string)
}

// New builds the loop. interval must be > 0.
func New(sampler Sampler, rolling Appender, reporter Reporter, interval time.Duration, log *zap.Logger) (*Loop, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("monitor: interval must be > 0, got %v", interval)
	}
	return &Loop{
		sampler:  sampler,
		rolling:  rolling,
		reporter: reporter,
		interval: interval,
		log:      log,
		Console:  func(line string) { fmt.Println(line) },
	}, nil
}

// Run ticks until ctx is done or the bus transport dies. A returned
// error is always fatal.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.tick(); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) tick() error {
	snap, err := l.sampler.Sample()
	if err != nil {
		if bus.IsFrameError(err) {
			// Expected transient; the next period retries.
			if !l.warned {
				l.warned = true
				l.log.Warn("sample skipped", zap.Error(err))
			}
			return nil
		}
		return fmt.Errorf("monitor: %w", err)
	}

	if l.warned {
		l.warned = false
		l.log.Info("sampling recovered")
	}

	line := snap.LogLine()
	l.Console(line)
	l.rolling.Append(line)
	l.reporter.Report(snap)
	return nil
}
