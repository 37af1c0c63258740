// internal/config/validate.go
package config

import "fmt"

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	// ------------------------------------------------------------
	// BUS
	// ------------------------------------------------------------

	if cfg.Bus.Port == "" {
		return fmt.Errorf("bus: port required")
	}
	if cfg.Bus.BaudRate <= 0 {
		return fmt.Errorf("bus: baud_rate must be > 0, got %d", cfg.Bus.BaudRate)
	}
	if cfg.Bus.TimeoutMs <= 0 {
		return fmt.Errorf("bus: timeout_ms must be > 0, got %d", cfg.Bus.TimeoutMs)
	}

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	if cfg.Poll.IntervalMs <= 0 {
		return fmt.Errorf("poll: interval_ms must be > 0, got %d", cfg.Poll.IntervalMs)
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	if cfg.Log.Path == "" {
		return fmt.Errorf("log: path required")
	}
	if cfg.Log.MaxSizeBytes <= 0 {
		return fmt.Errorf("log: max_size_bytes must be > 0, got %d", cfg.Log.MaxSizeBytes)
	}

	// ------------------------------------------------------------
	// THRESHOLDS
	// ------------------------------------------------------------

	t := cfg.Thresholds
	if t.PackUndervoltage >= t.PackOvervoltage {
		return fmt.Errorf(
			"thresholds: pack_undervoltage %.1f must be below pack_overvoltage %.1f",
			t.PackUndervoltage, t.PackOvervoltage,
		)
	}
	if t.Undertemperature >= t.Overtemperature {
		return fmt.Errorf(
			"thresholds: undertemperature %.1f must be below overtemperature %.1f",
			t.Undertemperature, t.Overtemperature,
		)
	}
	if t.SOCFull > 100 {
		return fmt.Errorf("thresholds: soc_full %d out of range", t.SOCFull)
	}
	if t.SOCLow >= t.SOCFull {
		return fmt.Errorf(
			"thresholds: soc_low %d must be below soc_full %d",
			t.SOCLow, t.SOCFull,
		)
	}

	return nil
}
