// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bus        BusConfig       `yaml:"bus"`
	Poll       PollConfig      `yaml:"poll"`
	Cloud      CloudConfig     `yaml:"cloud"`
	Log        LogConfig       `yaml:"log"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
}

// ---- BUS ----

type BusConfig struct {
	Port          string `yaml:"port"`
	BaudRate      int    `yaml:"baud_rate"`
	DeviceAddress uint8  `yaml:"device_address"`
	TimeoutMs     int    `yaml:"timeout_ms"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- CLOUD ----

type CloudConfig struct {
	URL                string `yaml:"url"`       // empty disables reporting
	DeviceID           string `yaml:"device_id"` // empty gets a generated id
	HandshakeTimeoutMs int    `yaml:"handshake_timeout_ms"`
	ReconnectBackoffMs int    `yaml:"reconnect_backoff_ms"`
	IdlePollMs         int    `yaml:"idle_poll_ms"`
}

// ---- LOG ----

type LogConfig struct {
	Path         string       `yaml:"path"`           // rolling telemetry log
	MaxSizeBytes int64        `yaml:"max_size_bytes"` // rolling log budget
	App          AppLogConfig `yaml:"app"`
}

// AppLogConfig is the structured application log (zap over lumberjack).
type AppLogConfig struct {
	Level      string `yaml:"level"`
	Filename   string `yaml:"filename"`
	MaxSize    int    `yaml:"max_size"` // megabytes
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
	Compress   bool   `yaml:"compress"`
}

// ---- THRESHOLDS ----

type ThresholdConfig struct {
	PackOvervoltage  float64 `yaml:"pack_overvoltage"`  // V
	PackUndervoltage float64 `yaml:"pack_undervoltage"` // V
	Overtemperature  float64 `yaml:"overtemperature"`   // °C
	Undertemperature float64 `yaml:"undertemperature"`  // °C
	SOCFull          uint16  `yaml:"soc_full"`          // %
	SOCLow           uint16  `yaml:"soc_low"`           // %
}

// Load reads the config file over the defaults. A missing file is an
// error; an empty file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
