// internal/config/defaults.go
package config

// Default returns the stock configuration for a single 48 V pack on a
// CH341 serial adapter. Every field may be overridden by the YAML file;
// the cloud endpoint and device id additionally honor BMS_WS_URL and
// BMS_WS_UUID (see Normalize).
func Default() Config {
	return Config{
		Bus: BusConfig{
			Port:          "/dev/ttyCH341USB1",
			BaudRate:      9600,
			DeviceAddress: 0x0B,
			TimeoutMs:     500,
		},
		Poll: PollConfig{
			IntervalMs: 5000,
		},
		Cloud: CloudConfig{
			HandshakeTimeoutMs: 10000,
			ReconnectBackoffMs: 5000,
			IdlePollMs:         1000,
		},
		Log: LogConfig{
			Path:         "battery.log",
			MaxSizeBytes: 200 * 1024,
			App: AppLogConfig{
				Level:      "info",
				Filename:   "bmsmon.log",
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     14,
			},
		},
		Thresholds: ThresholdConfig{
			PackOvervoltage:  58.4,
			PackUndervoltage: 40.0,
			Overtemperature:  60.0,
			Undertemperature: 0.0,
			SOCFull:          100,
			SOCLow:           5,
		},
	}
}
