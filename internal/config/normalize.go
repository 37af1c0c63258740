// internal/config/normalize.go
package config

import (
	"os"

	"github.com/google/uuid"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ------------------------------------------------------------
	// CLOUD ENVIRONMENT OVERRIDES
	// ------------------------------------------------------------

	// The deployment images override the endpoint per site without
	// touching the config file.
	if v := os.Getenv("BMS_WS_URL"); v != "" {
		cfg.Cloud.URL = v
	}
	if v := os.Getenv("BMS_WS_UUID"); v != "" {
		cfg.Cloud.DeviceID = v
	}

	// A device must always identify itself; generate a stable-for-this-
	// process id when none is configured.
	if cfg.Cloud.DeviceID == "" {
		cfg.Cloud.DeviceID = uuid.New().String()
	}
}
