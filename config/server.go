package config

import "fmt"

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr"`
	// ChargerCount is reported by the status endpoint.
	ChargerCount           int `json:"charger_count"`
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8001"
	}
	if c.ChargerCount == 0 {
		c.ChargerCount = 4
	}
	if c.ShutdownTimeoutSeconds == 0 {
		c.ShutdownTimeoutSeconds = 5
	}
}

// Validate checks mandatory fields.
func (c ServerConfig) Validate() error {
	if c.ChargerCount < 0 {
		return fmt.Errorf("charger_count must be >= 0")
	}
	if c.ShutdownTimeoutSeconds < 0 {
		return fmt.Errorf("shutdown_timeout_seconds must be >= 0")
	}
	return nil
}

// GridConfig sets the grid flag at startup.
type GridConfig struct {
	Stressed bool `json:"stressed"`
}
