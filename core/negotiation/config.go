package negotiation

import (
	"fmt"
	"time"
)

// Config tunes the session pipeline.
type Config struct {
	// HistoryLimit is how many recent plans of other drivers are handed to
	// the policy engine as informational context.
	HistoryLimit int `json:"history_limit"`
	// ExtractionTimeoutSeconds bounds a single intent extraction call.
	ExtractionTimeoutSeconds int `json:"extraction_timeout_seconds"`
	// CredentialTimeoutSeconds bounds a single credential issuance call.
	CredentialTimeoutSeconds int `json:"credential_timeout_seconds"`
	// NudgePoints is the bonus granted when a driver frees their slot.
	NudgePoints int `json:"nudge_points"`
}

// SetDefaults applies the default pipeline settings.
func (c *Config) SetDefaults() {
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 2
	}
	if c.ExtractionTimeoutSeconds == 0 {
		c.ExtractionTimeoutSeconds = 10
	}
	if c.CredentialTimeoutSeconds == 0 {
		c.CredentialTimeoutSeconds = 5
	}
	if c.NudgePoints == 0 {
		c.NudgePoints = 50
	}
}

// Validate rejects negative settings.
func (c Config) Validate() error {
	switch {
	case c.HistoryLimit < 0:
		return fmt.Errorf("history_limit must be >= 0")
	case c.ExtractionTimeoutSeconds < 0, c.CredentialTimeoutSeconds < 0:
		return fmt.Errorf("timeouts must be >= 0")
	case c.NudgePoints < 0:
		return fmt.Errorf("nudge_points must be >= 0")
	}
	return nil
}

func (c Config) extractionTimeout() time.Duration {
	return time.Duration(c.ExtractionTimeoutSeconds) * time.Second
}

func (c Config) credentialTimeout() time.Duration {
	return time.Duration(c.CredentialTimeoutSeconds) * time.Second
}
