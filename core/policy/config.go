package policy

// Config tunes the charging model used by the engine. Zero values are replaced
// by the defaults in SetDefaults.
type Config struct {
	// FastRatePerMinute is the SoC percentage delivered per minute by fast charging.
	FastRatePerMinute float64 `json:"fast_rate_per_minute"`
	// FastMaxMinutes caps a fast charging session.
	FastMaxMinutes int `json:"fast_max_minutes"`
	// EcoRatePerMinute is the SoC percentage delivered per minute by eco charging.
	EcoRatePerMinute float64 `json:"eco_rate_per_minute"`
	// EcoMaxMinutes caps an eco charging session.
	EcoMaxMinutes int `json:"eco_max_minutes"`
	// HandlingMinutes is the pickup slot granted when no charging is needed.
	HandlingMinutes int `json:"handling_minutes"`
}

const (
	defaultStartSoC   = 50
	defaultMinSoC     = 80
	exhaustedStartSoC = 5

	stablePoints = 10
	ecoPoints    = 100
)

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.FastRatePerMinute <= 0 {
		c.FastRatePerMinute = 1.0
	}
	if c.FastMaxMinutes <= 0 {
		c.FastMaxMinutes = 45
	}
	if c.EcoRatePerMinute <= 0 {
		c.EcoRatePerMinute = 0.3
	}
	if c.EcoMaxMinutes <= 0 {
		c.EcoMaxMinutes = 180
	}
	if c.HandlingMinutes <= 0 {
		c.HandlingMinutes = 5
	}
}
