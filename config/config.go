package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/chargeflex/core/factory"
	"github.com/kilianp07/chargeflex/core/metrics"
	"github.com/kilianp07/chargeflex/core/negotiation"
	"github.com/kilianp07/chargeflex/core/planlog"
	"github.com/kilianp07/chargeflex/core/policy"
	"github.com/kilianp07/chargeflex/infra/credential"
	"github.com/kilianp07/chargeflex/infra/intent"
	"github.com/kilianp07/chargeflex/infra/monitoring"
	"github.com/kilianp07/chargeflex/infra/mqtt"
	"github.com/kilianp07/chargeflex/infra/redisstore"
)

// EnvPrefix prefixes environment overrides. CF_SERVER__ADDR sets server.addr.
const EnvPrefix = "CF_"

type Config struct {
	Server      ServerConfig         `json:"server"`
	Grid        GridConfig           `json:"grid"`
	Log         LogConfig            `json:"log"`
	Policy      policy.Config        `json:"policy"`
	Negotiation negotiation.Config   `json:"negotiation"`
	Intent      factory.ModuleConfig `json:"intent"`
	Credential  factory.ModuleConfig `json:"credential"`
	MQTT        mqtt.Config          `json:"mqtt"`
	Redis       redisstore.Config    `json:"redis"`
	Metrics     metrics.Config       `json:"metrics"`
	PlanLog     planlog.Config       `json:"planlog"`
	Sentry      monitoring.Config    `json:"sentry"`
}

// Load reads the file at path, applies environment overrides and validates
// the result. An empty path loads from the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills unset values in every section.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Log.SetDefaults()
	c.Policy.SetDefaults()
	c.Negotiation.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Negotiation.Validate(); err != nil {
		return fmt.Errorf("negotiation: %w", err)
	}
	if !intent.Known(c.Intent.Type) {
		return fmt.Errorf("intent: unknown type %q", c.Intent.Type)
	}
	if !credential.Known(c.Credential.Type) {
		return fmt.Errorf("credential: unknown type %q", c.Credential.Type)
	}
	if !planlog.Known(c.PlanLog.Type) {
		return fmt.Errorf("planlog: unknown type %q", c.PlanLog.Type)
	}
	return nil
}
