package planlog

import (
	"errors"

	"github.com/kilianp07/chargeflex/core/factory"
)

// Config selects and configures the audit store.
type Config struct {
	// Type is "jsonl", "sqlite" or "none" (default).
	Type string         `json:"type"`
	Conf map[string]any `json:"conf"`
	// Token protects the HTTP query endpoint when set.
	Token string `json:"token"`
}

// Module returns the backend selection part of the config.
func (c Config) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Type, Conf: c.Conf}
}

type jsonlConfig struct {
	Path     string         `json:"path"`
	Rotation RotationConfig `json:"rotation"`
}

type sqliteConfig struct {
	Path string `json:"path"`
}

var errPathRequired = errors.New("path is required")

var stores = factory.NewRegistry[Store]("plan log", "none")

func init() {
	stores.MustRegister("none", func(map[string]any, factory.Deps) (Store, error) {
		return NopStore{}, nil
	})
	stores.MustRegister("jsonl", func(conf map[string]any, _ factory.Deps) (Store, error) {
		var c jsonlConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, errPathRequired
		}
		return NewJSONLStore(c.Path, c.Rotation)
	})
	stores.MustRegister("sqlite", func(conf map[string]any, _ factory.Deps) (Store, error) {
		var c sqliteConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, errPathRequired
		}
		return NewSQLiteStore(c.Path)
	})
}

// Known reports whether typ names a registered store backend.
func Known(typ string) bool { return stores.Has(typ) }

// Open returns the Store described by cfg.
func Open(cfg Config) (Store, error) {
	return stores.Create(cfg.Module(), factory.Deps{})
}
