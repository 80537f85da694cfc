package credential

import (
	corecred "github.com/kilianp07/chargeflex/core/credential"
	"github.com/kilianp07/chargeflex/core/factory"
	"github.com/kilianp07/chargeflex/core/logger"
)

var issuers = factory.NewRegistry[corecred.Issuer]("credential issuer", "memory")

func init() {
	issuers.MustRegister("memory", func(map[string]any, factory.Deps) (corecred.Issuer, error) {
		return NewMemory(), nil
	})
	issuers.MustRegister("none", func(map[string]any, factory.Deps) (corecred.Issuer, error) {
		return corecred.NopIssuer{}, nil
	})
	issuers.MustRegister("http", func(conf map[string]any, deps factory.Deps) (corecred.Issuer, error) {
		var c GatewayConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewHTTPGateway(c, deps.Log)
	})
}

// Known reports whether typ names a registered issuer backend.
func Known(typ string) bool { return issuers.Has(typ) }

// New builds the issuer named by cfg.Type: "memory" (default), "http" or "none".
func New(cfg factory.ModuleConfig, log logger.Logger) (corecred.Issuer, error) {
	return issuers.Create(cfg, factory.Deps{Log: log})
}
