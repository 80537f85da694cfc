package intent

import (
	"github.com/kilianp07/chargeflex/core/factory"
	coreintent "github.com/kilianp07/chargeflex/core/intent"
	"github.com/kilianp07/chargeflex/core/logger"
)

var extractors = factory.NewRegistry[coreintent.Extractor]("intent extractor", "heuristic")

func init() {
	extractors.MustRegister("heuristic", func(conf map[string]any, _ factory.Deps) (coreintent.Extractor, error) {
		return Heuristic{}, factory.Decode(conf, &struct{}{})
	})
	extractors.MustRegister("openai", func(conf map[string]any, deps factory.Deps) (coreintent.Extractor, error) {
		var c OpenAIConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewOpenAI(c, deps.Log)
	})
}

// Known reports whether typ names a registered extractor backend.
func Known(typ string) bool { return extractors.Has(typ) }

// New builds the extractor named by cfg.Type ("heuristic" by default or
// "openai"), decoding cfg.Conf into the backend settings.
func New(cfg factory.ModuleConfig, log logger.Logger) (coreintent.Extractor, error) {
	return extractors.Create(cfg, factory.Deps{Log: log})
}
