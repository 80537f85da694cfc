// Package factory selects backends from configuration. Each module family
// (metrics sinks, audit stores, intent extractors, credential issuers) owns a
// typed Registry; a ModuleConfig names the backend and carries its raw
// settings, which the backend decodes with Decode.
//
//	var stores = factory.NewRegistry[planlog.Store]("plan log", "none")
//	stores.MustRegister("sqlite", func(conf map[string]any, _ factory.Deps) (planlog.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return planlog.NewSQLiteStore(c.Path)
//	})
//	s, err := stores.Create(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": "plans.db"}}, factory.Deps{})
package factory
