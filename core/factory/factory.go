package factory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"

	"github.com/kilianp07/chargeflex/core/logger"
)

// ErrUnknownType is returned when no factory is registered for a backend name.
var ErrUnknownType = errors.New("unknown module type")

// ModuleConfig names a backend and carries its raw settings.
type ModuleConfig struct {
	Type string         `json:"type"`
	Conf map[string]any `json:"conf"`
}

// Deps are the shared collaborators handed to every factory.
type Deps struct {
	Log logger.Logger
}

// Factory constructs an implementation of T from raw settings.
type Factory[T any] func(conf map[string]any, deps Deps) (T, error)

// Registry stores factories keyed by backend name. An empty type in a
// ModuleConfig resolves to the registry default.
type Registry[T any] struct {
	kind      string
	def       string
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// NewRegistry returns an empty registry. kind names the module family in
// errors; def is the backend used when a config leaves Type empty.
func NewRegistry[T any](kind, def string) *Registry[T] {
	return &Registry[T]{kind: kind, def: def, factories: make(map[string]Factory[T])}
}

// Register adds a factory for the given backend name.
func (r *Registry[T]) Register(name string, f Factory[T]) error {
	if f == nil {
		return fmt.Errorf("%s: factory nil for %s", r.kind, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%s: factory already registered for %s", r.kind, name)
	}
	r.factories[name] = f
	return nil
}

// MustRegister is Register for package init blocks.
func (r *Registry[T]) MustRegister(name string, f Factory[T]) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

func (r *Registry[T]) resolve(name string) string {
	if name == "" {
		return r.def
	}
	return name
}

// Has reports whether name, or the default when name is empty, is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[r.resolve(name)]
	return ok
}

// Types lists the registered backend names in order.
func (r *Registry[T]) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Create instantiates a module based on its configuration.
func (r *Registry[T]) Create(cfg ModuleConfig, deps Deps) (T, error) {
	name := r.resolve(cfg.Type)
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w %q (known: %s)", r.kind, ErrUnknownType, name, strings.Join(r.Types(), ", "))
	}
	v, err := f(cfg.Conf, deps)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", r.kind, name, err)
	}
	return v, nil
}

// Decode fills out the provided struct using json tags. Scalars given as
// strings, as environment overrides are, are converted. Unknown keys fail.
func Decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}
