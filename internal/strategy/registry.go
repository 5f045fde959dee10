package strategy

import (
	"sort"

	"github.com/quantforge/papertrade/internal/config"
	"github.com/quantforge/papertrade/pkg/errors"
)

// Factory constructs a strategy from its configured parameters.
type Factory func(params Params) (Strategy, error)

// Registry maps strategy names to their factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry preloaded with all built-in
// strategies.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(NameMACross, NewMACross)
	r.Register(NameRSI, NewRSIReversal)
	r.Register(NameMACD, NewMACDCross)
	r.Register(NameBollinger, NewBollingerReversion)
	r.Register(NameKDJ, NewKDJCross)
	r.Register(NameAll, r.newAllComposite)

	return r
}

// Register adds or replaces a factory under the given name.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Create instantiates the named strategy with the given parameters.
func (r *Registry) Create(name string, params Params) (Strategy, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownStrategy, "strategy %q is not registered", name)
	}

	return factory(params)
}

// Build instantiates every enabled strategy in the given configs, in
// config order.
func (r *Registry) Build(configs []config.StrategyConfig) ([]Strategy, error) {
	var strategies []Strategy

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		s, err := r.Create(cfg.Name, Params(cfg.Params))
		if err != nil {
			return nil, err
		}

		strategies = append(strategies, s)
	}

	if len(strategies) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "no strategies enabled")
	}

	return strategies, nil
}

// newAllComposite wires every built-in strategy, with its defaults,
// into a single composite. The shared params map is passed to each
// member, so only keys with distinct names take effect per member.
func (r *Registry) newAllComposite(params Params) (Strategy, error) {
	members := []string{NameMACross, NameRSI, NameMACD, NameBollinger, NameKDJ}

	subs := make([]Strategy, 0, len(members))

	for _, name := range members {
		s, err := r.Create(name, params)
		if err != nil {
			return nil, err
		}

		subs = append(subs, s)
	}

	return NewComposite(subs...)
}
