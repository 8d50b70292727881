package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/dynvar/internal/dynamo"
	"github.com/san-kum/dynvar/internal/integrators"
	"github.com/san-kum/dynvar/internal/physics"
)

// Operator is a forward operator that also has a tangent-linear model.
type Operator interface {
	dynamo.ForwardOperator
	dynamo.TangentLinear
}

// Options are the construction-time settings shared by every model.
type Options struct {
	Params        map[string]float64
	StrictForcing bool
}

type Factory func(cfg dynamo.Config, opts Options) (Operator, error)

type Registry struct {
	models map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]Factory),
	}

	r.models["lorenz"] = func(cfg dynamo.Config, opts Options) (Operator, error) {
		lz := physics.NewLorenz()
		for name, v := range opts.Params {
			if err := lz.SetParam(name, v); err != nil {
				return nil, err
			}
		}
		var eopts []integrators.Option
		if opts.StrictForcing {
			eopts = append(eopts, integrators.WithStrictForcing())
		}
		e, err := integrators.NewEuler(cfg, lz, eopts...)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	r.models["emissions"] = func(cfg dynamo.Config, opts Options) (Operator, error) {
		if len(opts.Params) > 0 {
			return nil, fmt.Errorf("emissions: model takes no parameters")
		}
		em, err := physics.NewEmissions(cfg)
		if err != nil {
			return nil, err
		}
		return em, nil
	}

	return r
}

func (r *Registry) Register(name string, f Factory) {
	r.models[name] = f
}

func (r *Registry) GetOperator(name string, cfg dynamo.Config, opts Options) (Operator, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(cfg, opts)
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
