package registry

import (
	"fmt"
	"sort"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
)

// ModelDefinition describes one forecasting model known to the engine.
// Grid participation is a static property of the definition; models with
// no tunable parameters opt out and are only ever represented by a
// synthesized baseline result.
type ModelDefinition struct {
	ID                       string               `json:"id"`
	Name                     string               `json:"name"`
	ParameterGrid            map[string][]float64 `json:"parameter_grid"`
	DefaultParameters        map[string]float64   `json:"default_parameters"`
	MinObservations          int                  `json:"min_observations"`
	IsSeasonal               bool                 `json:"is_seasonal"`
	ParticipatesInGridSearch bool                 `json:"participates_in_grid_search"`
}

// Registry is an immutable lookup table of model definitions.
type Registry struct {
	models map[string]*ModelDefinition
	order  []string
}

// NewRegistry creates a registry preloaded with the built-in model catalog.
func NewRegistry() *Registry {
	return newRegistryWith(builtinCatalog())
}

// NewRegistryWith creates a registry from an explicit catalog. Used by tests
// and by deployments that trim or extend the built-in model set.
func NewRegistryWith(defs []*ModelDefinition) *Registry {
	return newRegistryWith(defs)
}

func newRegistryWith(defs []*ModelDefinition) *Registry {
	r := &Registry{
		models: make(map[string]*ModelDefinition, len(defs)),
		order:  make([]string, 0, len(defs)),
	}
	for _, d := range defs {
		if _, exists := r.models[d.ID]; exists {
			continue
		}
		r.models[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r
}

// Get returns the definition for a model ID
func (r *Registry) Get(modelID string) (*ModelDefinition, error) {
	def, ok := r.models[modelID]
	if !ok {
		return nil, fmt.Errorf("model %q: %w", modelID, utils.ErrNotFound)
	}
	return def, nil
}

// List returns every registered model in registration order
func (r *Registry) List() []*ModelDefinition {
	out := make([]*ModelDefinition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.models[id])
	}
	return out
}

// GridParticipants returns the models that take part in grid search
func (r *Registry) GridParticipants() []*ModelDefinition {
	var out []*ModelDefinition
	for _, id := range r.order {
		if r.models[id].ParticipatesInGridSearch {
			out = append(out, r.models[id])
		}
	}
	return out
}

// ParticipatesInGridSearch reports whether a model takes part in grid search.
// Unknown models do not.
func (r *Registry) ParticipatesInGridSearch(modelID string) bool {
	def, ok := r.models[modelID]
	return ok && def.ParticipatesInGridSearch
}

// GridSize returns the Cartesian-product size of a model's parameter grid
func GridSize(grid map[string][]float64) int {
	if len(grid) == 0 {
		return 0
	}
	size := 1
	for _, values := range grid {
		size *= len(values)
	}
	return size
}

// ParameterNames returns the grid's parameter names in sorted order, the
// canonical enumeration order for deterministic searches.
func ParameterNames(grid map[string][]float64) []string {
	names := make([]string, 0, len(grid))
	for name := range grid {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func builtinCatalog() []*ModelDefinition {
	return []*ModelDefinition{
		{
			ID:   "moving_average",
			Name: "Moving Average",
			ParameterGrid: map[string][]float64{
				"window": {2, 3, 4, 5, 6},
			},
			DefaultParameters:        map[string]float64{"window": 3},
			MinObservations:          4,
			ParticipatesInGridSearch: true,
		},
		{
			ID:   "simple_exponential",
			Name: "Simple Exponential Smoothing",
			ParameterGrid: map[string][]float64{
				"alpha": {0.1, 0.2, 0.3, 0.5, 0.7, 0.9},
			},
			DefaultParameters:        map[string]float64{"alpha": 0.3},
			MinObservations:          6,
			ParticipatesInGridSearch: true,
		},
		{
			ID:   "double_exponential",
			Name: "Double Exponential Smoothing",
			ParameterGrid: map[string][]float64{
				"alpha": {0.1, 0.3, 0.5, 0.7},
				"beta":  {0.1, 0.3, 0.5},
			},
			DefaultParameters:        map[string]float64{"alpha": 0.3, "beta": 0.1},
			MinObservations:          8,
			ParticipatesInGridSearch: true,
		},
		{
			ID:   "holt_winters",
			Name: "Holt-Winters",
			ParameterGrid: map[string][]float64{
				"alpha": {0.1, 0.3, 0.5},
				"beta":  {0.1, 0.3},
				"gamma": {0.1, 0.3},
			},
			DefaultParameters:        map[string]float64{"alpha": 0.3, "beta": 0.1, "gamma": 0.1},
			MinObservations:          24,
			IsSeasonal:               true,
			ParticipatesInGridSearch: true,
		},
		{
			ID:                       "linear_trend",
			Name:                     "Linear Trend",
			ParameterGrid:            map[string][]float64{},
			DefaultParameters:        map[string]float64{},
			MinObservations:          4,
			ParticipatesInGridSearch: false,
		},
		{
			ID:                       "naive",
			Name:                     "Naive",
			ParameterGrid:            map[string][]float64{},
			DefaultParameters:        map[string]float64{},
			MinObservations:          2,
			ParticipatesInGridSearch: false,
		},
		{
			ID:                       "seasonal_naive",
			Name:                     "Seasonal Naive",
			ParameterGrid:            map[string][]float64{},
			DefaultParameters:        map[string]float64{"season_length": 12},
			MinObservations:          13,
			IsSeasonal:               true,
			ParticipatesInGridSearch: false,
		},
	}
}
