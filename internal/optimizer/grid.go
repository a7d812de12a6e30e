package optimizer

import (
	"fmt"
	"math"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/config"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/forecast"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/registry"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
	"go.uber.org/zap"
)

// AccuracyFunc maps a MAPE fraction to a 0-100 accuracy figure. It must be
// monotonically decreasing in MAPE.
type AccuracyFunc func(mape float64) float64

// DefaultAccuracy is max(0, 100*(1-MAPE)).
func DefaultAccuracy(mape float64) float64 {
	return math.Max(0, 100*(1-mape))
}

// Optimizer enumerates parameter grids and scores every combination through
// the fitting collaborator. It holds no mutable state between runs; focused
// grids are always passed explicitly rather than swapped into the registry.
type Optimizer struct {
	registry        *registry.Registry
	fitter          forecast.Fitter
	validationRatio float64
	accuracy        AccuracyFunc
	logger          *utils.Logger
}

// New creates an optimizer from the registry, fitting collaborator and
// engine configuration.
func New(reg *registry.Registry, fitter forecast.Fitter, cfg *config.OptimizerConfig, logger *utils.Logger) *Optimizer {
	return &Optimizer{
		registry:        reg,
		fitter:          fitter,
		validationRatio: cfg.ValidationRatio,
		accuracy:        DefaultAccuracy,
		logger:          logger.Named("optimizer"),
	}
}

// WithAccuracyFunc replaces the accuracy transform. The replacement must be
// monotonically decreasing in MAPE.
func (o *Optimizer) WithAccuracyFunc(fn AccuracyFunc) *Optimizer {
	o.accuracy = fn
	return o
}

// ValidationRatio returns the configured train/validation split ratio
func (o *Optimizer) ValidationRatio() float64 {
	return o.validationRatio
}

// RunGridSearch evaluates the full registry grid of every requested model
// against the series and returns per-combination results plus the best
// combination per model.
func (o *Optimizer) RunGridSearch(series forecast.Series, modelIDs []string, onProgress ProgressFunc) (*RunResult, error) {
	return o.runWithGrids(series, modelIDs, nil, PhaseGrid, TypeGrid, onProgress)
}

// runWithGrids is the shared search core. gridOverrides, when non-nil,
// substitutes a model's parameter grid for this call only.
func (o *Optimizer) runWithGrids(
	series forecast.Series,
	modelIDs []string,
	gridOverrides map[string]map[string][]float64,
	phase string,
	runType string,
	onProgress ProgressFunc,
) (*RunResult, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("series too short to split: %d observations", len(series))
	}
	if len(modelIDs) == 0 {
		return nil, fmt.Errorf("no models requested")
	}

	train, validation := forecast.Split(series, o.validationRatio)

	result := &RunResult{
		Type:         runType,
		Results:      make([]ModelGridResult, 0),
		BestPerModel: make(map[string]*ModelGridResult),
		Summaries:    make([]ModelSummary, 0, len(modelIDs)),
	}

	for i, modelID := range modelIDs {
		def, err := o.registry.Get(modelID)
		if err != nil {
			return nil, err
		}
		if !def.ParticipatesInGridSearch {
			return nil, fmt.Errorf("model %q does not participate in grid search", modelID)
		}

		grid := def.ParameterGrid
		if override, ok := gridOverrides[modelID]; ok {
			grid = override
		}

		modelResults := o.searchModel(train, validation, modelID, grid)
		result.Results = append(result.Results, modelResults...)
		result.Summaries = append(result.Summaries, summarize(modelID, modelResults))

		if best := bestByMAPE(modelResults); best != nil {
			result.BestPerModel[modelID] = best
			if result.BestResult == nil || best.MAPE < result.BestResult.MAPE {
				result.BestResult = best
			}
		}

		if onProgress != nil {
			onProgress(phase, (i+1)*100/len(modelIDs))
		}
	}

	return result, nil
}

// searchModel evaluates every combination of one model's grid. Fit failures
// are recorded per combination and never abort the search.
func (o *Optimizer) searchModel(train, validation forecast.Series, modelID string, grid map[string][]float64) []ModelGridResult {
	combinations := enumerate(grid)
	results := make([]ModelGridResult, 0, len(combinations))

	for _, params := range combinations {
		r := ModelGridResult{
			ModelID:    modelID,
			Parameters: params,
		}

		fit, err := o.fitter.Fit(train, validation, modelID, params)
		if err != nil {
			r.Error = err.Error()
			o.logger.Debug("Combination failed to fit",
				zap.String("model_id", modelID),
				zap.Any("parameters", params),
				zap.Error(err))
		} else {
			r.Success = true
			r.MAPE = fit.Metrics.MAPE
			r.RMSE = fit.Metrics.RMSE
			r.MAE = fit.Metrics.MAE
			r.Accuracy = o.accuracy(fit.Metrics.MAPE)
		}

		results = append(results, r)
	}

	return results
}

// enumerate expands a grid into its Cartesian product. Parameter names are
// visited in sorted order so the expansion is deterministic.
func enumerate(grid map[string][]float64) []map[string]float64 {
	names := registry.ParameterNames(grid)
	if len(names) == 0 {
		return nil
	}
	for _, name := range names {
		if len(grid[name]) == 0 {
			return nil
		}
	}

	indices := make([]int, len(names))
	var out []map[string]float64

	for {
		combo := make(map[string]float64, len(names))
		for i, name := range names {
			combo[name] = grid[name][indices[i]]
		}
		out = append(out, combo)

		// Odometer increment over the value lists.
		pos := len(names) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(grid[names[pos]]) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			return out
		}
	}
}

func bestByMAPE(results []ModelGridResult) *ModelGridResult {
	var best *ModelGridResult
	for i := range results {
		if !results[i].Success {
			continue
		}
		if best == nil || results[i].MAPE < best.MAPE {
			best = &results[i]
		}
	}
	return best
}

func summarize(modelID string, results []ModelGridResult) ModelSummary {
	s := ModelSummary{
		ModelID:      modelID,
		Combinations: len(results),
	}

	var sum float64
	for _, r := range results {
		if !r.Success {
			continue
		}
		s.Successful++
		sum += r.Accuracy
		if r.Accuracy > s.BestAccuracy {
			s.BestAccuracy = r.Accuracy
		}
	}
	if s.Successful > 0 {
		s.AverageAccuracy = sum / float64(s.Successful)
	}

	return s
}
