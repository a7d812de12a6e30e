package optimizer_test

import (
	"fmt"
	"testing"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/config"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/forecast"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/optimizer"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/registry"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedFitter returns canned metrics per (model, parameters) so tests can
// control which combination wins.
type scriptedFitter struct {
	mape  func(modelID string, params map[string]float64) float64
	fails func(modelID string, params map[string]float64) bool
	calls int
}

func (f *scriptedFitter) Fit(train, validation forecast.Series, modelID string, params map[string]float64) (*forecast.FitResult, error) {
	f.calls++
	if f.fails != nil && f.fails(modelID, params) {
		return nil, fmt.Errorf("scripted failure")
	}
	mape := 0.1
	if f.mape != nil {
		mape = f.mape(modelID, params)
	}
	return &forecast.FitResult{
		Forecast: make(forecast.Series, len(validation)),
		Metrics:  &forecast.Metrics{MAPE: mape, RMSE: mape * 100, MAE: mape * 50},
	}, nil
}

func testRegistry() *registry.Registry {
	return registry.NewRegistryWith([]*registry.ModelDefinition{
		{
			ID:   "moving_average",
			Name: "Moving Average",
			ParameterGrid: map[string][]float64{
				"window": {2, 3, 4},
			},
			DefaultParameters:        map[string]float64{"window": 3},
			MinObservations:          4,
			ParticipatesInGridSearch: true,
		},
		{
			ID:   "double_exponential",
			Name: "Double Exponential",
			ParameterGrid: map[string][]float64{
				"alpha": {0.2, 0.5, 0.8},
				"beta":  {0.1, 0.3},
			},
			DefaultParameters:        map[string]float64{"alpha": 0.5, "beta": 0.1},
			MinObservations:          8,
			ParticipatesInGridSearch: true,
		},
		{
			ID:                       "naive",
			Name:                     "Naive",
			DefaultParameters:        map[string]float64{},
			MinObservations:          1,
			ParticipatesInGridSearch: false,
		},
	})
}

func newOptimizer(t *testing.T, fitter forecast.Fitter) *optimizer.Optimizer {
	logger := testutil.NewTestLogger(t)
	cfg := &config.OptimizerConfig{ValidationRatio: 0.2}
	return optimizer.New(testRegistry(), fitter, cfg, logger)
}

func TestDefaultAccuracy(t *testing.T) {
	assert.InDelta(t, 100.0, optimizer.DefaultAccuracy(0), 1e-9)
	assert.InDelta(t, 90.0, optimizer.DefaultAccuracy(0.1), 1e-9)
	assert.InDelta(t, 0.0, optimizer.DefaultAccuracy(1), 1e-9)
	// MAPE above 100% floors at zero instead of going negative
	assert.InDelta(t, 0.0, optimizer.DefaultAccuracy(2.5), 1e-9)
}

func TestRunGridSearch_Exhaustive(t *testing.T) {
	fitter := &scriptedFitter{}
	opt := newOptimizer(t, fitter)
	series := testutil.MonthlySeries(24)

	result, err := opt.RunGridSearch(series, []string{"moving_average", "double_exponential"}, nil)
	require.NoError(t, err)

	// 3 + 3*2 combinations, every one evaluated exactly once
	assert.Len(t, result.Results, 9)
	assert.Equal(t, 9, fitter.calls)
	assert.Equal(t, optimizer.TypeGrid, result.Type)

	perModel := map[string]int{}
	for _, r := range result.Results {
		perModel[r.ModelID]++
		assert.True(t, r.Success)
	}
	assert.Equal(t, 3, perModel["moving_average"])
	assert.Equal(t, 6, perModel["double_exponential"])
}

func TestRunGridSearch_Deterministic(t *testing.T) {
	fitter := &scriptedFitter{}
	opt := newOptimizer(t, fitter)
	series := testutil.MonthlySeries(24)

	first, err := opt.RunGridSearch(series, []string{"double_exponential"}, nil)
	require.NoError(t, err)
	second, err := opt.RunGridSearch(series, []string{"double_exponential"}, nil)
	require.NoError(t, err)

	require.Equal(t, len(first.Results), len(second.Results))
	for i := range first.Results {
		assert.Equal(t, first.Results[i].Parameters, second.Results[i].Parameters)
	}
}

func TestRunGridSearch_LowestMAPEWins(t *testing.T) {
	fitter := &scriptedFitter{
		mape: func(modelID string, params map[string]float64) float64 {
			if params["window"] == 3 {
				return 0.05
			}
			return 0.2
		},
	}
	opt := newOptimizer(t, fitter)
	series := testutil.MonthlySeries(24)

	result, err := opt.RunGridSearch(series, []string{"moving_average"}, nil)
	require.NoError(t, err)

	require.NotNil(t, result.BestResult)
	assert.Equal(t, 3.0, result.BestResult.Parameters["window"])
	assert.InDelta(t, 0.05, result.BestResult.MAPE, 1e-9)
	assert.InDelta(t, 95.0, result.BestResult.Accuracy, 1e-9)
	assert.Equal(t, result.BestResult, result.BestPerModel["moving_average"])
}

func TestRunGridSearch_FailuresAreAbsorbed(t *testing.T) {
	fitter := &scriptedFitter{
		fails: func(modelID string, params map[string]float64) bool {
			return params["window"] == 2
		},
	}
	opt := newOptimizer(t, fitter)
	series := testutil.MonthlySeries(24)

	result, err := opt.RunGridSearch(series, []string{"moving_average"}, nil)
	require.NoError(t, err)

	assert.Len(t, result.Results, 3)
	failed := 0
	for _, r := range result.Results {
		if !r.Success {
			failed++
			assert.NotEmpty(t, r.Error)
		}
	}
	assert.Equal(t, 1, failed)

	require.Len(t, result.Summaries, 1)
	assert.Equal(t, 3, result.Summaries[0].Combinations)
	assert.Equal(t, 2, result.Summaries[0].Successful)
}

func TestRunGridSearch_Errors(t *testing.T) {
	opt := newOptimizer(t, &scriptedFitter{})
	series := testutil.MonthlySeries(24)

	t.Run("Unknown model", func(t *testing.T) {
		_, err := opt.RunGridSearch(series, []string{"arima"}, nil)
		assert.Error(t, err)
	})

	t.Run("Model opted out of grid search", func(t *testing.T) {
		_, err := opt.RunGridSearch(series, []string{"naive"}, nil)
		assert.Error(t, err)
	})

	t.Run("Series too short to split", func(t *testing.T) {
		_, err := opt.RunGridSearch(forecast.Series{100}, []string{"moving_average"}, nil)
		assert.Error(t, err)
	})

	t.Run("No models requested", func(t *testing.T) {
		_, err := opt.RunGridSearch(series, nil, nil)
		assert.Error(t, err)
	})
}

func TestRunGridSearch_Progress(t *testing.T) {
	opt := newOptimizer(t, &scriptedFitter{})
	series := testutil.MonthlySeries(24)

	var percents []int
	_, err := opt.RunGridSearch(series, []string{"moving_average", "double_exponential"}, func(phase string, percent int) {
		assert.Equal(t, optimizer.PhaseGrid, phase)
		percents = append(percents, percent)
	})
	require.NoError(t, err)

	assert.Equal(t, []int{50, 100}, percents)
}

func TestRunAIOptimization_RangesContainElite(t *testing.T) {
	fitter := &scriptedFitter{
		mape: func(modelID string, params map[string]float64) float64 {
			// alpha 0.5 dominates exploration
			if params["alpha"] == 0.5 {
				return 0.05
			}
			return 0.3
		},
	}
	opt := newOptimizer(t, fitter)
	series := testutil.MonthlySeries(24)

	result, err := opt.RunAIOptimization(series, []string{"double_exponential"}, nil)
	require.NoError(t, err)

	assert.Equal(t, optimizer.TypeAI, result.Type)
	require.NotNil(t, result.AIInsights)

	ranges := result.AIInsights.PromisingRanges["double_exponential"]
	require.NotEmpty(t, ranges)
	for name, r := range ranges {
		assert.LessOrEqual(t, r.Min, r.Avg, name)
		assert.LessOrEqual(t, r.Avg, r.Max, name)
	}

	// Every refined combination stays inside the promising ranges
	for _, r := range result.Results {
		for name, value := range r.Parameters {
			pr := ranges[name]
			assert.GreaterOrEqual(t, value, pr.Min, name)
			assert.LessOrEqual(t, value, pr.Max, name)
		}
	}
}

func TestRunAIOptimization_CollapsedRange(t *testing.T) {
	// Single-parameter model with a single grid value: the elite range
	// collapses to a point and refinement probes exactly that point.
	reg := registry.NewRegistryWith([]*registry.ModelDefinition{
		{
			ID:                       "fixed",
			Name:                     "Fixed",
			ParameterGrid:            map[string][]float64{"alpha": {0.4}},
			DefaultParameters:        map[string]float64{"alpha": 0.4},
			MinObservations:          4,
			ParticipatesInGridSearch: true,
		},
	})
	logger := testutil.NewTestLogger(t)
	opt := optimizer.New(reg, &scriptedFitter{}, &config.OptimizerConfig{ValidationRatio: 0.2}, logger)

	result, err := opt.RunAIOptimization(testutil.MonthlySeries(24), []string{"fixed"}, nil)
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	assert.Equal(t, 0.4, result.Results[0].Parameters["alpha"])
}

func TestRunAIOptimization_Confidence(t *testing.T) {
	t.Run("Uniform accuracies score high", func(t *testing.T) {
		opt := newOptimizer(t, &scriptedFitter{mape: func(string, map[string]float64) float64 { return 0.05 }})
		result, err := opt.RunAIOptimization(testutil.MonthlySeries(24), []string{"moving_average"}, nil)
		require.NoError(t, err)

		require.NotNil(t, result.AIInsights)
		c := result.AIInsights.Confidence
		assert.GreaterOrEqual(t, c, 5.0)
		assert.LessOrEqual(t, c, 95.0)
		// Zero spread, mean accuracy 95: 0.6 + 0.4*0.95 = 0.98 -> clamped to 95
		assert.InDelta(t, 95.0, c, 1e-9)
	})

	t.Run("All failures score zero", func(t *testing.T) {
		opt := newOptimizer(t, &scriptedFitter{fails: func(string, map[string]float64) bool { return true }})
		result, err := opt.RunAIOptimization(testutil.MonthlySeries(24), []string{"moving_average"}, nil)
		require.NoError(t, err)

		require.NotNil(t, result.AIInsights)
		assert.Zero(t, result.AIInsights.Confidence)
	})
}

func TestRunAIOptimization_Progress(t *testing.T) {
	opt := newOptimizer(t, &scriptedFitter{})

	var last int
	phases := map[string]bool{}
	_, err := opt.RunAIOptimization(testutil.MonthlySeries(24), []string{"moving_average"}, func(phase string, percent int) {
		phases[phase] = true
		assert.GreaterOrEqual(t, percent, last)
		last = percent
	})
	require.NoError(t, err)

	assert.True(t, phases[optimizer.PhaseAnalysis])
	assert.True(t, phases[optimizer.PhaseRefinement])
	assert.Equal(t, 100, last)
}
