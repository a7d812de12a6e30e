package optimizer

import (
	"math"
	"sort"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/forecast"
	"go.uber.org/zap"
)

const (
	// eliteFraction is the share of top results used to derive promising ranges
	eliteFraction = 0.2
	// focusedGridPoints is the size of the refinement sub-grid per parameter
	focusedGridPoints = 5
	// collapsedRangeStep spaces the sub-grid when an elite range is a single point
	collapsedRangeStep = 0.1
)

// RunAIOptimization runs the two-phase refinement: a full exploratory grid
// pass, statistical narrowing of each parameter around the top performers,
// and a focused re-run over the narrowed grids. The focused grids are passed
// into the search explicitly, so the registry is never mutated.
func (o *Optimizer) RunAIOptimization(series forecast.Series, modelIDs []string, onProgress ProgressFunc) (*RunResult, error) {
	// Phase 1: exploration over the full registry grids.
	exploration, err := o.runWithGrids(series, modelIDs, nil, PhaseAnalysis, TypeAI, scaleProgress(onProgress, 0, 50))
	if err != nil {
		return nil, err
	}

	// Phase 2: narrow each model's grid around its elite subset.
	promising := make(map[string]map[string]ParameterRange, len(modelIDs))
	focusedGrids := make(map[string]map[string][]float64, len(modelIDs))

	for _, modelID := range modelIDs {
		ranges := promisingRanges(resultsForModel(exploration.Results, modelID))
		if len(ranges) == 0 {
			// Nothing succeeded in exploration; refine over the original grid.
			o.logger.Warn("No successful exploration results, refining over full grid",
				zap.String("model_id", modelID))
			continue
		}

		promising[modelID] = ranges

		grid := make(map[string][]float64, len(ranges))
		for name, r := range ranges {
			grid[name] = focusedValues(r)
		}
		focusedGrids[modelID] = grid
	}

	// Phase 3: focused refinement.
	refined, err := o.runWithGrids(series, modelIDs, focusedGrids, PhaseRefinement, TypeAI, scaleProgress(onProgress, 50, 100))
	if err != nil {
		return nil, err
	}

	refined.AIInsights = &AIInsights{
		PromisingRanges: promising,
		Confidence:      confidence(refined.Results),
	}

	return refined, nil
}

// promisingRanges computes {min, max, avg} per parameter over the top 20%
// (at least one) of successful results, ranked by accuracy descending.
func promisingRanges(results []ModelGridResult) map[string]ParameterRange {
	successful := make([]ModelGridResult, 0, len(results))
	for _, r := range results {
		if r.Success {
			successful = append(successful, r)
		}
	}
	if len(successful) == 0 {
		return nil
	}

	sort.SliceStable(successful, func(i, j int) bool {
		return successful[i].Accuracy > successful[j].Accuracy
	})

	eliteCount := int(math.Ceil(float64(len(successful)) * eliteFraction))
	if eliteCount < 1 {
		eliteCount = 1
	}
	elite := successful[:eliteCount]

	ranges := make(map[string]ParameterRange)
	counts := make(map[string]int)
	sums := make(map[string]float64)

	for _, r := range elite {
		for name, value := range r.Parameters {
			cur, seen := ranges[name]
			if !seen {
				cur = ParameterRange{Min: value, Max: value}
			} else {
				cur.Min = math.Min(cur.Min, value)
				cur.Max = math.Max(cur.Max, value)
			}
			ranges[name] = cur
			sums[name] += value
			counts[name]++
		}
	}

	for name := range ranges {
		r := ranges[name]
		r.Avg = sums[name] / float64(counts[name])
		ranges[name] = r
	}

	return ranges
}

// focusedValues builds the 5-point sub-grid spanning an elite range. Points
// are clamped to [min, max] and deduplicated, so a collapsed range yields a
// single value instead of probing outside the elite span.
func focusedValues(r ParameterRange) []float64 {
	step := (r.Max - r.Min) / float64(focusedGridPoints-1)
	if step <= 0 {
		step = collapsedRangeStep
	}

	values := make([]float64, 0, focusedGridPoints)
	for i := 0; i < focusedGridPoints; i++ {
		v := r.Min + float64(i)*step
		if v > r.Max {
			v = r.Max
		}
		if len(values) > 0 && values[len(values)-1] == v {
			continue
		}
		values = append(values, v)
	}

	return values
}

// confidence scores how trustworthy the focused results are, from the mean
// and spread of their accuracies. Empty input scores 0; otherwise the result
// is clamped to [5, 95].
func confidence(results []ModelGridResult) float64 {
	accuracies := make(forecast.Series, 0, len(results))
	for _, r := range results {
		if r.Success {
			accuracies = append(accuracies, r.Accuracy)
		}
	}
	if len(accuracies) == 0 {
		return 0
	}

	mean := forecast.Mean(accuracies)
	if mean <= 0 {
		return 5
	}

	consistency := 1 - forecast.StdDev(accuracies)/mean
	if consistency < 0 {
		consistency = 0
	}

	score := 100 * (0.6*consistency + 0.4*mean/100)
	return math.Min(95, math.Max(5, score))
}

func resultsForModel(results []ModelGridResult, modelID string) []ModelGridResult {
	out := make([]ModelGridResult, 0, len(results))
	for _, r := range results {
		if r.ModelID == modelID {
			out = append(out, r)
		}
	}
	return out
}

// scaleProgress maps a phase-local 0-100 range onto [from, to] of the
// overall run so the reported percentage stays monotonic across phases.
func scaleProgress(onProgress ProgressFunc, from, to int) ProgressFunc {
	if onProgress == nil {
		return nil
	}
	return func(phase string, percent int) {
		onProgress(phase, from+(to-from)*percent/100)
	}
}
