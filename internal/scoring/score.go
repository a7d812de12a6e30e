package scoring

import (
	"math"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/config"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/optimizer"
)

// Weights are the composite-score weights, each in [0, 1] and conventionally
// summing to 1. The sum is not enforced.
type Weights struct {
	MAPE     float64 `json:"mape"`
	RMSE     float64 `json:"rmse"`
	MAE      float64 `json:"mae"`
	Accuracy float64 `json:"accuracy"`
}

// WeightsFromConfig builds score weights from the optimizer configuration
func WeightsFromConfig(cfg *config.OptimizerConfig) Weights {
	return Weights{
		MAPE:     cfg.WeightMAPE,
		RMSE:     cfg.WeightRMSE,
		MAE:      cfg.WeightMAE,
		Accuracy: cfg.WeightAccuracy,
	}
}

// groupMaxima are the per-group normalization denominators: the maximum
// observed value of each error metric, with a fallback of 1 when every
// observed value is zero.
type groupMaxima struct {
	MAPE float64
	RMSE float64
	MAE  float64
}

// maximaFor scans a group's results for the normalization maxima. Invalid
// metrics do not contribute.
func maximaFor(results []optimizer.ModelGridResult) groupMaxima {
	m := groupMaxima{}
	for _, r := range results {
		if !r.Success {
			continue
		}
		m.MAPE = math.Max(m.MAPE, validOrZero(r.MAPE))
		m.RMSE = math.Max(m.RMSE, validOrZero(r.RMSE))
		m.MAE = math.Max(m.MAE, validOrZero(r.MAE))
	}

	if m.MAPE == 0 {
		m.MAPE = 1
	}
	if m.RMSE == 0 {
		m.RMSE = 1
	}
	if m.MAE == 0 {
		m.MAE = 1
	}
	return m
}

// normalized are a single result's metrics after worst-case substitution
// and normalization against the group maxima.
type normalized struct {
	MAPE     float64
	RMSE     float64
	MAE      float64
	Accuracy float64
}

// normalize substitutes worst-case values for missing or invalid metrics
// (max for error metrics, 0 for accuracy) and scales error metrics into
// [0, 1] against the group maxima.
func normalize(r optimizer.ModelGridResult, m groupMaxima) normalized {
	n := normalized{
		MAPE:     m.MAPE,
		RMSE:     m.RMSE,
		MAE:      m.MAE,
		Accuracy: 0,
	}

	if r.Success {
		if isValidMetric(r.MAPE) {
			n.MAPE = r.MAPE
		}
		if isValidMetric(r.RMSE) {
			n.RMSE = r.RMSE
		}
		if isValidMetric(r.MAE) {
			n.MAE = r.MAE
		}
		if isValidMetric(r.Accuracy) {
			n.Accuracy = r.Accuracy
		}
	}

	n.MAPE /= m.MAPE
	n.RMSE /= m.RMSE
	n.MAE /= m.MAE
	return n
}

// Score computes the weighted composite score of one result within its
// group. Every term is clamped to [0, 1], so the score is bounded by the
// weight sum regardless of pathological inputs.
func (w Weights) Score(r optimizer.ModelGridResult, m groupMaxima) float64 {
	n := normalize(r, m)

	return w.MAPE*clamp01(1-n.MAPE) +
		w.RMSE*clamp01(1-n.RMSE) +
		w.MAE*clamp01(1-n.MAE) +
		w.Accuracy*clamp01(n.Accuracy/100)
}

func isValidMetric(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validOrZero(v float64) float64 {
	if isValidMetric(v) {
		return v
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
