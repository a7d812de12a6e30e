package forecast

import (
	"fmt"
	"math"
)

// Metrics holds the standard forecast accuracy metrics. MAPE is expressed
// as a fraction (0.1 = 10% error); lower is better for all three.
type Metrics struct {
	MAPE float64 `json:"mape"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
}

// ComputeMetrics evaluates a forecast against the actual validation values.
// Zero actuals are excluded from the MAPE mean so a single zero-demand
// period does not blow up the percentage error; a window of only zeros
// leaves MAPE undefined and is an error.
func ComputeMetrics(actual, predicted Series) (*Metrics, error) {
	if len(actual) == 0 {
		return nil, fmt.Errorf("no validation observations")
	}
	if len(actual) != len(predicted) {
		return nil, fmt.Errorf("forecast length %d does not match validation length %d", len(predicted), len(actual))
	}

	var sumAPE, sumSq, sumAbs float64
	apeCount := 0

	for i := range actual {
		diff := predicted[i] - actual[i]
		sumSq += diff * diff
		sumAbs += math.Abs(diff)

		if actual[i] != 0 {
			sumAPE += math.Abs(diff / actual[i])
			apeCount++
		}
	}

	if apeCount == 0 {
		return nil, fmt.Errorf("all validation observations are zero, MAPE is undefined")
	}

	m := &Metrics{
		MAPE: sumAPE / float64(apeCount),
		RMSE: math.Sqrt(sumSq / float64(len(actual))),
		MAE:  sumAbs / float64(len(actual)),
	}

	if math.IsNaN(m.MAPE) || math.IsInf(m.MAPE, 0) ||
		math.IsNaN(m.RMSE) || math.IsInf(m.RMSE, 0) ||
		math.IsNaN(m.MAE) || math.IsInf(m.MAE, 0) {
		return nil, fmt.Errorf("non-finite metrics for forecast")
	}

	return m, nil
}
