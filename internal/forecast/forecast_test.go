package forecast_test

import (
	"testing"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/forecast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Run("Should reserve ceil of ratio for validation", func(t *testing.T) {
		s := make(forecast.Series, 10)
		train, validation := forecast.Split(s, 0.2)
		assert.Len(t, train, 8)
		assert.Len(t, validation, 2)
	})

	t.Run("Should round the validation size up", func(t *testing.T) {
		s := make(forecast.Series, 13)
		train, validation := forecast.Split(s, 0.2)
		// ceil(13 * 0.2) = 3
		assert.Len(t, train, 10)
		assert.Len(t, validation, 3)
	})

	t.Run("Should keep at least one observation on each side", func(t *testing.T) {
		train, validation := forecast.Split(forecast.Series{1, 2}, 0.01)
		assert.Len(t, train, 1)
		assert.Len(t, validation, 1)

		train, validation = forecast.Split(forecast.Series{1, 2}, 0.99)
		assert.Len(t, train, 1)
		assert.Len(t, validation, 1)
	})

	t.Run("Should handle empty series", func(t *testing.T) {
		train, validation := forecast.Split(nil, 0.2)
		assert.Nil(t, train)
		assert.Nil(t, validation)
	})

	t.Run("Validation is the newest suffix", func(t *testing.T) {
		s := forecast.Series{1, 2, 3, 4, 5}
		train, validation := forecast.Split(s, 0.2)
		assert.Equal(t, forecast.Series{1, 2, 3, 4}, train)
		assert.Equal(t, forecast.Series{5}, validation)
	})
}

func TestComputeMetrics(t *testing.T) {
	t.Run("Should compute MAPE RMSE MAE", func(t *testing.T) {
		actual := forecast.Series{100, 200}
		predicted := forecast.Series{110, 180}

		m, err := forecast.ComputeMetrics(actual, predicted)
		require.NoError(t, err)
		// APE: 0.1 and 0.1, mean 0.1
		assert.InDelta(t, 0.1, m.MAPE, 1e-9)
		assert.InDelta(t, 15.0, m.MAE, 1e-9)
		assert.InDelta(t, 15.811388, m.RMSE, 1e-5)
	})

	t.Run("Should exclude zero actuals from MAPE", func(t *testing.T) {
		actual := forecast.Series{0, 100}
		predicted := forecast.Series{10, 110}

		m, err := forecast.ComputeMetrics(actual, predicted)
		require.NoError(t, err)
		assert.InDelta(t, 0.1, m.MAPE, 1e-9)
		// MAE still counts the zero-demand period
		assert.InDelta(t, 10.0, m.MAE, 1e-9)
	})

	t.Run("Should reject mismatched lengths", func(t *testing.T) {
		_, err := forecast.ComputeMetrics(forecast.Series{1, 2}, forecast.Series{1})
		assert.Error(t, err)
	})

	t.Run("Should reject empty validation", func(t *testing.T) {
		_, err := forecast.ComputeMetrics(nil, nil)
		assert.Error(t, err)
	})

	t.Run("Should reject all-zero actuals", func(t *testing.T) {
		// MAPE has no defined value here, and a silent zero would rate a
		// wildly wrong forecast as perfect.
		m, err := forecast.ComputeMetrics(forecast.Series{0, 0, 0}, forecast.Series{50, 50, 50})
		assert.Error(t, err)
		assert.Nil(t, m)
	})
}

func TestBuiltinFitter_MovingAverage(t *testing.T) {
	fitter := forecast.NewBuiltinFitter()
	train := forecast.Series{10, 20, 30, 40, 50, 60}
	validation := forecast.Series{55, 55}

	result, err := fitter.Fit(train, validation, "moving_average", map[string]float64{"window": 3})
	require.NoError(t, err)
	require.Len(t, result.Forecast, 2)
	// Flat forecast at the mean of the last 3 training points
	assert.InDelta(t, 50.0, result.Forecast[0], 1e-9)
	assert.InDelta(t, 50.0, result.Forecast[1], 1e-9)
	assert.NotNil(t, result.Metrics)
}

func TestBuiltinFitter_Naive(t *testing.T) {
	fitter := forecast.NewBuiltinFitter()
	train := forecast.Series{10, 20, 30}
	validation := forecast.Series{30, 30}

	result, err := fitter.Fit(train, validation, "naive", nil)
	require.NoError(t, err)
	assert.Equal(t, forecast.Series{30, 30}, result.Forecast)
	assert.InDelta(t, 0, result.Metrics.MAPE, 1e-9)
}

func TestBuiltinFitter_SimpleExponential(t *testing.T) {
	fitter := forecast.NewBuiltinFitter()
	train := forecast.Series{100, 100, 100, 100}
	validation := forecast.Series{100, 100}

	result, err := fitter.Fit(train, validation, "simple_exponential", map[string]float64{"alpha": 0.5})
	require.NoError(t, err)
	// Constant series smooths to itself
	assert.InDelta(t, 100.0, result.Forecast[0], 1e-9)
	assert.InDelta(t, 0, result.Metrics.MAPE, 1e-9)
}

func TestBuiltinFitter_LinearTrend(t *testing.T) {
	fitter := forecast.NewBuiltinFitter()
	// Perfect line: y = 10 + 5x
	train := forecast.Series{10, 15, 20, 25, 30, 35}
	validation := forecast.Series{40, 45}

	result, err := fitter.Fit(train, validation, "linear_trend", nil)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, result.Forecast[0], 1e-6)
	assert.InDelta(t, 45.0, result.Forecast[1], 1e-6)
}

func TestBuiltinFitter_Errors(t *testing.T) {
	fitter := forecast.NewBuiltinFitter()

	t.Run("Unknown model", func(t *testing.T) {
		_, err := fitter.Fit(forecast.Series{1, 2, 3}, forecast.Series{4}, "arima", nil)
		assert.Error(t, err)
	})

	t.Run("Missing parameter", func(t *testing.T) {
		_, err := fitter.Fit(forecast.Series{1, 2, 3}, forecast.Series{4}, "moving_average", nil)
		assert.Error(t, err)
	})

	t.Run("Window longer than training", func(t *testing.T) {
		_, err := fitter.Fit(forecast.Series{1, 2}, forecast.Series{3}, "moving_average", map[string]float64{"window": 5})
		assert.Error(t, err)
	})

	t.Run("Empty training series", func(t *testing.T) {
		_, err := fitter.Fit(nil, forecast.Series{1}, "naive", nil)
		assert.Error(t, err)
	})
}

func TestMeanAndStdDev(t *testing.T) {
	s := forecast.Series{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, forecast.Mean(s), 1e-9)
	assert.InDelta(t, 2.0, forecast.StdDev(s), 1e-9)

	assert.Zero(t, forecast.Mean(nil))
	assert.Zero(t, forecast.StdDev(nil))
}
