package forecast

import (
	"fmt"
	"math"
)

// FitResult is the outcome of fitting one model with one parameter set.
type FitResult struct {
	Forecast Series   `json:"forecast"`
	Metrics  *Metrics `json:"metrics"`
}

// Fitter fits a model on the training portion of a series and scores the
// forecast against the validation portion. Implementations are black boxes
// to the optimizer; any error aborts only the combination being evaluated.
type Fitter interface {
	Fit(train, validation Series, modelID string, params map[string]float64) (*FitResult, error)
}

// forecastFunc produces a forecast of the requested horizon from training data.
type forecastFunc func(train Series, horizon int, params map[string]float64) (Series, error)

// BuiltinFitter implements the bundled forecasting models.
type BuiltinFitter struct {
	models map[string]forecastFunc
}

// NewBuiltinFitter creates a fitter with every bundled model registered.
func NewBuiltinFitter() *BuiltinFitter {
	return &BuiltinFitter{
		models: map[string]forecastFunc{
			"moving_average":     forecastMovingAverage,
			"simple_exponential": forecastSimpleExponential,
			"double_exponential": forecastDoubleExponential,
			"holt_winters":       forecastHoltWinters,
			"linear_trend":       forecastLinearTrend,
			"naive":              forecastNaive,
			"seasonal_naive":     forecastSeasonalNaive,
		},
	}
}

// Fit implements the Fitter interface
func (f *BuiltinFitter) Fit(train, validation Series, modelID string, params map[string]float64) (*FitResult, error) {
	model, ok := f.models[modelID]
	if !ok {
		return nil, fmt.Errorf("unknown model %q", modelID)
	}

	if len(train) == 0 {
		return nil, fmt.Errorf("empty training series")
	}

	forecast, err := model(train, len(validation), params)
	if err != nil {
		return nil, err
	}

	metrics, err := ComputeMetrics(validation, forecast)
	if err != nil {
		return nil, err
	}

	return &FitResult{Forecast: forecast, Metrics: metrics}, nil
}

// intParam reads a parameter expected to hold an integral value.
func intParam(params map[string]float64, name string) (int, error) {
	v, ok := params[name]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", name)
	}
	return int(math.Round(v)), nil
}

func floatParam(params map[string]float64, name string) (float64, error) {
	v, ok := params[name]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", name)
	}
	return v, nil
}

func constantForecast(value float64, horizon int) Series {
	out := make(Series, horizon)
	for i := range out {
		out[i] = value
	}
	return out
}

func forecastMovingAverage(train Series, horizon int, params map[string]float64) (Series, error) {
	window, err := intParam(params, "window")
	if err != nil {
		return nil, err
	}
	if window < 1 {
		return nil, fmt.Errorf("window must be at least 1, got %d", window)
	}
	if window > len(train) {
		return nil, fmt.Errorf("window %d exceeds training length %d", window, len(train))
	}

	return constantForecast(Mean(train[len(train)-window:]), horizon), nil
}

func forecastSimpleExponential(train Series, horizon int, params map[string]float64) (Series, error) {
	alpha, err := floatParam(params, "alpha")
	if err != nil {
		return nil, err
	}
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("alpha must be in (0, 1], got %g", alpha)
	}

	level := train[0]
	for _, v := range train[1:] {
		level = alpha*v + (1-alpha)*level
	}

	return constantForecast(level, horizon), nil
}

func forecastDoubleExponential(train Series, horizon int, params map[string]float64) (Series, error) {
	alpha, err := floatParam(params, "alpha")
	if err != nil {
		return nil, err
	}
	beta, err := floatParam(params, "beta")
	if err != nil {
		return nil, err
	}
	if alpha <= 0 || alpha > 1 || beta <= 0 || beta > 1 {
		return nil, fmt.Errorf("alpha and beta must be in (0, 1], got alpha=%g beta=%g", alpha, beta)
	}
	if len(train) < 2 {
		return nil, fmt.Errorf("double exponential smoothing needs at least 2 observations")
	}

	level := train[0]
	trend := train[1] - train[0]
	for _, v := range train[1:] {
		prevLevel := level
		level = alpha*v + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}

	out := make(Series, horizon)
	for i := range out {
		out[i] = level + float64(i+1)*trend
	}
	return out, nil
}

func forecastHoltWinters(train Series, horizon int, params map[string]float64) (Series, error) {
	alpha, err := floatParam(params, "alpha")
	if err != nil {
		return nil, err
	}
	beta, err := floatParam(params, "beta")
	if err != nil {
		return nil, err
	}
	gamma, err := floatParam(params, "gamma")
	if err != nil {
		return nil, err
	}

	season := 12
	if v, ok := params["season_length"]; ok {
		season = int(math.Round(v))
	}
	if season < 2 {
		return nil, fmt.Errorf("season length must be at least 2, got %d", season)
	}
	if len(train) < 2*season {
		return nil, fmt.Errorf("holt-winters needs at least %d observations, got %d", 2*season, len(train))
	}
	if alpha <= 0 || alpha > 1 || beta <= 0 || beta > 1 || gamma <= 0 || gamma > 1 {
		return nil, fmt.Errorf("smoothing factors must be in (0, 1]")
	}

	// Seasonal indices from the first full season, additive decomposition.
	level := Mean(train[:season])
	trend := (Mean(train[season:2*season]) - level) / float64(season)

	seasonal := make([]float64, season)
	for i := 0; i < season; i++ {
		seasonal[i] = train[i] - level
	}

	for i := season; i < len(train); i++ {
		prevLevel := level
		idx := i % season
		level = alpha*(train[i]-seasonal[idx]) + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
		seasonal[idx] = gamma*(train[i]-level) + (1-gamma)*seasonal[idx]
	}

	out := make(Series, horizon)
	for h := 0; h < horizon; h++ {
		idx := (len(train) + h) % season
		out[h] = level + float64(h+1)*trend + seasonal[idx]
	}
	return out, nil
}

func forecastLinearTrend(train Series, horizon int, params map[string]float64) (Series, error) {
	if len(train) < 2 {
		return nil, fmt.Errorf("linear trend needs at least 2 observations")
	}

	// Ordinary least squares on (index, value).
	n := float64(len(train))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range train {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return nil, fmt.Errorf("degenerate series for linear trend")
	}

	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	out := make(Series, horizon)
	for h := 0; h < horizon; h++ {
		out[h] = intercept + slope*float64(len(train)+h)
	}
	return out, nil
}

func forecastNaive(train Series, horizon int, params map[string]float64) (Series, error) {
	return constantForecast(train[len(train)-1], horizon), nil
}

func forecastSeasonalNaive(train Series, horizon int, params map[string]float64) (Series, error) {
	season := 12
	if v, ok := params["season_length"]; ok {
		season = int(math.Round(v))
	}
	if season < 1 {
		return nil, fmt.Errorf("season length must be at least 1, got %d", season)
	}
	if len(train) < season {
		return nil, fmt.Errorf("seasonal naive needs at least %d observations, got %d", season, len(train))
	}

	out := make(Series, horizon)
	for h := 0; h < horizon; h++ {
		out[h] = train[len(train)-season+(h%season)]
	}
	return out, nil
}
