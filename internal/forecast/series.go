package forecast

import "math"

// Series is the ordered sales history for a single SKU, oldest first.
type Series []float64

// Split divides a series into a training prefix and a validation suffix.
// The validation suffix holds ceil(len*ratio) observations, at least one
// when the series is non-empty.
func Split(s Series, validationRatio float64) (train, validation Series) {
	if len(s) == 0 {
		return nil, nil
	}

	validationSize := int(math.Ceil(float64(len(s)) * validationRatio))
	if validationSize < 1 {
		validationSize = 1
	}
	if validationSize >= len(s) {
		validationSize = len(s) - 1
	}

	cut := len(s) - validationSize
	return s[:cut], s[cut:]
}

// Mean returns the arithmetic mean of the series, 0 for an empty series.
func Mean(s Series) float64 {
	if len(s) == 0 {
		return 0
	}

	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}

// StdDev returns the population standard deviation of the series.
func StdDev(s Series) float64 {
	if len(s) == 0 {
		return 0
	}

	mean := Mean(s)
	var sum float64
	for _, v := range s {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(s)))
}
