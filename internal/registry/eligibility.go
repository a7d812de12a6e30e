package registry

import "math"

// RequiredObservations returns the total history a SKU must have before a
// model with the given minimum can be fit and validated. The validation
// split reserves validationRatio of the data, so the training portion alone
// must still cover the model minimum.
func RequiredObservations(minObservations int, validationRatio float64) int {
	if validationRatio <= 0 {
		return minObservations
	}
	if validationRatio >= 1 {
		return math.MaxInt32
	}
	return int(math.Ceil(float64(minObservations) / (1 - validationRatio)))
}

// IsEligible reports whether a SKU with n observations may run the given
// model at the given validation ratio. Boundary equality is eligible.
func IsEligible(n, minObservations int, validationRatio float64) bool {
	return n >= RequiredObservations(minObservations, validationRatio)
}
