package automl

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// R2 is the coefficient of determination of pred against actual. When actual
// is constant it is 1 for a perfect fit and 0 otherwise, so scores stay finite.
func R2(pred, actual []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	_, variance := stat.PopMeanVariance(actual, nil)
	if variance == 0 {
		if floats.EqualApprox(pred, actual, 1e-12) {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(pred, actual, nil)
}
