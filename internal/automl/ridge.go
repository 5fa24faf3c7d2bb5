package automl

import (
	"fmt"

	"churn-predictor/internal/ml"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// fitMean predicts the training mean for every row.
func fitMean(y []float64) *ml.LinearModel {
	return &ml.LinearModel{Intercept: stat.Mean(y, nil)}
}

// fitRidge solves (XᵀX + λI)w = Xᵀy with an unpenalised intercept.
func fitRidge(x [][]float64, y []float64, lambda float64) (*ml.LinearModel, error) {
	n := len(x)
	if n == 0 {
		return nil, fmt.Errorf("ridge: no rows")
	}
	p := len(x[0]) + 1

	design := mat.NewDense(n, p, nil)
	for i, row := range x {
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}
	target := mat.NewVecDense(n, y)

	var gram mat.SymDense
	gram.SymOuterK(1, design.T())
	for j := 1; j < p; j++ {
		gram.SetSym(j, j, gram.At(j, j)+lambda)
	}

	var rhs mat.VecDense
	rhs.MulVec(design.T(), target)

	var coef mat.VecDense
	var chol mat.Cholesky
	if chol.Factorize(&gram) {
		if err := chol.SolveVecTo(&coef, &rhs); err != nil {
			return nil, fmt.Errorf("ridge: %w", err)
		}
	} else if err := coef.SolveVec(&gram, &rhs); err != nil {
		return nil, fmt.Errorf("ridge: system is singular: %w", err)
	}

	weights := make([]float64, p-1)
	for j := range weights {
		weights[j] = coef.AtVec(j + 1)
	}
	return &ml.LinearModel{Intercept: coef.AtVec(0), Weights: weights}, nil
}
