// Package ml holds the churn model: the persisted artifact, the feature
// encoder and estimators it carries, and the predictor adapter the HTTP layer
// calls. Fitting lives in package automl; this package only evaluates.
package ml

import (
	"context"

	"churn-predictor/internal/table"
)

// PredictorInterface is what the request path needs from a loaded model.
type PredictorInterface interface {
	// Predict returns one score per row of data, in row order.
	Predict(ctx context.Context, data *table.Table) ([]float64, error)

	// Metadata describes the loaded artifact.
	Metadata() ModelMetadata
}
