package automl

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"churn-predictor/internal/ml"
	"churn-predictor/internal/table"
)

// PermutationImportance shuffles each feature column of t in turn and records
// how much the R² of a's predictions drops. t must hold the target column.
// Fewer than two rows yield no result.
func PermutationImportance(ctx context.Context, a *ml.Artifact, t *table.Table, target string, seed uint64) ([]ml.FeatureImportance, error) {
	if t.Len() < 2 {
		return nil, nil
	}
	actual, err := t.Float(target)
	if err != nil {
		return nil, err
	}
	features := t.Drop(target)

	pred, err := a.PredictTable(features)
	if err != nil {
		return nil, err
	}
	baseline := R2(pred, actual)

	rng := rand.New(rand.NewPCG(seed, seed))
	out := make([]ml.FeatureImportance, 0, len(a.Encoder.Features))
	for _, f := range a.Encoder.Features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		j := features.Index(f.Name)
		if j < 0 {
			return nil, fmt.Errorf("feature %q not in table", f.Name)
		}

		shuffled := features.Clone()
		perm := rng.Perm(features.Len())
		for i, row := range shuffled.Rows {
			row[j] = features.Rows[perm[i]][j]
		}
		permPred, err := a.PredictTable(shuffled)
		if err != nil {
			return nil, err
		}

		drop := baseline - R2(permPred, actual)
		out = append(out, ml.FeatureImportance{
			Name:            f.Name,
			PermutationDrop: drop,
			ImportanceScore: math.Max(0, drop),
		})
	}

	ml.SortImportance(out)
	return out, nil
}
