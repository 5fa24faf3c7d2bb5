package automl

import (
	"churn-predictor/internal/ml"
)

// EnsembleName is the leaderboard name of the greedy weighted ensemble.
const EnsembleName = "WeightedEnsemble"

// buildEnsemble runs greedy forward selection with replacement over the
// candidates' validation predictions and keeps the best-scoring prefix.
// Member weights are selection counts normalised to sum to 1.
func buildEnsemble(cands []*candidate, actual []float64, rounds int) (*ml.EstimatorSpec, float64) {
	if len(cands) == 0 || rounds < 1 {
		return nil, 0
	}

	n := len(actual)
	sum := make([]float64, n)
	blend := make([]float64, n)
	counts := make([]int, len(cands))

	bestScore := 0.0
	var bestCounts []int

	for r := 1; r <= rounds; r++ {
		pick, pickScore := -1, 0.0
		for c, cand := range cands {
			for i := range blend {
				blend[i] = (sum[i] + cand.valPred[i]) / float64(r)
			}
			if s := R2(blend, actual); pick < 0 || s > pickScore {
				pick, pickScore = c, s
			}
		}

		counts[pick]++
		for i := range sum {
			sum[i] += cands[pick].valPred[i]
		}
		if bestCounts == nil || pickScore > bestScore {
			bestScore = pickScore
			bestCounts = append([]int(nil), counts...)
		}
	}

	total := 0
	for _, c := range bestCounts {
		total += c
	}
	spec := &ml.EstimatorSpec{Name: EnsembleName, Kind: ml.KindEnsemble, Ensemble: &ml.Ensemble{}}
	for c, k := range bestCounts {
		if k == 0 {
			continue
		}
		spec.Ensemble.Members = append(spec.Ensemble.Members, ml.Member{
			Weight: float64(k) / float64(total),
			Model:  cands[c].spec,
		})
	}
	return spec, bestScore
}
