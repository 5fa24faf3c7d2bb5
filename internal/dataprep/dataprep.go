// Package dataprep cleans a labeled dataset before model search: sparse
// column removal, missing value imputation, and a seeded train/test split.
package dataprep

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"churn-predictor/internal/common"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/table"

	"github.com/rs/zerolog/log"
)

// DropSparseColumns keeps columns with at least threshold*n non-missing cells.
// It returns the cleaned table and the names of the dropped columns.
func DropSparseColumns(t *table.Table, threshold float64) (*table.Table, []string) {
	need := threshold * float64(t.Len())

	var dropped []string
	for j, col := range t.Columns {
		present := 0
		for _, row := range t.Rows {
			if !row[j].Missing {
				present++
			}
		}
		if float64(present) < need {
			dropped = append(dropped, col.Name)
		}
	}

	if len(dropped) > 0 {
		log.Info().Strs("columns", dropped).Float64("threshold", threshold).Msg("dropping sparse columns")
	}
	return t.Drop(dropped...), dropped
}

// Impute fills missing cells in place: numeric columns with the column
// median, categorical columns with the most frequent value. Ties between
// modes go to the lexicographically smallest value; a categorical column
// with no values at all is filled with "Unknown".
func Impute(t *table.Table) {
	for j, col := range t.Columns {
		var fill table.Value
		switch col.Kind {
		case table.Numeric:
			vals := make([]float64, 0, len(t.Rows))
			for _, row := range t.Rows {
				if !row[j].Missing {
					vals = append(vals, row[j].Num)
				}
			}
			if len(vals) == 0 {
				// Nothing to take a median of; the column stays missing.
				continue
			}
			fill = table.Number(ml.Median(vals))
		case table.Categorical:
			fill = table.Text(Mode(t.Rows, j))
		}

		filled := 0
		for _, row := range t.Rows {
			if row[j].Missing {
				row[j] = fill
				filled++
			}
		}
		if filled > 0 {
			log.Debug().Str("column", col.Name).Int("filled", filled).Str("value", fill.String()).Msg("imputed missing values")
		}
	}
}

// Mode is the most frequent non-missing raw value of column j.
func Mode(rows [][]table.Value, j int) string {
	counts := make(map[string]int)
	for _, row := range rows {
		if !row[j].Missing {
			counts[row[j].Raw]++
		}
	}
	if len(counts) == 0 {
		return common.UnknownCategory
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

// TrainTestSplit samples round(trainFrac*n) rows for training using a
// seeded shuffle; the remaining rows, in original order, form the test set.
func TrainTestSplit(t *table.Table, trainFrac float64, seed uint64) (train, test *table.Table, err error) {
	if trainFrac <= 0 || trainFrac >= 1 {
		return nil, nil, fmt.Errorf("train fraction must be in (0, 1), got %v", trainFrac)
	}
	trainIdx, testIdx := SplitIndices(t.Len(), trainFrac, seed)
	return t.SelectRows(trainIdx), t.SelectRows(testIdx), nil
}

// SplitIndices returns a seeded random sample of round(frac*n) indices and
// the sorted complement.
func SplitIndices(n int, frac float64, seed uint64) (sample, rest []int) {
	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)

	k := int(math.Round(frac * float64(n)))
	sample = append([]int(nil), perm[:k]...)
	rest = append([]int(nil), perm[k:]...)
	sort.Ints(rest)
	return sample, rest
}
