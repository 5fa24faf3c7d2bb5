package ml

import "sort"

// FeatureImportance is the permutation importance of one input column: the
// drop in score when its values are shuffled across rows.
type FeatureImportance struct {
	Name            string  `json:"name"`
	PermutationDrop float64 `json:"permutation_drop"`
	// ImportanceScore is PermutationDrop clamped at zero.
	ImportanceScore float64 `json:"importance_score"`
}

// SortImportance orders features by importance, highest first. Ties keep
// name order so reports are stable.
func SortImportance(fi []FeatureImportance) {
	sort.SliceStable(fi, func(i, j int) bool {
		if fi[i].PermutationDrop != fi[j].PermutationDrop {
			return fi[i].PermutationDrop > fi[j].PermutationDrop
		}
		return fi[i].Name < fi[j].Name
	})
}

// TopFeatures returns the names of the n most important features.
func TopFeatures(fi []FeatureImportance, n int) []string {
	sorted := append([]FeatureImportance(nil), fi...)
	SortImportance(sorted)
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = sorted[i].Name
	}
	return out
}
