package ml

import (
	"fmt"
	"math"
	"sort"

	"churn-predictor/internal/table"

	"gonum.org/v1/gonum/stat"
)

// MaxLevels caps one-hot width per categorical feature; rarer levels encode
// like unseen ones.
const MaxLevels = 64

// FeatureSpec is the fitted encoding of one input column.
type FeatureSpec struct {
	Name string     `json:"name"`
	Kind table.Kind `json:"kind"`

	// numeric
	Fill float64 `json:"fill,omitempty"`
	Mean float64 `json:"mean,omitempty"`
	Std  float64 `json:"std,omitempty"`

	// categorical
	Levels    []string `json:"levels,omitempty"`
	FillLevel string   `json:"fill_level,omitempty"`
}

// Width is the number of encoded values the feature produces.
func (f FeatureSpec) Width() int {
	if f.Kind == table.Categorical {
		return len(f.Levels)
	}
	return 1
}

// Encoder maps table rows to dense feature vectors.
type Encoder struct {
	Features []FeatureSpec `json:"features"`
}

// FitEncoder learns fill values, scaling and category levels from t. Columns
// named in exclude are not features.
func FitEncoder(t *table.Table, exclude ...string) *Encoder {
	skip := make(map[string]struct{}, len(exclude))
	for _, c := range exclude {
		skip[c] = struct{}{}
	}

	enc := &Encoder{}
	for j, col := range t.Columns {
		if _, ok := skip[col.Name]; ok {
			continue
		}
		spec := FeatureSpec{Name: col.Name, Kind: col.Kind}
		if col.Kind == table.Numeric {
			fitNumeric(&spec, t.Rows, j)
		} else {
			fitCategorical(&spec, t.Rows, j)
		}
		enc.Features = append(enc.Features, spec)
	}
	return enc
}

func fitNumeric(spec *FeatureSpec, rows [][]table.Value, col int) {
	vals := make([]float64, 0, len(rows))
	for _, row := range rows {
		if v := row[col]; !v.Missing {
			vals = append(vals, v.Num)
		}
	}
	if len(vals) == 0 {
		spec.Std = 1
		return
	}
	spec.Fill = Median(vals)
	spec.Mean, spec.Std = stat.PopMeanStdDev(vals, nil)
	if spec.Std == 0 || math.IsNaN(spec.Std) {
		spec.Std = 1
	}
}

func fitCategorical(spec *FeatureSpec, rows [][]table.Value, col int) {
	counts := make(map[string]int)
	for _, row := range rows {
		if v := row[col]; !v.Missing {
			counts[v.Raw]++
		}
	}
	levels := make([]string, 0, len(counts))
	for l := range counts {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(a, b int) bool {
		if counts[levels[a]] != counts[levels[b]] {
			return counts[levels[a]] > counts[levels[b]]
		}
		return levels[a] < levels[b]
	})
	if len(levels) > 0 {
		spec.FillLevel = levels[0]
	}
	if len(levels) > MaxLevels {
		levels = levels[:MaxLevels]
	}
	sort.Strings(levels)
	spec.Levels = levels
}

// Width is the length of every encoded row.
func (e *Encoder) Width() int {
	w := 0
	for _, f := range e.Features {
		w += f.Width()
	}
	return w
}

// Names lists the feature columns.
func (e *Encoder) Names() []string {
	names := make([]string, len(e.Features))
	for i, f := range e.Features {
		names[i] = f.Name
	}
	return names
}

// Encode turns every row of t into a feature vector. Columns the encoder does
// not know are ignored; a feature column absent from t is an error.
func (e *Encoder) Encode(t *table.Table) ([][]float64, error) {
	idx := make([]int, len(e.Features))
	var missing []string
	for i, f := range e.Features {
		idx[i] = t.Index(f.Name)
		if idx[i] < 0 {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing feature columns %q", missing)
	}

	width := e.Width()
	out := make([][]float64, len(t.Rows))
	for r, row := range t.Rows {
		vec := make([]float64, width)
		off := 0
		for i, f := range e.Features {
			v := row[idx[i]]
			switch f.Kind {
			case table.Numeric:
				x := f.Fill
				if !v.Missing {
					if !v.IsNum {
						return nil, fmt.Errorf("column %q: non-numeric value %q at row %d", f.Name, v.Raw, r+1)
					}
					x = v.Num
				}
				vec[off] = (x - f.Mean) / f.Std
			case table.Categorical:
				level := f.FillLevel
				if !v.Missing {
					level = v.Raw
				}
				if k := sort.SearchStrings(f.Levels, level); k < len(f.Levels) && f.Levels[k] == level {
					vec[off+k] = 1
				}
			}
			off += f.Width()
		}
		out[r] = vec
	}
	return out, nil
}

// Median of vals, averaging the two middle values for even lengths. NaN for
// an empty slice.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
