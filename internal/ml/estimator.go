package ml

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Estimator kinds as persisted in artifacts.
const (
	KindLinear   = "linear"
	KindTree     = "tree"
	KindEnsemble = "ensemble"
)

// Estimator scores one encoded row.
type Estimator interface {
	Predict(x []float64) float64
}

// LinearModel is intercept + w·x.
type LinearModel struct {
	Intercept float64   `json:"intercept"`
	Weights   []float64 `json:"weights"`
}

func (m *LinearModel) Predict(x []float64) float64 {
	if len(m.Weights) == 0 {
		return m.Intercept
	}
	return m.Intercept + floats.Dot(m.Weights, x)
}

// TreeNode is one node of a flattened regression tree. Leaves carry Value;
// internal nodes send x[Feature] <= Threshold to Left.
type TreeNode struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Value     float64 `json:"value"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
}

// RegressionTree stores nodes in a flat slice with the root at index 0.
type RegressionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t *RegressionTree) Predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Member is a weighted ensemble component.
type Member struct {
	Weight float64        `json:"weight"`
	Model  *EstimatorSpec `json:"model"`
}

// Ensemble is a weighted average of members; weights sum to 1.
type Ensemble struct {
	Members []Member `json:"members"`
}

func (e *Ensemble) Predict(x []float64) float64 {
	var sum float64
	for _, m := range e.Members {
		sum += m.Weight * m.Model.Predict(x)
	}
	return sum
}

// EstimatorSpec is the tagged, serialisable form of an estimator.
type EstimatorSpec struct {
	Name     string          `json:"name"`
	Kind     string          `json:"kind"`
	Linear   *LinearModel    `json:"linear,omitempty"`
	Tree     *RegressionTree `json:"tree,omitempty"`
	Ensemble *Ensemble       `json:"ensemble,omitempty"`
}

// Predict dispatches to the concrete estimator.
func (s *EstimatorSpec) Predict(x []float64) float64 {
	switch s.Kind {
	case KindLinear:
		return s.Linear.Predict(x)
	case KindTree:
		return s.Tree.Predict(x)
	case KindEnsemble:
		return s.Ensemble.Predict(x)
	}
	return 0
}

// Validate checks that the spec can be evaluated on rows of the given width.
func (s *EstimatorSpec) Validate(width int) error {
	switch s.Kind {
	case KindLinear:
		if s.Linear == nil {
			return fmt.Errorf("estimator %q: missing linear parameters", s.Name)
		}
		if n := len(s.Linear.Weights); n != 0 && n != width {
			return fmt.Errorf("estimator %q: %d weights for %d features", s.Name, n, width)
		}
	case KindTree:
		if s.Tree == nil || len(s.Tree.Nodes) == 0 {
			return fmt.Errorf("estimator %q: empty tree", s.Name)
		}
		for i, n := range s.Tree.Nodes {
			if n.Leaf {
				continue
			}
			if n.Feature < 0 || n.Feature >= width {
				return fmt.Errorf("estimator %q: node %d splits on feature %d of %d", s.Name, i, n.Feature, width)
			}
			if n.Left <= i || n.Right <= i || n.Left >= len(s.Tree.Nodes) || n.Right >= len(s.Tree.Nodes) {
				return fmt.Errorf("estimator %q: node %d has invalid children", s.Name, i)
			}
		}
	case KindEnsemble:
		if s.Ensemble == nil || len(s.Ensemble.Members) == 0 {
			return fmt.Errorf("estimator %q: empty ensemble", s.Name)
		}
		for _, m := range s.Ensemble.Members {
			if m.Model == nil {
				return fmt.Errorf("estimator %q: nil member", s.Name)
			}
			if err := m.Model.Validate(width); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("estimator %q: unknown kind %q", s.Name, s.Kind)
	}
	return nil
}
