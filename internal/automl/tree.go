package automl

import (
	"sort"

	"churn-predictor/internal/ml"
)

// treeParams configures CART regression tree growth.
type treeParams struct {
	MaxDepth       int
	MinSamplesLeaf int
}

// fitTree grows a regression tree that minimises squared error. Nodes are
// appended depth-first so children always follow their parent.
func fitTree(x [][]float64, y []float64, params treeParams) *ml.RegressionTree {
	if params.MinSamplesLeaf < 1 {
		params.MinSamplesLeaf = 1
	}
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	b := &treeBuilder{x: x, y: y, params: params}
	b.build(idx, 0)
	return &ml.RegressionTree{Nodes: b.nodes}
}

type treeBuilder struct {
	x      [][]float64
	y      []float64
	params treeParams
	nodes  []ml.TreeNode
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

func (b *treeBuilder) build(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, ml.TreeNode{Leaf: true, Value: b.mean(idx)})

	if depth >= b.params.MaxDepth || len(idx) < 2*b.params.MinSamplesLeaf {
		return id
	}

	best, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	left := b.build(best.left, depth+1)
	right := b.build(best.right, depth+1)
	b.nodes[id] = ml.TreeNode{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      left,
		Right:     right,
		Value:     b.nodes[id].Value,
	}
	return id
}

func (b *treeBuilder) mean(idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var s float64
	for _, i := range idx {
		s += b.y[i]
	}
	return s / float64(len(idx))
}

// bestSplit scans every feature for the threshold with the largest reduction
// in sum of squared errors.
func (b *treeBuilder) bestSplit(idx []int) (split, bool) {
	n := len(idx)
	var total, totalSq float64
	for _, i := range idx {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	parentSSE := totalSq - total*total/float64(n)

	best := split{feature: -1}
	order := make([]int, n)
	minLeaf := b.params.MinSamplesLeaf

	for f := range b.x[idx[0]] {
		copy(order, idx)
		sort.Slice(order, func(a, c int) bool { return b.x[order[a]][f] < b.x[order[c]][f] })

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			yi := b.y[order[k]]
			leftSum += yi
			leftSq += yi * yi

			nl := k + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			lo, hi := b.x[order[k]][f], b.x[order[k+1]][f]
			if lo == hi {
				continue
			}

			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if gain := parentSSE - sse; gain > best.gain+1e-12 {
				best.feature = f
				best.threshold = (lo + hi) / 2
				best.gain = gain
			}
		}
	}

	if best.feature < 0 {
		return best, false
	}
	for _, i := range idx {
		if b.x[i][best.feature] <= best.threshold {
			best.left = append(best.left, i)
		} else {
			best.right = append(best.right, i)
		}
	}
	return best, true
}
