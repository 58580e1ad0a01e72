package forecast

// Gradient-boosted regression trees. Fits are fully deterministic: no row
// or feature subsampling, so identical inputs always yield identical
// forecasts.

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (t *treeNode) predict(x []float64) float64 {
	n := t
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// buildTree grows a regression tree greedily by SSE reduction.
func buildTree(X [][]float64, y []float64, depth, maxDepth, minLeaf int) *treeNode {
	if depth >= maxDepth || len(y) < 2*minLeaf || allEqual(y) {
		return &treeNode{leaf: true, value: mean(y)}
	}

	bestFeature, bestThreshold, bestScore := -1, 0.0, sse(y)
	var bestLeft, bestRight []int

	nFeatures := len(X[0])
	for f := 0; f < nFeatures; f++ {
		thresholds := candidateThresholds(X, f)
		for _, th := range thresholds {
			var left, right []int
			for i := range X {
				if X[i][f] <= th {
					left = append(left, i)
				} else {
					right = append(right, i)
				}
			}
			if len(left) < minLeaf || len(right) < minLeaf {
				continue
			}
			score := sseSubset(y, left) + sseSubset(y, right)
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = th
				bestLeft, bestRight = left, right
			}
		}
	}

	if bestFeature < 0 {
		return &treeNode{leaf: true, value: mean(y)}
	}

	return &treeNode{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      buildTree(subsetX(X, bestLeft), subsetY(y, bestLeft), depth+1, maxDepth, minLeaf),
		right:     buildTree(subsetX(X, bestRight), subsetY(y, bestRight), depth+1, maxDepth, minLeaf),
	}
}

// candidateThresholds are midpoints between consecutive distinct values.
func candidateThresholds(X [][]float64, f int) []float64 {
	values := make([]float64, 0, len(X))
	for i := range X {
		values = append(values, X[i][f])
	}
	sortFloats(values)
	var out []float64
	for i := 1; i < len(values); i++ {
		if values[i] != values[i-1] {
			out = append(out, (values[i]+values[i-1])/2)
		}
	}
	return out
}

func sortFloats(xs []float64) {
	// insertion sort; rows per fit are small
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}

func sse(y []float64) float64 {
	m := mean(y)
	s := 0.0
	for _, v := range y {
		d := v - m
		s += d * d
	}
	return s
}

func sseSubset(y []float64, idx []int) float64 {
	sub := subsetY(y, idx)
	return sse(sub)
}

func subsetX(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func subsetY(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}

func allEqual(y []float64) bool {
	for i := 1; i < len(y); i++ {
		if y[i] != y[0] {
			return false
		}
	}
	return true
}

// gbrt is a gradient-boosted ensemble over regression trees with squared
// loss: each stage fits the residual of the running prediction.
type gbrt struct {
	base  float64
	rate  float64
	trees []*treeNode
}

type gbrtParams struct {
	nTrees   int
	maxDepth int
	rate     float64
	minLeaf  int
}

func trainGBRT(X [][]float64, y []float64, p gbrtParams) *gbrt {
	model := &gbrt{base: mean(y), rate: p.rate}

	current := make([]float64, len(y))
	for i := range current {
		current[i] = model.base
	}

	resid := make([]float64, len(y))
	for t := 0; t < p.nTrees; t++ {
		for i := range y {
			resid[i] = y[i] - current[i]
		}
		tree := buildTree(X, resid, 0, p.maxDepth, p.minLeaf)
		model.trees = append(model.trees, tree)
		for i := range current {
			current[i] += p.rate * tree.predict(X[i])
		}
	}
	return model
}

func (m *gbrt) predict(x []float64) float64 {
	out := m.base
	for _, t := range m.trees {
		out += m.rate * t.predict(x)
	}
	return out
}
