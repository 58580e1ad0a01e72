package anomaly

import (
	"math"
	"math/rand"
)

// Isolation forest with a fixed seed: identical inputs always produce
// identical anomaly sets.
const (
	forestTrees      = 100
	forestSampleSize = 256
	forestSeed       = 42
)

type isoNode struct {
	leaf      bool
	size      int
	feature   int
	threshold float64
	left      *isoNode
	right     *isoNode
}

type isolationForest struct {
	trees        []*isoNode
	sampleSize   int
	fittedSample int
	nTrees       int
	rng          *rand.Rand
}

func newIsolationForest(nTrees, sampleSize int, seed int64) *isolationForest {
	return &isolationForest{
		nTrees:     nTrees,
		sampleSize: sampleSize,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func (f *isolationForest) fit(X [][]float64) {
	sample := f.sampleSize
	if sample > len(X) {
		sample = len(X)
	}
	f.fittedSample = sample
	maxDepth := int(math.Ceil(math.Log2(float64(sample) + 1)))

	f.trees = make([]*isoNode, 0, f.nTrees)
	for t := 0; t < f.nTrees; t++ {
		idx := f.rng.Perm(len(X))[:sample]
		sub := make([][]float64, sample)
		for i, j := range idx {
			sub[i] = X[j]
		}
		f.trees = append(f.trees, f.buildTree(sub, 0, maxDepth))
	}
}

func (f *isolationForest) buildTree(X [][]float64, depth, maxDepth int) *isoNode {
	if depth >= maxDepth || len(X) <= 1 {
		return &isoNode{leaf: true, size: len(X)}
	}

	feature := f.rng.Intn(len(X[0]))
	lo, hi := X[0][feature], X[0][feature]
	for _, x := range X {
		if x[feature] < lo {
			lo = x[feature]
		}
		if x[feature] > hi {
			hi = x[feature]
		}
	}
	if lo == hi {
		return &isoNode{leaf: true, size: len(X)}
	}
	threshold := lo + f.rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, x := range X {
		if x[feature] < threshold {
			left = append(left, x)
		} else {
			right = append(right, x)
		}
	}

	return &isoNode{
		feature:   feature,
		threshold: threshold,
		left:      f.buildTree(left, depth+1, maxDepth),
		right:     f.buildTree(right, depth+1, maxDepth),
	}
}

// pathLength follows x down the tree, adding the average-path adjustment
// at multi-point leaves.
func pathLength(n *isoNode, x []float64, depth float64) float64 {
	if n.leaf {
		return depth + avgPathLength(n.size)
	}
	if x[n.feature] < n.threshold {
		return pathLength(n.left, x, depth+1)
	}
	return pathLength(n.right, x, depth+1)
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search over n points.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649 // harmonic approximation
	return 2*h - 2*float64(n-1)/float64(n)
}

// score maps the mean path length to (0,1]; higher is more anomalous.
func (f *isolationForest) score(x []float64) float64 {
	if len(f.trees) == 0 {
		return 0
	}
	total := 0.0
	for _, t := range f.trees {
		total += pathLength(t, x, 0)
	}
	avg := total / float64(len(f.trees))
	c := avgPathLength(f.fittedSample)
	if c == 0 {
		return 0
	}
	return math.Pow(2, -avg/c)
}
