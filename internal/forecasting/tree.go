package forecasting

import (
	"math"
	"math/rand"
	"sort"
)

// Compact CART-style regression trees backing the ensemble's bagged and
// boosted learners. Splits greedily minimize squared error.

type treeNode struct {
	feature   int
	threshold float64
	value     float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) leaf() bool { return n.left == nil }

func (n *treeNode) predict(row []float64) float64 {
	for !n.leaf() {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

type treeParams struct {
	maxDepth    int
	minLeafSize int
}

func fitTree(X [][]float64, y []float64, idx []int, depth int, params treeParams) *treeNode {
	node := &treeNode{value: meanAt(y, idx)}
	if depth >= params.maxDepth || len(idx) < 2*params.minLeafSize {
		return node
	}

	bestFeature, bestThreshold, bestScore := -1, 0.0, math.Inf(1)
	nFeatures := len(X[0])

	for f := 0; f < nFeatures; f++ {
		sorted := make([]int, len(idx))
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return X[sorted[a]][f] < X[sorted[b]][f] })

		for s := params.minLeafSize; s <= len(sorted)-params.minLeafSize; s++ {
			if X[sorted[s-1]][f] == X[sorted[s]][f] {
				continue
			}
			score := sseAt(y, sorted[:s]) + sseAt(y, sorted[s:])
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = (X[sorted[s-1]][f] + X[sorted[s]][f]) / 2
			}
		}
	}

	if bestFeature < 0 {
		return node
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if X[i][bestFeature] <= bestThreshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) < params.minLeafSize || len(rightIdx) < params.minLeafSize {
		return node
	}

	node.feature = bestFeature
	node.threshold = bestThreshold
	node.left = fitTree(X, y, leftIdx, depth+1, params)
	node.right = fitTree(X, y, rightIdx, depth+1, params)
	return node
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

func sseAt(y []float64, idx []int) float64 {
	m := meanAt(y, idx)
	var ss float64
	for _, i := range idx {
		ss += (y[i] - m) * (y[i] - m)
	}
	return ss
}

// baggedTrees averages trees fit on bootstrap resamples.
type baggedTrees struct {
	trees []*treeNode
}

func fitBaggedTrees(X [][]float64, y []float64, nTrees int, rng *rand.Rand) *baggedTrees {
	params := treeParams{maxDepth: 3, minLeafSize: 5}
	n := len(y)
	bt := &baggedTrees{trees: make([]*treeNode, 0, nTrees)}
	for t := 0; t < nTrees; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		bt.trees = append(bt.trees, fitTree(X, y, idx, 0, params))
	}
	return bt
}

func (b *baggedTrees) predict(row []float64) float64 {
	var sum float64
	for _, t := range b.trees {
		sum += t.predict(row)
	}
	return sum / float64(len(b.trees))
}

// boostedTrees fits shallow trees on the running residual with a fixed
// learning rate.
type boostedTrees struct {
	base  float64
	rate  float64
	trees []*treeNode
}

func fitBoostedTrees(X [][]float64, y []float64, rounds int, rate float64) *boostedTrees {
	params := treeParams{maxDepth: 2, minLeafSize: 5}
	n := len(y)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	bt := &boostedTrees{base: mean(y), rate: rate}
	residual := make([]float64, n)
	for i := range y {
		residual[i] = y[i] - bt.base
	}

	for r := 0; r < rounds; r++ {
		tree := fitTree(X, residual, idx, 0, params)
		bt.trees = append(bt.trees, tree)
		for i := range residual {
			residual[i] -= rate * tree.predict(X[i])
		}
	}
	return bt
}

func (b *boostedTrees) predict(row []float64) float64 {
	v := b.base
	for _, t := range b.trees {
		v += b.rate * t.predict(row)
	}
	return v
}
