package churn

import (
	"math/rand"
	"sort"
)

// Tree growth limits. The feature table is small (one row per rider), so
// a modest depth cap keeps trees honest without pruning machinery.
const (
	maxTreeDepth    = 16
	minSamplesSplit = 2
)

// treeNode is one node of a CART decision tree. Feature -1 marks a leaf;
// internal nodes route rows with value <= Threshold left, else right.
type treeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold,omitempty"`
	Prob      float64   `json:"prob"` // churn fraction of training rows at this node
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
}

// buildTree grows a tree on the given rows. At each split a random
// subset of mtry feature indices is considered, which decorrelates the
// trees of the ensemble.
func buildTree(x [][]float64, y []int, rng *rand.Rand, mtry, depth int) *treeNode {
	node := &treeNode{Feature: -1, Prob: churnFraction(y)}

	if len(y) < minSamplesSplit || depth >= maxTreeDepth || isPure(y) {
		return node
	}

	feature, threshold, ok := bestSplit(x, y, rng, mtry)
	if !ok {
		return node
	}

	leftX, leftY, rightX, rightY := partition(x, y, feature, threshold)
	if len(leftY) == 0 || len(rightY) == 0 {
		return node
	}

	node.Feature = feature
	node.Threshold = threshold
	node.Left = buildTree(leftX, leftY, rng, mtry, depth+1)
	node.Right = buildTree(rightX, rightY, rng, mtry, depth+1)
	return node
}

// predictProba walks the tree and returns the leaf churn fraction.
func (n *treeNode) predictProba(row []float64) float64 {
	node := n
	for node.Feature >= 0 {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Prob
}

// bestSplit searches a random feature subset for the split with the
// lowest weighted gini impurity. Returns ok=false when nothing improves
// on the parent.
func bestSplit(x [][]float64, y []int, rng *rand.Rand, mtry int) (feature int, threshold float64, ok bool) {
	dim := len(x[0])
	if mtry > dim {
		mtry = dim
	}

	candidates := rng.Perm(dim)[:mtry]
	sort.Ints(candidates)

	parent := gini(y)
	best := parent
	for _, f := range candidates {
		values := make([]float64, len(x))
		for i, row := range x {
			values[i] = row[f]
		}
		sort.Float64s(values)

		for i := 1; i < len(values); i++ {
			if values[i] == values[i-1] {
				continue
			}
			t := (values[i] + values[i-1]) / 2

			var leftY, rightY []int
			for j, row := range x {
				if row[f] <= t {
					leftY = append(leftY, y[j])
				} else {
					rightY = append(rightY, y[j])
				}
			}

			weighted := (float64(len(leftY))*gini(leftY) + float64(len(rightY))*gini(rightY)) / float64(len(y))
			if weighted < best {
				best = weighted
				feature = f
				threshold = t
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func partition(x [][]float64, y []int, feature int, threshold float64) (leftX [][]float64, leftY []int, rightX [][]float64, rightY []int) {
	for i, row := range x {
		if row[feature] <= threshold {
			leftX = append(leftX, row)
			leftY = append(leftY, y[i])
		} else {
			rightX = append(rightX, row)
			rightY = append(rightY, y[i])
		}
	}
	return leftX, leftY, rightX, rightY
}

// gini computes binary gini impurity.
func gini(y []int) float64 {
	if len(y) == 0 {
		return 0
	}
	p := churnFraction(y)
	return 2 * p * (1 - p)
}

func churnFraction(y []int) float64 {
	if len(y) == 0 {
		return 0
	}
	var churned int
	for _, v := range y {
		if v == 1 {
			churned++
		}
	}
	return float64(churned) / float64(len(y))
}

func isPure(y []int) bool {
	for _, v := range y[1:] {
		if v != y[0] {
			return false
		}
	}
	return true
}
