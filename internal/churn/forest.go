package churn

import (
	"math"
	"math/rand"
)

// Ensemble parameters, fixed for reproducibility.
const (
	forestSize = 100
	forestSeed = 42
)

// Forest is a bagged ensemble of CART decision trees. Each tree trains
// on a bootstrap sample of the standardized feature matrix and considers
// a random sqrt(dim) feature subset at every split.
type Forest struct {
	Trees []*treeNode `json:"trees"`
}

// FitForest trains the ensemble on the standardized matrix and labels.
// Training is deterministic: each tree derives its RNG from the fixed
// seed and its own index.
func FitForest(x [][]float64, y []int) *Forest {
	mtry := int(math.Sqrt(float64(len(x[0]))))
	if mtry < 1 {
		mtry = 1
	}

	trees := make([]*treeNode, forestSize)
	for i := range trees {
		rng := rand.New(rand.NewSource(forestSeed + int64(i)))

		// Bootstrap sample with replacement, same size as the input.
		bx := make([][]float64, len(x))
		by := make([]int, len(y))
		for j := range bx {
			k := rng.Intn(len(x))
			bx[j] = x[k]
			by[j] = y[k]
		}

		trees[i] = buildTree(bx, by, rng, mtry, 0)
	}

	return &Forest{Trees: trees}
}

// PredictProba returns the churn probability for one standardized row:
// the mean of the per-tree leaf fractions.
func (f *Forest) PredictProba(row []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.predictProba(row)
	}
	return sum / float64(len(f.Trees))
}

// Predict returns the predicted class for one standardized row:
// churn when the averaged probability reaches 0.5.
func (f *Forest) Predict(row []float64) bool {
	return f.PredictProba(row) >= 0.5
}

// accuracy is the fraction of correct class predictions on a held-out
// partition. Returns 1 for an empty partition.
func (f *Forest) accuracy(x [][]float64, y []int) float64 {
	if len(y) == 0 {
		return 1
	}
	var correct int
	for i, row := range x {
		predicted := 0
		if f.Predict(row) {
			predicted = 1
		}
		if predicted == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}
