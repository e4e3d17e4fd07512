package churn

import "math/rand"

// splitSeed fixes the train/test shuffle for reproducible training runs.
const splitSeed = 42

// testFraction is the held-out share of the feature table.
const testFraction = 0.2

// trainTestSplit deterministically shuffles row indices and carves off
// the held-out partition. With fewer than two rows everything trains and
// the test set is empty.
func trainTestSplit(n int) (trainIdx, testIdx []int) {
	if n == 0 {
		return nil, nil
	}

	rng := rand.New(rand.NewSource(splitSeed))
	perm := rng.Perm(n)

	testCount := int(float64(n) * testFraction)
	if testCount == 0 && n > 1 {
		testCount = 1
	}

	testIdx = perm[:testCount]
	trainIdx = perm[testCount:]
	return trainIdx, testIdx
}

// selectRows gathers matrix rows by index.
func selectRows(m [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = m[j]
	}
	return out
}

// selectLabels gathers labels by index.
func selectLabels(labels []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = labels[j]
	}
	return out
}
