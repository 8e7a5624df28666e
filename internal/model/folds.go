package model

import (
	"fmt"
	"math/rand"
)

// AssignFolds gives every row a fold number in 1..k, stratified by label:
// each class is shuffled and dealt round-robin so the class balance
// carries into every fold. The same rng state always yields the same
// assignment.
func AssignFolds(labels []int, k int, rng *rand.Rand) ([]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("%w: need at least 2 folds, got %d", ErrFit, k)
	}
	if len(labels) < k {
		return nil, fmt.Errorf("%w: cannot split %d rows into %d folds", ErrFit, len(labels), k)
	}

	folds := make([]int, len(labels))
	for _, class := range []int{1, 0} {
		var indices []int
		for i, label := range labels {
			if label == class {
				indices = append(indices, i)
			}
		}
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		for position, row := range indices {
			folds[row] = position%k + 1
		}
	}
	return folds, nil
}

// Split partitions row indices into training rows and the rows of the
// held-out fold.
func Split(folds []int, testFold int) (train, test []int) {
	for row, fold := range folds {
		if fold == testFold {
			test = append(test, row)
		} else {
			train = append(train, row)
		}
	}
	return train, test
}
