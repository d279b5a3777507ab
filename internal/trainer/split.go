package trainer

import (
	"fmt"
	"math/rand"

	"signalist/internal/mlerr"
	"signalist/internal/types"
)

// dataset groups aligned features and labels.
type dataset struct {
	features [][]float64
	labels   []int
}

func (d dataset) len() int { return len(d.labels) }

func (d dataset) subset(idx []int) dataset {
	out := dataset{
		features: make([][]float64, len(idx)),
		labels:   make([]int, len(idx)),
	}
	for i, j := range idx {
		out.features[i] = d.features[j]
		out.labels[i] = d.labels[j]
	}
	return out
}

// stratifiedSplit shuffles each class independently and deals its
// samples 70/15/15 into train, validation and test, so all three splits
// keep the class balance of the full set. Every class that appears
// needs at least three samples, one per split.
func stratifiedSplit(d dataset, seed int64) (train, val, test dataset, err error) {
	byClass := make(map[int][]int)
	for i, label := range d.labels {
		byClass[label] = append(byClass[label], i)
	}
	for class, idx := range byClass {
		if len(idx) < 3 {
			return train, val, test, fmt.Errorf(
				"%w: class %s has %d samples, stratified split needs at least 3",
				mlerr.ErrInvalidInput, types.SignalFromClass(class), len(idx))
		}
	}

	rng := rand.New(rand.NewSource(seed))
	var trainIdx, valIdx, testIdx []int
	for class := 0; class < types.NumClasses; class++ {
		idx := byClass[class]
		if len(idx) == 0 {
			continue
		}
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTrain := (len(idx) * 70) / 100
		nVal := (len(idx) * 15) / 100
		if nTrain == 0 {
			nTrain = 1
		}
		if nVal == 0 {
			nVal = 1
		}
		if nTrain+nVal >= len(idx) {
			nTrain = len(idx) - 2
			nVal = 1
		}
		trainIdx = append(trainIdx, idx[:nTrain]...)
		valIdx = append(valIdx, idx[nTrain:nTrain+nVal]...)
		testIdx = append(testIdx, idx[nTrain+nVal:]...)
	}

	return d.subset(trainIdx), d.subset(valIdx), d.subset(testIdx), nil
}
