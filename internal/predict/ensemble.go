package predict

import (
	"signalist/internal/model"
	"signalist/internal/types"
)

// combine implements confidence-weighted soft voting. Each model's
// weight is its calibrated confidence times the probability of its top
// class, which avoids arbitrary tie-breaking between two disagreeing
// models. When both weights collapse to zero the vote degrades to a
// simple average.
func combine(nn, rf *types.Prediction) (types.Signal, float64) {
	nnWeight := nn.Confidence * maxProb(nn.Probabilities)
	rfWeight := rf.Confidence * maxProb(rf.Probabilities)
	total := nnWeight + rfWeight

	var combined [types.NumClasses]float64
	var confidence float64
	if total > 0 {
		for c := range combined {
			combined[c] = (nn.Probabilities[c]*nnWeight + rf.Probabilities[c]*rfWeight) / total
		}
		confidence = (nn.Confidence*nnWeight + rf.Confidence*rfWeight) / total
	} else {
		for c := range combined {
			combined[c] = (nn.Probabilities[c] + rf.Probabilities[c]) / 2
		}
		confidence = (nn.Confidence + rf.Confidence) / 2
	}

	class := model.Argmax(combined[:])
	return types.SignalFromClass(class), confidence
}

func maxProb(probs [types.NumClasses]float64) float64 {
	max := probs[0]
	for _, p := range probs {
		if p > max {
			max = p
		}
	}
	return max
}
