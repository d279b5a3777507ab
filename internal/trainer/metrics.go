package trainer

import (
	"signalist/internal/registry"
	"signalist/internal/types"
)

// evaluate computes accuracy and support-weighted precision, recall and
// F1 over predicted vs true classes. Classes with no predictions score
// zero precision rather than dividing by zero.
func evaluate(predicted, truth []int) registry.Metrics {
	if len(truth) == 0 || len(predicted) != len(truth) {
		return registry.Metrics{}
	}

	var tp, fp, fn [types.NumClasses]float64
	correct := 0
	for i, want := range truth {
		got := predicted[i]
		if got == want {
			correct++
			tp[want]++
		} else {
			fp[got]++
			fn[want]++
		}
	}

	support := make([]float64, types.NumClasses)
	for _, want := range truth {
		support[want]++
	}

	var precision, recall, f1 float64
	total := float64(len(truth))
	for c := 0; c < types.NumClasses; c++ {
		if support[c] == 0 {
			continue
		}
		var p, r float64
		if tp[c]+fp[c] > 0 {
			p = tp[c] / (tp[c] + fp[c])
		}
		if tp[c]+fn[c] > 0 {
			r = tp[c] / (tp[c] + fn[c])
		}
		var f float64
		if p+r > 0 {
			f = 2 * p * r / (p + r)
		}
		weight := support[c] / total
		precision += p * weight
		recall += r * weight
		f1 += f * weight
	}

	return registry.Metrics{
		Accuracy:  float64(correct) / total,
		Precision: precision,
		Recall:    recall,
		F1Score:   f1,
	}
}
