// Package predict runs the dual-model inference path: each available
// classifier scores a feature vector, confidence is calibrated from the
// model's recorded metrics, and an ensemble combiner merges the two
// outputs when both are present.
package predict

import (
	"context"
	"fmt"
	"time"

	"signalist/internal/features"
	"signalist/internal/logger"
	"signalist/internal/mlerr"
	"signalist/internal/model"
	"signalist/internal/registry"
	"signalist/internal/types"
)

// Result is the outcome of scoring one symbol.
type Result struct {
	Signal        types.Signal      `json:"signal"`
	Confidence    float64           `json:"confidence_score"`
	ModelUsed     string            `json:"model_used"`
	Latency       time.Duration     `json:"-"`
	NeuralNetwork *types.Prediction `json:"neural_network_prediction,omitempty"`
	RandomForest  *types.Prediction `json:"random_forest_prediction,omitempty"`
}

// Engine resolves models from the registry manager per call, so a
// reload after training is picked up without restarting.
type Engine struct {
	models *registry.Manager
}

func NewEngine(models *registry.Manager) *Engine {
	return &Engine{models: models}
}

// Predict scores a single normalized feature vector. With useEnsemble
// both models vote weighted by confidence; otherwise, or when only one
// model is loaded, the single available model decides. One model
// failing is tolerated as long as the other answers.
func (e *Engine) Predict(ctx context.Context, vector []float64, useEnsemble bool) (*Result, error) {
	start := time.Now()
	if len(vector) != features.Count {
		return nil, fmt.Errorf("%w: feature vector width %d, want %d", mlerr.ErrInvalidInput, len(vector), features.Count)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !e.models.Loaded() {
		return nil, fmt.Errorf("%w: no models loaded", mlerr.ErrModelNotLoaded)
	}

	nn := e.runModel(model.KindNeuralNetwork, vector)
	rf := e.runModel(model.KindRandomForest, vector)
	if nn == nil && rf == nil {
		return nil, fmt.Errorf("%w: all model inferences failed", mlerr.ErrInference)
	}

	result := &Result{NeuralNetwork: nn, RandomForest: rf}
	switch {
	case useEnsemble && nn != nil && rf != nil:
		result.Signal, result.Confidence = combine(nn, rf)
		result.ModelUsed = "ensemble"
	case nn != nil:
		result.Signal, result.Confidence = nn.Signal, nn.Confidence
		result.ModelUsed = string(model.KindNeuralNetwork)
	default:
		result.Signal, result.Confidence = rf.Signal, rf.Confidence
		result.ModelUsed = string(model.KindRandomForest)
	}

	result.Latency = time.Since(start)
	logger.Infof("inference completed: signal=%s, confidence=%.3f, model=%s, latency=%s",
		result.Signal, result.Confidence, result.ModelUsed, result.Latency)
	return result, nil
}

// runModel scores with one model kind, returning nil when the model is
// absent or fails. Failures of a single model are logged, not fatal.
func (e *Engine) runModel(kind model.Kind, vector []float64) *types.Prediction {
	c, meta, ok := e.models.Get(kind)
	if !ok {
		return nil
	}
	probs, err := c.PredictProba(vector)
	if err != nil {
		logger.Errorf("%s inference failed: %v", kind, err)
		return nil
	}
	if len(probs) != types.NumClasses {
		logger.Errorf("%s returned %d class probabilities, want %d", kind, len(probs), types.NumClasses)
		return nil
	}

	class := model.Argmax(probs)
	p := &types.Prediction{
		Signal:    types.SignalFromClass(class),
		Class:     class,
		ModelUsed: string(kind),
	}
	copy(p.Probabilities[:], probs)
	p.Confidence = Confidence(meta.Metrics, probs[class])
	return p
}

// Confidence calibrates a raw class probability into [0, 1] using the
// model's stored evaluation metrics. R squared is preferred when the
// trainer recorded it, otherwise accuracy; a model with no usable
// metrics gets the neutral 0.5 base. The probability scales the base
// through a [0.5, 1.0] multiplier so a certain prediction never doubles
// a weak model's standing.
func Confidence(metrics registry.Metrics, maxProb float64) float64 {
	base := 0.5
	switch {
	case metrics.RSquared != nil:
		base = *metrics.RSquared
	case metrics.Accuracy > 0:
		base = metrics.Accuracy
	}
	confidence := base * (0.5 + maxProb*0.5)
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
