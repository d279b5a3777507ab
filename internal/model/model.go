// Package model holds the two classifiers behind the scoring pipeline:
// a small feed-forward network and a random forest. Both consume the
// normalized feature vectors from the features package and emit a class
// probability distribution over hold/buy/sell.
package model

import (
	"encoding/gob"
	"fmt"
	"io"

	"signalist/internal/mlerr"
)

// Kind identifies a classifier family. The value is embedded in
// artifact file names and metadata, so it must stay stable.
type Kind string

const (
	KindNeuralNetwork Kind = "neural_network"
	KindRandomForest  Kind = "random_forest"
)

func (k Kind) Valid() bool {
	return k == KindNeuralNetwork || k == KindRandomForest
}

// Classifier is a trained model ready for inference.
type Classifier interface {
	// PredictProba returns one probability per class for a single
	// feature vector. The slice length equals the class count the
	// model was trained with.
	PredictProba(features []float64) ([]float64, error)
	Kind() Kind
}

func init() {
	gob.Register(&Network{})
	gob.Register(&Forest{})
}

// Encode writes a classifier artifact in gob form.
func Encode(w io.Writer, c Classifier) error {
	if err := gob.NewEncoder(w).Encode(&c); err != nil {
		return fmt.Errorf("encode %s artifact: %w", c.Kind(), err)
	}
	return nil
}

// Decode reads a classifier artifact written by Encode. A payload that
// does not decode into a known classifier maps to ErrArtifactCorrupt so
// callers can fall back to another model.
func Decode(r io.Reader) (Classifier, error) {
	var c Classifier
	if err := gob.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", mlerr.ErrArtifactCorrupt, err)
	}
	if c == nil || !c.Kind().Valid() {
		return nil, fmt.Errorf("%w: unknown classifier kind", mlerr.ErrArtifactCorrupt)
	}
	return c, nil
}

// Argmax returns the class index with the highest probability. Ties
// resolve to the lowest index, which keeps hold ahead of buy and sell.
func Argmax(probs []float64) int {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}
