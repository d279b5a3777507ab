// Package mlerr defines the failure taxonomy shared by the scoring
// pipeline. Callers branch with errors.Is; messages are built with
// fmt.Errorf("%w: ...") at the raising site.
package mlerr

import "errors"

var (
	// ErrInvalidInput marks malformed input shape or range (wrong feature
	// vector length, confidence outside [0,1]). Never coerced silently.
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelNotLoaded marks inference against a model kind that was never
	// loaded. The ensemble combiner may catch it to degrade to one model.
	ErrModelNotLoaded = errors.New("model not loaded")

	// ErrFeatureEngineering marks a failure to build a usable feature
	// vector from the available history. Recovered at the per-candidate
	// boundary in the recommender.
	ErrFeatureEngineering = errors.New("feature engineering failed")

	// ErrInference marks a model raising during prediction. Fatal only if
	// no other model remains usable.
	ErrInference = errors.New("inference failed")

	// ErrArtifactNotFound marks a missing model or metadata file. Messages
	// carry the fully qualified path.
	ErrArtifactNotFound = errors.New("model artifact not found")

	// ErrArtifactCorrupt marks an artifact that exists but fails to
	// deserialize, or metadata missing required fields.
	ErrArtifactCorrupt = errors.New("model artifact corrupt")
)
