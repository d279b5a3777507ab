package registry

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"signalist/internal/mlerr"
	"signalist/internal/model"
)

// Metrics are the evaluation results recorded at training time. RSquared
// stays a pointer because the classifiers never produce it; confidence
// calibration falls back to accuracy when it is absent.
type Metrics struct {
	Accuracy  float64  `json:"accuracy"`
	Precision float64  `json:"precision"`
	Recall    float64  `json:"recall"`
	F1Score   float64  `json:"f1_score"`
	RSquared  *float64 `json:"r_squared,omitempty"`
}

// Metadata describes a stored model artifact.
type Metadata struct {
	ModelType    model.Kind `json:"model_type"`
	Version      string     `json:"version"`
	InputSize    int        `json:"input_size"`
	NumClasses   int        `json:"num_classes"`
	HiddenSize1  int        `json:"hidden_size1,omitempty"`
	HiddenSize2  int        `json:"hidden_size2,omitempty"`
	NumTrees     int        `json:"num_trees,omitempty"`
	MaxDepth     int        `json:"max_depth,omitempty"`
	TrainingDate time.Time  `json:"training_date"`
	Metrics      Metrics    `json:"metrics"`
}

const metadataSchema = `{
	"type": "object",
	"required": ["model_type", "version", "input_size", "num_classes", "training_date", "metrics"],
	"properties": {
		"model_type": {"type": "string", "enum": ["neural_network", "random_forest"]},
		"version": {"type": "string", "minLength": 1},
		"input_size": {"type": "integer", "minimum": 1},
		"num_classes": {"type": "integer", "minimum": 2},
		"hidden_size1": {"type": "integer", "minimum": 0},
		"hidden_size2": {"type": "integer", "minimum": 0},
		"num_trees": {"type": "integer", "minimum": 0},
		"max_depth": {"type": "integer", "minimum": 0},
		"training_date": {"type": "string"},
		"metrics": {
			"type": "object",
			"required": ["accuracy"],
			"properties": {
				"accuracy": {"type": "number", "minimum": 0, "maximum": 1},
				"precision": {"type": "number", "minimum": 0, "maximum": 1},
				"recall": {"type": "number", "minimum": 0, "maximum": 1},
				"f1_score": {"type": "number", "minimum": 0, "maximum": 1},
				"r_squared": {"type": "number"}
			}
		}
	}
}`

var compiledMetadataSchema = jsonschema.MustCompileString("metadata.json", metadataSchema)

// parseMetadata validates the raw document against the artifact schema
// before unmarshalling. Any failure maps to ErrArtifactCorrupt so
// callers treat a bad metadata file the same as a bad model binary.
func parseMetadata(raw []byte) (Metadata, error) {
	doc := strings.TrimSpace(string(raw))
	if doc == "" || !gjson.Valid(doc) {
		return Metadata{}, fmt.Errorf("%w: metadata is not valid JSON", mlerr.ErrArtifactCorrupt)
	}

	var generic any
	if err := json.Unmarshal([]byte(doc), &generic); err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", mlerr.ErrArtifactCorrupt, err)
	}
	if err := compiledMetadataSchema.Validate(generic); err != nil {
		return Metadata{}, fmt.Errorf("%w: metadata schema: %v", mlerr.ErrArtifactCorrupt, err)
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(doc), &meta); err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", mlerr.ErrArtifactCorrupt, err)
	}
	if !meta.ModelType.Valid() {
		return Metadata{}, fmt.Errorf("%w: unknown model_type %q", mlerr.ErrArtifactCorrupt, gjson.Get(doc, "model_type").String())
	}
	return meta, nil
}

func encodeMetadata(meta Metadata) ([]byte, error) {
	return json.MarshalIndent(meta, "", "  ")
}
