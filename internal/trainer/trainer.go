// Package trainer orchestrates a full training run: load history from
// the store, engineer features and labels, split, fit both model
// families, evaluate, persist artifacts and reload the registry.
package trainer

import (
	"context"
	"fmt"
	"time"

	"signalist/internal/config"
	"signalist/internal/features"
	"signalist/internal/logger"
	"signalist/internal/mlerr"
	"signalist/internal/model"
	"signalist/internal/registry"
	"signalist/internal/store"
	"signalist/internal/types"
)

// Result summarizes one completed training run.
type Result struct {
	Version       string            `json:"version"`
	TrainingDate  time.Time         `json:"training_date"`
	DatasetSize   int               `json:"dataset_size"`
	FeatureCount  int               `json:"feature_count"`
	NeuralNetwork *registry.Metrics `json:"neural_network,omitempty"`
	RandomForest  *registry.Metrics `json:"random_forest,omitempty"`
}

type Trainer struct {
	store  store.Store
	models *registry.Manager
	runLog *RunLog
	cfg    config.MLConfig
}

func New(st store.Store, models *registry.Manager, runLog *RunLog, cfg config.MLConfig) *Trainer {
	return &Trainer{store: st, models: models, runLog: runLog, cfg: cfg}
}

// Train runs the whole pipeline over history in [from, to]. The run is
// recorded in the run log whether it succeeds or fails.
func (t *Trainer) Train(ctx context.Context, from, to time.Time) (*Result, error) {
	started := time.Now().UTC()
	version := registry.NewVersion()
	logger.Infof("starting training run %s over %s .. %s", version, from.Format(time.RFC3339), to.Format(time.RFC3339))

	result, err := t.train(ctx, version, from, to)
	t.record(ctx, version, from, to, started, result, err)
	if err != nil {
		logger.Errorf("training run %s failed: %v", version, err)
		return nil, err
	}
	logger.Infof("training run %s completed: dataset=%d", version, result.DatasetSize)
	return result, nil
}

func (t *Trainer) train(ctx context.Context, version string, from, to time.Time) (*Result, error) {
	market, err := t.store.AllMarketHistory(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load market history: %w", err)
	}
	if len(market) == 0 {
		return nil, fmt.Errorf("%w: no market data in training window", mlerr.ErrInvalidInput)
	}
	sentiment, err := t.store.AllSentimentHistory(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load sentiment history: %w", err)
	}

	matrix := features.BuildMatrix(market, sentiment)
	if len(matrix) == 0 {
		return nil, fmt.Errorf("%w: no feature vectors from training data", mlerr.ErrFeatureEngineering)
	}
	labels := features.BuildLabels(market, t.cfg.LabelFutureDays, t.cfg.BuyThreshold, t.cfg.SellThreshold)
	if len(labels) != len(matrix) {
		n := min(len(labels), len(matrix))
		matrix, labels = matrix[:n], labels[:n]
	}
	logger.Infof("prepared %d feature vectors of width %d", len(matrix), features.Count)

	train, val, test, err := stratifiedSplit(dataset{features: matrix, labels: labels}, t.cfg.Seed)
	if err != nil {
		return nil, err
	}
	logger.Infof("data split: train=%d validation=%d test=%d", train.len(), val.len(), test.len())

	result := &Result{
		Version:      version,
		TrainingDate: time.Now().UTC(),
		DatasetSize:  len(matrix),
		FeatureCount: features.Count,
	}

	nnMetrics, err := t.trainNetwork(ctx, version, train, test)
	if err != nil {
		return nil, err
	}
	result.NeuralNetwork = nnMetrics

	rfMetrics, err := t.trainForest(ctx, version, train, test)
	if err != nil {
		return nil, err
	}
	result.RandomForest = rfMetrics
	return result, nil
}

func (t *Trainer) trainNetwork(ctx context.Context, version string, train, test dataset) (*registry.Metrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Infof("training neural network model")
	net, err := model.TrainNetwork(train.features, train.labels, types.NumClasses, model.NetworkOptions{
		Hidden1:      t.cfg.HiddenSize1,
		Hidden2:      t.cfg.HiddenSize2,
		Epochs:       t.cfg.Epochs,
		LearningRate: t.cfg.LearningRate,
		Seed:         t.cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("train neural network: %w", err)
	}

	metrics := t.evaluateClassifier(net, test)
	meta := registry.Metadata{
		ModelType:    model.KindNeuralNetwork,
		Version:      version,
		InputSize:    features.Count,
		NumClasses:   types.NumClasses,
		HiddenSize1:  net.Hidden1,
		HiddenSize2:  net.Hidden2,
		TrainingDate: time.Now().UTC(),
		Metrics:      metrics,
	}
	if err := t.models.Store().Save(net, meta); err != nil {
		return nil, err
	}
	if err := t.models.Reload(ctx, model.KindNeuralNetwork, version); err != nil {
		return nil, err
	}
	return &metrics, nil
}

func (t *Trainer) trainForest(ctx context.Context, version string, train, test dataset) (*registry.Metrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	forest, err := model.TrainForest(train.features, train.labels, types.NumClasses, model.ForestOptions{
		NumTrees: t.cfg.NumTrees,
		MaxDepth: t.cfg.MaxDepth,
		Seed:     t.cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("train random forest: %w", err)
	}

	metrics := t.evaluateClassifier(forest, test)
	meta := registry.Metadata{
		ModelType:    model.KindRandomForest,
		Version:      version,
		InputSize:    features.Count,
		NumClasses:   types.NumClasses,
		NumTrees:     t.cfg.NumTrees,
		MaxDepth:     t.cfg.MaxDepth,
		TrainingDate: time.Now().UTC(),
		Metrics:      metrics,
	}
	if err := t.models.Store().Save(forest, meta); err != nil {
		return nil, err
	}
	if err := t.models.Reload(ctx, model.KindRandomForest, version); err != nil {
		return nil, err
	}
	return &metrics, nil
}

func (t *Trainer) evaluateClassifier(c model.Classifier, test dataset) registry.Metrics {
	predicted := make([]int, test.len())
	for i, row := range test.features {
		probs, err := c.PredictProba(row)
		if err != nil {
			logger.Warnf("evaluation inference failed on sample %d: %v", i, err)
			continue
		}
		predicted[i] = model.Argmax(probs)
	}
	metrics := evaluate(predicted, test.labels)
	logger.Infof("%s evaluation: accuracy=%.3f precision=%.3f recall=%.3f f1=%.3f",
		c.Kind(), metrics.Accuracy, metrics.Precision, metrics.Recall, metrics.F1Score)
	return metrics
}

func (t *Trainer) record(ctx context.Context, version string, from, to, started time.Time, result *Result, trainErr error) {
	if t.runLog == nil {
		return
	}
	rec := RunRecord{
		Version:    version,
		RangeFrom:  from,
		RangeTo:    to,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Status:     "completed",
	}
	if result != nil {
		rec.DatasetSize = result.DatasetSize
		if result.NeuralNetwork != nil {
			rec.NNAccuracy = result.NeuralNetwork.Accuracy
		}
		if result.RandomForest != nil {
			rec.RFAccuracy = result.RandomForest.Accuracy
		}
	}
	if trainErr != nil {
		rec.Status = "failed"
		rec.Error = trainErr.Error()
	}
	if err := t.runLog.Record(ctx, rec); err != nil {
		logger.Warnf("record training run %s: %v", version, err)
	}
}

// RunHistory exposes recent training runs for the status endpoint.
func (t *Trainer) RunHistory(ctx context.Context, limit int) ([]RunRecord, error) {
	if t.runLog == nil {
		return nil, nil
	}
	return t.runLog.Recent(ctx, limit)
}
