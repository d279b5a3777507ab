package trainer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalist/internal/config"
	"signalist/internal/mlerr"
	"signalist/internal/model"
	"signalist/internal/registry"
	"signalist/internal/store/gormstore"
	"signalist/internal/types"
)

func TestEvaluatePerfectPrediction(t *testing.T) {
	truth := []int{0, 1, 2, 0, 1, 2}
	m := evaluate(truth, truth)
	assert.Equal(t, 1.0, m.Accuracy)
	assert.Equal(t, 1.0, m.Precision)
	assert.Equal(t, 1.0, m.Recall)
	assert.Equal(t, 1.0, m.F1Score)
}

func TestEvaluateWeightedBysupport(t *testing.T) {
	truth := []int{0, 0, 0, 1}
	predicted := []int{0, 0, 1, 1}
	m := evaluate(predicted, truth)
	assert.InDelta(t, 0.75, m.Accuracy, 1e-9)
	// hold: p=1, r=2/3; buy: p=0.5, r=1
	// weighted precision = 0.75*1 + 0.25*0.5 = 0.875
	assert.InDelta(t, 0.875, m.Precision, 1e-9)
	assert.InDelta(t, 0.75, m.Recall, 1e-9)
}

func TestEvaluateEmptyInput(t *testing.T) {
	m := evaluate(nil, nil)
	assert.Equal(t, registry.Metrics{}, m)
}

func TestStratifiedSplitKeepsClassBalance(t *testing.T) {
	d := dataset{}
	for i := 0; i < 100; i++ {
		d.features = append(d.features, []float64{float64(i)})
		d.labels = append(d.labels, i%3)
	}

	train, val, test, err := stratifiedSplit(d, 42)
	require.NoError(t, err)
	assert.Equal(t, d.len(), train.len()+val.len()+test.len())
	assert.Greater(t, train.len(), val.len())
	assert.Greater(t, train.len(), test.len())

	for _, split := range []dataset{train, val, test} {
		seen := map[int]bool{}
		for _, l := range split.labels {
			seen[l] = true
		}
		assert.Len(t, seen, 3, "every split carries every class")
	}
}

func TestStratifiedSplitTooFewSamplesPerClass(t *testing.T) {
	d := dataset{
		features: [][]float64{{1}, {2}, {3}, {4}},
		labels:   []int{0, 0, 0, 1},
	}
	_, _, _, err := stratifiedSplit(d, 42)
	assert.ErrorIs(t, err, mlerr.ErrInvalidInput)
}

func TestStratifiedSplitMinimumViableClass(t *testing.T) {
	d := dataset{}
	for i := 0; i < 3; i++ {
		d.features = append(d.features, []float64{float64(i)})
		d.labels = append(d.labels, 1)
	}
	for i := 0; i < 20; i++ {
		d.features = append(d.features, []float64{float64(i)})
		d.labels = append(d.labels, 0)
	}

	train, val, test, err := stratifiedSplit(d, 42)
	require.NoError(t, err)
	for _, split := range []dataset{train, val, test} {
		found := false
		for _, l := range split.labels {
			if l == 1 {
				found = true
			}
		}
		assert.True(t, found, "three samples spread one per split")
	}
}

func TestRunLogRecordAndRecent(t *testing.T) {
	log, err := NewRunLog(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer log.Close()
	ctx := context.Background()

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, log.Record(ctx, RunRecord{
		Version: "20260101_000000", RangeFrom: from, RangeTo: to,
		StartedAt: time.Now(), FinishedAt: time.Now(),
		DatasetSize: 100, NNAccuracy: 0.7, RFAccuracy: 0.75, Status: "completed",
	}))
	require.NoError(t, log.Record(ctx, RunRecord{
		Version: "20260102_000000", StartedAt: time.Now(), FinishedAt: time.Now(),
		Status: "failed", Error: "no market data in training window",
	}))

	recs, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "20260102_000000", recs[0].Version)
	assert.Equal(t, "failed", recs[0].Status)
	assert.Equal(t, 100, recs[1].DatasetSize)
	assert.Equal(t, from, recs[1].RangeFrom)
	assert.Equal(t, to, recs[1].RangeTo)
}

// seedTrainingData writes a long synthetic history with clear trends so
// every label class appears often enough to split.
func seedTrainingData(t *testing.T, st *gormstore.GormStore) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var market []types.MarketObservation
	var sentiment []types.SentimentObservation

	symbols := []struct {
		name  string
		drift float64
	}{
		{"UPTREND", 0.02},
		{"DOWNTREND", -0.02},
		{"FLATLINE", 0.0},
	}
	for _, sym := range symbols {
		price := 100.0
		for day := 0; day < 60; day++ {
			wobble := 0.004 * float64(day%3-1)
			price *= 1 + sym.drift + wobble
			market = append(market, types.MarketObservation{
				Symbol: sym.name, Timestamp: base.AddDate(0, 0, day), Price: price, Volume: int64(1000 + day*7),
			})
			if day%5 == 0 {
				sentiment = append(sentiment, types.SentimentObservation{
					Symbol: sym.name, Timestamp: base.AddDate(0, 0, day), Score: sym.drift * 20, Source: "web_aggregate",
				})
			}
		}
	}
	ctx := context.Background()
	require.NoError(t, st.SaveMarketData(ctx, market))
	require.NoError(t, st.SaveSentiment(ctx, sentiment))
}

func testMLConfig() config.MLConfig {
	return config.MLConfig{
		HiddenSize1:     8,
		HiddenSize2:     4,
		Epochs:          10,
		BatchSize:       32,
		LearningRate:    0.001,
		NumTrees:        5,
		MaxDepth:        4,
		Seed:            42,
		LabelFutureDays: 7,
		BuyThreshold:    0.05,
		SellThreshold:   -0.05,
	}
}

func TestTrainEndToEnd(t *testing.T) {
	dir := t.TempDir()
	st, err := gormstore.NewGormStore(filepath.Join(dir, "data.db"))
	require.NoError(t, err)
	defer st.Close()
	seedTrainingData(t, st)

	modelStore, err := registry.NewStore(filepath.Join(dir, "models"))
	require.NoError(t, err)
	manager := registry.NewManager(modelStore, nil)

	runLog, err := NewRunLog(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer runLog.Close()

	tr := New(st, manager, runLog, testMLConfig())
	ctx := context.Background()
	result, err := tr.Train(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.NotEmpty(t, result.Version)
	assert.Greater(t, result.DatasetSize, 100)
	require.NotNil(t, result.NeuralNetwork)
	require.NotNil(t, result.RandomForest)

	// both models are live in the manager after training
	_, nnMeta, ok := manager.Get(model.KindNeuralNetwork)
	require.True(t, ok)
	assert.Equal(t, result.Version, nnMeta.Version)
	_, rfMeta, ok := manager.Get(model.KindRandomForest)
	require.True(t, ok)
	assert.Equal(t, result.Version, rfMeta.Version)

	runs, err := tr.RunHistory(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)
}

func TestTrainFailsWithoutData(t *testing.T) {
	dir := t.TempDir()
	st, err := gormstore.NewGormStore(filepath.Join(dir, "data.db"))
	require.NoError(t, err)
	defer st.Close()

	modelStore, err := registry.NewStore(filepath.Join(dir, "models"))
	require.NoError(t, err)
	manager := registry.NewManager(modelStore, nil)

	runLog, err := NewRunLog(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer runLog.Close()

	tr := New(st, manager, runLog, testMLConfig())
	_, err = tr.Train(context.Background(), time.Now().AddDate(0, -1, 0), time.Now())
	assert.ErrorIs(t, err, mlerr.ErrInvalidInput)

	runs, err := tr.RunHistory(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Status)
}
