package recommend

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalist/internal/config"
	"signalist/internal/model"
	"signalist/internal/predict"
	"signalist/internal/registry"
	"signalist/internal/risk"
	"signalist/internal/store"
	"signalist/internal/store/gormstore"
	"signalist/internal/types"
)

type staticUniverse []string

func (u staticUniverse) Eligible(context.Context) ([]types.SymbolInfo, error) {
	out := make([]types.SymbolInfo, len(u))
	for i, s := range u {
		out[i] = types.SymbolInfo{Symbol: s}
	}
	return out, nil
}

func newTestManager(t *testing.T) *registry.Manager {
	t.Helper()
	modelStore, err := registry.NewStore(t.TempDir())
	require.NoError(t, err)
	m := registry.NewManager(modelStore, nil)

	trainFeatures := make([][]float64, 30)
	trainLabels := make([]int, 30)
	for i := range trainFeatures {
		row := make([]float64, 9)
		for j := range row {
			row[j] = float64(i%3) / 3
		}
		trainFeatures[i] = row
		trainLabels[i] = i % 3
	}

	net, err := model.TrainNetwork(trainFeatures, trainLabels, 3, model.NetworkOptions{Hidden1: 8, Hidden2: 4, Epochs: 30})
	require.NoError(t, err)
	forest, err := model.TrainForest(trainFeatures, trainLabels, 3, model.ForestOptions{NumTrees: 5, MaxDepth: 4})
	require.NoError(t, err)

	for kind, c := range map[model.Kind]model.Classifier{
		model.KindNeuralNetwork: net,
		model.KindRandomForest:  forest,
	} {
		meta := registry.Metadata{
			ModelType:    kind,
			Version:      "20260101_000000",
			InputSize:    9,
			NumClasses:   3,
			TrainingDate: time.Now().UTC(),
			Metrics:      registry.Metrics{Accuracy: 0.8},
		}
		require.NoError(t, m.Store().Save(c, meta))
		require.NoError(t, m.Reload(context.Background(), kind, ""))
	}
	return m
}

// seedSymbol writes daily rising history with mild sentiment so the
// symbol always survives feature engineering.
func seedSymbol(t *testing.T, st *gormstore.GormStore, symbol string, days int, sentiment float64) {
	t.Helper()
	now := time.Now().UTC()
	var market []types.MarketObservation
	var sentObs []types.SentimentObservation
	price := 100.0
	for i := days; i > 0; i-- {
		price *= 1.01
		ts := now.Add(-time.Duration(i) * 24 * time.Hour)
		market = append(market, types.MarketObservation{
			Symbol: symbol, Timestamp: ts, Price: price, Volume: 5000,
		})
		if i%3 == 0 {
			sentObs = append(sentObs, types.SentimentObservation{
				Symbol: symbol, Timestamp: ts, Score: sentiment, Source: "news_api",
			})
		}
	}
	ctx := context.Background()
	require.NoError(t, st.SaveMarketData(ctx, market))
	if len(sentObs) > 0 {
		require.NoError(t, st.SaveSentiment(ctx, sentObs))
	}
}

func testRecommendConfig() config.RecommendConfig {
	return config.RecommendConfig{
		DailyTargetCount:      10,
		UseEnsemble:           true,
		ScoringTimeoutSeconds: 10,
		MaxParallel:           2,
		DailyMinVolatility:    0.05,
		WeeklyMinVolatility:   0.02,
		WeeklyMaxVolatility:   0.6,
		MonthlyMaxVolatility:  0.4,
	}
}

func newTestService(t *testing.T, universe UniverseSource, cfg config.RecommendConfig) (*Service, *gormstore.GormStore) {
	t.Helper()
	st, err := gormstore.NewGormStore(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	models := newTestManager(t)
	engine := predict.NewEngine(models)
	svc := NewService(st, engine, models, universe, nil, cfg, config.MLConfig{InferenceHistoryDays: 30})
	return svc, st
}

func TestGenerateEndToEnd(t *testing.T) {
	svc, st := newTestService(t, staticUniverse{"ALPHA", "BETA", "NODATA"}, testRecommendConfig())
	seedSymbol(t, st, "ALPHA", 20, 0.5)
	seedSymbol(t, st, "BETA", 20, -0.3)

	recs, err := svc.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2, "symbol without market data is filtered, not fatal")

	batch := recs[0].BatchID
	for _, rec := range recs {
		assert.Equal(t, batch, rec.BatchID)
		assert.NotEmpty(t, rec.Explanation)
		assert.False(t, rec.CreatedAt.IsZero())
		v := ValidateExplanation(rec.Explanation)
		assert.True(t, v.HasSentimentRef)
		assert.True(t, v.HasSignalRef)
		assert.True(t, v.HasRiskRef)
	}

	// persisted too
	stored, err := st.ListRecommendations(context.Background(), store.RecommendationFilter{BatchID: batch.String()})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestGenerateEmptyUniverse(t *testing.T) {
	svc, _ := newTestService(t, staticUniverse{}, testRecommendConfig())
	recs, err := svc.Generate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestGenerateNoModelsLoaded(t *testing.T) {
	st, err := gormstore.NewGormStore(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer st.Close()
	seedSymbol(t, st, "ALPHA", 20, 0.5)

	modelStore, err := registry.NewStore(t.TempDir())
	require.NoError(t, err)
	models := registry.NewManager(modelStore, nil)
	svc := NewService(st, predict.NewEngine(models), models, staticUniverse{"ALPHA"}, nil,
		testRecommendConfig(), config.MLConfig{})

	recs, err := svc.Generate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestGenerateRespectsTargetCount(t *testing.T) {
	cfg := testRecommendConfig()
	cfg.DailyTargetCount = 1
	svc, st := newTestService(t, staticUniverse{"ALPHA", "BETA", "GAMMA"}, cfg)
	for _, sym := range []string{"ALPHA", "BETA", "GAMMA"} {
		seedSymbol(t, st, sym, 20, 0.2)
	}

	recs, err := svc.Generate(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestGenerateSurvivesPerSymbolFailure(t *testing.T) {
	// long symbol names are fine; a symbol with 1 observation fails
	// feature engineering but must not sink the batch
	svc, st := newTestService(t, staticUniverse{"HEALTHY", "BROKEN"}, testRecommendConfig())
	seedSymbol(t, st, "HEALTHY", 20, 0.4)
	seedSymbol(t, st, "BROKEN", 1, 0)

	recs, err := svc.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "HEALTHY", recs[0].Symbol)
}

// seedPrices writes one observation per day ending yesterday, oldest
// first.
func seedPrices(t *testing.T, st *gormstore.GormStore, symbol string, prices []float64) {
	t.Helper()
	now := time.Now().UTC()
	obs := make([]types.MarketObservation, len(prices))
	for i, p := range prices {
		obs[i] = types.MarketObservation{
			Symbol: symbol, Timestamp: now.Add(-time.Duration(len(prices)-i) * 24 * time.Hour),
			Price: p, Volume: 5000,
		}
	}
	require.NoError(t, st.SaveMarketData(context.Background(), obs))
}

func TestScoreVolatilityUsesDedicatedWindow(t *testing.T) {
	// 100<->140 swings two weeks back, then a flat last 14 days: the
	// daily filter must judge the full 30-day volatility, not the
	// shorter inference history
	prices := make([]float64, 0, 30)
	for i := 0; i < 16; i++ {
		if i%2 == 0 {
			prices = append(prices, 100)
		} else {
			prices = append(prices, 140)
		}
	}
	for i := 0; i < 14; i++ {
		prices = append(prices, 120)
	}

	cfg := testRecommendConfig()
	cfg.HoldingPeriod = "daily"
	require.GreaterOrEqual(t, risk.Volatility(prices), cfg.DailyMinVolatility)
	require.Less(t, risk.Volatility(prices[len(prices)-14:]), cfg.DailyMinVolatility)

	svc, st := newTestService(t, staticUniverse{"WILD"}, cfg)
	svc.mlCfg.InferenceHistoryDays = 14
	seedPrices(t, st, "WILD", prices)

	cand, err := svc.Score(context.Background(), "WILD")
	require.NoError(t, err, "symbol must pass the daily filter on 30-day volatility")
	assert.Equal(t, "WILD", cand.Symbol)
}

func TestScoreSingleSymbol(t *testing.T) {
	svc, st := newTestService(t, staticUniverse{"ALPHA"}, testRecommendConfig())
	seedSymbol(t, st, "ALPHA", 20, 0.6)

	cand, err := svc.Score(context.Background(), "ALPHA")
	require.NoError(t, err)
	assert.Equal(t, "ALPHA", cand.Symbol)
	assert.Contains(t, []types.Signal{types.SignalBuy, types.SignalSell, types.SignalHold}, cand.Signal)
	assert.NotEmpty(t, cand.Explanation)
	assert.InDelta(t, 0.6, cand.Sentiment, 1e-9)
}

func TestVolatilityAllowedBands(t *testing.T) {
	cfg := testRecommendConfig()
	cases := []struct {
		holding string
		vol     float64
		want    bool
	}{
		{"", 0.99, true},
		{"daily", 0.04, false},
		{"daily", 0.05, true},
		{"weekly", 0.01, false},
		{"weekly", 0.3, true},
		{"weekly", 0.7, false},
		{"monthly", 0.3, true},
		{"monthly", 0.5, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_%.2f", tc.holding, tc.vol), func(t *testing.T) {
			cfg.HoldingPeriod = tc.holding
			svc := &Service{cfg: cfg}
			assert.Equal(t, tc.want, svc.volatilityAllowed(tc.vol))
		})
	}
}

func TestSortCandidatesTotalOrder(t *testing.T) {
	candidates := []types.Candidate{
		{Symbol: "C", Confidence: 0.9, Sentiment: 0.1, RiskLevel: types.RiskLow},
		{Symbol: "A", Confidence: 0.8, Sentiment: 0.9, RiskLevel: types.RiskLow},
		{Symbol: "B", Confidence: 0.9, Sentiment: 0.2, RiskLevel: types.RiskHigh},
		{Symbol: "D", Confidence: 0.9, Sentiment: 0.2, RiskLevel: types.RiskLow},
	}
	sortCandidates(candidates)

	// confidence first, then sentiment, then risk
	assert.Equal(t, "D", candidates[0].Symbol)
	assert.Equal(t, "B", candidates[1].Symbol)
	assert.Equal(t, "C", candidates[2].Symbol)
	assert.Equal(t, "A", candidates[3].Symbol)
}

func TestAggregateSentiment(t *testing.T) {
	_, ok := aggregateSentiment(nil)
	assert.False(t, ok)

	avg, ok := aggregateSentiment([]types.SentimentObservation{
		{Score: 0.4}, {Score: -0.2}, {Score: 0.1},
	})
	assert.True(t, ok)
	assert.InDelta(t, 0.1, avg, 1e-9)
}
