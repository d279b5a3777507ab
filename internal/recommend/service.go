// Package recommend turns the scoring universe into a ranked, bounded
// batch of recommendations: per-symbol ensemble inference, trailing
// volatility, holding-period filtering, risk bucketing, explanation
// synthesis, then a deterministic sort and top-N cut.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"signalist/internal/config"
	"signalist/internal/features"
	"signalist/internal/logger"
	"signalist/internal/market"
	"signalist/internal/mlerr"
	"signalist/internal/model"
	"signalist/internal/predict"
	"signalist/internal/registry"
	"signalist/internal/risk"
	"signalist/internal/store"
	"signalist/internal/types"
)

const (
	defaultTargetCount    = 10
	defaultHistoryDays    = 30
	defaultScoringTimeout = 30 * time.Second
	defaultMaxParallel    = 4
)

// errFiltered marks a candidate dropped by a filter rather than a
// failure. Filtered symbols are counted separately from failed ones.
var errFiltered = errors.New("candidate filtered")

// UniverseSource yields the eligible symbols for one generation run.
type UniverseSource interface {
	Eligible(ctx context.Context) ([]types.SymbolInfo, error)
}

type Service struct {
	store    store.Store
	engine   *predict.Engine
	models   *registry.Manager
	universe UniverseSource
	market   *market.IndicatorService
	cfg      config.RecommendConfig
	mlCfg    config.MLConfig

	mu      sync.Mutex
	running bool
}

func NewService(st store.Store, engine *predict.Engine, models *registry.Manager,
	universe UniverseSource, indicators *market.IndicatorService,
	cfg config.RecommendConfig, mlCfg config.MLConfig) *Service {
	return &Service{
		store:    st,
		engine:   engine,
		models:   models,
		universe: universe,
		market:   indicators,
		cfg:      cfg,
		mlCfg:    mlCfg,
	}
}

// Generate scores the whole universe and persists the top candidates as
// one batch. Empty outcomes (no symbols, no models, no market data) are
// legitimate and return an empty slice, not an error; only a concurrent
// run or a persistence failure is an error.
func (s *Service) Generate(ctx context.Context) ([]types.Recommendation, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("recommendation generation already in progress")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	symbols, err := s.universe.Eligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	if len(symbols) == 0 {
		logger.Warnf("no eligible symbols in universe, nothing to generate")
		return []types.Recommendation{}, nil
	}
	if !s.models.Loaded() {
		logger.Errorf("no models loaded, cannot generate recommendations")
		return []types.Recommendation{}, nil
	}

	target := s.cfg.DailyTargetCount
	if target < 0 {
		target = 0
	} else if target == 0 {
		target = defaultTargetCount
	}
	logger.Infof("starting recommendation generation: %d eligible symbols, target=%d", len(symbols), target)

	marketVol := s.market.MarketVolatility(ctx)

	var (
		candMu     sync.Mutex
		candidates []types.Candidate
		failed     int
		filtered   int
	)

	timeout := defaultScoringTimeout
	if s.cfg.ScoringTimeoutSeconds > 0 {
		timeout = time.Duration(s.cfg.ScoringTimeoutSeconds) * time.Second
	}

	var eg errgroup.Group
	if s.cfg.MaxParallel > 0 {
		eg.SetLimit(s.cfg.MaxParallel)
	} else {
		eg.SetLimit(defaultMaxParallel)
	}
	for _, sym := range symbols {
		symbol := sym.Symbol
		if symbol == "" {
			continue
		}
		eg.Go(func() error {
			scoreCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			cand, err := s.score(scoreCtx, symbol, marketVol)
			candMu.Lock()
			defer candMu.Unlock()
			switch {
			case errors.Is(err, errFiltered):
				filtered++
			case err != nil:
				failed++
				logger.Errorf("scoring %s failed: %v", symbol, err)
			default:
				candidates = append(candidates, *cand)
			}
			return nil
		})
	}
	_ = eg.Wait()

	logger.Infof("generation summary: %d candidates, %d failed, %d filtered", len(candidates), failed, filtered)
	if len(candidates) == 0 {
		logger.Warnf("no candidates survived scoring of %d symbols", len(symbols))
		return []types.Recommendation{}, nil
	}

	sortCandidates(candidates)
	if len(candidates) > target {
		candidates = candidates[:target]
	}

	batchID := uuid.New()
	now := time.Now().UTC()
	recs := make([]types.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		recs = append(recs, types.Recommendation{
			ID:          uuid.New(),
			BatchID:     batchID,
			Symbol:      c.Symbol,
			Signal:      c.Signal,
			Confidence:  c.Confidence,
			Sentiment:   c.Sentiment,
			RiskLevel:   c.RiskLevel,
			Explanation: c.Explanation,
			ModelUsed:   c.ModelUsed,
			Warnings:    c.Warnings,
			CreatedAt:   now,
		})
	}
	if err := s.store.SaveRecommendations(ctx, recs); err != nil {
		return nil, fmt.Errorf("persist recommendations: %w", err)
	}
	logger.Infof("generated %d recommendations (target=%d, batch=%s)", len(recs), target, batchID)
	return recs, nil
}

// Score runs the full scoring pipeline for a single symbol without
// persisting anything. Used by the ad-hoc prediction endpoint.
func (s *Service) Score(ctx context.Context, symbol string) (*types.Candidate, error) {
	cand, err := s.score(ctx, symbol, s.market.MarketVolatility(ctx))
	if errors.Is(err, errFiltered) {
		return nil, fmt.Errorf("%w: %s has insufficient market data", mlerr.ErrInvalidInput, symbol)
	}
	return cand, err
}

func (s *Service) score(ctx context.Context, symbol string, marketVol float64) (*types.Candidate, error) {
	historyDays := s.mlCfg.InferenceHistoryDays
	if historyDays <= 0 {
		historyDays = defaultHistoryDays
	}
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -historyDays)

	history, err := s.store.MarketHistory(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("market history: %w", err)
	}
	if len(history) == 0 {
		return nil, errFiltered
	}
	sentimentObs, err := s.store.SentimentHistory(ctx, symbol, from, to, "")
	if err != nil {
		return nil, fmt.Errorf("sentiment history: %w", err)
	}

	matrix := features.BuildMatrix(history, sentimentObs)
	if len(matrix) == 0 {
		return nil, fmt.Errorf("%w: %d observations produced no feature vectors", mlerr.ErrFeatureEngineering, len(history))
	}
	result, err := s.engine.Predict(ctx, matrix[len(matrix)-1], s.cfg.UseEnsemble)
	if err != nil {
		return nil, err
	}

	// volatility is judged over its own trailing window, not the
	// inference history
	riskHistory, err := s.store.MarketHistory(ctx, symbol, to.AddDate(0, 0, -risk.VolatilityWindowDays), to)
	if err != nil {
		return nil, fmt.Errorf("volatility history: %w", err)
	}
	prices := make([]float64, len(riskHistory))
	for i, obs := range riskHistory {
		prices[i] = obs.Price
	}
	volatility := risk.Volatility(prices)
	if !s.volatilityAllowed(volatility) {
		logger.Debugf("%s filtered out: volatility=%.4f, holding_period=%s", symbol, volatility, s.cfg.HoldingPeriod)
		return nil, errFiltered
	}

	assessment := risk.Assess(volatility, result.Confidence, marketVol)

	sentiment, hasSentiment := aggregateSentiment(sentimentObs)
	var sentimentPtr *float64
	if hasSentiment {
		sentimentPtr = &sentiment
	}

	in := explainInput{
		Signal:     string(result.Signal),
		Confidence: result.Confidence,
		Sentiment:  sentimentPtr,
		RiskLevel:  string(assessment.Level),
		ModelUsed:  result.ModelUsed,
		RSquared:   s.modelRSquared(),
	}
	if len(sentimentObs) > 0 {
		last := sentimentObs[len(sentimentObs)-1]
		in.SentimentSource = last.Source
		in.SentimentAt = &last.Timestamp
	}
	lastMarket := history[len(history)-1].Timestamp
	in.MarketAt = &lastMarket

	explanation := synthesize(in, time.Now().UTC())
	validation := ValidateExplanation(explanation)
	if len(validation.Warnings) > 0 {
		logger.Warnf("explanation quality warnings for %s: %v", symbol, validation.Warnings)
	}

	return &types.Candidate{
		Symbol:      symbol,
		Signal:      result.Signal,
		Confidence:  result.Confidence,
		Sentiment:   sentiment,
		RiskLevel:   assessment.Level,
		Explanation: explanation,
		ModelUsed:   result.ModelUsed,
		Warnings:    validation.Warnings,
	}, nil
}

// volatilityAllowed applies the holding-period preference bands. No
// preference admits everything.
func (s *Service) volatilityAllowed(vol float64) bool {
	switch types.HoldingPeriod(s.cfg.HoldingPeriod) {
	case types.HoldingDaily:
		return vol >= s.cfg.DailyMinVolatility
	case types.HoldingWeekly:
		return vol >= s.cfg.WeeklyMinVolatility && vol <= s.cfg.WeeklyMaxVolatility
	case types.HoldingMonthly:
		return vol <= s.cfg.MonthlyMaxVolatility
	default:
		return true
	}
}

// modelRSquared surfaces a stored R² from either loaded model, neural
// network first, for the explanation text.
func (s *Service) modelRSquared() *float64 {
	for _, kind := range []model.Kind{model.KindNeuralNetwork, model.KindRandomForest} {
		if _, meta, ok := s.models.Get(kind); ok && meta.Metrics.RSquared != nil {
			return meta.Metrics.RSquared
		}
	}
	return nil
}

// aggregateSentiment is the simple average over every reading in the
// window, the same unified score used at feature time.
func aggregateSentiment(obs []types.SentimentObservation) (float64, bool) {
	if len(obs) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, o := range obs {
		sum += o.Score
	}
	return sum / float64(len(obs)), true
}

// sortCandidates orders by confidence descending, sentiment descending,
// risk ascending, then symbol for a fully deterministic batch.
func sortCandidates(candidates []types.Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Sentiment != b.Sentiment {
			return a.Sentiment > b.Sentiment
		}
		if a.RiskLevel.Rank() != b.RiskLevel.Rank() {
			return a.RiskLevel.Rank() < b.RiskLevel.Rank()
		}
		return a.Symbol < b.Symbol
	})
}
