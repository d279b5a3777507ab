// Package market derives broad market condition indicators from the
// price history of a benchmark index symbol. The indicator feeds the
// third component of risk scoring.
package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"signalist/internal/logger"
	"signalist/internal/risk"
	"signalist/internal/types"
)

const (
	indicatorErrorBackoff = 2 * time.Minute
	indicatorWindowDays   = 30
)

// PriceSource supplies index price history, usually the main store.
type PriceSource interface {
	MarketHistory(ctx context.Context, symbol string, from, to time.Time) ([]types.MarketObservation, error)
}

// IndicatorData is the cached market condition snapshot.
type IndicatorData struct {
	Symbol     string
	Volatility float64
	DataPoints int
	LastUpdate time.Time
	Error      string
}

// IndicatorService caches the index volatility and refreshes it lazily
// when callers ask and the previous value has gone stale.
type IndicatorService struct {
	source  PriceSource
	symbol  string
	refresh time.Duration

	mu         sync.RWMutex
	data       IndicatorData
	nextUpdate time.Time
	refreshMu  sync.Mutex
}

func NewIndicatorService(source PriceSource, indexSymbol string, refreshEvery time.Duration) *IndicatorService {
	if refreshEvery <= 0 {
		refreshEvery = 30 * time.Minute
	}
	return &IndicatorService{source: source, symbol: indexSymbol, refresh: refreshEvery}
}

// Get returns the cached snapshot and whether anything has ever loaded.
func (s *IndicatorService) Get() (IndicatorData, bool) {
	if s == nil {
		return IndicatorData{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data, !s.data.LastUpdate.IsZero()
}

// MarketVolatility returns the current indicator, refreshing on demand
// and falling back to the neutral value when the index has no usable
// history.
func (s *IndicatorService) MarketVolatility(ctx context.Context) float64 {
	if s == nil {
		return risk.NeutralMarket
	}
	s.RefreshIfStale(ctx)
	data, ok := s.Get()
	if !ok || data.Error != "" || data.DataPoints == 0 {
		return risk.NeutralMarket
	}
	return data.Volatility
}

// RefreshIfStale recomputes the indicator when its update deadline has
// passed. Concurrent callers coalesce onto one refresh.
func (s *IndicatorService) RefreshIfStale(ctx context.Context) {
	if s == nil {
		return
	}
	if s.fresh(time.Now()) {
		return
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if s.fresh(time.Now()) {
		return
	}
	if err := s.reload(ctx); err != nil {
		logger.Warnf("market indicator refresh failed: %v", err)
	}
}

func (s *IndicatorService) fresh(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.data.LastUpdate.IsZero() && !s.nextUpdate.IsZero() && now.Before(s.nextUpdate)
}

func (s *IndicatorService) reload(ctx context.Context) error {
	if s.source == nil {
		err := fmt.Errorf("market indicator has no price source")
		s.setError(err)
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC()
	history, err := s.source.MarketHistory(ctx, s.symbol, now.AddDate(0, 0, -indicatorWindowDays), now)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("load %s history: %w", s.symbol, err)
	}

	prices := make([]float64, len(history))
	for i, h := range history {
		prices[i] = h.Price
	}
	data := IndicatorData{
		Symbol:     s.symbol,
		Volatility: risk.Volatility(prices),
		DataPoints: len(prices),
		LastUpdate: now,
	}
	s.setData(data, now.Add(s.refresh))
	logger.Infof("market indicator refreshed: symbol=%s volatility=%.3f points=%d",
		s.symbol, data.Volatility, data.DataPoints)
	return nil
}

func (s *IndicatorService) setError(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	now := time.Now()
	s.setData(IndicatorData{Symbol: s.symbol, LastUpdate: now, Error: msg}, now.Add(indicatorErrorBackoff))
}

func (s *IndicatorService) setData(data IndicatorData, next time.Time) {
	s.mu.Lock()
	s.data = data
	s.nextUpdate = next
	s.mu.Unlock()
}
