package market

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"signalist/internal/risk"
	"signalist/internal/types"
)

type stubSource struct {
	prices []float64
	err    error
	calls  int
}

func (s *stubSource) MarketHistory(_ context.Context, symbol string, _, _ time.Time) ([]types.MarketObservation, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	obs := make([]types.MarketObservation, len(s.prices))
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range s.prices {
		obs[i] = types.MarketObservation{Symbol: symbol, Timestamp: base.AddDate(0, 0, i), Price: p, Volume: 100}
	}
	return obs, nil
}

func TestMarketVolatilityFromIndexHistory(t *testing.T) {
	src := &stubSource{prices: []float64{100, 102, 101, 103, 102, 104, 103, 105}}
	svc := NewIndicatorService(src, "SPY", time.Hour)

	vol := svc.MarketVolatility(context.Background())
	assert.Greater(t, vol, 0.0)
	assert.Less(t, vol, 1.0)

	data, ok := svc.Get()
	assert.True(t, ok)
	assert.Equal(t, "SPY", data.Symbol)
	assert.Equal(t, 8, data.DataPoints)
}

func TestMarketVolatilityNeutralWhenNoData(t *testing.T) {
	src := &stubSource{}
	svc := NewIndicatorService(src, "SPY", time.Hour)

	assert.Equal(t, risk.NeutralMarket, svc.MarketVolatility(context.Background()))
}

func TestMarketVolatilityNeutralOnSourceError(t *testing.T) {
	src := &stubSource{err: fmt.Errorf("db unavailable")}
	svc := NewIndicatorService(src, "SPY", time.Hour)

	assert.Equal(t, risk.NeutralMarket, svc.MarketVolatility(context.Background()))
	data, ok := svc.Get()
	assert.True(t, ok)
	assert.NotEmpty(t, data.Error)
}

func TestRefreshIfStaleCachesWithinWindow(t *testing.T) {
	src := &stubSource{prices: []float64{100, 102, 101, 103, 102, 104, 103, 105}}
	svc := NewIndicatorService(src, "SPY", time.Hour)
	ctx := context.Background()

	svc.RefreshIfStale(ctx)
	svc.RefreshIfStale(ctx)
	svc.RefreshIfStale(ctx)
	assert.Equal(t, 1, src.calls)
}

func TestNilServiceIsNeutral(t *testing.T) {
	var svc *IndicatorService
	assert.Equal(t, risk.NeutralMarket, svc.MarketVolatility(context.Background()))
	_, ok := svc.Get()
	assert.False(t, ok)
}
