package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"signalist/internal/types"
)

func TestVolatilityInsufficientData(t *testing.T) {
	assert.Equal(t, 0.0, Volatility([]float64{100, 101, 102}))
	assert.Equal(t, 0.0, Volatility(nil))
}

func TestVolatilityConstantPrices(t *testing.T) {
	prices := []float64{100, 100, 100, 100, 100, 100, 100, 100}
	assert.Equal(t, 0.0, Volatility(prices))
}

func TestVolatilityCappedAtOne(t *testing.T) {
	// wild 50% swings blow past the 10% daily ceiling
	prices := []float64{100, 150, 75, 120, 60, 95, 140, 70}
	assert.Equal(t, 1.0, Volatility(prices))
}

func TestVolatilityTrailingWindowOnly(t *testing.T) {
	// wild swings older than the window must not leak into the score
	prices := make([]float64, 0, 60)
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			prices = append(prices, 100)
		} else {
			prices = append(prices, 150)
		}
	}
	for i := 0; i < 30; i++ {
		prices = append(prices, 120)
	}
	assert.Equal(t, 0.0, Volatility(prices))
}

func TestVolatilityModerateSeries(t *testing.T) {
	prices := []float64{100, 102, 101, 103, 102, 104, 103, 105}
	vol := Volatility(prices)
	assert.Greater(t, vol, 0.0)
	assert.Less(t, vol, 1.0)
}

func TestAssessBuckets(t *testing.T) {
	tests := []struct {
		name       string
		volatility float64
		confidence float64
		market     float64
		want       types.RiskLevel
	}{
		{"calm and confident", 0.0, 0.95, 0.1, types.RiskLow},
		{"neutral everything", 0.5, 0.5, 0.5, types.RiskMedium},
		{"volatile and unsure", 1.0, 0.1, 0.9, types.RiskHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assess(tt.volatility, tt.confidence, tt.market)
			assert.Equal(t, tt.want, a.Level)
			assert.GreaterOrEqual(t, a.Score, 0.0)
			assert.LessOrEqual(t, a.Score, 1.0)
		})
	}
}

func TestAssessExactWeights(t *testing.T) {
	a := Assess(0.5, 0.8, 0.5)
	// 0.5*0.4 + 0.2*0.4 + 0.5*0.2 = 0.38
	assert.InDelta(t, 0.38, a.Score, 1e-9)
	assert.Equal(t, types.RiskMedium, a.Level)
	assert.InDelta(t, 0.2, a.Uncertainty, 1e-9)
}

func TestAssessInvalidConfidenceDefaultsToMedium(t *testing.T) {
	for _, conf := range []float64{-0.1, 1.5} {
		a := Assess(0.2, conf, 0.5)
		assert.Equal(t, types.RiskMedium, a.Level)
	}
}

func TestAssessClampsMarketVolatility(t *testing.T) {
	a := Assess(0.0, 1.0, 5.0)
	// market clamps to 1.0: score = 0 + 0 + 1*0.2
	assert.InDelta(t, 0.2, a.Score, 1e-9)
	assert.Equal(t, 1.0, a.MarketVolatility)
}

func TestAssessBoundaryScores(t *testing.T) {
	// exactly 0.33 stays low, exactly 0.66 stays medium
	a := Assess(0.0, 1.0, 0.0)
	assert.Equal(t, types.RiskLow, a.Level)

	b := Assess(0.9, 0.5, 0.5)
	// 0.36 + 0.2 + 0.1 = 0.66
	assert.InDelta(t, 0.66, b.Score, 1e-9)
	assert.Equal(t, types.RiskMedium, b.Level)
}
