// Package risk scores recommendation risk from three components:
// realized price volatility, model uncertainty and broad market
// conditions.
package risk

import (
	talib "github.com/markcheno/go-talib"

	"signalist/internal/logger"
	"signalist/internal/types"
)

const (
	// VolatilityWindowDays is the trailing price window volatility is
	// measured over, independent of the inference history length.
	VolatilityWindowDays = 30

	minVolatilityData  = 7
	maxDailyVolatility = 0.1

	volatilityWeight  = 0.4
	uncertaintyWeight = 0.4
	marketWeight      = 0.2

	lowCutoff    = 0.33
	mediumCutoff = 0.66

	// NeutralMarket substitutes for the market component when no
	// index data is available.
	NeutralMarket = 0.5
)

// Volatility normalizes the standard deviation of daily returns into
// [0, 1], treating a 10 percent daily move as the ceiling. Only the
// trailing VolatilityWindowDays prices count. Fewer than seven price
// points yield zero, as does a constant series.
func Volatility(prices []float64) float64 {
	if len(prices) > VolatilityWindowDays {
		prices = prices[len(prices)-VolatilityWindowDays:]
	}
	if len(prices) < minVolatilityData {
		logger.Warnf("insufficient data for volatility: %d points (need >= %d)", len(prices), minVolatilityData)
		return 0
	}

	changes := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			changes = append(changes, (prices[i]-prices[i-1])/prices[i-1])
		}
	}
	if len(changes) < 2 {
		return 0
	}

	// population std over the whole window: a rolling StdDev whose
	// period spans every change puts the full-window value last
	std := talib.StdDev(changes, len(changes), 1)
	vol := std[len(std)-1]

	normalized := vol / maxDailyVolatility
	if normalized > 1 {
		normalized = 1
	}
	if normalized < 0 {
		normalized = 0
	}
	logger.Debugf("volatility=%.4f normalized=%.4f", vol, normalized)
	return normalized
}

// Assessment is the result of scoring one candidate.
type Assessment struct {
	Level            types.RiskLevel
	Score            float64
	Volatility       float64
	Uncertainty      float64
	MarketVolatility float64
}

// Assess combines the three weighted components into a score and maps
// it onto the risk buckets. A confidence outside [0, 1] is a non-fatal
// input fault that collapses to the medium bucket.
func Assess(volatility, confidence, marketVolatility float64) Assessment {
	if confidence < 0 || confidence > 1 {
		logger.Warnf("invalid confidence %.3f for risk scoring, defaulting to medium risk", confidence)
		return Assessment{Level: types.RiskMedium, Score: 0.5, Volatility: volatility, MarketVolatility: marketVolatility}
	}
	if marketVolatility < 0 {
		marketVolatility = 0
	}
	if marketVolatility > 1 {
		marketVolatility = 1
	}

	uncertainty := 1 - confidence
	score := volatility*volatilityWeight + uncertainty*uncertaintyWeight + marketVolatility*marketWeight
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	level := types.RiskHigh
	switch {
	case score <= lowCutoff:
		level = types.RiskLow
	case score <= mediumCutoff:
		level = types.RiskMedium
	}

	logger.Debugf("risk score=%.3f level=%s volatility=%.3f uncertainty=%.3f market=%.3f",
		score, level, volatility, uncertainty, marketVolatility)
	return Assessment{
		Level:            level,
		Score:            score,
		Volatility:       volatility,
		Uncertainty:      uncertainty,
		MarketVolatility: marketVolatility,
	}
}
