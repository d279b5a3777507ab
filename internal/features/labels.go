package features

import (
	"sort"
	"time"

	"signalist/internal/types"
)

// BuildLabels derives a training class for every feature row that
// BuildMatrix would produce from the same market history. The label is
// decided by the last observed price within futureDays after each
// observation: a move at or above buyThreshold is a buy, at or below
// sellThreshold a sell, anything else (including missing future data)
// a hold. Row order mirrors BuildMatrix, including the skip of symbols
// with fewer than two observations.
func BuildLabels(market []types.MarketObservation, futureDays int, buyThreshold, sellThreshold float64) []int {
	bySymbol := groupMarket(market)

	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	horizon := time.Duration(futureDays) * 24 * time.Hour
	var labels []int
	for _, sym := range symbols {
		obs := bySymbol[sym]
		if len(obs) < 2 {
			continue
		}
		for i, cur := range obs {
			labels = append(labels, labelFor(obs[i+1:], cur, horizon, buyThreshold, sellThreshold))
		}
	}
	return labels
}

func labelFor(future []types.MarketObservation, cur types.MarketObservation, horizon time.Duration, buyThreshold, sellThreshold float64) int {
	deadline := cur.Timestamp.Add(horizon)
	futurePrice := 0.0
	found := false
	for _, f := range future {
		if f.Timestamp.After(deadline) {
			break
		}
		futurePrice = f.Price
		found = true
	}
	if !found || cur.Price <= 0 {
		return types.ClassHold
	}
	change := (futurePrice - cur.Price) / cur.Price
	switch {
	case change >= buyThreshold:
		return types.ClassBuy
	case change <= sellThreshold:
		return types.ClassSell
	default:
		return types.ClassHold
	}
}
