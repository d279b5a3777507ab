package features

import (
	"math"
	"sort"
	"time"

	"signalist/internal/logger"
	"signalist/internal/types"
)

// Count is the width of every feature vector produced by this package.
const Count = 9

// Column order is fixed; trained models depend on it.
var Names = [Count]string{
	"price",
	"price_change",
	"rolling_price_avg",
	"rolling_price_std",
	"volume",
	"volume_change",
	"rolling_volume_avg",
	"sentiment_score",
	"sentiment_trend",
}

const (
	colPrice = iota
	colPriceChange
	colPriceAvg
	colPriceStd
	colVolume
	colVolumeChange
	colVolumeAvg
	colSentiment
	colSentimentTrend
)

// sentimentMaxAge is how stale a sentiment observation may be before
// it is treated as missing and replaced with neutral.
const sentimentMaxAge = 7 * 24 * time.Hour

// BuildMatrix turns raw market and sentiment history into normalized
// feature vectors, one per market observation. Symbols with fewer than
// two observations are skipped because price_change needs a predecessor.
// Rows keep per-symbol timestamp order; numeric columns are min-max
// scaled over the whole matrix, sentiment_score is mapped from [-1, 1]
// to [0, 1].
func BuildMatrix(market []types.MarketObservation, sentiment []types.SentimentObservation) [][]float64 {
	if len(market) == 0 {
		logger.Warnf("features: no market data provided")
		return nil
	}

	bySymbol := groupMarket(market)
	sentBySymbol := groupSentiment(sentiment)

	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var rows [][]float64
	for _, sym := range symbols {
		obs := bySymbol[sym]
		if len(obs) < 2 {
			continue
		}
		sents := sentBySymbol[sym]

		var priceSum, volumeSum float64
		for i, cur := range obs {
			row := make([]float64, Count)
			row[colPrice] = cur.Price
			if i > 0 && obs[i-1].Price > 0 {
				row[colPriceChange] = (cur.Price - obs[i-1].Price) / obs[i-1].Price
			}

			priceSum += cur.Price
			volumeSum += float64(cur.Volume)
			n := float64(i + 1)
			row[colPriceAvg] = priceSum / n
			row[colPriceStd] = sampleStd(obs[:i+1], priceSum/n)

			row[colVolume] = float64(cur.Volume)
			if i > 0 && obs[i-1].Volume > 0 {
				row[colVolumeChange] = float64(cur.Volume-obs[i-1].Volume) / float64(obs[i-1].Volume)
			}
			row[colVolumeAvg] = volumeSum / n

			score, trend := sentimentAt(sents, cur.Timestamp)
			row[colSentiment] = score
			row[colSentimentTrend] = trend

			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		logger.Warnf("features: no feature vectors created from %d observations", len(market))
		return nil
	}

	normalize(rows)
	logger.Debugf("features: built %d vectors of width %d", len(rows), Count)
	return rows
}

func groupMarket(market []types.MarketObservation) map[string][]types.MarketObservation {
	bySymbol := make(map[string][]types.MarketObservation)
	for _, m := range market {
		bySymbol[m.Symbol] = append(bySymbol[m.Symbol], m)
	}
	for sym := range bySymbol {
		obs := bySymbol[sym]
		sort.Slice(obs, func(i, j int) bool { return obs[i].Timestamp.Before(obs[j].Timestamp) })
	}
	return bySymbol
}

func groupSentiment(sentiment []types.SentimentObservation) map[string][]types.SentimentObservation {
	bySymbol := make(map[string][]types.SentimentObservation)
	for _, s := range sentiment {
		bySymbol[s.Symbol] = append(bySymbol[s.Symbol], s)
	}
	for sym := range bySymbol {
		obs := bySymbol[sym]
		sort.Slice(obs, func(i, j int) bool { return obs[i].Timestamp.Before(obs[j].Timestamp) })
	}
	return bySymbol
}

// sentimentAt resolves the score and trend for a market timestamp:
// the nearest observation within sentimentMaxAge, and the delta against
// the last observation strictly before ts. Missing data is neutral.
func sentimentAt(sents []types.SentimentObservation, ts time.Time) (score, trend float64) {
	if len(sents) == 0 {
		return 0, 0
	}
	closest := -1
	var closestDiff time.Duration
	for i, s := range sents {
		diff := ts.Sub(s.Timestamp)
		if diff < 0 {
			diff = -diff
		}
		if closest < 0 || diff < closestDiff {
			closest, closestDiff = i, diff
		}
	}
	if closestDiff >= sentimentMaxAge {
		return 0, 0
	}
	score = sents[closest].Score
	for i := len(sents) - 1; i >= 0; i-- {
		if sents[i].Timestamp.Before(ts) {
			trend = score - sents[i].Score
			break
		}
	}
	return score, trend
}

// sampleStd is the standard deviation with Bessel's correction, zero
// for a single observation.
func sampleStd(obs []types.MarketObservation, mean float64) float64 {
	if len(obs) < 2 {
		return 0
	}
	var sum float64
	for _, o := range obs {
		d := o.Price - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(obs)-1))
}

// normalize rescales each column in place. Numeric columns get min-max
// scaling with 0.5 substituted when a column is constant; the sentiment
// score moves from [-1, 1] to [0, 1] directly so neutral stays at 0.5
// regardless of what other rows contain.
func normalize(rows [][]float64) {
	for col := 0; col < Count; col++ {
		if col == colSentiment {
			for _, row := range rows {
				row[col] = (row[col] + 1) / 2
			}
			continue
		}
		min, max := rows[0][col], rows[0][col]
		for _, row := range rows {
			if row[col] < min {
				min = row[col]
			}
			if row[col] > max {
				max = row[col]
			}
		}
		if max == min {
			for _, row := range rows {
				row[col] = 0.5
			}
			continue
		}
		span := max - min
		for _, row := range rows {
			row[col] = (row[col] - min) / span
		}
	}
}
