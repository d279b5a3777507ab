package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"signalist/internal/types"
)

func day(n int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func obs(sym string, n int, price float64, volume int64) types.MarketObservation {
	return types.MarketObservation{Symbol: sym, Timestamp: day(n), Price: price, Volume: volume}
}

func TestBuildMatrixEmptyInput(t *testing.T) {
	assert.Nil(t, BuildMatrix(nil, nil))
}

func TestBuildMatrixSkipsSingleObservation(t *testing.T) {
	rows := BuildMatrix([]types.MarketObservation{obs("AAPL", 0, 100, 1000)}, nil)
	assert.Nil(t, rows)
}

func TestBuildMatrixShapeAndRange(t *testing.T) {
	market := []types.MarketObservation{
		obs("AAPL", 0, 100, 1000),
		obs("AAPL", 1, 110, 1200),
		obs("AAPL", 2, 105, 900),
		obs("MSFT", 0, 300, 500),
		obs("MSFT", 1, 280, 700),
	}
	rows := BuildMatrix(market, nil)
	assert.Len(t, rows, 5)
	for _, row := range rows {
		assert.Len(t, row, Count)
		for col, v := range row {
			assert.GreaterOrEqual(t, v, 0.0, "column %s", Names[col])
			assert.LessOrEqual(t, v, 1.0, "column %s", Names[col])
		}
	}
}

func TestBuildMatrixConstantColumnDefaultsToMiddle(t *testing.T) {
	market := []types.MarketObservation{
		obs("AAPL", 0, 100, 1000),
		obs("AAPL", 1, 100, 1000),
	}
	rows := BuildMatrix(market, nil)
	assert.Len(t, rows, 2)
	// price never varies, so min-max scaling falls back to 0.5
	assert.Equal(t, 0.5, rows[0][colPrice])
	assert.Equal(t, 0.5, rows[1][colPrice])
}

func TestBuildMatrixMissingSentimentIsNeutral(t *testing.T) {
	market := []types.MarketObservation{
		obs("AAPL", 0, 100, 1000),
		obs("AAPL", 1, 110, 1200),
	}
	rows := BuildMatrix(market, nil)
	for _, row := range rows {
		assert.Equal(t, 0.5, row[colSentiment])
	}
}

func TestBuildMatrixStaleSentimentIgnored(t *testing.T) {
	market := []types.MarketObservation{
		obs("AAPL", 30, 100, 1000),
		obs("AAPL", 31, 110, 1200),
	}
	sentiment := []types.SentimentObservation{
		{Symbol: "AAPL", Timestamp: day(0), Score: 0.9, Source: "web_aggregate"},
	}
	rows := BuildMatrix(market, sentiment)
	for _, row := range rows {
		assert.Equal(t, 0.5, row[colSentiment], "sentiment older than a week must read neutral")
	}
}

func TestBuildMatrixFreshSentimentApplied(t *testing.T) {
	market := []types.MarketObservation{
		obs("AAPL", 0, 100, 1000),
		obs("AAPL", 1, 110, 1200),
	}
	sentiment := []types.SentimentObservation{
		{Symbol: "AAPL", Timestamp: day(1), Score: 0.8, Source: "web_aggregate"},
	}
	rows := BuildMatrix(market, sentiment)
	// (0.8 + 1) / 2 = 0.9 for both rows, the single observation is
	// the closest for each timestamp.
	assert.InDelta(t, 0.9, rows[0][colSentiment], 1e-9)
	assert.InDelta(t, 0.9, rows[1][colSentiment], 1e-9)
}

func TestBuildLabels(t *testing.T) {
	market := []types.MarketObservation{
		obs("AAPL", 0, 100, 1000),  // +10% within 7 days -> buy
		obs("AAPL", 5, 110, 1000),  // -9% within 7 days -> sell
		obs("AAPL", 10, 100, 1000), // no future data -> hold
	}
	labels := BuildLabels(market, 7, 0.05, -0.05)
	assert.Equal(t, []int{types.ClassBuy, types.ClassSell, types.ClassHold}, labels)
}

func TestBuildLabelsUsesLastPriceInWindow(t *testing.T) {
	market := []types.MarketObservation{
		obs("AAPL", 0, 100, 1000),
		obs("AAPL", 2, 120, 1000), // intermediate spike
		obs("AAPL", 6, 101, 1000), // last point in window decides: +1% -> hold
		obs("AAPL", 20, 101, 1000),
	}
	labels := BuildLabels(market, 7, 0.05, -0.05)
	assert.Equal(t, types.ClassHold, labels[0])
}

func TestBuildLabelsAlignsWithMatrix(t *testing.T) {
	market := []types.MarketObservation{
		obs("AAPL", 0, 100, 1000),
		obs("AAPL", 1, 110, 1200),
		obs("ONE", 0, 50, 10), // single point, dropped by both
		obs("MSFT", 0, 300, 500),
		obs("MSFT", 1, 280, 700),
	}
	rows := BuildMatrix(market, nil)
	labels := BuildLabels(market, 7, 0.05, -0.05)
	assert.Equal(t, len(rows), len(labels))
}
