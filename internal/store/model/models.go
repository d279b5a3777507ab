// Package model defines the persistence records backing the main
// store. Monetary values are stored as decimals to avoid binary float
// drift in the database.
package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MarketDataModel is one observed price/volume point for a symbol.
type MarketDataModel struct {
	ID            int64           `gorm:"column:id;primaryKey"`
	Symbol        string          `gorm:"column:symbol;index:idx_market_symbol_ts,priority:1"`
	TimestampUnix int64           `gorm:"column:timestamp;index:idx_market_symbol_ts,priority:2"`
	Price         decimal.Decimal `gorm:"column:price;type:TEXT"`
	Volume        int64           `gorm:"column:volume"`
	CreatedAtUnix int64           `gorm:"column:created_at"`
}

func (MarketDataModel) TableName() string { return "market_data" }

func (m MarketDataModel) Timestamp() time.Time {
	return time.Unix(m.TimestampUnix, 0).UTC()
}

// SentimentDataModel is one aggregated sentiment reading in [-1, 1].
type SentimentDataModel struct {
	ID            int64           `gorm:"column:id;primaryKey"`
	Symbol        string          `gorm:"column:symbol;index:idx_sentiment_symbol_ts,priority:1"`
	TimestampUnix int64           `gorm:"column:timestamp;index:idx_sentiment_symbol_ts,priority:2"`
	Score         decimal.Decimal `gorm:"column:score;type:TEXT"`
	Source        string          `gorm:"column:source"`
	CreatedAtUnix int64           `gorm:"column:created_at"`
}

func (SentimentDataModel) TableName() string { return "sentiment_data" }

func (m SentimentDataModel) Timestamp() time.Time {
	return time.Unix(m.TimestampUnix, 0).UTC()
}

// RecommendationModel is one emitted recommendation. Warnings collected
// during scoring persist as a JSON array.
type RecommendationModel struct {
	ID              string          `gorm:"column:id;primaryKey"`
	BatchID         string          `gorm:"column:batch_id;index"`
	Symbol          string          `gorm:"column:symbol;index"`
	Signal          string          `gorm:"column:signal"`
	ConfidenceScore decimal.Decimal `gorm:"column:confidence_score;type:TEXT"`
	SentimentScore  decimal.Decimal `gorm:"column:sentiment_score;type:TEXT"`
	RiskLevel       string          `gorm:"column:risk_level"`
	Explanation     string          `gorm:"column:explanation;type:TEXT"`
	ModelUsed       string          `gorm:"column:model_used"`
	WarningsJSON    datatypes.JSON  `gorm:"column:warnings_json;type:TEXT"`
	CreatedAtUnix   int64           `gorm:"column:created_at;index"`
}

func (RecommendationModel) TableName() string { return "recommendations" }

func (m RecommendationModel) CreatedAt() time.Time {
	return time.Unix(m.CreatedAtUnix, 0).UTC()
}

// SymbolModel is a tracked instrument in the scoring universe.
type SymbolModel struct {
	ID            int64  `gorm:"column:id;primaryKey"`
	Symbol        string `gorm:"column:symbol;uniqueIndex"`
	CompanyName   string `gorm:"column:company_name"`
	Sector        string `gorm:"column:sector"`
	Rank          int    `gorm:"column:rank"`
	CreatedAtUnix int64  `gorm:"column:created_at"`
}

func (SymbolModel) TableName() string { return "symbols" }
