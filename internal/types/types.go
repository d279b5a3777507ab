package types

import (
	"time"

	"github.com/google/uuid"
)

// Signal is the categorical model output.
type Signal string

const (
	SignalHold Signal = "hold"
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
)

// Class indices used for training labels and model outputs.
const (
	ClassHold = 0
	ClassBuy  = 1
	ClassSell = 2

	NumClasses = 3
)

// SignalFromClass maps a class index to its signal. Unknown indices map
// to hold.
func SignalFromClass(class int) Signal {
	switch class {
	case ClassBuy:
		return SignalBuy
	case ClassSell:
		return SignalSell
	default:
		return SignalHold
	}
}

// RiskLevel is the coarse risk bucket attached to a recommendation.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Rank orders risk levels LOW < MEDIUM < HIGH for tie-breaking.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	default:
		return 2
	}
}

// HoldingPeriod is the caller's stated holding preference. The empty
// value means no preference.
type HoldingPeriod string

const (
	HoldingNone    HoldingPeriod = ""
	HoldingDaily   HoldingPeriod = "daily"
	HoldingWeekly  HoldingPeriod = "weekly"
	HoldingMonthly HoldingPeriod = "monthly"
)

// MarketObservation is one raw market data point for a symbol. Sequences
// handed to the pipeline are ordered by timestamp per symbol.
type MarketObservation struct {
	Symbol    string
	Timestamp time.Time
	Price     float64
	Volume    int64
}

// SentimentObservation is one raw sentiment data point in [-1, 1].
type SentimentObservation struct {
	Symbol    string
	Timestamp time.Time
	Score     float64
	Source    string
}

// SymbolInfo identifies a tracked instrument in the scoring universe.
type SymbolInfo struct {
	Symbol      string `json:"symbol" yaml:"symbol"`
	CompanyName string `json:"company_name" yaml:"company_name"`
	Sector      string `json:"sector,omitempty" yaml:"sector"`
	Rank        int    `json:"rank,omitempty" yaml:"rank"`
}

// Prediction is the ephemeral outcome of running one feature vector
// through the loaded models.
type Prediction struct {
	Signal        Signal              `json:"signal"`
	Confidence    float64             `json:"confidence_score"`
	Class         int                 `json:"class"`
	Probabilities [NumClasses]float64 `json:"probabilities"`
	ModelUsed     string              `json:"model_used"`
}

// Candidate is the transient ranking unit held during one generation run.
type Candidate struct {
	Symbol      string
	Signal      Signal
	Confidence  float64
	Sentiment   float64
	RiskLevel   RiskLevel
	Explanation string
	ModelUsed   string
	Warnings    []string
}

// Recommendation is the persisted output record. Append-only once
// written.
type Recommendation struct {
	ID          uuid.UUID `json:"id"`
	BatchID     uuid.UUID `json:"batch_id"`
	Symbol      string    `json:"symbol"`
	Signal      Signal    `json:"signal"`
	Confidence  float64   `json:"confidence_score"`
	Sentiment   float64   `json:"sentiment_score"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Explanation string    `json:"explanation"`
	ModelUsed   string    `json:"model_used,omitempty"`
	Warnings    []string  `json:"warnings,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
