// Package store is the persistence entry point: market data, sentiment
// readings, tracked symbols and emitted recommendations.
package store

import (
	"context"
	"time"

	"signalist/internal/types"
)

// RecommendationFilter narrows ListRecommendations.
type RecommendationFilter struct {
	Symbol  string
	Signal  string
	BatchID string
	Limit   int
}

// Store is the database access interface the rest of the system
// depends on.
type Store interface {
	// SaveMarketData inserts market observations.
	SaveMarketData(ctx context.Context, obs []types.MarketObservation) error
	// MarketHistory returns observations for a symbol in [from, to],
	// ordered by timestamp ascending.
	MarketHistory(ctx context.Context, symbol string, from, to time.Time) ([]types.MarketObservation, error)
	// AllMarketHistory returns observations for every symbol in the
	// window, ordered by symbol then timestamp.
	AllMarketHistory(ctx context.Context, from, to time.Time) ([]types.MarketObservation, error)

	// SaveSentiment inserts sentiment observations.
	SaveSentiment(ctx context.Context, obs []types.SentimentObservation) error
	// SentimentHistory returns readings for a symbol in [from, to],
	// optionally filtered by source, ordered by timestamp ascending.
	SentimentHistory(ctx context.Context, symbol string, from, to time.Time, source string) ([]types.SentimentObservation, error)
	// AllSentimentHistory returns every reading in the window.
	AllSentimentHistory(ctx context.Context, from, to time.Time) ([]types.SentimentObservation, error)

	// UpsertSymbols registers tracked symbols, updating name and
	// sector on conflict.
	UpsertSymbols(ctx context.Context, symbols []types.SymbolInfo) error
	// ListSymbols returns the tracked universe ordered by rank.
	ListSymbols(ctx context.Context) ([]types.SymbolInfo, error)

	// SaveRecommendations persists one generated batch.
	SaveRecommendations(ctx context.Context, recs []types.Recommendation) error
	// ListRecommendations returns recommendations newest first.
	ListRecommendations(ctx context.Context, filter RecommendationFilter) ([]types.Recommendation, error)
	// GetRecommendation looks up a single recommendation by ID.
	GetRecommendation(ctx context.Context, id string) (*types.Recommendation, error)

	Close() error
}
