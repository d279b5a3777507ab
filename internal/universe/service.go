package universe

import (
	"context"

	"signalist/internal/logger"
	"signalist/internal/store"
	"signalist/internal/types"
)

// Service resolves the scoring universe: every tracked symbol, filtered
// through the watchlist when one is configured.
type Service struct {
	store     store.Store
	watchlist *Watchlist
}

func NewService(st store.Store, watchlist *Watchlist) *Service {
	return &Service{store: st, watchlist: watchlist}
}

// Eligible lists the symbols a generation run should score. "No
// watchlist" and "all symbols listed" behave identically.
func (s *Service) Eligible(ctx context.Context) ([]types.SymbolInfo, error) {
	symbols, err := s.store.ListSymbols(ctx)
	if err != nil {
		return nil, err
	}
	snap := s.watchlist.Snapshot()
	if len(snap.Symbols) == 0 {
		return symbols, nil
	}
	eligible := make([]types.SymbolInfo, 0, len(symbols))
	for _, sym := range symbols {
		if snap.Allows(sym.Symbol) {
			eligible = append(eligible, sym)
		}
	}
	if dropped := len(symbols) - len(eligible); dropped > 0 {
		logger.Debugf("watchlist restricted universe: %d of %d symbols eligible", len(eligible), len(symbols))
	}
	return eligible, nil
}
