package universe

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalist/internal/store/gormstore"
	"signalist/internal/types"
)

func newTestStore(t *testing.T) *gormstore.GormStore {
	t.Helper()
	st, err := gormstore.NewGormStore(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestImportCSVLowercaseHeader(t *testing.T) {
	st := newTestStore(t)
	data := "symbol,company_name,sector,rank\n" +
		"aapl,Apple Inc.,Technology,3\n" +
		"msft,Microsoft Corporation,Technology,13\n"

	stats, err := importFrom(context.Background(), st, csv.NewReader(strings.NewReader(data)))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Imported)
	assert.Equal(t, 0, stats.Errors)

	symbols, err := st.ListSymbols(context.Background())
	require.NoError(t, err)
	require.Len(t, symbols, 2)
	assert.Equal(t, "AAPL", symbols[0].Symbol)
	assert.Equal(t, "Apple Inc.", symbols[0].CompanyName)
	assert.Equal(t, 3, symbols[0].Rank)
}

func TestImportCSVCapitalizedHeader(t *testing.T) {
	st := newTestStore(t)
	data := "Symbol,Name,Sector\nNVDA,NVIDIA Corporation,Technology\n"

	stats, err := importFrom(context.Background(), st, csv.NewReader(strings.NewReader(data)))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Imported)
}

func TestImportCSVSkipsBadRows(t *testing.T) {
	st := newTestStore(t)
	data := "symbol,company_name,rank\n" +
		"GOOD,Good Co,1\n" +
		",No Symbol,2\n" +
		"BADRANK,Bad Rank Co,not-a-number\n"

	stats, err := importFrom(context.Background(), st, csv.NewReader(strings.NewReader(data)))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Imported)
	assert.Equal(t, 2, stats.Errors)
}

func TestImportCSVMissingColumns(t *testing.T) {
	st := newTestStore(t)
	_, err := importFrom(context.Background(), st, csv.NewReader(strings.NewReader("ticker,price\nX,1\n")))
	assert.Error(t, err)
}

func TestImportCSVMissingFile(t *testing.T) {
	st := newTestStore(t)
	_, err := ImportCSV(context.Background(), st, filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func writeWatchlist(t *testing.T, symbols ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	var b strings.Builder
	b.WriteString("symbols:\n")
	for _, s := range symbols {
		b.WriteString("  - " + s + "\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestWatchlistRestriction(t *testing.T) {
	path := writeWatchlist(t, "AAPL", "msft")
	w, err := NewWatchlist(path)
	require.NoError(t, err)
	require.NotNil(t, w)

	snap := w.Snapshot()
	assert.True(t, snap.Allows("AAPL"))
	assert.True(t, snap.Allows("msft"), "case-insensitive")
	assert.False(t, snap.Allows("NVDA"))
}

func TestWatchlistEmptyPathDisabled(t *testing.T) {
	w, err := NewWatchlist("")
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.True(t, w.Snapshot().Allows("ANYTHING"), "nil watchlist allows everything")
}

func TestEligibleWithAndWithoutWatchlist(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.UpsertSymbols(ctx, []types.SymbolInfo{
		{Symbol: "AAPL", CompanyName: "Apple Inc.", Rank: 1},
		{Symbol: "MSFT", CompanyName: "Microsoft Corporation", Rank: 2},
		{Symbol: "NVDA", CompanyName: "NVIDIA Corporation", Rank: 3},
	}))

	unrestricted := NewService(st, nil)
	all, err := unrestricted.Eligible(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	w, err := NewWatchlist(writeWatchlist(t, "AAPL", "NVDA"))
	require.NoError(t, err)
	restricted := NewService(st, w)
	some, err := restricted.Eligible(ctx)
	require.NoError(t, err)
	require.Len(t, some, 2)
	for _, sym := range some {
		assert.Contains(t, []string{"AAPL", "NVDA"}, sym.Symbol)
	}
}
