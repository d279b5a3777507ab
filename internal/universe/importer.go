package universe

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"signalist/internal/logger"
	"signalist/internal/store"
	"signalist/internal/types"
)

// ImportStats summarizes one CSV import run.
type ImportStats struct {
	Total    int `json:"total_rows"`
	Imported int `json:"imported"`
	Errors   int `json:"errors"`
}

// ImportCSV loads symbols into the store from a CSV file. Both header
// conventions are accepted: symbol,company_name,sector,rank and the
// capitalized Symbol,Name,Sector variant. Bad rows are counted and
// skipped, never fatal.
func ImportCSV(ctx context.Context, st store.Store, path string) (ImportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportStats{}, fmt.Errorf("open symbol csv: %w", err)
	}
	defer f.Close()
	return importFrom(ctx, st, csv.NewReader(f))
}

func importFrom(ctx context.Context, st store.Store, reader *csv.Reader) (ImportStats, error) {
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return ImportStats{}, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	symbolCol, okSymbol := pick(cols, "symbol")
	nameCol, okName := pick(cols, "company_name", "name")
	if !okSymbol || !okName {
		return ImportStats{}, fmt.Errorf("csv missing required columns, need symbol and company_name/name, found %v", header)
	}
	sectorCol, _ := pick(cols, "sector")
	rankCol, hasRank := pick(cols, "rank", "fortune_500_rank")

	var stats ImportStats
	var symbols []types.SymbolInfo
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Errorf("row %d: malformed csv record: %v", row, err)
			stats.Errors++
			continue
		}
		stats.Total++

		symbol := strings.ToUpper(strings.TrimSpace(field(record, symbolCol)))
		name := strings.TrimSpace(field(record, nameCol))
		if symbol == "" || name == "" {
			logger.Warnf("row %d: missing symbol or company name, skipping", row)
			stats.Errors++
			continue
		}
		info := types.SymbolInfo{
			Symbol:      symbol,
			CompanyName: name,
			Sector:      strings.TrimSpace(field(record, sectorCol)),
		}
		if hasRank {
			if raw := strings.TrimSpace(field(record, rankCol)); raw != "" {
				rank, err := strconv.Atoi(raw)
				if err != nil {
					logger.Warnf("row %d: invalid rank %q, skipping", row, raw)
					stats.Errors++
					continue
				}
				info.Rank = rank
			}
		}
		symbols = append(symbols, info)
	}

	if len(symbols) > 0 {
		if err := st.UpsertSymbols(ctx, symbols); err != nil {
			return stats, fmt.Errorf("upsert symbols: %w", err)
		}
		stats.Imported = len(symbols)
	}
	logger.Infof("symbol import finished: %d imported, %d errors of %d rows", stats.Imported, stats.Errors, stats.Total)
	return stats, nil
}

func pick(cols map[string]int, names ...string) (int, bool) {
	for _, name := range names {
		if idx, ok := cols[name]; ok {
			return idx, true
		}
	}
	return -1, false
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
