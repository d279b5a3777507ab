// Package gormstore implements the main store on Gorm + SQLite.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"signalist/internal/store"
	storemodel "signalist/internal/store/model"
	"signalist/internal/types"
)

// GormStore implements store.Store on a single SQLite file.
type GormStore struct {
	db *gorm.DB
}

var _ store.Store = (*GormStore)(nil)

// NewGormStore opens (or creates) the database and migrates the schema.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path is required")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	models := []interface{}{
		&storemodel.MarketDataModel{},
		&storemodel.SentimentDataModel{},
		&storemodel.RecommendationModel{},
		&storemodel.SymbolModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("gorm store: migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) SaveMarketData(ctx context.Context, obs []types.MarketObservation) error {
	if len(obs) == 0 {
		return nil
	}
	now := time.Now().Unix()
	rows := make([]storemodel.MarketDataModel, len(obs))
	for i, o := range obs {
		rows[i] = storemodel.MarketDataModel{
			Symbol:        o.Symbol,
			TimestampUnix: o.Timestamp.Unix(),
			Price:         decimal.NewFromFloat(o.Price),
			Volume:        o.Volume,
			CreatedAtUnix: now,
		}
	}
	return s.db.WithContext(ctx).CreateInBatches(rows, 200).Error
}

func (s *GormStore) MarketHistory(ctx context.Context, symbol string, from, to time.Time) ([]types.MarketObservation, error) {
	var rows []storemodel.MarketDataModel
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND timestamp >= ? AND timestamp <= ?", symbol, from.Unix(), to.Unix()).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return marketRowsToObservations(rows), nil
}

func (s *GormStore) AllMarketHistory(ctx context.Context, from, to time.Time) ([]types.MarketObservation, error) {
	var rows []storemodel.MarketDataModel
	err := s.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp <= ?", from.Unix(), to.Unix()).
		Order("symbol ASC, timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return marketRowsToObservations(rows), nil
}

func marketRowsToObservations(rows []storemodel.MarketDataModel) []types.MarketObservation {
	obs := make([]types.MarketObservation, len(rows))
	for i, r := range rows {
		obs[i] = types.MarketObservation{
			Symbol:    r.Symbol,
			Timestamp: r.Timestamp(),
			Price:     r.Price.InexactFloat64(),
			Volume:    r.Volume,
		}
	}
	return obs
}

func (s *GormStore) SaveSentiment(ctx context.Context, obs []types.SentimentObservation) error {
	if len(obs) == 0 {
		return nil
	}
	now := time.Now().Unix()
	rows := make([]storemodel.SentimentDataModel, len(obs))
	for i, o := range obs {
		rows[i] = storemodel.SentimentDataModel{
			Symbol:        o.Symbol,
			TimestampUnix: o.Timestamp.Unix(),
			Score:         decimal.NewFromFloat(o.Score),
			Source:        o.Source,
			CreatedAtUnix: now,
		}
	}
	return s.db.WithContext(ctx).CreateInBatches(rows, 200).Error
}

func (s *GormStore) SentimentHistory(ctx context.Context, symbol string, from, to time.Time, source string) ([]types.SentimentObservation, error) {
	q := s.db.WithContext(ctx).
		Where("symbol = ? AND timestamp >= ? AND timestamp <= ?", symbol, from.Unix(), to.Unix())
	if source != "" {
		q = q.Where("source = ?", source)
	}
	var rows []storemodel.SentimentDataModel
	if err := q.Order("timestamp ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return sentimentRowsToObservations(rows), nil
}

func (s *GormStore) AllSentimentHistory(ctx context.Context, from, to time.Time) ([]types.SentimentObservation, error) {
	var rows []storemodel.SentimentDataModel
	err := s.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp <= ?", from.Unix(), to.Unix()).
		Order("symbol ASC, timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return sentimentRowsToObservations(rows), nil
}

func sentimentRowsToObservations(rows []storemodel.SentimentDataModel) []types.SentimentObservation {
	obs := make([]types.SentimentObservation, len(rows))
	for i, r := range rows {
		obs[i] = types.SentimentObservation{
			Symbol:    r.Symbol,
			Timestamp: r.Timestamp(),
			Score:     r.Score.InexactFloat64(),
			Source:    r.Source,
		}
	}
	return obs
}

func (s *GormStore) UpsertSymbols(ctx context.Context, symbols []types.SymbolInfo) error {
	if len(symbols) == 0 {
		return nil
	}
	now := time.Now().Unix()
	rows := make([]storemodel.SymbolModel, len(symbols))
	for i, sym := range symbols {
		rows[i] = storemodel.SymbolModel{
			Symbol:        sym.Symbol,
			CompanyName:   sym.CompanyName,
			Sector:        sym.Sector,
			Rank:          sym.Rank,
			CreatedAtUnix: now,
		}
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"company_name", "sector", "rank"}),
	}).CreateInBatches(rows, 200).Error
}

func (s *GormStore) ListSymbols(ctx context.Context) ([]types.SymbolInfo, error) {
	var rows []storemodel.SymbolModel
	if err := s.db.WithContext(ctx).Order("rank ASC, symbol ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	symbols := make([]types.SymbolInfo, len(rows))
	for i, r := range rows {
		symbols[i] = types.SymbolInfo{
			Symbol:      r.Symbol,
			CompanyName: r.CompanyName,
			Sector:      r.Sector,
			Rank:        r.Rank,
		}
	}
	return symbols, nil
}

func (s *GormStore) SaveRecommendations(ctx context.Context, recs []types.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([]storemodel.RecommendationModel, len(recs))
	for i, r := range recs {
		warnings, err := json.Marshal(r.Warnings)
		if err != nil {
			return fmt.Errorf("marshal warnings for %s: %w", r.Symbol, err)
		}
		rows[i] = storemodel.RecommendationModel{
			ID:              r.ID.String(),
			BatchID:         r.BatchID.String(),
			Symbol:          r.Symbol,
			Signal:          string(r.Signal),
			ConfidenceScore: decimal.NewFromFloat(r.Confidence),
			SentimentScore:  decimal.NewFromFloat(r.Sentiment),
			RiskLevel:       string(r.RiskLevel),
			Explanation:     r.Explanation,
			ModelUsed:       r.ModelUsed,
			WarningsJSON:    datatypes.JSON(warnings),
			CreatedAtUnix:   r.CreatedAt.Unix(),
		}
	}
	return s.db.WithContext(ctx).CreateInBatches(rows, 200).Error
}

func (s *GormStore) ListRecommendations(ctx context.Context, filter store.RecommendationFilter) ([]types.Recommendation, error) {
	q := s.db.WithContext(ctx).Model(&storemodel.RecommendationModel{})
	if filter.Symbol != "" {
		q = q.Where("symbol = ?", filter.Symbol)
	}
	if filter.Signal != "" {
		q = q.Where("signal = ?", filter.Signal)
	}
	if filter.BatchID != "" {
		q = q.Where("batch_id = ?", filter.BatchID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []storemodel.RecommendationModel
	if err := q.Order("created_at DESC, confidence_score DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	recs := make([]types.Recommendation, 0, len(rows))
	for _, row := range rows {
		rec, err := recommendationFromRow(row)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *GormStore) GetRecommendation(ctx context.Context, id string) (*types.Recommendation, error) {
	var row storemodel.RecommendationModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	rec, err := recommendationFromRow(row)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func recommendationFromRow(row storemodel.RecommendationModel) (types.Recommendation, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return types.Recommendation{}, fmt.Errorf("recommendation %s: bad id: %w", row.ID, err)
	}
	batchID, err := uuid.Parse(row.BatchID)
	if err != nil {
		return types.Recommendation{}, fmt.Errorf("recommendation %s: bad batch id: %w", row.ID, err)
	}
	var warnings []string
	if len(row.WarningsJSON) > 0 {
		if err := json.Unmarshal(row.WarningsJSON, &warnings); err != nil {
			return types.Recommendation{}, fmt.Errorf("recommendation %s: bad warnings: %w", row.ID, err)
		}
	}
	return types.Recommendation{
		ID:          id,
		BatchID:     batchID,
		Symbol:      row.Symbol,
		Signal:      types.Signal(row.Signal),
		Confidence:  row.ConfidenceScore.InexactFloat64(),
		Sentiment:   row.SentimentScore.InexactFloat64(),
		RiskLevel:   types.RiskLevel(row.RiskLevel),
		Explanation: row.Explanation,
		ModelUsed:   row.ModelUsed,
		Warnings:    warnings,
		CreatedAt:   row.CreatedAt(),
	}, nil
}
