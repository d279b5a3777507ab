package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalist/internal/config"
)

func minimalConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{
			Env:      "test",
			LogLevel: "error",
			HTTPAddr: ":0",
		},
		Storage: config.StorageConfig{
			DBPath:          filepath.Join(dir, "data.db"),
			ModelDir:        filepath.Join(dir, "models"),
			TrainingLogPath: filepath.Join(dir, "runs.db"),
		},
		Cache: config.CacheConfig{Backend: "memory"},
		ML: config.MLConfig{
			HiddenSize1: 8, HiddenSize2: 4, Epochs: 5, LearningRate: 0.001,
			NumTrees: 5, MaxDepth: 3, Seed: 42,
			LabelFutureDays: 7, BuyThreshold: 0.05, SellThreshold: -0.05,
			InferenceHistoryDays: 14,
		},
		Recommend: config.RecommendConfig{DailyTargetCount: 5, UseEnsemble: true},
		Market:    config.MarketConfig{IndexSymbol: "SPY", RefreshMinutes: 30},
	}
}

func TestNewAppBuildsWithoutModels(t *testing.T) {
	a, err := NewApp(minimalConfig(t))
	require.NoError(t, err, "missing model artifacts must not block startup")
	require.NotNil(t, a)
	assert.NotNil(t, a.apiServer)
	assert.NotNil(t, a.recommends)
	a.close()
}

func TestNewAppNilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}

func TestNewAppRejectsUnknownCacheBackend(t *testing.T) {
	cfg := minimalConfig(t)
	cfg.Cache.Backend = "memcached"
	_, err := NewApp(cfg)
	assert.Error(t, err)
}

func TestNewAppImportsUniverseCSV(t *testing.T) {
	cfg := minimalConfig(t)
	csvPath := filepath.Join(t.TempDir(), "symbols.csv")
	writeFile(t, csvPath, "symbol,company_name\nAAPL,Apple Inc.\n")
	cfg.Universe.CSVPath = csvPath

	a, err := NewApp(cfg)
	require.NoError(t, err)
	a.close()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
