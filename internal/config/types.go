package config

import "strings"

// Config is the top-level configuration carrier for signalist.
type Config struct {
	App       AppConfig       `toml:"app"`
	Storage   StorageConfig   `toml:"storage"`
	Cache     CacheConfig     `toml:"cache"`
	ML        MLConfig        `toml:"ml"`
	Recommend RecommendConfig `toml:"recommend"`
	Market    MarketConfig    `toml:"market"`
	Universe  UniverseConfig  `toml:"universe"`
	Scheduler SchedulerConfig `toml:"scheduler"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// StorageConfig locates the sqlite database, the model artifact directory
// and the raw training-run log.
type StorageConfig struct {
	DBPath          string `toml:"db_path"`
	ModelDir        string `toml:"model_dir"`
	TrainingLogPath string `toml:"training_log_path"`
}

// CacheConfig selects the secondary model cache backend. "memory" keeps
// everything in-process; "redis" adds a shared fallback store.
type CacheConfig struct {
	Backend       string `toml:"backend"` // "memory" | "redis"
	RedisHost     string `toml:"redis_host"`
	RedisPort     int    `toml:"redis_port"`
	RedisDB       int    `toml:"redis_db"`
	RedisPassword string `toml:"redis_password"`
	Prefix        string `toml:"prefix"`
}

// MLConfig carries training and inference knobs for both model kinds.
type MLConfig struct {
	HiddenSize1          int     `toml:"hidden_size1"`
	HiddenSize2          int     `toml:"hidden_size2"`
	Epochs               int     `toml:"epochs"`
	BatchSize            int     `toml:"batch_size"`
	LearningRate         float64 `toml:"learning_rate"`
	NumTrees             int     `toml:"num_trees"`
	MaxDepth             int     `toml:"max_depth"`
	Seed                 int64   `toml:"seed"`
	LabelFutureDays      int     `toml:"label_future_days"`
	BuyThreshold         float64 `toml:"buy_threshold"`
	SellThreshold        float64 `toml:"sell_threshold"`
	InferenceHistoryDays int     `toml:"inference_history_days"`
}

// RecommendConfig controls ranking and selection. The holding-period
// volatility bands are heuristic and tunable, not load-bearing.
type RecommendConfig struct {
	DailyTargetCount      int     `toml:"daily_target_count"`
	UseEnsemble           bool    `toml:"use_ensemble"`
	HoldingPeriod         string  `toml:"holding_period"` // "", "daily", "weekly", "monthly"
	ScoringTimeoutSeconds int     `toml:"scoring_timeout_seconds"`
	MaxParallel           int     `toml:"max_parallel"`
	DailyMinVolatility    float64 `toml:"daily_min_volatility"`
	WeeklyMinVolatility   float64 `toml:"weekly_min_volatility"`
	WeeklyMaxVolatility   float64 `toml:"weekly_max_volatility"`
	MonthlyMaxVolatility  float64 `toml:"monthly_max_volatility"`
}

// MarketConfig configures the market-wide volatility indicator.
type MarketConfig struct {
	IndexSymbol    string `toml:"index_symbol"`
	RefreshMinutes int    `toml:"refresh_minutes"`
}

// UniverseConfig points at the optional watchlist restriction and the
// CSV import source for the stock table.
type UniverseConfig struct {
	WatchlistPath string `toml:"watchlist_path"`
	CSVPath       string `toml:"csv_path"`
}

// SchedulerConfig drives the periodic recommendation job.
type SchedulerConfig struct {
	Enabled         bool `toml:"enabled"`
	IntervalMinutes int  `toml:"interval_minutes"`
	RunImmediately  bool `toml:"run_immediately"`
}

// keySet tracks the field paths explicitly present in config files.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes one field's default-value rule.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
