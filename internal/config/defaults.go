package config

const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9985"
	defaultAppLogPath  = "data/logs/signalist.log"

	defaultStorageDBPath      = "data/db/signalist.db"
	defaultStorageModelDir    = "data/ml-models"
	defaultStorageTrainingLog = "data/db/training_runs.db"

	defaultCacheBackend = "memory"
	defaultCachePrefix  = "signalist"
	defaultRedisHost    = "localhost"
	defaultRedisPort    = 6379

	defaultMLHiddenSize1    = 128
	defaultMLHiddenSize2    = 64
	defaultMLEpochs         = 50
	defaultMLBatchSize      = 32
	defaultMLLearningRate   = 0.001
	defaultMLNumTrees       = 100
	defaultMLMaxDepth       = 10
	defaultMLSeed           = 42
	defaultMLFutureDays     = 7
	defaultMLBuyThreshold   = 0.05
	defaultMLSellThreshold  = -0.05
	defaultMLInferenceDays  = 14
	defaultRecommendTarget  = 10
	defaultRecommendTimeout = 30
	defaultRecommendWorkers = 4

	defaultDailyMinVolatility   = 0.05
	defaultWeeklyMinVolatility  = 0.02
	defaultWeeklyMaxVolatility  = 0.6
	defaultMonthlyMaxVolatility = 0.4

	defaultMarketIndexSymbol = "SPY"
	defaultMarketRefreshMin  = 30

	defaultSchedulerInterval = 1440
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Storage.applyDefaults(keys)
	c.Cache.applyDefaults(keys)
	c.ML.applyDefaults(keys)
	c.Recommend.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Scheduler.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (s *StorageConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("storage.db_path", &s.DBPath, defaultStorageDBPath),
		stringFieldDefault("storage.model_dir", &s.ModelDir, defaultStorageModelDir),
		stringFieldDefault("storage.training_log_path", &s.TrainingLogPath, defaultStorageTrainingLog),
	)
}

func (c *CacheConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("cache.backend", &c.Backend, defaultCacheBackend),
		stringFieldDefault("cache.redis_host", &c.RedisHost, defaultRedisHost),
		stringFieldDefault("cache.prefix", &c.Prefix, defaultCachePrefix),
		fieldDefault{
			key:   "cache.redis_port",
			need:  func() bool { return c.RedisPort <= 0 },
			apply: func() { c.RedisPort = defaultRedisPort },
		},
	)
}

func (m *MLConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "ml.hidden_size1",
			need:  func() bool { return m.HiddenSize1 <= 0 },
			apply: func() { m.HiddenSize1 = defaultMLHiddenSize1 },
		},
		fieldDefault{
			key:   "ml.hidden_size2",
			need:  func() bool { return m.HiddenSize2 <= 0 },
			apply: func() { m.HiddenSize2 = defaultMLHiddenSize2 },
		},
		fieldDefault{
			key:   "ml.epochs",
			need:  func() bool { return m.Epochs <= 0 },
			apply: func() { m.Epochs = defaultMLEpochs },
		},
		fieldDefault{
			key:   "ml.batch_size",
			need:  func() bool { return m.BatchSize <= 0 },
			apply: func() { m.BatchSize = defaultMLBatchSize },
		},
		fieldDefault{
			key:   "ml.learning_rate",
			need:  func() bool { return m.LearningRate <= 0 },
			apply: func() { m.LearningRate = defaultMLLearningRate },
		},
		fieldDefault{
			key:   "ml.num_trees",
			need:  func() bool { return m.NumTrees <= 0 },
			apply: func() { m.NumTrees = defaultMLNumTrees },
		},
		fieldDefault{
			key:   "ml.max_depth",
			need:  func() bool { return m.MaxDepth <= 0 },
			apply: func() { m.MaxDepth = defaultMLMaxDepth },
		},
		fieldDefault{
			key:   "ml.seed",
			need:  func() bool { return m.Seed == 0 },
			apply: func() { m.Seed = defaultMLSeed },
		},
		fieldDefault{
			key:   "ml.label_future_days",
			need:  func() bool { return m.LabelFutureDays <= 0 },
			apply: func() { m.LabelFutureDays = defaultMLFutureDays },
		},
		fieldDefault{
			key:   "ml.buy_threshold",
			need:  func() bool { return m.BuyThreshold == 0 },
			apply: func() { m.BuyThreshold = defaultMLBuyThreshold },
		},
		fieldDefault{
			key:   "ml.sell_threshold",
			need:  func() bool { return m.SellThreshold == 0 },
			apply: func() { m.SellThreshold = defaultMLSellThreshold },
		},
		fieldDefault{
			key:   "ml.inference_history_days",
			need:  func() bool { return m.InferenceHistoryDays <= 0 },
			apply: func() { m.InferenceHistoryDays = defaultMLInferenceDays },
		},
	)
}

func (r *RecommendConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("recommend.use_ensemble", &r.UseEnsemble, true),
		fieldDefault{
			key:   "recommend.daily_target_count",
			need:  func() bool { return r.DailyTargetCount <= 0 },
			apply: func() { r.DailyTargetCount = defaultRecommendTarget },
		},
		fieldDefault{
			key:   "recommend.scoring_timeout_seconds",
			need:  func() bool { return r.ScoringTimeoutSeconds <= 0 },
			apply: func() { r.ScoringTimeoutSeconds = defaultRecommendTimeout },
		},
		fieldDefault{
			key:   "recommend.max_parallel",
			need:  func() bool { return r.MaxParallel <= 0 },
			apply: func() { r.MaxParallel = defaultRecommendWorkers },
		},
		fieldDefault{
			key:   "recommend.daily_min_volatility",
			need:  func() bool { return r.DailyMinVolatility <= 0 },
			apply: func() { r.DailyMinVolatility = defaultDailyMinVolatility },
		},
		fieldDefault{
			key:   "recommend.weekly_min_volatility",
			need:  func() bool { return r.WeeklyMinVolatility <= 0 },
			apply: func() { r.WeeklyMinVolatility = defaultWeeklyMinVolatility },
		},
		fieldDefault{
			key:   "recommend.weekly_max_volatility",
			need:  func() bool { return r.WeeklyMaxVolatility <= 0 },
			apply: func() { r.WeeklyMaxVolatility = defaultWeeklyMaxVolatility },
		},
		fieldDefault{
			key:   "recommend.monthly_max_volatility",
			need:  func() bool { return r.MonthlyMaxVolatility <= 0 },
			apply: func() { r.MonthlyMaxVolatility = defaultMonthlyMaxVolatility },
		},
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.index_symbol", &m.IndexSymbol, defaultMarketIndexSymbol),
		fieldDefault{
			key:   "market.refresh_minutes",
			need:  func() bool { return m.RefreshMinutes <= 0 },
			apply: func() { m.RefreshMinutes = defaultMarketRefreshMin },
		},
	)
}

func (s *SchedulerConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "scheduler.interval_minutes",
			need:  func() bool { return s.IntervalMinutes <= 0 },
			apply: func() { s.IntervalMinutes = defaultSchedulerInterval },
		},
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && *target == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
