package app

import (
	"context"
	"fmt"
	"time"

	"signalist/internal/config"
	"signalist/internal/logger"
	"signalist/internal/market"
	"signalist/internal/pkg/cache"
	"signalist/internal/predict"
	"signalist/internal/recommend"
	"signalist/internal/registry"
	"signalist/internal/store/gormstore"
	"signalist/internal/trainer"
	apihttp "signalist/internal/transport/http/api"
	"signalist/internal/universe"
)

type builder struct {
	cfg *config.Config
}

func newBuilder(cfg *config.Config) *builder {
	return &builder{cfg: cfg}
}

func (b *builder) build(ctx context.Context) (*App, error) {
	app := &App{cfg: b.cfg}

	st, err := gormstore.NewGormStore(b.cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	app.closers = append(app.closers, st.Close)

	secondary, err := buildCache(b.cfg.Cache)
	if err != nil {
		return nil, err
	}
	if secondary != nil {
		app.closers = append(app.closers, secondary.Close)
	}

	modelStore, err := registry.NewStore(b.cfg.Storage.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("open model registry: %w", err)
	}
	models := registry.NewManager(modelStore, secondary)
	for _, status := range models.Init(ctx) {
		if status.Loaded {
			logger.Infof("model %s loaded, version=%s", status.Kind, status.Version)
		} else {
			logger.Warnf("model %s not loaded: %s", status.Kind, status.Error)
		}
	}

	engine := predict.NewEngine(models)
	indicators := market.NewIndicatorService(st, b.cfg.Market.IndexSymbol,
		time.Duration(b.cfg.Market.RefreshMinutes)*time.Minute)

	runLog, err := trainer.NewRunLog(b.cfg.Storage.TrainingLogPath)
	if err != nil {
		return nil, fmt.Errorf("open training run log: %w", err)
	}
	app.closers = append(app.closers, runLog.Close)
	tr := trainer.New(st, models, runLog, b.cfg.ML)

	if b.cfg.Universe.CSVPath != "" {
		stats, err := universe.ImportCSV(ctx, st, b.cfg.Universe.CSVPath)
		if err != nil {
			return nil, fmt.Errorf("import symbol csv: %w", err)
		}
		logger.Infof("symbol universe imported: %d symbols", stats.Imported)
	}
	watchlist, err := universe.NewWatchlist(b.cfg.Universe.WatchlistPath)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	uni := universe.NewService(st, watchlist)

	app.recommends = recommend.NewService(st, engine, models, uni, indicators, b.cfg.Recommend, b.cfg.ML)

	app.apiServer, err = apihttp.NewServer(apihttp.ServerConfig{
		Addr:       b.cfg.App.HTTPAddr,
		Store:      st,
		Recommends: app.recommends,
		Trainer:    tr,
		Models:     models,
		Universe:   uni,
	})
	if err != nil {
		return nil, fmt.Errorf("build http server: %w", err)
	}
	return app, nil
}

func buildCache(cfg config.CacheConfig) (cache.Service, error) {
	switch cfg.Backend {
	case "", "memory":
		return cache.NewMemoryCache(0), nil
	case "redis":
		c, err := cache.NewRedisCache(cache.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPassword,
			Prefix:   cfg.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
