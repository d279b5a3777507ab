// Package app wires configuration into the running system: storage,
// model registry, inference engine, recommender, trainer, scheduler and
// the HTTP API.
package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"signalist/internal/config"
	"signalist/internal/logger"
	"signalist/internal/recommend"
	"signalist/internal/scheduler"
	apihttp "signalist/internal/transport/http/api"
)

type App struct {
	cfg        *config.Config
	apiServer  *apihttp.Server
	recommends *recommend.Service
	closers    []func() error
}

// NewApp builds the application from config without starting anything.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return newBuilder(cfg).build(context.Background())
}

// Run serves HTTP and, when enabled, the periodic generation job until
// the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.close()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Infof("http api listening on %s", a.apiServer.Addr())
		if err := a.apiServer.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	if a.cfg.Scheduler.Enabled {
		interval := time.Duration(a.cfg.Scheduler.IntervalMinutes) * time.Minute
		group.Go(func() error {
			s := scheduler.NewAlignedScheduler(ctx, interval)
			s.Name = "recommendations"
			s.RunImmediately = a.cfg.Scheduler.RunImmediately
			s.Start(func() {
				if _, err := a.recommends.Generate(ctx); err != nil {
					logger.Errorf("scheduled generation failed: %v", err)
				}
			})
			return nil
		})
	}

	return group.Wait()
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warnf("shutdown close failed: %v", err)
		}
	}
}
