package app

import (
	"context"
	"fmt"

	"github.com/hollowbeak/syndibot/internal/browser"
	"github.com/hollowbeak/syndibot/internal/config"
	"github.com/hollowbeak/syndibot/internal/db"
	"github.com/hollowbeak/syndibot/internal/generator"
	"github.com/hollowbeak/syndibot/internal/metrics"
	"github.com/hollowbeak/syndibot/internal/platform"
)

// App is the main application container holding all dependencies.
type App struct {
	Config    *config.Config
	Store     *db.Store
	Manager   *platform.Manager
	Collector *metrics.Collector
	Health    *platform.Health
	Generator *generator.Generator
}

// New creates a new application instance with all dependencies wired up.
// A nil browser factory selects the Chrome-backed default; tests pass fakes.
func New(ctx context.Context, cfg *config.Config, factory browser.Factory) (*App, error) {
	if factory == nil {
		factory = browser.NewChromeFactory(cfg.BrowserHeadless)
	}

	// Open the database; NewStore brings the schema up to date.
	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create metrics collector: %w", err)
	}

	manager, err := platform.NewManager(cfg, factory, collector)
	if err != nil {
		store.Close()
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Store:     store,
		Manager:   manager,
		Collector: collector,
		Health:    platform.NewHealth(),
	}

	if cfg.OpenAIAPIKey != "" {
		a.Generator = generator.New(generator.Config{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.OpenAITemperature,
		})
	}

	return a, nil
}

// Close closes all resources.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
