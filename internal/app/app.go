// Package app wires configuration, storage, clients, and services into the
// running daemon core used by cmd/foliod.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bgunnison/folio/internal/clients/alphavantage"
	"github.com/bgunnison/folio/internal/clients/finnhub"
	"github.com/bgunnison/folio/internal/clients/gemini"
	"github.com/bgunnison/folio/internal/clients/yahoo"
	"github.com/bgunnison/folio/internal/common"
	"github.com/bgunnison/folio/internal/interfaces"
	"github.com/bgunnison/folio/internal/services/assistant"
	"github.com/bgunnison/folio/internal/services/portfolio"
	"github.com/bgunnison/folio/internal/services/quote"
	"github.com/bgunnison/folio/internal/services/scheduler"
	"github.com/bgunnison/folio/internal/storage"
)

// App holds all initialized services and clients.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Gateway     interfaces.QuoteGateway
	Engine      *portfolio.Engine
	Assistant   interfaces.AssistantService
	Scheduler   *scheduler.Scheduler
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes the daemon core. configPath may be empty, in which case
// FOLIO_CONFIG and a folio.toml next to the binary are tried.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	startupStart := time.Now()
	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "folio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/folio.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative data path to the binary directory so the daemon is
	// self-contained wherever it is installed.
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	logger := common.NewLogger(config.Logging.Level)

	storageManager, err := storage.NewManager(logger, &config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Load persisted state first so stored credentials can back fill API keys.
	persisted, loadErr := storageManager.ConfigStore().Load()
	var credentials map[string]string
	if loadErr == nil {
		credentials = persisted.Credentials
	}

	var providers []interfaces.QuoteProvider

	finnhubKey := common.ResolveAPIKey(config.Clients.Finnhub.APIKey, credentials, "finnhub")
	if finnhubKey != "" {
		providers = append(providers, finnhub.NewClient(finnhubKey,
			finnhub.WithBaseURL(config.Clients.Finnhub.BaseURL),
			finnhub.WithLogger(logger),
			finnhub.WithRateLimit(config.Clients.Finnhub.RateLimit),
			finnhub.WithTimeout(config.Clients.Finnhub.GetTimeout()),
		))
	} else {
		logger.Warn().Msg("Finnhub API key not configured - provider disabled")
	}

	alphaKey := common.ResolveAPIKey(config.Clients.AlphaVantage.APIKey, credentials, "alphavantage")
	if alphaKey != "" {
		providers = append(providers, alphavantage.NewClient(alphaKey,
			alphavantage.WithBaseURL(config.Clients.AlphaVantage.BaseURL),
			alphavantage.WithLogger(logger),
			alphavantage.WithRateLimit(config.Clients.AlphaVantage.RateLimit),
			alphavantage.WithTimeout(config.Clients.AlphaVantage.GetTimeout()),
		))
	} else {
		logger.Warn().Msg("Alpha Vantage API key not configured - provider disabled")
	}

	// Yahoo needs no key and always anchors the fallback chain.
	providers = append(providers, yahoo.NewClient(yahoo.WithLogger(logger)))

	gateway := quote.NewGateway(logger, providers,
		quote.WithCooldown(config.Refresh.GetProviderCooldown()),
	)

	engine := portfolio.NewEngine(storageManager, gateway, logger)
	if err := engine.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	var assistantClient interfaces.AssistantClient
	geminiKey := common.ResolveAPIKey(config.Clients.Gemini.APIKey, credentials, "gemini")
	if geminiKey != "" {
		client, err := gemini.NewClient(ctx, geminiKey,
			gemini.WithModel(config.Clients.Gemini.Model),
			gemini.WithLogger(logger),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Gemini client initialization failed - assistant disabled")
		} else {
			assistantClient = client
		}
	} else {
		logger.Warn().Msg("Gemini API key not configured - assistant disabled")
	}

	assistantService := assistant.NewService(engine, assistantClient, logger)
	sched := scheduler.NewScheduler(engine, config.Refresh.GetInterval(), logger)

	logger.Info().
		Dur("elapsed", time.Since(startupStart)).
		Int("providers", len(providers)).
		Msg("Application initialized")

	return &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Gateway:     gateway,
		Engine:      engine,
		Assistant:   assistantService,
		Scheduler:   sched,
		StartupTime: startupStart,
	}, nil
}

// Start launches the refresh scheduler.
func (a *App) Start(ctx context.Context) {
	a.Scheduler.Start(ctx)
}

// Shutdown stops the scheduler, letting an in-flight cycle complete.
func (a *App) Shutdown() {
	a.Scheduler.Stop()
	a.Logger.Info().Msg("Application stopped")
}
