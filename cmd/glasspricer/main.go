// Glasspricer - risk-aware proposal pricing for glazing contractors.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/api"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/bus"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/cache"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/margin"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/market"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/overhead"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/pricing"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/repository"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/risk"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("GLASSPRICER_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting glasspricer",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	if os.Getenv("GLASSPRICER_PROFILE") == string(domain.ProfileDistributed) {
		cfg = domain.DistributedConfig()
		slog.Info("running in distributed profile")
	}

	slog.Info("configuration loaded",
		"profile", cfg.Profile,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Seed the risk factor catalog on first run so the pipeline and the
	// /factors API have definitions to work with.
	if err := seedCatalog(ctx, repo); err != nil {
		slog.Error("failed to seed risk factor catalog", "error", err)
		os.Exit(1)
	}

	// Initialize Risk Assessment Engine backed by the persisted catalog
	assessEngine, err := risk.NewAssessmentEngine(repo)
	if err != nil {
		slog.Error("failed to initialize risk assessment engine", "error", err)
		os.Exit(1)
	}
	slog.Info("risk assessment engine initialized")

	// Initialize Market Engine with benchmark caching
	marketEngine := market.NewEngine(repo, cacheImpl)
	slog.Info("market engine initialized")

	// Initialize the pricing Orchestrator
	marginCfg := margin.Config{MinMargin: cfg.Pricing.MinMargin, MaxMargin: cfg.Pricing.MaxMargin}
	if errs := margin.Validate(marginCfg); len(errs) > 0 {
		slog.Error("invalid margin configuration", "errors", errs)
		os.Exit(1)
	}
	orchestrator := pricing.NewOrchestrator(
		assessEngine,
		overhead.NewCalculator(overhead.DefaultTiers(), cfg.Pricing.DefaultOverheadRate),
		marginCfg,
		marketEngine,
		nil,
		pricing.NewAuditLog(cfg.Pricing.AuditLogMaxEntries),
		busImpl,
	)
	slog.Info("pricing orchestrator initialized")

	// Initialize calculation history worker
	var historyWorker *worker.Worker
	if cfg.Profile == domain.ProfileDistributed || os.Getenv("GLASSPRICER_HISTORY_WORKER") == "true" {
		historyWorker = worker.NewWorker(busImpl, repo)

		workerCfg := worker.Config{
			DeriveMarketData: true,
		}
		if err := historyWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start history worker", "error", err)
		} else {
			slog.Info("history worker started")
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, orchestrator, repo, marketEngine, cfg.Pricing, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("glasspricer is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop history worker first
	if historyWorker != nil {
		if err := historyWorker.Stop(); err != nil {
			slog.Error("failed to stop history worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("glasspricer shutdown complete")
}

// seedCatalog writes the built-in risk factor catalog to the repository when
// no categories exist yet. Existing definitions are never overwritten, so
// operators can tune weights and options via the database.
func seedCatalog(ctx context.Context, repo domain.Repository) error {
	existing, err := repo.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list risk categories: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("risk factor catalog loaded", "categories", len(existing))
		return nil
	}

	categories, err := risk.DefaultCatalog().ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load built-in catalog: %w", err)
	}
	for _, cat := range categories {
		if err := repo.SaveCategory(ctx, cat); err != nil {
			return fmt.Errorf("failed to seed category %s: %w", cat.Name, err)
		}
	}
	slog.Info("seeded built-in risk factor catalog", "categories", len(categories))
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  glasspricer - proposal pricing engine")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Profile:  %s\n", cfg.Profile)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST   /calculate       - Price a proposal")
	fmt.Println("    GET    /audit-logs      - List calculation audit entries")
	fmt.Println("    DELETE /audit-logs      - Clear the audit log")
	fmt.Println("    GET    /statistics      - Aggregate calculation statistics")
	fmt.Println("    GET    /factors         - List the risk factor catalog")
	fmt.Println("    GET    /factors/{name}  - Get one risk factor")
	fmt.Println("    GET    /market-data     - List historical market records")
	fmt.Println("    POST   /market-data     - Record market data")
	fmt.Println("    GET    /benchmark       - Benchmark a cost against the market")
	fmt.Println("    GET    /calculations    - List calculation history")
	fmt.Println("    GET    /health          - Health check")
	fmt.Println()
}
