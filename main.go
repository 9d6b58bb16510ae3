package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ghent-immo-scraper/config"
	"ghent-immo-scraper/scraper"
	"ghent-immo-scraper/scraper/browser"
	"ghent-immo-scraper/scraper/fetch"
	"ghent-immo-scraper/server"
	"ghent-immo-scraper/services"
	"ghent-immo-scraper/storage"
	"ghent-immo-scraper/utils"
)

func main() {
	serve := flag.Bool("serve", false, "run the HTTP server instead of a single pass")
	seed := flag.Bool("seed", false, "seed the source catalogue and exit")
	export := flag.Bool("export", false, "export active listings to CSV and exit")
	flag.Parse()

	cfg := config.Load()
	logger := utils.NewLogger(cfg.LogLevel, cfg.PrettyLog)
	defer logger.Sync()

	logger.Info("=== Ghent house scraper starting ===")
	logger.Info("Config — price band: %d–%d | max pages: %d | retries: %d",
		cfg.PriceMin, cfg.PriceMax, cfg.MaxPages, cfg.MaxRetries)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogue, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		logger.Error("Source catalogue invalid: %v", err)
		os.Exit(1)
	}

	store, err := storage.NewPostgres(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure Docker is running: docker compose up -d")
		os.Exit(1)
	}
	defer store.Close()

	seeded, err := store.SeedSources(ctx, catalogue)
	if err != nil {
		logger.Error("Failed to seed sources: %v", err)
		os.Exit(1)
	}
	logger.Info("Source catalogue ready: %d sources", len(seeded))

	if *seed {
		return
	}

	if *export {
		path := cfg.CSVExportPath
		if path == "" {
			path = "listings.csv"
		}
		n, err := storage.ExportCSV(ctx, store, path)
		if err != nil {
			logger.Error("CSV export failed: %v", err)
			os.Exit(1)
		}
		logger.Info("Exported %d active listings to %s", n, path)
		return
	}

	opts := fetch.Options{
		PriceMin:  cfg.PriceMin,
		PriceMax:  cfg.PriceMax,
		MaxPages:  cfg.MaxPages,
		PageDelay: time.Duration(cfg.PageDelayMs) * time.Millisecond,
		DebugDir:  cfg.DebugDir,
	}

	// Chrome is only started when a configured source actually needs a
	// rendered page.
	var renderer browser.Renderer
	for _, src := range seeded {
		if src.Config.Strategy.NeedsBrowser() {
			session, err := browser.NewSession(cfg.ChromeBin, cfg.MaxRetries, logger)
			if err != nil {
				logger.Error("Failed to start browser session: %v", err)
				os.Exit(1)
			}
			defer session.Close()
			renderer = session
			break
		}
	}

	client := fetch.NewClient(time.Duration(cfg.FetchTimeoutS) * time.Second)
	registry := scraper.NewRegistry(client, renderer, opts, logger)
	filter := services.NewFilter(cfg.PriceMin, cfg.PriceMax, logger)
	ingestor := services.NewIngestor(registry, filter, store, store,
		time.Duration(cfg.SourceDelayMs)*time.Millisecond, logger)

	if *serve {
		runServer(ctx, cfg, ingestor, logger)
		return
	}

	results, err := ingestor.Run(ctx)
	if err != nil {
		logger.Error("Pass aborted: %v", err)
		os.Exit(1)
	}

	var added, updated int
	for _, r := range results {
		added += r.Added
		updated += r.Updated
	}
	logger.Info("Pass complete: %d added, %d updated across %d sources",
		added, updated, len(results))

	reportSvc := services.NewReportService(store, logger)
	report, err := reportSvc.Generate(ctx)
	if err != nil {
		logger.Error("Failed to build inventory report: %v", err)
		return
	}
	reportSvc.Print(report)

	if cfg.CSVExportPath != "" {
		n, err := storage.ExportCSV(ctx, store, cfg.CSVExportPath)
		if err != nil {
			logger.Error("CSV export failed: %v", err)
			return
		}
		logger.Info("Exported %d active listings to %s", n, cfg.CSVExportPath)
	}
}

// runServer blocks until the listener fails or a shutdown signal arrives.
func runServer(ctx context.Context, cfg *config.Config, ingestor *services.Ingestor, logger *utils.Logger) {
	srv := server.New(cfg.ListenAddr, ingestor, cfg.ScrapeSecret, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed: %v", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("Shutdown failed: %v", err)
		}
	}
}
