package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/archindex/internal/api"
	"github.com/dgallion1/archindex/internal/attributes"
	"github.com/dgallion1/archindex/internal/config"
	"github.com/dgallion1/archindex/internal/ocr"
	"github.com/dgallion1/archindex/internal/parser"
	"github.com/dgallion1/archindex/internal/pipeline"
	"github.com/dgallion1/archindex/internal/report"
	"github.com/dgallion1/archindex/internal/stats"
	"github.com/dgallion1/archindex/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.New(cfg.DataDir)
	if err := st.Ensure(); err != nil {
		log.Error("prepare data dir", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	bank, err := loadBank(cfg.PatternsFile)
	if err != nil {
		log.Error("load pattern bank", "file", cfg.PatternsFile, "error", err)
		os.Exit(1)
	}

	// Born-digital files are read directly; scans go to the OCR service
	// when one is configured.
	var fallback ocr.Recognizer = ocr.Stub{}
	var remote *ocr.Remote
	if cfg.OCREndpoint != "" {
		remote = ocr.NewRemote(cfg.OCREndpoint, cfg.OCRAPIKey, cfg.OCRTimeout)
		fallback = remote
	} else {
		log.Warn("no OCR endpoint configured, scans return sample text")
	}
	recognizer := &ocr.Document{
		Parsers:  parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
		Fallback: fallback,
	}

	agg := stats.NewAggregator(st, stats.NewLatency(cfg.LatencyWindow), cfg.StatsCacheTTL)
	svc := pipeline.NewService(pipeline.Deps{
		Store:      st,
		Recognizer: recognizer,
		Extractor:  attributes.New(bank),
		Stats:      agg,
	}, log)

	orch := pipeline.NewOrchestrator(cfg, svc, log)
	orch.Start(ctx)

	reports := report.NewAssembler(st, agg, report.Options{
		MaxFiles:    cfg.MaxReportFiles,
		Concurrency: cfg.ReportConcurrency,
	}, log)

	srv := api.NewServer(st, orch, reports, agg, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if remote != nil {
			remote.Close()
		}
	}()

	log.Info("starting archindex", "port", cfg.Port, "data_dir", cfg.DataDir)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func loadBank(path string) (*attributes.Bank, error) {
	if path == "" {
		return attributes.DefaultBank(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return attributes.LoadBank(f)
}
