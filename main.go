package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"zaehlerwerk/internal/export/application"
	exportpostgres "zaehlerwerk/internal/export/infrastructure/postgres"
	"zaehlerwerk/internal/export/interfaces/workbook"
	"zaehlerwerk/internal/export/notify"
	"zaehlerwerk/internal/observability/metrics"
	readings "zaehlerwerk/internal/readings/domain"
	"zaehlerwerk/internal/readings/infrastructure/syncdir"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := application.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := log.New(os.Stdout, "", log.LstdFlags)

	var db *sql.DB
	var history application.HistoryArchive
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		history = exportpostgres.NewHistoryRepository(db)
	}
	metrics.Init(db, logger)

	var notifier notify.Notifier
	if cfg.WebhookURL != "" {
		notifier, err = notify.NewWebhookNotifier(cfg.WebhookURL)
		if err != nil {
			logger.Fatalf("webhook notifier error: %v", err)
		}
	}

	clock := readings.SystemClock{}
	loader := syncdir.NewLoader(cfg.SourceBaseDir)
	service := application.NewExportService(cfg, loader, workbook.NewWriter(clock), history, notifier, clock, logger)

	if cfg.DailyAt == "" {
		run, err := service.RunAll(context.Background())
		if err != nil {
			logger.Fatalf("export error: %v", err)
		}
		logger.Printf("export done: folders=%d failed=%d duration=%s",
			len(run.Folders), len(run.Failed), run.Duration.Round(time.Second))
		if len(run.Folders) == 0 && len(run.Failed) > 0 {
			os.Exit(1)
		}
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		logger.Fatal(http.ListenAndServe(cfg.HTTPAddr, mux))
	}()

	logger.Printf("scheduled export daily at %s UTC", cfg.DailyAt)
	application.NewScheduler(service, cfg.DailyAt, logger).Start(context.Background())
}
