package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dpaiva/centavo/internal/alerts"
	"github.com/dpaiva/centavo/internal/api/handlers"
	"github.com/dpaiva/centavo/internal/api/middleware"
	"github.com/dpaiva/centavo/internal/archive"
	"github.com/dpaiva/centavo/internal/datemath"
	infraBQ "github.com/dpaiva/centavo/internal/infra/bigquery"
	"github.com/dpaiva/centavo/internal/insights"
	"github.com/dpaiva/centavo/internal/installments"
	"github.com/dpaiva/centavo/internal/jobs"
	"github.com/dpaiva/centavo/internal/jobs/inmemory"
	"github.com/dpaiva/centavo/internal/ledger"
	"github.com/dpaiva/centavo/internal/logger"
	"github.com/dpaiva/centavo/internal/projection"
	"github.com/dpaiva/centavo/internal/recurrence"
)

func main() {
	// Parse command-line flags
	var (
		port      = flag.String("port", "8080", "HTTP server port")
		projectID = flag.String("project", os.Getenv("GOOGLE_CLOUD_PROJECT"), "GCP project ID (or set GOOGLE_CLOUD_PROJECT env)")
		datasetID = flag.String("dataset", envOr("BQ_DATASET", "finance"), "BigQuery dataset (or set BQ_DATASET env)")
		bucket    = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for alert-run archives (or set GCS_BUCKET env)")
		model     = flag.String("model", os.Getenv("INSIGHTS_MODEL"), "Gemini model for insights (or set INSIGHTS_MODEL env)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if *projectID == "" {
		log.Fatal().Msg("No GCP project configured - set --project or GOOGLE_CLOUD_PROJECT")
	}
	if *bucket == "" {
		log.Warn().Msg("No GCS bucket configured - alert-run archiving will be disabled")
	}

	ctx := context.Background()

	// Initialize storage
	bqClient, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer bqClient.Close()

	repo := infraBQ.NewRepository(bqClient, *projectID, *datasetID)

	// Initialize engines
	calc := ledger.NewCalculator(repo, repo, log)
	resolver := ledger.NewResolver(repo, repo)
	scheduler := installments.NewScheduler(repo, repo, log)
	projEngine := projection.NewEngine(repo, repo, log)
	alertSvc := alerts.NewService(repo, calc, log)
	materializer := recurrence.NewMaterializer(repo, repo, log)
	generator := insights.NewGenerator(*model)

	var archiveWriter *archive.Writer
	if *bucket != "" {
		archiveWriter = archive.NewWriter(*bucket)
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 0, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Job handler for background alert evaluations
	jobHandler := func(ctx context.Context, job jobs.Job) error {
		evalJob, ok := job.(*jobs.EvaluateAlertsJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", evalJob.JobID).
			Str("user_id", evalJob.UserID).
			Msg("Processing alert evaluation job")

		today := datemath.Today(time.Local)

		// Materialize due recurrences first so the evaluation sees the
		// generated rows. A partially materialized batch still evaluates.
		if _, err := materializer.MaterializeDue(ctx, evalJob.UserID, today); err != nil {
			log.Warn().
				Err(err).
				Str("job_id", evalJob.JobID).
				Str("user_id", evalJob.UserID).
				Msg("Recurrence materialization incomplete")
		}

		alertList, err := alertSvc.EvaluateUser(ctx, evalJob.UserID, today)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", evalJob.JobID).
				Str("user_id", evalJob.UserID).
				Msg("Alert evaluation failed")
			return err
		}
		evalJob.AlertCount = len(alertList)

		if archiveWriter != nil {
			uri, err := archiveWriter.WriteRun(ctx, archive.Run{
				UserID:  evalJob.UserID,
				RunAt:   time.Now(),
				Today:   today,
				Alerts:  alertList,
				BatchID: evalJob.BatchID,
			})
			if err != nil {
				log.Error().
					Err(err).
					Str("job_id", evalJob.JobID).
					Msg("Failed to archive alert run")
				return err
			}
			log.Info().Str("uri", uri).Msg("Alert run archived")
		}

		log.Info().
			Str("job_id", evalJob.JobID).
			Str("user_id", evalJob.UserID).
			Int("alert_count", len(alertList)).
			Msg("Alert evaluation completed")

		return nil
	}

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	balancesHandler := handlers.NewBalancesHandler(repo, calc, log)
	cardsHandler := handlers.NewCardsHandler(resolver, log)
	installmentsHandler := handlers.NewInstallmentsHandler(scheduler, log)
	projectionHandler := handlers.NewProjectionHandler(projEngine, log)
	alertsHandler := handlers.NewAlertsHandler(alertSvc, jobQueue, log)
	insightsHandler := handlers.NewInsightsHandler(generator, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/accounts/balances", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			balancesHandler.ListBalances(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/cards/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/api/cards/")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] != "exposure" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		cardsHandler.GetExposure(w, r, parts[0])
	})

	mux.HandleFunc("/api/installments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			installmentsHandler.Create(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/installments/", func(w http.ResponseWriter, r *http.Request) {
		groupID := strings.TrimPrefix(r.URL.Path, "/api/installments/")
		if groupID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Group ID is required")
			return
		}
		switch r.Method {
		case http.MethodPut:
			installmentsHandler.Edit(w, r, groupID)
		case http.MethodDelete:
			installmentsHandler.Delete(w, r, groupID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/projection", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			projectionHandler.GetMonth(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/projection/simulate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			projectionHandler.Simulate(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/alerts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			alertsHandler.ListAlerts(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/alerts/evaluate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			alertsHandler.EnqueueEvaluation(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/insights", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			insightsHandler.Generate(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
