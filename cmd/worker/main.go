package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dpaiva/centavo/internal/alerts"
	"github.com/dpaiva/centavo/internal/archive"
	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/errs"
	infraBQ "github.com/dpaiva/centavo/internal/infra/bigquery"
	"github.com/dpaiva/centavo/internal/jobs"
	"github.com/dpaiva/centavo/internal/jobs/inmemory"
	"github.com/dpaiva/centavo/internal/ledger"
	"github.com/dpaiva/centavo/internal/logger"
	"github.com/dpaiva/centavo/internal/recurrence"
)

func main() {
	// Parse command-line flags
	var (
		projectID = flag.String("project", os.Getenv("GOOGLE_CLOUD_PROJECT"), "GCP project ID (or set GOOGLE_CLOUD_PROJECT env)")
		datasetID = flag.String("dataset", envOr("BQ_DATASET", "finance"), "BigQuery dataset (or set BQ_DATASET env)")
		bucket    = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for alert-run archives (or set GCS_BUCKET env)")
		users     = flag.String("users", "", "Comma-separated user IDs to evaluate on startup")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if *projectID == "" {
		log.Fatal().Msg("No GCP project configured - set --project or GOOGLE_CLOUD_PROJECT")
	}

	log.Info().Msg("Starting worker service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bqClient, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer bqClient.Close()

	repo := infraBQ.NewRepository(bqClient, *projectID, *datasetID)
	calc := ledger.NewCalculator(repo, repo, log)
	alertSvc := alerts.NewService(repo, calc, log)
	materializer := recurrence.NewMaterializer(repo, repo, log)

	var archiveWriter *archive.Writer
	if *bucket != "" {
		archiveWriter = archive.NewWriter(*bucket)
	} else {
		log.Warn().Msg("No GCS bucket configured - alert-run archiving will be disabled")
	}

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 0, jobStore)

	// Job handler that evaluates one user's alerts
	handler := func(ctx context.Context, job jobs.Job) error {
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

	// Start consuming jobs
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	// Enqueue one job per requested user. One user per job so a bad
	// dataset only fails its own evaluation.
	if *users != "" {
		batchID := uuid.NewString()
		var report errs.BatchReport
		for _, userID := range strings.Split(*users, ",") {
			userID = strings.TrimSpace(userID)
			if userID == "" {
				continue
			}
			job := &jobs.EvaluateAlertsJob{UserID: userID, BatchID: batchID}
			err := jobQueue.PublishEvaluateAlerts(ctx, job)
			report.Record(userID, err)
			if err != nil {
				log.Error().Err(err).Str("user_id", userID).Msg("Failed to enqueue evaluation job")
				continue
			}
			log.Info().Str("job_id", job.JobID).Str("user_id", userID).Msg("Evaluation job enqueued")
		}
		if err := report.Err(); err != nil {
			log.Warn().
				Err(err).
				Str("batch_id", batchID).
				Int("enqueued", report.Succeeded).
				Int("failed", report.Failed()).
				Msg("Batch enqueued with failures")
		} else {
			log.Info().Str("batch_id", batchID).Int("enqueued", report.Succeeded).Msg("Batch enqueued")
		}
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
