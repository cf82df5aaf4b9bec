package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dpaiva/centavo/internal/alerts"
	"github.com/dpaiva/centavo/internal/archive"
	"github.com/dpaiva/centavo/internal/datemath"
	infraBQ "github.com/dpaiva/centavo/internal/infra/bigquery"
	"github.com/dpaiva/centavo/internal/ledger"
	"github.com/dpaiva/centavo/internal/logger"
	"github.com/dpaiva/centavo/internal/notionsync"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	userID := flag.String("user", "", "User ID to sync (required unless --run-uri is given)")
	runURI := flag.String("run-uri", "", "GCS URI of an archived alert run to sync instead of evaluating fresh")
	projectID := flag.String("project", os.Getenv("GOOGLE_CLOUD_PROJECT"), "GCP project ID (or set GOOGLE_CLOUD_PROJECT env)")
	datasetID := flag.String("dataset", envOr("BQ_DATASET", "finance"), "BigQuery dataset (or set BQ_DATASET env)")
	notionToken := flag.String("notion-token", "", "Notion API token (required)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (required)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	// Validate required flags
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}
	if *userID == "" && *runURI == "" {
		log.Fatal().Msg("Error: --user or --run-uri is required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	var run archive.Run

	if *runURI != "" {
		// Sync a previously archived run as-is.
		stored, err := archive.ReadRun(ctx, *runURI)
		if err != nil {
			log.Fatal().Err(err).Str("run_uri", *runURI).Msg("Failed to read archived run")
		}
		run = *stored
	} else {
		// Evaluate fresh against the ledger.
		if *projectID == "" {
			log.Fatal().Msg("No GCP project configured - set --project or GOOGLE_CLOUD_PROJECT")
		}

		bqClient, err := bigquery.NewClient(ctx, *projectID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery client")
		}
		defer bqClient.Close()

		repo := infraBQ.NewRepository(bqClient, *projectID, *datasetID)
		calc := ledger.NewCalculator(repo, repo, log)
		alertSvc := alerts.NewService(repo, calc, log)

		today := datemath.Today(time.Local)
		alertList, err := alertSvc.EvaluateUser(ctx, *userID, today)
		if err != nil {
			log.Fatal().Err(err).Str("user_id", *userID).Msg("Alert evaluation failed")
		}

		run = archive.Run{
			UserID: *userID,
			RunAt:  time.Now(),
			Today:  today,
			Alerts: alertList,
		}
	}

	log.Info().
		Str("user_id", run.UserID).
		Int("alert_count", len(run.Alerts)).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	// Initialize Notion client
	notionClient := notionsync.NewNotionClient(*notionToken)

	if err := notionsync.SyncAlerts(ctx, notionClient, *notionDBID, run, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
