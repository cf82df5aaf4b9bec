// Package notionsync mirrors the latest alert run for a user into a Notion
// database, one page per alert. BigQuery stays the source of truth; the
// Notion database is a rebuildable view.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dpaiva/centavo/internal/archive"
	"github.com/dpaiva/centavo/internal/logger"
)

// SyncAlerts reconciles the Notion database with one alert run:
// pages whose alert no longer exists are archived, missing alerts get new
// pages, and surviving pages are left alone. With dryRun set it only logs
// what it would do.
func SyncAlerts(ctx context.Context, notionClient NotionService, notionDBID string, run archive.Run, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Str("user_id", run.UserID).
		Int("alert_count", len(run.Alerts)).
		Bool("dry_run", dryRun).
		Msg("Starting alert sync to Notion")

	validAlertIDs := make(map[string]bool)
	for _, a := range run.Alerts {
		validAlertIDs[a.ID] = true
	}

	pages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	existingAlertIDs := make(map[string]bool)
	for _, page := range pages {
		if id := extractAlertID(page); id != "" {
			existingAlertIDs[id] = true
		}
	}

	// Archive stale pages first so a failed run leaves no resolved alerts
	// behind. Pages without an Alert ID were created by hand and are kept.
	var deleted int
	for _, page := range pages {
		alertID := extractAlertID(page)
		if alertID == "" || validAlertIDs[alertID] {
			continue
		}

		if dryRun {
			log.Info().
				Str("alert_id", alertID).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would archive stale Notion page")
			deleted++
			continue
		}

		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("alert_id", alertID).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale Notion page")
			continue
		}
		deleted++
	}

	var created, skipped int
	for _, alert := range run.Alerts {
		if existingAlertIDs[alert.ID] {
			skipped++
			continue
		}

		if dryRun {
			log.Info().
				Str("alert_id", alert.ID).
				Msg("[DRY RUN] Would create Notion page")
			created++
			continue
		}

		props := AlertToNotionProperties(alert, run.Today)
		if _, err := notionClient.CreatePage(ctx, notionDBID, props); err != nil {
			log.Warn().
				Err(err).
				Str("alert_id", alert.ID).
				Msg("Failed to create Notion page")
			continue
		}
		created++
	}

	log.Info().
		Int("created", created).
		Int("skipped", skipped).
		Int("deleted", deleted).
		Msg("Alert sync to Notion complete")

	return nil
}

// queryAllNotionPages pages through the whole database.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, notionDBID string) ([]notionapi.Page, error) {
	var pages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			StartCursor: cursor,
			PageSize:    100,
		}

		resp, err := notionClient.QueryDatabase(ctx, notionDBID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		pages = append(pages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return pages, nil
}
