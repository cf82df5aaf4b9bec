// Package archive persists alert-run snapshots to Cloud Storage so past
// evaluations stay inspectable after the alerts themselves are recomputed.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/storage"

	"github.com/dpaiva/centavo/internal/domain"
)

// Run is one completed alert evaluation for one user.
type Run struct {
	UserID  string         `json:"user_id"`
	RunAt   time.Time      `json:"run_at"`
	Today   civil.Date     `json:"today"`
	Alerts  []domain.Alert `json:"alerts"`
	BatchID string         `json:"batch_id,omitempty"`
}

// Writer stores runs as JSON objects in one bucket.
// It assumes Application Default Credentials are configured.
type Writer struct {
	bucket string
}

// NewWriter creates a Writer targeting the given bucket.
func NewWriter(bucket string) *Writer {
	return &Writer{bucket: bucket}
}

// ObjectName returns the object path for one run, partitioned by run date
// so a day's evaluations list together.
func ObjectName(userID string, runAt time.Time) string {
	return fmt.Sprintf("alerts/%04d/%02d/%02d/%s.json",
		runAt.Year(), runAt.Month(), runAt.Day(), userID)
}

// WriteRun uploads the run snapshot and returns its gs:// URI.
// A rerun for the same user on the same day overwrites the earlier object.
func (w *Writer) WriteRun(ctx context.Context, run Run) (string, error) {
	payload, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("WriteRun: marshaling run: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("WriteRun: create storage client: %w", err)
	}
	defer client.Close()

	objectName := ObjectName(run.UserID, run.RunAt)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := client.Bucket(w.bucket).Object(objectName)
	wr := obj.NewWriter(ctx)
	wr.ContentType = "application/json"

	if _, err := wr.Write(payload); err != nil {
		_ = wr.Close()
		return "", fmt.Errorf("WriteRun: writing object: %w", err)
	}
	if err := wr.Close(); err != nil {
		return "", fmt.Errorf("WriteRun: finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", w.bucket, objectName), nil
}

// ReadRun downloads and decodes the run snapshot at the given gs:// URI.
func ReadRun(ctx context.Context, uri string) (*Run, error) {
	bucketName, objectPath, err := splitURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadRun: create storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadRun: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("ReadRun: reading bytes: %w", err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("ReadRun: decoding snapshot: %w", err)
	}
	return &run, nil
}

// splitURI splits a gs:// URI into bucket and object path.
func splitURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// Filename extracts the object's base name from a gs:// URI.
func Filename(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
