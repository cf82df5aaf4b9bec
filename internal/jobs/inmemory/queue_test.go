package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dpaiva/centavo/internal/jobs"
)

func TestQueueProcessesPublishedJobs(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 2, store)

	var mu sync.Mutex
	seen := map[string]int{}
	done := make(chan struct{}, 3)

	handler := func(ctx context.Context, job jobs.Job) error {
		mu.Lock()
		seen[job.(*jobs.EvaluateAlertsJob).UserID]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	ctx := context.Background()
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for _, user := range []string{"user-a", "user-b", "user-c"} {
		if err := q.PublishEvaluateAlerts(ctx, &jobs.EvaluateAlertsJob{UserID: user, BatchID: "batch-1"}); err != nil {
			t.Fatalf("PublishEvaluateAlerts(%s): %v", user, err)
		}
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := q.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, user := range []string{"user-a", "user-b", "user-c"} {
		if seen[user] != 1 {
			t.Errorf("user %s processed %d times, want 1", user, seen[user])
		}
	}

	saved, err := store.ListJobs(ctx, jobs.JobFilter{BatchID: "batch-1", Status: jobs.JobStatusCompleted})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(saved) != 3 {
		t.Errorf("completed jobs = %d, want 3", len(saved))
	}
}

func TestQueueRetriesFailedJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 2, store)

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	handler := func(ctx context.Context, job jobs.Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return errors.New("transient store hiccup")
		}
		close(done)
		return nil
	}

	ctx := context.Background()
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := &jobs.EvaluateAlertsJob{JobID: "job-1", UserID: "user-a", MaxRetries: 3}
	if err := q.PublishEvaluateAlerts(ctx, job); err != nil {
		t.Fatalf("PublishEvaluateAlerts: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not retried")
	}

	// The final save races the handler return; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := store.GetJob(ctx, "job-1")
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if got.Status == jobs.JobStatusCompleted {
			if got.RetryCount != 1 {
				t.Errorf("RetryCount = %d, want 1", got.RetryCount)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never completed, status = %s", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = q.Stop(stopCtx)
}

func TestPublishRequiresUser(t *testing.T) {
	q := NewQueue(1, 1, nil)
	if err := q.PublishEvaluateAlerts(context.Background(), &jobs.EvaluateAlertsJob{}); err == nil {
		t.Error("expected publish without user to fail")
	}
}

func TestPublishAfterCloseFails(t *testing.T) {
	q := NewQueue(1, 1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := q.PublishEvaluateAlerts(context.Background(), &jobs.EvaluateAlertsJob{UserID: "user-a"}); err == nil {
		t.Error("expected publish on closed queue to fail")
	}
}
