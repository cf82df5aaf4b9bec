package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dpaiva/centavo/internal/jobs"
)

// Store keeps jobs in a mutex-guarded map. Reads and writes copy the
// job so callers never share the stored value. State is gone on restart;
// durable history would need a database-backed implementation.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.EvaluateAlertsJob
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*jobs.EvaluateAlertsJob),
	}
}

// SaveJob inserts or overwrites the job under its ID.
func (s *Store) SaveJob(ctx context.Context, job *jobs.EvaluateAlertsJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy

	return nil
}

// GetJob returns a copy of the job, or an error when the ID is unknown.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.EvaluateAlertsJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs returns jobs matching the filter, then applies offset and
// limit to the matches.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.EvaluateAlertsJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.EvaluateAlertsJob

	for _, job := range s.jobs {
		if filter.UserID != "" && job.UserID != filter.UserID {
			continue
		}
		if filter.BatchID != "" && job.BatchID != filter.BatchID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}

		jobCopy := *job
		result = append(result, &jobCopy)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.EvaluateAlertsJob{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// UpdateJobStatus rewrites the job's status in place, keeping the prior
// error message unless a new one is given.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}

	return nil
}

var _ jobs.JobStore = (*Store)(nil)
