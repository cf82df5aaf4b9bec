package errs

import "fmt"

// BatchItemFailure records one failed item inside a multi-item operation.
type BatchItemFailure struct {
	Key string
	Err error
}

// BatchReport accumulates the outcome of a batch where individual failures are
// logged and skipped rather than aborting the whole run.
type BatchReport struct {
	Succeeded int
	Failures  []BatchItemFailure
}

// Record adds one item outcome to the report.
func (r *BatchReport) Record(key string, err error) {
	if err == nil {
		r.Succeeded++
		return
	}
	r.Failures = append(r.Failures, BatchItemFailure{Key: key, Err: err})
}

// Failed reports how many items failed.
func (r *BatchReport) Failed() int {
	return len(r.Failures)
}

// Err returns nil when every item succeeded, otherwise a summary error. The
// per-item causes stay in Failures; this is only the roll-up.
func (r *BatchReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return fmt.Errorf("batch: %d of %d items failed (first: %s: %v)",
		len(r.Failures), r.Succeeded+len(r.Failures), r.Failures[0].Key, r.Failures[0].Err)
}
