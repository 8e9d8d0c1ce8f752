package shared

import "time"

// ExecutionRecord tracks one function/CLI invocation in Firestore.
type ExecutionRecord struct {
	ExecutionID string                 `firestore:"execution_id"`
	Service     string                 `firestore:"service"`
	Status      string                 `firestore:"status"`
	TriggerType string                 `firestore:"trigger_type"`
	StartedAt   time.Time              `firestore:"started_at"`
	FinishedAt  time.Time              `firestore:"finished_at,omitempty"`
	Error       string                 `firestore:"error,omitempty"`
	Outputs     map[string]interface{} `firestore:"outputs,omitempty"`
}

// PersistenceError reports a checkpoint write that could not be durably
// completed. Callers must not assume partial writes are visible.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "persistence: " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }
