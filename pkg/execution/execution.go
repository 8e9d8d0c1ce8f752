// Package execution writes per-invocation records so every function run is
// traceable in Firestore.
package execution

import (
	"context"
	"time"

	"github.com/google/uuid"

	shared "github.com/onalog/server/pkg"
)

type Options struct {
	TriggerType string
}

// LogStart records the beginning of an invocation and returns its ID.
func LogStart(ctx context.Context, db shared.Database, serviceName string, opts Options) (string, error) {
	id := uuid.NewString()
	rec := &shared.ExecutionRecord{
		ExecutionID: id,
		Service:     serviceName,
		Status:      "started",
		TriggerType: opts.TriggerType,
		StartedAt:   time.Now().UTC(),
	}
	if err := db.SetExecution(ctx, rec); err != nil {
		return id, err
	}
	return id, nil
}

func LogSuccess(ctx context.Context, db shared.Database, id string, outputs interface{}) error {
	return db.UpdateExecution(ctx, id, map[string]interface{}{
		"status":      "success",
		"finished_at": time.Now().UTC(),
		"outputs":     outputs,
	})
}

func LogFailure(ctx context.Context, db shared.Database, id string, cause error, outputs interface{}) error {
	return db.UpdateExecution(ctx, id, map[string]interface{}{
		"status":      "failed",
		"finished_at": time.Now().UTC(),
		"error":       cause.Error(),
		"outputs":     outputs,
	})
}
