package shared

import (
	"context"

	"github.com/onalog/server/pkg/domain/workout"
)

// --- Persistence Interfaces ---

type Database interface {
	CheckpointStore

	SetExecution(ctx context.Context, record *ExecutionRecord) error
	UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error
}

// CheckpointStore persists the last-processed-timestamp marker between runs.
// Load never fails on missing backing state; it returns the zero checkpoint
// ("process everything") instead.
type CheckpointStore interface {
	LoadCheckpoint(ctx context.Context) (*workout.Checkpoint, error)
	SaveCheckpoint(ctx context.Context, cp *workout.Checkpoint) error
}

// --- Messaging Interfaces ---

type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte) (string, error)
}

// --- Storage Interfaces ---

type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}
