package database

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	shared "github.com/onalog/server/pkg"
	"github.com/onalog/server/pkg/domain/workout"
	storage "github.com/onalog/server/pkg/storage/firestore"
)

// FirestoreAdapter provides database operations using Firestore.
// It wraps our typed storage client.
type FirestoreAdapter struct {
	Client  *firestore.Client
	storage *storage.Client
}

func NewFirestoreAdapter(client *firestore.Client) *FirestoreAdapter {
	return &FirestoreAdapter{
		Client:  client,
		storage: storage.NewClient(client),
	}
}

// LoadCheckpoint returns the stored checkpoint, or the zero checkpoint when
// the document has never been written. Absence is not an error.
func (a *FirestoreAdapter) LoadCheckpoint(ctx context.Context) (*workout.Checkpoint, error) {
	cp, err := a.storage.PipelineState().Doc(shared.CheckpointDocID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &workout.Checkpoint{}, nil
		}
		return nil, err
	}
	return cp, nil
}

func (a *FirestoreAdapter) SaveCheckpoint(ctx context.Context, cp *workout.Checkpoint) error {
	if err := a.storage.PipelineState().Doc(shared.CheckpointDocID).Set(ctx, cp); err != nil {
		return &shared.PersistenceError{Op: "save checkpoint", Err: err}
	}
	return nil
}

func (a *FirestoreAdapter) SetExecution(ctx context.Context, record *shared.ExecutionRecord) error {
	return a.storage.Executions().Doc(record.ExecutionID).Set(ctx, record)
}

func (a *FirestoreAdapter) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	return a.storage.Executions().Doc(id).Update(ctx, data)
}
