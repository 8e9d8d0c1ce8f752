package mocks

import (
	"context"

	shared "github.com/onalog/server/pkg"
	"github.com/onalog/server/pkg/domain/workout"
)

// --- Mock Database ---
type MockDatabase struct {
	LoadCheckpointFunc  func(ctx context.Context) (*workout.Checkpoint, error)
	SaveCheckpointFunc  func(ctx context.Context, cp *workout.Checkpoint) error
	SetExecutionFunc    func(ctx context.Context, record *shared.ExecutionRecord) error
	UpdateExecutionFunc func(ctx context.Context, id string, data map[string]interface{}) error
}

func (m *MockDatabase) LoadCheckpoint(ctx context.Context) (*workout.Checkpoint, error) {
	if m.LoadCheckpointFunc != nil {
		return m.LoadCheckpointFunc(ctx)
	}
	return &workout.Checkpoint{}, nil
}
func (m *MockDatabase) SaveCheckpoint(ctx context.Context, cp *workout.Checkpoint) error {
	if m.SaveCheckpointFunc != nil {
		return m.SaveCheckpointFunc(ctx, cp)
	}
	return nil
}
func (m *MockDatabase) SetExecution(ctx context.Context, record *shared.ExecutionRecord) error {
	if m.SetExecutionFunc != nil {
		return m.SetExecutionFunc(ctx, record)
	}
	return nil
}
func (m *MockDatabase) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateExecutionFunc != nil {
		return m.UpdateExecutionFunc(ctx, id, data)
	}
	return nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishFunc func(ctx context.Context, topic string, data []byte) (string, error)
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, data []byte) (string, error) {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, data)
	}
	return "msg-id", nil
}

// --- Mock Storage ---
type MockBlobStore struct {
	WriteFunc func(ctx context.Context, bucket, object string, data []byte) error
	ReadFunc  func(ctx context.Context, bucket, object string) ([]byte, error)
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data)
	}
	return nil
}
func (m *MockBlobStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, bucket, object)
	}
	return []byte("mock-data"), nil
}
