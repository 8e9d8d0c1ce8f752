package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared "github.com/onalog/server/pkg"
	"github.com/onalog/server/pkg/bootstrap"
	"github.com/onalog/server/pkg/testing/mocks"
)

func newEvent() event.Event {
	e := event.New()
	e.SetType("google.cloud.pubsub.topic.v1.messagePublished")
	e.SetSource("//pubsub.googleapis.com/")
	return e
}

func TestWrapCloudEventRecordsSuccess(t *testing.T) {
	var started *shared.ExecutionRecord
	var updated map[string]interface{}
	db := &mocks.MockDatabase{
		SetExecutionFunc: func(ctx context.Context, rec *shared.ExecutionRecord) error {
			started = rec
			return nil
		},
		UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			updated = data
			return nil
		},
	}
	svc := &bootstrap.Service{DB: db}

	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		assert.NotEmpty(t, fwCtx.ExecutionID)
		return map[string]interface{}{"processed": 3}, nil
	}

	err := WrapCloudEvent("log-processor", svc, handler)(context.Background(), newEvent())
	require.NoError(t, err)

	require.NotNil(t, started)
	assert.Equal(t, "log-processor", started.Service)
	assert.Equal(t, "started", started.Status)
	assert.Equal(t, "pubsub", started.TriggerType)

	require.NotNil(t, updated)
	assert.Equal(t, "success", updated["status"])
}

func TestWrapCloudEventRecordsFailure(t *testing.T) {
	var updated map[string]interface{}
	db := &mocks.MockDatabase{
		UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			updated = data
			return nil
		},
	}
	svc := &bootstrap.Service{DB: db}

	handlerErr := errors.New("sheet unreachable")
	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		return nil, handlerErr
	}

	err := WrapCloudEvent("log-processor", svc, handler)(context.Background(), newEvent())
	assert.Equal(t, handlerErr, err)

	require.NotNil(t, updated)
	assert.Equal(t, "failed", updated["status"])
	assert.Equal(t, "sheet unreachable", updated["error"])
}

func TestWrapCloudEventSurvivesBookkeepingFailure(t *testing.T) {
	db := &mocks.MockDatabase{
		SetExecutionFunc: func(ctx context.Context, rec *shared.ExecutionRecord) error {
			return errors.New("firestore down")
		},
	}
	svc := &bootstrap.Service{DB: db}

	called := false
	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		called = true
		return nil, nil
	}

	err := WrapCloudEvent("log-processor", svc, handler)(context.Background(), newEvent())
	require.NoError(t, err, "execution bookkeeping must never fail the function")
	assert.True(t, called)
}
