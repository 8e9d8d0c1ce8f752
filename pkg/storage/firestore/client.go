package firestore

import (
	"cloud.google.com/go/firestore"

	shared "github.com/onalog/server/pkg"
	"github.com/onalog/server/pkg/domain/workout"
)

type Client struct {
	fs *firestore.Client
}

func NewClient(client *firestore.Client) *Client {
	return &Client{fs: client}
}

func (c *Client) Close() error {
	return c.fs.Close()
}

// PipelineState holds singleton documents like the parser checkpoint:
// pipeline_state/{doc}
func (c *Client) PipelineState() *Collection[workout.Checkpoint] {
	return &Collection[workout.Checkpoint]{
		Ref: c.fs.Collection(shared.CollectionPipelineState),
	}
}

// Executions is a root-level collection: executions/{execution_id}
func (c *Client) Executions() *Collection[shared.ExecutionRecord] {
	return &Collection[shared.ExecutionRecord]{
		Ref: c.fs.Collection(shared.CollectionExecutions),
	}
}
