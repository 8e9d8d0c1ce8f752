// Package statefile is the local checkpoint backing for CLI runs: a single
// JSON file holding {"last_timestamp": "..."}. Production runs use the
// Firestore adapter instead.
package statefile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	shared "github.com/onalog/server/pkg"
	"github.com/onalog/server/pkg/domain/workout"
)

type Store struct {
	Path string
}

func New(path string) *Store {
	return &Store{Path: path}
}

// LoadCheckpoint returns the zero checkpoint when the file does not exist.
func (s *Store) LoadCheckpoint(ctx context.Context) (*workout.Checkpoint, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &workout.Checkpoint{}, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}
	var cp workout.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	return &cp, nil
}

func (s *Store) SaveCheckpoint(ctx context.Context, cp *workout.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return &shared.PersistenceError{Op: "encode state file", Err: err}
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return &shared.PersistenceError{Op: "write state file", Err: err}
	}
	return nil
}
