package statefile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onalog/server/pkg/domain/workout"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))
	cp, err := s.LoadCheckpoint(context.Background())
	require.NoError(t, err, "absence of backing state is not an error")
	assert.Equal(t, "", cp.LastTimestamp)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, s.SaveCheckpoint(context.Background(), &workout.Checkpoint{LastTimestamp: "2026-02-01T10:00:00Z"}))

	cp, err := s.LoadCheckpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01T10:00:00Z", cp.LastTimestamp)
}

func TestSaveFailureIsPersistenceError(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing-dir", "state.json"))
	err := s.SaveCheckpoint(context.Background(), &workout.Checkpoint{LastTimestamp: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistence:")
}
