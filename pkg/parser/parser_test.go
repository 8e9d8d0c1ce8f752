package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onalog/server/pkg/domain/workout"
)

type stubGenerator struct {
	output string
	err    error
}

func (s *stubGenerator) Generate(ctx context.Context, instructions, input string) (string, error) {
	return s.output, s.err
}

func TestParseOK(t *testing.T) {
	p := New(&stubGenerator{output: `{
		"workout": {"date": "2026-02-01", "type": "strength", "duration_min": 45, "location": null, "session_notes": null},
		"activities": [{"exercise": "bench press", "set_number": 3, "weight": 60, "reps": 8, "rest_sec": null, "notes": null}],
		"status": "ok",
		"questions": []
	}`})

	res, err := p.Parse(context.Background(), "bench 3x8 @60kg", "2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, workout.StatusOK, res.Status)
	require.Len(t, res.Workout.Activities, 1)

	// Multi-set shorthand stays a single row with the set count.
	a := res.Workout.Activities[0]
	assert.Equal(t, "bench press", a.Exercise)
	assert.Equal(t, 3, *a.SetNumber)
	assert.Equal(t, 60.0, *a.Weight)
	assert.Equal(t, 8, *a.Reps)

	// Canonical output is parseable and carries the same status.
	assert.Contains(t, res.Canonical, `"status":"ok"`)
}

func TestParseInvalidJSON(t *testing.T) {
	p := New(&stubGenerator{output: "Sure! Here is your workout: bench press"})
	_, err := p.Parse(context.Background(), "bench 3x8", "2026-02-01")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseGenerationFailure(t *testing.T) {
	p := New(&stubGenerator{err: errors.New("deadline exceeded")})
	_, err := p.Parse(context.Background(), "bench 3x8", "2026-02-01")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseMissingStatusDefaultsToNeedsReview(t *testing.T) {
	p := New(&stubGenerator{output: `{
		"workout": {"date": "2026-02-01", "type": "strength", "duration_min": null, "location": null, "session_notes": null},
		"activities": []
	}`})
	res, err := p.Parse(context.Background(), "did something", "2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, workout.StatusNeedsReview, res.Status, "missing status must never default to ok")
}

func TestParseRejectsBadHeaderOnOK(t *testing.T) {
	p := New(&stubGenerator{output: `{
		"workout": {"date": "Feb 1st", "type": "strength", "duration_min": null, "location": null, "session_notes": null},
		"activities": [],
		"status": "ok"
	}`})
	_, err := p.Parse(context.Background(), "bench", "2026-02-01")
	var pe *ParseError
	require.ErrorAs(t, err, &pe, "malformed headers surface as ParseError, never as silently accepted rows")
}

func TestParseRejectsUnknownStatus(t *testing.T) {
	p := New(&stubGenerator{output: `{
		"workout": {"date": "2026-02-01", "type": "strength", "duration_min": null, "location": null, "session_notes": null},
		"activities": [],
		"status": "partial"
	}`})
	_, err := p.Parse(context.Background(), "bench", "2026-02-01")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	p := New(&stubGenerator{output: `{
		"workout": {"date": "2026-02-01", "type": "strength", "duration_min": null, "location": null, "session_notes": null},
		"activities": [],
		"status": "ok",
		"confidence": 0.93
	}`})
	_, err := p.Parse(context.Background(), "bench", "2026-02-01")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseStripsCodeFences(t *testing.T) {
	p := New(&stubGenerator{output: "```json\n{\"workout\": {\"date\": \"2026-02-01\", \"type\": \"bouldering\", \"duration_min\": null, \"location\": null, \"session_notes\": null}, \"activities\": [], \"status\": \"ok\"}\n```"})
	res, err := p.Parse(context.Background(), "bouldering session", "2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, workout.StatusOK, res.Status)
	assert.Empty(t, res.Workout.Activities)
}

func TestParseNoFabricatedNumbers(t *testing.T) {
	// A conforming backend given text without numbers returns null fields;
	// the parser must preserve the absence, not coerce it to zero values.
	p := New(&stubGenerator{output: `{
		"workout": {"date": "2026-02-01", "type": "rehab", "duration_min": null, "location": null, "session_notes": null},
		"activities": [{"exercise": "band pulls", "set_number": null, "weight": null, "reps": null, "rest_sec": null, "notes": null}],
		"status": "ok"
	}`})
	res, err := p.Parse(context.Background(), "some band pulls for the shoulder", "2026-02-01")
	require.NoError(t, err)
	require.Len(t, res.Workout.Activities, 1)
	a := res.Workout.Activities[0]
	assert.Nil(t, a.Weight)
	assert.Nil(t, a.Reps)
	assert.Nil(t, a.SetNumber)
}

func TestParseNeedsReviewWithQuestions(t *testing.T) {
	p := New(&stubGenerator{output: `{
		"workout": {"date": "", "type": "", "duration_min": null, "location": null, "session_notes": null},
		"activities": [],
		"status": "needs_review",
		"questions": ["Which workout type was this?", "What date did it happen?"]
	}`})
	res, err := p.Parse(context.Background(), "did something today", "2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, workout.StatusNeedsReview, res.Status)
	assert.Len(t, res.Workout.Questions, 2)
}
