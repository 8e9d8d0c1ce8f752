// Package pipeline orchestrates one batch pass over unprocessed raw log
// entries: fetch, sort, parse, allocate an ID, persist, advance the
// checkpoint. Entries are handled strictly one at a time in ascending
// timestamp order because workout-ID allocation is read-then-write counting
// against the store.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	shared "github.com/onalog/server/pkg"
	"github.com/onalog/server/pkg/domain/workout"
	"github.com/onalog/server/pkg/infrastructure/sentry"
	"github.com/onalog/server/pkg/parser"
)

// Store is the tabular-store surface the driver needs. The sheets client
// satisfies it.
type Store interface {
	FetchRaw(ctx context.Context, limit int) ([]workout.RawLogEntry, error)
	CountWorkoutsByDate(ctx context.Context, date string) (int, error)
	AppendParsed(ctx context.Context, row workout.ParsedLogRow) error
	AppendWorkout(ctx context.Context, workoutID string, w workout.Workout) error
	AppendActivities(ctx context.Context, workoutID, date string, activities []workout.Activity) error
}

// Parser converts one raw log into the structured schema.
type Parser interface {
	Parse(ctx context.Context, rawText, defaultDate string) (*parser.Result, error)
}

// RunSummary is the per-run report emitted instead of per-entry
// acknowledgments.
type RunSummary struct {
	Fetched       int    `json:"fetched"`
	Processed     int    `json:"processed"`
	OK            int    `json:"ok"`
	NeedsReview   int    `json:"needs_review"`
	Failed        int    `json:"failed"`
	LastTimestamp string `json:"last_timestamp,omitempty"`
}

type Driver struct {
	Store       Store
	Parser      Parser
	Checkpoints shared.CheckpointStore
	Logger      *slog.Logger

	// Artifacts archives raw model output per entry when a bucket is set.
	// Best-effort: archive failures never fail an entry.
	Artifacts      shared.BlobStore
	ArtifactBucket string

	FetchLimit int
	Now        func() time.Time
}

// Run performs one pass. The returned summary is valid even when err is
// non-nil: a failed final checkpoint write still leaves every handled entry
// recorded in the audit trail, and the next run will reprocess the window
// (at-least-once, never silent loss).
func (d *Driver) Run(ctx context.Context) (*RunSummary, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cp, err := d.Checkpoints.LoadCheckpoint(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Checkpoint loaded", "last_timestamp", cp.LastTimestamp)

	limit := d.FetchLimit
	if limit <= 0 {
		limit = shared.DefaultFetchLimit
	}

	entries, err := d.Store.FetchRaw(ctx, limit)
	if err != nil {
		return nil, err
	}

	// The sheet gives no ordering guarantee; the checkpoint gate depends on
	// chronological handling.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp < entries[j].Timestamp
	})

	summary := &RunSummary{Fetched: len(entries)}

	for _, entry := range entries {
		if !cp.Eligible(entry.Timestamp) {
			continue
		}

		switch d.handleEntry(ctx, logger, entry) {
		case workout.StatusOK:
			summary.OK++
		case workout.StatusNeedsReview:
			summary.NeedsReview++
		default:
			summary.Failed++
		}

		// Handled - success or logged failure - means the checkpoint
		// candidate moves past this entry.
		summary.Processed++
		summary.LastTimestamp = entry.Timestamp
	}

	if summary.Processed == 0 {
		logger.Info("Nothing new to process")
		return summary, nil
	}

	if err := d.Checkpoints.SaveCheckpoint(ctx, &workout.Checkpoint{LastTimestamp: summary.LastTimestamp}); err != nil {
		logger.Error("Checkpoint save failed; this window will be reprocessed", "error", err)
		return summary, err
	}

	logger.Info("Run complete",
		"processed", summary.Processed,
		"ok", summary.OK,
		"needs_review", summary.NeedsReview,
		"failed", summary.Failed,
		"last_timestamp", summary.LastTimestamp,
	)
	return summary, nil
}

// handleEntry processes one entry to completion. Every outcome, including
// failure, ends with exactly one audit row attempt; failures are recorded,
// not retried, and never abort the run.
func (d *Driver) handleEntry(ctx context.Context, logger *slog.Logger, entry workout.RawLogEntry) workout.Status {
	status, err := d.processEntry(ctx, logger, entry)
	if err == nil {
		return status
	}

	logger.Error("Entry processing failed", "timestamp", entry.Timestamp, "error", err)
	sentry.CaptureException(err, map[string]interface{}{"timestamp": entry.Timestamp}, logger)

	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	row := workout.ParsedLogRow{
		Timestamp:  entry.Timestamp,
		UserID:     entry.UserID,
		RawText:    entry.RawText,
		ParsedJSON: string(payload),
		Status:     workout.StatusError,
	}
	if auditErr := d.Store.AppendParsed(ctx, row); auditErr != nil {
		// The entry is still considered handled; losing the audit row is
		// surfaced here and in Sentry, not by blocking the run.
		logger.Error("Failed to record error audit row", "timestamp", entry.Timestamp, "error", auditErr)
		sentry.CaptureException(auditErr, map[string]interface{}{"timestamp": entry.Timestamp}, logger)
	}
	return workout.StatusError
}

func (d *Driver) processEntry(ctx context.Context, logger *slog.Logger, entry workout.RawLogEntry) (workout.Status, error) {
	res, err := d.Parser.Parse(ctx, entry.RawText, d.today())
	if err != nil {
		return "", err
	}

	d.archiveArtifact(ctx, logger, entry, res.Raw)

	// Only fully-confident parses become workout rows; needs_review stops
	// at the audit trail.
	if res.Status == workout.StatusOK {
		header := res.Workout.Workout

		workoutID, err := workout.NextID(ctx, d.Store, header.Date)
		if err != nil {
			return "", err
		}
		if err := d.Store.AppendWorkout(ctx, workoutID, header); err != nil {
			return "", err
		}
		if err := d.Store.AppendActivities(ctx, workoutID, header.Date, res.Workout.Activities); err != nil {
			return "", err
		}
		logger.Info("Workout recorded",
			"workout_id", workoutID,
			"date", header.Date,
			"type", header.Type,
			"activities", len(res.Workout.Activities),
		)
	}

	row := workout.ParsedLogRow{
		Timestamp:  entry.Timestamp,
		UserID:     entry.UserID,
		RawText:    entry.RawText,
		ParsedJSON: res.Canonical,
		Status:     res.Status,
	}
	if err := d.Store.AppendParsed(ctx, row); err != nil {
		return "", err
	}
	return res.Status, nil
}

func (d *Driver) archiveArtifact(ctx context.Context, logger *slog.Logger, entry workout.RawLogEntry, raw string) {
	if d.Artifacts == nil || d.ArtifactBucket == "" {
		return
	}
	object := "parser/" + sanitizeObjectName(entry.Timestamp) + ".json"
	if err := d.Artifacts.Write(ctx, d.ArtifactBucket, object, []byte(raw)); err != nil {
		logger.Warn("Failed to archive model output", "object", object, "error", err)
	}
}

func (d *Driver) today() string {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return now().UTC().Format("2006-01-02")
}

func sanitizeObjectName(s string) string {
	return strings.NewReplacer(":", "-", "/", "-").Replace(s)
}
