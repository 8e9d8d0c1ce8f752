// Package workout defines the structured log data model: raw entries as they
// arrive from the intake layer, the parsed workout schema the language model
// must produce, and the audit row written for every processing attempt.
package workout

import (
	"fmt"
	"regexp"
)

// Status classifies a parse outcome.
type Status string

const (
	StatusOK          Status = "ok"
	StatusNeedsReview Status = "needs_review"

	// StatusError is never produced by the parser itself; it marks audit
	// rows for entries that failed during parsing or persistence.
	StatusError Status = "error"
)

// WorkoutTypes is the closed set of accepted session types.
var WorkoutTypes = []string{"strength", "rehab", "board", "bouldering", "lead", "mixed", "other"}

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// RawLogEntry is one submitted message, owned by the external store.
// Timestamp is assigned once at intake and never mutated; it doubles as the
// ordering key and the de-duplication boundary.
type RawLogEntry struct {
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id"`
	RawText   string `json:"raw_text"`
	Source    string `json:"source,omitempty"`
}

// Checkpoint is the durable marker of the last successfully handled entry.
// The zero value means "process everything".
type Checkpoint struct {
	LastTimestamp string `json:"last_timestamp" firestore:"last_timestamp"`
}

// Eligible reports whether an entry timestamp passes the checkpoint gate.
// Comparison is lexical; ISO-8601 UTC timestamps sort chronologically.
func (c *Checkpoint) Eligible(timestamp string) bool {
	return timestamp != "" && timestamp > c.LastTimestamp
}

// Workout is the session-level header of a parsed log.
type Workout struct {
	Date         string   `json:"date"`
	Type         string   `json:"type"`
	DurationMin  *float64 `json:"duration_min"`
	Location     *string  `json:"location"`
	SessionNotes *string  `json:"session_notes"`
}

// Activity is one exercise-level line item. Optional fields are pointers:
// absent in the input means absent here, never a fabricated zero.
type Activity struct {
	Exercise  string   `json:"exercise"`
	SetNumber *int     `json:"set_number"`
	Weight    *float64 `json:"weight"`
	Reps      *int     `json:"reps"`
	RestSec   *int     `json:"rest_sec"`
	HoldSec   *int     `json:"hold_sec,omitempty"`
	Notes     *string  `json:"notes"`
}

// ParsedWorkout is the strict schema contract with the language model.
type ParsedWorkout struct {
	Workout    Workout    `json:"workout"`
	Activities []Activity `json:"activities"`
	Status     Status     `json:"status"`
	Questions  []string   `json:"questions,omitempty"`
}

// Validate enforces the schema invariants that must hold before a parse is
// accepted as ok: a well-formed date, a known type, and named exercises.
// A needs_review parse skips header validation because it never becomes a
// workout row.
func (p *ParsedWorkout) Validate() error {
	if p.Status != StatusOK {
		return nil
	}
	if !dateRe.MatchString(p.Workout.Date) {
		return fmt.Errorf("workout.date %q is not YYYY-MM-DD", p.Workout.Date)
	}
	if !validType(p.Workout.Type) {
		return fmt.Errorf("workout.type %q is not one of %v", p.Workout.Type, WorkoutTypes)
	}
	for i, a := range p.Activities {
		if a.Exercise == "" {
			return fmt.Errorf("activities[%d].exercise is empty", i)
		}
	}
	return nil
}

func validType(t string) bool {
	for _, v := range WorkoutTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ParsedLogRow is the append-only audit record of one raw-to-parsed
// transformation attempt, written exactly once per handled entry regardless
// of outcome.
type ParsedLogRow struct {
	Timestamp  string `json:"timestamp"`
	UserID     string `json:"user_id"`
	RawText    string `json:"raw_text"`
	ParsedJSON string `json:"parsed_json"`
	Status     Status `json:"status"`
}
