// Package sheets is the client for the Apps-Script-backed tabular store.
// Every call carries the shared secret; reads are GET actions with a JSON
// success envelope, appends are POSTs judged by HTTP status alone because
// the webapp may answer through a redirect.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/onalog/server/pkg/domain/workout"
	httputil "github.com/onalog/server/pkg/infrastructure/http"
)

// DefaultTimeout bounds every call to the webapp.
const DefaultTimeout = 20 * time.Second

// UpstreamError reports a store call that failed: unreachable, non-2xx, an
// ok:false envelope, or a malformed payload.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return "sheets: " + e.Op + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client talks to one webapp deployment.
type Client struct {
	BaseURL    string
	Secret     string
	HTTPClient *http.Client
}

func NewClient(baseURL, secret string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Secret:     secret,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// envelope is the GET response shape. OK is a pointer so a payload missing
// the success flag entirely is distinguishable from ok:false.
type envelope struct {
	OK    *bool                 `json:"ok"`
	Error string                `json:"error"`
	Items []workout.RawLogEntry `json:"items"`
	Count int                   `json:"count"`
}

// FetchRaw retrieves up to limit raw entries. Order is whatever the sheet
// returns; the caller must re-sort. The store is never mutated by this call.
func (c *Client) FetchRaw(ctx context.Context, limit int) ([]workout.RawLogEntry, error) {
	if limit <= 0 {
		return nil, &UpstreamError{Op: "get_raw", Err: fmt.Errorf("limit must be positive, got %d", limit)}
	}
	env, err := c.get(ctx, "get_raw", url.Values{"limit": {strconv.Itoa(limit)}})
	if err != nil {
		return nil, err
	}
	return env.Items, nil
}

// CountWorkoutsByDate returns how many workout headers already exist for a
// date. The ID allocator adds one to this to pick the next serial.
func (c *Client) CountWorkoutsByDate(ctx context.Context, date string) (int, error) {
	env, err := c.get(ctx, "get_workouts_by_date", url.Values{"date": {date}})
	if err != nil {
		return 0, err
	}
	return env.Count, nil
}

// AppendParsed writes one audit row recording a raw-to-parsed attempt.
func (c *Client) AppendParsed(ctx context.Context, row workout.ParsedLogRow) error {
	return c.post(ctx, "append_parsed", map[string]interface{}{
		"action":      "append_parsed",
		"secret":      c.Secret,
		"timestamp":   row.Timestamp,
		"user_id":     row.UserID,
		"raw_text":    row.RawText,
		"parsed_json": row.ParsedJSON,
		"status":      string(row.Status),
	})
}

// AppendWorkout writes the session-level header row for a confident parse.
func (c *Client) AppendWorkout(ctx context.Context, workoutID string, w workout.Workout) error {
	return c.post(ctx, "append_workout", map[string]interface{}{
		"action":        "append_workout",
		"secret":        c.Secret,
		"workout_id":    workoutID,
		"date":          w.Date,
		"type":          w.Type,
		"duration_min":  w.DurationMin,
		"location":      w.Location,
		"session_notes": w.SessionNotes,
	})
}

type activityRow struct {
	WorkoutID  string   `json:"workout_id"`
	Date       string   `json:"date"`
	Exercise   string   `json:"exercise"`
	ExerciseID *string  `json:"exercise_id"` // blank for now; normalization is deferred
	Weight     *float64 `json:"weight"`
	Reps       *int     `json:"reps"`
	RestSec    *int     `json:"rest_sec"`
	HoldSec    *int     `json:"hold_sec"`
	Notes      *string  `json:"notes"`
	SetNumber  *int     `json:"set_number"`
}

// AppendActivities writes the exercise-level rows for a workout. An empty
// slice is valid (climbing sessions often have no set structure) and results
// in a single POST with zero rows.
func (c *Client) AppendActivities(ctx context.Context, workoutID, date string, activities []workout.Activity) error {
	rows := make([]activityRow, 0, len(activities))
	for _, a := range activities {
		rows = append(rows, activityRow{
			WorkoutID: workoutID,
			Date:      date,
			Exercise:  a.Exercise,
			Weight:    a.Weight,
			Reps:      a.Reps,
			RestSec:   a.RestSec,
			HoldSec:   a.HoldSec,
			Notes:     a.Notes,
			SetNumber: a.SetNumber,
		})
	}
	return c.post(ctx, "append_activities", map[string]interface{}{
		"action": "append_activities",
		"secret": c.Secret,
		"rows":   rows,
	})
}

// AppendRaw records a freshly submitted message. Used by the intake layer,
// never by the pipeline.
func (c *Client) AppendRaw(ctx context.Context, entry workout.RawLogEntry) error {
	return c.post(ctx, "append_raw", map[string]interface{}{
		"secret":    c.Secret,
		"timestamp": entry.Timestamp,
		"user_id":   entry.UserID,
		"raw_text":  entry.RawText,
		"source":    entry.Source,
	})
}

func (c *Client) get(ctx context.Context, action string, params url.Values) (*envelope, error) {
	params.Set("action", action)
	params.Set("secret", c.Secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &UpstreamError{Op: action, Err: err}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: action, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &UpstreamError{Op: action, Err: httputil.WrapResponseError(resp, "sheet webapp error")}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &UpstreamError{Op: action, Err: fmt.Errorf("decode response: %w", err)}
	}
	if env.OK == nil {
		return nil, &UpstreamError{Op: action, Err: fmt.Errorf("malformed response: missing ok flag")}
	}
	if !*env.OK {
		msg := env.Error
		if msg == "" {
			msg = "unknown sheet error"
		}
		return nil, &UpstreamError{Op: action, Err: fmt.Errorf("%s", msg)}
	}
	return &env, nil
}

func (c *Client) post(ctx context.Context, action string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &UpstreamError{Op: action, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return &UpstreamError{Op: action, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &UpstreamError{Op: action, Err: err}
	}
	defer resp.Body.Close()

	// Body is ignored on success: Apps Script answers appends through a
	// redirect whose body carries nothing useful.
	if resp.StatusCode >= 400 {
		return &UpstreamError{Op: action, Err: httputil.WrapResponseError(resp, "sheet webapp error")}
	}
	return nil
}
