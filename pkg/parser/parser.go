// Package parser converts free-text workout logs into the strict
// ParsedWorkout schema by way of a text-generation backend. The instruction
// set fixes policy, not just format: the model must never invent data, and
// ambiguity has to surface as needs_review questions rather than fabricated
// fields. Everything the model returns is re-validated here; nothing is
// trusted on format alone.
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/onalog/server/pkg/domain/workout"
)

// Instructions is the fixed contract sent with every call.
const Instructions = `You are a fitness log parser. Output JSON only. Do not add any entries.

Return this schema exactly:
{
  "workout": {
    "date": "YYYY-MM-DD",
    "type": "strength|rehab|board|bouldering|lead|mixed|other",
    "duration_min": number|null,
    "location": string|null,
    "session_notes": string|null
  },
  "activities": [
    {
      "exercise": string,
      "set_number": number|null,
      "weight": number|null,
      "reps": number|null,
      "rest_sec": number|null,
      "hold_sec": number|null,
      "notes": string|null
    }
  ],
  "status": "ok|needs_review",
  "questions": [string]
}

Rules:
- Do not invent exercises or numbers. Every value must come from the log text.
- If unsure about key fields (date/type/sets), set status=needs_review and ask 1-3 questions.
- activities can be empty (e.g., climbing session description).
- Shorthand like "3x8" is ONE activity row with set_number=3 and reps=8. Never expand it into multiple rows.
- Integers only for set_number, reps, rest_sec and hold_sec.`

// ParseError reports model output that could not be accepted: generation
// failed, the output was not valid JSON, or an ok-status payload violated
// the schema. No repair or retry happens here; retry policy, if any,
// belongs to the driver.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse: %s: %v", e.Reason, e.Err)
	}
	return "parse: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Generator is the text-generation backend. GeminiGenerator is the real one;
// tests substitute fixed responses.
type Generator interface {
	Generate(ctx context.Context, instructions, input string) (string, error)
}

// Result carries the canonical re-serialization and the extracted status
// together so the driver can branch without re-parsing, plus the raw model
// output for artifact archiving.
type Result struct {
	Canonical string
	Status    workout.Status
	Workout   *workout.ParsedWorkout
	Raw       string
}

type Parser struct {
	Generator Generator
}

func New(g Generator) *Parser {
	return &Parser{Generator: g}
}

// Parse runs one log through the model and validates the response.
func (p *Parser) Parse(ctx context.Context, rawText, defaultDate string) (*Result, error) {
	input := fmt.Sprintf("Default date (if not specified): %s\n\nRaw log:\n%s", defaultDate, rawText)

	raw, err := p.Generator.Generate(ctx, Instructions, input)
	if err != nil {
		return nil, &ParseError{Reason: "generation failed", Err: err}
	}

	cleaned := stripFences(strings.TrimSpace(raw))

	var pw workout.ParsedWorkout
	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pw); err != nil {
		return nil, &ParseError{Reason: "model output is not valid schema JSON", Err: err}
	}

	switch pw.Status {
	case workout.StatusOK:
		if err := pw.Validate(); err != nil {
			return nil, &ParseError{Reason: "schema violation", Err: err}
		}
	case workout.StatusNeedsReview:
		// Questions may still be empty; the driver records the row as-is.
	case "":
		// A missing status is an ambiguity signal, never success.
		pw.Status = workout.StatusNeedsReview
	default:
		return nil, &ParseError{Reason: fmt.Sprintf("unknown status %q", pw.Status)}
	}

	canonical, err := json.Marshal(&pw)
	if err != nil {
		return nil, &ParseError{Reason: "re-serialization failed", Err: err}
	}

	return &Result{
		Canonical: string(canonical),
		Status:    pw.Status,
		Workout:   &pw,
		Raw:       raw,
	}, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one despite the JSON-only instruction.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
