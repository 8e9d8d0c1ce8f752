package workout

import (
	"context"
	"fmt"
	"strings"
)

// DateCounter reports how many workouts the external store already holds for
// a date. The tabular-store client satisfies this.
type DateCounter interface {
	CountWorkoutsByDate(ctx context.Context, date string) (int, error)
}

// NextID computes the identifier for a new workout on the given date:
// YYYYMMDD-SSS, where the 3-digit serial is the current per-date count plus
// one. This is a read-then-use scheme, not a store-side atomic counter; two
// overlapping runs can allocate the same serial for a date, which is why
// pipeline runs are serialized behind a run lock.
func NextID(ctx context.Context, counter DateCounter, date string) (string, error) {
	count, err := counter.CountWorkoutsByDate(ctx, date)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%03d", strings.ReplaceAll(date, "-", ""), count+1), nil
}
