// Package runlock serializes pipeline passes across deployments with a
// Firestore document lock. Workout-ID allocation is read-then-write counting
// against the sheet, so two concurrent passes could mint duplicate serials
// for the same date; the lock is the external mutual-exclusion discipline
// the pipeline itself does not provide.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	shared "github.com/onalog/server/pkg"
)

// ErrHeld means another run currently owns the lock; the caller should skip
// this pass rather than wait.
var ErrHeld = errors.New("run lock held")

// DefaultTTL caps how long a crashed run can keep others out.
const DefaultTTL = 10 * time.Minute

type Lock struct {
	Client   *firestore.Client
	Resource string
	TTL      time.Duration

	holder string
}

func New(client *firestore.Client, resource string) *Lock {
	return &Lock{
		Client:   client,
		Resource: resource,
		TTL:      DefaultTTL,
		holder:   uuid.NewString(),
	}
}

type lockDoc struct {
	Holder     string    `firestore:"holder"`
	AcquiredAt time.Time `firestore:"acquired_at"`
	ExpiresAt  time.Time `firestore:"expires_at"`
}

// Acquire takes the lock, stealing it only if the previous holder's lease
// has expired.
func (l *Lock) Acquire(ctx context.Context) error {
	ref := l.Client.Collection(shared.CollectionRunLocks).Doc(l.Resource)
	now := time.Now().UTC()

	return l.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return fmt.Errorf("read run lock: %w", err)
		}
		if err == nil {
			var doc lockDoc
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("decode run lock: %w", err)
			}
			if doc.Holder != l.holder && doc.ExpiresAt.After(now) {
				return ErrHeld
			}
		}
		return tx.Set(ref, &lockDoc{
			Holder:     l.holder,
			AcquiredAt: now,
			ExpiresAt:  now.Add(l.TTL),
		})
	})
}

// Release drops the lock if this run still holds it.
func (l *Lock) Release(ctx context.Context) error {
	ref := l.Client.Collection(shared.CollectionRunLocks).Doc(l.Resource)

	return l.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}
		var doc lockDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if doc.Holder != l.holder {
			return nil // lease expired and was taken over; nothing to release
		}
		return tx.Delete(ref)
	})
}
