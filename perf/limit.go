package perf

import (
	"context"
	"sync/atomic"

	"github.com/use-agent/sitepulse/models"
	"golang.org/x/sync/semaphore"
)

// SessionLimit caps the browser processes alive at once. One limit is
// shared by every component that launches browsers, so the cap and the
// reported count cover them all.
type SessionLimit struct {
	max    int
	slots  *semaphore.Weighted // nil when uncapped
	active atomic.Int32
}

// NewSessionLimit creates a limit of max concurrent sessions; max <= 0
// means uncapped (sessions are still counted).
func NewSessionLimit(max int) *SessionLimit {
	l := &SessionLimit{max: max}
	if max > 0 {
		l.slots = semaphore.NewWeighted(int64(max))
	}
	return l
}

// Acquire blocks until a slot is free or ctx is done. Every successful
// Acquire must be paired with Release.
func (l *SessionLimit) Acquire(ctx context.Context) error {
	if l.slots != nil {
		if err := l.slots.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	l.active.Add(1)
	return nil
}

// Release frees a slot taken by Acquire.
func (l *SessionLimit) Release() {
	l.active.Add(-1)
	if l.slots != nil {
		l.slots.Release(1)
	}
}

// Stats reports the cap and the slots currently held.
func (l *SessionLimit) Stats() models.SessionStats {
	return models.SessionStats{
		MaxSessions:    l.max,
		ActiveSessions: int(l.active.Load()),
	}
}
