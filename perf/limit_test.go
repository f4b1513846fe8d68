package perf

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionLimit(t *testing.T) {
	ctx := context.Background()
	l := NewSessionLimit(2)

	for i := 0; i < 2; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	if s := l.Stats(); s.MaxSessions != 2 || s.ActiveSessions != 2 {
		t.Errorf("Stats() = %+v, want {2 2}", s)
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := l.Acquire(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire past the cap = %v, want deadline exceeded", err)
	}
	if s := l.Stats(); s.ActiveSessions != 2 {
		t.Errorf("failed Acquire changed ActiveSessions to %d", s.ActiveSessions)
	}

	l.Release()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire after Release: %v", err)
	}
	l.Release()
	l.Release()
	if s := l.Stats(); s.ActiveSessions != 0 {
		t.Errorf("ActiveSessions = %d, want 0", s.ActiveSessions)
	}
}

func TestSessionLimit_Uncapped(t *testing.T) {
	l := NewSessionLimit(0)
	for i := 0; i < 10; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
	}
	if s := l.Stats(); s.MaxSessions != 0 || s.ActiveSessions != 10 {
		t.Errorf("Stats() = %+v, want {0 10}", s)
	}
}
