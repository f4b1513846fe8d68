package perf

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// detachTimeout bounds how long Detach waits for the event loop to exit.
const detachTimeout = 2 * time.Second

// ResponseRecord is one observed response: its body size and when the
// body finished being read.
type ResponseRecord struct {
	ByteSize   int64
	ObservedAt time.Time
}

// ResponseTap accumulates a ResponseRecord for every response a page
// finishes loading while the tap is attached. It is safe for concurrent use.
type ResponseTap struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	log     []ResponseRecord
	dropped int
	reading int           // body reads in flight
	idle    chan struct{} // closed when reading drops to 0; nil if nobody waits

	loaded     chan struct{} // closed once the page's load event was delivered
	loadedOnce sync.Once

	detachOnce sync.Once
}

// Attach subscribes to page's responses. The subscription is active when
// Attach returns, so it must be called before navigation starts.
func Attach(ctx context.Context, page PageContext) *ResponseTap {
	tapCtx, cancel := context.WithCancel(ctx)
	t := &ResponseTap{
		cancel: cancel,
		done:   make(chan struct{}),
		loaded: make(chan struct{}),
	}

	run := page.WatchResponses(tapCtx, func(r FinishedResponse) {
		t.mu.Lock()
		t.reading++
		t.mu.Unlock()
		go t.read(tapCtx, r)
	}, func() {
		t.loadedOnce.Do(func() { close(t.loaded) })
	})

	go func() {
		defer close(t.done)
		run()
	}()

	return t
}

// read fetches one body. Unreadable bodies are dropped, not recorded as zero.
func (t *ResponseTap) read(ctx context.Context, r FinishedResponse) {
	body, err := r.Body(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.dropped++
		slog.Debug("response body unreadable, skipping",
			"url", r.URL,
			"error", err,
		)
	} else {
		t.log = append(t.log, ResponseRecord{
			ByteSize:   int64(len(body)),
			ObservedAt: time.Now(),
		})
	}

	t.reading--
	if t.reading == 0 && t.idle != nil {
		close(t.idle)
		t.idle = nil
	}
}

// Settle blocks until the tap has seen the page's load event and every
// body read started by then has finished, or ctx is done. Responses that
// finished before load may still be queued in the event stream when
// navigation returns; waiting for load drains them.
func (t *ResponseTap) Settle(ctx context.Context) error {
	select {
	case <-t.loaded:
	case <-ctx.Done():
		return ctx.Err()
	}

	t.mu.Lock()
	if t.reading == 0 {
		t.mu.Unlock()
		return nil
	}
	if t.idle == nil {
		t.idle = make(chan struct{})
	}
	idle := t.idle
	t.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the records collected so far. Later appends
// never affect a returned snapshot.
func (t *ResponseTap) Snapshot() []ResponseRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.log)
}

// Dropped returns how many responses were skipped because their body
// could not be read.
func (t *ResponseTap) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Detach unsubscribes from the page and aborts body reads still in
// flight. It is idempotent.
func (t *ResponseTap) Detach() {
	t.detachOnce.Do(func() {
		t.cancel()
		select {
		case <-t.done:
		case <-time.After(detachTimeout):
			slog.Warn("response tap: event loop did not stop in time")
		}
	})
}
