package perf

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ysmood/gson"
)

// fakeResponse is one response a fakePage "loads" during navigation.
type fakeResponse struct {
	url  string
	size int
	err  error // non-nil makes the body unreadable
}

// fakeEvent is either a finished response or, with load set, the page
// load event.
type fakeEvent struct {
	resp FinishedResponse
	load bool
	ack  chan struct{}
}

// fakePage is a PageContext whose responses are delivered to the watcher
// while Navigate runs, like a browser that reports every subresource
// before firing load. With lag set, delivery happens on a relay goroutine
// after Navigate has returned, the way rod queues CDP events.
type fakePage struct {
	responses  []fakeResponse
	navErr     error
	blockNav   bool          // Navigate waits for its context, then returns navErr or ctx.Err()
	lag        time.Duration // >0 delivers events asynchronously, one per lag
	timing     string
	evalErr    error
	closeBlock chan struct{} // non-nil makes Close wait until it is closed

	events   chan fakeEvent
	watchCtx context.Context
	watched  atomic.Int32
	closed   atomic.Int32
}

func newFakePage(responses ...fakeResponse) *fakePage {
	return &fakePage{
		responses: responses,
		timing:    `{"fcp": 812.456, "domContentLoaded": 640.4, "load": 1200.6}`,
		events:    make(chan fakeEvent),
	}
}

func (p *fakePage) WatchResponses(ctx context.Context, fn func(FinishedResponse), loaded func()) func() {
	p.watched.Add(1)
	p.watchCtx = ctx
	return func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-p.events:
				if ev.load {
					loaded()
				} else {
					fn(ev.resp)
				}
				close(ev.ack)
			}
		}
	}
}

func responseEvent(r fakeResponse) fakeEvent {
	body := make([]byte, r.size)
	readErr := r.err
	return fakeEvent{
		resp: FinishedResponse{
			URL: r.url,
			Body: func(context.Context) ([]byte, error) {
				if readErr != nil {
					return nil, readErr
				}
				return body, nil
			},
		},
		ack: make(chan struct{}),
	}
}

func (p *fakePage) send(ctx context.Context, ev fakeEvent) error {
	select {
	case p.events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ev.ack
	return nil
}

// emit hands one response to the watcher and waits until it was accepted.
func (p *fakePage) emit(ctx context.Context, r fakeResponse) error {
	return p.send(ctx, responseEvent(r))
}

// emitLoad fires the page load event and waits until it was accepted.
func (p *fakePage) emitLoad(ctx context.Context) error {
	return p.send(ctx, fakeEvent{load: true, ack: make(chan struct{})})
}

// relay delivers every response and then the load event, one per lag,
// until the watcher stops.
func (p *fakePage) relay(ctx context.Context) {
	for _, r := range p.responses {
		time.Sleep(p.lag)
		if p.emit(ctx, r) != nil {
			return
		}
	}
	time.Sleep(p.lag)
	_ = p.emitLoad(ctx)
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	if p.lag > 0 && p.watched.Load() > 0 {
		go p.relay(p.watchCtx)
		return p.navErr
	}
	for _, r := range p.responses {
		if err := p.emit(ctx, r); err != nil {
			return err
		}
	}
	if p.blockNav {
		<-ctx.Done()
		if p.navErr != nil {
			return p.navErr
		}
		return ctx.Err()
	}
	if p.watched.Load() > 0 {
		if err := p.emitLoad(ctx); err != nil {
			return err
		}
	}
	return p.navErr
}

func (p *fakePage) Eval(ctx context.Context, js string) (gson.JSON, error) {
	if p.evalErr != nil {
		return gson.New(nil), p.evalErr
	}
	return gson.NewFrom(p.timing), nil
}

func (p *fakePage) Close() error {
	p.closed.Add(1)
	if p.closeBlock != nil {
		<-p.closeBlock
	}
	return nil
}

// fakeSession counts releases so tests can assert teardown happened once.
type fakeSession struct {
	page     *fakePage
	openErr  error
	releases atomic.Int32
}

func (s *fakeSession) OpenPage(ctx context.Context) (PageContext, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.page, nil
}

func (s *fakeSession) Release() {
	s.releases.Add(1)
}

func factoryFor(s *fakeSession) SessionFactory {
	return func(context.Context) (BrowserSession, error) { return s, nil }
}

var errUnreadable = errors.New("No resource with given identifier found")
