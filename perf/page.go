package perf

import (
	"context"
	"encoding/base64"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// PageContext is one browser tab as seen by the analyzer.
type PageContext interface {
	// WatchResponses subscribes to finished network responses and the
	// page's load event. The subscription is live once WatchResponses
	// returns; run delivers events, one at a time and in browser order,
	// until ctx is done. Every response that finished before load reaches
	// fn before loaded is called. run must be called exactly once.
	WatchResponses(ctx context.Context, fn func(FinishedResponse), loaded func()) (run func())

	// Navigate loads url and returns after the page's "load" event fired.
	Navigate(ctx context.Context, url string) error

	// Eval evaluates a JS function expression in the page and returns its
	// JSON-serialised result.
	Eval(ctx context.Context, js string) (gson.JSON, error)

	// Close closes the tab.
	Close() error
}

// FinishedResponse is a network response whose body finished loading.
type FinishedResponse struct {
	RequestID string
	URL       string

	// Body reads the response body. It fails for bodies the browser no
	// longer holds (evicted, aborted, redirects).
	Body func(ctx context.Context) ([]byte, error)
}

// rodPage adapts a *rod.Page to PageContext.
type rodPage struct {
	page *rod.Page
}

// WatchResponses pairs Network.responseReceived with the matching
// Network.loadingFinished: a body can only be fetched once it finished
// loading, and redirects never get a responseReceived of their own.
// Page.loadEventFired rides the same queue, so it is delivered after every
// loadingFinished the browser sent before it.
func (p *rodPage) WatchResponses(ctx context.Context, fn func(FinishedResponse), loaded func()) func() {
	// Callbacks run sequentially inside run, so the map needs no lock.
	pending := make(map[proto.NetworkRequestID]string)

	return p.page.Context(ctx).EachEvent(
		func(e *proto.NetworkResponseReceived) {
			pending[e.RequestID] = e.Response.URL
		},
		func(e *proto.NetworkLoadingFinished) {
			url, ok := pending[e.RequestID]
			if !ok {
				return
			}
			delete(pending, e.RequestID)

			id := e.RequestID
			fn(FinishedResponse{
				RequestID: string(id),
				URL:       url,
				Body: func(ctx context.Context) ([]byte, error) {
					return p.responseBody(ctx, id)
				},
			})
		},
		func(e *proto.NetworkLoadingFailed) {
			delete(pending, e.RequestID)
		},
		func(e *proto.PageLoadEventFired) {
			loaded()
		},
	)
}

func (p *rodPage) responseBody(ctx context.Context, id proto.NetworkRequestID) ([]byte, error) {
	res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(p.page.Context(ctx))
	if err != nil {
		return nil, err
	}
	if res.Base64Encoded {
		return base64.StdEncoding.DecodeString(res.Body)
	}
	return []byte(res.Body), nil
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	// Navigate returns once response headers arrive; timing needs the
	// full load event.
	return page.WaitLoad()
}

func (p *rodPage) Eval(ctx context.Context, js string) (gson.JSON, error) {
	res, err := p.page.Context(ctx).Eval(js)
	if err != nil {
		return gson.New(nil), err
	}
	return res.Value, nil
}

// Close uses the page without a request context so it still works after
// the request deadline expired. A renderer that never acknowledges the
// close is abandoned after closeTimeout.
func (p *rodPage) Close() error {
	return p.page.Timeout(closeTimeout).Close()
}
