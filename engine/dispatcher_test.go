package engine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type stubEngine struct {
	name  string
	delay time.Duration
	err   error
	calls atomic.Int32
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &FetchResult{HTML: "<html></html>", EngineName: s.name, FinalURL: req.URL}, nil
}

func TestDispatch_FastEngineWins(t *testing.T) {
	httpEng := &stubEngine{name: ModeHTTP}
	browser := &stubEngine{name: ModeBrowser}
	mem := NewDomainMemory(time.Hour)
	d := NewDispatcher([]Engine{httpEng, browser}, []time.Duration{0, 200 * time.Millisecond}, mem)

	res, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://example.com/a"}, ModeAuto)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if res.EngineName != ModeHTTP {
		t.Errorf("EngineName = %q, want %q", res.EngineName, ModeHTTP)
	}
	if browser.calls.Load() != 0 {
		t.Error("browser engine started although http succeeded before its delay")
	}
	if got := mem.Get("example.com"); got != ModeHTTP {
		t.Errorf("remembered engine = %q, want %q", got, ModeHTTP)
	}
}

func TestDispatch_EscalatesOnFailure(t *testing.T) {
	httpEng := &stubEngine{name: ModeHTTP, err: errors.New("403")}
	browser := &stubEngine{name: ModeBrowser}
	mem := NewDomainMemory(time.Hour)
	d := NewDispatcher([]Engine{httpEng, browser}, []time.Duration{0, 10 * time.Millisecond}, mem)

	res, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://shop.example.com"}, ModeAuto)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if res.EngineName != ModeBrowser {
		t.Errorf("EngineName = %q, want %q", res.EngineName, ModeBrowser)
	}

	// Second dispatch goes straight to the remembered browser engine.
	if _, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://shop.example.com/b"}, ModeAuto); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got := httpEng.calls.Load(); got != 1 {
		t.Errorf("http engine called %d times, want 1", got)
	}
}

func TestDispatch_AllFail(t *testing.T) {
	d := NewDispatcher([]Engine{
		&stubEngine{name: ModeHTTP, err: errors.New("connection refused")},
		&stubEngine{name: ModeBrowser, err: errors.New("net::ERR_CONNECTION_REFUSED")},
	}, nil, nil)

	_, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://down.example.com"}, ModeAuto)
	if err == nil {
		t.Fatal("Dispatch() succeeded, want error")
	}
	for _, want := range []string{"http: connection refused", "browser: net::ERR_CONNECTION_REFUSED"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestDispatch_ForcedMode(t *testing.T) {
	httpEng := &stubEngine{name: ModeHTTP}
	browser := &stubEngine{name: ModeBrowser}
	d := NewDispatcher([]Engine{httpEng, browser}, nil, nil)

	res, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://example.com"}, ModeBrowser)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if res.EngineName != ModeBrowser || httpEng.calls.Load() != 0 {
		t.Errorf("forced browser mode used %q (http calls %d)", res.EngineName, httpEng.calls.Load())
	}

	if _, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://example.com"}, "ftp"); err == nil {
		t.Error("unknown mode accepted")
	}
}

func TestDispatch_StaleMemoryFallsBackToRace(t *testing.T) {
	httpEng := &stubEngine{name: ModeHTTP}
	browser := &stubEngine{name: ModeBrowser, err: errors.New("crashed")}
	mem := NewDomainMemory(time.Hour)
	mem.Set("example.com", ModeBrowser)
	d := NewDispatcher([]Engine{httpEng, browser}, []time.Duration{0, time.Second}, mem)

	res, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://example.com"}, ModeAuto)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if res.EngineName != ModeHTTP {
		t.Errorf("EngineName = %q, want %q", res.EngineName, ModeHTTP)
	}
	if got := mem.Get("example.com"); got != ModeHTTP {
		t.Errorf("memory = %q after race, want %q", got, ModeHTTP)
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://www.example.com/path?q=1", "www.example.com"},
		{"http://example.com:8080", "example.com"},
		{"::not a url", "::not a url"},
	}
	for _, tt := range tests {
		if got := extractDomain(tt.in); got != tt.want {
			t.Errorf("extractDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
