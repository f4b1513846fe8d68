package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

// Fetch modes accepted by Dispatch.
const (
	ModeAuto    = "auto"
	ModeHTTP    = "http"
	ModeBrowser = "browser"
)

// Dispatcher runs engines with staged escalation: the cheapest engine
// starts immediately, heavier ones start after their delay unless an
// earlier engine already succeeded.
type Dispatcher struct {
	engines []Engine
	delays  []time.Duration
	memory  *DomainMemory
}

// NewDispatcher creates a Dispatcher. engines[i] starts delays[i] after the
// race begins; missing delays default to 0. memory may be nil.
func NewDispatcher(engines []Engine, delays []time.Duration, memory *DomainMemory) *Dispatcher {
	d := make([]time.Duration, len(engines))
	copy(d, delays)
	return &Dispatcher{
		engines: engines,
		delays:  d,
		memory:  memory,
	}
}

// Dispatch fetches req. ModeHTTP and ModeBrowser run only the engine of
// that name; ModeAuto tries the engine remembered for the domain first,
// then races all engines.
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest, mode string) (*FetchResult, error) {
	if mode != "" && mode != ModeAuto {
		eng := d.engine(mode)
		if eng == nil {
			return nil, fmt.Errorf("dispatcher: no %q engine configured", mode)
		}
		return eng.Fetch(ctx, req)
	}

	domain := extractDomain(req.URL)
	if d.memory != nil {
		if eng := d.engine(d.memory.Get(domain)); eng != nil {
			result, err := eng.Fetch(ctx, req)
			if err == nil {
				return result, nil
			}
			slog.Info("remembered engine failed, running full race",
				"domain", domain, "engine", eng.Name(), "error", err)
			d.memory.Delete(domain)
		}
	}

	return d.race(ctx, req, domain)
}

func (d *Dispatcher) engine(name string) Engine {
	if name == "" {
		return nil
	}
	for _, eng := range d.engines {
		if eng.Name() == name {
			return eng
		}
	}
	return nil
}

// race returns the first successful result, or all engine errors joined.
func (d *Dispatcher) race(ctx context.Context, req *FetchRequest, domain string) (*FetchResult, error) {
	type outcome struct {
		result *FetchResult
		err    error
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make(chan outcome, len(d.engines))
	var wg sync.WaitGroup

	for i, eng := range d.engines {
		wg.Add(1)
		go func(e Engine, delay time.Duration) {
			defer wg.Done()

			if delay > 0 {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-raceCtx.Done():
					return
				case <-timer.C:
				}
			}
			if raceCtx.Err() != nil {
				return
			}

			slog.Debug("engine starting", "engine", e.Name(), "url", req.URL)
			result, err := e.Fetch(raceCtx, req)
			if err != nil {
				err = fmt.Errorf("%s: %w", e.Name(), err)
			}
			outcomes <- outcome{result: result, err: err}
		}(eng, d.delays[i])
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var errs []error
	for o := range outcomes {
		if o.err != nil {
			errs = append(errs, o.err)
			continue
		}
		// First success wins; the deferred cancel stops the rest.
		slog.Debug("engine won race", "engine", o.result.EngineName, "url", req.URL)
		if d.memory != nil {
			d.memory.Set(domain, o.result.EngineName)
		}
		return o.result, nil
	}

	if len(errs) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("dispatcher: no engine ran for %s", req.URL)
	}
	return nil, errors.Join(errs...)
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
