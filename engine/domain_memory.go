package engine

import (
	"context"
	"sync"
	"time"
)

type domainEntry struct {
	engineName string
	expiresAt  time.Time
}

// DomainMemory remembers which engine last succeeded for each domain so
// the next audit of that domain skips the race. Entries expire after ttl.
type DomainMemory struct {
	mu      sync.Mutex
	entries map[string]domainEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewDomainMemory creates a DomainMemory with the given TTL. Expired
// entries are dropped lazily on lookup and by Prune.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	return &DomainMemory{
		entries: make(map[string]domainEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the remembered engine name for a domain, or "".
func (dm *DomainMemory) Get(domain string) string {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	e, ok := dm.entries[domain]
	if !ok {
		return ""
	}
	if dm.now().After(e.expiresAt) {
		delete(dm.entries, domain)
		return ""
	}
	return e.engineName
}

// Set records which engine succeeded for a domain.
func (dm *DomainMemory) Set(domain, engineName string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.entries[domain] = domainEntry{
		engineName: engineName,
		expiresAt:  dm.now().Add(dm.ttl),
	}
}

// Delete forgets a domain (e.g. after the remembered engine failed).
func (dm *DomainMemory) Delete(domain string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	delete(dm.entries, domain)
}

// Prune removes every expired entry and returns how many were removed.
func (dm *DomainMemory) Prune() int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	now := dm.now()
	n := 0
	for k, e := range dm.entries {
		if now.After(e.expiresAt) {
			delete(dm.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (dm *DomainMemory) Len() int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return len(dm.entries)
}

// PruneLoop calls Prune every interval until ctx is done.
func (dm *DomainMemory) PruneLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dm.Prune()
		}
	}
}
