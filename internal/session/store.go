package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no live context exists for a session id.
	ErrNotFound = errors.New("session not found")
	// ErrCorrupted is returned when a persisted context cannot be decoded.
	// Callers start a fresh session instead of failing the message.
	ErrCorrupted = errors.New("session data corrupted")
)

// Store persists conversation contexts keyed by session id. Implementations
// must honor the TTL: an expired session is never returned.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Context, error)
	Put(ctx context.Context, c *Context) error
	Delete(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	ctx      *Context
	storedAt time.Time
}

// MemoryStore is a threadsafe in-memory store used in tests and single-node
// deployments. Expiry is lazy: checked on access against the TTL.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time

	// onExpire, when set, receives every context discarded by expiry so the
	// caller can emit a session summary before the data is gone.
	onExpire func(*Context)
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// OnExpire registers a callback invoked for every expired session. Must be
// called before the store is shared.
func (s *MemoryStore) OnExpire(fn func(*Context)) { s.onExpire = fn }

// WithClock overrides the time source, for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().Sub(entry.ctx.LastActivity) > s.ttl {
		delete(s.entries, sessionID)
		if s.onExpire != nil {
			s.onExpire(entry.ctx)
		}
		return nil, ErrNotFound
	}
	return entry.ctx, nil
}

func (s *MemoryStore) Put(_ context.Context, c *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[c.SessionID] = &memoryEntry{ctx: c, storedAt: s.now()}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

// Sweep removes every expired session, invoking the expiry callback for each.
// Returns the number of sessions discarded.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	now := s.now()
	for id, entry := range s.entries {
		if now.Sub(entry.ctx.LastActivity) > s.ttl {
			delete(s.entries, id)
			removed++
			if s.onExpire != nil {
				s.onExpire(entry.ctx)
			}
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
