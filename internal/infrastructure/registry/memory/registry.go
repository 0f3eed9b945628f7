// Package memory holds the gateway's live sessions. Sessions are
// process-memory only and rebuilt from a fresh upload after a restart;
// nothing here touches disk.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Meirbek-dev/tou-intake/internal/core/domain"
	"github.com/Meirbek-dev/tou-intake/internal/core/ports"
)

type Config struct {
	// MaxSessions caps live sessions to bound memory.
	MaxSessions int
	// IdleTTL evicts sessions untouched for this long.
	IdleTTL time.Duration
	// CleanupInterval paces the eviction sweep.
	CleanupInterval time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	if out.MaxSessions <= 0 {
		out.MaxSessions = 256
	}
	if out.IdleTTL <= 0 {
		out.IdleTTL = 30 * time.Minute
	}
	if out.CleanupInterval <= 0 {
		out.CleanupInterval = time.Minute
	}
	return out
}

type entry struct {
	orchestrator ports.SessionOrchestrator
	lastAccessed time.Time
}

// Registry is an in-memory session registry with idle eviction.
type Registry struct {
	cfg     Config
	factory func() ports.SessionOrchestrator

	mu       sync.RWMutex
	sessions map[string]*entry

	stopOnce sync.Once
	stop     chan struct{}
}

// New builds a registry; factory creates a fresh orchestrator per
// session. Call Close to stop the eviction sweep.
func New(cfg Config, factory func() ports.SessionOrchestrator) *Registry {
	r := &Registry{
		cfg:      cfg.withDefaults(),
		factory:  factory,
		sessions: make(map[string]*entry),
		stop:     make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

func (r *Registry) Create(_ context.Context) (ports.SessionOrchestrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.cfg.MaxSessions {
		r.evictOldestLocked()
	}
	if len(r.sessions) >= r.cfg.MaxSessions {
		return nil, domain.WrapError(domain.ErrSessionLimit, "create session", fmt.Errorf("%d live sessions", len(r.sessions)))
	}

	orch := r.factory()
	r.sessions[orch.ID()] = &entry{
		orchestrator: orch,
		lastAccessed: time.Now(),
	}
	return orch, nil
}

func (r *Registry) Get(id string) (ports.SessionOrchestrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("session %s", id))
	}
	e.lastAccessed = time.Now()
	return e.orchestrator, nil
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evictIdle(time.Now())
		}
	}
}

func (r *Registry) evictIdle(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.sessions {
		// An in-flight upload counts as activity even if no request
		// touched the session meanwhile.
		if e.orchestrator.Snapshot().Uploading {
			e.lastAccessed = now
			continue
		}
		if now.Sub(e.lastAccessed) > r.cfg.IdleTTL {
			delete(r.sessions, id)
			slog.Info("session_evicted", "session_id", id, "idle", now.Sub(e.lastAccessed).String())
		}
	}
}

// evictOldestLocked frees one slot by dropping the longest-idle session
// that is not mid-upload.
func (r *Registry) evictOldestLocked() {
	var oldestID string
	var oldestAt time.Time
	for id, e := range r.sessions {
		if e.orchestrator.Snapshot().Uploading {
			continue
		}
		if oldestID == "" || e.lastAccessed.Before(oldestAt) {
			oldestID = id
			oldestAt = e.lastAccessed
		}
	}
	if oldestID != "" {
		delete(r.sessions, oldestID)
		slog.Info("session_evicted", "session_id", oldestID, "reason", "capacity")
	}
}
