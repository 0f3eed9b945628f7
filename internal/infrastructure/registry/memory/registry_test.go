package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Meirbek-dev/tou-intake/internal/core/domain"
	"github.com/Meirbek-dev/tou-intake/internal/core/ports"
)

type orchestratorStub struct {
	id        string
	uploading bool
}

func newOrchestratorStub() *orchestratorStub {
	return &orchestratorStub{id: uuid.NewString()}
}

func (s *orchestratorStub) ID() string           { return s.id }
func (s *orchestratorStub) SetFirstName(string)  {}
func (s *orchestratorStub) SetLastName(string)   {}
func (s *orchestratorStub) UndoDelete() bool     { return false }
func (s *orchestratorStub) Reset()               {}
func (s *orchestratorStub) Subscribe(func(domain.Session)) {}

func (s *orchestratorStub) UploadFiles(context.Context, []domain.FileUpload) (int, error) {
	return 0, nil
}
func (s *orchestratorStub) DeleteFile(context.Context, string) error { return nil }
func (s *orchestratorStub) Snapshot() domain.Session {
	return domain.Session{ID: s.id, Uploading: s.uploading}
}
func (s *orchestratorStub) Groups() []domain.CategoryGroup { return nil }

func newTestRegistry(cfg Config) (*Registry, func() ports.SessionOrchestrator) {
	factory := func() ports.SessionOrchestrator { return newOrchestratorStub() }
	r := New(cfg, factory)
	return r, factory
}

func TestCreateAndGet(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	defer r.Close()

	orch, err := r.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err := r.Get(orch.ID())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID() != orch.ID() {
		t.Fatalf("expected same session, got %s vs %s", got.ID(), orch.ID())
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 live session, got %d", r.Len())
	}
}

func TestGetUnknownSession(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	defer r.Close()

	_, err := r.Get("nope")
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	defer r.Close()

	orch, _ := r.Create(context.Background())
	if !r.Remove(orch.ID()) {
		t.Fatalf("expected removal of existing session")
	}
	if r.Remove(orch.ID()) {
		t.Fatalf("second removal must report false")
	}
	if _, err := r.Get(orch.ID()); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("removed session must be gone, got %v", err)
	}
}

func TestCapacityEvictsOldestIdle(t *testing.T) {
	r, _ := newTestRegistry(Config{MaxSessions: 2, IdleTTL: time.Hour, CleanupInterval: time.Hour})
	defer r.Close()

	first, _ := r.Create(context.Background())
	time.Sleep(5 * time.Millisecond)
	second, _ := r.Create(context.Background())

	third, err := r.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() at capacity error = %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("expected cap of 2, got %d", r.Len())
	}
	if _, err := r.Get(first.ID()); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected oldest session evicted, got %v", err)
	}
	for _, id := range []string{second.ID(), third.ID()} {
		if _, err := r.Get(id); err != nil {
			t.Fatalf("expected session %s alive, got %v", id, err)
		}
	}
}

func TestCapacitySkipsUploadingSessions(t *testing.T) {
	busy := &orchestratorStub{id: uuid.NewString(), uploading: true}
	r := New(Config{MaxSessions: 1, IdleTTL: time.Hour, CleanupInterval: time.Hour},
		func() ports.SessionOrchestrator { return busy })
	defer r.Close()

	if _, err := r.Create(context.Background()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := r.Create(context.Background())
	if !domain.IsKind(err, domain.ErrSessionLimit) {
		t.Fatalf("expected session limit when only uploading sessions remain, got %v", err)
	}
}

func TestEvictIdleSweep(t *testing.T) {
	r, _ := newTestRegistry(Config{MaxSessions: 10, IdleTTL: 10 * time.Millisecond, CleanupInterval: time.Hour})
	defer r.Close()

	orch, _ := r.Create(context.Background())
	time.Sleep(20 * time.Millisecond)
	r.evictIdle(time.Now())

	if _, err := r.Get(orch.ID()); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected idle session evicted, got %v", err)
	}
}
