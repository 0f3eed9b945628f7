package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Meirbek-dev/tou-intake/internal/core/domain"
	"github.com/Meirbek-dev/tou-intake/internal/core/ports"
)

// SessionOrchestrator owns one intake session. It is the only writer of
// the session state: the busy guard serializes uploads, deletes are
// confirmed-before-removal, and every committed mutation is published to
// subscribers as a deep snapshot.
type SessionOrchestrator struct {
	gateway   ports.ClassificationGateway
	publisher ports.SessionEventPublisher

	mu        sync.Mutex
	session   domain.Session
	listeners []func(domain.Session)
}

// NewSessionOrchestrator builds an empty session. publisher may be nil.
func NewSessionOrchestrator(gateway ports.ClassificationGateway, publisher ports.SessionEventPublisher) *SessionOrchestrator {
	return &SessionOrchestrator{
		gateway:   gateway,
		publisher: publisher,
		session: domain.Session{
			ID:        uuid.NewString(),
			Files:     []domain.Record{},
			CreatedAt: time.Now().UTC(),
		},
	}
}

func (o *SessionOrchestrator) ID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.ID
}

func (o *SessionOrchestrator) SetFirstName(value string) {
	o.mu.Lock()
	o.session.FirstName = strings.TrimSpace(value)
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(context.Background(), "set_first_name", snap)
}

func (o *SessionOrchestrator) SetLastName(value string) {
	o.mu.Lock()
	o.session.LastName = strings.TrimSpace(value)
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(context.Background(), "set_last_name", snap)
}

// UploadFiles issues exactly one classification request for the whole
// batch. The busy guard is the load-bearing invariant here: the remote
// service has no idempotency key, so a second in-flight batch must be
// rejected outright, never queued.
func (o *SessionOrchestrator) UploadFiles(ctx context.Context, batch []domain.FileUpload) (int, error) {
	o.mu.Lock()
	if o.session.Uploading {
		o.mu.Unlock()
		return 0, domain.WrapError(domain.ErrBusy, "upload", fmt.Errorf("batch of %d rejected", len(batch)))
	}
	if err := domain.ValidateBatch(batch); err != nil {
		o.mu.Unlock()
		return 0, err
	}

	o.session.Uploading = true
	o.session.Pending = queuedRecords(batch)
	markPending(o.session.Pending, domain.StatusUploading)
	firstName := o.session.FirstName
	lastName := o.session.LastName
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(ctx, "upload_started", snap)

	manifest, err := o.gateway.Upload(ctx, firstName, lastName, batch)

	// One-shot latch: completion is applied at most once even if a
	// recovery path re-enters, so a late success can never race a
	// failure into a double state transition.
	finished := false
	finish := func(appended []domain.Record, failure error) (int, error) {
		if finished {
			return 0, nil
		}
		finished = true

		o.mu.Lock()
		o.session.Uploading = false
		if failure == nil {
			o.session.Pending = nil
			o.session.Files = append(o.session.Files, appended...)
		} else {
			// Failed rows stay visible in Pending until the next batch
			// or reset; Files itself is untouched, all-or-nothing.
			markPending(o.session.Pending, domain.StatusFailed)
		}
		snap := o.snapshotLocked()
		o.mu.Unlock()

		if failure != nil {
			o.notify(ctx, "upload_failed", snap)
			return 0, failure
		}
		o.notify(ctx, "upload_confirmed", snap)
		return len(appended), nil
	}

	if err != nil {
		return finish(nil, domain.WrapError(domain.ErrUploadTransport, "upload", err))
	}
	return finish(confirmRecords(manifest), nil)
}

// DeleteFile removes a record by internal id. The record is copied into
// the undo slot before any removal attempt, so a failed server delete
// still leaves undo as a safe no-op recovery path.
func (o *SessionOrchestrator) DeleteFile(ctx context.Context, recordID string) error {
	o.mu.Lock()
	record, ok := o.session.FindRecord(recordID)
	if !ok {
		o.mu.Unlock()
		return domain.WrapError(domain.ErrRecordNotFound, "delete", fmt.Errorf("record %s", recordID))
	}

	deleted := record
	o.session.LastDeleted = &deleted

	if record.Local() {
		o.removeRecordLocked(recordID)
		snap := o.snapshotLocked()
		o.mu.Unlock()
		o.notify(ctx, "file_deleted", snap)
		return nil
	}
	o.mu.Unlock()

	// Confirmed records are removed only after the service acknowledges;
	// the lock is not held across network I/O so uploads completing in
	// parallel are not blocked.
	if err := o.gateway.Delete(ctx, record.StoredName); err != nil {
		o.mu.Lock()
		snap := o.snapshotLocked()
		o.mu.Unlock()
		o.notify(ctx, "delete_failed", snap)
		return domain.WrapError(domain.ErrDeleteTransport, "delete", err)
	}

	o.mu.Lock()
	o.removeRecordLocked(recordID)
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(ctx, "file_deleted", snap)
	return nil
}

// UndoDelete restores the slot to the tail of the file list. Undo is a
// client convenience, not a transactional rollback: if the earlier server
// delete already succeeded the stored file is gone remotely, and the
// restored record behaves like a fresh entry.
func (o *SessionOrchestrator) UndoDelete() bool {
	o.mu.Lock()
	if o.session.LastDeleted == nil {
		o.mu.Unlock()
		return false
	}
	restored := *o.session.LastDeleted
	o.session.Files = append(o.session.Files, restored)
	o.session.LastDeleted = nil
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(context.Background(), "delete_undone", snap)
	return true
}

// Reset clears the whole session. No server contact: the service exposes
// no bulk-delete endpoint.
func (o *SessionOrchestrator) Reset() {
	o.mu.Lock()
	o.session.FirstName = ""
	o.session.LastName = ""
	o.session.Files = []domain.Record{}
	o.session.Pending = nil
	o.session.LastDeleted = nil
	o.session.Uploading = false
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(context.Background(), "reset", snap)
}

func (o *SessionOrchestrator) Snapshot() domain.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *SessionOrchestrator) Groups() []domain.CategoryGroup {
	o.mu.Lock()
	files := make([]domain.Record, len(o.session.Files))
	copy(files, o.session.Files)
	o.mu.Unlock()
	return domain.GroupByCategory(files)
}

func (o *SessionOrchestrator) Subscribe(fn func(domain.Session)) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	o.listeners = append(o.listeners, fn)
	o.mu.Unlock()
}

func (o *SessionOrchestrator) snapshotLocked() domain.Session {
	return o.session.Clone()
}

func (o *SessionOrchestrator) removeRecordLocked(recordID string) {
	files := o.session.Files[:0]
	for _, r := range o.session.Files {
		if r.ID != recordID {
			files = append(files, r)
		}
	}
	o.session.Files = files
}

// notify fans a committed snapshot out to subscribers and, when wired,
// the outbound event publisher. Publisher failures are logged, never
// surfaced: notification must not fail a committed mutation.
func (o *SessionOrchestrator) notify(ctx context.Context, operation string, snap domain.Session) {
	o.mu.Lock()
	listeners := make([]func(domain.Session), len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}

	if o.publisher == nil {
		return
	}
	event := domain.SessionEvent{
		SessionID: snap.ID,
		Operation: operation,
		FileCount: len(snap.Files),
		Uploading: snap.Uploading,
		At:        time.Now().UTC(),
	}
	if err := o.publisher.PublishSessionEvent(ctx, event); err != nil {
		slog.Warn("session_event_publish_failed", "session_id", snap.ID, "operation", operation, "error", err)
	}
}

// queuedRecords builds the pending-side records for an accepted batch.
// They walk the lifecycle queued -> uploading -> confirmed/failed but
// never enter the session file list themselves.
func queuedRecords(batch []domain.FileUpload) []domain.Record {
	records := make([]domain.Record, 0, len(batch))
	for _, f := range batch {
		records = append(records, domain.Record{
			ID:           uuid.NewString(),
			OriginalName: f.Name,
			Status:       domain.StatusQueued,
		})
	}
	return records
}

func markPending(records []domain.Record, status domain.RecordStatus) {
	for i := range records {
		records[i].Status = status
	}
}

// confirmRecords turns the service manifest into confirmed records in
// manifest order. An empty or unknown category falls back to
// Unclassified; an empty stored name means the service classified but
// could not persist the file, the record stays local-only.
func confirmRecords(manifest []domain.ClassifiedFile) []domain.Record {
	records := make([]domain.Record, 0, len(manifest))
	for _, m := range manifest {
		category := m.Category
		if category == "" {
			category = domain.CategoryUnclassified
		}
		records = append(records, domain.Record{
			ID:           uuid.NewString(),
			OriginalName: m.OriginalName,
			StoredName:   m.StoredName,
			Category:     category,
			Status:       domain.StatusConfirmed,
		})
	}
	return records
}
