package ports

import (
	"context"

	"github.com/Meirbek-dev/tou-intake/internal/core/domain"
)

// SessionOrchestrator is the inbound contract for one intake session.
// All session mutation goes through these operations; the presentation
// layer only ever sees snapshots.
type SessionOrchestrator interface {
	ID() string
	SetFirstName(value string)
	SetLastName(value string)

	// UploadFiles validates the batch, issues exactly one classification
	// request and appends the confirmed manifest. Returns the number of
	// appended records. Rejected with domain.ErrBusy while another upload
	// is in flight; calls are never queued.
	UploadFiles(ctx context.Context, batch []domain.FileUpload) (int, error)

	// DeleteFile removes a record by internal id. Local-only records are
	// removed without network I/O; confirmed records only after the
	// service acknowledges the delete.
	DeleteFile(ctx context.Context, recordID string) error

	// UndoDelete restores the most recently deleted record to the tail of
	// the file list. Reports whether anything was restored.
	UndoDelete() bool

	Reset()

	Snapshot() domain.Session
	Groups() []domain.CategoryGroup

	// Subscribe registers a callback fired with a session snapshot after
	// every committed mutation.
	Subscribe(fn func(domain.Session))
}

// SessionRegistry tracks live sessions for the gateway.
type SessionRegistry interface {
	Create(ctx context.Context) (SessionOrchestrator, error)
	Get(id string) (SessionOrchestrator, error)
	Remove(id string) bool
	Len() int
}
