package ports

import (
	"context"
	"io"

	"github.com/Meirbek-dev/tou-intake/internal/core/domain"
)

// ClassificationGateway is the transport boundary to the remote
// classification service.
type ClassificationGateway interface {
	// Upload sends one multipart batch and returns the renamed-file
	// manifest. The call either yields the full manifest or an error,
	// never a partial result.
	Upload(ctx context.Context, firstName, lastName string, batch []domain.FileUpload) ([]domain.ClassifiedFile, error)

	// Delete removes one stored file server-side.
	Delete(ctx context.Context, storedName string) error

	// FetchFile streams one stored file. The caller closes the reader.
	FetchFile(ctx context.Context, storedName string) (io.ReadCloser, string, error)

	// FetchArchive streams a zip of every stored file for the applicant.
	FetchArchive(ctx context.Context, firstName, lastName string) (io.ReadCloser, string, error)
}

// SessionEventPublisher pushes committed session mutations to interested
// consumers outside the process.
type SessionEventPublisher interface {
	PublishSessionEvent(ctx context.Context, event domain.SessionEvent) error
}
