package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Meirbek-dev/tou-intake/internal/core/domain"
)

// memory threshold for multipart parsing; larger parts spill to disk.
const multipartMemoryLimit = 32 << 20

func (rt *Router) uploadFiles(w http.ResponseWriter, r *http.Request) {
	orch, ok := rt.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "uploadFiles", err))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Warn("multipart_cleanup_failed", "error", err)
		}
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "uploadFiles",
			errors.New("no files in request")))
		return
	}

	batch, err := readBatch(headers)
	if err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "uploadFiles", err))
		return
	}

	start := time.Now()
	appended, err := orch.UploadFiles(r.Context(), batch)
	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, uploadOutcome(err), len(batch), time.Since(start))
		switch {
		case domain.IsKind(err, domain.ErrBusy):
			rt.metrics.RecordBusyRejection(serviceName)
		case domain.IsKind(err, domain.ErrValidationRejected):
			rt.metrics.RecordValidationRejection(serviceName)
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}

	resp := struct {
		Appended int `json:"appended"`
		sessionResponse
	}{appended, snapshotResponse(orch)}
	writeJSON(w, http.StatusOK, resp)
}

func uploadOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case domain.IsKind(err, domain.ErrBusy):
		return "busy"
	case domain.IsKind(err, domain.ErrValidationRejected):
		return "rejected"
	default:
		return "failure"
	}
}

func readBatch(headers []*multipart.FileHeader) ([]domain.FileUpload, error) {
	batch := make([]domain.FileUpload, 0, len(headers))
	for _, fh := range headers {
		part, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", fh.Filename, err)
		}
		batch = append(batch, domain.FileUpload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return batch, nil
}

func (rt *Router) deleteFile(w http.ResponseWriter, r *http.Request) {
	orch, ok := rt.session(w, r)
	if !ok {
		return
	}

	err := orch.DeleteFile(r.Context(), chi.URLParam(r, "recordID"))
	if rt.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		rt.metrics.RecordDelete(serviceName, outcome)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(orch))
}

func (rt *Router) downloadFile(w http.ResponseWriter, r *http.Request) {
	orch, ok := rt.session(w, r)
	if !ok {
		return
	}

	record, found := orch.Snapshot().FindRecord(chi.URLParam(r, "recordID"))
	if !found {
		writeError(w, domain.WrapError(domain.ErrRecordNotFound, "downloadFile",
			errors.New("no such record in session")))
		return
	}
	if record.Local() {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "downloadFile",
			errors.New("record has no stored copy")))
		return
	}

	body, contentType, err := rt.gateway.FetchFile(r.Context(), record.StoredName)
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()

	streamAttachment(w, body, contentType, record.StoredName)
}

func (rt *Router) downloadArchive(w http.ResponseWriter, r *http.Request) {
	orch, ok := rt.session(w, r)
	if !ok {
		return
	}

	snap := orch.Snapshot()
	body, contentType, err := rt.gateway.FetchArchive(r.Context(), snap.FirstName, snap.LastName)
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()

	streamAttachment(w, body, contentType, "documents.zip")
}

func streamAttachment(w http.ResponseWriter, body io.Reader, contentType, filename string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("stream_attachment_failed", "filename", filename, "error", err)
	}
}
