package domain

type RecordStatus string

const (
	StatusQueued    RecordStatus = "queued"
	StatusUploading RecordStatus = "uploading"
	StatusConfirmed RecordStatus = "confirmed"
	StatusFailed    RecordStatus = "failed"
)

// Record is one document entry in a session, local-only until the
// classification service confirms it with a stored name.
type Record struct {
	ID           string       `json:"id"`
	OriginalName string       `json:"original_name"`
	StoredName   string       `json:"stored_name,omitempty"`
	Category     string       `json:"category"`
	Status       RecordStatus `json:"status"`
}

// Local reports whether the record was never confirmed by the service.
// Local records cannot be downloaded or deleted server-side.
func (r Record) Local() bool {
	return r.StoredName == ""
}

// FileUpload is one candidate file of an upload batch.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// ClassifiedFile is one entry of the manifest returned by the
// classification service for an upload batch.
type ClassifiedFile struct {
	OriginalName string
	StoredName   string
	Category     string
}
