package domain

import "time"

// Session is the authoritative in-memory state of one applicant's intake:
// name fields, the ordered document set and the single-slot undo buffer.
// It is owned exclusively by the orchestrator; everything handed out is a
// deep copy.
type Session struct {
	ID        string   `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Files     []Record `json:"files"`
	// Pending mirrors the batch currently (or last) handed to the
	// classification service: queued/uploading rows while a request is in
	// flight, failed rows after a failed one. Never part of Files.
	Pending     []Record  `json:"pending,omitempty"`
	Uploading   bool      `json:"uploading"`
	LastDeleted *Record   `json:"last_deleted,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Clone returns a deep copy safe to hand across the ownership boundary.
func (s Session) Clone() Session {
	out := s
	out.Files = make([]Record, len(s.Files))
	copy(out.Files, s.Files)
	if len(s.Pending) > 0 {
		out.Pending = make([]Record, len(s.Pending))
		copy(out.Pending, s.Pending)
	}
	if s.LastDeleted != nil {
		deleted := *s.LastDeleted
		out.LastDeleted = &deleted
	}
	return out
}

// FindRecord looks a record up by its internal id.
func (s Session) FindRecord(recordID string) (Record, bool) {
	for _, r := range s.Files {
		if r.ID == recordID {
			return r, true
		}
	}
	return Record{}, false
}

// SessionEvent describes one committed session mutation for outbound
// notification.
type SessionEvent struct {
	SessionID string    `json:"session_id"`
	Operation string    `json:"operation"`
	FileCount int       `json:"file_count"`
	Uploading bool      `json:"uploading"`
	At        time.Time `json:"at"`
}
