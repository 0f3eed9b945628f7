package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/Meirbek-dev/tou-intake/internal/core/domain"
)

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	orch, err := rt.registry.Create(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.SetLiveSessions(rt.registry.Len())
	}
	writeJSON(w, http.StatusCreated, snapshotResponse(orch))
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	orch, ok := rt.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(orch))
}

func (rt *Router) removeSession(w http.ResponseWriter, r *http.Request) {
	orch, ok := rt.session(w, r)
	if !ok {
		return
	}
	rt.registry.Remove(orch.ID())
	if rt.metrics != nil {
		rt.metrics.SetLiveSessions(rt.registry.Len())
	}
	w.WriteHeader(http.StatusNoContent)
}

// applicantRequest uses pointers so a PATCH can set either name alone.
type applicantRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (rt *Router) setApplicant(w http.ResponseWriter, r *http.Request) {
	orch, ok := rt.session(w, r)
	if !ok {
		return
	}
	var req applicantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "setApplicant", err))
		return
	}
	if req.FirstName == nil && req.LastName == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "nothing to update"})
		return
	}
	if req.FirstName != nil {
		orch.SetFirstName(*req.FirstName)
	}
	if req.LastName != nil {
		orch.SetLastName(*req.LastName)
	}
	writeJSON(w, http.StatusOK, snapshotResponse(orch))
}

func (rt *Router) undoDelete(w http.ResponseWriter, r *http.Request) {
	orch, ok := rt.session(w, r)
	if !ok {
		return
	}
	restored := orch.UndoDelete()
	if rt.metrics != nil {
		rt.metrics.RecordUndo(serviceName, restored)
	}
	resp := struct {
		Restored bool `json:"restored"`
		sessionResponse
	}{restored, snapshotResponse(orch)}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) resetSession(w http.ResponseWriter, r *http.Request) {
	orch, ok := rt.session(w, r)
	if !ok {
		return
	}
	orch.Reset()
	writeJSON(w, http.StatusOK, snapshotResponse(orch))
}
