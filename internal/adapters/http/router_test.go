package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Meirbek-dev/tou-intake/internal/config"
	"github.com/Meirbek-dev/tou-intake/internal/core/domain"
	"github.com/Meirbek-dev/tou-intake/internal/core/ports"
)

type orchestratorFake struct {
	id        string
	session   domain.Session
	groups    []domain.CategoryGroup
	uploadErr error
	deleteErr error
	restored  bool

	gotBatch    []domain.FileUpload
	gotRecordID string
	resetCalls  int
	firstName   string
	lastName    string
}

func (o *orchestratorFake) ID() string               { return o.id }
func (o *orchestratorFake) SetFirstName(v string)    { o.firstName = v }
func (o *orchestratorFake) SetLastName(v string)     { o.lastName = v }
func (o *orchestratorFake) UndoDelete() bool         { return o.restored }
func (o *orchestratorFake) Reset()                   { o.resetCalls++ }
func (o *orchestratorFake) Snapshot() domain.Session { return o.session.Clone() }
func (o *orchestratorFake) Groups() []domain.CategoryGroup {
	return o.groups
}
func (o *orchestratorFake) Subscribe(func(domain.Session)) {}

func (o *orchestratorFake) UploadFiles(_ context.Context, batch []domain.FileUpload) (int, error) {
	o.gotBatch = batch
	if o.uploadErr != nil {
		return 0, o.uploadErr
	}
	return len(batch), nil
}

func (o *orchestratorFake) DeleteFile(_ context.Context, recordID string) error {
	o.gotRecordID = recordID
	return o.deleteErr
}

type registryFake struct {
	orchestrator *orchestratorFake
	createErr    error
	removed      []string
}

func (r *registryFake) Create(context.Context) (ports.SessionOrchestrator, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.orchestrator, nil
}

func (r *registryFake) Get(id string) (ports.SessionOrchestrator, error) {
	if r.orchestrator == nil || r.orchestrator.id != id {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "registryFake.Get",
			errors.New("unknown session"))
	}
	return r.orchestrator, nil
}

func (r *registryFake) Remove(id string) bool {
	r.removed = append(r.removed, id)
	return true
}

func (r *registryFake) Len() int { return 1 }

type gatewayStub struct {
	fileBody    string
	contentType string
	fetchErr    error

	gotStoredName string
	gotFirstName  string
	gotLastName   string
}

func (g *gatewayStub) Upload(context.Context, string, string, []domain.FileUpload) ([]domain.ClassifiedFile, error) {
	return nil, errors.New("not used in handler tests")
}

func (g *gatewayStub) Delete(context.Context, string) error { return nil }

func (g *gatewayStub) FetchFile(_ context.Context, storedName string) (io.ReadCloser, string, error) {
	g.gotStoredName = storedName
	if g.fetchErr != nil {
		return nil, "", g.fetchErr
	}
	return io.NopCloser(strings.NewReader(g.fileBody)), g.contentType, nil
}

func (g *gatewayStub) FetchArchive(_ context.Context, firstName, lastName string) (io.ReadCloser, string, error) {
	g.gotFirstName = firstName
	g.gotLastName = lastName
	if g.fetchErr != nil {
		return nil, "", g.fetchErr
	}
	return io.NopCloser(strings.NewReader(g.fileBody)), "application/zip", nil
}

func testConfig() config.Config {
	return config.Config{
		MaxUploadBytes: 10 << 20,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		MaxConcurrent:  8,
		RequestTimeout: time.Second,
	}
}

func newTestHandler(reg ports.SessionRegistry, gw ports.ClassificationGateway) http.Handler {
	return NewRouter(testConfig(), reg, gw, nil).Handler()
}

func defaultFakes() (*registryFake, *orchestratorFake, *gatewayStub) {
	orch := &orchestratorFake{
		id: "sess-1",
		session: domain.Session{
			ID:        "sess-1",
			FirstName: "Aigerim",
			LastName:  "Bekova",
			Files: []domain.Record{
				{ID: "rec-1", OriginalName: "passport.pdf", StoredName: "Bekova_udostoverenie.pdf", Category: "identity", Status: domain.StatusConfirmed},
				{ID: "rec-2", OriginalName: "photo.png", Category: "photo", Status: domain.StatusConfirmed},
			},
		},
	}
	return &registryFake{orchestrator: orch}, orch, &gatewayStub{fileBody: "binary", contentType: "application/pdf"}
}

func decodeSession(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestCreateSessionReturns201(t *testing.T) {
	reg, _, gw := defaultFakes()
	handler := newTestHandler(reg, gw)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.Code)
	}
	body := decodeSession(t, res)
	session, ok := body["session"].(map[string]any)
	if !ok {
		t.Fatalf("expected session object in response, got %v", body)
	}
	if session["id"] != "sess-1" {
		t.Fatalf("unexpected session id %v", session["id"])
	}
}

func TestGetUnknownSessionReturns404(t *testing.T) {
	reg, _, gw := defaultFakes()
	handler := newTestHandler(reg, gw)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestSetApplicantPatchesSingleField(t *testing.T) {
	reg, orch, gw := defaultFakes()
	handler := newTestHandler(reg, gw)

	req := httptest.NewRequest(http.MethodPatch, "/v1/sessions/sess-1/applicant",
		strings.NewReader(`{"first_name":"Dana"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if orch.firstName != "Dana" {
		t.Fatalf("expected first name forwarded, got %q", orch.firstName)
	}
	if orch.lastName != "" {
		t.Fatalf("last name must stay untouched, got %q", orch.lastName)
	}
}

func TestSetApplicantEmptyBodyReturns400(t *testing.T) {
	reg, _, gw := defaultFakes()
	handler := newTestHandler(reg, gw)

	req := httptest.NewRequest(http.MethodPatch, "/v1/sessions/sess-1/applicant",
		strings.NewReader(`{}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func multipartBody(t *testing.T, filenames ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range filenames {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("%PDF-1.4 test")); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadFilesForwardsBatch(t *testing.T) {
	reg, orch, gw := defaultFakes()
	handler := newTestHandler(reg, gw)

	body, contentType := multipartBody(t, "diploma.pdf", "photo.jpg")
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/sess-1/files", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if len(orch.gotBatch) != 2 {
		t.Fatalf("expected 2 files forwarded, got %d", len(orch.gotBatch))
	}
	if orch.gotBatch[0].Name != "diploma.pdf" {
		t.Fatalf("unexpected first filename %q", orch.gotBatch[0].Name)
	}
	if len(orch.gotBatch[0].Data) == 0 {
		t.Fatalf("file payload must be forwarded")
	}
	resp := decodeSession(t, res)
	if resp["appended"] != float64(2) {
		t.Fatalf("expected appended=2, got %v", resp["appended"])
	}
}

func TestUploadWithoutFilesReturns400(t *testing.T) {
	reg, _, gw := defaultFakes()
	handler := newTestHandler(reg, gw)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("name", "Aigerim"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/sess-1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadBusyMapsTo409(t *testing.T) {
	reg, orch, gw := defaultFakes()
	orch.uploadErr = domain.WrapError(domain.ErrBusy, "UploadFiles", errors.New("upload in flight"))
	handler := newTestHandler(reg, gw)

	body, contentType := multipartBody(t, "diploma.pdf")
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/sess-1/files", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409 for busy session, got %d", res.Code)
	}
}

func TestUploadValidationMapsTo422(t *testing.T) {
	reg, orch, gw := defaultFakes()
	orch.uploadErr = domain.WrapError(domain.ErrValidationRejected, "UploadFiles",
		errors.New("virus.exe: extension not allowed"))
	handler := newTestHandler(reg, gw)

	body, contentType := multipartBody(t, "virus.exe")
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/sess-1/files", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for rejected batch, got %d", res.Code)
	}
}

func TestUploadTransportFailureMapsTo502(t *testing.T) {
	reg, orch, gw := defaultFakes()
	orch.uploadErr = domain.WrapError(domain.ErrUploadTransport, "UploadFiles",
		errors.New("classifier unreachable"))
	handler := newTestHandler(reg, gw)

	body, contentType := multipartBody(t, "diploma.pdf")
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/sess-1/files", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for transport failure, got %d", res.Code)
	}
}

func TestDeleteFileForwardsRecordID(t *testing.T) {
	reg, orch, gw := defaultFakes()
	handler := newTestHandler(reg, gw)

	req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/sess-1/files/rec-1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if orch.gotRecordID != "rec-1" {
		t.Fatalf("expected record id forwarded, got %q", orch.gotRecordID)
	}
}

func TestDeleteUnknownRecordReturns404(t *testing.T) {
	reg, orch, gw := defaultFakes()
	orch.deleteErr = domain.WrapError(domain.ErrRecordNotFound, "DeleteFile",
		errors.New("no such record"))
	handler := newTestHandler(reg, gw)

	req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/sess-1/files/ghost", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestUndoReportsRestored(t *testing.T) {
	reg, orch, gw := defaultFakes()
	orch.restored = true
	handler := newTestHandler(reg, gw)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/sess-1/undo", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeSession(t, res)
	if body["restored"] != true {
		t.Fatalf("expected restored=true, got %v", body["restored"])
	}
}

func TestResetInvokesOrchestrator(t *testing.T) {
	reg, orch, gw := defaultFakes()
	handler := newTestHandler(reg, gw)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/sess-1/reset", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if orch.resetCalls != 1 {
		t.Fatalf("expected one reset call, got %d", orch.resetCalls)
	}
}

func TestRemoveSessionReturns204(t *testing.T) {
	reg, _, gw := defaultFakes()
	handler := newTestHandler(reg, gw)

	req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/sess-1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if len(reg.removed) != 1 || reg.removed[0] != "sess-1" {
		t.Fatalf("expected registry removal of sess-1, got %v", reg.removed)
	}
}

func TestDownloadFileStreamsStoredCopy(t *testing.T) {
	reg, _, gw := defaultFakes()
	handler := newTestHandler(reg, gw)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/sess-1/files/rec-1/content", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if gw.gotStoredName != "Bekova_udostoverenie.pdf" {
		t.Fatalf("expected stored name forwarded, got %q", gw.gotStoredName)
	}
	if got := res.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(res.Header().Get("Content-Disposition"), "Bekova_udostoverenie.pdf") {
		t.Fatalf("expected stored name in disposition, got %q", res.Header().Get("Content-Disposition"))
	}
	if res.Body.String() != "binary" {
		t.Fatalf("unexpected body %q", res.Body.String())
	}
}

func TestDownloadLocalOnlyRecordReturns400(t *testing.T) {
	reg, _, gw := defaultFakes()
	handler := newTestHandler(reg, gw)

	// rec-2 has no stored name; there is nothing server-side to fetch.
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/sess-1/files/rec-2/content", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for local-only record, got %d", res.Code)
	}
	if gw.gotStoredName != "" {
		t.Fatalf("gateway must not be contacted for local records")
	}
}

func TestDownloadArchiveUsesApplicantName(t *testing.T) {
	reg, _, gw := defaultFakes()
	handler := newTestHandler(reg, gw)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/sess-1/archive", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if gw.gotFirstName != "Aigerim" || gw.gotLastName != "Bekova" {
		t.Fatalf("expected applicant name forwarded, got %q %q", gw.gotFirstName, gw.gotLastName)
	}
	if got := res.Header().Get("Content-Type"); got != "application/zip" {
		t.Fatalf("unexpected content type %q", got)
	}
}

func TestHealthz(t *testing.T) {
	reg, _, gw := defaultFakes()
	handler := newTestHandler(reg, gw)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}
