package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
	"github.com/pkordes/travelspot-editor/backend/internal/handler"
	"github.com/pkordes/travelspot-editor/backend/internal/location"
	"github.com/pkordes/travelspot-editor/backend/internal/service"
	"github.com/pkordes/travelspot-editor/backend/internal/wizard"
)

// mockEditorServicer is a test double for handler.EditorServicer.
// Set only the method fields your test needs.
type mockEditorServicer struct {
	start           func(ctx context.Context, slug string) (service.Editor, error)
	get             func(ctx context.Context, id uuid.UUID) (service.Editor, error)
	discard         func(ctx context.Context, id uuid.UUID) error
	apply           func(ctx context.Context, id uuid.UUID, p wizard.Patch) (service.Editor, error)
	setLocation     func(ctx context.Context, id uuid.UUID, level location.Level, value int64) (service.Editor, error)
	retryLocation   func(ctx context.Context, id uuid.UUID, level location.Level) (service.Editor, error)
	advance         func(ctx context.Context, id uuid.UUID) (service.Editor, error)
	retreat         func(ctx context.Context, id uuid.UUID) (service.Editor, error)
	jumpTo          func(ctx context.Context, id uuid.UUID, step wizard.Step) (service.Editor, error)
	images          func(ctx context.Context, id uuid.UUID) ([]domain.SpotImage, error)
	uploadImage     func(ctx context.Context, id uuid.UUID, file domain.ImageFile, caption string) (domain.SpotImage, error)
	replaceImage    func(ctx context.Context, id uuid.UUID, imageID int64, file *domain.ImageFile, caption *string) (domain.SpotImage, error)
	setPrimaryImage func(ctx context.Context, id uuid.UUID, imageID int64) ([]domain.SpotImage, error)
	deleteImage     func(ctx context.Context, id uuid.UUID, imageID int64) ([]domain.SpotImage, error)
	moveImage       func(ctx context.Context, id uuid.UUID, position int, direction string) ([]domain.SpotImage, error)
}

func (m *mockEditorServicer) Start(ctx context.Context, slug string) (service.Editor, error) {
	return m.start(ctx, slug)
}
func (m *mockEditorServicer) Get(ctx context.Context, id uuid.UUID) (service.Editor, error) {
	return m.get(ctx, id)
}
func (m *mockEditorServicer) Discard(ctx context.Context, id uuid.UUID) error {
	return m.discard(ctx, id)
}
func (m *mockEditorServicer) Apply(ctx context.Context, id uuid.UUID, p wizard.Patch) (service.Editor, error) {
	return m.apply(ctx, id, p)
}
func (m *mockEditorServicer) SetLocation(ctx context.Context, id uuid.UUID, level location.Level, value int64) (service.Editor, error) {
	return m.setLocation(ctx, id, level, value)
}
func (m *mockEditorServicer) RetryLocation(ctx context.Context, id uuid.UUID, level location.Level) (service.Editor, error) {
	return m.retryLocation(ctx, id, level)
}
func (m *mockEditorServicer) Advance(ctx context.Context, id uuid.UUID) (service.Editor, error) {
	return m.advance(ctx, id)
}
func (m *mockEditorServicer) Retreat(ctx context.Context, id uuid.UUID) (service.Editor, error) {
	return m.retreat(ctx, id)
}
func (m *mockEditorServicer) JumpTo(ctx context.Context, id uuid.UUID, step wizard.Step) (service.Editor, error) {
	return m.jumpTo(ctx, id, step)
}
func (m *mockEditorServicer) Images(ctx context.Context, id uuid.UUID) ([]domain.SpotImage, error) {
	return m.images(ctx, id)
}
func (m *mockEditorServicer) UploadImage(ctx context.Context, id uuid.UUID, file domain.ImageFile, caption string) (domain.SpotImage, error) {
	return m.uploadImage(ctx, id, file, caption)
}
func (m *mockEditorServicer) ReplaceImage(ctx context.Context, id uuid.UUID, imageID int64, file *domain.ImageFile, caption *string) (domain.SpotImage, error) {
	return m.replaceImage(ctx, id, imageID, file, caption)
}
func (m *mockEditorServicer) SetPrimaryImage(ctx context.Context, id uuid.UUID, imageID int64) ([]domain.SpotImage, error) {
	return m.setPrimaryImage(ctx, id, imageID)
}
func (m *mockEditorServicer) DeleteImage(ctx context.Context, id uuid.UUID, imageID int64) ([]domain.SpotImage, error) {
	return m.deleteImage(ctx, id, imageID)
}
func (m *mockEditorServicer) MoveImage(ctx context.Context, id uuid.UUID, position int, direction string) ([]domain.SpotImage, error) {
	return m.moveImage(ctx, id, position, direction)
}

// compile-time check: mockEditorServicer must satisfy handler.EditorServicer.
var _ handler.EditorServicer = (*mockEditorServicer)(nil)

// compile-time check: the real service satisfies handler.EditorServicer.
var _ handler.EditorServicer = (*service.EditorService)(nil)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given mock into the chi router.
// This mirrors how main.go wires it in production.
func newHTTPHandler(svc handler.EditorServicer) http.Handler {
	return handler.Handler(handler.NewServer(svc))
}

func editorFixture(id uuid.UUID) service.Editor {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return service.Editor{
		ID:   id,
		Mode: wizard.ModeCreate,
		Step: wizard.StepBasicInfo,
		Local: domain.TravelSpotDraft{
			Name: "Hidden Falls",
			Slug: "hidden-falls",
		},
		Locations: []location.LevelView{
			{Level: location.Country, Options: []domain.LocationOption{{ID: 1, Name: "India"}}, Loaded: true},
			{Level: location.State, Disabled: true},
		},
		Errors:    map[wizard.Step]domain.FieldErrors{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func serve(h http.Handler, method, target string, body *bytes.Buffer) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) handler.SessionResponse {
	t.Helper()
	var body handler.SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}
