// Package handler implements the HTTP handlers for the travel spot editor API.
// All handlers are methods on Server. Methods are split into resource files
// (health.go, session.go, images.go) but share the same Server struct.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
	"github.com/pkordes/travelspot-editor/backend/internal/location"
	"github.com/pkordes/travelspot-editor/backend/internal/service"
	"github.com/pkordes/travelspot-editor/backend/internal/wizard"
)

// EditorServicer defines the session operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without the service layer or the remote API.
type EditorServicer interface {
	Start(ctx context.Context, spotSlug string) (service.Editor, error)
	Get(ctx context.Context, id uuid.UUID) (service.Editor, error)
	Discard(ctx context.Context, id uuid.UUID) error
	Apply(ctx context.Context, id uuid.UUID, p wizard.Patch) (service.Editor, error)
	SetLocation(ctx context.Context, id uuid.UUID, level location.Level, value int64) (service.Editor, error)
	RetryLocation(ctx context.Context, id uuid.UUID, level location.Level) (service.Editor, error)
	Advance(ctx context.Context, id uuid.UUID) (service.Editor, error)
	Retreat(ctx context.Context, id uuid.UUID) (service.Editor, error)
	JumpTo(ctx context.Context, id uuid.UUID, step wizard.Step) (service.Editor, error)
	Images(ctx context.Context, id uuid.UUID) ([]domain.SpotImage, error)
	UploadImage(ctx context.Context, id uuid.UUID, file domain.ImageFile, caption string) (domain.SpotImage, error)
	ReplaceImage(ctx context.Context, id uuid.UUID, imageID int64, file *domain.ImageFile, caption *string) (domain.SpotImage, error)
	SetPrimaryImage(ctx context.Context, id uuid.UUID, imageID int64) ([]domain.SpotImage, error)
	DeleteImage(ctx context.Context, id uuid.UUID, imageID int64) ([]domain.SpotImage, error)
	MoveImage(ctx context.Context, id uuid.UUID, position int, direction string) ([]domain.SpotImage, error)
}

// defaultUploadMemory bounds the in-memory part of a parsed multipart form.
const defaultUploadMemory = 8 << 20

// Server serves every API endpoint.
type Server struct {
	editor       EditorServicer
	log          *slog.Logger
	uploadMemory int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for failed requests.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithUploadMemory sets the in-memory limit for multipart image forms.
func WithUploadMemory(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.uploadMemory = n
		}
	}
}

// NewServer constructs the Server with all its dependencies.
func NewServer(editor EditorServicer, opts ...Option) *Server {
	s := &Server{editor: editor, log: slog.Default(), uploadMemory: defaultUploadMemory}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil)
}

// Handler mounts every route of s on a chi router. main.go wraps the result
// in the middleware chain.
func Handler(s *Server) http.Handler {
	return HandlerFromMux(s, chi.NewRouter())
}

// HandlerFromMux registers the routes of s on r and returns it.
func HandlerFromMux(s *Server, r chi.Router) http.Handler {
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.StartSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DiscardSession)
			r.Patch("/draft", s.ApplyDraft)
			r.Put("/location/{level}", s.SetLocation)
			r.Post("/location/{level}/retry", s.RetryLocation)
			r.Post("/advance", s.Advance)
			r.Post("/retreat", s.Retreat)
			r.Post("/jump", s.JumpTo)

			r.Get("/images", s.ListImages)
			r.Post("/images", s.UploadImage)
			r.Post("/images/move", s.MoveImage)
			r.Put("/images/{imageId}", s.ReplaceImage)
			r.Post("/images/{imageId}/primary", s.SetPrimaryImage)
			r.Delete("/images/{imageId}", s.DeleteImage)
		})
	})
	return r
}
