// Package service hosts editor sessions. Each session owns one wizard;
// operations on a session are serialized and the session state is
// checkpointed to the session repo after every operation, so an editor
// survives a restart.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
	"github.com/pkordes/travelspot-editor/backend/internal/images"
	"github.com/pkordes/travelspot-editor/backend/internal/location"
	"github.com/pkordes/travelspot-editor/backend/internal/repo"
	"github.com/pkordes/travelspot-editor/backend/internal/slug"
	"github.com/pkordes/travelspot-editor/backend/internal/wizard"
)

// SpotReader loads an existing travel spot for editing.
type SpotReader interface {
	GetSpot(ctx context.Context, slug string) (domain.TravelSpot, error)
}

// Config holds the collaborators of an EditorService.
type Config struct {
	Sessions repo.SessionRepo
	Spots    SpotReader
	Wizard   wizard.Deps
	Logger   *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Editor is the read model of one session.
type Editor struct {
	ID        uuid.UUID
	Mode      wizard.Mode
	Step      wizard.Step
	Local     domain.TravelSpotDraft
	Draft     domain.TravelSpotDraft
	Slug      slug.State
	SpotID    int64
	SpotSlug  string
	Locations []location.LevelView
	Images    []domain.SpotImage
	Errors    map[wizard.Step]domain.FieldErrors
	Notice    *wizard.Notice
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Move directions for MoveImage.
const (
	MoveUp   = "up"
	MoveDown = "down"
)

type session struct {
	mu        sync.Mutex
	id        uuid.UUID
	w         *wizard.Wizard
	createdAt time.Time
	updatedAt time.Time
}

// EditorService implements the session operations.
type EditorService struct {
	sessions repo.SessionRepo
	spots    SpotReader
	deps     wizard.Deps
	log      *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	live map[uuid.UUID]*session
}

// NewEditorService constructs an EditorService.
func NewEditorService(cfg Config) *EditorService {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	deps := cfg.Wizard
	if deps.Logger == nil {
		deps.Logger = log
	}
	return &EditorService{
		sessions: cfg.Sessions,
		spots:    cfg.Spots,
		deps:     deps,
		log:      log,
		now:      now,
		live:     map[uuid.UUID]*session{},
	}
}

// Start opens a new session. An empty slug starts a create wizard; otherwise
// the record is read and hydrated into an edit wizard.
func (s *EditorService) Start(ctx context.Context, spotSlug string) (Editor, error) {
	var w *wizard.Wizard
	if spotSlug == "" {
		w = wizard.New(s.deps)
		if err := w.Start(ctx); err != nil {
			s.log.WarnContext(ctx, "loading countries failed", "error", err)
		}
	} else {
		spot, err := s.spots.GetSpot(ctx, spotSlug)
		if err != nil {
			return Editor{}, fmt.Errorf("service.EditorService.Start: %w", err)
		}
		w = wizard.Hydrate(ctx, s.deps, spot)
	}

	now := s.now()
	sess := &session{id: uuid.New(), w: w, createdAt: now, updatedAt: now}
	s.checkpoint(ctx, sess)

	s.mu.Lock()
	s.live[sess.id] = sess
	s.mu.Unlock()

	s.log.InfoContext(ctx, "editor session started",
		"session_id", sess.id, "mode", w.Mode().String(), "slug", spotSlug)
	return editorOf(sess), nil
}

// Get returns the read model of a session.
func (s *EditorService) Get(ctx context.Context, id uuid.UUID) (Editor, error) {
	sess, err := s.acquire(ctx, id)
	if err != nil {
		return Editor{}, fmt.Errorf("service.EditorService.Get: %w", err)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return editorOf(sess), nil
}

// Discard drops a session from memory and storage.
func (s *EditorService) Discard(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	_, wasLive := s.live[id]
	delete(s.live, id)
	s.mu.Unlock()

	err := s.sessions.Delete(ctx, id)
	if err != nil && !(wasLive && errors.Is(err, domain.ErrNotFound)) {
		return fmt.Errorf("service.EditorService.Discard: %w", err)
	}
	return nil
}

// Apply edits the current step's fields.
func (s *EditorService) Apply(ctx context.Context, id uuid.UUID, p wizard.Patch) (Editor, error) {
	return s.with(ctx, id, "Apply", func(w *wizard.Wizard) error {
		return w.Apply(p)
	})
}

// SetLocation selects one location level.
func (s *EditorService) SetLocation(ctx context.Context, id uuid.UUID, level location.Level, value int64) (Editor, error) {
	return s.with(ctx, id, "SetLocation", func(w *wizard.Wizard) error {
		return w.SetLocation(ctx, level, value)
	})
}

// RetryLocation refetches the options of one level.
func (s *EditorService) RetryLocation(ctx context.Context, id uuid.UUID, level location.Level) (Editor, error) {
	return s.with(ctx, id, "RetryLocation", func(w *wizard.Wizard) error {
		return w.RetryLocation(ctx, level)
	})
}

// Advance validates the current step and moves on, submitting from review.
func (s *EditorService) Advance(ctx context.Context, id uuid.UUID) (Editor, error) {
	return s.with(ctx, id, "Advance", func(w *wizard.Wizard) error {
		return w.Advance(ctx)
	})
}

// Retreat moves one step back.
func (s *EditorService) Retreat(ctx context.Context, id uuid.UUID) (Editor, error) {
	return s.with(ctx, id, "Retreat", func(w *wizard.Wizard) error {
		return w.Retreat()
	})
}

// JumpTo moves from review to another step.
func (s *EditorService) JumpTo(ctx context.Context, id uuid.UUID, step wizard.Step) (Editor, error) {
	return s.with(ctx, id, "JumpTo", func(w *wizard.Wizard) error {
		return w.JumpTo(step)
	})
}

// Images returns the image collection, creating the anchor record on the
// first call in create mode.
func (s *EditorService) Images(ctx context.Context, id uuid.UUID) ([]domain.SpotImage, error) {
	e, err := s.withImages(ctx, id, "Images", func(*images.Manager) error { return nil })
	return e.Images, err
}

// UploadImage appends an image and returns it as stored.
func (s *EditorService) UploadImage(ctx context.Context, id uuid.UUID, file domain.ImageFile, caption string) (domain.SpotImage, error) {
	var created domain.SpotImage
	_, err := s.withImages(ctx, id, "UploadImage", func(m *images.Manager) error {
		img, err := m.Upload(ctx, file, caption)
		created = img
		return err
	})
	return created, err
}

// ReplaceImage swaps the binary and/or caption of an image.
func (s *EditorService) ReplaceImage(ctx context.Context, id uuid.UUID, imageID int64, file *domain.ImageFile, caption *string) (domain.SpotImage, error) {
	var replaced domain.SpotImage
	_, err := s.withImages(ctx, id, "ReplaceImage", func(m *images.Manager) error {
		img, err := m.Replace(ctx, imageID, file, caption)
		replaced = img
		return err
	})
	return replaced, err
}

// SetPrimaryImage marks an image as primary.
func (s *EditorService) SetPrimaryImage(ctx context.Context, id uuid.UUID, imageID int64) ([]domain.SpotImage, error) {
	e, err := s.withImages(ctx, id, "SetPrimaryImage", func(m *images.Manager) error {
		return m.SetPrimary(ctx, imageID)
	})
	return e.Images, err
}

// DeleteImage removes an image.
func (s *EditorService) DeleteImage(ctx context.Context, id uuid.UUID, imageID int64) ([]domain.SpotImage, error) {
	e, err := s.withImages(ctx, id, "DeleteImage", func(m *images.Manager) error {
		return m.Delete(ctx, imageID)
	})
	return e.Images, err
}

// MoveImage swaps the image at position with its neighbour in direction.
func (s *EditorService) MoveImage(ctx context.Context, id uuid.UUID, position int, direction string) ([]domain.SpotImage, error) {
	var move func(*images.Manager) error
	switch direction {
	case MoveUp:
		move = func(m *images.Manager) error { return m.MoveUp(ctx, position) }
	case MoveDown:
		move = func(m *images.Manager) error { return m.MoveDown(ctx, position) }
	default:
		return nil, fmt.Errorf("service.EditorService.MoveImage: %w",
			domain.NewValidationError("direction", `must be "up" or "down"`))
	}
	e, err := s.withImages(ctx, id, "MoveImage", move)
	return e.Images, err
}

// PurgeIdle forgets sessions not used for maxAge, in memory and in storage.
func (s *EditorService) PurgeIdle(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	for id, sess := range s.live {
		if sess.mu.TryLock() {
			if sess.updatedAt.Before(cutoff) {
				delete(s.live, id)
			}
			sess.mu.Unlock()
		}
	}
	s.mu.Unlock()

	n, err := s.sessions.DeleteIdle(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("service.EditorService.PurgeIdle: %w", err)
	}
	if n > 0 {
		s.log.InfoContext(ctx, "purged idle editor sessions", "count", n)
	}
	return n, nil
}

// with runs fn on the session's wizard under the session lock and
// checkpoints afterwards. The read model is returned even when fn fails,
// since a failed operation may still record errors or notices.
func (s *EditorService) with(ctx context.Context, id uuid.UUID, op string, fn func(*wizard.Wizard) error) (Editor, error) {
	sess, err := s.acquire(ctx, id)
	if err != nil {
		return Editor{}, fmt.Errorf("service.EditorService.%s: %w", op, err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	opErr := fn(sess.w)
	sess.updatedAt = s.now()
	s.checkpoint(ctx, sess)

	e := editorOf(sess)
	if opErr != nil {
		return e, fmt.Errorf("service.EditorService.%s: %w", op, opErr)
	}
	return e, nil
}

func (s *EditorService) withImages(ctx context.Context, id uuid.UUID, op string, fn func(*images.Manager) error) (Editor, error) {
	return s.with(ctx, id, op, func(w *wizard.Wizard) error {
		m, err := w.Images(ctx)
		if err != nil {
			return err
		}
		return fn(m)
	})
}

// acquire returns the live session, restoring it from storage if needed.
func (s *EditorService) acquire(ctx context.Context, id uuid.UUID) (*session, error) {
	s.mu.Lock()
	sess, ok := s.live[id]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	snap, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	restored := &session{
		id:        id,
		w:         wizard.Restore(ctx, s.deps, snap),
		createdAt: snap.CreatedAt,
		updatedAt: snap.UpdatedAt,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.live[id]; ok {
		return sess, nil
	}
	s.live[id] = restored
	s.log.InfoContext(ctx, "editor session restored", "session_id", id, "step", snap.Step)
	return restored, nil
}

// checkpoint saves the session. Storage failures are logged; the session
// stays usable in memory.
func (s *EditorService) checkpoint(ctx context.Context, sess *session) {
	snap := sess.w.Snapshot()
	snap.ID = sess.id
	saved, err := s.sessions.Save(ctx, snap)
	if err != nil {
		s.log.WarnContext(ctx, "saving editor session failed", "session_id", sess.id, "error", err)
		return
	}
	if !saved.CreatedAt.IsZero() {
		sess.createdAt = saved.CreatedAt
	}
}

func editorOf(sess *session) Editor {
	w := sess.w
	spotID, spotSlug := w.Record()
	return Editor{
		ID:        sess.id,
		Mode:      w.Mode(),
		Step:      w.Step(),
		Local:     w.Local(),
		Draft:     w.Draft(),
		Slug:      w.Slug(),
		SpotID:    spotID,
		SpotSlug:  spotSlug,
		Locations: w.Locations(),
		Images:    w.ImageList(),
		Errors:    w.Errors(),
		Notice:    w.Notice(),
		CreatedAt: sess.createdAt,
		UpdatedAt: sess.updatedAt,
	}
}
