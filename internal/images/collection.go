// Package images manages the ordered image collection of one travel spot.
//
// The collection keeps two invariants after every operation: positions are
// dense (1..N) and exactly one image is primary when the collection is not
// empty. Every mutation is sent to the remote API first; the local list only
// changes after the call succeeds, and is then replaced by the server's list
// (repaired if the server broke an invariant).
package images

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
)

// ErrInvariant reports a server list that still breaks the dense-position or
// single-primary rule after repair. The last known-good list is kept.
var ErrInvariant = errors.New("image collection invariant violated")

// Remote is the persistence collaborator for image operations.
type Remote interface {
	ListImages(ctx context.Context, spotID int64) ([]domain.SpotImage, error)
	UploadImage(ctx context.Context, spotID int64, up domain.ImageUpload) (domain.SpotImage, error)
	ReplaceImage(ctx context.Context, imageID int64, rep domain.ImageReplace) (domain.SpotImage, error)
	SetPrimaryImage(ctx context.Context, imageID int64) error
	ReorderImages(ctx context.Context, spotID int64, order []domain.ImagePosition) error
	DeleteImage(ctx context.Context, imageID int64) error
}

// Manager holds the image collection of one persisted travel spot.
// Images live in an arena keyed by id; order holds the ids by position.
type Manager struct {
	remote Remote
	policy Policy
	log    *slog.Logger
	spotID int64

	// busy makes mutations single-flight: a second call while one is in
	// flight fails with domain.ErrBusy instead of queueing.
	busy atomic.Bool

	mu     sync.RWMutex
	arena  map[int64]domain.SpotImage
	order  []int64
	synced bool
}

// NewManager returns an empty manager for spotID. A zero spotID yields a
// manager whose operations all fail with domain.ErrNotPersisted.
func NewManager(r Remote, spotID int64, p Policy, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		remote: r,
		policy: p,
		log:    log.With("spot_id", spotID),
		spotID: spotID,
		arena:  map[int64]domain.SpotImage{},
	}
}

// SpotID returns the id of the owning travel spot.
func (m *Manager) SpotID() int64 { return m.spotID }

// Busy reports whether a mutation is in flight.
func (m *Manager) Busy() bool { return m.busy.Load() }

// Images returns the collection ordered by position.
func (m *Manager) Images() []domain.SpotImage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.SpotImage, len(m.order))
	for i, id := range m.order {
		out[i] = m.arena[id]
	}
	return out
}

// Synced reports whether the local list has been read from the server at
// least once.
func (m *Manager) Synced() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.synced
}

// Len returns the number of images.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

func (m *Manager) get(id int64) (domain.SpotImage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.arena[id]
	return img, ok
}

// Load replaces the local list with the server's list.
func (m *Manager) Load(ctx context.Context) error {
	return m.mutate(ctx, "Load", func(context.Context) (bool, error) { return true, nil })
}

// Upload validates file against the policy, then appends it at position
// N+1. The first image of an empty collection becomes primary.
func (m *Manager) Upload(ctx context.Context, file domain.ImageFile, caption string) (domain.SpotImage, error) {
	if m.spotID == 0 {
		return domain.SpotImage{}, fmt.Errorf("images.Manager.Upload: %w", domain.ErrNotPersisted)
	}
	if err := m.policy.Check(file); err != nil {
		return domain.SpotImage{}, fmt.Errorf("images.Manager.Upload: %w", err)
	}

	var created domain.SpotImage
	err := m.mutate(ctx, "Upload", func(ctx context.Context) (bool, error) {
		// Position and primary flag depend on N, so N must come from the server.
		if !m.Synced() {
			list, err := m.resync(ctx)
			if err != nil {
				return false, err
			}
			m.store(list)
		}
		n := m.Len()
		img, err := m.remote.UploadImage(ctx, m.spotID, domain.ImageUpload{
			File:      file,
			Caption:   caption,
			Position:  n + 1,
			IsPrimary: n == 0,
		})
		created = img
		return true, err
	})
	if err != nil {
		return domain.SpotImage{}, err
	}
	if img, ok := m.get(created.ID); ok {
		created = img
	}
	return created, nil
}

// Replace swaps the binary and/or caption of an image in place. Position and
// primary flag are untouched. See domain.ImageReplace for the caption rules.
func (m *Manager) Replace(ctx context.Context, imageID int64, file *domain.ImageFile, caption *string) (domain.SpotImage, error) {
	if m.spotID == 0 {
		return domain.SpotImage{}, fmt.Errorf("images.Manager.Replace: %w", domain.ErrNotPersisted)
	}
	if file == nil && caption == nil {
		return domain.SpotImage{}, fmt.Errorf("images.Manager.Replace: %w",
			domain.NewValidationError("image", "provide a new file or caption"))
	}
	if file != nil {
		if err := m.policy.Check(*file); err != nil {
			return domain.SpotImage{}, fmt.Errorf("images.Manager.Replace: %w", err)
		}
	}
	if _, ok := m.get(imageID); !ok {
		return domain.SpotImage{}, fmt.Errorf("images.Manager.Replace: image %d: %w", imageID, domain.ErrNotFound)
	}

	err := m.mutate(ctx, "Replace", func(ctx context.Context) (bool, error) {
		_, err := m.remote.ReplaceImage(ctx, imageID, domain.ImageReplace{File: file, Caption: caption})
		return true, err
	})
	if err != nil {
		return domain.SpotImage{}, err
	}
	img, _ := m.get(imageID)
	return img, nil
}

// SetPrimary makes imageID the only primary image. No-op if it already is.
func (m *Manager) SetPrimary(ctx context.Context, imageID int64) error {
	if m.spotID == 0 {
		return fmt.Errorf("images.Manager.SetPrimary: %w", domain.ErrNotPersisted)
	}
	img, ok := m.get(imageID)
	if !ok {
		return fmt.Errorf("images.Manager.SetPrimary: image %d: %w", imageID, domain.ErrNotFound)
	}
	if img.IsPrimary {
		return nil
	}
	return m.mutate(ctx, "SetPrimary", func(ctx context.Context) (bool, error) {
		return true, m.remote.SetPrimaryImage(ctx, imageID)
	})
}

// Delete removes an image. Later images move up one position; if the primary
// was removed, the image now at position 1 becomes primary.
func (m *Manager) Delete(ctx context.Context, imageID int64) error {
	if m.spotID == 0 {
		return fmt.Errorf("images.Manager.Delete: %w", domain.ErrNotPersisted)
	}
	img, ok := m.get(imageID)
	if !ok {
		return fmt.Errorf("images.Manager.Delete: image %d: %w", imageID, domain.ErrNotFound)
	}
	return m.mutateThen(ctx, "Delete", func(ctx context.Context) (bool, error) {
		return true, m.remote.DeleteImage(ctx, imageID)
	}, func(ctx context.Context, list []domain.SpotImage) ([]domain.SpotImage, error) {
		if !img.IsPrimary || len(list) == 0 || list[0].IsPrimary {
			return list, nil
		}
		m.log.InfoContext(ctx, "promoting first image after primary delete",
			"deleted_id", imageID, "image_id", list[0].ID)
		if err := m.remote.SetPrimaryImage(ctx, list[0].ID); err != nil {
			return nil, fmt.Errorf("promote primary: %w", err)
		}
		return m.relist(ctx)
	})
}

// MoveUp swaps the image at position with the one above it.
// Position 1 is a no-op.
func (m *Manager) MoveUp(ctx context.Context, position int) error {
	return m.move(ctx, "MoveUp", position, -1)
}

// MoveDown swaps the image at position with the one below it.
// The last position is a no-op.
func (m *Manager) MoveDown(ctx context.Context, position int) error {
	return m.move(ctx, "MoveDown", position, +1)
}

func (m *Manager) move(ctx context.Context, op string, position, delta int) error {
	if m.spotID == 0 {
		return fmt.Errorf("images.Manager.%s: %w", op, domain.ErrNotPersisted)
	}
	return m.mutate(ctx, op, func(ctx context.Context) (bool, error) {
		m.mu.RLock()
		order := append([]int64(nil), m.order...)
		m.mu.RUnlock()

		if position < 1 || position > len(order) {
			return false, domain.NewValidationError("position",
				fmt.Sprintf("position %d is outside 1..%d", position, len(order)))
		}
		target := position + delta
		if target < 1 || target > len(order) {
			return false, nil
		}
		order[position-1], order[target-1] = order[target-1], order[position-1]
		return true, m.remote.ReorderImages(ctx, m.spotID, positionsOf(order))
	})
}

// mutate runs fn single-flight. When fn reports a remote call and no error,
// the list is re-read from the server, repaired and stored. Any error leaves
// the local list as it was.
func (m *Manager) mutate(ctx context.Context, op string, fn func(context.Context) (bool, error)) error {
	return m.mutateThen(ctx, op, fn, nil)
}

// mutateThen is mutate with a follow-up applied to the resynced list before
// it is stored.
func (m *Manager) mutateThen(ctx context.Context, op string, fn func(context.Context) (bool, error),
	then func(context.Context, []domain.SpotImage) ([]domain.SpotImage, error)) error {
	if m.spotID == 0 {
		return fmt.Errorf("images.Manager.%s: %w", op, domain.ErrNotPersisted)
	}
	if !m.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("images.Manager.%s: %w", op, domain.ErrBusy)
	}
	defer m.busy.Store(false)

	called, err := fn(ctx)
	if err != nil {
		return fmt.Errorf("images.Manager.%s: %w", op, err)
	}
	if !called {
		return nil
	}

	list, err := m.resync(ctx)
	if err != nil {
		return fmt.Errorf("images.Manager.%s: resync: %w", op, err)
	}
	if then != nil {
		if list, err = then(ctx, list); err != nil {
			return fmt.Errorf("images.Manager.%s: %w", op, err)
		}
	}
	m.store(list)
	return nil
}

// resync fetches the server list and repairs gaps, duplicates and primary
// count. The repaired list is verified before it is returned.
func (m *Manager) resync(ctx context.Context) ([]domain.SpotImage, error) {
	list, err := m.remote.ListImages(ctx, m.spotID)
	if err != nil {
		return nil, err
	}
	sortByPosition(list)

	repaired := false
	if !densePositions(list) {
		ids := make([]int64, len(list))
		for i, img := range list {
			ids[i] = img.ID
		}
		m.log.WarnContext(ctx, "renumbering image positions", "count", len(ids))
		if err := m.remote.ReorderImages(ctx, m.spotID, positionsOf(ids)); err != nil {
			return nil, fmt.Errorf("renumber: %w", err)
		}
		repaired = true
	}
	if len(list) > 0 && primaryCount(list) != 1 {
		target := list[0].ID
		for _, img := range list {
			if img.IsPrimary {
				target = img.ID
				break
			}
		}
		m.log.WarnContext(ctx, "designating primary image",
			"image_id", target, "primaries", primaryCount(list))
		if err := m.remote.SetPrimaryImage(ctx, target); err != nil {
			return nil, fmt.Errorf("designate primary: %w", err)
		}
		repaired = true
	}

	if repaired {
		return m.relist(ctx)
	}
	if err := Verify(list); err != nil {
		return nil, err
	}
	return list, nil
}

// relist re-reads the server list after a repair and verifies it.
func (m *Manager) relist(ctx context.Context) ([]domain.SpotImage, error) {
	list, err := m.remote.ListImages(ctx, m.spotID)
	if err != nil {
		return nil, err
	}
	sortByPosition(list)
	if err := Verify(list); err != nil {
		return nil, err
	}
	return list, nil
}

func (m *Manager) store(list []domain.SpotImage) {
	arena := make(map[int64]domain.SpotImage, len(list))
	order := make([]int64, len(list))
	for i, img := range list {
		arena[img.ID] = img
		order[i] = img.ID
	}
	m.mu.Lock()
	m.arena, m.order, m.synced = arena, order, true
	m.mu.Unlock()
}

// Verify checks a position-ordered list: positions are exactly 1..N and a
// non-empty list has exactly one primary image.
func Verify(list []domain.SpotImage) error {
	if !densePositions(list) {
		return fmt.Errorf("%w: positions are not 1..%d", ErrInvariant, len(list))
	}
	if n := primaryCount(list); len(list) > 0 && n != 1 {
		return fmt.Errorf("%w: %d primary images", ErrInvariant, n)
	}
	return nil
}

func sortByPosition(list []domain.SpotImage) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Position != list[j].Position {
			return list[i].Position < list[j].Position
		}
		return list[i].ID < list[j].ID
	})
}

func densePositions(list []domain.SpotImage) bool {
	for i, img := range list {
		if img.Position != i+1 {
			return false
		}
	}
	return true
}

func primaryCount(list []domain.SpotImage) int {
	n := 0
	for _, img := range list {
		if img.IsPrimary {
			n++
		}
	}
	return n
}

func positionsOf(ids []int64) []domain.ImagePosition {
	out := make([]domain.ImagePosition, len(ids))
	for i, id := range ids {
		out[i] = domain.ImagePosition{ID: id, Position: i + 1}
	}
	return out
}
