package location

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
)

// Fetcher loads the options of one level, filtered by the id selected in
// the parent level. parentID is 0 for Country.
type Fetcher interface {
	LocationOptions(ctx context.Context, level Level, parentID int64) ([]domain.LocationOption, error)
}

// FetchError reports a failed option fetch. The selection is untouched;
// the caller may retry with Resolver.Load.
type FetchError struct {
	Level    Level
	ParentID int64
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("location: load %s options (parent %d): %v", e.Level, e.ParentID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// LevelView is the read model of one level.
type LevelView struct {
	Level    Level
	Selected int64
	Options  []domain.LocationOption
	Loaded   bool
	Disabled bool
	Err      error
}

type levelState struct {
	options []domain.LocationOption
	loaded  bool
	err     error
}

// Resolver owns a Selection and the fetched option list of every level.
// It is safe for concurrent use; fetches run without holding the lock.
type Resolver struct {
	fetcher Fetcher
	log     *slog.Logger

	mu     sync.Mutex
	sel    Selection
	levels [levelCount]levelState
}

// NewResolver returns an empty resolver. Call Load(ctx, Country) to fetch
// the root options.
func NewResolver(f Fetcher, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{fetcher: f, log: log}
}

// Selection returns a copy of the current selection.
func (r *Resolver) Selection() Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sel
}

// SetLevel selects value at level. A changed value clears every descendant
// selection and option list in one step, then fetches the options of the
// next level. A fetch error is returned as *FetchError; the new selection is
// kept either way. Levels below a failed fetch reject changes until a
// successful Load.
func (r *Resolver) SetLevel(ctx context.Context, level Level, value int64) error {
	if !level.Valid() {
		return fmt.Errorf("location.Resolver.SetLevel: %w: unknown level %d", domain.ErrValidation, level)
	}
	if value < 0 {
		return fmt.Errorf("location.Resolver.SetLevel: %w: %s id must not be negative", domain.ErrValidation, level)
	}

	r.mu.Lock()
	if _, ok := r.sel.Parent(level); !ok && value != 0 {
		r.mu.Unlock()
		return fmt.Errorf("location.Resolver.SetLevel: %w: select %s first", domain.ErrValidation, level-1)
	}
	for l := Level(0); l < level; l++ {
		if r.levels[l].err != nil {
			r.mu.Unlock()
			return fmt.Errorf("location.Resolver.SetLevel: %w: %s is disabled until %s options load", domain.ErrValidation, level, l)
		}
	}
	next := Reduce(r.sel, level, value)
	if next == r.sel {
		r.mu.Unlock()
		return nil
	}
	r.sel = next
	for l := level + 1; int(l) < levelCount; l++ {
		r.levels[l] = levelState{}
	}
	r.mu.Unlock()

	if level == Pincode {
		return nil
	}
	return r.Load(ctx, level+1)
}

// Seed replaces the whole selection at once, without cascade clearing, and
// then fetches the options of every level whose parent is known. It is the
// hydration path for editing an existing record.
func (r *Resolver) Seed(ctx context.Context, sel Selection) error {
	r.mu.Lock()
	r.sel = sel
	r.levels = [levelCount]levelState{}
	r.mu.Unlock()

	var g errgroup.Group
	for _, l := range Levels() {
		if _, ok := sel.Parent(l); !ok {
			continue
		}
		g.Go(func() error { return r.Load(ctx, l) })
	}
	return g.Wait()
}

// Load (re)fetches the options of level for the currently selected parent.
// Nothing is fetched while the parent is empty. A result that arrives after
// the parent selection has moved on is discarded.
func (r *Resolver) Load(ctx context.Context, level Level) error {
	if !level.Valid() {
		return fmt.Errorf("location.Resolver.Load: %w: unknown level %d", domain.ErrValidation, level)
	}

	r.mu.Lock()
	parent, ok := r.sel.Parent(level)
	if !ok {
		r.levels[level] = levelState{}
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	opts, err := r.fetcher.LocationOptions(ctx, level, parent)

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, _ := r.sel.Parent(level); current != parent {
		r.log.DebugContext(ctx, "discarding stale location options",
			"level", level.String(), "dispatched_parent", parent, "current_parent", current)
		return nil
	}
	if err != nil {
		r.levels[level].err = err
		r.log.WarnContext(ctx, "location options fetch failed",
			"level", level.String(), "parent", parent, "error", err)
		return &FetchError{Level: level, ParentID: parent, Err: err}
	}
	if opts == nil {
		opts = []domain.LocationOption{}
	}
	r.levels[level] = levelState{options: opts, loaded: true}
	return nil
}

// Levels returns the read model of every level from the root down.
// A level is disabled while its parent is empty or while any ancestor level
// has a failed fetch.
func (r *Resolver) Levels() []LevelView {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]LevelView, levelCount)
	ancestorFailed := false
	for i := range out {
		l := Level(i)
		st := r.levels[l]
		_, parentSet := r.sel.Parent(l)
		out[i] = LevelView{
			Level:    l,
			Selected: r.sel[l],
			Options:  append([]domain.LocationOption(nil), st.options...),
			Loaded:   st.loaded,
			Disabled: !parentSet || ancestorFailed,
			Err:      st.err,
		}
		if st.err != nil {
			ancestorFailed = true
		}
	}
	return out
}
