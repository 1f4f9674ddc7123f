package wizard

import (
	"context"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
	"github.com/pkordes/travelspot-editor/backend/internal/slug"
)

// Snapshot captures the serializable state of the wizard. The caller owns
// the id and timestamps.
func (w *Wizard) Snapshot() domain.EditorSnapshot {
	snap := domain.EditorSnapshot{
		Mode:     w.mode.String(),
		Step:     int(w.step),
		Local:    w.local.Clone(),
		Draft:    w.draft.Clone(),
		SlugMode: w.slug.Mode.String(),
		SpotID:   w.spotID,
		SpotSlug: w.spotSlug,
	}
	if errs := w.Errors(); len(errs) > 0 {
		snap.StepErrors = make(map[int]domain.FieldErrors, len(errs))
		for s, fe := range errs {
			snap.StepErrors[int(s)] = fe
		}
	}
	return snap
}

// Restore rebuilds a wizard from a snapshot. Location options and images
// are fetched again; failures leave a retryable notice.
func Restore(ctx context.Context, deps Deps, snap domain.EditorSnapshot) *Wizard {
	w := New(deps)
	w.mode = ParseMode(snap.Mode)
	w.step = Step(snap.Step)
	if w.step < StepBasicInfo || w.step > StepSubmitted {
		w.step = StepBasicInfo
	}
	w.local = snap.Local.Clone()
	w.draft = snap.Draft.Clone()
	w.slug = slug.State{Mode: slug.ParseMode(snap.SlugMode), Value: snap.Local.Slug}
	w.spotID = snap.SpotID
	w.spotSlug = snap.SpotSlug
	for s, fe := range snap.StepErrors {
		w.errs[Step(s)] = fe
	}
	w.reattach(ctx)
	return w
}
