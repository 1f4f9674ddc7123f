// Package wizard drives the five-step composition of a travel spot: basic
// info, location, details, images and review. Each step owns a set of draft
// fields and validates only those; passing a step merges its fields into the
// aggregate that is finally submitted.
//
// A Wizard is not safe for concurrent use. The editor service serializes
// calls per session.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
	"github.com/pkordes/travelspot-editor/backend/internal/images"
	"github.com/pkordes/travelspot-editor/backend/internal/location"
	"github.com/pkordes/travelspot-editor/backend/internal/slug"
)

var validate = newValidator()

// Mode tells whether the wizard creates a new record or edits one.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// ParseMode is the inverse of Mode.String. Unknown text yields ModeCreate.
func ParseMode(s string) Mode {
	if s == "edit" {
		return ModeEdit
	}
	return ModeCreate
}

// NoticeKind classifies a message that is not tied to a field.
type NoticeKind string

const (
	// NoticeTransient is informational, e.g. non-field errors from the server.
	NoticeTransient NoticeKind = "transient"
	// NoticeRetryable means the last operation failed on the network and
	// can be repeated unchanged.
	NoticeRetryable NoticeKind = "retryable"
)

// Notice is the banner-level feedback of the last operation.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

const unavailableMessage = "the travel spot service could not be reached, please try again"

// Persister creates and updates travel spot records.
type Persister interface {
	CreateSpot(ctx context.Context, p domain.SpotPayload) (domain.TravelSpot, error)
	UpdateSpot(ctx context.Context, slug string, p domain.SpotPayload) (domain.TravelSpot, error)
}

// Deps are the collaborators of a Wizard.
type Deps struct {
	Persister Persister
	Locations location.Fetcher
	Images    images.Remote
	Policy    images.Policy
	Logger    *slog.Logger
}

// Wizard is one editing session of a travel spot.
type Wizard struct {
	deps Deps
	log  *slog.Logger

	mode  Mode
	step  Step
	local domain.TravelSpotDraft
	draft domain.TravelSpotDraft
	slug  slug.State

	loc    *location.Resolver
	images *images.Manager

	// spotID and spotSlug identify the persisted record: the hydrated one in
	// edit mode, the anchor record once created in create mode.
	spotID   int64
	spotSlug string

	errs   map[Step]domain.FieldErrors
	notice *Notice
}

// New returns a create-mode wizard at step 1 with an empty draft.
func New(deps Deps) *Wizard {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Wizard{
		deps: deps,
		log:  log,
		mode: ModeCreate,
		step: StepBasicInfo,
		slug: slug.New(),
		loc:  location.NewResolver(deps.Locations, log),
		errs: map[Step]domain.FieldErrors{},
	}
}

// Start loads the root location options. A failure leaves a retryable
// notice and is returned; the wizard stays usable.
func (w *Wizard) Start(ctx context.Context) error {
	if err := w.loc.Load(ctx, location.Country); err != nil {
		w.notice = &Notice{Kind: NoticeRetryable, Message: unavailableMessage}
		return fmt.Errorf("wizard.Wizard.Start: %w", err)
	}
	return nil
}

// Hydrate returns an edit-mode wizard for an existing record. Both drafts
// start as the record, the slug is frozen to the stored one, every location
// level with a known parent is fetched and the images are loaded. Fetch
// failures leave a retryable notice instead of failing the hydration.
func Hydrate(ctx context.Context, deps Deps, spot domain.TravelSpot) *Wizard {
	w := New(deps)
	w.mode = ModeEdit
	w.local = spot.Draft.Clone()
	w.draft = spot.Draft.Clone()
	w.slug = slug.Reset(spot.Draft.Slug)
	if spot.ID != 0 {
		w.spotID = spot.ID
	}
	w.spotSlug = spot.Draft.Slug
	w.reattach(ctx)
	return w
}

// reattach refetches everything that is not part of a snapshot.
func (w *Wizard) reattach(ctx context.Context) {
	var failed []string
	if err := w.loc.Seed(ctx, location.FromDraft(w.local)); err != nil {
		failed = append(failed, "locations")
	}
	if w.spotID != 0 {
		w.images = images.NewManager(w.deps.Images, w.spotID, w.deps.Policy, w.log)
		if err := w.images.Load(ctx); err != nil {
			w.log.WarnContext(ctx, "loading images failed", "spot_id", w.spotID, "error", err)
			w.images = nil
			failed = append(failed, "images")
		}
	}
	if len(failed) > 0 {
		w.notice = &Notice{
			Kind:    NoticeRetryable,
			Message: "could not load " + strings.Join(failed, " and ") + ", please retry",
		}
	}
}

// Mode returns the wizard mode.
func (w *Wizard) Mode() Mode { return w.mode }

// Step returns the current step.
func (w *Wizard) Step() Step { return w.step }

// Local returns the editable state of the current step.
func (w *Wizard) Local() domain.TravelSpotDraft { return w.local.Clone() }

// Draft returns the aggregate of all passed steps.
func (w *Wizard) Draft() domain.TravelSpotDraft { return w.draft.Clone() }

// Slug returns the slug field state.
func (w *Wizard) Slug() slug.State { return w.slug }

// Record returns the id and slug of the persisted record, zero if none.
func (w *Wizard) Record() (int64, string) { return w.spotID, w.spotSlug }

// Locations returns the read model of the location levels.
func (w *Wizard) Locations() []location.LevelView { return w.loc.Levels() }

// ImageList returns the current images, nil while no record is bound.
func (w *Wizard) ImageList() []domain.SpotImage {
	if w.images == nil {
		return nil
	}
	return w.images.Images()
}

// Notice returns the feedback of the last operation, or nil.
func (w *Wizard) Notice() *Notice {
	if w.notice == nil {
		return nil
	}
	n := *w.notice
	return &n
}

// Errors returns the field errors recorded per step.
func (w *Wizard) Errors() map[Step]domain.FieldErrors {
	out := make(map[Step]domain.FieldErrors, len(w.errs))
	for s, fe := range w.errs {
		cp := domain.FieldErrors{}
		for k, v := range fe {
			cp[k] = append([]string(nil), v...)
		}
		out[s] = cp
	}
	return out
}

// Apply edits the local draft. Every field in the patch must belong to the
// current step.
func (w *Wizard) Apply(p Patch) error {
	if !w.step.Valid() {
		return fmt.Errorf("wizard.Wizard.Apply: %w: wizard already submitted", domain.ErrInvalidStep)
	}
	fields := p.Fields()
	for _, f := range fields {
		if owner := fieldOwner[f]; owner != w.step {
			return fmt.Errorf("wizard.Wizard.Apply: %w: %s is edited in step %d (%s)",
				domain.ErrInvalidStep, f, owner, owner.Title())
		}
	}
	w.slug = p.apply(&w.local, w.slug)
	if p.Name != nil {
		fields = append(fields, "slug")
	}
	w.clearErrors(w.step, fields...)
	return nil
}

// SetLocation selects a location level on step 2 and mirrors the resulting
// selection into the local draft. A failed option fetch is returned as
// *location.FetchError with the selection already applied.
func (w *Wizard) SetLocation(ctx context.Context, level location.Level, id int64) error {
	if w.step != StepLocation {
		return fmt.Errorf("wizard.Wizard.SetLocation: %w: location is edited in step %d", domain.ErrInvalidStep, StepLocation)
	}
	err := w.loc.SetLevel(ctx, level, id)
	w.loc.Selection().ApplyTo(&w.local)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return fmt.Errorf("wizard.Wizard.SetLocation: %w", err)
		}
		w.notice = &Notice{Kind: NoticeRetryable, Message: unavailableMessage}
		return fmt.Errorf("wizard.Wizard.SetLocation: %w", err)
	}
	var cleared []string
	for _, l := range location.Levels()[level:] {
		cleared = append(cleared, l.String())
	}
	w.clearErrors(StepLocation, cleared...)
	w.notice = nil
	return nil
}

// RetryLocation refetches the options of one level.
func (w *Wizard) RetryLocation(ctx context.Context, level location.Level) error {
	if w.step != StepLocation {
		return fmt.Errorf("wizard.Wizard.RetryLocation: %w: location is edited in step %d", domain.ErrInvalidStep, StepLocation)
	}
	if err := w.loc.Load(ctx, level); err != nil {
		w.notice = &Notice{Kind: NoticeRetryable, Message: unavailableMessage}
		return fmt.Errorf("wizard.Wizard.RetryLocation: %w", err)
	}
	w.notice = nil
	return nil
}

// Advance validates the current step and moves to the next one. On the
// review step it submits.
func (w *Wizard) Advance(ctx context.Context) error {
	switch {
	case !w.step.Valid():
		return fmt.Errorf("wizard.Wizard.Advance: %w: wizard already submitted", domain.ErrInvalidStep)
	case w.step == StepReview:
		return w.Submit(ctx)
	}

	if err := w.validateStep(w.step, w.local); err != nil {
		return fmt.Errorf("wizard.Wizard.Advance: %w", err)
	}
	mergeStep(&w.draft, w.local, w.step)
	w.step++
	w.notice = nil
	return nil
}

// Retreat moves one step back, keeping every entered value. It is a no-op
// on step 1.
func (w *Wizard) Retreat() error {
	if !w.step.Valid() {
		return fmt.Errorf("wizard.Wizard.Retreat: %w: wizard already submitted", domain.ErrInvalidStep)
	}
	if w.step > StepBasicInfo {
		w.step--
	}
	return nil
}

// JumpTo moves from the review step straight to step s.
func (w *Wizard) JumpTo(s Step) error {
	if w.step != StepReview {
		return fmt.Errorf("wizard.Wizard.JumpTo: %w: jumping is only possible from review", domain.ErrInvalidStep)
	}
	if !s.Valid() {
		return fmt.Errorf("wizard.Wizard.JumpTo: %w",
			domain.NewValidationError("step", fmt.Sprintf("must be between %d and %d", StepBasicInfo, StepReview)))
	}
	w.step = s
	return nil
}

// Images returns the image manager of the record on step 4. In create mode
// the first call persists the aggregate as the anchor record the images are
// attached to; the final submit updates that same record.
func (w *Wizard) Images(ctx context.Context) (*images.Manager, error) {
	if w.step != StepImages {
		return nil, fmt.Errorf("wizard.Wizard.Images: %w: images are managed in step %d", domain.ErrInvalidStep, StepImages)
	}
	if w.images != nil && w.images.Synced() {
		return w.images, nil
	}

	if w.spotID == 0 {
		payload, err := BuildPayload(w.draft)
		if err != nil {
			return nil, fmt.Errorf("wizard.Wizard.Images: %w", err)
		}
		spot, err := w.deps.Persister.CreateSpot(ctx, payload)
		if err != nil {
			w.recordRemoteError(err, false)
			return nil, fmt.Errorf("wizard.Wizard.Images: %w", err)
		}
		w.bind(spot, payload.Slug)
		if w.spotID == 0 {
			return nil, fmt.Errorf("wizard.Wizard.Images: %w: create returned no id", domain.ErrNotPersisted)
		}
		w.log.InfoContext(ctx, "anchor record created", "spot_id", w.spotID, "slug", w.spotSlug)
	}

	if w.images == nil {
		w.images = images.NewManager(w.deps.Images, w.spotID, w.deps.Policy, w.log)
	}
	if err := w.images.Load(ctx); err != nil {
		w.images = nil
		w.notice = &Notice{Kind: NoticeRetryable, Message: unavailableMessage}
		return nil, fmt.Errorf("wizard.Wizard.Images: %w", err)
	}
	return w.images, nil
}

// Submit re-validates every data step over the aggregate and persists it,
// creating the record or updating the bound one. Server field errors are
// recorded on their owning steps and the wizard moves to the lowest of them.
func (w *Wizard) Submit(ctx context.Context) error {
	if w.step != StepReview {
		return fmt.Errorf("wizard.Wizard.Submit: %w: submit is only possible from review", domain.ErrInvalidStep)
	}

	for _, s := range []Step{StepBasicInfo, StepLocation, StepDetails} {
		if err := w.validateStep(s, w.draft); err != nil {
			w.step = s
			return fmt.Errorf("wizard.Wizard.Submit: %w", err)
		}
	}

	payload, err := BuildPayload(w.draft)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			if lowest, _ := w.routeFieldErrors(ve.Fields); lowest != 0 {
				w.step = lowest
			}
		}
		return fmt.Errorf("wizard.Wizard.Submit: %w", err)
	}

	var spot domain.TravelSpot
	if w.spotID == 0 {
		spot, err = w.deps.Persister.CreateSpot(ctx, payload)
	} else {
		spot, err = w.deps.Persister.UpdateSpot(ctx, w.spotSlug, payload)
	}
	if err != nil {
		w.recordRemoteError(err, true)
		w.log.WarnContext(ctx, "travel spot submit failed", "spot_id", w.spotID, "error", err)
		return fmt.Errorf("wizard.Wizard.Submit: %w", err)
	}

	w.bind(spot, payload.Slug)
	w.step = StepSubmitted
	w.errs = map[Step]domain.FieldErrors{}
	w.notice = nil
	w.log.InfoContext(ctx, "travel spot submitted", "spot_id", w.spotID, "slug", w.spotSlug, "mode", w.mode.String())
	return nil
}

func (w *Wizard) bind(spot domain.TravelSpot, fallbackSlug string) {
	if spot.ID != 0 {
		w.spotID = spot.ID
	}
	w.spotSlug = spot.Draft.Slug
	if w.spotSlug == "" {
		w.spotSlug = fallbackSlug
	}
}

// validateStep checks the fields step owns in d and records the result.
func (w *Wizard) validateStep(step Step, d domain.TravelSpotDraft) error {
	spec := stepTable[step]
	if spec == nil || spec.project == nil {
		delete(w.errs, step)
		return nil
	}
	err := validateStruct(validate, spec.project(d))
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		w.errs[step] = ve.Fields
		return err
	}
	if err != nil {
		return err
	}
	delete(w.errs, step)
	return nil
}

// recordRemoteError sorts a failed remote call into field errors on their
// owning steps, a transient notice for non-field errors, or a retryable
// notice for network failures. With navigate set the wizard moves to the
// lowest step that received a field error.
func (w *Wizard) recordRemoteError(err error, navigate bool) {
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || errors.Is(err, domain.ErrUnavailable) {
		w.notice = &Notice{Kind: NoticeRetryable, Message: unavailableMessage}
		return
	}

	lowest, unrouted := w.routeFieldErrors(apiErr.FieldErrors)
	msgs := append(append([]string(nil), apiErr.NonFieldErrors...), unrouted...)
	switch {
	case len(msgs) > 0:
		w.notice = &Notice{Kind: NoticeTransient, Message: strings.Join(msgs, "; ")}
	case lowest == 0:
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		w.notice = &Notice{Kind: NoticeTransient, Message: msg}
	default:
		w.notice = nil
	}
	if navigate && lowest != 0 {
		w.step = lowest
	}
}

// routeFieldErrors adds each field error to the step owning the field. It
// returns the lowest such step and the fields no step owns.
func (w *Wizard) routeFieldErrors(fe domain.FieldErrors) (lowest Step, unrouted []string) {
	for _, field := range fe.Fields() {
		msgs := fe[field]
		owner, ok := fieldOwner[field]
		if !ok {
			unrouted = append(unrouted, field+": "+strings.Join(msgs, ", "))
			continue
		}
		if w.errs[owner] == nil {
			w.errs[owner] = domain.FieldErrors{}
		}
		for _, m := range msgs {
			w.errs[owner].Add(field, m)
		}
		if lowest == 0 || owner < lowest {
			lowest = owner
		}
	}
	return lowest, unrouted
}

func (w *Wizard) clearErrors(step Step, fields ...string) {
	fe := w.errs[step]
	if fe == nil {
		return
	}
	for _, f := range fields {
		delete(fe, f)
	}
	if len(fe) == 0 {
		delete(w.errs, step)
	}
}

// ErrorSteps returns the steps that currently carry field errors, ascending.
func (w *Wizard) ErrorSteps() []Step {
	out := make([]Step, 0, len(w.errs))
	for s := range w.errs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
