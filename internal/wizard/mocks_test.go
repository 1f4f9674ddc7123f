package wizard

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
	"github.com/pkordes/travelspot-editor/backend/internal/images"
	"github.com/pkordes/travelspot-editor/backend/internal/location"
)

// mockPersister implements Persister with overridable functions.
type mockPersister struct {
	createFn func(ctx context.Context, p domain.SpotPayload) (domain.TravelSpot, error)
	updateFn func(ctx context.Context, slug string, p domain.SpotPayload) (domain.TravelSpot, error)

	creates []domain.SpotPayload
	updates []string
}

func (m *mockPersister) CreateSpot(ctx context.Context, p domain.SpotPayload) (domain.TravelSpot, error) {
	m.creates = append(m.creates, p)
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return domain.TravelSpot{ID: 501, Draft: domain.TravelSpotDraft{Slug: p.Slug}}, nil
}

func (m *mockPersister) UpdateSpot(ctx context.Context, slug string, p domain.SpotPayload) (domain.TravelSpot, error) {
	m.updates = append(m.updates, slug)
	if m.updateFn != nil {
		return m.updateFn(ctx, slug, p)
	}
	return domain.TravelSpot{ID: 501, Draft: domain.TravelSpotDraft{Slug: p.Slug}}, nil
}

// mockFetcher returns two options per level, derived from the parent id.
type mockFetcher struct {
	mu    sync.Mutex
	calls []location.Level
	err   error
}

func (m *mockFetcher) LocationOptions(_ context.Context, level location.Level, parentID int64) ([]domain.LocationOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, level)
	if m.err != nil {
		return nil, m.err
	}
	return []domain.LocationOption{
		{ID: parentID*10 + 1, Name: level.String() + " one"},
		{ID: parentID*10 + 2, Name: level.String() + " two"},
	}, nil
}

// memImages is a minimal in-memory image store.
type memImages struct {
	next   int64
	imgs   map[int64]domain.SpotImage
	listFn func() error
}

func newMemImages() *memImages {
	return &memImages{next: 900, imgs: map[int64]domain.SpotImage{}}
}

func (m *memImages) ListImages(context.Context, int64) ([]domain.SpotImage, error) {
	if m.listFn != nil {
		if err := m.listFn(); err != nil {
			return nil, err
		}
	}
	out := make([]domain.SpotImage, 0, len(m.imgs))
	for _, img := range m.imgs {
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memImages) UploadImage(_ context.Context, _ int64, up domain.ImageUpload) (domain.SpotImage, error) {
	m.next++
	img := domain.SpotImage{ID: m.next, URL: "/media/" + up.File.Name, Caption: up.Caption, Position: up.Position, IsPrimary: up.IsPrimary}
	m.imgs[img.ID] = img
	return img, nil
}

func (m *memImages) ReplaceImage(_ context.Context, id int64, rep domain.ImageReplace) (domain.SpotImage, error) {
	img := m.imgs[id]
	if rep.Caption != nil {
		img.Caption = *rep.Caption
	}
	m.imgs[id] = img
	return img, nil
}

func (m *memImages) SetPrimaryImage(_ context.Context, id int64) error {
	for k, img := range m.imgs {
		img.IsPrimary = k == id
		m.imgs[k] = img
	}
	return nil
}

func (m *memImages) ReorderImages(_ context.Context, _ int64, order []domain.ImagePosition) error {
	for _, p := range order {
		if img, ok := m.imgs[p.ID]; ok {
			img.Position = p.Position
			m.imgs[p.ID] = img
		}
	}
	return nil
}

func (m *memImages) DeleteImage(_ context.Context, id int64) error {
	delete(m.imgs, id)
	return nil
}

type fixture struct {
	persister *mockPersister
	fetcher   *mockFetcher
	images    *memImages
}

func newFixture() *fixture {
	return &fixture{persister: &mockPersister{}, fetcher: &mockFetcher{}, images: newMemImages()}
}

func (f *fixture) deps() Deps {
	return Deps{
		Persister: f.persister,
		Locations: f.fetcher,
		Images:    f.images,
		Policy:    images.DefaultPolicy(),
	}
}

func ptr[T any](v T) *T { return &v }

func pngFile(t *testing.T, name string) domain.ImageFile {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return domain.ImageFile{Name: name, Data: buf.Bytes()}
}

// Valid input for each data step.
var (
	basicInfo = Patch{
		Name:             ptr("Lotus Temple"),
		Categories:       ptr([]int64{3, 7}),
		ShortDescription: ptr("A lotus shaped house of worship"),
	}
	locationPath = []int64{1, 11, 111, 1111, 11111}
	address      = Patch{
		FullAddress: ptr("Lotus Temple Rd, Bahapur, Kalkaji"),
		Latitude:    ptr("28.5535"),
		Longitude:   ptr("77.2588"),
	}
	details = Patch{
		EntryFee:        ptr("Free"),
		OpeningTime:     ptr("09:00"),
		ClosingTime:     ptr("17:30"),
		BestTimeToVisit: ptr("October to March"),
		LongDescription: ptr("<p>Open to <b>all</b> faiths.</p>"),
	}
)

// fillStep enters valid data for the wizard's current data step.
func fillStep(t *testing.T, ctx context.Context, w *Wizard) {
	t.Helper()
	switch w.Step() {
	case StepBasicInfo:
		require.NoError(t, w.Apply(basicInfo))
	case StepLocation:
		for i, id := range locationPath {
			require.NoError(t, w.SetLocation(ctx, location.Level(i), id))
		}
		require.NoError(t, w.Apply(address))
	case StepDetails:
		require.NoError(t, w.Apply(details))
	}
}

// advanceTo fills and passes every step until w reaches target.
func advanceTo(t *testing.T, ctx context.Context, w *Wizard, target Step) {
	t.Helper()
	for w.Step() < target {
		fillStep(t, ctx, w)
		require.NoError(t, w.Advance(ctx))
	}
}
