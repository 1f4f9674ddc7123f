package images_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
	"github.com/pkordes/travelspot-editor/backend/internal/images"
)

// fakeRemote is an in-memory image API. It is deliberately naive: deleting
// does not renumber and does not re-designate a primary, so the manager's
// repair path is exercised.
type fakeRemote struct {
	mu     sync.Mutex
	nextID int64
	imgs   map[int64]domain.SpotImage
	calls  []string

	// failOn makes the named call return err once.
	failOn string
	err    error

	// block, when set, is waited on inside ReorderImages.
	block chan struct{}

	// afterDelete, when set, runs under the lock after an image is removed,
	// letting a test model a server that repairs the list its own way.
	afterDelete func(imgs map[int64]domain.SpotImage)
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{nextID: 100, imgs: map[int64]domain.SpotImage{}}
}

var _ images.Remote = (*fakeRemote)(nil)

func (f *fakeRemote) record(call string) error {
	f.calls = append(f.calls, call)
	if f.failOn == call {
		f.failOn = ""
		return f.err
	}
	return nil
}

func (f *fakeRemote) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) ListImages(_ context.Context, _ int64) ([]domain.SpotImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list"); err != nil {
		return nil, err
	}
	out := make([]domain.SpotImage, 0, len(f.imgs))
	for _, img := range f.imgs {
		out = append(out, img)
	}
	return out, nil
}

func (f *fakeRemote) UploadImage(_ context.Context, _ int64, up domain.ImageUpload) (domain.SpotImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("upload"); err != nil {
		return domain.SpotImage{}, err
	}
	f.nextID++
	img := domain.SpotImage{
		ID:        f.nextID,
		URL:       fmt.Sprintf("https://cdn.example.com/%d.png", f.nextID),
		Caption:   up.Caption,
		Position:  up.Position,
		IsPrimary: up.IsPrimary,
	}
	f.imgs[img.ID] = img
	return img, nil
}

func (f *fakeRemote) ReplaceImage(_ context.Context, id int64, rep domain.ImageReplace) (domain.SpotImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("replace"); err != nil {
		return domain.SpotImage{}, err
	}
	img, ok := f.imgs[id]
	if !ok {
		return domain.SpotImage{}, &domain.APIError{Status: 404}
	}
	if rep.File != nil {
		img.URL = fmt.Sprintf("https://cdn.example.com/%d-%s", id, rep.File.Name)
	}
	if rep.Caption != nil {
		img.Caption = *rep.Caption
	}
	f.imgs[id] = img
	return img, nil
}

func (f *fakeRemote) SetPrimaryImage(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("set-primary"); err != nil {
		return err
	}
	for k, img := range f.imgs {
		img.IsPrimary = k == id
		f.imgs[k] = img
	}
	return nil
}

func (f *fakeRemote) ReorderImages(_ context.Context, _ int64, order []domain.ImagePosition) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("reorder"); err != nil {
		return err
	}
	for _, p := range order {
		img, ok := f.imgs[p.ID]
		if !ok {
			continue
		}
		img.Position = p.Position
		f.imgs[p.ID] = img
	}
	return nil
}

func (f *fakeRemote) DeleteImage(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete"); err != nil {
		return err
	}
	delete(f.imgs, id)
	if f.afterDelete != nil {
		f.afterDelete(f.imgs)
	}
	return nil
}

// ---- fixtures --------------------------------------------------------------

var errBoom = errors.New("connection reset")

func pngFile(t *testing.T, name string) domain.ImageFile {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return domain.ImageFile{Name: name, Data: buf.Bytes()}
}

// seeded returns a manager over a remote holding n images at positions 1..n
// with the first one primary.
func seeded(t *testing.T, n int) (*images.Manager, *fakeRemote) {
	t.Helper()
	r := newFakeRemote()
	m := images.NewManager(r, 7, images.DefaultPolicy(), nil)
	for i := 0; i < n; i++ {
		if _, err := m.Upload(context.Background(), pngFile(t, fmt.Sprintf("%d.png", i)), ""); err != nil {
			t.Fatalf("seed upload: %v", err)
		}
	}
	return m, r
}

func ids(list []domain.SpotImage) []int64 {
	out := make([]int64, len(list))
	for i, img := range list {
		out[i] = img.ID
	}
	return out
}

func primaryID(list []domain.SpotImage) int64 {
	for _, img := range list {
		if img.IsPrimary {
			return img.ID
		}
	}
	return 0
}

const (
	timeout = time.Second
	tick    = time.Millisecond
)
