package images_test

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
	"github.com/pkordes/travelspot-editor/backend/internal/images"
)

// ---- Upload ----------------------------------------------------------------

func TestManager_Upload_FirstImageBecomesPrimary(t *testing.T) {
	m, _ := seeded(t, 0)

	img, err := m.Upload(context.Background(), pngFile(t, "a.png"), "Front gate")

	require.NoError(t, err)
	assert.True(t, img.IsPrimary)
	assert.Equal(t, 1, img.Position)
	assert.Equal(t, "Front gate", img.Caption)
}

func TestManager_Upload_AppendsNonPrimary(t *testing.T) {
	m, _ := seeded(t, 2)

	img, err := m.Upload(context.Background(), pngFile(t, "c.png"), "")

	require.NoError(t, err)
	assert.Equal(t, 3, img.Position)
	assert.False(t, img.IsPrimary)
	require.NoError(t, images.Verify(m.Images()))
}

// TestManager_Upload_UnsyncedReadsServerFirst covers a manager whose initial
// load failed: the upload must still append after the server's images.
func TestManager_Upload_UnsyncedReadsServerFirst(t *testing.T) {
	_, r := seeded(t, 2)
	m := images.NewManager(r, 7, images.DefaultPolicy(), nil)
	r.failOn, r.err = "list", errBoom
	require.ErrorIs(t, m.Load(context.Background()), errBoom)
	require.False(t, m.Synced())

	img, err := m.Upload(context.Background(), pngFile(t, "c.png"), "")

	require.NoError(t, err)
	assert.Equal(t, 3, img.Position)
	assert.False(t, img.IsPrimary)
	assert.Len(t, m.Images(), 3)
	require.NoError(t, images.Verify(m.Images()))
}

func TestManager_Upload_RequiresPersistedSpot(t *testing.T) {
	r := newFakeRemote()
	m := images.NewManager(r, 0, images.DefaultPolicy(), nil)

	_, err := m.Upload(context.Background(), pngFile(t, "a.png"), "")

	assert.ErrorIs(t, err, domain.ErrNotPersisted)
	assert.Empty(t, r.callLog())
}

func TestManager_Upload_RejectsBeforeNetwork(t *testing.T) {
	cases := []struct {
		name   string
		policy images.Policy
		file   func(t *testing.T) domain.ImageFile
	}{
		{"not an image", images.DefaultPolicy(), func(*testing.T) domain.ImageFile {
			return domain.ImageFile{Name: "notes.png", Data: []byte("just some plain text")}
		}},
		{"too large", images.Policy{MaxBytes: 10}, func(t *testing.T) domain.ImageFile { return pngFile(t, "a.png") }},
		{"empty", images.DefaultPolicy(), func(*testing.T) domain.ImageFile { return domain.ImageFile{Name: "a.png"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newFakeRemote()
			m := images.NewManager(r, 7, tc.policy, nil)

			_, err := m.Upload(context.Background(), tc.file(t), "")

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, "image")
			assert.Empty(t, r.callLog(), "no network call expected")
		})
	}
}

func TestManager_Upload_FailureLeavesListUntouched(t *testing.T) {
	m, r := seeded(t, 2)
	before := m.Images()
	r.failOn, r.err = "upload", errBoom

	_, err := m.Upload(context.Background(), pngFile(t, "c.png"), "")

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, before, m.Images())
}

// ---- Replace ---------------------------------------------------------------

func TestManager_Replace_CaptionPolicy(t *testing.T) {
	m, _ := seeded(t, 0)
	ctx := context.Background()
	img, err := m.Upload(ctx, pngFile(t, "a.png"), "Old caption")
	require.NoError(t, err)

	// nil caption keeps the current one.
	got, err := m.Replace(ctx, img.ID, ptrFile(pngFile(t, "b.png")), nil)
	require.NoError(t, err)
	assert.Equal(t, "Old caption", got.Caption)
	assert.NotEqual(t, img.URL, got.URL)

	// an empty caption clears it.
	empty := ""
	got, err = m.Replace(ctx, img.ID, nil, &empty)
	require.NoError(t, err)
	assert.Equal(t, "", got.Caption)
	assert.Equal(t, img.Position, got.Position)
	assert.True(t, got.IsPrimary)
}

func TestManager_Replace_NothingToReplace(t *testing.T) {
	m, _ := seeded(t, 1)

	_, err := m.Replace(context.Background(), m.Images()[0].ID, nil, nil)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestManager_Replace_UnknownImage(t *testing.T) {
	m, _ := seeded(t, 1)
	caption := "x"

	_, err := m.Replace(context.Background(), 99999, nil, &caption)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func ptrFile(f domain.ImageFile) *domain.ImageFile { return &f }

// ---- SetPrimary ------------------------------------------------------------

func TestManager_SetPrimary(t *testing.T) {
	m, _ := seeded(t, 3)
	third := m.Images()[2].ID

	require.NoError(t, m.SetPrimary(context.Background(), third))

	list := m.Images()
	assert.Equal(t, third, primaryID(list))
	require.NoError(t, images.Verify(list))
}

func TestManager_SetPrimary_AlreadyPrimaryIsNoop(t *testing.T) {
	m, r := seeded(t, 2)
	calls := len(r.callLog())

	require.NoError(t, m.SetPrimary(context.Background(), m.Images()[0].ID))

	assert.Len(t, r.callLog(), calls)
}

// ---- Delete ----------------------------------------------------------------

// TestManager_Delete_PrimaryPromotesLowestPosition deletes the primary image
// from [1(primary),2,3] and expects [1(primary),2] built from the old 2 and 3.
func TestManager_Delete_PrimaryPromotesLowestPosition(t *testing.T) {
	m, _ := seeded(t, 3)
	before := m.Images()

	require.NoError(t, m.Delete(context.Background(), before[0].ID))

	after := m.Images()
	require.Len(t, after, 2)
	assert.Equal(t, []int64{before[1].ID, before[2].ID}, ids(after))
	assert.Equal(t, 1, after[0].Position)
	assert.Equal(t, 2, after[1].Position)
	assert.True(t, after[0].IsPrimary)
	assert.False(t, after[1].IsPrimary)
}

// TestManager_Delete_PrimaryOverridesServerChoice models a server that
// renumbers on delete but promotes the last image. The manager still ends
// with the lowest position as primary.
func TestManager_Delete_PrimaryOverridesServerChoice(t *testing.T) {
	m, r := seeded(t, 3)
	before := m.Images()
	r.afterDelete = func(imgs map[int64]domain.SpotImage) {
		pos := 1
		for _, id := range []int64{before[1].ID, before[2].ID} {
			img := imgs[id]
			img.Position = pos
			img.IsPrimary = id == before[2].ID
			imgs[id] = img
			pos++
		}
	}

	require.NoError(t, m.Delete(context.Background(), before[0].ID))

	after := m.Images()
	require.Len(t, after, 2)
	assert.Equal(t, []int64{before[1].ID, before[2].ID}, ids(after))
	assert.True(t, after[0].IsPrimary)
	assert.False(t, after[1].IsPrimary)
	require.NoError(t, images.Verify(after))
	assert.Contains(t, r.callLog(), "set-primary")
}

// TestManager_Delete_NonPrimaryKeepsServerPrimary checks the promotion only
// applies when the deleted image was the primary one.
func TestManager_Delete_NonPrimaryKeepsServerPrimary(t *testing.T) {
	m, r := seeded(t, 3)
	require.NoError(t, m.SetPrimary(context.Background(), m.Images()[2].ID))
	before := m.Images()
	calls := len(r.callLog())

	require.NoError(t, m.Delete(context.Background(), before[1].ID))

	after := m.Images()
	assert.Equal(t, before[2].ID, primaryID(after))
	assert.NotContains(t, r.callLog()[calls:], "set-primary")
}

func TestManager_Delete_MiddleRenumbers(t *testing.T) {
	m, _ := seeded(t, 4)
	before := m.Images()

	require.NoError(t, m.Delete(context.Background(), before[1].ID))

	after := m.Images()
	assert.Equal(t, []int64{before[0].ID, before[2].ID, before[3].ID}, ids(after))
	require.NoError(t, images.Verify(after))
	assert.Equal(t, before[0].ID, primaryID(after))
}

func TestManager_Delete_LastImageLeavesEmptyCollection(t *testing.T) {
	m, _ := seeded(t, 1)

	require.NoError(t, m.Delete(context.Background(), m.Images()[0].ID))

	assert.Empty(t, m.Images())
}

func TestManager_Delete_FailureLeavesListUntouched(t *testing.T) {
	m, r := seeded(t, 3)
	before := m.Images()
	r.failOn, r.err = "delete", errBoom

	err := m.Delete(context.Background(), before[0].ID)

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, before, m.Images())
}

// ---- Move ------------------------------------------------------------------

func TestManager_MoveUpAndDown(t *testing.T) {
	m, _ := seeded(t, 3)
	ctx := context.Background()
	orig := ids(m.Images())

	require.NoError(t, m.MoveUp(ctx, 3))
	assert.Equal(t, []int64{orig[0], orig[2], orig[1]}, ids(m.Images()))

	require.NoError(t, m.MoveDown(ctx, 1))
	assert.Equal(t, []int64{orig[2], orig[0], orig[1]}, ids(m.Images()))

	// The primary flag travels with the image, not the position.
	assert.Equal(t, orig[0], primaryID(m.Images()))
	require.NoError(t, images.Verify(m.Images()))
}

func TestManager_Move_BoundariesAreNoops(t *testing.T) {
	m, r := seeded(t, 3)
	ctx := context.Background()
	orig := m.Images()
	calls := len(r.callLog())

	require.NoError(t, m.MoveUp(ctx, 1))
	require.NoError(t, m.MoveDown(ctx, 3))

	assert.Equal(t, orig, m.Images())
	assert.Len(t, r.callLog(), calls, "boundary moves must not reach the server")
}

func TestManager_Move_OutOfRange(t *testing.T) {
	m, _ := seeded(t, 2)

	assert.ErrorIs(t, m.MoveUp(context.Background(), 0), domain.ErrValidation)
	assert.ErrorIs(t, m.MoveDown(context.Background(), 3), domain.ErrValidation)
}

func TestManager_Move_SubmitsFullOrder(t *testing.T) {
	m, r := seeded(t, 3)

	require.NoError(t, m.MoveDown(context.Background(), 2))

	log := r.callLog()
	assert.Equal(t, "reorder", log[len(log)-2])
	assert.Equal(t, "list", log[len(log)-1])
	require.NoError(t, images.Verify(m.Images()))
}

// ---- single flight ---------------------------------------------------------

func TestManager_ConcurrentMutationIsRejected(t *testing.T) {
	m, r := seeded(t, 3)
	r.block = make(chan struct{})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	var first error
	go func() {
		defer wg.Done()
		first = m.MoveDown(ctx, 1)
	}()
	require.Eventually(t, m.Busy, timeout, tick)

	err := m.MoveDown(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrBusy)

	close(r.block)
	wg.Wait()
	require.NoError(t, first)
	assert.False(t, m.Busy())
}

// ---- invariants under random operation sequences ----------------------------

// TestManager_InvariantsHoldForRandomSequences drives the manager with a
// seeded random mix of operations and checks dense positions and the single
// primary after every step, failures included.
func TestManager_InvariantsHoldForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 2024))
	m, r := seeded(t, 0)
	ctx := context.Background()

	for step := 0; step < 300; step++ {
		if rng.IntN(10) == 0 {
			r.failOn = []string{"upload", "delete", "reorder", "set-primary", "list"}[rng.IntN(5)]
			r.err = errBoom
		}

		list := m.Images()
		n := len(list)
		switch op := rng.IntN(5); {
		case op == 0 || n == 0:
			_, _ = m.Upload(ctx, pngFile(t, "x.png"), "")
		case op == 1:
			_ = m.Delete(ctx, list[rng.IntN(n)].ID)
		case op == 2:
			_ = m.SetPrimary(ctx, list[rng.IntN(n)].ID)
		case op == 3:
			_ = m.MoveUp(ctx, rng.IntN(n)+1)
		default:
			_ = m.MoveDown(ctx, rng.IntN(n)+1)
		}
		r.failOn = ""

		require.NoError(t, images.Verify(m.Images()), "step %d", step)
	}
}

func TestVerify(t *testing.T) {
	assert.NoError(t, images.Verify(nil))
	assert.NoError(t, images.Verify([]domain.SpotImage{{ID: 1, Position: 1, IsPrimary: true}}))
	assert.ErrorIs(t, images.Verify([]domain.SpotImage{{ID: 1, Position: 1}}), images.ErrInvariant)
	assert.ErrorIs(t, images.Verify([]domain.SpotImage{
		{ID: 1, Position: 1, IsPrimary: true}, {ID: 2, Position: 3},
	}), images.ErrInvariant)
	assert.ErrorIs(t, images.Verify([]domain.SpotImage{
		{ID: 1, Position: 1, IsPrimary: true}, {ID: 2, Position: 2, IsPrimary: true},
	}), images.ErrInvariant)
}
