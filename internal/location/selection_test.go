package location_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
	"github.com/pkordes/travelspot-editor/backend/internal/location"
)

func fullSelection() location.Selection {
	return location.Selection{1, 11, 111, 1111, 11111, 560001}
}

// TestReduce_DifferentValueClearsDescendants checks every level: changing it
// to another value (or to empty) wipes all levels below, pincode included,
// and leaves the ancestors alone.
func TestReduce_DifferentValueClearsDescendants(t *testing.T) {
	for _, level := range location.Levels() {
		for _, value := range []int64{0, 999} {
			got := location.Reduce(fullSelection(), level, value)

			for _, l := range location.Levels() {
				switch {
				case l < level:
					assert.Equal(t, fullSelection().Get(l), got.Get(l), "ancestor %s changed", l)
				case l == level:
					assert.Equal(t, value, got.Get(l))
				default:
					assert.Zero(t, got.Get(l), "descendant %s of %s not cleared", l, level)
				}
			}
		}
	}
}

// TestReduce_SameValueIsIdempotent checks that re-selecting the current value
// keeps every descendant.
func TestReduce_SameValueIsIdempotent(t *testing.T) {
	for _, level := range location.Levels() {
		sel := fullSelection()
		got := location.Reduce(sel, level, sel.Get(level))
		assert.Equal(t, sel, got, "level %s", level)
	}
}

// TestReduce_TopDownReplayKeepsSelection replays a full selection level by
// level onto itself, which is what a naive hydration would do.
func TestReduce_TopDownReplayKeepsSelection(t *testing.T) {
	sel := fullSelection()
	got := sel
	for _, l := range location.Levels() {
		got = location.Reduce(got, l, sel.Get(l))
	}
	assert.Equal(t, sel, got)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	sel := fullSelection()
	_ = location.Reduce(sel, location.Country, 2)
	assert.Equal(t, fullSelection(), sel)
}

func TestParseLevel(t *testing.T) {
	for _, l := range location.Levels() {
		got, err := location.ParseLevel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}

	_, err := location.ParseLevel("continent")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSelection_DraftRoundTrip(t *testing.T) {
	d := domain.TravelSpotDraft{Name: "x"}
	fullSelection().ApplyTo(&d)

	assert.Equal(t, int64(1111), d.SubDistrict)
	assert.Equal(t, int64(560001), d.Pincode)
	assert.Equal(t, fullSelection(), location.FromDraft(d))
	assert.Equal(t, "x", d.Name)
}
