// Package location resolves the administrative-location hierarchy of a
// travel spot: Country → State → District → Sub-District → Village, plus an
// optional Pincode below the village.
//
// Selecting a level invalidates every level below it. The transition itself
// is the pure function Reduce; Resolver layers option fetching on top.
package location

import (
	"fmt"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
)

// Level is one tier of the hierarchy, ordered from the root.
type Level int

const (
	Country Level = iota
	State
	District
	SubDistrict
	Village
	Pincode
)

const levelCount = int(Pincode) + 1

var levelNames = [levelCount]string{"country", "state", "district", "sub_district", "village", "pincode"}

// Levels returns every level from the root down.
func Levels() []Level {
	out := make([]Level, levelCount)
	for i := range out {
		out[i] = Level(i)
	}
	return out
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool { return l >= Country && l <= Pincode }

// String returns the json field name of the level.
func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel maps a json field name ("sub_district") back to a Level.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown location level %q", domain.ErrValidation, s)
}

// Selection holds the selected id of every level; 0 means empty.
type Selection [levelCount]int64

// Get returns the id selected at l.
func (s Selection) Get(l Level) int64 { return s[l] }

// Parent returns the id selected one level above l. The root has no parent
// and always reports ok.
func (s Selection) Parent(l Level) (id int64, ok bool) {
	if l == Country {
		return 0, true
	}
	id = s[l-1]
	return id, id != 0
}

// Reduce applies "set level to value" and returns the new selection.
// Setting a level to the value it already holds returns s unchanged, so a
// top-down replay of an existing selection never wipes itself out. Any other
// value, empty included, clears every descendant level.
func Reduce(s Selection, level Level, value int64) Selection {
	if s[level] == value {
		return s
	}
	s[level] = value
	for l := level + 1; int(l) < levelCount; l++ {
		s[l] = 0
	}
	return s
}

// FromDraft extracts the location levels of a draft.
func FromDraft(d domain.TravelSpotDraft) Selection {
	return Selection{d.Country, d.State, d.District, d.SubDistrict, d.Village, d.Pincode}
}

// ApplyTo writes the selection into the location fields of d.
func (s Selection) ApplyTo(d *domain.TravelSpotDraft) {
	d.Country = s[Country]
	d.State = s[State]
	d.District = s[District]
	d.SubDistrict = s[SubDistrict]
	d.Village = s[Village]
	d.Pincode = s[Pincode]
}
