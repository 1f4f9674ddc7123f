package wizard

import (
	"reflect"
	"strings"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
	"github.com/pkordes/travelspot-editor/backend/internal/slug"
)

// Patch is a partial edit of the local draft. Nil fields are left alone.
// Location ids are not part of it; they change through SetLocation so the
// cascade rules apply.
type Patch struct {
	Name             *string  `json:"name,omitempty"`
	Slug             *string  `json:"slug,omitempty"`
	Categories       *[]int64 `json:"categories,omitempty"`
	ShortDescription *string  `json:"short_description,omitempty"`
	FullAddress      *string  `json:"full_address,omitempty"`
	Latitude         *string  `json:"latitude,omitempty"`
	Longitude        *string  `json:"longitude,omitempty"`
	EntryFee         *string  `json:"entry_fee,omitempty"`
	OpeningTime      *string  `json:"opening_time,omitempty"`
	ClosingTime      *string  `json:"closing_time,omitempty"`
	BestTimeToVisit  *string  `json:"best_time_to_visit,omitempty"`
	LongDescription  *string  `json:"long_description,omitempty"`
}

// Fields returns the json names of the fields the patch sets.
func (p Patch) Fields() []string {
	v := reflect.ValueOf(p)
	t := v.Type()
	var out []string
	for i := 0; i < t.NumField(); i++ {
		if !v.Field(i).IsNil() {
			out = append(out, jsonName(t.Field(i)))
		}
	}
	return out
}

// apply writes p into d. The name feeds the slug deriver; a slug in the
// same patch is applied after it, so a manual edit wins.
func (p Patch) apply(d *domain.TravelSpotDraft, s slug.State) slug.State {
	if p.Name != nil {
		d.Name = *p.Name
		s = s.Generate(*p.Name)
	}
	if p.Slug != nil {
		s = s.Edit(strings.TrimSpace(*p.Slug))
	}
	d.Slug = s.Value
	if p.Categories != nil {
		d.Categories = append([]int64(nil), (*p.Categories)...)
	}
	set(&d.ShortDescription, p.ShortDescription)
	set(&d.FullAddress, p.FullAddress)
	set(&d.Latitude, trimmed(p.Latitude))
	set(&d.Longitude, trimmed(p.Longitude))
	set(&d.EntryFee, trimmed(p.EntryFee))
	set(&d.OpeningTime, trimmed(p.OpeningTime))
	set(&d.ClosingTime, trimmed(p.ClosingTime))
	set(&d.BestTimeToVisit, p.BestTimeToVisit)
	set(&d.LongDescription, p.LongDescription)
	return s
}

func set(dst, src *string) {
	if src != nil {
		*dst = *src
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
