package wizard

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
)

// richText is applied to the long description, the only field rendered as
// HTML by the public site.
var richText = bluemonday.UGCPolicy()

const maxLongDescription = 5000

// sanitizeRichText strips disallowed markup. Text the sanitizer only
// entity-escaped is returned as typed, so plain quotes, ampersands and a
// lone "<" survive a save and reload unchanged.
func sanitizeRichText(s string) string {
	clean := richText.Sanitize(s)
	typed := html.UnescapeString(clean)
	if typed != clean && richText.Sanitize(typed) == clean {
		return typed
	}
	return clean
}

// BuildPayload converts a validated aggregate into the create/update body.
// Empty optional fields are sent as null.
func BuildPayload(d domain.TravelSpotDraft) (domain.SpotPayload, error) {
	p := domain.SpotPayload{
		Name:             strings.TrimSpace(d.Name),
		Slug:             d.Slug,
		Categories:       append([]int64{}, d.Categories...),
		ShortDescription: strings.TrimSpace(d.ShortDescription),
		LongDescription:  sanitizeRichText(d.LongDescription),
		Country:          d.Country,
		State:            d.State,
		District:         d.District,
		SubDistrict:      d.SubDistrict,
		Village:          d.Village,
		FullAddress:      strings.TrimSpace(d.FullAddress),
		EntryFee:         d.EntryFee,
		BestTimeToVisit:  strings.TrimSpace(d.BestTimeToVisit),
		OpeningTime:      optional(d.OpeningTime),
		ClosingTime:      optional(d.ClosingTime),
	}
	if d.Pincode != 0 {
		pin := d.Pincode
		p.Pincode = &pin
	}

	if utf8.RuneCountInString(p.LongDescription) > maxLongDescription {
		return domain.SpotPayload{}, domain.NewValidationError("long_description",
			fmt.Sprintf("must be at most %d characters", maxLongDescription))
	}

	var err error
	if p.Latitude, err = coordinate("latitude", d.Latitude); err != nil {
		return domain.SpotPayload{}, err
	}
	if p.Longitude, err = coordinate("longitude", d.Longitude); err != nil {
		return domain.SpotPayload{}, err
	}
	return p, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func coordinate(field, s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, domain.NewValidationError(field, "must be a decimal number")
	}
	return &f, nil
}
