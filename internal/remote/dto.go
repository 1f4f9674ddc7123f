package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
)

// flexID decodes an id sent as a number, a numeric string, an object with
// an id member, or null.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = 0
		return nil
	case len(b) > 0 && b[0] == '{':
		var obj struct {
			ID flexID `json:"id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*f = obj.ID
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("id %q: %w", s, err)
		}
		*f = flexID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n)
	return nil
}

// flexText decodes a string, a number (kept as its literal text) or null.
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexText(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*f = flexText(n.String())
	}
	return nil
}

// clock trims "HH:MM:SS" to "HH:MM".
func clock(t flexText) string {
	s := string(t)
	if len(s) == 8 && s[2] == ':' && s[5] == ':' {
		return s[:5]
	}
	return s
}

type locationDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (d locationDTO) toDomain() domain.LocationOption {
	return domain.LocationOption{ID: d.ID, Name: d.Name}
}

type imageDTO struct {
	ID        int64  `json:"id"`
	Image     string `json:"image"`
	Caption   string `json:"caption"`
	Position  int    `json:"position"`
	IsPrimary bool   `json:"is_primary"`
}

func (d imageDTO) toDomain() domain.SpotImage {
	return domain.SpotImage{
		ID:        d.ID,
		URL:       d.Image,
		Caption:   d.Caption,
		Position:  d.Position,
		IsPrimary: d.IsPrimary,
	}
}

type spotDTO struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Slug             string     `json:"slug"`
	Categories       []flexID   `json:"categories"`
	ShortDescription string     `json:"short_description"`
	LongDescription  string     `json:"long_description"`
	Country          flexID     `json:"country"`
	State            flexID     `json:"state"`
	District         flexID     `json:"district"`
	SubDistrict      flexID     `json:"sub_district"`
	Village          flexID     `json:"village"`
	Pincode          flexID     `json:"pincode"`
	FullAddress      string     `json:"full_address"`
	Latitude         flexText   `json:"latitude"`
	Longitude        flexText   `json:"longitude"`
	EntryFee         flexText   `json:"entry_fee"`
	OpeningTime      flexText   `json:"opening_time"`
	ClosingTime      flexText   `json:"closing_time"`
	BestTimeToVisit  string     `json:"best_time_to_visit"`
	Images           []imageDTO `json:"images"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (d spotDTO) toDomain() domain.TravelSpot {
	cats := make([]int64, len(d.Categories))
	for i, c := range d.Categories {
		cats[i] = int64(c)
	}
	imgs := make([]domain.SpotImage, len(d.Images))
	for i, img := range d.Images {
		imgs[i] = img.toDomain()
	}
	return domain.TravelSpot{
		ID: d.ID,
		Draft: domain.TravelSpotDraft{
			Name:             d.Name,
			Slug:             d.Slug,
			Categories:       cats,
			ShortDescription: d.ShortDescription,
			LongDescription:  d.LongDescription,
			Country:          int64(d.Country),
			State:            int64(d.State),
			District:         int64(d.District),
			SubDistrict:      int64(d.SubDistrict),
			Village:          int64(d.Village),
			Pincode:          int64(d.Pincode),
			FullAddress:      d.FullAddress,
			Latitude:         string(d.Latitude),
			Longitude:        string(d.Longitude),
			EntryFee:         string(d.EntryFee),
			OpeningTime:      clock(d.OpeningTime),
			ClosingTime:      clock(d.ClosingTime),
			BestTimeToVisit:  d.BestTimeToVisit,
		},
		Images:    imgs,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
