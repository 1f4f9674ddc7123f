// Package domain contains the core data types shared by the editor packages.
// It has no dependencies on any other internal package.
package domain

import "time"

// TravelSpotDraft is the aggregate being composed across the wizard steps.
// Location ids use 0 for "not selected". Latitude and Longitude keep the
// user's decimal text so that validation can report on what was typed.
type TravelSpotDraft struct {
	Name             string  `json:"name"`
	Slug             string  `json:"slug"`
	Categories       []int64 `json:"categories"`
	ShortDescription string  `json:"short_description"`
	LongDescription  string  `json:"long_description"`

	Country     int64  `json:"country"`
	State       int64  `json:"state"`
	District    int64  `json:"district"`
	SubDistrict int64  `json:"sub_district"`
	Village     int64  `json:"village"`
	Pincode     int64  `json:"pincode"`
	FullAddress string `json:"full_address"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`

	EntryFee        string `json:"entry_fee"`
	OpeningTime     string `json:"opening_time"`
	ClosingTime     string `json:"closing_time"`
	BestTimeToVisit string `json:"best_time_to_visit"`
}

// Clone returns a deep copy; Categories is the only reference field.
func (d TravelSpotDraft) Clone() TravelSpotDraft {
	out := d
	if d.Categories != nil {
		out.Categories = append([]int64(nil), d.Categories...)
	}
	return out
}

// TravelSpot is a persisted record as returned by the remote API.
type TravelSpot struct {
	ID        int64
	Draft     TravelSpotDraft
	Images    []SpotImage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SpotPayload is the JSON body for creating or updating a travel spot.
// Images are never part of it: they are persisted one operation at a time.
type SpotPayload struct {
	Name             string   `json:"name"`
	Slug             string   `json:"slug"`
	Categories       []int64  `json:"categories"`
	ShortDescription string   `json:"short_description"`
	LongDescription  string   `json:"long_description"`
	Country          int64    `json:"country"`
	State            int64    `json:"state"`
	District         int64    `json:"district"`
	SubDistrict      int64    `json:"sub_district"`
	Village          int64    `json:"village"`
	Pincode          *int64   `json:"pincode"`
	FullAddress      string   `json:"full_address"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	EntryFee         string   `json:"entry_fee"`
	OpeningTime      *string  `json:"opening_time"`
	ClosingTime      *string  `json:"closing_time"`
	BestTimeToVisit  string   `json:"best_time_to_visit"`
}

// LocationOption is one selectable entry of a location level.
type LocationOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
