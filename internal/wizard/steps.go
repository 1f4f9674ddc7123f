package wizard

import (
	"fmt"
	"reflect"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
)

// Step is a wizard state. The five editing steps are numbered from 1.
type Step int

const (
	StepBasicInfo Step = iota + 1
	StepLocation
	StepDetails
	StepImages
	StepReview
	StepSubmitted
)

// Title is the heading shown for a step.
func (s Step) Title() string {
	if st, ok := stepTable[s]; ok {
		return st.title
	}
	if s == StepSubmitted {
		return "Submitted"
	}
	return fmt.Sprintf("Step %d", int(s))
}

// Valid reports whether s is one of the five editing steps.
func (s Step) Valid() bool { return s >= StepBasicInfo && s <= StepReview }

// stepSpec declares one step. project extracts the step's schema from a
// draft; steps without fields (images, review) leave it nil.
type stepSpec struct {
	title   string
	project func(d domain.TravelSpotDraft) any
	fields  []string
}

var stepTable = map[Step]*stepSpec{
	StepBasicInfo: {
		title: "Basic Info",
		project: func(d domain.TravelSpotDraft) any {
			return basicInfoFields{
				Name:             d.Name,
				Slug:             d.Slug,
				Categories:       d.Categories,
				ShortDescription: d.ShortDescription,
			}
		},
	},
	StepLocation: {
		title: "Location & Address",
		project: func(d domain.TravelSpotDraft) any {
			return locationFields{
				Country:     d.Country,
				State:       d.State,
				District:    d.District,
				SubDistrict: d.SubDistrict,
				Village:     d.Village,
				Pincode:     d.Pincode,
				FullAddress: d.FullAddress,
				Latitude:    d.Latitude,
				Longitude:   d.Longitude,
			}
		},
	},
	StepDetails: {
		title: "Pricing, Timing & Description",
		project: func(d domain.TravelSpotDraft) any {
			return detailsFields{
				EntryFee:        d.EntryFee,
				OpeningTime:     d.OpeningTime,
				ClosingTime:     d.ClosingTime,
				BestTimeToVisit: d.BestTimeToVisit,
				LongDescription: d.LongDescription,
			}
		},
	},
	StepImages: {title: "Image Management"},
	StepReview: {title: "Review & Submit"},
}

// fieldOwner maps every draft json field to the step that edits it.
var fieldOwner = map[string]Step{}

func init() {
	for step, spec := range stepTable {
		if spec.project == nil {
			continue
		}
		t := reflect.TypeOf(spec.project(domain.TravelSpotDraft{}))
		for i := 0; i < t.NumField(); i++ {
			name := jsonName(t.Field(i))
			spec.fields = append(spec.fields, name)
			fieldOwner[name] = step
		}
	}
}

// OwnerOf returns the step that owns a draft field.
func OwnerOf(field string) (Step, bool) {
	s, ok := fieldOwner[field]
	return s, ok
}

// mergeStep copies the fields owned by step from src into dst.
func mergeStep(dst *domain.TravelSpotDraft, src domain.TravelSpotDraft, step Step) {
	spec := stepTable[step]
	if spec == nil || len(spec.fields) == 0 {
		return
	}
	owned := make(map[string]bool, len(spec.fields))
	for _, f := range spec.fields {
		owned[f] = true
	}
	src = src.Clone()
	dv := reflect.ValueOf(dst).Elem()
	sv := reflect.ValueOf(src)
	t := dv.Type()
	for i := 0; i < t.NumField(); i++ {
		if owned[jsonName(t.Field(i))] {
			dv.Field(i).Set(sv.Field(i))
		}
	}
}
