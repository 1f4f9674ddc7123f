package handler

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
	"github.com/pkordes/travelspot-editor/backend/internal/service"
	"github.com/pkordes/travelspot-editor/backend/internal/wizard"
)

// Wire types of the session API. They mirror the schemas in
// spec/openapi.yaml.

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable code, a message and optional field errors.
type ErrorDetail struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Fields  domain.FieldErrors `json:"fields,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// StartSessionRequest opens a create session, or an edit session when Slug
// is set.
type StartSessionRequest struct {
	Slug string `json:"slug"`
}

// SetLocationRequest selects a location level; 0 clears it.
type SetLocationRequest struct {
	ID int64 `json:"id"`
}

// JumpRequest names the step to jump to from review.
type JumpRequest struct {
	Step int `json:"step"`
}

// MoveImageRequest moves the image at Position one place up or down.
type MoveImageRequest struct {
	Position  int    `json:"position"`
	Direction string `json:"direction"`
}

// ImageListResponse wraps an ordered image list.
type ImageListResponse struct {
	Images []domain.SpotImage `json:"images"`
}

// SpotRef identifies the persisted record bound to a session.
type SpotRef struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
}

// LocationLevel is the state of one location dropdown.
type LocationLevel struct {
	Level    string                  `json:"level"`
	Selected int64                   `json:"selected"`
	Options  []domain.LocationOption `json:"options"`
	Loaded   bool                    `json:"loaded"`
	Disabled bool                    `json:"disabled"`
	Error    string                  `json:"error,omitempty"`
}

// SessionResponse is the full state of an editor session.
type SessionResponse struct {
	ID        uuid.UUID                     `json:"id"`
	Mode      string                        `json:"mode"`
	Step      int                           `json:"step"`
	StepTitle string                        `json:"step_title"`
	Local     domain.TravelSpotDraft        `json:"local"`
	Draft     domain.TravelSpotDraft        `json:"draft"`
	SlugMode  string                        `json:"slug_mode"`
	Spot      *SpotRef                      `json:"spot,omitempty"`
	Locations []LocationLevel               `json:"locations"`
	Images    []domain.SpotImage            `json:"images"`
	Errors    map[string]domain.FieldErrors `json:"errors"`
	Notice    *wizard.Notice                `json:"notice,omitempty"`
	CreatedAt time.Time                     `json:"created_at"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

func sessionToResponse(e service.Editor) SessionResponse {
	resp := SessionResponse{
		ID:        e.ID,
		Mode:      e.Mode.String(),
		Step:      int(e.Step),
		StepTitle: e.Step.Title(),
		Local:     e.Local,
		Draft:     e.Draft,
		SlugMode:  e.Slug.Mode.String(),
		Locations: make([]LocationLevel, len(e.Locations)),
		Images:    imagesOrEmpty(e.Images),
		Errors:    make(map[string]domain.FieldErrors, len(e.Errors)),
		Notice:    e.Notice,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.SpotID != 0 {
		resp.Spot = &SpotRef{ID: e.SpotID, Slug: e.SpotSlug}
	}
	for i, v := range e.Locations {
		lv := LocationLevel{
			Level:    v.Level.String(),
			Selected: v.Selected,
			Options:  v.Options,
			Loaded:   v.Loaded,
			Disabled: v.Disabled,
		}
		if lv.Options == nil {
			lv.Options = []domain.LocationOption{}
		}
		if v.Err != nil {
			lv.Error = "options could not be loaded"
		}
		resp.Locations[i] = lv
	}
	for step, fe := range e.Errors {
		resp.Errors[stepKey(step)] = fe
	}
	return resp
}

func stepKey(s wizard.Step) string {
	return strconv.Itoa(int(s))
}

func imagesOrEmpty(list []domain.SpotImage) []domain.SpotImage {
	if list == nil {
		return []domain.SpotImage{}
	}
	return list
}
