package domain

import (
	"time"

	"github.com/google/uuid"
)

// EditorSnapshot is the serializable state of one editor session.
// Location option lists and images are not part of it: they are re-fetched
// from the remote API when the session is restored.
type EditorSnapshot struct {
	ID         uuid.UUID           `json:"id"`
	Mode       string              `json:"mode"`
	Step       int                 `json:"step"`
	Local      TravelSpotDraft     `json:"local"`
	Draft      TravelSpotDraft     `json:"draft"`
	SlugMode   string              `json:"slug_mode"`
	SpotID     int64               `json:"spot_id"`
	SpotSlug   string              `json:"spot_slug"`
	StepErrors map[int]FieldErrors `json:"step_errors,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}
