package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
)

// GetSpot reads a travel spot by slug.
func (c *Client) GetSpot(ctx context.Context, slug string) (domain.TravelSpot, error) {
	var dto spotDTO
	if err := c.sendJSON(ctx, "GET", "/travel-spots/"+url.PathEscape(slug)+"/", nil, nil, &dto); err != nil {
		return domain.TravelSpot{}, fmt.Errorf("remote.Client.GetSpot: %w", err)
	}
	return dto.toDomain(), nil
}

// CreateSpot creates a travel spot.
func (c *Client) CreateSpot(ctx context.Context, p domain.SpotPayload) (domain.TravelSpot, error) {
	var dto spotDTO
	if err := c.sendJSON(ctx, "POST", "/admin/travel-spots/", nil, p, &dto); err != nil {
		return domain.TravelSpot{}, fmt.Errorf("remote.Client.CreateSpot: %w", err)
	}
	return dto.toDomain(), nil
}

// UpdateSpot replaces the travel spot currently stored under slug. The
// payload may carry a new slug. A reply without data yields a record that
// only carries the submitted slug.
func (c *Client) UpdateSpot(ctx context.Context, slug string, p domain.SpotPayload) (domain.TravelSpot, error) {
	var dto spotDTO
	err := c.sendJSON(ctx, "PUT", "/admin/travel-spots/"+url.PathEscape(slug)+"/", nil, p, &dto)
	if errors.Is(err, errNoData) {
		return domain.TravelSpot{Draft: domain.TravelSpotDraft{Slug: p.Slug}}, nil
	}
	if err != nil {
		return domain.TravelSpot{}, fmt.Errorf("remote.Client.UpdateSpot: %w", err)
	}
	return dto.toDomain(), nil
}
