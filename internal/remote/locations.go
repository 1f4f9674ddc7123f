package remote

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
	"github.com/pkordes/travelspot-editor/backend/internal/location"
)

var locationPaths = map[location.Level]string{
	location.Country:     "/locations/countries/",
	location.State:       "/locations/states/",
	location.District:    "/locations/districts/",
	location.SubDistrict: "/locations/sub-districts/",
	location.Village:     "/locations/villages/",
	location.Pincode:     "/locations/pincodes/",
}

// LocationOptions lists the options of level whose parent is parentID. The
// parent filter is named after the parent level (country, state, ...).
func (c *Client) LocationOptions(ctx context.Context, level location.Level, parentID int64) ([]domain.LocationOption, error) {
	path, ok := locationPaths[level]
	if !ok {
		return nil, fmt.Errorf("remote.Client.LocationOptions: %w: unknown level %d", domain.ErrValidation, level)
	}
	query := url.Values{}
	if level != location.Country {
		query.Set((level - 1).String(), strconv.FormatInt(parentID, 10))
	}

	var dtos []locationDTO
	if err := c.sendJSON(ctx, "GET", path, query, nil, &dtos); err != nil {
		return nil, fmt.Errorf("remote.Client.LocationOptions: %w", err)
	}
	out := make([]domain.LocationOption, len(dtos))
	for i, d := range dtos {
		out[i] = d.toDomain()
	}
	return out, nil
}
