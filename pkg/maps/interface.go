package maps

import "context"

//go:generate go run go.uber.org/mock/mockgen -source=interface.go -destination=../../mocks/mock_geocoder.go -package=mocks

// Geocoder turns coordinates into a human-readable address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error)
}

type GeocodeResponse struct {
	Results []GeocodeResult `json:"results"`
}

// Best returns the most specific result, or nil.
func (r *GeocodeResponse) Best() *GeocodeResult {
	if r == nil || len(r.Results) == 0 {
		return nil
	}
	return &r.Results[0]
}

type GeocodeResult struct {
	PlaceID     string   `json:"place_id"`
	Address     string   `json:"formatted_address"`
	Coordinates Location `json:"geometry"`
	Types       []string `json:"types"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
