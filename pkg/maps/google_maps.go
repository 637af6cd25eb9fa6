package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// streetLevelTypes are the result types a responder can navigate to.
var streetLevelTypes = []string{"street_address", "premise", "intersection", "route"}

// GoogleMapsProvider describes SOS locations for notification text. It asks
// for a street-level address first and settles for any result when the
// caller is somewhere without one.
type GoogleMapsProvider struct {
	client   *maps.Client
	language string
}

func NewGoogleMapsProvider(apiKey, language string, opts ...maps.ClientOption) (*GoogleMapsProvider, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return &GoogleMapsProvider{
		client:   client,
		language: language,
	}, nil
}

func (g *GoogleMapsProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error) {
	results, err := g.reverseGeocode(ctx, lat, lng, streetLevelTypes)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		if results, err = g.reverseGeocode(ctx, lat, lng, nil); err != nil {
			return nil, err
		}
	}

	return &GeocodeResponse{Results: results}, nil
}

func (g *GoogleMapsProvider) reverseGeocode(ctx context.Context, lat, lng float64, resultTypes []string) ([]GeocodeResult, error) {
	resp, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:     &maps.LatLng{Lat: lat, Lng: lng},
		ResultType: resultTypes,
		Language:   g.language,
	})
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding %.5f,%.5f failed: %w", lat, lng, err)
	}

	results := make([]GeocodeResult, 0, len(resp))
	for _, result := range resp {
		results = append(results, GeocodeResult{
			PlaceID: result.PlaceID,
			Address: result.FormattedAddress,
			Coordinates: Location{
				Latitude:  result.Geometry.Location.Lat,
				Longitude: result.Geometry.Location.Lng,
			},
			Types: result.Types,
		})
	}

	return results, nil
}
