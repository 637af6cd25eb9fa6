package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func TestGoogleMapsProvider_ReverseGeocode(t *testing.T) {
	var gotLatLng string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLatLng = r.URL.Query().Get("latlng")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"place_id": "p1",
				"formatted_address": "1 Main St",
				"geometry": {"location": {"lat": 10.0, "lng": 20.0}},
				"types": ["street_address"]
			}]
		}`))
	}))
	defer srv.Close()

	provider, err := NewGoogleMapsProvider("test-key", "", maps.WithBaseURL(srv.URL))
	require.NoError(t, err)

	resp, err := provider.ReverseGeocode(context.Background(), 10.0, 20.0)
	require.NoError(t, err)

	best := resp.Best()
	require.NotNil(t, best)
	assert.Equal(t, "1 Main St", best.Address)
	assert.Equal(t, 10.0, best.Coordinates.Latitude)
	assert.Contains(t, gotLatLng, "10")
}

func TestGoogleMapsProvider_FallsBackWithoutStreetAddress(t *testing.T) {
	var resultTypes, languages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resultTypes = append(resultTypes, r.URL.Query().Get("result_type"))
		languages = append(languages, r.URL.Query().Get("language"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("result_type") != "" {
			w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
			return
		}
		w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"place_id": "p2",
				"formatted_address": "Brandenburg, Germany",
				"geometry": {"location": {"lat": 52.4, "lng": 12.5}},
				"types": ["administrative_area_level_1"]
			}]
		}`))
	}))
	defer srv.Close()

	provider, err := NewGoogleMapsProvider("test-key", "de", maps.WithBaseURL(srv.URL))
	require.NoError(t, err)

	resp, err := provider.ReverseGeocode(context.Background(), 52.4, 12.5)
	require.NoError(t, err)
	require.NotNil(t, resp.Best())
	assert.Equal(t, "Brandenburg, Germany", resp.Best().Address)

	require.Len(t, resultTypes, 2)
	assert.Equal(t, "street_address|premise|intersection|route", resultTypes[0])
	assert.Empty(t, resultTypes[1])
	assert.Equal(t, []string{"de", "de"}, languages)
}

func TestGoogleMapsProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "REQUEST_DENIED", "error_message": "bad key", "results": []}`))
	}))
	defer srv.Close()

	provider, err := NewGoogleMapsProvider("test-key", "", maps.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = provider.ReverseGeocode(context.Background(), 1, 2)
	assert.Error(t, err)
}

func TestGeocodeResponse_BestEmpty(t *testing.T) {
	var resp *GeocodeResponse
	assert.Nil(t, resp.Best())
	assert.Nil(t, (&GeocodeResponse{}).Best())
}
