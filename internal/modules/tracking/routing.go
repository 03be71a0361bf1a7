package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"marketplace-delivery/internal/models"
)

// RoutingClientInterface is the external routing service: given two points it
// returns a routed distance/duration and a display polyline. When it is
// unreachable the caller falls back to straight-line estimation.
type RoutingClientInterface interface {
	GetRoute(ctx context.Context, originLat, originLng, destLat, destLng float64) (*models.ETAEstimate, error)
}

// DirectionsClient calls the Google Maps Directions API.
type DirectionsClient struct {
	apiKey     string
	httpClient *http.Client
}

// NewDirectionsClient creates a routing client with the given API key.
func NewDirectionsClient(apiKey string) *DirectionsClient {
	return &DirectionsClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// directionsResponse is a minimal structure of the parts of the Directions
// API response that we care about.
type directionsResponse struct {
	Routes []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

// GetRoute fetches a routed estimate between the two points.
func (c *DirectionsClient) GetRoute(ctx context.Context, originLat, originLng, destLat, destLng float64) (*models.ETAEstimate, error) {
	url := fmt.Sprintf("https://maps.googleapis.com/maps/api/directions/json?origin=%f,%f&destination=%f,%f&key=%s",
		originLat, originLng, destLat, destLng, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("routing.GetRoute build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("routing.GetRoute call directions: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("routing.GetRoute read body: %w", err)
	}

	var directions directionsResponse
	if err := json.Unmarshal(body, &directions); err != nil {
		return nil, fmt.Errorf("routing.GetRoute unmarshal: %w", err)
	}

	if len(directions.Routes) == 0 || len(directions.Routes[0].Legs) == 0 {
		return nil, fmt.Errorf("routing.GetRoute: no route returned")
	}

	leg := directions.Routes[0].Legs[0]
	return &models.ETAEstimate{
		DistanceMeters:  leg.Distance.Value,
		DurationSeconds: leg.Duration.Value,
		Routed:          true,
		Polyline:        directions.Routes[0].OverviewPolyline.Points,
	}, nil
}
