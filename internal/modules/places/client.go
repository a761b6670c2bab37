package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

var ErrUpstream = errors.New("places_upstream_error")

// Client is a thin proxy to the external places API: request building and
// response decoding only, no business logic. The engagement store never
// touches it; they meet only in the mobile client.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Search runs a text search, optionally biased to a location when lat/lng
// are both non-zero.
func (c *Client) Search(ctx context.Context, query string, lat, lng float64, radius int) ([]Restaurant, error) {
	params := url.Values{}
	params.Set("query", query+" restaurant")
	params.Set("type", "restaurant")
	params.Set("key", c.apiKey)
	if lat != 0 || lng != 0 {
		params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
		if radius <= 0 {
			radius = 1500
		}
		params.Set("radius", strconv.Itoa(radius))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/textsearch/json?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if decoded.Status != "OK" && decoded.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, decoded.Status)
	}

	restaurants := make([]Restaurant, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		address := r.FormattedAddress
		if address == "" {
			address = r.Vicinity
		}
		out := Restaurant{
			ID:           r.PlaceID,
			Name:         r.Name,
			Address:      address,
			Rating:       r.Rating,
			RatingsTotal: r.UserRatingsTotal,
			PriceLevel:   r.PriceLevel,
			Lat:          r.Geometry.Location.Lat,
			Lng:          r.Geometry.Location.Lng,
		}
		if len(r.Photos) > 0 {
			out.PhotoRef = r.Photos[0].PhotoReference
		}
		if r.OpeningHours != nil {
			openNow := r.OpeningHours.OpenNow
			out.OpenNow = &openNow
		}
		restaurants = append(restaurants, out)
	}
	return restaurants, nil
}

// PhotoURL builds the upstream photo URL for a photo reference; the client
// follows the redirect itself, the backend never streams image bytes.
func (c *Client) PhotoURL(photoRef string, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = 400
	}
	params := url.Values{}
	params.Set("photoreference", photoRef)
	params.Set("maxwidth", strconv.Itoa(maxWidth))
	params.Set("key", c.apiKey)
	return c.baseURL + "/photo?" + params.Encode()
}
