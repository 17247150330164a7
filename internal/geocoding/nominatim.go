package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bookswap/internal/middleware"
	"bookswap/internal/observability"
)

// Geocoder looks up coordinates for free text.
type Geocoder interface {
	Search(ctx context.Context, query string) (*Match, error)
}

// Match is the best hit for a query.
type Match struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// NominatimClient queries an OpenStreetMap Nominatim compatible endpoint.
type NominatimClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewNominatimClient returns a client for baseURL. Nominatim rejects requests without a User-Agent.
func NewNominatimClient(baseURL, userAgent string) *NominatimClient {
	return &NominatimClient{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      &http.Client{Timeout: 5 * time.Second},
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search returns the first match, or nil when nothing matched.
func (c *NominatimClient) Search(ctx context.Context, query string) (*Match, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse geocoder url: %w", err)
	}
	u = u.JoinPath("search")
	q := u.Query()
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned %s", resp.Status)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode geocoder response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude: %w", err)
	}
	return &Match{Lat: lat, Lon: lon, DisplayName: results[0].DisplayName}, nil
}

// Resolver turns a parsed Location into storable fields.
type Resolver struct {
	geocoder Geocoder
}

// NewResolver returns a Resolver. A nil geocoder stores addresses without coordinates.
func NewResolver(geocoder Geocoder) *Resolver {
	return &Resolver{geocoder: geocoder}
}

// Resolve never fails: a failed lookup keeps the address text and leaves coordinates empty.
func (r *Resolver) Resolve(ctx context.Context, loc Location) Resolved {
	switch l := loc.(type) {
	case Coordinates:
		lat, lon := l.Lat, l.Lon
		text := l.Label
		if text == "" {
			text = formatPoint(lat, lon)
		}
		observability.GeocodeOutcomes.WithLabelValues("coordinates").Inc()
		return Resolved{Text: text, Latitude: &lat, Longitude: &lon}
	case FreeformAddress:
		if r.geocoder == nil {
			observability.GeocodeOutcomes.WithLabelValues("disabled").Inc()
			return Resolved{Text: l.Text}
		}
		match, err := r.geocoder.Search(ctx, l.Text)
		if err != nil {
			observability.GeocodeOutcomes.WithLabelValues("error").Inc()
			middleware.Logger.WarnContext(ctx, "geocoding failed", "query", l.Text, "error", err)
			return Resolved{Text: l.Text}
		}
		if match == nil {
			observability.GeocodeOutcomes.WithLabelValues("no_match").Inc()
			return Resolved{Text: l.Text}
		}
		observability.GeocodeOutcomes.WithLabelValues("matched").Inc()
		return Resolved{Text: l.Text, Latitude: &match.Lat, Longitude: &match.Lon}
	default:
		return Resolved{}
	}
}
