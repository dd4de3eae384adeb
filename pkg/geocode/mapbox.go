package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/nordcharge/resolve-cli/internal/model"
)

const mapboxGeocodeURL = "https://api.mapbox.com/geocoding/v5/mapbox.places/"

// defaultMapboxConfidence is used when the API omits a relevance score.
const defaultMapboxConfidence = 0.7

// mapboxResponse is the JSON response from the Mapbox geocoding API.
type mapboxResponse struct {
	Features []mapboxFeature `json:"features"`
}

type mapboxFeature struct {
	Relevance float64   `json:"relevance"`
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
}

// countryNames supplies the country term appended to Mapbox queries.
var countryNames = map[model.Country]string{
	model.CountryNorway:  "Norway",
	model.CountrySweden:  "Sweden",
	model.CountryDenmark: "Denmark",
	model.CountryFinland: "Finland",
}

// MapboxOption configures the Mapbox client.
type MapboxOption func(*MapboxClient)

// WithMapboxHTTPClient sets a custom HTTP client.
func WithMapboxHTTPClient(hc *http.Client) MapboxOption {
	return func(c *MapboxClient) {
		c.httpClient = hc
	}
}

// WithMapboxRateLimit sets the requests-per-second pace.
func WithMapboxRateLimit(rps float64) MapboxOption {
	return func(c *MapboxClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// MapboxClient geocodes addresses outside Norway through the commercial
// Mapbox API. Without an access token the client reports itself
// unavailable and never issues a request.
type MapboxClient struct {
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewMapbox creates a Mapbox client with the given access token.
func NewMapbox(token string, opts ...MapboxOption) *MapboxClient {
	c := &MapboxClient{
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Provider.
func (c *MapboxClient) Name() string { return "mapbox" }

// Available implements Provider.
func (c *MapboxClient) Available() bool { return c.token != "" }

// Geocode implements Provider with a single free-text forward-geocode call.
func (c *MapboxClient) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	if c.token == "" {
		return nil, eris.New("geocode: mapbox access token not configured")
	}

	query := joinQueryParts(addr.Street, addr.PostalCode, addr.City, countryNames[addr.Country])
	if query == "" {
		return &Result{Matched: false, Provider: c.Name()}, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox rate limit")
	}

	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
	}
	reqURL := mapboxGeocodeURL + url.PathEscape(query) + ".json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: mapbox returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox read body")
	}

	var mbResp mapboxResponse
	if err := json.Unmarshal(body, &mbResp); err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox parse response")
	}

	if len(mbResp.Features) == 0 {
		return &Result{Matched: false, Provider: c.Name()}, nil
	}

	top := mbResp.Features[0]
	if len(top.Center) < 2 {
		return &Result{Matched: false, Provider: c.Name()}, nil
	}

	confidence := top.Relevance
	if confidence <= 0 || confidence > 1 {
		confidence = defaultMapboxConfidence
	}

	return &Result{
		Latitude:   top.Center[1],
		Longitude:  top.Center[0],
		Confidence: confidence,
		Provider:   c.Name(),
		Matched:    true,
	}, nil
}
