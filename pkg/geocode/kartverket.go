package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	kartverketSearchURL = "https://ws.geonorge.no/adresser/v1/sok"
	kartverketPageSize  = 5
)

// Confidence levels for registry hits. A hit whose postal code matches the
// input is near-certain; a street-only hit is weaker; a hit found only via
// the city-fallback query is weaker still.
const (
	confidencePostalMatch  = 0.95
	confidenceStreetMatch  = 0.75
	confidenceCityFallback = 0.60
)

// kartverketResponse is the JSON response from the Kartverket address API.
type kartverketResponse struct {
	Adresser []kartverketAddress `json:"adresser"`
}

type kartverketAddress struct {
	Adressetekst string `json:"adressetekst"`
	Postnummer   string `json:"postnummer"`
	Poststed     string `json:"poststed"`
	Punkt        struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"representasjonspunkt"`
}

// KartverketOption configures the Kartverket client.
type KartverketOption func(*KartverketClient)

// WithKartverketHTTPClient sets a custom HTTP client.
func WithKartverketHTTPClient(hc *http.Client) KartverketOption {
	return func(c *KartverketClient) {
		c.httpClient = hc
	}
}

// WithKartverketRateLimit sets the requests-per-second pace.
func WithKartverketRateLimit(rps float64) KartverketOption {
	return func(c *KartverketClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// KartverketClient geocodes Norwegian addresses against the national
// address registry. The registry is free and unauthenticated.
type KartverketClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewKartverket creates a Kartverket client with the given options.
func NewKartverket(opts ...KartverketOption) *KartverketClient {
	c := &KartverketClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(2, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Provider.
func (c *KartverketClient) Name() string { return "kartverket" }

// Available implements Provider.
func (c *KartverketClient) Available() bool { return true }

// Geocode implements Provider. The primary query combines street and postal
// code; on zero hits a single looser retry with street and city is made at
// reduced confidence.
func (c *KartverketClient) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	query := joinQueryParts(addr.Street, addr.PostalCode)
	if query == "" {
		return &Result{Matched: false, Provider: c.Name()}, nil
	}

	hits, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(hits) > 0 {
		hit := hits[0]
		confidence := confidenceStreetMatch
		if hit.Postnummer != "" && hit.Postnummer == addr.PostalCode {
			confidence = confidencePostalMatch
		}
		return &Result{
			Latitude:   hit.Punkt.Lat,
			Longitude:  hit.Punkt.Lon,
			Confidence: confidence,
			Provider:   c.Name(),
			Matched:    true,
		}, nil
	}

	// Looser fallback: street + city.
	fallback := joinQueryParts(addr.Street, addr.City)
	if fallback == "" || fallback == query {
		return &Result{Matched: false, Provider: c.Name()}, nil
	}

	zap.L().Debug("kartverket: empty result, retrying with city query",
		zap.String("query", query),
		zap.String("fallback", fallback),
	)

	hits, err = c.search(ctx, fallback)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &Result{Matched: false, Provider: c.Name()}, nil
	}

	hit := hits[0]
	return &Result{
		Latitude:   hit.Punkt.Lat,
		Longitude:  hit.Punkt.Lon,
		Confidence: confidenceCityFallback,
		Provider:   c.Name(),
		Matched:    true,
	}, nil
}

func (c *KartverketClient) search(ctx context.Context, query string) ([]kartverketAddress, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: kartverket rate limit")
	}

	params := url.Values{
		"sok":          {query},
		"treffPerSide": {strconv.Itoa(kartverketPageSize)},
	}

	reqURL := kartverketSearchURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: kartverket build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: kartverket request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: kartverket returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: kartverket read body")
	}

	var kvResp kartverketResponse
	if err := json.Unmarshal(body, &kvResp); err != nil {
		return nil, eris.Wrap(err, "geocode: kartverket parse response")
	}

	return kvResp.Adresser, nil
}
