// Package geocode resolves postal addresses to coordinates via the
// Kartverket national address registry (Norway) and the Mapbox geocoding
// API (all other markets).
package geocode

import (
	"context"
	"strings"

	"github.com/nordcharge/resolve-cli/internal/model"
)

// AddressInput is an address to geocode.
type AddressInput struct {
	Street     string
	City       string
	PostalCode string
	Country    model.Country
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude   float64
	Longitude  float64
	Confidence float64
	Provider   string // "kartverket" or "mapbox"
	Matched    bool
}

// Provider represents a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
	Available() bool
}

// joinQueryParts joins non-empty address fragments into a free-text query.
func joinQueryParts(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}
