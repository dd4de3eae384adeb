// Package model defines the core domain types shared across the pipeline.
package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Country is an ISO 3166-1 alpha-2 code for a supported market.
type Country string

// Supported markets.
const (
	CountryNorway  Country = "NO"
	CountrySweden  Country = "SE"
	CountryDenmark Country = "DK"
	CountryFinland Country = "FI"
)

// SupportedCountries lists every market the pipeline operates in.
var SupportedCountries = []Country{CountryNorway, CountrySweden, CountryDenmark, CountryFinland}

// ParseCountry converts a country code string to a Country.
// An empty string is valid and means "all supported countries".
func ParseCountry(s string) (Country, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	for _, c := range SupportedCountries {
		if string(c) == s {
			return c, nil
		}
	}
	return "", eris.Errorf("model: unsupported country %q", s)
}

// MatchStatus tracks a facility's progress through the CRM matching stage.
type MatchStatus string

// GeocodeStatus tracks a facility's progress through the geocoding stage.
type GeocodeStatus string

const (
	MatchPending MatchStatus = "pending"
	MatchMatched MatchStatus = "matched"
	MatchFailed  MatchStatus = "failed"
	MatchManual  MatchStatus = "manual"

	GeocodePending GeocodeStatus = "pending"
	GeocodeSuccess GeocodeStatus = "success"
	GeocodeFailed  GeocodeStatus = "failed"
	GeocodeManual  GeocodeStatus = "manual"
)

// Facility is an internal record for a physical charging site. It is created
// by the import process and mutated only through the store during resolution.
type Facility struct {
	ID                string
	Name              string
	Country           Country
	Street            string
	City              string
	PostalCode        string
	CRMAccountID      string
	MatchStatus       MatchStatus
	MatchTier         string
	MatchConfidence   *float64
	GeocodeStatus     GeocodeStatus
	GeocodeProvider   string
	GeocodeConfidence *float64
	Latitude          *float64
	Longitude         *float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasAddress reports whether the facility carries a street address usable
// for geocoding.
func (f *Facility) HasAddress() bool {
	return strings.TrimSpace(f.Street) != ""
}

// HasCoordinates reports whether both latitude and longitude are set.
func (f *Facility) HasCoordinates() bool {
	return f.Latitude != nil && f.Longitude != nil
}

// Validate checks the coordinate/status invariant: coordinates are present
// exactly when the geocode status is success or manual.
func (f *Facility) Validate() error {
	located := f.GeocodeStatus == GeocodeSuccess || f.GeocodeStatus == GeocodeManual
	if located && !f.HasCoordinates() {
		return eris.Errorf("model: facility %s has status %s without coordinates", f.ID, f.GeocodeStatus)
	}
	if !located && f.HasCoordinates() {
		return eris.Errorf("model: facility %s has coordinates with status %s", f.ID, f.GeocodeStatus)
	}
	return nil
}
