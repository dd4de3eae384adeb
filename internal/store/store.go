// Package store persists facility resolution state in PostgreSQL or SQLite.
package store

import (
	"context"

	"github.com/nordcharge/resolve-cli/internal/model"
)

// StatusCount aggregates resolution progress for one country.
type StatusCount struct {
	Country        model.Country
	Total          int64
	MatchPending   int64
	Matched        int64
	MatchFailed    int64
	MatchManual    int64
	GeocodePending int64
	Geocoded       int64
	GeocodeFailed  int64
	GeocodeManual  int64
}

// Store defines the persistence interface for the resolution pipeline.
//
// Backlog queries exclude every terminal status, so re-running a stage only
// touches records still pending. All writes are single-row updates keyed by
// facility ID and safe to repeat.
type Store interface {
	// Backlogs. An empty country selects all supported markets.
	UnmatchedFacilities(ctx context.Context, country model.Country, limit int) ([]model.Facility, error)
	UngeocodedFacilities(ctx context.Context, country model.Country, limit int) ([]model.Facility, error)

	// Stage outcomes. RecordMatch copies the linked account's billing
	// address onto the facility so the geocoding stage can use it.
	RecordMatch(ctx context.Context, facilityID, accountID, street, city, postalCode, tier string, confidence float64) error
	RecordMatchFailure(ctx context.Context, facilityID string) error
	RecordGeocode(ctx context.Context, facilityID string, lat, lon float64, provider string, confidence float64) error
	RecordGeocodeFailure(ctx context.Context, facilityID string) error

	// Maintenance. Resets return failed records of a stage to pending.
	ResetMatchFailures(ctx context.Context, country model.Country) (int64, error)
	ResetGeocodeFailures(ctx context.Context, country model.Country) (int64, error)
	StatusCounts(ctx context.Context) ([]StatusCount, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
