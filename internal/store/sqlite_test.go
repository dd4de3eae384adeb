package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordcharge/resolve-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedFacility(t *testing.T, s *SQLiteStore, name string, country model.Country, street string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO facilities (id, name, country, street, city) VALUES (?, ?, ?, ?, ?)`,
		id, name, string(country), street, "Oslo",
	)
	require.NoError(t, err)
	return id
}

func TestSQLiteStore_Backlogs(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	noAddress := seedFacility(t, s, "Solsiden Borettslag", model.CountryNorway, "")
	withAddress := seedFacility(t, s, "Alvim Borettslag", model.CountryNorway, "Alvimveien 1")
	swedish := seedFacility(t, s, "Brf Eken", model.CountrySweden, "")

	unmatched, err := s.UnmatchedFacilities(ctx, "", 100)
	require.NoError(t, err)
	require.Len(t, unmatched, 2)

	unmatchedNO, err := s.UnmatchedFacilities(ctx, model.CountryNorway, 100)
	require.NoError(t, err)
	require.Len(t, unmatchedNO, 1)
	assert.Equal(t, noAddress, unmatchedNO[0].ID)

	ungeocoded, err := s.UngeocodedFacilities(ctx, "", 100)
	require.NoError(t, err)
	require.Len(t, ungeocoded, 1)
	assert.Equal(t, withAddress, ungeocoded[0].ID)

	unmatchedSE, err := s.UnmatchedFacilities(ctx, model.CountrySweden, 100)
	require.NoError(t, err)
	require.Len(t, unmatchedSE, 1)
	assert.Equal(t, swedish, unmatchedSE[0].ID)
}

func TestSQLiteStore_RecordMatch_MovesFacilityToGeocodeBacklog(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	id := seedFacility(t, s, "Solsiden Borettslag", model.CountryNorway, "")

	err := s.RecordMatch(ctx, id, "acc-42", "Beddingen 10", "Trondheim", "7014", "exact", 1.0)
	require.NoError(t, err)

	unmatched, err := s.UnmatchedFacilities(ctx, model.CountryNorway, 100)
	require.NoError(t, err)
	assert.Empty(t, unmatched)

	ungeocoded, err := s.UngeocodedFacilities(ctx, model.CountryNorway, 100)
	require.NoError(t, err)
	require.Len(t, ungeocoded, 1)

	f := ungeocoded[0]
	assert.Equal(t, id, f.ID)
	assert.Equal(t, "acc-42", f.CRMAccountID)
	assert.Equal(t, "Beddingen 10", f.Street)
	assert.Equal(t, model.MatchMatched, f.MatchStatus)
	assert.Equal(t, "exact", f.MatchTier)
	require.NotNil(t, f.MatchConfidence)
	assert.Equal(t, 1.0, *f.MatchConfidence)
}

func TestSQLiteStore_RecordMatchFailure_ExcludedAndIdempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	id := seedFacility(t, s, "Ukjent Sameie", model.CountryNorway, "")

	require.NoError(t, s.RecordMatchFailure(ctx, id))
	require.NoError(t, s.RecordMatchFailure(ctx, id))

	unmatched, err := s.UnmatchedFacilities(ctx, "", 100)
	require.NoError(t, err)
	assert.Empty(t, unmatched)
}

func TestSQLiteStore_RecordGeocode(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	id := seedFacility(t, s, "Alvim Borettslag", model.CountryNorway, "Alvimveien 1")

	err := s.RecordGeocode(ctx, id, 59.27, 11.08, "kartverket", 0.95)
	require.NoError(t, err)

	ungeocoded, err := s.UngeocodedFacilities(ctx, "", 100)
	require.NoError(t, err)
	assert.Empty(t, ungeocoded)

	var f model.Facility
	row := s.db.QueryRow(`SELECT geocode_status, geocode_provider, latitude, longitude FROM facilities WHERE id = ?`, id)
	require.NoError(t, row.Scan(&f.GeocodeStatus, &f.GeocodeProvider, &f.Latitude, &f.Longitude))
	assert.Equal(t, model.GeocodeSuccess, f.GeocodeStatus)
	assert.Equal(t, "kartverket", f.GeocodeProvider)
	require.True(t, f.HasCoordinates())
	assert.Equal(t, 59.27, *f.Latitude)
	assert.NoError(t, f.Validate())
}

func TestSQLiteStore_RecordGeocodeFailure_NullsCoordinates(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	id := seedFacility(t, s, "Alvim Borettslag", model.CountryNorway, "Alvimveien 1")
	require.NoError(t, s.RecordGeocode(ctx, id, 59.27, 11.08, "kartverket", 0.95))
	require.NoError(t, s.RecordGeocodeFailure(ctx, id))

	var f model.Facility
	row := s.db.QueryRow(`SELECT geocode_status, latitude, longitude FROM facilities WHERE id = ?`, id)
	require.NoError(t, row.Scan(&f.GeocodeStatus, &f.Latitude, &f.Longitude))
	assert.Equal(t, model.GeocodeFailed, f.GeocodeStatus)
	assert.False(t, f.HasCoordinates())
	assert.NoError(t, f.Validate())
}

func TestSQLiteStore_ResetGeocodeFailures(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	id := seedFacility(t, s, "Alvim Borettslag", model.CountryNorway, "Alvimveien 1")
	require.NoError(t, s.RecordGeocodeFailure(ctx, id))

	n, err := s.ResetGeocodeFailures(ctx, model.CountryNorway)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ungeocoded, err := s.UngeocodedFacilities(ctx, "", 100)
	require.NoError(t, err)
	require.Len(t, ungeocoded, 1)
	assert.Equal(t, id, ungeocoded[0].ID)

	// Second reset has nothing to do.
	n, err = s.ResetGeocodeFailures(ctx, model.CountryNorway)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestSQLiteStore_ResetMatchFailures_CountryScoped(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	noID := seedFacility(t, s, "Ukjent Sameie", model.CountryNorway, "")
	seID := seedFacility(t, s, "Brf Eken", model.CountrySweden, "")
	require.NoError(t, s.RecordMatchFailure(ctx, noID))
	require.NoError(t, s.RecordMatchFailure(ctx, seID))

	n, err := s.ResetMatchFailures(ctx, model.CountrySweden)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unmatched, err := s.UnmatchedFacilities(ctx, "", 100)
	require.NoError(t, err)
	require.Len(t, unmatched, 1)
	assert.Equal(t, seID, unmatched[0].ID)
}

func TestSQLiteStore_StatusCounts(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	seedFacility(t, s, "Solsiden Borettslag", model.CountryNorway, "")
	matched := seedFacility(t, s, "Alvim Borettslag", model.CountryNorway, "")
	require.NoError(t, s.RecordMatch(ctx, matched, "acc-1", "Alvimveien 1", "Sarpsborg", "1722", "normalized", 0.8))
	require.NoError(t, s.RecordGeocode(ctx, matched, 59.27, 11.08, "kartverket", 0.95))
	seedFacility(t, s, "Brf Eken", model.CountrySweden, "")

	counts, err := s.StatusCounts(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 2)

	no := counts[0]
	assert.Equal(t, model.CountryNorway, no.Country)
	assert.Equal(t, int64(2), no.Total)
	assert.Equal(t, int64(1), no.MatchPending)
	assert.Equal(t, int64(1), no.Matched)
	assert.Equal(t, int64(1), no.Geocoded)

	se := counts[1]
	assert.Equal(t, model.CountrySweden, se.Country)
	assert.Equal(t, int64(1), se.Total)
	assert.Equal(t, int64(1), se.MatchPending)
}

func TestSQLiteStore_RecordMatch_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	err := s.RecordMatch(context.Background(), "missing", "acc-1", "", "", "", "exact", 1.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "facility not found")
}
