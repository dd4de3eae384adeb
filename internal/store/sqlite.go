package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/nordcharge/resolve-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It serves local
// and single-operator setups where running PostgreSQL is overkill.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS facilities (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	country            TEXT NOT NULL,
	street             TEXT NOT NULL DEFAULT '',
	city               TEXT NOT NULL DEFAULT '',
	postal_code        TEXT NOT NULL DEFAULT '',
	crm_account_id     TEXT NOT NULL DEFAULT '',
	match_status       TEXT NOT NULL DEFAULT 'pending',
	match_tier         TEXT NOT NULL DEFAULT '',
	match_confidence   REAL,
	geocode_status     TEXT NOT NULL DEFAULT 'pending',
	geocode_provider   TEXT NOT NULL DEFAULT '',
	geocode_confidence REAL,
	latitude           REAL,
	longitude          REAL,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_facilities_match_backlog ON facilities(country, match_status);
CREATE INDEX IF NOT EXISTS idx_facilities_geocode_backlog ON facilities(country, geocode_status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UnmatchedFacilities(ctx context.Context, country model.Country, limit int) ([]model.Facility, error) {
	return s.backlog(ctx, `match_status = 'pending' AND street = ''`, country, limit)
}

func (s *SQLiteStore) UngeocodedFacilities(ctx context.Context, country model.Country, limit int) ([]model.Facility, error) {
	return s.backlog(ctx, `geocode_status = 'pending' AND street <> ''`, country, limit)
}

func (s *SQLiteStore) backlog(ctx context.Context, where string, country model.Country, limit int) ([]model.Facility, error) {
	query := `SELECT ` + facilityColumns + ` FROM facilities WHERE ` + where
	args := []any{}

	if country != "" {
		query += ` AND country = ?`
		args = append(args, string(country))
	}
	query += ` ORDER BY created_at LIMIT ?`

	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query backlog")
	}
	defer rows.Close()

	var facilities []model.Facility
	for rows.Next() {
		var f model.Facility
		if err := rows.Scan(
			&f.ID, &f.Name, &f.Country, &f.Street, &f.City, &f.PostalCode, &f.CRMAccountID,
			&f.MatchStatus, &f.MatchTier, &f.MatchConfidence,
			&f.GeocodeStatus, &f.GeocodeProvider, &f.GeocodeConfidence,
			&f.Latitude, &f.Longitude, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan facility")
		}
		facilities = append(facilities, f)
	}
	return facilities, eris.Wrap(rows.Err(), "sqlite: iterate backlog")
}

func (s *SQLiteStore) RecordMatch(ctx context.Context, facilityID, accountID, street, city, postalCode, tier string, confidence float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE facilities
		SET crm_account_id = ?, street = ?, city = ?, postal_code = ?,
			match_status = 'matched', match_tier = ?, match_confidence = ?,
			updated_at = datetime('now')
		WHERE id = ?`,
		accountID, street, city, postalCode, tier, confidence, facilityID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record match %s", facilityID)
	}
	return checkRowsAffected(res, facilityID)
}

func (s *SQLiteStore) RecordMatchFailure(ctx context.Context, facilityID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE facilities
		SET match_status = 'failed', match_tier = '', match_confidence = NULL,
			updated_at = datetime('now')
		WHERE id = ?`,
		facilityID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record match failure %s", facilityID)
	}
	return checkRowsAffected(res, facilityID)
}

func (s *SQLiteStore) RecordGeocode(ctx context.Context, facilityID string, lat, lon float64, provider string, confidence float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE facilities
		SET latitude = ?, longitude = ?, geocode_status = 'success',
			geocode_provider = ?, geocode_confidence = ?,
			updated_at = datetime('now')
		WHERE id = ?`,
		lat, lon, provider, confidence, facilityID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record geocode %s", facilityID)
	}
	return checkRowsAffected(res, facilityID)
}

func (s *SQLiteStore) RecordGeocodeFailure(ctx context.Context, facilityID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE facilities
		SET geocode_status = 'failed', geocode_provider = '', geocode_confidence = NULL,
			latitude = NULL, longitude = NULL, updated_at = datetime('now')
		WHERE id = ?`,
		facilityID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record geocode failure %s", facilityID)
	}
	return checkRowsAffected(res, facilityID)
}

func (s *SQLiteStore) ResetMatchFailures(ctx context.Context, country model.Country) (int64, error) {
	query := `UPDATE facilities
		SET match_status = 'pending', match_tier = '', match_confidence = NULL,
			updated_at = datetime('now')
		WHERE match_status = 'failed'`
	args := []any{}
	if country != "" {
		query += ` AND country = ?`
		args = append(args, string(country))
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: reset match failures")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) ResetGeocodeFailures(ctx context.Context, country model.Country) (int64, error) {
	query := `UPDATE facilities
		SET geocode_status = 'pending', geocode_provider = '', geocode_confidence = NULL,
			updated_at = datetime('now')
		WHERE geocode_status = 'failed'`
	args := []any{}
	if country != "" {
		query += ` AND country = ?`
		args = append(args, string(country))
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: reset geocode failures")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) StatusCounts(ctx context.Context) ([]StatusCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT country, COUNT(*),
			SUM(CASE WHEN match_status = 'pending' THEN 1 ELSE 0 END),
			SUM(CASE WHEN match_status = 'matched' THEN 1 ELSE 0 END),
			SUM(CASE WHEN match_status = 'failed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN match_status = 'manual' THEN 1 ELSE 0 END),
			SUM(CASE WHEN geocode_status = 'pending' THEN 1 ELSE 0 END),
			SUM(CASE WHEN geocode_status = 'success' THEN 1 ELSE 0 END),
			SUM(CASE WHEN geocode_status = 'failed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN geocode_status = 'manual' THEN 1 ELSE 0 END)
		FROM facilities GROUP BY country ORDER BY country`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: status counts")
	}
	defer rows.Close()

	var counts []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(
			&c.Country, &c.Total,
			&c.MatchPending, &c.Matched, &c.MatchFailed, &c.MatchManual,
			&c.GeocodePending, &c.Geocoded, &c.GeocodeFailed, &c.GeocodeManual,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status counts")
		}
		counts = append(counts, c)
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: iterate status counts")
}

// checkRowsAffected converts a zero-row update into a not-found error.
func checkRowsAffected(res sql.Result, facilityID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("facility not found: %s", facilityID)
	}
	return nil
}
