package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/nordcharge/resolve-cli/internal/model"
)

// Pool is the narrow pgx surface the store needs. pgxpool.Pool satisfies
// it in production and pgxmock satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const facilityColumns = `id, name, country, street, city, postal_code, crm_account_id,
	match_status, match_tier, match_confidence,
	geocode_status, geocode_provider, geocode_confidence,
	latitude, longitude, created_at, updated_at`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot store operations.
var preparedStatements = map[string]string{
	"record_match": `UPDATE facilities
		SET crm_account_id = $2, street = $3, city = $4, postal_code = $5,
			match_status = 'matched', match_tier = $6, match_confidence = $7,
			updated_at = now()
		WHERE id = $1`,
	"record_match_failure": `UPDATE facilities
		SET match_status = 'failed', match_tier = '', match_confidence = NULL, updated_at = now()
		WHERE id = $1`,
	"record_geocode": `UPDATE facilities
		SET latitude = $2, longitude = $3, geocode_status = 'success',
			geocode_provider = $4, geocode_confidence = $5, updated_at = now()
		WHERE id = $1`,
	"record_geocode_failure": `UPDATE facilities
		SET geocode_status = 'failed', geocode_provider = '', geocode_confidence = NULL,
			latitude = NULL, longitude = NULL, updated_at = now()
		WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
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
	match_confidence   DOUBLE PRECISION,
	geocode_status     TEXT NOT NULL DEFAULT 'pending',
	geocode_provider   TEXT NOT NULL DEFAULT '',
	geocode_confidence DOUBLE PRECISION,
	latitude           DOUBLE PRECISION,
	longitude          DOUBLE PRECISION,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_facilities_match_backlog ON facilities(country, match_status);
CREATE INDEX IF NOT EXISTS idx_facilities_geocode_backlog ON facilities(country, geocode_status);
CREATE INDEX IF NOT EXISTS idx_facilities_crm_account ON facilities(crm_account_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UnmatchedFacilities(ctx context.Context, country model.Country, limit int) ([]model.Facility, error) {
	return s.backlog(ctx, `match_status = 'pending' AND street = ''`, country, limit)
}

func (s *PostgresStore) UngeocodedFacilities(ctx context.Context, country model.Country, limit int) ([]model.Facility, error) {
	return s.backlog(ctx, `geocode_status = 'pending' AND street <> ''`, country, limit)
}

func (s *PostgresStore) backlog(ctx context.Context, where string, country model.Country, limit int) ([]model.Facility, error) {
	query := `SELECT ` + facilityColumns + ` FROM facilities WHERE ` + where
	args := []any{}
	argIdx := 1

	if country != "" {
		query += fmt.Sprintf(` AND country = $%d`, argIdx)
		args = append(args, string(country))
		argIdx++
	}
	query += ` ORDER BY created_at`

	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query backlog")
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
			return nil, eris.Wrap(err, "postgres: scan facility")
		}
		facilities = append(facilities, f)
	}
	return facilities, eris.Wrap(rows.Err(), "postgres: iterate backlog")
}

func (s *PostgresStore) RecordMatch(ctx context.Context, facilityID, accountID, street, city, postalCode, tier string, confidence float64) error {
	tag, err := s.pool.Exec(ctx,
		preparedStatements["record_match"],
		facilityID, accountID, street, city, postalCode, tier, confidence,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: record match %s", facilityID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("facility not found: %s", facilityID)
	}
	return nil
}

func (s *PostgresStore) RecordMatchFailure(ctx context.Context, facilityID string) error {
	tag, err := s.pool.Exec(ctx, preparedStatements["record_match_failure"], facilityID)
	if err != nil {
		return eris.Wrapf(err, "postgres: record match failure %s", facilityID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("facility not found: %s", facilityID)
	}
	return nil
}

func (s *PostgresStore) RecordGeocode(ctx context.Context, facilityID string, lat, lon float64, provider string, confidence float64) error {
	tag, err := s.pool.Exec(ctx,
		preparedStatements["record_geocode"],
		facilityID, lat, lon, provider, confidence,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: record geocode %s", facilityID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("facility not found: %s", facilityID)
	}
	return nil
}

func (s *PostgresStore) RecordGeocodeFailure(ctx context.Context, facilityID string) error {
	tag, err := s.pool.Exec(ctx, preparedStatements["record_geocode_failure"], facilityID)
	if err != nil {
		return eris.Wrapf(err, "postgres: record geocode failure %s", facilityID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("facility not found: %s", facilityID)
	}
	return nil
}

func (s *PostgresStore) ResetMatchFailures(ctx context.Context, country model.Country) (int64, error) {
	query := `UPDATE facilities
		SET match_status = 'pending', match_tier = '', match_confidence = NULL, updated_at = now()
		WHERE match_status = 'failed'`
	args := []any{}
	if country != "" {
		query += ` AND country = $1`
		args = append(args, string(country))
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: reset match failures")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ResetGeocodeFailures(ctx context.Context, country model.Country) (int64, error) {
	query := `UPDATE facilities
		SET geocode_status = 'pending', geocode_provider = '', geocode_confidence = NULL, updated_at = now()
		WHERE geocode_status = 'failed'`
	args := []any{}
	if country != "" {
		query += ` AND country = $1`
		args = append(args, string(country))
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: reset geocode failures")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) StatusCounts(ctx context.Context) ([]StatusCount, error) {
	rows, err := s.pool.Query(ctx, `SELECT country, COUNT(*),
			COUNT(*) FILTER (WHERE match_status = 'pending'),
			COUNT(*) FILTER (WHERE match_status = 'matched'),
			COUNT(*) FILTER (WHERE match_status = 'failed'),
			COUNT(*) FILTER (WHERE match_status = 'manual'),
			COUNT(*) FILTER (WHERE geocode_status = 'pending'),
			COUNT(*) FILTER (WHERE geocode_status = 'success'),
			COUNT(*) FILTER (WHERE geocode_status = 'failed'),
			COUNT(*) FILTER (WHERE geocode_status = 'manual')
		FROM facilities GROUP BY country ORDER BY country`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: status counts")
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
			return nil, eris.Wrap(err, "postgres: scan status counts")
		}
		counts = append(counts, c)
	}
	return counts, eris.Wrap(rows.Err(), "postgres: iterate status counts")
}
