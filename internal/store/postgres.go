package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/bootstobeats/stepfinder/internal/db"
	"github.com/bootstobeats/stepfinder/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_search":        `INSERT INTO searches (id, request, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"update_search_status": `UPDATE searches SET status = $1, updated_at = $2 WHERE id = $3`,
	"complete_search":      `UPDATE searches SET outcome = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"fail_search":          `UPDATE searches SET error = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"get_search":           `SELECT id, request, status, outcome, error, created_at, updated_at FROM searches WHERE id = $1`,
	"get_cached_outcome":   `SELECT outcome FROM outcome_cache WHERE fingerprint = $1 AND expires_at > now()`,
	"set_cached_outcome":   `INSERT INTO outcome_cache (id, fingerprint, outcome, cached_at, expires_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (fingerprint) DO UPDATE SET outcome = $3, cached_at = $4, expires_at = $5`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
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

	// Prepare frequently-used statements on each new connection.
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
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	request    JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	outcome    JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS outcome_cache (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	fingerprint TEXT NOT NULL UNIQUE,
	outcome     JSONB NOT NULL,
	cached_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_searches_status ON searches(status);
CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at);
CREATE INDEX IF NOT EXISTS idx_outcome_cache_fingerprint ON outcome_cache(fingerprint);
CREATE INDEX IF NOT EXISTS idx_outcome_cache_expires_at ON outcome_cache(expires_at);
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
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateSearch(ctx context.Context, req model.SearchRequest) (*model.Search, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal request")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO searches (id, request, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, reqJSON, string(model.SearchStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert search")
	}

	return &model.Search{
		ID:        id,
		Request:   req,
		Status:    model.SearchStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateSearchStatus(ctx context.Context, searchID string, status model.SearchStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE searches SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), searchID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update search status %s", searchID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("search not found: %s", searchID)
	}
	return nil
}

func (s *PostgresStore) CompleteSearch(ctx context.Context, searchID string, outcome *model.SearchOutcome) error {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal outcome")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE searches SET outcome = $1, status = $2, updated_at = $3 WHERE id = $4`,
		outcomeJSON, string(model.SearchStatusComplete), time.Now().UTC(), searchID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete search %s", searchID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("search not found: %s", searchID)
	}
	return nil
}

func (s *PostgresStore) FailSearch(ctx context.Context, searchID string, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE searches SET error = $1, status = $2, updated_at = $3 WHERE id = $4`,
		message, string(model.SearchStatusFailed), time.Now().UTC(), searchID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail search %s", searchID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("search not found: %s", searchID)
	}
	return nil
}

func (s *PostgresStore) GetSearch(ctx context.Context, searchID string) (*model.Search, error) {
	var sr model.Search
	var reqJSON []byte
	var outcomeNull *[]byte
	var errNull *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, request, status, outcome, error, created_at, updated_at FROM searches WHERE id = $1`,
		searchID,
	).Scan(&sr.ID, &reqJSON, &sr.Status, &outcomeNull, &errNull, &sr.CreatedAt, &sr.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get search %s", searchID)
	}

	if err := json.Unmarshal(reqJSON, &sr.Request); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal request")
	}
	if outcomeNull != nil {
		sr.Outcome = &model.SearchOutcome{}
		if err := json.Unmarshal(*outcomeNull, sr.Outcome); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal outcome")
		}
	}
	if errNull != nil {
		sr.Error = *errNull
	}
	return &sr, nil
}

func (s *PostgresStore) ListSearches(ctx context.Context, filter SearchFilter) ([]model.Search, error) {
	query := `SELECT id, request, status, outcome, error, created_at, updated_at FROM searches WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Song != "" {
		query += fmt.Sprintf(` AND request->>'song_title' ILIKE $%d`, argIdx)
		args = append(args, "%"+filter.Song+"%")
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at > $%d`, argIdx)
		args = append(args, filter.CreatedAfter)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list searches")
	}
	defer rows.Close()

	var searches []model.Search
	for rows.Next() {
		var sr model.Search
		var reqJSON []byte
		var outcomeNull *[]byte
		var errNull *string

		if err := rows.Scan(&sr.ID, &reqJSON, &sr.Status, &outcomeNull, &errNull, &sr.CreatedAt, &sr.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search")
		}
		if err := json.Unmarshal(reqJSON, &sr.Request); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal request")
		}
		if outcomeNull != nil {
			sr.Outcome = &model.SearchOutcome{}
			if err := json.Unmarshal(*outcomeNull, sr.Outcome); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal outcome")
			}
		}
		if errNull != nil {
			sr.Error = *errNull
		}
		searches = append(searches, sr)
	}
	return searches, eris.Wrap(rows.Err(), "postgres: list searches iterate")
}

func (s *PostgresStore) GetCachedOutcome(ctx context.Context, fingerprint string) (*model.SearchOutcome, error) {
	var outcomeJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT outcome FROM outcome_cache
		 WHERE fingerprint = $1 AND expires_at > now()`,
		fingerprint,
	).Scan(&outcomeJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached outcome")
	}

	var outcome model.SearchOutcome
	if err := json.Unmarshal(outcomeJSON, &outcome); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached outcome")
	}
	return &outcome, nil
}

func (s *PostgresStore) SetCachedOutcome(ctx context.Context, fingerprint string, outcome *model.SearchOutcome, ttl time.Duration) error {
	id := uuid.New().String()
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal outcome")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO outcome_cache (id, fingerprint, outcome, cached_at, expires_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (fingerprint) DO UPDATE SET outcome = $3, cached_at = $4, expires_at = $5`,
		id, fingerprint, outcomeJSON, now, expiresAt,
	)
	return eris.Wrap(err, "postgres: set cached outcome")
}

func (s *PostgresStore) DeleteExpiredOutcomes(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM outcome_cache WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired outcomes")
	}
	return int(tag.RowsAffected()), nil
}
