package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/bootstobeats/stepfinder/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
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
CREATE TABLE IF NOT EXISTS searches (
	id         TEXT PRIMARY KEY,
	request    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	outcome    TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS outcome_cache (
	id          TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL UNIQUE,
	outcome     TEXT NOT NULL,
	cached_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_searches_status ON searches(status);
CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at);
CREATE INDEX IF NOT EXISTS idx_outcome_cache_fingerprint ON outcome_cache(fingerprint);
CREATE INDEX IF NOT EXISTS idx_outcome_cache_expires_at ON outcome_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSearch(ctx context.Context, req model.SearchRequest) (*model.Search, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal request")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO searches (id, request, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(reqJSON), string(model.SearchStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert search")
	}

	return &model.Search{
		ID:        id,
		Request:   req,
		Status:    model.SearchStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateSearchStatus(ctx context.Context, searchID string, status model.SearchStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE searches SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), searchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update search status %s", searchID)
	}
	return checkRowsAffected(res, "search", searchID)
}

func (s *SQLiteStore) CompleteSearch(ctx context.Context, searchID string, outcome *model.SearchOutcome) error {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal outcome")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE searches SET outcome = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(outcomeJSON), string(model.SearchStatusComplete), time.Now().UTC(), searchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete search %s", searchID)
	}
	return checkRowsAffected(res, "search", searchID)
}

func (s *SQLiteStore) FailSearch(ctx context.Context, searchID string, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE searches SET error = ?, status = ?, updated_at = ? WHERE id = ?`,
		message, string(model.SearchStatusFailed), time.Now().UTC(), searchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail search %s", searchID)
	}
	return checkRowsAffected(res, "search", searchID)
}

func (s *SQLiteStore) GetSearch(ctx context.Context, searchID string) (*model.Search, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, request, status, outcome, error, created_at, updated_at FROM searches WHERE id = ?`,
		searchID,
	)
	return scanSearch(row)
}

func (s *SQLiteStore) ListSearches(ctx context.Context, filter SearchFilter) ([]model.Search, error) {
	query := `SELECT id, request, status, outcome, error, created_at, updated_at FROM searches WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Song != "" {
		query += ` AND json_extract(request, '$.song_title') LIKE ?`
		args = append(args, "%"+filter.Song+"%")
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list searches")
	}
	defer rows.Close()

	var searches []model.Search
	for rows.Next() {
		sr, err := scanSearch(rows)
		if err != nil {
			return nil, err
		}
		searches = append(searches, *sr)
	}
	return searches, eris.Wrap(rows.Err(), "sqlite: list searches iterate")
}

func (s *SQLiteStore) GetCachedOutcome(ctx context.Context, fingerprint string) (*model.SearchOutcome, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT outcome FROM outcome_cache
		 WHERE fingerprint = ? AND expires_at > datetime('now')`,
		fingerprint,
	)

	var outcomeJSON string
	err := row.Scan(&outcomeJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached outcome")
	}

	var outcome model.SearchOutcome
	if err := json.Unmarshal([]byte(outcomeJSON), &outcome); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached outcome")
	}
	return &outcome, nil
}

func (s *SQLiteStore) SetCachedOutcome(ctx context.Context, fingerprint string, outcome *model.SearchOutcome, ttl time.Duration) error {
	id := uuid.New().String()
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal outcome")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO outcome_cache (id, fingerprint, outcome, cached_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET outcome = excluded.outcome, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		id, fingerprint, string(outcomeJSON), now, expiresAt,
	)
	return eris.Wrap(err, "sqlite: set cached outcome")
}

func (s *SQLiteStore) DeleteExpiredOutcomes(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM outcome_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired outcomes")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSearch(row scannable) (*model.Search, error) {
	var sr model.Search
	var reqJSON string
	var outcomeJSON, errMsg sql.NullString

	err := row.Scan(&sr.ID, &reqJSON, &sr.Status, &outcomeJSON, &errMsg, &sr.CreatedAt, &sr.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan search")
	}

	if err := json.Unmarshal([]byte(reqJSON), &sr.Request); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal request")
	}
	if outcomeJSON.Valid && outcomeJSON.String != "" {
		sr.Outcome = &model.SearchOutcome{}
		if err := json.Unmarshal([]byte(outcomeJSON.String), sr.Outcome); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal outcome")
		}
	}
	if errMsg.Valid {
		sr.Error = errMsg.String
	}
	return &sr, nil
}
