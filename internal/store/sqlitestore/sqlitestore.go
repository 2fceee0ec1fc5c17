package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"repomatch/internal/metrics"
	"repomatch/internal/model"
)

// AccessError wraps a failure reading from or writing to the store.
type AccessError struct {
	Op  string
	Err error
}

func (e *AccessError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *AccessError) Unwrap() error { return e.Err }

func accessErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AccessError{Op: op, Err: err}
}

// DB wraps a SQLite database holding the repositories table.
type DB struct{ sql *sql.DB }

// Open opens the database at path. Use ":memory:" for a private in-memory
// database; the pool is pinned to one connection so it is not lost.
func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, accessErr("open", err)
	}
	if path == ":memory:" {
		d.SetMaxOpenConns(1)
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, accessErr("open", err)
	}
	return &DB{sql: d}, nil
}

func (d *DB) Close() error { return d.sql.Close() }

// CreateSchema creates the repositories table if missing. Production
// databases are owned by the ingestion side; this exists for local fixtures.
func (d *DB) CreateSchema(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS repositories (
	  owner_username TEXT NOT NULL,
	  full_name TEXT NOT NULL,
	  description TEXT,
	  language TEXT,
	  topics TEXT,
	  stars INTEGER NOT NULL DEFAULT 0,
	  created_at TEXT NOT NULL,
	  UNIQUE(owner_username, full_name)
	);
	CREATE INDEX IF NOT EXISTS idx_repos_owner ON repositories(owner_username);
	CREATE INDEX IF NOT EXISTS idx_repos_lang_stars ON repositories(language, stars);
	`)
	return accessErr("create schema", err)
}

// PutRepository inserts or replaces one record.
func (d *DB) PutRepository(ctx context.Context, r model.RepositoryRecord) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO repositories(owner_username, full_name, description, language, topics, stars, created_at)
	VALUES(?,?,?,?,?,?,?)
	ON CONFLICT(owner_username, full_name) DO UPDATE SET
	  description=excluded.description, language=excluded.language, topics=excluded.topics,
	  stars=excluded.stars, created_at=excluded.created_at`,
		r.OwnerUsername, r.FullName, r.Description, r.Language, r.Topics, r.Stars, r.CreatedAt.UTC().Format(time.RFC3339Nano))
	return accessErr("put repository", err)
}

const selectColumns = `owner_username, full_name, description, language, topics, stars, CAST(created_at AS TEXT)`

// OwnedRepos returns every repository attributed to username, in insertion order.
func (d *DB) OwnedRepos(ctx context.Context, username string) ([]model.RepositoryRecord, error) {
	const op = "owned repos"
	metrics.IncStoreQuery(op)
	rows, err := d.sql.QueryContext(ctx, `SELECT `+selectColumns+` FROM repositories WHERE owner_username = ? ORDER BY rowid`, username)
	if err != nil {
		return nil, accessErr(op, err)
	}
	return scanRecords(op, rows)
}

// CandidateRepos returns repositories not owned by username whose full name
// does not match any of username's own full names. The name match ignores
// the owner, so a same-named repository elsewhere is excluded too.
func (d *DB) CandidateRepos(ctx context.Context, username string) ([]model.RepositoryRecord, error) {
	const op = "candidate repos"
	metrics.IncStoreQuery(op)
	rows, err := d.sql.QueryContext(ctx, `SELECT `+selectColumns+` FROM repositories
	WHERE owner_username != ? AND full_name NOT IN (
	  SELECT full_name FROM repositories WHERE owner_username = ?
	)
	ORDER BY rowid`, username, username)
	if err != nil {
		return nil, accessErr(op, err)
	}
	return scanRecords(op, rows)
}

// CandidatesByLanguage returns up to limit candidates (same exclusion as
// CandidateRepos) whose language equals language, most starred first. A NULL
// language matches "".
func (d *DB) CandidatesByLanguage(ctx context.Context, username, language string, limit int) ([]model.RepositoryRecord, error) {
	const op = "candidates by language"
	if limit <= 0 {
		return nil, nil
	}
	metrics.IncStoreQuery(op)
	rows, err := d.sql.QueryContext(ctx, `SELECT `+selectColumns+` FROM repositories
	WHERE owner_username != ? AND COALESCE(language, '') = ?
	AND full_name NOT IN (
	  SELECT full_name FROM repositories WHERE owner_username = ?
	)
	ORDER BY stars DESC, rowid
	LIMIT ?`, username, language, username, limit)
	if err != nil {
		return nil, accessErr(op, err)
	}
	return scanRecords(op, rows)
}

// Owners lists every distinct owner, alphabetically.
func (d *DB) Owners(ctx context.Context) ([]string, error) {
	const op = "owners"
	metrics.IncStoreQuery(op)
	rows, err := d.sql.QueryContext(ctx, `SELECT DISTINCT owner_username FROM repositories ORDER BY owner_username`)
	if err != nil {
		return nil, accessErr(op, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, accessErr(op, err)
		}
		out = append(out, u)
	}
	return out, accessErr(op, rows.Err())
}

func scanRecords(op string, rows *sql.Rows) ([]model.RepositoryRecord, error) {
	defer rows.Close()
	var out []model.RepositoryRecord
	for rows.Next() {
		var r model.RepositoryRecord
		var desc, lang, topics sql.NullString
		var created string
		if err := rows.Scan(&r.OwnerUsername, &r.FullName, &desc, &lang, &topics, &r.Stars, &created); err != nil {
			return nil, accessErr(op, err)
		}
		ts, err := parseTime(created)
		if err != nil {
			return nil, accessErr(op, fmt.Errorf("%s created_at: %w", r.FullName, err))
		}
		r.CreatedAt = ts
		r.Description = nullable(desc)
		r.Language = nullable(lang)
		r.Topics = nullable(topics)
		out = append(out, r)
	}
	return out, accessErr(op, rows.Err())
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
