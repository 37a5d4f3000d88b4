package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"
)

// SQLite stores claims in a local SQLite database. The claim body is kept as JSON,
// status and creation time are duplicated into columns for filtering and ordering.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS claims (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    body TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claims_created ON claims(created_at);
CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);
`

// NewSQLite opens or creates the database file at path
func NewSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create database directory", goerr.V("path", path))
	}
	return openSQLite(path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
}

// NewSQLiteMemory opens an in-memory database, mainly for tests
func NewSQLiteMemory() (*SQLite, error) {
	return openSQLite(":memory:")
}

func openSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite", goerr.V("dsn", dsn))
	}
	// :memory: databases are per-connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to migrate sqlite schema")
	}
	return &SQLite{db: db}, nil
}

func (r *SQLite) Close() error {
	return r.db.Close()
}

func (r *SQLite) SaveClaim(ctx context.Context, claim *model.Claim) error {
	if claim == nil || claim.ID == "" {
		return goerr.Wrap(model.ErrInputMissing, "claim ID is required")
	}

	body, err := json.Marshal(claim)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal claim", goerr.V("claim_id", claim.ID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `
INSERT INTO claims (id, status, created_at, body) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET status = excluded.status, created_at = excluded.created_at, body = excluded.body`,
		string(claim.ID), string(claim.Status), claim.CreatedAt.UnixNano(), string(body))
	if err != nil {
		return goerr.Wrap(err, "failed to save claim", goerr.V("claim_id", claim.ID))
	}
	return nil
}

func (r *SQLite) GetClaim(ctx context.Context, id model.ClaimID) (*model.Claim, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM claims WHERE id = ?`, string(id)).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get claim", goerr.V("claim_id", id))
	}

	var claim model.Claim
	if err := json.Unmarshal([]byte(body), &claim); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal claim", goerr.V("claim_id", id))
	}
	return &claim, nil
}

func (r *SQLite) ListClaims(ctx context.Context, opts interfaces.ListOptions) ([]*model.Claim, error) {
	query := `SELECT body FROM claims`
	var args []any
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list claims")
	}
	defer rows.Close()

	var claims []*model.Claim
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, goerr.Wrap(err, "failed to scan claim")
		}
		var claim model.Claim
		if err := json.Unmarshal([]byte(body), &claim); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal claim")
		}
		claims = append(claims, &claim)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate claims")
	}
	return claims, nil
}

func (r *SQLite) UpdateClaimStatus(ctx context.Context, id model.ClaimID, status model.ClaimStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx, `SELECT body FROM claims WHERE id = ?`, string(id)).Scan(&body)
	if err == sql.ErrNoRows {
		return goerr.Wrap(model.ErrClaimNotFound, "claim not found", goerr.V("claim_id", id))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to get claim", goerr.V("claim_id", id))
	}

	var claim model.Claim
	if err := json.Unmarshal([]byte(body), &claim); err != nil {
		return goerr.Wrap(err, "failed to unmarshal claim", goerr.V("claim_id", id))
	}
	claim.Status = status
	claim.UpdatedAt = time.Now()

	updated, err := json.Marshal(&claim)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal claim", goerr.V("claim_id", id))
	}
	if _, err := tx.ExecContext(ctx, `UPDATE claims SET status = ?, body = ? WHERE id = ?`,
		string(status), string(updated), string(id)); err != nil {
		return goerr.Wrap(err, "failed to update claim status", goerr.V("claim_id", id))
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit status update")
	}
	return nil
}
