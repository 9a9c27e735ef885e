package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite cache of resolved build plans.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS plans (
  input_hash      TEXT PRIMARY KEY,
  target          TEXT NOT NULL,
  fingerprint     TEXT NOT NULL,
  plan            TEXT NOT NULL,
  created_at      TIMESTAMP NOT NULL,
  last_used       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plans_last_used ON plans(last_used);
`

// CachedPlan is one stored plan. Plan holds the JSON encoding; the store
// does not interpret it.
type CachedPlan struct {
	InputHash   string
	Target      string
	Fingerprint string
	Plan        []byte
	CreatedAt   time.Time
	LastUsed    time.Time
}

// GetPlan returns the plan stored under hash and marks it used. A miss
// returns nil and no error.
func (s *Store) GetPlan(hash string) (*CachedPlan, error) {
	p := &CachedPlan{InputHash: hash}
	var plan string
	err := s.db.QueryRow(
		`SELECT target, fingerprint, plan, created_at, last_used FROM plans WHERE input_hash = ?`, hash,
	).Scan(&p.Target, &p.Fingerprint, &plan, &p.CreatedAt, &p.LastUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	p.Plan = []byte(plan)

	now := time.Now().UTC()
	if _, err := s.db.Exec(`UPDATE plans SET last_used = ? WHERE input_hash = ?`, now, hash); err != nil {
		return nil, fmt.Errorf("touch plan: %w", err)
	}
	p.LastUsed = now
	return p, nil
}

// PutPlan inserts or replaces the plan stored under p.InputHash.
func (s *Store) PutPlan(p *CachedPlan) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.LastUsed = now
	_, err := s.db.Exec(
		`INSERT INTO plans (input_hash, target, fingerprint, plan, created_at, last_used)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(input_hash) DO UPDATE SET
		   target = excluded.target,
		   fingerprint = excluded.fingerprint,
		   plan = excluded.plan,
		   last_used = excluded.last_used`,
		p.InputHash, p.Target, p.Fingerprint, string(p.Plan), p.CreatedAt, p.LastUsed,
	)
	if err != nil {
		return fmt.Errorf("put plan: %w", err)
	}
	return nil
}

// PrunePlans keeps the keep most recently used plans and deletes the rest.
func (s *Store) PrunePlans(keep int) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM plans WHERE input_hash NOT IN (
		   SELECT input_hash FROM plans ORDER BY last_used DESC, input_hash LIMIT ?
		 )`, max(keep, 0),
	)
	if err != nil {
		return 0, fmt.Errorf("prune plans: %w", err)
	}
	return res.RowsAffected()
}

// CountPlans returns the number of stored plans.
func (s *Store) CountPlans() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM plans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count plans: %w", err)
	}
	return n, nil
}
