package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
)

// SQLiteStore persists actions and ticks to a local sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS actions (
	id TEXT PRIMARY KEY,
	ts INTEGER NOT NULL,
	borrower TEXT NOT NULL,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	amount_micros INTEGER NOT NULL,
	health_before INTEGER NOT NULL,
	health_after INTEGER NOT NULL,
	liquidity_before INTEGER NOT NULL,
	reserve_before INTEGER NOT NULL,
	yield_before INTEGER NOT NULL,
	liquidity_after INTEGER NOT NULL,
	reserve_after INTEGER NOT NULL,
	yield_after INTEGER NOT NULL,
	trigger_reason TEXT,
	rule TEXT,
	rail_ref TEXT,
	ledger_ref TEXT
);
CREATE INDEX IF NOT EXISTS idx_actions_borrower_ts ON actions(borrower, ts DESC);

CREATE TABLE IF NOT EXISTS ticks (
	id TEXT PRIMARY KEY,
	borrower TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	status TEXT NOT NULL,
	reason TEXT,
	health_bps INTEGER NOT NULL,
	volatility_pct REAL NOT NULL,
	price REAL NOT NULL,
	actions_run INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ticks_borrower_ts ON ticks(borrower, started_at DESC);
`

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveAction persists one action log entry.
func (s *SQLiteStore) SaveAction(e models.ActionLogEntry) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO actions (
			id, ts, borrower, kind, status, amount_micros,
			health_before, health_after,
			liquidity_before, reserve_before, yield_before,
			liquidity_after, reserve_after, yield_after,
			trigger_reason, rule, rail_ref, ledger_ref
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UnixMilli(), e.BorrowerID, string(e.Kind), string(e.Status), e.Amount.Micros(),
		e.HealthBefore, e.HealthAfter,
		e.BucketsBefore.Liquidity.Micros(), e.BucketsBefore.Reserve.Micros(), e.BucketsBefore.Yield.Micros(),
		e.BucketsAfter.Liquidity.Micros(), e.BucketsAfter.Reserve.Micros(), e.BucketsAfter.Yield.Micros(),
		e.Trigger, e.Rule, e.RailRef, e.LedgerRef)
	if err != nil {
		return fmt.Errorf("failed to save action: %w", err)
	}
	return nil
}

// RecentActions returns up to limit actions for a borrower, newest first.
func (s *SQLiteStore) RecentActions(borrowerID string, limit int) ([]models.ActionLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, ts, borrower, kind, status, amount_micros,
			health_before, health_after,
			liquidity_before, reserve_before, yield_before,
			liquidity_after, reserve_after, yield_after,
			trigger_reason, rule, rail_ref, ledger_ref
		FROM actions WHERE borrower = ? ORDER BY ts DESC LIMIT ?`, borrowerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var out []models.ActionLogEntry
	for rows.Next() {
		var e models.ActionLogEntry
		var ts, amount, lb, rb, yb, la, ra, ya int64
		var kind, status string
		if err := rows.Scan(&e.ID, &ts, &e.BorrowerID, &kind, &status, &amount,
			&e.HealthBefore, &e.HealthAfter,
			&lb, &rb, &yb, &la, &ra, &ya,
			&e.Trigger, &e.Rule, &e.RailRef, &e.LedgerRef); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts)
		e.Kind = models.ActionKind(kind)
		e.Status = models.ActionStatus(status)
		e.Amount = money.FromMicros(amount)
		e.BucketsBefore = models.BucketBalances{
			Liquidity: money.FromMicros(lb), Reserve: money.FromMicros(rb), Yield: money.FromMicros(yb),
		}
		e.BucketsAfter = models.BucketBalances{
			Liquidity: money.FromMicros(la), Reserve: money.FromMicros(ra), Yield: money.FromMicros(ya),
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveTick persists one tick record.
func (s *SQLiteStore) SaveTick(r models.TickRecord) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO ticks (
			id, borrower, started_at, finished_at, status, reason,
			health_bps, volatility_pct, price, actions_run
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.BorrowerID, r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(),
		string(r.Status), r.Reason, r.HealthBps, r.VolatilityPct, r.Price, r.ActionsRun)
	if err != nil {
		return fmt.Errorf("failed to save tick: %w", err)
	}
	return nil
}

// LastTick returns the most recent tick for a borrower, or nil.
func (s *SQLiteStore) LastTick(borrowerID string) (*models.TickRecord, error) {
	ticks, err := s.RecentTicks(borrowerID, 1)
	if err != nil {
		return nil, err
	}
	if len(ticks) == 0 {
		return nil, nil
	}
	return &ticks[0], nil
}

// RecentTicks returns up to limit ticks for a borrower, newest first.
func (s *SQLiteStore) RecentTicks(borrowerID string, limit int) ([]models.TickRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, borrower, started_at, finished_at, status, reason,
			health_bps, volatility_pct, price, actions_run
		FROM ticks WHERE borrower = ? ORDER BY started_at DESC LIMIT ?`, borrowerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticks: %w", err)
	}
	defer rows.Close()

	var out []models.TickRecord
	for rows.Next() {
		var r models.TickRecord
		var started, finished int64
		var status string
		if err := rows.Scan(&r.ID, &r.BorrowerID, &started, &finished, &status, &r.Reason,
			&r.HealthBps, &r.VolatilityPct, &r.Price, &r.ActionsRun); err != nil {
			return nil, fmt.Errorf("failed to scan tick: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		r.Status = models.AgentStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
