/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements loyalty.Store and loyalty.TxStore using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements exist for the transactions table.
  Corrections are offsetting transactions only.

PROFILE CAS:
  The profiles summary row carries a version column. SaveProfile inserts
  at version 1 and otherwise updates WHERE version = new-1; zero rows
  affected means a concurrent writer won and the error wraps
  loyalty.ErrConflict.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers
  don't block, single writer at a time, better crash recovery.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety around the single SQLite writer.
  With PostgreSQL, database-level concurrency control handles this
  instead.

USAGE:
  st, err := sqlite.New("./data/loyalty.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()
  svc := loyalty.NewService(st, tiers, benefits)

SEE ALSO:
  - loyalty/store.go: Interface definitions
  - loyalty/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/loyalty-engine/loyalty"
)

// Store implements loyalty.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		delta INTEGER NOT NULL,
		kind TEXT NOT NULL,
		source TEXT NOT NULL,
		description TEXT,
		reference_id TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	-- History pages and replay both walk this index
	CREATE INDEX IF NOT EXISTS idx_transactions_user_created
		ON transactions(user_id, created_at DESC, id DESC);

	CREATE INDEX IF NOT EXISTS idx_transactions_reference
		ON transactions(reference_id) WHERE reference_id IS NOT NULL;

	CREATE INDEX IF NOT EXISTS idx_transactions_kind
		ON transactions(kind);

	-- Profiles (materialized balance summary, CAS via version)
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		tier TEXT NOT NULL,
		lifetime_points INTEGER NOT NULL DEFAULT 0,
		current_balance INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTION LOG (loyalty.Store interface)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	execer
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AppendTransaction adds a transaction to the ledger.
func (s *Store) AppendTransaction(ctx context.Context, tx loyalty.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTransaction(ctx, s.db, tx)
}

func appendTransaction(ctx context.Context, db execer, tx loyalty.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, user_id, delta, kind, source, description, reference_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		tx.ID,
		tx.UserID,
		tx.Delta,
		tx.Kind,
		tx.Source,
		tx.Description,
		nullString(tx.ReferenceID),
		nullString(tx.CreatedBy),
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// TransactionsByUser returns a page of transactions, newest first.
func (s *Store) TransactionsByUser(ctx context.Context, userID loyalty.UserID, limit, offset int) ([]loyalty.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionsByUser(ctx, s.db, userID, limit, offset)
}

func transactionsByUser(ctx context.Context, db querier, userID loyalty.UserID, limit, offset int) ([]loyalty.Transaction, error) {
	query := `
		SELECT id, user_id, delta, kind, source, description, reference_id, created_by, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	return queryTransactions(ctx, db, query, userID, limit, offset)
}

// TransactionsForReplay returns all transactions, oldest first.
func (s *Store) TransactionsForReplay(ctx context.Context, userID loyalty.UserID) ([]loyalty.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionsForReplay(ctx, s.db, userID)
}

func transactionsForReplay(ctx context.Context, db querier, userID loyalty.UserID) ([]loyalty.Transaction, error) {
	query := `
		SELECT id, user_id, delta, kind, source, description, reference_id, created_by, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at ASC, id ASC
	`
	return queryTransactions(ctx, db, query, userID)
}

func queryTransactions(ctx context.Context, db querier, query string, args ...any) ([]loyalty.Transaction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []loyalty.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (loyalty.Transaction, error) {
	var (
		tx          loyalty.Transaction
		description sql.NullString
		referenceID sql.NullString
		createdBy   sql.NullString
		createdAt   string
	)

	err := rows.Scan(
		&tx.ID, &tx.UserID, &tx.Delta, &tx.Kind, &tx.Source,
		&description, &referenceID, &createdBy, &createdAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Description = description.String
	tx.ReferenceID = referenceID.String
	tx.CreatedBy = createdBy.String
	tx.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return tx, nil
}

// =============================================================================
// PROFILE SUMMARY (loyalty.Store interface)
// =============================================================================

// GetProfile returns the summary row, or (nil, nil) when absent.
func (s *Store) GetProfile(ctx context.Context, userID loyalty.UserID) (*loyalty.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProfile(ctx, s.db, userID)
}

func getProfile(ctx context.Context, db querier, userID loyalty.UserID) (*loyalty.Profile, error) {
	query := `
		SELECT user_id, tier, lifetime_points, current_balance, version, created_at, updated_at
		FROM profiles
		WHERE user_id = ?
	`

	var (
		p         loyalty.Profile
		createdAt string
		updatedAt string
	)
	err := db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Tier, &p.LifetimePoints, &p.CurrentBalance, &p.Version,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &p, nil
}

// SaveProfile upserts the summary row with an optimistic version check.
func (s *Store) SaveProfile(ctx context.Context, p loyalty.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveProfile(ctx, s.db, p)
}

func saveProfile(ctx context.Context, db execer, p loyalty.Profile) error {
	if p.Version == 1 {
		query := `
			INSERT INTO profiles (user_id, tier, lifetime_points, current_balance, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		_, err := db.ExecContext(ctx, query,
			p.UserID, p.Tier, p.LifetimePoints, p.CurrentBalance, p.Version,
			p.CreatedAt.UTC().Format(time.RFC3339Nano),
			p.UpdatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("profile %s already exists: %w", p.UserID, loyalty.ErrConflict)
			}
			return fmt.Errorf("failed to insert profile: %w", err)
		}
		return nil
	}

	query := `
		UPDATE profiles
		SET tier = ?, lifetime_points = ?, current_balance = ?, version = ?, updated_at = ?
		WHERE user_id = ? AND version = ?
	`
	res, err := db.ExecContext(ctx, query,
		p.Tier, p.LifetimePoints, p.CurrentBalance, p.Version,
		p.UpdatedAt.UTC().Format(time.RFC3339Nano),
		p.UserID, p.Version-1,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("profile %s not at version %d: %w", p.UserID, p.Version-1, loyalty.ErrConflict)
	}
	return nil
}

// Users returns every user ID with a summary row. The reconciliation
// verifier walks this list; it is not part of the core store interface.
func (s *Store) Users(ctx context.Context) ([]loyalty.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []loyalty.UserID
	for rows.Next() {
		var id loyalty.UserID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (loyalty.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store loyalty.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore is the transaction-scoped view handed to WithTx callbacks.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) AppendTransaction(ctx context.Context, tx loyalty.Transaction) error {
	return appendTransaction(ctx, t.tx, tx)
}

func (t *txStore) TransactionsByUser(ctx context.Context, userID loyalty.UserID, limit, offset int) ([]loyalty.Transaction, error) {
	return transactionsByUser(ctx, t.tx, userID, limit, offset)
}

func (t *txStore) TransactionsForReplay(ctx context.Context, userID loyalty.UserID) ([]loyalty.Transaction, error) {
	return transactionsForReplay(ctx, t.tx, userID)
}

func (t *txStore) GetProfile(ctx context.Context, userID loyalty.UserID) (*loyalty.Profile, error) {
	return getProfile(ctx, t.tx, userID)
}

func (t *txStore) SaveProfile(ctx context.Context, p loyalty.Profile) error {
	return saveProfile(ctx, t.tx, p)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
