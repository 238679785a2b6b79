package library

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Database is the store handle every circulation operation goes through.
// Each public mutating method runs as one SQLite transaction, so the
// availability checks and the writes they gate can never interleave with
// another caller's.
type Database struct {
	db  *sql.DB
	log *zap.Logger
}

// NewDatabase opens (or creates) the SQLite database at dbPath and brings the
// schema up to date.
func NewDatabase(dbPath string, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("database ready", zap.String("path", dbPath))
	return &Database{db: db, log: logger}, nil
}

// Close closes the underlying connection.
func (d *Database) Close() error { return d.db.Close() }

func applyMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Shared row lookups
// ---------------------------------------------------------------------------

// querier is satisfied by both *sql.DB and *sql.Tx, so the derived counts
// below can serve standalone reads and the checks inside a transaction alike.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func bookStock(ctx context.Context, q querier, isbn int64) (int, error) {
	var stock int
	err := q.QueryRowContext(ctx, `SELECT stock FROM books WHERE isbn = ?`, isbn).Scan(&stock)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, storageErr("book lookup", err)
	}
	return stock, nil
}

func getMember(ctx context.Context, q querier, memberID int64) (*Member, error) {
	var m Member
	err := q.QueryRowContext(ctx,
		`SELECT id, name, fines, rewards, borrow_limit FROM users WHERE id = ?`, memberID).
		Scan(&m.ID, &m.Name, &m.Fines, &m.Rewards, &m.BorrowLimit)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("member lookup", err)
	}
	return &m, nil
}

func openLoanCountForBook(ctx context.Context, q querier, isbn int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE isbn = ? AND returned = 0`, isbn).Scan(&n)
	if err != nil {
		return 0, storageErr("open loan count", err)
	}
	return n, nil
}

func openLoanCountForMember(ctx context.Context, q querier, memberID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE user_id = ? AND returned = 0`, memberID).Scan(&n)
	if err != nil {
		return 0, storageErr("open loan count", err)
	}
	return n, nil
}

func hasOpenLoan(ctx context.Context, q querier, isbn, memberID int64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM records WHERE isbn = ? AND user_id = ? AND returned = 0)`,
		isbn, memberID).Scan(&exists)
	if err != nil {
		return false, storageErr("open loan check", err)
	}
	return exists, nil
}

// availableCopies derives shelf availability as owned stock minus open loans.
// Callers that go on to write must run it on their own transaction.
func availableCopies(ctx context.Context, q querier, isbn int64) (int, error) {
	stock, err := bookStock(ctx, q, isbn)
	if err != nil {
		return 0, err
	}
	open, err := openLoanCountForBook(ctx, q, isbn)
	if err != nil {
		return 0, err
	}
	return stock - open, nil
}
