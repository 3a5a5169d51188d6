package loader

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"stocketl/internal/model"
)

// TableName is the destination table, recreated on every load.
const TableName = "stock_data"

// LoadError reports a failed load. The destination table is then either
// absent, as it was, or present and empty; never partially populated.
type LoadError struct {
	Op  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load: %s: %v", e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Store replaces the destination table in a relational database.
type Store struct {
	db      *sql.DB
	dialect dialect
	mu      sync.Mutex
}

// Open opens the destination without connecting. For sqlite drivers the
// parent directory of a file DSN is created.
func Open(driver, dsn string) (*Store, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}
	if d.sqlite {
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return &Store{db: db, dialect: d}, nil
}

// NewStore wraps an existing handle; driver names its dialect.
func NewStore(db *sql.DB, driver string) (*Store, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, dialect: d}, nil
}

func ensureDir(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, ":memory:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database dir %s: %w", dir, err)
	}
	return nil
}

// DB exposes the underlying handle for read-side consumers.
func (s *Store) DB() *sql.DB { return s.db }

// Replace drops and recreates the destination table, then inserts every row
// in a single transaction. It returns the number of rows loaded.
func (s *Store) Replace(ctx context.Context, rows []model.EnrichedRow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("[INFO] loading %d rows into %q", len(rows), TableName)

	if s.dialect.sqlite {
		if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			return 0, &LoadError{Op: "set WAL mode", Err: err}
		}
	}
	if err := s.recreate(ctx); err != nil {
		return 0, &LoadError{Op: "recreate table", Err: err}
	}
	if err := s.insert(ctx, rows); err != nil {
		return 0, &LoadError{Op: "insert rows", Err: err}
	}

	log.Printf("[INFO] successfully loaded %d rows into %q", len(rows), TableName)
	return len(rows), nil
}

func (s *Store) recreate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+TableName); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.dialect.createTable(TableName)); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Printf("[INFO] recreated table %q", TableName)
	return nil
}

func (s *Store) insert(ctx context.Context, rows []model.EnrichedRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.dialect.insert(TableName, model.Columns))
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.Date.Format(model.DateLayout), r.Ticker,
			r.Open, r.High, r.Low, r.Close, volumeValue(r.Volume),
			r.DailyReturn, r.MA7, r.MA30, r.Volatility,
		)
		if err != nil {
			return fmt.Errorf("row (%s, %s): %w", r.Date.Format(model.DateLayout), r.Ticker, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// volumeValue stores integral volumes as integers.
func volumeValue(v float64) any {
	if v == math.Trunc(v) && math.Abs(v) < 1<<62 {
		return int64(v)
	}
	return v
}

// Close closes the database handle.
func (s *Store) Close() error {
	log.Println("[INFO] closing destination store")
	return s.db.Close()
}
