// Package duckdb stores knockoff results in DuckDB so runs can be queried
// and compared. Every row carries the id of the run that produced it.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for result storage.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create results directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id VARCHAR PRIMARY KEY,
		command VARCHAR,
		started_at TIMESTAMP,
		seed BIGINT,
		fdr DOUBLE,
		trials INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS selection_frequencies (
		run_id VARCHAR,
		label VARCHAR,
		fdr_type VARCHAR,
		snp VARCHAR,
		observed_frequency DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS null_samples (
		run_id VARCHAR,
		label VARCHAR,
		fdr_type VARCHAR,
		trial INTEGER,
		max_observed_frequency DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS p_values (
		run_id VARCHAR,
		label VARCHAR,
		fdr_type VARCHAR,
		snp VARCHAR,
		observed_frequency DOUBLE,
		p_value DOUBLE,
		uncorrected_p_value DOUBLE,
		significant BOOLEAN
	)`,
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// appendRows batch-inserts into table using the Appender API.
func (s *Store) appendRows(table string, fill func(a *goduckdb.Appender) error) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	if err := fill(appender); err != nil {
		return err
	}
	return appender.Flush()
}
