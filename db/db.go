package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver and placeholder style
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) driver() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// DialectFor guesses the dialect from a DSN. Postgres URLs and key=value
// strings go to lib/pq; "sqlite:" prefixes, ":memory:" and file paths to SQLite.
func DialectFor(dsn string) (Dialect, string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return Postgres, dsn
	case strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname="):
		return Postgres, dsn
	case strings.HasPrefix(dsn, "sqlite://"):
		return SQLite, strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "sqlite:"):
		return SQLite, strings.TrimPrefix(dsn, "sqlite:")
	}
	return SQLite, dsn
}

// DB wraps the database connection
type DB struct {
	conn    *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

// NewDB opens a database, checks the connection and creates the tables
func NewDB(ctx context.Context, dsn string, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dsn == "" {
		return nil, fmt.Errorf("no database connection string")
	}

	dialect, source := DialectFor(dsn)
	conn, err := sql.Open(dialect.driver(), source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == SQLite {
		// One writer at a time; an in-memory database also lives on a single connection
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, dialect: dialect, logger: logger}
	if err := db.initSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// DSNFromEnv returns DATABASE_URL, or a Postgres DSN built from the DB_*
// variables when DB_HOST is set, or "" when neither is configured
func DSNFromEnv() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	if os.Getenv("DB_HOST") == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnvOrDefault("DB_HOST", "localhost"),
		getEnvOrDefault("DB_PORT", "5432"),
		getEnvOrDefault("DB_USER", "review_scraper"),
		getEnvOrDefault("DB_PASSWORD", ""),
		getEnvOrDefault("DB_NAME", "review_scraper"),
		getEnvOrDefault("DB_SSLMODE", "disable"))
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// rebind rewrites ? placeholders to $n for Postgres
func (db *DB) rebind(query string) string {
	if db.dialect != Postgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// initSchema creates the necessary tables if they don't exist
func (db *DB) initSchema(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scrape_runs (
			id VARCHAR(36) PRIMARY KEY,
			status VARCHAR(20) NOT NULL DEFAULT 'in_progress',
			targets_count INTEGER NOT NULL DEFAULT 0,
			reviews_count INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			finished_at TIMESTAMP,
			CONSTRAINT valid_status CHECK (status IN ('in_progress', 'done', 'failed'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create scrape_runs table: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scrape_targets (
			id VARCHAR(36) PRIMARY KEY,
			run_id VARCHAR(36) NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			output TEXT NOT NULL,
			reviews_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create scrape_targets table: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS reviews (
			id VARCHAR(36) PRIMARY KEY,
			target_id VARCHAR(36) NOT NULL REFERENCES scrape_targets(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			date TEXT,
			employee_title TEXT,
			location TEXT,
			employee_status TEXT,
			review_title TEXT,
			years_at_company TEXT,
			helpful TEXT,
			pros TEXT,
			cons TEXT,
			advice_to_mgmt TEXT,
			rating_overall TEXT,
			rating_balance TEXT,
			rating_culture TEXT,
			rating_career TEXT,
			rating_comp TEXT,
			rating_mgmt TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create reviews table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_scrape_runs_status ON scrape_runs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_scrape_targets_run_id ON scrape_targets(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_target_id ON reviews(target_id)`,
	}
	for _, stmt := range indexes {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			db.logger.Warn("failed to create index", zap.String("statement", stmt), zap.Error(err))
		}
	}

	db.logger.Debug("database schema initialized")
	return nil
}

// GetConn returns the underlying database connection
func (db *DB) GetConn() *sql.DB {
	return db.conn
}
