// Package mysql opens the MySQL record store used by shared deployments.
package mysql

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"oap/internal/store/sqlstore"
)

//go:embed schema.sql
var schemaSQL string

var dialect = sqlstore.Dialect{
	Name: "mysql",
	UpsertUser: "INSERT INTO users (user_id, wwid, email, user_name, first_name, last_name, user_group) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE wwid = VALUES(wwid), email = VALUES(email), " +
		"user_name = VALUES(user_name), first_name = VALUES(first_name), " +
		"last_name = VALUES(last_name), user_group = VALUES(user_group)",
}

type config struct {
	driver       string
	dsn          string
	db           *sql.DB
	maxOpenConns int
}

// Option configures New.
type Option func(*config)

// WithDSN sets the MySQL data source name.
func WithDSN(dsn string) Option {
	return func(c *config) {
		c.dsn = dsn
	}
}

// WithDriver overrides the database/sql driver name. Ignored with WithDB.
func WithDriver(driver string) Option {
	return func(c *config) {
		c.driver = driver
	}
}

// WithDB uses an existing handle instead of opening one.
func WithDB(db *sql.DB) Option {
	return func(c *config) {
		c.db = db
	}
}

// WithMaxOpenConns caps the connection pool.
func WithMaxOpenConns(n int) Option {
	return func(c *config) {
		c.maxOpenConns = n
	}
}

// New connects, applies the schema, and returns the store.
func New(ctx context.Context, opts ...Option) (*sqlstore.Store, error) {
	cfg := &config{driver: "mysql"}
	for _, opt := range opts {
		opt(cfg)
	}
	var err error
	if cfg.db == nil {
		if strings.TrimSpace(cfg.dsn) == "" {
			return nil, fmt.Errorf("mysql dsn is required")
		}
		cfg.db, err = sql.Open(cfg.driver, cfg.dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
	}
	if cfg.maxOpenConns > 0 {
		cfg.db.SetMaxOpenConns(cfg.maxOpenConns)
	}
	if err = cfg.db.PingContext(ctx); err != nil {
		_ = cfg.db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	if err = applySchema(ctx, cfg.db); err != nil {
		_ = cfg.db.Close()
		return nil, err
	}
	return sqlstore.New(cfg.db, dialect), nil
}

// applySchema runs each statement separately; the driver rejects multi
// statement execs unless multiStatements is set on the DSN.
func applySchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
