// Package backend opens the record store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"oap/internal/config"
	"oap/internal/store"
	"oap/internal/store/inmem"
	"oap/internal/store/mysql"
	"oap/internal/store/sqlite"
)

// Open returns the store named by cfg.Store.Driver. The caller owns Close.
func Open(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("open store: config is required")
	}
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverMySQL:
		st, err := mysql.New(ctx,
			mysql.WithDSN(cfg.Store.MySQLDSN),
			mysql.WithMaxOpenConns(cfg.Store.MaxOpenConns),
		)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverMemory:
		return inmem.New(), nil
	default:
		return nil, fmt.Errorf("open store: unsupported driver %q", cfg.Store.Driver)
	}
}
