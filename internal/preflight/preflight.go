package preflight

import (
	"context"
	"path/filepath"

	"oap/internal/config"
	"oap/internal/store"
)

// Result reports the outcome of a single preflight check. Optional results
// are reported but never block startup.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every applicable check for cfg. A nil st skips the store
// check.
func RunAll(ctx context.Context, cfg *config.Config, st store.Store) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Store.Driver == config.DriverSQLite {
		results = append(results, CheckDirectoryAccess("SQLite directory", filepath.Dir(cfg.Store.SQLitePath)))
	}
	if st != nil {
		results = append(results, CheckStore(ctx, cfg.Store.Driver, st))
	}

	switch cfg.Notifications.Transport {
	case config.TransportNtfy:
		results = append(results, optional(CheckNtfy(ctx, cfg.Notifications.NtfyTopic)))
	case config.TransportEmail:
		results = append(results, optional(CheckSMTP(ctx, cfg.Notifications.SMTPHost, cfg.Notifications.SMTPPort)))
	}
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}

func optional(r Result) Result {
	r.Optional = true
	return r
}
