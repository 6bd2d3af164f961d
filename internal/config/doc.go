// Package config loads, normalizes, and validates OAP configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OAP_API_TOKEN and OAP_MYSQL_DSN so secrets can stay out of the file. The
// Config type centralizes every knob the daemon and CLI need: where the
// record store lives, how the HTTP API binds, and how stage notifications
// are delivered.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical driver names, and clear validation errors.
package config
