// Package api defines the wire-format types of the HTTP API and converters
// from the internal provisioning models.
//
// DTOs use camelCase JSON tags. Timestamps are rendered in the store layout
// "2006-01-02 15:04:05" (UTC) so values round-trip with what dashboards
// filter on. Every list response goes through Envelope, whose Data is never
// null for a successful list.
package api
