// Package store defines the persistence surface the provisioning services
// depend on, and opens the configured backend.
//
// Three backends implement Store: sqlite (default, embedded), mysql (the
// production deployment), and inmem (tests and throwaway runs). The SQL
// backends share their statements through package sqlstore; package
// storetest holds the conformance suite every backend must pass.
//
// UpdateStage is the only writer of stage fields and must evaluate the stage
// guard and the write as one atomic step. Records are never deleted.
package store
