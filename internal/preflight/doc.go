// Package preflight provides readiness checks for the filesystem paths and
// external services OAP depends on.
//
// The CLI "oap preflight" command runs RunAll and prints each result; "oap
// serve" runs the same checks before starting the daemon and refuses to
// start when a required one fails. Notification checks only run when a
// transport is configured.
package preflight
