// Package main hosts the oap CLI entrypoint and command graph.
//
// "oap serve" runs the API daemon. The remaining commands open the configured
// store directly and call the same domain packages the daemon uses, so
// operators can inspect records, drive transitions, import batches, and issue
// master sequence ids without going through HTTP.
//
// Keep this package lean: add behaviour to the internal packages first and
// surface it here as flags and output formatting.
package main
