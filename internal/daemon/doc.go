// Package daemon runs the long-lived OAP API process.
//
// It wires the record store, the transition manager, the query engine, the
// sequence issuer, and intake behind an HTTP router, and holds a flock-based
// lock so only one daemon serves a data directory. Shutdown stops the
// listener first and then drains in-flight notifications before the store is
// closed.
//
// Keep request semantics in the domain packages: handlers here decode input,
// call one operation, and map its result or error onto the wire.
package daemon
