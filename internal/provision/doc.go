// Package provision defines the provisioning record model shared by the store
// backends, the transition manager, and the query engine.
//
// A Record tracks one (controller, SUT, request) provisioning attempt. Its four
// stages (IFWI, BIOS, OS, E2E) carry independent statuses and result links.
// Only the transition manager writes stage fields; everything else on a record
// is written once at creation.
//
// Status values use the literals persisted by the legacy service ("PASS",
// "FAIL", "In Progress", "Blocked") so existing rows and clients keep working.
// The terminal set differs per stage: E2E treats only PASS as terminal and
// can be driven again after FAIL.
package provision
