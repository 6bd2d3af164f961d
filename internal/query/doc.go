// Package query describes record lookups as data.
//
// A Spec holds a Predicate tree (Contains, Equals, In, And, Or), one Sort,
// and an optional limit/offset window. SQL backends compile a Spec with
// package querysql; the in-memory backend evaluates the same tree with Match
// and Apply, so both backends agree on filtering and ordering.
//
// Predicate is sealed: only types in this package implement it, which keeps
// the compiler's type switch exhaustive.
package query
