package query

import (
	"sort"
	"strings"

	"oap/internal/provision"
)

// Spec is a complete record lookup.
type Spec struct {
	Filter Predicate
	Sort   Sort
	// Limit of zero means no limit.
	Limit  int
	Offset int
}

// Match evaluates pred against rec. A nil predicate matches.
func Match(rec provision.Record, pred Predicate) bool {
	switch p := pred.(type) {
	case nil:
		return true
	case Contains:
		return strings.Contains(foldASCII(Value(rec, p.Field)), foldASCII(p.Text))
	case Equals:
		return Value(rec, p.Field) == p.Value
	case In:
		value := Value(rec, p.Field)
		for _, candidate := range p.Values {
			if value == candidate {
				return true
			}
		}
		return false
	case And:
		for _, child := range p.Predicates {
			if !Match(rec, child) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range p.Predicates {
			if Match(rec, child) {
				return true
			}
		}
		return false
	}
	return false
}

// Less orders a before b under s, breaking ties on record id.
func Less(a, b provision.Record, s Sort) bool {
	field := s.Field.Field()
	av, bv := Value(a, field), Value(b, field)
	if av == bv {
		if s.Order == Asc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	}
	if s.Order == Asc {
		return av < bv
	}
	return av > bv
}

// Apply filters, sorts, and windows records according to spec. The input
// slice is not modified.
func Apply(records []provision.Record, spec Spec) []provision.Record {
	matched := Filter(records, spec.Filter)
	sort.SliceStable(matched, func(i, j int) bool {
		return Less(matched[i], matched[j], spec.Sort)
	})
	if spec.Offset > 0 {
		if spec.Offset >= len(matched) {
			return []provision.Record{}
		}
		matched = matched[spec.Offset:]
	}
	if spec.Limit > 0 && spec.Limit < len(matched) {
		matched = matched[:spec.Limit]
	}
	return matched
}

// Filter returns the records matching pred, in input order.
func Filter(records []provision.Record, pred Predicate) []provision.Record {
	out := make([]provision.Record, 0, len(records))
	for _, rec := range records {
		if Match(rec, pred) {
			out = append(out, rec)
		}
	}
	return out
}

func foldASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
