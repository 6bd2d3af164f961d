package query

import "strings"

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder treats "asc" (any case) as ascending and anything else as
// descending.
func ParseOrder(value string) Order {
	if strings.EqualFold(strings.TrimSpace(value), string(Asc)) {
		return Asc
	}
	return Desc
}

// SortField enumerates the fields results may be ordered by.
type SortField int

const (
	SortRequestID SortField = iota
	SortExternalID
	SortCreatedAt
)

var sortFields = map[SortField]Field{
	SortRequestID:  FieldRequestID,
	SortExternalID: FieldExternalID,
	SortCreatedAt:  FieldCreatedAt,
}

// Field returns the record field the sort key reads.
func (s SortField) Field() Field {
	return sortFields[s]
}

func (s SortField) String() string {
	return string(s.Field())
}

// Sort orders results by one field. Ties break on provision id in the same
// direction.
type Sort struct {
	Field SortField
	Order Order
}

// DefaultSort is requestId descending.
var DefaultSort = Sort{Field: SortRequestID, Order: Desc}

// ParseSort maps a client sort request onto the sortable fields exposed to
// clients (requestId and externalId). An empty or unrecognized name selects
// DefaultSort; known reports whether name was recognized.
func ParseSort(name, order string) (sort Sort, known bool) {
	field, ok := ParseField(strings.TrimSpace(name))
	if !ok {
		return DefaultSort, false
	}
	switch field {
	case FieldRequestID:
		return Sort{Field: SortRequestID, Order: ParseOrder(order)}, true
	case FieldExternalID:
		return Sort{Field: SortExternalID, Order: ParseOrder(order)}, true
	}
	return DefaultSort, false
}
