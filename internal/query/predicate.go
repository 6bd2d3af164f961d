package query

// Predicate is a filter condition over records. The interface is sealed.
type Predicate interface {
	predicateNode()
}

// Contains matches when Field holds Text as a substring. Matching folds ASCII
// case, like SQL LIKE on the default collations. An empty Text matches every
// record.
type Contains struct {
	Field Field
	Text  string
}

// Equals matches when Field equals Value exactly.
type Equals struct {
	Field Field
	Value string
}

// In matches when Field equals any of Values. An empty list matches nothing.
type In struct {
	Field  Field
	Values []string
}

// And matches when every predicate matches. An empty And matches everything.
type And struct {
	Predicates []Predicate
}

// Or matches when any predicate matches. An empty Or matches nothing.
type Or struct {
	Predicates []Predicate
}

func (Contains) predicateNode() {}
func (Equals) predicateNode()   {}
func (In) predicateNode()       {}
func (And) predicateNode()      {}
func (Or) predicateNode()       {}

// ContainsAll builds an And of Contains predicates, one per field, all
// testing the same text.
func ContainsAll(text string, fields ...Field) And {
	preds := make([]Predicate, 0, len(fields))
	for _, field := range fields {
		preds = append(preds, Contains{Field: field, Text: text})
	}
	return And{Predicates: preds}
}
