// Package querysql compiles query specs into parameterized SQL shared by the
// SQLite and MySQL record stores.
//
// Values are always bound as parameters, never interpolated. Every SELECT
// carries an ORDER BY with provision_id as the final key so offset pages are
// stable. Substring predicates compile to LIKE with '!' as the escape
// character, which both dialects accept without backslash quoting rules.
package querysql

import (
	"fmt"
	"strings"

	"oap/internal/query"
)

const likeEscape = "!"

// IDColumn is the primary key used as the ordering tiebreaker.
const IDColumn = "provision_id"

var columns = map[query.Field]string{
	query.FieldRequestID:  "request_id",
	query.FieldExternalID: "external_id",
	query.FieldCreatedAt:  "created_at",
	query.FieldController: "controller",
	query.FieldSUT:        "sut",
	query.FieldWWID:       "wwid",
	query.FieldIFWIStatus: "ifwi_status",
	query.FieldBIOSStatus: "bios_status",
	query.FieldOSStatus:   "os_status",
	query.FieldE2EStatus:  "e2e_status",
}

// Column returns the column backing field.
func Column(field query.Field) (string, error) {
	col, ok := columns[field]
	if !ok {
		return "", fmt.Errorf("unsupported field %q", field)
	}
	return col, nil
}

// Compiler builds statements against one table.
type Compiler struct {
	Table   string
	Columns []string
}

// Select compiles spec into a SELECT statement and its arguments.
func (c Compiler) Select(spec query.Spec) (string, []any, error) {
	where, args, err := Where(spec.Filter)
	if err != nil {
		return "", nil, err
	}
	order, err := OrderBy(spec.Sort)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(c.Columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(c.Table)
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(order)
	if spec.Limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, spec.Limit, max(spec.Offset, 0))
	}
	return b.String(), args, nil
}

// Count compiles a row count over the rows matching filter.
func (c Compiler) Count(filter query.Predicate) (string, []any, error) {
	where, args, err := Where(filter)
	if err != nil {
		return "", nil, err
	}
	stmt := "SELECT COUNT(1) FROM " + c.Table
	if where != "" {
		stmt += " WHERE " + where
	}
	return stmt, args, nil
}

// OrderBy renders the ORDER BY list for s, ending with the id tiebreaker.
func OrderBy(s query.Sort) (string, error) {
	col, err := Column(s.Field.Field())
	if err != nil {
		return "", err
	}
	dir := "DESC"
	if s.Order == query.Asc {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s, %s %s", col, dir, IDColumn, dir), nil
}

// Where renders pred as a WHERE fragment. A nil predicate renders as "".
func Where(pred query.Predicate) (string, []any, error) {
	if pred == nil {
		return "", nil, nil
	}
	return compile(pred)
}

func compile(pred query.Predicate) (string, []any, error) {
	switch p := pred.(type) {
	case query.Contains:
		col, err := Column(p.Field)
		if err != nil {
			return "", nil, err
		}
		return col + " LIKE ? ESCAPE '" + likeEscape + "'", []any{"%" + escapeLike(p.Text) + "%"}, nil
	case query.Equals:
		col, err := Column(p.Field)
		if err != nil {
			return "", nil, err
		}
		return col + " = ?", []any{p.Value}, nil
	case query.In:
		col, err := Column(p.Field)
		if err != nil {
			return "", nil, err
		}
		if len(p.Values) == 0 {
			return "1 = 0", nil, nil
		}
		args := make([]any, 0, len(p.Values))
		for _, v := range p.Values {
			args = append(args, v)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(p.Values)), ", ")
		return col + " IN (" + placeholders + ")", args, nil
	case query.And:
		if len(p.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		return join(p.Predicates, " AND ", false)
	case query.Or:
		if len(p.Predicates) == 0 {
			return "1 = 0", nil, nil
		}
		sql, args, err := join(p.Predicates, " OR ", true)
		if err != nil {
			return "", nil, err
		}
		return "(" + sql + ")", args, nil
	case nil:
		return "1 = 1", nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", pred)
	}
}

func join(preds []query.Predicate, sep string, groupAnd bool) (string, []any, error) {
	parts := make([]string, 0, len(preds))
	var args []any
	for _, child := range preds {
		sql, childArgs, err := compile(child)
		if err != nil {
			return "", nil, err
		}
		if and, ok := child.(query.And); ok && groupAnd && len(and.Predicates) > 1 {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		args = append(args, childArgs...)
	}
	return strings.Join(parts, sep), args, nil
}

func escapeLike(text string) string {
	return strings.NewReplacer(
		likeEscape, likeEscape+likeEscape,
		"%", likeEscape+"%",
		"_", likeEscape+"_",
	).Replace(text)
}
