package ui

import (
	"fmt"
	"strings"

	"github.com/thesavant42/tableforms/internal/models"
)

// ParseQuery reads the criteria typed in query mode. The text is a comma
// separated list of column=value, column<value or column<=value terms;
// the pseudo column "order" sets the sort column. An empty text queries
// everything.
//
//	job=CLERK, salary<3000, order=name
func ParseQuery(text string) (models.Query, error) {
	var q models.Query
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		col, op, value := splitCriterion(part)
		if op == "" || col == "" {
			return models.Query{}, fmt.Errorf("invalid criterion %q, want column=value or column<value", part)
		}
		switch {
		case col == "order" && op != "=":
			return models.Query{}, fmt.Errorf("invalid criterion %q, order takes a column name", part)
		case col == "order":
			q.OrderBy = strings.ToLower(value)
		case op == "=":
			q = q.With(col, value)
		default:
			q = q.Under(col, value, op == "<=")
		}
	}
	return q, nil
}

// splitCriterion cuts a term at its first operator
func splitCriterion(s string) (col, op, value string) {
	i := strings.IndexAny(s, "<=")
	if i < 0 {
		return "", "", ""
	}
	rest := s[i:]
	switch {
	case strings.HasPrefix(rest, "<="):
		op = "<="
	case rest[0] == '<':
		op = "<"
	default:
		op = "="
	}
	col = strings.ToLower(strings.TrimSpace(s[:i]))
	value = strings.TrimSpace(rest[len(op):])
	return col, op, value
}
