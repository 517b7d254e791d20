package models

import "strings"

// Query holds the criteria a model block uses to fetch its records.
// Where is an equality filter and Below a set of upper bounds, both on
// lowercase column names. A record must satisfy every condition.
type Query struct {
	Where   map[string]string
	Below   map[string]Bound
	OrderBy string
}

// Bound caps a column. Values compare as numbers when both sides are
// integers. A NULL column never satisfies a bound.
type Bound struct {
	Value     string
	Inclusive bool
}

// With returns a copy of the query with one more equality condition
func (q Query) With(column, value string) Query {
	where := make(map[string]string, len(q.Where)+1)
	for k, v := range q.Where {
		where[k] = v
	}
	where[column] = value
	q.Where = where
	return q
}

// Under returns a copy of the query with column capped at value
func (q Query) Under(column, value string, inclusive bool) Query {
	below := make(map[string]Bound, len(q.Below)+1)
	for k, v := range q.Below {
		below[k] = v
	}
	below[strings.ToLower(column)] = Bound{Value: value, Inclusive: inclusive}
	q.Below = below
	return q
}

// Tier names the layer a handle or event belongs to
type Tier int

const (
	TierPublic Tier = iota
	TierView
	TierModel
)

func (t Tier) String() string {
	switch t {
	case TierView:
		return "view"
	case TierModel:
		return "model"
	default:
		return "public"
	}
}
