package model

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/thesavant42/tableforms/internal/models"
)

// Source loads and stores the records of named tables
type Source interface {
	// Fetch returns at most limit records matching q, skipping offset.
	// A short result means the table holds no more matches.
	Fetch(ctx context.Context, table string, q models.Query, offset, limit int) ([]*models.Record, error)
	// Apply writes every change back by ID. Either all of them are
	// stored or none is.
	Apply(ctx context.Context, changes []Change) error
}

// Change is one edited record bound for its table
type Change struct {
	Table  string
	Record *models.Record
}

// MemorySource keeps tables in memory. It backs tests and the demo's
// memory mode.
type MemorySource struct {
	mu     sync.Mutex
	tables map[string][]*models.Record
}

// NewMemorySource creates an empty in-memory source
func NewMemorySource() *MemorySource {
	return &MemorySource{tables: make(map[string][]*models.Record)}
}

// Insert appends records to a table; stored copies are kept
func (s *MemorySource) Insert(table string, recs ...*models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table = strings.ToLower(table)
	for _, r := range recs {
		c := r.Clone()
		c.Dirty = false
		s.tables[table] = append(s.tables[table], c)
	}
}

// Fetch implements Source
func (s *MemorySource) Fetch(ctx context.Context, table string, q models.Query, offset, limit int) ([]*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[strings.ToLower(table)]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	var matched []*models.Record
	for _, r := range rows {
		if matches(r, q) {
			matched = append(matched, r)
		}
	}
	if q.OrderBy != "" {
		col := strings.ToLower(q.OrderBy)
		sort.SliceStable(matched, func(i, j int) bool {
			return less(matched[i].Get(col), matched[j].Get(col))
		})
	}

	if offset >= len(matched) {
		return nil, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*models.Record, 0, end-offset)
	for _, r := range matched[offset:end] {
		out = append(out, r.Clone())
	}
	return out, nil
}

// Update writes a single record back by ID
func (s *MemorySource) Update(ctx context.Context, table string, rec *models.Record) error {
	return s.Apply(ctx, []Change{{Table: table, Record: rec}})
}

// Apply implements Source. Every change is checked before any is stored.
func (s *MemorySource) Apply(ctx context.Context, changes []Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := make([]int, len(changes))
	for i, c := range changes {
		slots[i] = -1
		for j, r := range s.tables[strings.ToLower(c.Table)] {
			if r.ID == c.Record.ID {
				slots[i] = j
				break
			}
		}
		if slots[i] < 0 {
			return fmt.Errorf("record %d not found in %s", c.Record.ID, c.Table)
		}
	}
	for i, c := range changes {
		stored := c.Record.Clone()
		stored.Dirty = false
		s.tables[strings.ToLower(c.Table)][slots[i]] = stored
	}
	return nil
}

func matches(r *models.Record, q models.Query) bool {
	for col, want := range q.Where {
		if !strings.EqualFold(r.Get(col), want) {
			return false
		}
	}
	for col, b := range q.Below {
		v := r.Get(col)
		switch {
		case v == "":
			return false
		case b.Inclusive && less(b.Value, v):
			return false
		case !b.Inclusive && !less(v, b.Value):
			return false
		}
	}
	return true
}

// less orders numerically when both values are integers
func less(a, b string) bool {
	x, errA := strconv.ParseInt(a, 10, 64)
	y, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return x < y
	}
	return a < b
}
