package view

import (
	"context"

	"github.com/thesavant42/tableforms/internal/models"
)

// ModelBlock is the record source linked one-to-one to a view block.
// Every call may suspend; implementations honour ctx.
type ModelBlock interface {
	// Record returns the absolute index of the current record
	Record() int
	// Move repositions the current record by a committed offset
	Move(ctx context.Context, offset int) error
	// Prefetch loads records in the direction of a scroll. direction is the
	// signed step count, distance the number of rows between the current
	// row and the window edge. It returns how many records are reachable
	// from the current record, capped at |direction|.
	Prefetch(ctx context.Context, direction, distance int) (int, error)
	// Scroll shifts the window by offset records; afterwards the current
	// record is the one displayed at row.
	Scroll(ctx context.Context, offset, row int) error
	// QueryDetails re-queries blocks that depend on the current record
	QueryDetails(ctx context.Context) error
	// GetRecord returns the record displayed at a window row, or nil
	GetRecord(row int) *models.Record
	// SetValue stores an edited value in the record displayed at row
	SetValue(ctx context.Context, row int, field, value string) error
}

// nullModel backs blocks that are not bound to any data source
type nullModel struct{}

func (nullModel) Record() int { return 0 }
func (nullModel) Move(context.Context, int) error { return nil }
func (nullModel) Prefetch(context.Context, int, int) (int, error) { return 0, nil }
func (nullModel) Scroll(context.Context, int, int) error { return nil }
func (nullModel) QueryDetails(context.Context) error { return nil }
func (nullModel) GetRecord(int) *models.Record { return nil }
func (nullModel) SetValue(context.Context, int, string, string) error { return nil }
