package view

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/thesavant42/tableforms/internal/events"
	"github.com/thesavant42/tableforms/internal/models"
)

// Block is a named tabular area: a fixed window of list rows, an optional
// overlay row mirroring the current list row, and a link to its model.
type Block struct {
	name      string
	form      *Form
	rows      []*Row
	overlay   *Row
	current   int
	model     ModelBlock
	finalized bool
}

// NewBlock creates an empty, unlinked block. Names are case-insensitive.
func NewBlock(name string) *Block {
	return &Block{
		name:    strings.ToLower(name),
		current: -1,
		model:   nullModel{},
	}
}

// Name returns the lowercase block name
func (b *Block) Name() string {
	return b.name
}

// Form returns the owning form
func (b *Block) Form() *Form {
	return b.form
}

// Link binds the block to its model block
func (b *Block) Link(m ModelBlock) {
	if m == nil {
		m = nullModel{}
	}
	b.model = m
}

// Model returns the linked model block
func (b *Block) Model() ModelBlock {
	return b.model
}

// AddRow adds a row. A row numbered OverlayRow becomes the overlay.
func (b *Block) AddRow(r *Row) error {
	if b.finalized {
		return ErrFinalized
	}
	r.block = b
	if r.number == OverlayRow {
		if b.overlay != nil {
			return ErrOverlayExists
		}
		b.overlay = r
		return nil
	}
	b.rows = append(b.rows, r)
	return nil
}

// Finalize renumbers list rows to 0..n-1 in their provisional order and
// assigns the initial states. It must run once before navigation.
func (b *Block) Finalize() error {
	if b.finalized {
		return ErrFinalized
	}
	sort.SliceStable(b.rows, func(i, j int) bool {
		return b.rows[i].number < b.rows[j].number
	})
	for i, r := range b.rows {
		r.finalize(i)
		if i == 0 {
			r.SetState(StateReadOnly)
		} else {
			r.SetState(StateDisabled)
		}
	}
	if b.overlay != nil {
		b.overlay.SetState(StateReadOnly)
	}
	b.finalized = true
	return nil
}

// Rows returns the list rows in row-number order
func (b *Block) Rows() []*Row {
	return b.rows
}

// RowCount returns the number of list rows in the window
func (b *Block) RowCount() int {
	return len(b.rows)
}

// Overlay returns the overlay row, or nil
func (b *Block) Overlay() *Row {
	return b.overlay
}

// Row returns the list row n, the overlay for OverlayRow, or nil
func (b *Block) Row(n int) *Row {
	if n == OverlayRow {
		return b.overlay
	}
	if n < 0 || n >= len(b.rows) {
		return nil
	}
	return b.rows[n]
}

// CurrentRow returns the current row index, -1 before first activation
func (b *Block) CurrentRow() int {
	return b.current
}

// Offset returns how many rows inst lies from the current row.
// Overlay instances always sit on the current record. Before the first
// activation the model's record sits on row 0.
func (b *Block) Offset(inst *Instance) int {
	switch {
	case inst.Row() < 0:
		return 0
	case b.current < 0:
		return inst.Row()
	}
	return inst.Row() - b.current
}

// release drops the rows and the model of a block whose form was closed
func (b *Block) release() {
	for _, r := range b.rows {
		r.release()
	}
	if b.overlay != nil {
		b.overlay.release()
	}
	b.rows = nil
	b.overlay = nil
	b.current = -1
	b.model = nullModel{}
	b.form = nil
}

// mustRow returns row n; a missing row means the block's invariants broke
func (b *Block) mustRow(n int) *Row {
	r := b.Row(n)
	if r == nil {
		panic(fmt.Sprintf("block %s: row %d does not exist (%d rows)", b.name, n, len(b.rows)))
	}
	return r
}

// Distribute mirrors an edit between the overlay and the list. An edit on
// a list row goes to the overlay; an edit on the overlay goes to the
// current list row.
func (b *Block) Distribute(field *Field, value string, dirty bool) {
	if field.row.number >= 0 {
		if b.overlay != nil {
			b.overlay.Distribute(field.name, value, dirty)
		}
		return
	}
	if b.current >= 0 {
		b.mustRow(b.current).Distribute(field.name, value, dirty)
	}
}

// SetCurrentRow makes row n current. The first call activates the block;
// later calls move the model by the row offset.
func (b *Block) SetCurrentRow(ctx context.Context, n int) error {
	if b.current < 0 {
		if n < 0 || n >= len(b.rows) {
			n = 0
		}
		if len(b.rows) == 0 {
			return nil
		}
		if n > 0 {
			if err := b.model.Move(ctx, n); err != nil {
				return fmt.Errorf("failed to move block %s to row %d: %w", b.name, n, err)
			}
		}
		b.activate(n)
		b.displayOverlay()
		return b.queryDetails(ctx)
	}

	if n == b.current {
		return nil
	}
	target := b.mustRow(n)
	if err := b.model.Move(ctx, n-b.current); err != nil {
		return fmt.Errorf("failed to move block %s to row %d: %w", b.name, n, err)
	}
	b.deactivate()
	b.current = n
	target.current = true
	target.SetState(StateOpen)
	b.displayOverlay()
	return b.queryDetails(ctx)
}

func (b *Block) activate(n int) {
	b.current = n
	r := b.mustRow(n)
	r.current = true
	r.SetState(StateOpen)
	if b.overlay != nil {
		b.overlay.SetState(StateOpen)
	}
}

func (b *Block) deactivate() {
	if b.current < 0 {
		return
	}
	prev := b.mustRow(b.current)
	prev.current = false
	prev.SetState(StateReadOnly)
}

// displayOverlay shows the current record in the overlay
func (b *Block) displayOverlay() {
	if b.overlay == nil || b.current < 0 {
		return
	}
	cur := b.mustRow(b.current)
	if cur.unused {
		b.overlay.clear()
		b.overlay.SetState(StateReadOnly)
		return
	}
	// The overlay may show columns the list rows leave out.
	if rec := b.model.GetRecord(b.current); rec != nil {
		b.overlay.display(rec)
	} else {
		for _, f := range cur.fields {
			b.overlay.Distribute(f.name, f.Value(), f.dirty)
		}
	}
	b.overlay.SetState(StateOpen)
}

func (b *Block) queryDetails(ctx context.Context) error {
	if err := b.model.QueryDetails(ctx); err != nil {
		return fmt.Errorf("failed to query details of block %s: %w", b.name, err)
	}
	return nil
}

// LockUnused disables rows that display no record. When the first row is
// unused the whole list is disabled. Other rows get open (current) or
// read-only state.
func (b *Block) LockUnused() {
	if len(b.rows) == 0 {
		return
	}
	primary := b.rows[0].unused
	for i, r := range b.rows {
		switch {
		case primary || r.unused:
			r.SetState(StateDisabled)
		case i == b.current:
			r.SetState(StateOpen)
		default:
			r.SetState(StateReadOnly)
		}
	}
}

// Display renders a record in list row n; a nil record empties the row
func (b *Block) Display(n int, rec *models.Record) {
	r := b.Row(n)
	if r == nil || r.IsOverlay() {
		return
	}
	if rec == nil {
		r.clear()
		return
	}
	r.display(rec)
}

// Refresh re-renders row n and keeps the overlay in step when n is current
func (b *Block) Refresh(n int, rec *models.Record) {
	b.Display(n, rec)
	if n == b.current {
		b.displayOverlay()
	}
	b.LockUnused()
}

// Rewind resets the block onto the first row after its model re-queried
func (b *Block) Rewind() {
	if b.current >= 0 {
		b.deactivate()
		b.activate(0)
		if b.form != nil {
			b.form.retarget(b)
		}
	}
	b.LockUnused()
	b.displayOverlay()
}

// Navigate resolves a logical key against inst and returns the instance
// that should hold focus. Focus moves before Navigate returns.
func (b *Block) Navigate(ctx context.Context, key Key, inst *Instance) (*Instance, error) {
	var (
		next = inst
		err  error
	)
	switch key {
	case KeyNextField:
		next = b.nextField(ctx, inst, 1)
	case KeyPrevField:
		next = b.nextField(ctx, inst, -1)
	case KeyNextRecord:
		next, err = b.Scroll(ctx, inst, 1)
	case KeyPrevRecord:
		next, err = b.Scroll(ctx, inst, -1)
	case KeyPageDown:
		next, err = b.Scroll(ctx, inst, len(b.rows))
	case KeyPageUp:
		next, err = b.Scroll(ctx, inst, -len(b.rows))
	}
	if next != inst && b.form != nil {
		b.form.moveFocus(inst, next)
	}
	return next, err
}

// nextField moves within the row, wrapping at either end
func (b *Block) nextField(ctx context.Context, inst *Instance, step int) *Instance {
	row := inst.field.row
	all := row.Instances()
	if len(all) < 2 {
		return inst
	}
	pos := row.position(inst)
	next := all[(pos+step+len(all))%len(all)]

	if b.fire(ctx, events.PostField, inst, b.model.Record()).Aborted() {
		return inst
	}
	if b.fire(ctx, events.PreField, next, b.model.Record()).Aborted() {
		return inst
	}
	return next
}

// Scroll moves the current record by count rows, fetching past the loaded
// window when needed. It returns the instance that should hold focus; on a
// veto or when nothing is available the original instance is returned and
// no state changes.
func (b *Block) Scroll(ctx context.Context, inst *Instance, count int) (*Instance, error) {
	if count == 0 || len(b.rows) == 0 {
		return inst, nil
	}
	if b.current < 0 {
		if err := b.SetCurrentRow(ctx, 0); err != nil {
			return inst, err
		}
	}
	if !b.validateRow() {
		return inst, nil
	}

	target := b.current + count
	if target < 0 || target >= len(b.rows) {
		return b.scrollWindow(ctx, inst, count)
	}

	dest := b.mustRow(target)
	if dest.unused {
		return inst, nil
	}

	next := inst
	if inst.Row() >= 0 {
		if f := dest.Field(inst.Name()); f != nil {
			if candidate := f.Instance(inst.entry); candidate != nil {
				next = candidate
			}
		}
	}

	record := b.model.Record()
	if b.fire(ctx, events.PostField, inst, record).Aborted() {
		return inst, nil
	}
	if b.fireRow(ctx, events.PostRecord, b.current, record).Aborted() {
		return inst, nil
	}
	if b.fireRow(ctx, events.PreRecord, target, record+count).Aborted() {
		return inst, nil
	}
	if b.fire(ctx, events.PreField, next, record+count).Aborted() {
		return inst, nil
	}

	if err := b.SetCurrentRow(ctx, target); err != nil {
		if b.current != target {
			return inst, err
		}
		return next, err
	}
	return next, nil
}

// scrollWindow handles a scroll whose target lies outside the window
func (b *Block) scrollWindow(ctx context.Context, inst *Instance, count int) (*Instance, error) {
	sign := 1
	distance := len(b.rows) - 1 - b.current
	if count < 0 {
		sign = -1
		distance = b.current
	}

	available, err := b.model.Prefetch(ctx, count, distance)
	if err != nil {
		b.logger().Warn("prefetch failed", "block", b.name, "count", count, "err", err)
		return inst, fmt.Errorf("failed to prefetch block %s: %w", b.name, err)
	}
	b.logger().Debug("prefetch", "block", b.name, "count", count, "distance", distance, "available", available)
	if available <= 0 {
		return inst, nil
	}

	// Not enough records for a multi-row step: stop on the last available
	// row instead of shifting the whole window.
	move := false
	if count*sign > 1 && available < count*sign {
		move = true
		count = sign * available
	}

	record := b.model.Record()
	dest := b.current
	shift := count
	if move {
		dest = clampRow(b.current+count, len(b.rows))
		shift = b.current + count - dest
	}
	// The window never starts before the first record.
	if first := record - b.current; first+shift < 0 {
		shift = -first
		dest = record + count
	}

	next := inst
	if dest != b.current && inst.Row() >= 0 {
		from := b.mustRow(inst.Row())
		if candidate := b.mustRow(dest).instanceAt(from.position(inst)); candidate != nil {
			next = candidate
		}
	}

	if b.fire(ctx, events.PostField, inst, record).Aborted() {
		return inst, nil
	}
	if b.fireRow(ctx, events.PostRecord, b.current, record).Aborted() {
		return inst, nil
	}

	if err := b.model.Scroll(ctx, shift, dest); err != nil {
		return inst, fmt.Errorf("failed to scroll block %s: %w", b.name, err)
	}

	// The position is committed; enter triggers can no longer roll it back.
	if res := b.fireRow(ctx, events.PreRecord, dest, b.model.Record()); res.Aborted() {
		b.logger().Debug("enter record vetoed after scroll", "block", b.name, "reason", res.Reason())
	}
	if res := b.fire(ctx, events.PreField, next, b.model.Record()); res.Aborted() {
		b.logger().Debug("enter field vetoed after scroll", "block", b.name, "reason", res.Reason())
	}

	if dest != b.current {
		b.deactivate()
		b.current = dest
		r := b.mustRow(dest)
		r.current = true
	}
	b.LockUnused()
	b.displayOverlay()
	return next, b.queryDetails(ctx)
}

func clampRow(n, rows int) int {
	if n >= rows {
		n = rows - 1
	}
	if n < 0 {
		n = 0
	}
	return n
}

// validateRow validates the current row; an inactive block is valid
func (b *Block) validateRow() bool {
	if b.current < 0 {
		return true
	}
	return b.mustRow(b.current).Validate()
}

func (b *Block) fire(ctx context.Context, typ events.EventType, inst *Instance, record int) events.Result {
	ev := events.Event{Type: typ, Block: b.name, Record: record, Row: b.current}
	if inst != nil {
		ev.Field = inst.Name()
		ev.Row = inst.Row()
		ev.Value = inst.Value()
	}
	return b.raise(ctx, ev)
}

func (b *Block) fireRow(ctx context.Context, typ events.EventType, row, record int) events.Result {
	return b.raise(ctx, events.Event{Type: typ, Block: b.name, Row: row, Record: record})
}

func (b *Block) raise(ctx context.Context, ev events.Event) events.Result {
	if b.form == nil {
		return events.Proceed()
	}
	return b.form.raise(ctx, ev)
}

func (b *Block) logger() *log.Logger {
	if b.form == nil {
		return discardLogger()
	}
	return b.form.session.logger
}
