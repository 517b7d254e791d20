package view

import (
	"fmt"

	"github.com/thesavant42/tableforms/internal/models"
)

// OverlayRow is the row number of a block's single-record detail row
const OverlayRow = -1

// RowState is the input state of every instance in a row
type RowState int

const (
	StateOpen RowState = iota
	StateReadOnly
	StateDisabled
)

func (s RowState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateReadOnly:
		return "readonly"
	case StateDisabled:
		return "disabled"
	}
	return fmt.Sprintf("RowState(%d)", int(s))
}

// Row is one record slot of a block
type Row struct {
	number  int
	block   *Block
	state   RowState
	unused  bool
	current bool
	fields  []*Field
	index   map[string]*Field
}

// NewRow creates a row with a provisional number. The number of list rows
// is reassigned by Block.Finalize; OverlayRow is kept as is.
func NewRow(number int) *Row {
	return &Row{
		number: number,
		state:  StateDisabled,
		index:  make(map[string]*Field),
	}
}

// AddField appends a field. Field names are unique within a row.
func (r *Row) AddField(f *Field) error {
	if _, ok := r.index[f.name]; ok {
		return fmt.Errorf("duplicate field %q in row %d", f.name, r.number)
	}
	f.row = r
	r.fields = append(r.fields, f)
	r.index[f.name] = f
	return nil
}

// Number returns the row number
func (r *Row) Number() int {
	return r.number
}

// Block returns the owning block
func (r *Row) Block() *Block {
	return r.block
}

func (r *Row) release() {
	r.block = nil
	r.fields = nil
	r.index = nil
}

// IsOverlay reports whether this is the block's overlay row
func (r *Row) IsOverlay() bool {
	return r.number == OverlayRow
}

// State returns the row's input state
func (r *Row) State() RowState {
	return r.state
}

// Unused reports whether the row currently displays no record
func (r *Row) Unused() bool {
	return r.unused
}

// Current reports whether the row carries the current-row indicator
func (r *Row) Current() bool {
	return r.current
}

// Field returns the named field, or nil
func (r *Row) Field(name string) *Field {
	return r.index[name]
}

// Fields returns the fields in layout order
func (r *Row) Fields() []*Field {
	return r.fields
}

// Instances returns every instance of the row in layout order
func (r *Row) Instances() []*Instance {
	var all []*Instance
	for _, f := range r.fields {
		all = append(all, f.instances...)
	}
	return all
}

// Values returns the current field values keyed by field name
func (r *Row) Values() map[string]string {
	values := make(map[string]string, len(r.fields))
	for _, f := range r.fields {
		values[f.name] = f.Value()
	}
	return values
}

// Distribute pushes a value into every instance of the named field
func (r *Row) Distribute(name string, value string, dirty bool) {
	if f := r.index[name]; f != nil {
		f.distribute(value, dirty)
	}
}

// Validate runs every field's validation and reports overall success.
// Invalid instances are flagged; navigation state is untouched.
func (r *Row) Validate() bool {
	ok := true
	for _, f := range r.fields {
		if !f.validate() {
			ok = false
		}
	}
	return ok
}

// SetState applies an input state to every instance of the row
func (r *Row) SetState(state RowState) {
	r.state = state
	for _, f := range r.fields {
		f.setState(state)
	}
}

func (r *Row) finalize(number int) {
	r.number = number
}

// position returns the layout position of inst within the row, or -1
func (r *Row) position(inst *Instance) int {
	for i, candidate := range r.Instances() {
		if candidate == inst {
			return i
		}
	}
	return -1
}

// instanceAt returns the instance at a layout position, clamped to the row
func (r *Row) instanceAt(pos int) *Instance {
	all := r.Instances()
	if len(all) == 0 {
		return nil
	}
	if pos < 0 {
		pos = 0
	}
	if pos >= len(all) {
		pos = len(all) - 1
	}
	return all[pos]
}

func (r *Row) display(rec *models.Record) {
	r.unused = false
	for _, f := range r.fields {
		f.distribute(rec.Get(f.name), rec.Dirty)
	}
}

func (r *Row) clear() {
	r.unused = true
	for _, f := range r.fields {
		f.distribute("", false)
		for _, inst := range f.instances {
			inst.widget.SetInvalid(false)
		}
	}
}
