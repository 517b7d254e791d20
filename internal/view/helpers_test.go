package view

import (
	"context"
	"fmt"
	"testing"

	"github.com/thesavant42/tableforms/internal/events"
	"github.com/thesavant42/tableforms/internal/models"
)

// fakeWidget records what the engine does to it
type fakeWidget struct {
	value    string
	focused  bool
	focuses  int
	blurs    int
	enabled  bool
	readonly bool
	invalid  bool
}

func (w *fakeWidget) Value() string { return w.value }
func (w *fakeWidget) SetValue(v string) { w.value = v }
func (w *fakeWidget) Focus() {
	w.focused = true
	w.focuses++
}
func (w *fakeWidget) Blur() {
	w.focused = false
	w.blurs++
}
func (w *fakeWidget) SetEnabled(b bool) { w.enabled = b }
func (w *fakeWidget) SetReadOnly(b bool) { w.readonly = b }
func (w *fakeWidget) SetInvalid(b bool) { w.invalid = b }
func widgetOf(inst *Instance) *fakeWidget { return inst.Widget().(*fakeWidget) }

type prefetchCall struct {
	Direction, Distance int
}

type scrollCall struct {
	Offset, Row int
}

// fakeModel serves total records named rec-0..rec-(total-1)
type fakeModel struct {
	block  *Block
	total  int
	first  int
	record int

	available   *int
	prefetchErr error
	moveErr     error

	prefetches []prefetchCall
	scrolls    []scrollCall
	moves      []int
	details    int
	edits      map[int]map[string]string
}

func (m *fakeModel) Record() int { return m.record }

func (m *fakeModel) Move(ctx context.Context, offset int) error {
	m.moves = append(m.moves, offset)
	if m.moveErr != nil {
		return m.moveErr
	}
	m.record += offset
	return nil
}

func (m *fakeModel) Prefetch(ctx context.Context, direction, distance int) (int, error) {
	m.prefetches = append(m.prefetches, prefetchCall{direction, distance})
	if m.prefetchErr != nil {
		return 0, m.prefetchErr
	}
	if m.available != nil {
		return *m.available, nil
	}
	want := direction
	reach := m.total - 1 - m.record
	if direction < 0 {
		want = -direction
		reach = m.record
	}
	if reach < want {
		return reach, nil
	}
	return want, nil
}

func (m *fakeModel) Scroll(ctx context.Context, offset, row int) error {
	m.scrolls = append(m.scrolls, scrollCall{offset, row})
	m.first += offset
	m.record = m.first + row
	m.show()
	return nil
}

func (m *fakeModel) QueryDetails(ctx context.Context) error {
	m.details++
	return nil
}

func (m *fakeModel) GetRecord(row int) *models.Record {
	idx := m.first + row
	if idx < 0 || idx >= m.total {
		return nil
	}
	rec := models.NewRecord(int64(idx), []string{"name", "code"})
	rec.Load("name", fmt.Sprintf("rec-%d", idx))
	rec.Load("code", fmt.Sprintf("c%d", idx))
	for k, v := range m.edits[idx] {
		rec.Set(k, v)
	}
	return rec
}

func (m *fakeModel) SetValue(ctx context.Context, row int, field, value string) error {
	if m.edits == nil {
		m.edits = make(map[int]map[string]string)
	}
	idx := m.first + row
	if m.edits[idx] == nil {
		m.edits[idx] = make(map[string]string)
	}
	m.edits[idx][field] = value
	return nil
}

func (m *fakeModel) show() {
	for i := 0; i < m.block.RowCount(); i++ {
		m.block.Display(i, m.GetRecord(i))
	}
}

// newTestBlock builds a block with rows list rows of name/code fields,
// an optional overlay, and a fake model holding total records.
func newTestBlock(t *testing.T, f *Form, name string, rows int, overlay bool, total int) (*Block, *fakeModel) {
	t.Helper()
	b := NewBlock(name)
	add := func(n int) {
		r := NewRow(n)
		for _, fld := range []string{"name", "code"} {
			field := NewField(fld)
			field.AddInstance(&fakeWidget{})
			if err := r.AddField(field); err != nil {
				t.Fatalf("AddField: %v", err)
			}
		}
		if err := b.AddRow(r); err != nil {
			t.Fatalf("AddRow: %v", err)
		}
	}
	for i := 0; i < rows; i++ {
		add(i)
	}
	if overlay {
		add(OverlayRow)
	}
	if err := f.AddBlock(b); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if err := b.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	m := &fakeModel{block: b, total: total}
	b.Link(m)
	m.show()
	b.LockUnused()
	return b, m
}

func newTestForm(t *testing.T, s *Session, name string) *Form {
	t.Helper()
	f, err := s.NewForm(name)
	if err != nil {
		t.Fatalf("NewForm: %v", err)
	}
	return f
}

// recorder collects the types of every raised event
type recorder struct {
	types []events.EventType
}

func (r *recorder) listen(ctx context.Context, ev events.Event) events.Result {
	r.types = append(r.types, ev.Type)
	return events.Proceed()
}

func vetoOn(typ events.EventType, reason string) events.Listener {
	return func(ctx context.Context, ev events.Event) events.Result {
		if ev.Type == typ {
			return events.Abort(reason)
		}
		return events.Proceed()
	}
}

// focusOn performs an initial goto and fails the test if it does not commit
func focusOn(t *testing.T, f *Form, inst *Instance) {
	t.Helper()
	ok, err := f.Goto(context.Background(), inst)
	if err != nil || !ok {
		t.Fatalf("Goto(%s row %d) = %v, %v; want true, nil", inst.Name(), inst.Row(), ok, err)
	}
}

func inst(b *Block, row int, field string) *Instance {
	return b.Row(row).Field(field).Instance(0)
}
