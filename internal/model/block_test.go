package model

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/thesavant42/tableforms/internal/events"
	"github.com/thesavant42/tableforms/internal/models"
)

// fakeView records what the model block displays
type fakeView struct {
	shown     []string
	rewinds   int
	refreshed []int
}

func newFakeView(rows int) *fakeView {
	return &fakeView{shown: make([]string, rows)}
}

func (v *fakeView) Display(n int, rec *models.Record) {
	v.shown[n] = rec.Get("name")
}

func (v *fakeView) Refresh(n int, rec *models.Record) {
	v.refreshed = append(v.refreshed, n)
	v.Display(n, rec)
}

func (v *fakeView) Rewind() {
	v.rewinds++
}

func (v *fakeView) RowCount() int {
	return len(v.shown)
}

// countingSource counts fetches and applies and can fail them
type countingSource struct {
	*MemorySource
	fetches  int
	err      error
	applied  [][]Change
	applyErr error
}

func (s *countingSource) Apply(ctx context.Context, changes []Change) error {
	s.applied = append(s.applied, changes)
	if s.applyErr != nil {
		return s.applyErr
	}
	return s.MemorySource.Apply(ctx, changes)
}

func (s *countingSource) Fetch(ctx context.Context, table string, q models.Query, offset, limit int) ([]*models.Record, error) {
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return s.MemorySource.Fetch(ctx, table, q, offset, limit)
}

func employee(id int, dept int) *models.Record {
	r := models.NewRecord(int64(id), []string{"id", "name", "dept_id"})
	r.Load("id", strconv.Itoa(id))
	r.Load("name", fmt.Sprintf("emp-%d", id))
	r.Load("dept_id", strconv.Itoa(dept))
	return r
}

func newSource(n int) *countingSource {
	src := &countingSource{MemorySource: NewMemorySource()}
	for i := 0; i < n; i++ {
		src.Insert("employees", employee(i, i%2+1))
	}
	return src
}

func newEmployees(t *testing.T, src Source, rows, fetchSize int) (*Block, *fakeView) {
	t.Helper()
	b := New(Options{Name: "emp", Table: "employees", Source: src, FetchSize: fetchSize, OrderBy: "id"})
	v := newFakeView(rows)
	b.Link(v)
	ok, err := b.Query(context.Background(), models.Query{})
	if err != nil || !ok {
		t.Fatalf("Query() = %v, %v; want true, nil", ok, err)
	}
	return b, v
}

func TestQueryFillsWindow(t *testing.T) {
	src := newSource(30)
	b, v := newEmployees(t, src, 5, 10)

	if b.Loaded() != 10 || b.EOF() {
		t.Errorf("Loaded() = %d EOF() = %v, want 10 false", b.Loaded(), b.EOF())
	}
	want := []string{"emp-0", "emp-1", "emp-2", "emp-3", "emp-4"}
	if diff := cmp.Diff(want, v.shown); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}
	if v.rewinds != 1 || b.Record() != 0 {
		t.Errorf("rewinds = %d record = %d, want 1 0", v.rewinds, b.Record())
	}
}

func TestQueryShortTable(t *testing.T) {
	src := newSource(3)
	b, v := newEmployees(t, src, 5, 10)

	if !b.EOF() || b.Loaded() != 3 {
		t.Errorf("Loaded() = %d EOF() = %v, want 3 true", b.Loaded(), b.EOF())
	}
	want := []string{"emp-0", "emp-1", "emp-2", "", ""}
	if diff := cmp.Diff(want, v.shown); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}
}

func TestPrefetch(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name       string
		total      int
		record     int
		direction  int
		distance   int
		want       int
		wantLoaded int
	}{
		{"next past window", 12, 4, 1, 0, 1, 10},
		{"page past window", 12, 2, 5, 2, 5, 10},
		{"short page", 7, 2, 5, 2, 4, 7},
		{"end of data", 5, 4, 1, 0, 0, 5},
		{"back", 12, 4, -3, 4, 3, 5},
		{"back at start", 12, 0, -1, 0, 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newEmployees(t, newSource(tt.total), 5, 5)
			if err := b.Move(ctx, tt.record); err != nil {
				t.Fatalf("Move(%d): %v", tt.record, err)
			}
			got, err := b.Prefetch(ctx, tt.direction, tt.distance)
			if err != nil {
				t.Fatalf("Prefetch: %v", err)
			}
			if got != tt.want {
				t.Errorf("Prefetch(%d, %d) = %d, want %d", tt.direction, tt.distance, got, tt.want)
			}
			if b.Loaded() != tt.wantLoaded {
				t.Errorf("Loaded() = %d, want %d", b.Loaded(), tt.wantLoaded)
			}
		})
	}
}

func TestPrefetchError(t *testing.T) {
	ctx := context.Background()
	src := newSource(12)
	b, _ := newEmployees(t, src, 5, 5)
	if err := b.Move(ctx, 4); err != nil {
		t.Fatalf("Move: %v", err)
	}
	src.err = errors.New("connection reset")

	if _, err := b.Prefetch(ctx, 1, 0); !errors.Is(err, src.err) {
		t.Errorf("Prefetch() error = %v, want %v", err, src.err)
	}
	if b.Record() != 4 {
		t.Errorf("Record() = %d, want 4", b.Record())
	}
}

func TestScroll(t *testing.T) {
	ctx := context.Background()
	b, v := newEmployees(t, newSource(12), 5, 5)
	if err := b.Move(ctx, 4); err != nil {
		t.Fatalf("Move: %v", err)
	}

	if err := b.Scroll(ctx, 1, 4); err != nil {
		t.Fatalf("Scroll: %v", err)
	}
	if b.Record() != 5 {
		t.Errorf("Record() = %d, want 5", b.Record())
	}
	want := []string{"emp-1", "emp-2", "emp-3", "emp-4", "emp-5"}
	if diff := cmp.Diff(want, v.shown); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}

	if err := b.Scroll(ctx, -3, 0); err != nil {
		t.Fatalf("Scroll: %v", err)
	}
	if b.Record() != 0 || v.shown[0] != "emp-0" {
		t.Errorf("Record() = %d row 0 = %q, want 0 emp-0", b.Record(), v.shown[0])
	}
}

func TestMoveOutOfRange(t *testing.T) {
	ctx := context.Background()
	b, _ := newEmployees(t, newSource(3), 5, 5)

	for _, offset := range []int{-1, 3} {
		if err := b.Move(ctx, offset); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Move(%d) error = %v, want %v", offset, err, ErrOutOfRange)
		}
	}
	if b.Record() != 0 {
		t.Errorf("Record() = %d, want 0", b.Record())
	}
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	src := newSource(4)
	b, v := newEmployees(t, src, 3, 5)

	if b.Dirty() {
		t.Error("Dirty() = true before edits")
	}
	if err := b.SetValue(ctx, 1, "name", "alice"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if err := b.SetValue(ctx, 7, "name", "nobody"); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetValue(row 7) error = %v, want %v", err, ErrOutOfRange)
	}
	if !b.Dirty() {
		t.Error("Dirty() = false after an edit")
	}
	if err := b.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if b.Dirty() {
		t.Error("Dirty() = true after Save")
	}
	if diff := cmp.Diff([]int{1}, v.refreshed); diff != "" {
		t.Errorf("refreshed rows mismatch (-want +got):\n%s", diff)
	}

	got, err := src.MemorySource.Fetch(ctx, "employees", models.Query{}.With("id", "1"), 0, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("Fetch = %v, %v", got, err)
	}
	if got[0].Get("name") != "alice" {
		t.Errorf("stored name = %q, want %q", got[0].Get("name"), "alice")
	}
}

// newDepartments builds dept over two departments with emp as its
// detail, and runs the first query
func newDepartments(t *testing.T, src *countingSource) (dept, emp *Block, empView *fakeView) {
	t.Helper()
	for i, name := range []string{"sales", "research"} {
		r := models.NewRecord(int64(i+1), []string{"id", "name"})
		r.Load("id", strconv.Itoa(i+1))
		r.Load("name", name)
		src.Insert("departments", r)
	}

	emp = New(Options{Name: "emp", Table: "employees", Source: src, OrderBy: "id"})
	empView = newFakeView(4)
	emp.Link(empView)
	dept = New(Options{Name: "dept", Table: "departments", Source: src, OrderBy: "id"})
	dept.Link(newFakeView(2))
	dept.AddDetail(emp, "id", "dept_id")

	if _, err := dept.Query(context.Background(), models.Query{}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	return dept, emp, empView
}

func TestMasterDetail(t *testing.T) {
	ctx := context.Background()
	src := newSource(6)
	dept, _, empView := newDepartments(t, src)
	want := []string{"emp-0", "emp-2", "emp-4", ""}
	if diff := cmp.Diff(want, empView.shown); diff != "" {
		t.Errorf("details of sales mismatch (-want +got):\n%s", diff)
	}

	if err := dept.Move(ctx, 1); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if err := dept.QueryDetails(ctx); err != nil {
		t.Fatalf("QueryDetails: %v", err)
	}
	want = []string{"emp-1", "emp-3", "emp-5", ""}
	if diff := cmp.Diff(want, empView.shown); diff != "" {
		t.Errorf("details of research mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveIsAtomic(t *testing.T) {
	ctx := context.Background()
	src := newSource(6)
	dept, emp, _ := newDepartments(t, src)

	if err := dept.SetValue(ctx, 0, "name", "marketing"); err != nil {
		t.Fatalf("SetValue(dept): %v", err)
	}
	for row, name := range []string{"ann", "bob"} {
		if err := emp.SetValue(ctx, row, "name", name); err != nil {
			t.Fatalf("SetValue(emp %d): %v", row, err)
		}
	}

	src.applyErr = errors.New("database is locked")
	if err := dept.Save(ctx); !errors.Is(err, src.applyErr) {
		t.Fatalf("Save() error = %v, want %v", err, src.applyErr)
	}
	if !dept.Dirty() || !emp.Dirty() {
		t.Errorf("dirty after failed save: dept %v emp %v, want both", dept.Dirty(), emp.Dirty())
	}
	stored, err := src.MemorySource.Fetch(ctx, "employees", models.Query{OrderBy: "id"}, 0, 1)
	if err != nil || stored[0].Get("name") != "emp-0" {
		t.Fatalf("stored after failed save = %v, %v; want emp-0 untouched", stored, err)
	}

	src.applyErr = nil
	if err := dept.Save(ctx); err != nil {
		t.Fatalf("Save retry: %v", err)
	}
	if dept.Dirty() || emp.Dirty() {
		t.Error("Dirty() = true after the retry")
	}
	var tables []string
	for _, c := range src.applied[1] {
		tables = append(tables, c.Table)
	}
	if diff := cmp.Diff([]string{"departments", "employees", "employees"}, tables); diff != "" {
		t.Errorf("retry batch mismatch (-want +got):\n%s", diff)
	}
	if err := dept.Save(ctx); err != nil || len(src.applied) != 2 {
		t.Errorf("clean Save() = %v after %d applies, want nil and no new apply", err, len(src.applied))
	}
}

func TestMemorySourceApplyAllOrNothing(t *testing.T) {
	ctx := context.Background()
	src := NewMemorySource()
	src.Insert("employees", employee(1, 1))

	good := employee(1, 1)
	good.Set("name", "changed")
	err := src.Apply(ctx, []Change{
		{Table: "employees", Record: good},
		{Table: "employees", Record: employee(99, 1)},
	})
	if err == nil {
		t.Fatal("Apply with a missing record succeeded")
	}
	got, err := src.Fetch(ctx, "employees", models.Query{}, 0, 1)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got[0].Get("name") != "emp-1" {
		t.Errorf("stored name = %q, want the earlier change rolled back", got[0].Get("name"))
	}
}

func TestUndo(t *testing.T) {
	ctx := context.Background()
	src := newSource(6)
	dept, emp, empView := newDepartments(t, src)

	if err := dept.Move(ctx, 1); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if err := dept.QueryDetails(ctx); err != nil {
		t.Fatalf("QueryDetails: %v", err)
	}
	if err := emp.SetValue(ctx, 0, "name", "typo"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	rewinds := empView.rewinds

	if err := dept.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if dept.Dirty() || emp.Dirty() {
		t.Error("Dirty() = true after Undo")
	}
	if dept.Record() != 0 {
		t.Errorf("dept Record() = %d, want 0", dept.Record())
	}
	want := []string{"emp-0", "emp-2", "emp-4", ""}
	if diff := cmp.Diff(want, empView.shown); diff != "" {
		t.Errorf("details after undo mismatch (-want +got):\n%s", diff)
	}
	if empView.rewinds <= rewinds {
		t.Error("detail view was not rewound")
	}
	if len(src.applied) != 0 {
		t.Errorf("Undo wrote %d batches to the source", len(src.applied))
	}
}

func TestQueryEvents(t *testing.T) {
	ctx := context.Background()
	d := events.NewDispatcher(nil)
	var seen []events.Event
	d.AddListener(func(ctx context.Context, ev events.Event) events.Result {
		seen = append(seen, ev)
		return events.Proceed()
	})

	b := New(Options{Name: "emp", Table: "employees", Source: newSource(3), Events: d, Form: "hr"})
	b.Link(newFakeView(2))
	if _, err := b.Query(ctx, models.Query{}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []events.Event{
		{Type: events.PreQuery, Tier: models.TierModel, Form: "hr", Block: "emp"},
		{Type: events.PostQuery, Tier: models.TierModel, Form: "hr", Block: "emp"},
	}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	d.AddListener(func(ctx context.Context, ev events.Event) events.Result {
		if ev.Type == events.PreQuery {
			return events.Abort("locked")
		}
		return events.Proceed()
	})
	if err := b.Move(ctx, 1); err != nil {
		t.Fatalf("Move: %v", err)
	}
	ok, err := b.Query(ctx, models.Query{}.With("dept_id", "1"))
	if err != nil || ok {
		t.Fatalf("Query() = %v, %v; want false, nil", ok, err)
	}
	if b.Record() != 1 || b.Loaded() != 3 {
		t.Errorf("vetoed query changed the block: record %d loaded %d", b.Record(), b.Loaded())
	}
}

func TestFetchErrorWrapped(t *testing.T) {
	src := newSource(3)
	src.err = errors.New("no such table")
	b := New(Options{Name: "emp", Table: "employees", Source: src})
	b.Link(newFakeView(2))
	if _, err := b.Query(context.Background(), models.Query{}); !errors.Is(err, src.err) {
		t.Errorf("Query() error = %v, want %v", err, src.err)
	}
}
