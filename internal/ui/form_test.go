package ui

import (
	"context"
	"strconv"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/thesavant42/tableforms/internal/layout"
	"github.com/thesavant42/tableforms/internal/model"
	"github.com/thesavant42/tableforms/internal/models"
	"github.com/thesavant42/tableforms/internal/view"
)

func testSource() *model.MemorySource {
	src := model.NewMemorySource()
	for _, d := range []struct {
		id   int
		name string
	}{{10, "Accounting"}, {20, "Research"}} {
		r := models.NewRecord(int64(d.id), []string{"id", "name", "location"})
		r.Load("id", strconv.Itoa(d.id))
		r.Load("name", d.name)
		src.Insert("departments", r)
	}
	for i, e := range []struct {
		name string
		dept int
	}{{"King", 10}, {"Clark", 10}, {"Ford", 20}, {"Adams", 20}, {"Scott", 20}} {
		r := models.NewRecord(int64(7000+i), []string{"id", "name", "job", "salary", "hired", "dept_id"})
		r.Load("id", strconv.Itoa(7000+i))
		r.Load("name", e.name)
		r.Load("dept_id", strconv.Itoa(e.dept))
		src.Insert("employees", r)
	}
	return src
}

func newTestModel(t *testing.T) (FormModel, *model.MemorySource) {
	t.Helper()
	ctx := context.Background()
	src := testSource()
	form, err := layout.Build(view.NewSession(nil), layout.Default(), src, NewCell)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := form.Query(ctx); err != nil {
		t.Fatalf("Query: %v", err)
	}
	m, err := NewFormModel(ctx, form, nil)
	if err != nil {
		t.Fatalf("NewFormModel: %v", err)
	}
	return m, src
}

func press(m FormModel, msgs ...tea.Msg) FormModel {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(FormModel)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func rowNames(b *view.Block) []string {
	var out []string
	for _, r := range b.Rows() {
		if r.Unused() {
			continue
		}
		out = append(out, r.Field("name").Value())
	}
	return out
}

func TestNewFormModelFocusesFirstBlock(t *testing.T) {
	m, _ := newTestModel(t)

	inst := m.Form().Focused()
	if inst == nil {
		t.Fatal("no focused field")
	}
	if got := inst.Block().Name() + "." + inst.Name(); got != "dept.id" {
		t.Errorf("focus = %s, want dept.id", got)
	}
	if diff := cmp.Diff([]string{"Clark", "King"}, rowNames(m.Form().Block("emp"))); diff != "" {
		t.Errorf("employees of dept 10 (-want +got):\n%s", diff)
	}
}

func TestFormModelNextRecordRequeriesDetail(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyDown})

	dept := m.Form().Block("dept")
	if got := dept.CurrentRow(); got != 1 {
		t.Errorf("dept current row = %d, want 1", got)
	}
	if diff := cmp.Diff([]string{"Adams", "Ford", "Scott"}, rowNames(m.Form().Block("emp"))); diff != "" {
		t.Errorf("employees of dept 20 (-want +got):\n%s", diff)
	}
}

func TestFormModelNextRecordOnUnusedRow(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})

	if got := m.Form().Block("dept").CurrentRow(); got != 1 {
		t.Errorf("dept current row = %d, want 1", got)
	}
}

func TestFormModelTypingEditsRecord(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyTab}, runes("Z"))

	inst := m.Form().Focused()
	if inst.Name() != "name" {
		t.Fatalf("focus = %s, want name", inst.Name())
	}
	value := inst.Value()
	if !strings.Contains(value, "Z") {
		t.Fatalf("field value = %q, want the typed rune", value)
	}
	if got := m.Form().Model("dept").Current().Get("name"); got != value {
		t.Errorf("model value = %q, want %q", got, value)
	}
	if !m.Dirty() {
		t.Error("form should be dirty after typing")
	}
}

func TestFormModelSave(t *testing.T) {
	m, src := newTestModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyTab}, runes("Z"), tea.KeyMsg{Type: tea.KeyCtrlS})

	if m.Dirty() {
		t.Error("form still dirty after save")
	}
	if m.StatusMsg != "Saved" {
		t.Errorf("status = %q, want Saved", m.StatusMsg)
	}
	recs, err := src.Fetch(context.Background(), "departments", models.Query{Where: map[string]string{"id": "10"}}, 0, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(recs) != 1 || !strings.Contains(recs[0].Get("name"), "Z") {
		t.Errorf("stored department = %v, want edited name", recs)
	}
}

func TestFormModelSaveNothing(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlS})

	if m.StatusMsg != "Nothing to save" {
		t.Errorf("status = %q", m.StatusMsg)
	}
}

func TestFormModelQuery(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlF}, runes("id=20"))
	if !m.querying {
		t.Fatal("ctrl+f should enter query mode")
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.querying {
		t.Error("enter should leave query mode")
	}
	if diff := cmp.Diff([]string{"Research"}, rowNames(m.Form().Block("dept"))); diff != "" {
		t.Errorf("departments (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Adams", "Ford", "Scott"}, rowNames(m.Form().Block("emp"))); diff != "" {
		t.Errorf("employees (-want +got):\n%s", diff)
	}
	if m.StatusMsg != "1 records" {
		t.Errorf("status = %q, want 1 records", m.StatusMsg)
	}
}

func TestFormModelQueryBound(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlF}, runes("id<20"), tea.KeyMsg{Type: tea.KeyEnter})

	if diff := cmp.Diff([]string{"Accounting"}, rowNames(m.Form().Block("dept"))); diff != "" {
		t.Errorf("departments (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Clark", "King"}, rowNames(m.Form().Block("emp"))); diff != "" {
		t.Errorf("employees (-want +got):\n%s", diff)
	}
}

func TestFormModelQueryCancelled(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlF}, runes("id=20"), tea.KeyMsg{Type: tea.KeyEsc})

	if m.querying {
		t.Error("esc should leave query mode")
	}
	if m.Quitting {
		t.Error("esc in query mode should not quit")
	}
	if diff := cmp.Diff([]string{"Accounting", "Research"}, rowNames(m.Form().Block("dept"))); diff != "" {
		t.Errorf("departments (-want +got):\n%s", diff)
	}
}

func TestFormModelQueryRefusesUnsaved(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m,
		tea.KeyMsg{Type: tea.KeyTab}, runes("Z"),
		tea.KeyMsg{Type: tea.KeyCtrlF}, tea.KeyMsg{Type: tea.KeyEnter},
	)

	if !strings.Contains(m.StatusMsg, "ctrl+z") {
		t.Errorf("status = %q", m.StatusMsg)
	}
	if !m.Dirty() {
		t.Error("edit was discarded")
	}
}

func TestFormModelUndo(t *testing.T) {
	m, src := newTestModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyTab}, runes("Z"))
	if !m.Dirty() {
		t.Fatal("form should be dirty after typing")
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlZ})

	if m.Dirty() {
		t.Error("form still dirty after undo")
	}
	if m.StatusMsg != "Changes discarded" {
		t.Errorf("status = %q, want Changes discarded", m.StatusMsg)
	}
	if got := m.Form().Focused().Value(); got != "Accounting" {
		t.Errorf("focused value = %q, want Accounting", got)
	}
	recs, err := src.Fetch(context.Background(), "departments", models.Query{Where: map[string]string{"id": "10"}}, 0, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(recs) != 1 || recs[0].Get("name") != "Accounting" {
		t.Errorf("stored department = %v, want it untouched", recs)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlZ})
	if m.StatusMsg != "Nothing to undo" {
		t.Errorf("status = %q, want Nothing to undo", m.StatusMsg)
	}

	// a query goes through once the edit is gone
	m = press(m, tea.KeyMsg{Type: tea.KeyTab}, runes("Z"), tea.KeyMsg{Type: tea.KeyCtrlZ})
	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlF}, runes("id=20"), tea.KeyMsg{Type: tea.KeyEnter})
	if diff := cmp.Diff([]string{"Research"}, rowNames(m.Form().Block("dept"))); diff != "" {
		t.Errorf("departments (-want +got):\n%s", diff)
	}
}

func TestFormModelQuit(t *testing.T) {
	m, _ := newTestModel(t)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(FormModel)

	if !m.Quitting {
		t.Error("esc should quit")
	}
	if cmd == nil {
		t.Error("expected a quit command")
	}
	if m.View() != "" {
		t.Error("view should be empty once quitting")
	}
}

func TestFormModelView(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(m, tea.WindowSizeMsg{Width: 120, Height: 40})

	out := m.View()
	for _, want := range []string{"Departments and Employees", "Accounting", "Research", "Clark", "Hired"} {
		if !strings.Contains(out, want) {
			t.Errorf("view is missing %q", want)
		}
	}
}
