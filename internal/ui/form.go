package ui

// form.go is the interactive page for one built form. Keys are translated
// into logical navigation keys and handed to the engine; everything drawn
// on screen is read back from the form's rows after each step.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/thesavant42/tableforms/internal/layout"
	"github.com/thesavant42/tableforms/internal/view"
)

const statusDuration = 4 * time.Second

// FormModel is the bubbletea model driving a form
type FormModel struct {
	PageState

	ctx    context.Context
	form   *layout.Form
	keys   keyMap
	logger *log.Logger

	query      textinput.Model
	querying   bool
	queryBlock string
}

// NewFormModel wraps a built and queried form and moves focus onto the
// first field of its first block.
func NewFormModel(ctx context.Context, form *layout.Form, logger *log.Logger) (FormModel, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	blocks := form.Blocks()
	if len(blocks) == 0 || blocks[0].Row(0) == nil {
		return FormModel{}, fmt.Errorf("form %s has nothing to focus", form.Name())
	}
	first := blocks[0].Row(0).Instances()
	if len(first) == 0 {
		return FormModel{}, fmt.Errorf("block %s has no fields", blocks[0].Name())
	}
	ok, err := form.Goto(ctx, first[0])
	if err != nil {
		return FormModel{}, fmt.Errorf("failed to focus form %s: %w", form.Name(), err)
	}
	if !ok {
		return FormModel{}, fmt.Errorf("focus on form %s refused: %s", form.Name(), form.LastAbort())
	}

	q := textinput.New()
	q.Placeholder = "column=value, order=column"
	q.CharLimit = 256

	return FormModel{
		PageState: NewPageState(DefaultLayout()),
		ctx:       ctx,
		form:      form,
		keys:      defaultKeyMap(),
		logger:    logger,
		query:     q,
	}, nil
}

// Form returns the form being edited
func (m FormModel) Form() *layout.Form {
	return m.form
}

// Dirty reports whether the form holds unsaved edits
func (m FormModel) Dirty() bool {
	return m.form.Dirty()
}

func (m FormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m FormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.ClearExpiredStatus()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.UpdateLayout(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if m.querying {
			return m.updateQuery(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Save):
			m.save()
			return m, nil
		case key.Matches(msg, m.keys.Undo):
			m.undo()
			return m, nil
		case key.Matches(msg, m.keys.Query):
			cmd := m.startQuery()
			return m, cmd
		}
		if k := m.keys.navigation(msg); k != view.KeyNone {
			m.navigate(k)
			return m, nil
		}
		cmd := m.typeKey(msg)
		return m, cmd
	}

	if m.querying {
		var cmd tea.Cmd
		m.query, cmd = m.query.Update(msg)
		return m, cmd
	}
	if c := cellOf(m.form.Focused()); c != nil {
		return m, c.update(msg)
	}
	return m, nil
}

// =============================================================================
// Actions
// =============================================================================

func (m *FormModel) navigate(k view.Key) {
	_, err := m.form.Navigate(m.ctx, k)
	if err != nil {
		m.logger.Warn("navigation failed", "key", k, "err", err)
		m.SetStatus(err.Error(), statusDuration)
		return
	}
	reason := m.form.LastAbort()
	if reason == "" {
		return
	}
	if inst := m.form.Focused(); inst != nil {
		if err := inst.Field().Check(); err != nil {
			reason = err.Error()
		}
	}
	m.SetStatus(reason, statusDuration)
}

// typeKey feeds a key to the focused cell and records the new value
func (m *FormModel) typeKey(msg tea.KeyMsg) tea.Cmd {
	inst := m.form.Focused()
	c := cellOf(inst)
	if c == nil {
		return nil
	}
	if !c.editable() {
		if msg.Type == tea.KeyRunes {
			m.SetStatus(view.ErrReadOnly.Error(), statusDuration)
		}
		return nil
	}

	before := c.Value()
	cmd := c.update(msg)
	after := c.Value()
	if after == before {
		return cmd
	}
	if err := m.form.Edit(m.ctx, inst, after); err != nil {
		c.input.SetValue(before)
		m.logger.Warn("edit rejected", "field", inst.Name(), "err", err)
		m.SetStatus(err.Error(), statusDuration)
	}
	return cmd
}

func (m *FormModel) save() {
	if !m.form.Dirty() {
		m.SetStatus("Nothing to save", statusDuration)
		return
	}
	if err := m.form.Save(m.ctx); err != nil {
		m.logger.Error("save failed", "form", m.form.Name(), "err", err)
		m.SetStatus(err.Error(), statusDuration)
		return
	}
	m.SetStatus("Saved", statusDuration)
}

func (m *FormModel) undo() {
	if !m.form.Dirty() {
		m.SetStatus("Nothing to undo", statusDuration)
		return
	}
	if err := m.form.Undo(m.ctx); err != nil {
		m.logger.Error("undo failed", "form", m.form.Name(), "err", err)
		m.SetStatus(err.Error(), statusDuration)
		return
	}
	m.SetStatus("Changes discarded", statusDuration)
}

func (m *FormModel) startQuery() tea.Cmd {
	inst := m.form.Focused()
	if inst == nil {
		return nil
	}
	m.querying = true
	m.queryBlock = inst.Block().Name()
	m.query.SetValue("")
	return m.query.Focus()
}

func (m FormModel) updateQuery(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.querying = false
		m.query.Blur()
		return m, nil
	case tea.KeyEnter:
		m.querying = false
		m.query.Blur()
		m.runQuery(m.query.Value())
		return m, nil
	}
	var cmd tea.Cmd
	m.query, cmd = m.query.Update(msg)
	return m, cmd
}

func (m *FormModel) runQuery(text string) {
	q, err := ParseQuery(text)
	if err != nil {
		m.SetStatus(err.Error(), statusDuration)
		return
	}
	ok, err := m.form.QueryBlock(m.ctx, m.queryBlock, q)
	switch {
	case errors.Is(err, layout.ErrUnsaved):
		m.SetStatus("Save (ctrl+s) or undo (ctrl+z) changes before querying", statusDuration)
	case err != nil:
		m.logger.Error("query failed", "block", m.queryBlock, "err", err)
		m.SetStatus(err.Error(), statusDuration)
	case !ok:
		m.SetStatus("Query refused", statusDuration)
	default:
		mb := m.form.Model(m.queryBlock)
		m.SetStatus(fmt.Sprintf("%s records", countLabel(mb.Loaded(), mb.EOF())), statusDuration)
	}
}

// =============================================================================
// Rendering
// =============================================================================

func (m FormModel) View() string {
	if m.Quitting {
		return ""
	}

	var b strings.Builder
	title := m.form.Def.Title
	if title == "" {
		title = m.form.Name()
	}
	subtitle := ""
	if m.form.Dirty() {
		subtitle = "modified"
	}
	b.WriteString(ViewHeaderWithSubtitle(title, subtitle, m.Layout.InnerWidth))

	focused := m.form.Focused()
	for _, bd := range m.form.Def.Blocks {
		vb := m.form.Block(bd.Name)
		if vb == nil {
			continue
		}
		active := focused != nil && focused.Block() == vb
		b.WriteString(m.renderBlock(bd, vb, active))
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine())

	content := PadContentToHeight(b.String(), m.Layout.ViewportHeight-5)
	return BuildTwoBoxView(content, m.keys.helpText(), m.Layout)
}

func (m FormModel) renderBlock(bd layout.BlockDef, vb *view.Block, active bool) string {
	var b strings.Builder

	heading := bd.Title
	if heading == "" {
		heading = bd.Name
	}
	if active {
		b.WriteString(AccentStyle.Render(heading))
	} else {
		b.WriteString(RenderNormal(heading))
	}
	if mb := m.form.Model(bd.Name); mb != nil && mb.Loaded() > 0 {
		b.WriteString(RenderDim(fmt.Sprintf("  %d/%s", mb.Record()+1, countLabel(mb.Loaded(), mb.EOF()))))
	}
	b.WriteString("\n")

	fields := bd.ListFields()
	widths := GridWidths(bd, m.Layout)
	gap := strings.Repeat(" ", CellGap)

	b.WriteString("  ")
	for i, fd := range fields {
		b.WriteString(HeaderStyle.Render(FitCell(fd.Label, widths[i])))
		b.WriteString(gap)
	}
	b.WriteString("\n")

	for _, row := range vb.Rows() {
		marker := "  "
		if row.Current() && active {
			marker = AccentStyle.Render("▶ ")
		}
		b.WriteString(marker)
		for i, fd := range fields {
			b.WriteString(renderField(row, fd.Name, widths[i], row.Current()))
			b.WriteString(gap)
		}
		b.WriteString("\n")
	}

	if ov := vb.Overlay(); ov != nil {
		b.WriteString(m.renderOverlay(bd, ov))
	}
	return b.String()
}

// renderOverlay draws the single record panel as label: value lines
func (m FormModel) renderOverlay(bd layout.BlockDef, ov *view.Row) string {
	labelWidth := 0
	for _, fd := range bd.Fields {
		if w := StringWidth(fd.Label); w > labelWidth {
			labelWidth = w
		}
	}

	var b strings.Builder
	b.WriteString(FullWidthDivider(m.Layout.InnerWidth))
	b.WriteString("\n")
	for _, fd := range bd.Fields {
		width := ClampWidth(fd.Width, 4, m.Layout.InnerWidth-labelWidth-4)
		b.WriteString("  ")
		b.WriteString(DimStyle.Render(FitCell(fd.Label, labelWidth)))
		b.WriteString(" ")
		b.WriteString(renderField(ov, fd.Name, width, false))
		b.WriteString("\n")
	}
	return b.String()
}

func renderField(row *view.Row, name string, width int, current bool) string {
	f := row.Field(name)
	if f == nil {
		return strings.Repeat(" ", width)
	}
	c := cellOf(f.Instance(0))
	if c == nil {
		return FitCell(f.Value(), width)
	}
	return c.render(width, current)
}

func (m FormModel) statusLine() string {
	switch {
	case m.querying:
		return AccentStyle.Render("Query "+m.queryBlock+": ") + m.query.View()
	case m.HasStatus():
		return StatusStyle.Render(m.StatusMsg)
	}
	if inst := m.form.Focused(); inst != nil {
		return RenderDim(inst.Block().Name() + "." + inst.Name())
	}
	return ""
}

// countLabel renders a record count, marking counts with more to fetch
func countLabel(loaded int, eof bool) string {
	if eof {
		return fmt.Sprintf("%d", loaded)
	}
	return fmt.Sprintf("%d+", loaded)
}

var _ tea.Model = FormModel{}
