package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/thesavant42/tableforms/internal/layout"
	"github.com/thesavant42/tableforms/internal/view"
)

// cell is the on-screen widget of one field instance
type cell struct {
	input    textinput.Model
	label    string
	enabled  bool
	readonly bool
	invalid  bool
}

// NewCell creates the widget for one field instance. It satisfies
// layout.WidgetFactory.
func NewCell(block string, field layout.FieldDef, row int) view.Widget {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 256
	ti.Width = field.Width
	return &cell{input: ti, label: field.Label}
}

func (c *cell) Value() string {
	return c.input.Value()
}

func (c *cell) SetValue(v string) {
	v = sanitizeInput(v)
	if v != c.input.Value() {
		c.input.SetValue(v)
	}
}

func (c *cell) Focus() {
	c.input.Focus()
}

func (c *cell) Blur() {
	c.input.Blur()
}

func (c *cell) SetEnabled(b bool) {
	c.enabled = b
}

func (c *cell) SetReadOnly(b bool) {
	c.readonly = b
}

func (c *cell) SetInvalid(b bool) {
	c.invalid = b
}

// editable reports whether keystrokes may change the value
func (c *cell) editable() bool {
	return c.enabled && !c.readonly
}

// update feeds a message to the text input
func (c *cell) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return cmd
}

// render draws the cell width columns wide
func (c *cell) render(width int, current bool) string {
	if c.input.Focused() {
		c.input.Width = width - 1
		return lipgloss.NewStyle().Width(width).MaxWidth(width).Render(c.input.View())
	}
	text := FitCell(c.input.Value(), width)
	switch {
	case !c.enabled:
		return DimStyle.Render(text)
	case c.invalid:
		return InvalidStyle.Render(text)
	case current:
		return SelectedStyle.Render(text)
	default:
		return NormalStyle.Render(text)
	}
}

// cellOf returns the cell behind an instance, or nil for foreign widgets
func cellOf(inst *view.Instance) *cell {
	if inst == nil {
		return nil
	}
	c, _ := inst.Widget().(*cell)
	return c
}
