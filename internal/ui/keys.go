package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/thesavant42/tableforms/internal/view"
)

type keyMap struct {
	NextField  key.Binding
	PrevField  key.Binding
	NextRecord key.Binding
	PrevRecord key.Binding
	PageDown   key.Binding
	PageUp     key.Binding
	NextBlock  key.Binding
	PrevBlock  key.Binding
	Save       key.Binding
	Undo       key.Binding
	Query      key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextField: key.NewBinding(
			key.WithKeys("tab", "enter"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev field"),
		),
		NextRecord: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "next record"),
		),
		PrevRecord: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "prev record"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page back"),
		),
		NextBlock: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "next block"),
		),
		PrevBlock: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "prev block"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Undo: key.NewBinding(
			key.WithKeys("ctrl+z"),
			key.WithHelp("ctrl+z", "undo"),
		),
		Query: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("ctrl+f", "query"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// navigation translates a key press into a logical navigation key
func (k keyMap) navigation(msg tea.KeyMsg) view.Key {
	switch {
	case key.Matches(msg, k.NextField):
		return view.KeyNextField
	case key.Matches(msg, k.PrevField):
		return view.KeyPrevField
	case key.Matches(msg, k.NextRecord):
		return view.KeyNextRecord
	case key.Matches(msg, k.PrevRecord):
		return view.KeyPrevRecord
	case key.Matches(msg, k.PageDown):
		return view.KeyPageDown
	case key.Matches(msg, k.PageUp):
		return view.KeyPageUp
	case key.Matches(msg, k.NextBlock):
		return view.KeyNextBlock
	case key.Matches(msg, k.PrevBlock):
		return view.KeyPrevBlock
	}
	return view.KeyNone
}

// helpText renders the bindings as "key: action | key: action"
func (k keyMap) helpText() string {
	bindings := []key.Binding{k.NextField, k.NextRecord, k.PageDown, k.NextBlock, k.Query, k.Save, k.Undo, k.Quit}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, " | ")
}
