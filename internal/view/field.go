package view

import (
	"errors"
	"strings"
)

// Field is a named input within a row, rendered by one or more instances
type Field struct {
	name      string
	row       *Row
	instances []*Instance
	validator func(string) error
	required  bool
	dirty     bool
}

// NewField creates a field. Names are case-insensitive.
func NewField(name string) *Field {
	return &Field{name: strings.ToLower(name)}
}

// Name returns the lowercase field name
func (f *Field) Name() string {
	return f.name
}

// Row returns the owning row (nil until added to a row)
func (f *Field) Row() *Row {
	return f.row
}

// AddInstance attaches a widget as a new instance of the field
func (f *Field) AddInstance(w Widget) *Instance {
	inst := &Instance{field: f, entry: len(f.instances), widget: w}
	f.instances = append(f.instances, inst)
	return inst
}

// Instances returns the field's instances in entry order
func (f *Field) Instances() []*Instance {
	return f.instances
}

// Instance returns the instance with the given entry, or nil
func (f *Field) Instance(entry int) *Instance {
	if entry < 0 || entry >= len(f.instances) {
		return nil
	}
	return f.instances[entry]
}

// SetValidator installs a validation function run by Row.Validate
func (f *Field) SetValidator(fn func(string) error) {
	f.validator = fn
}

// SetRequired marks the field as mandatory
func (f *Field) SetRequired(required bool) {
	f.required = required
}

// Value returns the value shown by the first instance
func (f *Field) Value() string {
	if len(f.instances) == 0 {
		return ""
	}
	return f.instances[0].widget.Value()
}

// Dirty reports whether the last distributed value was an edit
func (f *Field) Dirty() bool {
	return f.dirty
}

func (f *Field) distribute(value string, dirty bool) {
	f.dirty = dirty
	for _, inst := range f.instances {
		inst.widget.SetValue(value)
	}
}

// Check runs the field's validation without touching the widgets
func (f *Field) Check() error {
	return f.check()
}

func (f *Field) check() error {
	value := strings.TrimSpace(f.Value())
	if f.required && value == "" {
		return errors.New(f.name + " is required")
	}
	if f.validator != nil {
		return f.validator(value)
	}
	return nil
}

func (f *Field) validate() bool {
	err := f.check()
	for _, inst := range f.instances {
		inst.widget.SetInvalid(err != nil)
	}
	return err == nil
}

func (f *Field) setState(state RowState) {
	for _, inst := range f.instances {
		inst.widget.SetEnabled(state != StateDisabled)
		inst.widget.SetReadOnly(state == StateReadOnly)
	}
}
