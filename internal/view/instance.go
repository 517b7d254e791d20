package view

// Widget is one rendered occurrence of a field, supplied by the front end.
// The engine never draws; it only reads and writes through this interface.
type Widget interface {
	Value() string
	SetValue(value string)
	Focus()
	Blur()
	SetEnabled(enabled bool)
	SetReadOnly(readonly bool)
	SetInvalid(invalid bool)
}

// Instance is the unit that receives focus: one widget of one field.
type Instance struct {
	field  *Field
	entry  int
	widget Widget
}

// Field returns the owning field
func (i *Instance) Field() *Field {
	return i.field
}

// Name returns the owning field's name
func (i *Instance) Name() string {
	return i.field.name
}

// Entry returns the index of this instance within its field
func (i *Instance) Entry() int {
	return i.entry
}

// Row returns the row number of the owning row (OverlayRow for the overlay)
func (i *Instance) Row() int {
	return i.field.row.number
}

// Block returns the block owning the instance's row
func (i *Instance) Block() *Block {
	return i.field.row.block
}

// Widget returns the rendered widget
func (i *Instance) Widget() Widget {
	return i.widget
}

// Value returns the widget's current value
func (i *Instance) Value() string {
	return i.widget.Value()
}
