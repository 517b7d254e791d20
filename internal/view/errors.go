package view

import "errors"

var (
	// ErrFinalized is returned when a block is finalized twice
	ErrFinalized = errors.New("block already finalized")
	// ErrOverlayExists is returned when a second overlay row is added
	ErrOverlayExists = errors.New("block already has an overlay row")
	// ErrNoFocus is returned by navigation on a form with no focused instance
	ErrNoFocus = errors.New("form has no focused field")
	// ErrReadOnly is returned when editing a field whose row is not open
	ErrReadOnly = errors.New("row is not open for input")
	// ErrUnknownForm is returned when a reference names no registered form
	ErrUnknownForm = errors.New("unknown form")
	// ErrUnknownBlock is returned when a reference names no block of its form
	ErrUnknownBlock = errors.New("unknown block")
	// ErrInvalidRecord is returned by Save when the focused row fails validation
	ErrInvalidRecord = errors.New("current record is not valid")
)
