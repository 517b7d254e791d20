package view

// Key is a logical navigation key, independent of the physical keymap
type Key int

const (
	KeyNone Key = iota
	KeyNextField
	KeyPrevField
	KeyNextRecord
	KeyPrevRecord
	KeyPageUp
	KeyPageDown
	KeyNextBlock
	KeyPrevBlock
)

var keyNames = map[Key]string{
	KeyNone:       "none",
	KeyNextField:  "next-field",
	KeyPrevField:  "prev-field",
	KeyNextRecord: "next-record",
	KeyPrevRecord: "prev-record",
	KeyPageUp:     "page-up",
	KeyPageDown:   "page-down",
	KeyNextBlock:  "next-block",
	KeyPrevBlock:  "prev-block",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "unknown"
}
