// Package layout describes forms in YAML and builds them into live view
// and model blocks.
package layout

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultForm []byte

// DefaultWidth is the column width of a field without one
const DefaultWidth = 12

// FormDef is the YAML description of a form
type FormDef struct {
	Name   string     `yaml:"name"`
	Title  string     `yaml:"title"`
	Blocks []BlockDef `yaml:"blocks"`
}

// BlockDef describes one block and the table behind it
type BlockDef struct {
	Name      string     `yaml:"name"`
	Title     string     `yaml:"title"`
	Table     string     `yaml:"table"`
	Rows      int        `yaml:"rows"`
	Overlay   bool       `yaml:"overlay"`
	OrderBy   string     `yaml:"order_by"`
	FetchSize int        `yaml:"fetch_size"`
	Master    *MasterDef `yaml:"master"`
	Fields    []FieldDef `yaml:"fields"`
}

// MasterDef links a detail block to the block it follows
type MasterDef struct {
	Block        string `yaml:"block"`
	Column       string `yaml:"column"`
	DetailColumn string `yaml:"detail_column"`
}

// FieldDef describes a column shown by a block
type FieldDef struct {
	Name     string `yaml:"name"`
	Label    string `yaml:"label"`
	Width    int    `yaml:"width"`
	Required bool   `yaml:"required"`
	Numeric  bool   `yaml:"numeric"`
	Pattern  string `yaml:"pattern"`
	Overlay  bool   `yaml:"overlay_only"`
}

// Parse decodes and checks a form definition
func Parse(data []byte) (*FormDef, error) {
	var def FormDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse form definition: %w", err)
	}
	if err := def.normalize(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Load reads a form definition from a file
func Load(path string) (*FormDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form definition: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in departments/employees form
func Default() *FormDef {
	def, err := Parse(defaultForm)
	if err != nil {
		panic(fmt.Sprintf("built-in form is invalid: %v", err))
	}
	return def
}

// Block returns the named block definition, or nil
func (d *FormDef) Block(name string) *BlockDef {
	for i := range d.Blocks {
		if d.Blocks[i].Name == strings.ToLower(name) {
			return &d.Blocks[i]
		}
	}
	return nil
}

// normalize lowercases names, fills defaults and rejects inconsistent
// definitions
func (d *FormDef) normalize() error {
	d.Name = strings.ToLower(strings.TrimSpace(d.Name))
	if d.Name == "" {
		return errors.New("form definition has no name")
	}
	if d.Title == "" {
		d.Title = d.Name
	}
	if len(d.Blocks) == 0 {
		return fmt.Errorf("form %s has no blocks", d.Name)
	}

	seen := make(map[string]bool)
	for i := range d.Blocks {
		b := &d.Blocks[i]
		b.Name = strings.ToLower(strings.TrimSpace(b.Name))
		if b.Name == "" {
			return fmt.Errorf("form %s: block %d has no name", d.Name, i)
		}
		if seen[b.Name] {
			return fmt.Errorf("form %s: duplicate block %q", d.Name, b.Name)
		}
		seen[b.Name] = true
		if b.Table == "" {
			b.Table = b.Name
		}
		b.Table = strings.ToLower(b.Table)
		if b.Rows <= 0 {
			b.Rows = 1
		}
		if b.Title == "" {
			b.Title = b.Name
		}
		if err := b.normalizeFields(); err != nil {
			return fmt.Errorf("form %s: %w", d.Name, err)
		}
	}

	for _, b := range d.Blocks {
		if b.Master == nil {
			continue
		}
		m := b.Master
		m.Block = strings.ToLower(m.Block)
		m.Column = strings.ToLower(m.Column)
		m.DetailColumn = strings.ToLower(m.DetailColumn)
		if m.Block == b.Name || !seen[m.Block] {
			return fmt.Errorf("form %s: block %s follows unknown master %q", d.Name, b.Name, m.Block)
		}
		if m.Column == "" || m.DetailColumn == "" {
			return fmt.Errorf("form %s: block %s: master link needs column and detail_column", d.Name, b.Name)
		}
	}
	return nil
}

func (b *BlockDef) normalizeFields() error {
	if len(b.Fields) == 0 {
		return fmt.Errorf("block %s has no fields", b.Name)
	}
	seen := make(map[string]bool)
	for i := range b.Fields {
		f := &b.Fields[i]
		f.Name = strings.ToLower(strings.TrimSpace(f.Name))
		if f.Name == "" {
			return fmt.Errorf("block %s: field %d has no name", b.Name, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("block %s: duplicate field %q", b.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Label == "" {
			f.Label = f.Name
		}
		if f.Width <= 0 {
			f.Width = DefaultWidth
		}
		if f.Overlay && !b.Overlay {
			return fmt.Errorf("block %s: field %s is overlay_only but the block has no overlay", b.Name, f.Name)
		}
		if f.Pattern != "" {
			if _, err := regexp.Compile(f.Pattern); err != nil {
				return fmt.Errorf("block %s: field %s: bad pattern: %w", b.Name, f.Name, err)
			}
		}
	}
	return nil
}

// ListFields returns the fields shown in list rows
func (b *BlockDef) ListFields() []FieldDef {
	var out []FieldDef
	for _, f := range b.Fields {
		if !f.Overlay {
			out = append(out, f)
		}
	}
	return out
}
