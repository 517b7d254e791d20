package layout

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/thesavant42/tableforms/internal/model"
	"github.com/thesavant42/tableforms/internal/models"
	"github.com/thesavant42/tableforms/internal/view"
)

// ErrUnsaved is returned when a query would discard edited records
var ErrUnsaved = errors.New("block has unsaved changes")

// WidgetFactory creates the widget for one field instance. row is the list
// row number, or view.OverlayRow.
type WidgetFactory func(block string, field FieldDef, row int) view.Widget

// Form is a built form together with the model blocks behind it
type Form struct {
	*view.Form
	Def    *FormDef
	models map[string]*model.Block
}

// Model returns the model block linked to the named view block
func (f *Form) Model(block string) *model.Block {
	return f.models[strings.ToLower(block)]
}

// Query runs the initial query of every block that follows no master.
// Detail blocks are filled through their masters.
func (f *Form) Query(ctx context.Context) error {
	for _, b := range f.Def.Blocks {
		if b.Master != nil {
			continue
		}
		if _, err := f.models[b.Name].Query(ctx, models.Query{}); err != nil {
			return fmt.Errorf("failed to query block %s: %w", b.Name, err)
		}
	}
	return nil
}

// QueryBlock re-queries one block. A block holding unsaved edits is left
// alone; a PreQuery veto reports false.
func (f *Form) QueryBlock(ctx context.Context, block string, q models.Query) (bool, error) {
	mb := f.Model(block)
	if mb == nil {
		return false, fmt.Errorf("%w: %s", view.ErrUnknownBlock, block)
	}
	if mb.Dirty() {
		return false, ErrUnsaved
	}
	return mb.Query(ctx, q)
}

// Save validates the focused row and writes the dirty records of every
// block in one batch, so the source stores all of them or none
func (f *Form) Save(ctx context.Context) error {
	ok, err := f.Validate(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return view.ErrInvalidRecord
	}
	return f.Do(ctx, func(ctx context.Context) error {
		var roots []*model.Block
		for _, b := range f.Def.Blocks {
			if b.Master == nil {
				roots = append(roots, f.models[b.Name])
			}
		}
		return model.Save(ctx, roots...)
	})
}

// Close drops the form from its session
func (f *Form) Close(ctx context.Context) error {
	return f.Session().Drop(ctx, f.Form)
}

// Build creates the form described by def in sess: one view block per
// block definition with its list rows and overlay, a model block over
// src, and the master/detail links. A nil factory gives headless widgets.
func Build(sess *view.Session, def *FormDef, src model.Source, factory WidgetFactory) (*Form, error) {
	if src == nil {
		return nil, errors.New("build: no record source")
	}
	if factory == nil {
		factory = func(string, FieldDef, int) view.Widget { return &plainWidget{} }
	}

	vf, err := sess.NewForm(def.Name)
	if err != nil {
		return nil, err
	}
	form := &Form{Form: vf, Def: def, models: make(map[string]*model.Block)}
	// nothing navigates a form that is still being built
	discard := func() { sess.Drop(context.Background(), vf) }

	for _, bd := range def.Blocks {
		vb := view.NewBlock(bd.Name)
		for n := 0; n < bd.Rows; n++ {
			if err := vb.AddRow(buildRow(bd, n, factory)); err != nil {
				discard()
				return nil, fmt.Errorf("block %s: %w", bd.Name, err)
			}
		}
		if bd.Overlay {
			if err := vb.AddRow(buildRow(bd, view.OverlayRow, factory)); err != nil {
				discard()
				return nil, fmt.Errorf("block %s: %w", bd.Name, err)
			}
		}
		if err := vf.AddBlock(vb); err != nil {
			discard()
			return nil, err
		}

		mb := model.New(model.Options{
			Name:      bd.Name,
			Table:     bd.Table,
			Source:    src,
			Logger:    sess.Logger().WithPrefix("model"),
			Events:    sess.Dispatcher(),
			Form:      def.Name,
			FetchSize: bd.FetchSize,
			OrderBy:   bd.OrderBy,
		})
		vb.Link(mb)
		mb.Link(vb)
		form.models[bd.Name] = mb
	}

	for _, bd := range def.Blocks {
		if bd.Master == nil {
			continue
		}
		master := form.models[bd.Master.Block]
		master.AddDetail(form.models[bd.Name], bd.Master.Column, bd.Master.DetailColumn)
	}

	if err := vf.Finalize(); err != nil {
		discard()
		return nil, err
	}
	sess.Logger().Debug("built form", "form", def.Name, "blocks", len(def.Blocks))
	return form, nil
}

func buildRow(bd BlockDef, n int, factory WidgetFactory) *view.Row {
	r := view.NewRow(n)
	fields := bd.ListFields()
	if n == view.OverlayRow {
		fields = bd.Fields
	}
	for _, fd := range fields {
		f := view.NewField(fd.Name)
		f.AddInstance(factory(bd.Name, fd, n))
		f.SetRequired(fd.Required)
		if v := validator(fd); v != nil {
			f.SetValidator(v)
		}
		// names are unique after normalize
		_ = r.AddField(f)
	}
	return r
}

func validator(fd FieldDef) func(string) error {
	var re *regexp.Regexp
	if fd.Pattern != "" {
		re = regexp.MustCompile(fd.Pattern)
	}
	if !fd.Numeric && re == nil {
		return nil
	}
	label := fd.Label
	return func(value string) error {
		if value == "" {
			return nil
		}
		if fd.Numeric {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				return fmt.Errorf("%s must be a number", label)
			}
		}
		if re != nil && !re.MatchString(value) {
			return fmt.Errorf("%s has an invalid format", label)
		}
		return nil
	}
}

// plainWidget holds a value without rendering it
type plainWidget struct {
	value    string
	focused  bool
	enabled  bool
	readonly bool
	invalid  bool
}

func (w *plainWidget) Value() string {
	return w.value
}

func (w *plainWidget) SetValue(v string) {
	w.value = v
}

func (w *plainWidget) Focus() {
	w.focused = true
}

func (w *plainWidget) Blur() {
	w.focused = false
}

func (w *plainWidget) SetEnabled(b bool) {
	w.enabled = b
}

func (w *plainWidget) SetReadOnly(b bool) {
	w.readonly = b
}

func (w *plainWidget) SetInvalid(b bool) {
	w.invalid = b
}
