package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/thesavant42/tableforms/internal/events"
	"github.com/thesavant42/tableforms/internal/models"
)

// Form owns a set of blocks and the instance that currently holds focus.
// Navigation entry points are serialized per form.
type Form struct {
	name    string
	session *Session
	blocks  []*Block
	index   map[string]*Block
	focused *Instance
	handles []events.Handle

	// guard is a one-slot semaphore held for the whole of a navigation
	guard chan struct{}
	// echo is the instance being focused by the engine itself; focus
	// notifications for it are not navigation requests
	echo atomic.Pointer[Instance]

	lastAbort string
}

func newForm(s *Session, name string) *Form {
	return &Form{
		name:    strings.ToLower(name),
		session: s,
		index:   make(map[string]*Block),
		guard:   make(chan struct{}, 1),
	}
}

// Name returns the lowercase form name
func (f *Form) Name() string {
	return f.name
}

// Session returns the session the form belongs to
func (f *Form) Session() *Session {
	return f.session
}

// AddBlock attaches a block; block names are unique within a form
func (f *Form) AddBlock(b *Block) error {
	if _, ok := f.index[b.name]; ok {
		return fmt.Errorf("duplicate block %q in form %s", b.name, f.name)
	}
	b.form = f
	f.blocks = append(f.blocks, b)
	f.index[b.name] = b
	f.session.logger.Debug("add block", "form", f.name, "block", b.name)
	return nil
}

// Block returns the named block, or nil
func (f *Form) Block(name string) *Block {
	return f.index[strings.ToLower(name)]
}

// Blocks returns the blocks in the order they were added
func (f *Form) Blocks() []*Block {
	return f.blocks
}

// Field returns a field of a block's current row (row 0 before activation)
func (f *Form) Field(block, field string) *Field {
	b := f.Block(block)
	if b == nil {
		return nil
	}
	row := b.Row(0)
	if b.current >= 0 {
		row = b.Row(b.current)
	}
	if row == nil {
		return nil
	}
	return row.Field(strings.ToLower(field))
}

// Finalize finalizes every block of the form
func (f *Form) Finalize() error {
	var errs []error
	for _, b := range f.blocks {
		if err := b.Finalize(); err != nil {
			errs = append(errs, fmt.Errorf("block %s: %w", b.name, err))
		}
	}
	return errors.Join(errs...)
}

// Focused returns the instance holding focus, or nil
func (f *Form) Focused() *Instance {
	return f.focused
}

// LastAbort returns the veto reason of the last navigation, if any
func (f *Form) LastAbort() string {
	return f.lastAbort
}

// AddListener registers a trigger listener owned by the form. Filters
// without a form name are scoped to this form; with no filters the
// listener receives every event of this form. The listener is removed
// when the form is dropped from its session.
func (f *Form) AddListener(fn events.Listener, filters ...events.Filter) events.Handle {
	if len(filters) == 0 {
		filters = []events.Filter{{}}
	}
	scoped := make([]events.Filter, len(filters))
	for i, flt := range filters {
		if flt.Form == "" {
			flt.Form = f.name
		}
		scoped[i] = flt
	}
	h := f.session.dispatcher.AddListener(fn, scoped...)
	f.handles = append(f.handles, h)
	return h
}

// RemoveListener deregisters a listener added with AddListener
func (f *Form) RemoveListener(h events.Handle) {
	for i, candidate := range f.handles {
		if candidate == h {
			f.handles = append(f.handles[:i], f.handles[i+1:]...)
			break
		}
	}
	f.session.dispatcher.RemoveListener(h)
}

func (f *Form) lock(ctx context.Context) error {
	select {
	case f.guard <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Form) unlock() {
	<-f.guard
}

// Goto moves focus to inst, which must belong to this form. The transition
// fires, in order: PostForm/PreForm when the current form changes,
// PostRecord/PostBlock for the block being left, PreBlock/PreRecord for the
// block being entered. Any veto aborts the whole transition with focus and
// the session's current form unchanged.
func (f *Form) Goto(ctx context.Context, inst *Instance) (bool, error) {
	if err := f.lock(ctx); err != nil {
		return false, err
	}
	defer f.unlock()
	return f.gotoInstance(ctx, inst)
}

// HandleFocus is the entry point for focus changes requested by the
// front end (a click, say). Focus notifications caused by the engine
// itself are ignored.
func (f *Form) HandleFocus(ctx context.Context, inst *Instance) (bool, error) {
	if inst == nil || f.echo.Load() == inst {
		return true, nil
	}
	return f.Goto(ctx, inst)
}

func (f *Form) gotoInstance(ctx context.Context, inst *Instance) (bool, error) {
	if inst == nil {
		return false, errors.New("goto: nil instance")
	}
	nxtblock := inst.Block()
	if nxtblock == nil || nxtblock.form != f {
		return false, fmt.Errorf("goto: instance %s does not belong to form %s", inst.Name(), f.name)
	}
	f.lastAbort = ""

	prev := f.focused
	var preblock *Block
	if prev != nil {
		preblock = prev.Block()
	}

	offset := nxtblock.Offset(inst)
	prerec := -1
	if preblock != nil {
		prerec = preblock.model.Record()
	}
	nxtrec := nxtblock.model.Record() + offset

	if offset != 0 && nxtblock.mustRow(inst.Row()).unused {
		f.lastAbort = "row is empty"
		return false, nil
	}

	// The row being left must be valid before anything else happens.
	if preblock != nil && (preblock != nxtblock || offset != 0) && !preblock.validateRow() {
		f.lastAbort = "validation failed"
		f.Focus()
		return false, nil
	}

	cur := f.session.Current()
	outgoing := prev
	if cur != f {
		if cur != nil {
			outgoing = cur.focused
			if cur.raiseForm(ctx, events.PostForm).Aborted() {
				f.lastAbort = cur.lastAbort
				cur.Focus()
				return false, nil
			}
		}
		if f.raiseForm(ctx, events.PreForm).Aborted() {
			if cur != nil {
				cur.Focus()
			}
			return false, nil
		}
	}

	if preblock != nil {
		if offset != 0 || preblock != nxtblock {
			if preblock.fireRow(ctx, events.PostRecord, preblock.current, prerec).Aborted() {
				f.Focus()
				return false, nil
			}
		}
		if preblock != nxtblock {
			if preblock.fireRow(ctx, events.PostBlock, preblock.current, prerec).Aborted() {
				f.Focus()
				return false, nil
			}
		}
	}

	if preblock != nxtblock {
		if nxtblock.fireRow(ctx, events.PreBlock, inst.Row(), nxtrec).Aborted() {
			f.Focus()
			return false, nil
		}
	}
	if preblock != nxtblock || nxtrec != prerec {
		if nxtblock.fireRow(ctx, events.PreRecord, inst.Row(), nxtrec).Aborted() {
			f.Focus()
			return false, nil
		}
	}

	var err error
	switch {
	case nxtblock.current < 0:
		err = nxtblock.SetCurrentRow(ctx, inst.Row())
		if err != nil && nxtblock.current < 0 {
			return false, err
		}
	case offset != 0:
		err = nxtblock.SetCurrentRow(ctx, inst.Row())
		if err != nil && nxtblock.current != inst.Row() {
			return false, err
		}
	}

	f.moveFocus(outgoing, inst)
	f.focused = inst
	f.session.setCurrent(f)
	return true, err
}

// Navigate applies a logical key to the focused instance
func (f *Form) Navigate(ctx context.Context, key Key) (*Instance, error) {
	if err := f.lock(ctx); err != nil {
		return nil, err
	}
	defer f.unlock()

	inst := f.focused
	if inst == nil {
		return nil, ErrNoFocus
	}
	f.lastAbort = ""
	f.session.logger.Debug("navigate", "form", f.name, "block", inst.Block().name, "key", key)

	switch key {
	case KeyNextBlock, KeyPrevBlock:
		step := 1
		if key == KeyPrevBlock {
			step = -1
		}
		dest := f.blockEntry(inst.Block(), step)
		if dest == nil || dest == inst {
			return inst, nil
		}
		_, err := f.gotoInstance(ctx, dest)
		return f.focused, err
	}

	next, err := inst.Block().Navigate(ctx, key, inst)
	if next != nil {
		f.focused = next
	}
	return f.focused, err
}

// blockEntry returns the first instance of the next block with rows
func (f *Form) blockEntry(from *Block, step int) *Instance {
	n := len(f.blocks)
	start := 0
	for i, b := range f.blocks {
		if b == from {
			start = i
			break
		}
	}
	for i := 1; i < n; i++ {
		b := f.blocks[(start+step*i+n*n)%n]
		row := b.Row(0)
		if b.current >= 0 {
			row = b.Row(b.current)
		}
		if row == nil {
			row = b.overlay
		}
		if row == nil || (row.unused && b.overlay == nil) {
			continue
		}
		if all := row.Instances(); len(all) > 0 {
			return all[0]
		}
	}
	return nil
}

// Edit records a value typed into inst: sibling instances, the model
// record and the mirrored overlay or list row all receive it.
func (f *Form) Edit(ctx context.Context, inst *Instance, value string) error {
	if err := f.lock(ctx); err != nil {
		return err
	}
	defer f.unlock()

	row := inst.field.row
	b := row.block
	if b == nil || b.form != f {
		return fmt.Errorf("edit: instance %s does not belong to form %s", inst.Name(), f.name)
	}
	if row.state != StateOpen {
		return ErrReadOnly
	}
	modelRow := inst.Row()
	if modelRow < 0 {
		modelRow = b.current
	}
	if err := b.model.SetValue(ctx, modelRow, inst.Name(), value); err != nil {
		return fmt.Errorf("failed to store %s.%s: %w", b.name, inst.Name(), err)
	}
	inst.field.distribute(value, true)
	b.Distribute(inst.field, value, true)

	if res := b.fire(ctx, events.PostChange, inst, b.model.Record()); res.Aborted() {
		f.session.logger.Debug("post-change listener vetoed", "block", b.name, "field", inst.Name(), "reason", res.Reason())
	}
	return nil
}

// Validate validates the row holding focus
func (f *Form) Validate(ctx context.Context) (bool, error) {
	if err := f.lock(ctx); err != nil {
		return false, err
	}
	defer f.unlock()
	if f.focused == nil {
		return true, nil
	}
	if !f.focused.Block().validateRow() {
		f.Focus()
		return false, nil
	}
	return true, nil
}

type saver interface {
	Save(ctx context.Context) error
}

type undoer interface {
	Undo(ctx context.Context) error
}

type dirtier interface {
	Dirty() bool
}

// Do runs fn while holding the form's guard, so no navigation interleaves
// with it
func (f *Form) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := f.lock(ctx); err != nil {
		return err
	}
	defer f.unlock()
	return fn(ctx)
}

// Save validates the focused row and persists every block's dirty records
func (f *Form) Save(ctx context.Context) error {
	ok, err := f.Validate(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidRecord
	}
	return f.Do(ctx, func(ctx context.Context) error {
		for _, b := range f.blocks {
			s, ok := b.model.(saver)
			if !ok {
				continue
			}
			if err := s.Save(ctx); err != nil {
				return fmt.Errorf("failed to save block %s: %w", b.name, err)
			}
		}
		return nil
	})
}

// Undo discards the unsaved edits of every block. Focus stays in its
// block on the row the reloaded block rewound to.
func (f *Form) Undo(ctx context.Context) error {
	return f.Do(ctx, func(ctx context.Context) error {
		for _, b := range f.blocks {
			u, ok := b.model.(undoer)
			if !ok {
				continue
			}
			if d, ok := b.model.(dirtier); ok && !d.Dirty() {
				continue
			}
			if err := u.Undo(ctx); err != nil {
				return fmt.Errorf("failed to undo block %s: %w", b.name, err)
			}
		}
		return nil
	})
}

// Dirty reports whether any block holds unsaved edits
func (f *Form) Dirty() bool {
	for _, b := range f.blocks {
		if d, ok := b.model.(dirtier); ok && d.Dirty() {
			return true
		}
	}
	return false
}

// Focus gives the widget of the focused instance focus again
func (f *Form) Focus() {
	if f.focused == nil {
		return
	}
	f.echo.Store(f.focused)
	f.focused.widget.Focus()
	f.echo.Store(nil)
}

// moveFocus blurs prev and focuses next without the widgets' focus
// notifications being taken for navigation requests.
func (f *Form) moveFocus(prev, next *Instance) {
	if prev == next {
		return
	}
	if prev != nil {
		prev.widget.Blur()
	}
	if next != nil {
		f.echo.Store(next)
		next.widget.Focus()
		f.echo.Store(nil)
	}
}

// retarget keeps focus on a live row after block b was rewound
func (f *Form) retarget(b *Block) {
	inst := f.focused
	if inst == nil || inst.Block() != b || inst.Row() < 0 || inst.Row() == b.current {
		return
	}
	from := b.mustRow(inst.Row())
	next := b.mustRow(b.current).instanceAt(from.position(inst))
	f.moveFocus(inst, next)
	f.focused = next
}

func (f *Form) raiseForm(ctx context.Context, typ events.EventType) events.Result {
	return f.raise(ctx, events.Event{Type: typ})
}

func (f *Form) raise(ctx context.Context, ev events.Event) events.Result {
	ev.Form = f.name
	ev.Tier = models.TierView
	res := f.session.dispatcher.Raise(ctx, ev)
	if res.Aborted() {
		f.lastAbort = res.Reason()
		f.session.logger.Info("navigation vetoed", "event", ev.Type, "form", f.name, "block", ev.Block, "reason", res.Reason())
	}
	return res
}

func (f *Form) clear() {
	f.focused = nil
	for _, b := range f.blocks {
		b.release()
	}
	f.blocks = nil
	f.index = make(map[string]*Block)
	f.handles = nil
}
