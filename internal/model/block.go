// Package model holds the record side of a block: a lazily fetched window
// over a table, the current record pointer and master/detail links.
package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/thesavant42/tableforms/internal/events"
	"github.com/thesavant42/tableforms/internal/models"
)

// DefaultFetchSize is the number of records loaded per source round trip
const DefaultFetchSize = 20

// ErrOutOfRange is returned when a move or edit names a record that does
// not exist
var ErrOutOfRange = errors.New("record out of range")

// View is the display side a model block drives. view.Block satisfies it.
type View interface {
	Display(n int, rec *models.Record)
	Refresh(n int, rec *models.Record)
	Rewind()
	RowCount() int
}

// Options configures a model block
type Options struct {
	Name      string
	Table     string
	Source    Source
	Logger    *log.Logger
	Events    *events.Dispatcher
	Form      string
	FetchSize int
	OrderBy   string
}

type detail struct {
	block     *Block
	masterCol string
	detailCol string
}

// Block caches the records of one query and tracks which of them the
// view's window shows.
type Block struct {
	name      string
	table     string
	form      string
	source    Source
	events    *events.Dispatcher
	logger    *log.Logger
	fetchSize int

	query   models.Query
	records []*models.Record
	eof     bool
	first   int
	record  int

	view    View
	details []detail
}

// New creates a model block. Nothing is fetched until Query.
func New(opts Options) *Block {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
	}
	size := opts.FetchSize
	if size <= 0 {
		size = DefaultFetchSize
	}
	return &Block{
		name:      strings.ToLower(opts.Name),
		table:     strings.ToLower(opts.Table),
		form:      strings.ToLower(opts.Form),
		source:    opts.Source,
		events:    opts.Events,
		logger:    logger,
		fetchSize: size,
		query:     models.Query{OrderBy: opts.OrderBy},
		eof:       true,
	}
}

// Name returns the block name
func (b *Block) Name() string {
	return b.name
}

// Table returns the source table
func (b *Block) Table() string {
	return b.table
}

// Link binds the view this block displays into
func (b *Block) Link(v View) {
	b.view = v
}

// AddDetail makes d follow this block: whenever the current record
// changes, d is re-queried with d.detailCol = current.masterCol.
func (b *Block) AddDetail(d *Block, masterCol, detailCol string) {
	b.details = append(b.details, detail{
		block:     d,
		masterCol: strings.ToLower(masterCol),
		detailCol: strings.ToLower(detailCol),
	})
}

// Loaded returns how many records have been fetched so far
func (b *Block) Loaded() int {
	return len(b.records)
}

// EOF reports whether every matching record has been fetched
func (b *Block) EOF() bool {
	return b.eof
}

// Current returns the current record, or nil when the block is empty
func (b *Block) Current() *models.Record {
	if b.record < 0 || b.record >= len(b.records) {
		return nil
	}
	return b.records[b.record]
}

// Record implements view.ModelBlock
func (b *Block) Record() int {
	return b.record
}

// Query replaces the block's records with the result of q and rewinds the
// view onto the first record. A PreQuery veto leaves the block untouched
// and reports false.
func (b *Block) Query(ctx context.Context, q models.Query) (bool, error) {
	if q.OrderBy == "" {
		q.OrderBy = b.query.OrderBy
	}
	if res := b.raise(ctx, events.PreQuery); res.Aborted() {
		b.logger.Debug("query vetoed", "block", b.name, "reason", res.Reason())
		return false, nil
	}

	b.query = q
	b.records = nil
	b.eof = false
	b.first = 0
	b.record = 0
	if err := b.ensure(ctx, b.rows()-1); err != nil {
		return false, err
	}
	b.logger.Debug("query", "block", b.name, "where", q.Where, "loaded", len(b.records), "eof", b.eof)

	b.show()
	if b.view != nil {
		b.view.Rewind()
	}
	b.raise(ctx, events.PostQuery)
	return true, b.QueryDetails(ctx)
}

// Clear empties the block without touching the source
func (b *Block) Clear(ctx context.Context) error {
	b.records = nil
	b.eof = true
	b.first = 0
	b.record = 0
	b.show()
	if b.view != nil {
		b.view.Rewind()
	}
	return b.QueryDetails(ctx)
}

// Move implements view.ModelBlock
func (b *Block) Move(ctx context.Context, offset int) error {
	target := b.record + offset
	if target < 0 {
		return fmt.Errorf("%w: %d", ErrOutOfRange, target)
	}
	if err := b.ensure(ctx, target); err != nil {
		return err
	}
	if target >= len(b.records) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, target, len(b.records))
	}
	b.record = target
	return nil
}

// Prefetch implements view.ModelBlock. Enough records are loaded to fill
// the window after the scroll.
func (b *Block) Prefetch(ctx context.Context, direction, distance int) (int, error) {
	if direction < 0 {
		available := b.record
		if available > -direction {
			available = -direction
		}
		return available, nil
	}
	if err := b.ensure(ctx, b.record+distance+direction); err != nil {
		return 0, err
	}
	available := len(b.records) - 1 - b.record
	if available > direction {
		available = direction
	}
	if available < 0 {
		available = 0
	}
	b.logger.Debug("prefetch", "block", b.name, "direction", direction, "distance", distance, "available", available)
	return available, nil
}

// Scroll implements view.ModelBlock
func (b *Block) Scroll(ctx context.Context, offset, row int) error {
	first := b.first + offset
	if first < 0 {
		first = 0
	}
	if err := b.ensure(ctx, first+b.rows()-1); err != nil {
		return err
	}
	record := first + row
	if record >= len(b.records) {
		record = len(b.records) - 1
	}
	if record < 0 {
		record = 0
	}
	b.first = first
	b.record = record
	b.logger.Debug("scroll", "block", b.name, "first", b.first, "record", b.record)
	b.show()
	return nil
}

// QueryDetails implements view.ModelBlock
func (b *Block) QueryDetails(ctx context.Context) error {
	cur := b.Current()
	for _, d := range b.details {
		if cur == nil {
			if err := d.block.Clear(ctx); err != nil {
				return err
			}
			continue
		}
		q := d.block.query.With(d.detailCol, cur.Get(d.masterCol))
		if _, err := d.block.Query(ctx, q); err != nil {
			return fmt.Errorf("failed to query detail %s: %w", d.block.name, err)
		}
	}
	return nil
}

// GetRecord implements view.ModelBlock
func (b *Block) GetRecord(row int) *models.Record {
	idx := b.first + row
	if row < 0 || idx >= len(b.records) {
		return nil
	}
	return b.records[idx]
}

// SetValue implements view.ModelBlock
func (b *Block) SetValue(ctx context.Context, row int, field, value string) error {
	rec := b.GetRecord(row)
	if rec == nil {
		return fmt.Errorf("%w: row %d", ErrOutOfRange, row)
	}
	rec.Set(field, value)
	return nil
}

// Dirty reports whether this block or one of its details holds unsaved
// changes
func (b *Block) Dirty() bool {
	for _, r := range b.records {
		if r.Dirty {
			return true
		}
	}
	for _, d := range b.details {
		if d.block.Dirty() {
			return true
		}
	}
	return false
}

// Save writes every dirty record of this block and its details back to
// the source in one Apply
func (b *Block) Save(ctx context.Context) error {
	return Save(ctx, b)
}

// Save writes the dirty records of blocks and all their details in a
// single Apply. Records are marked clean only once the source accepted
// the whole batch. The blocks must share one source.
func Save(ctx context.Context, blocks ...*Block) error {
	var (
		src     Source
		changes []Change
		owners  []*Block
	)
	seen := make(map[*models.Record]bool)
	var collect func(b *Block) error
	collect = func(b *Block) error {
		if src == nil {
			src = b.source
		} else if b.source != src {
			return fmt.Errorf("block %s saves to a different source", b.name)
		}
		for _, r := range b.records {
			if r.Dirty && !seen[r] {
				seen[r] = true
				changes = append(changes, Change{Table: b.table, Record: r})
				owners = append(owners, b)
			}
		}
		for _, d := range b.details {
			if err := collect(d.block); err != nil {
				return err
			}
		}
		return nil
	}
	for _, b := range blocks {
		if err := collect(b); err != nil {
			return err
		}
	}
	if len(changes) == 0 {
		return nil
	}

	if err := src.Apply(ctx, changes); err != nil {
		return fmt.Errorf("failed to save %d records: %w", len(changes), err)
	}

	saved := make(map[*Block]int)
	for i, c := range changes {
		c.Record.Dirty = false
		owners[i].refresh(c.Record)
		saved[owners[i]]++
	}
	for b, n := range saved {
		b.logger.Info("saved records", "block", b.name, "table", b.table, "count", n)
	}
	return nil
}

// Undo throws away unsaved edits: the last query is fetched again and the
// view rewound. Details follow the reloaded master.
func (b *Block) Undo(ctx context.Context) error {
	b.records = nil
	b.eof = false
	b.first = 0
	b.record = 0
	if err := b.ensure(ctx, b.rows()-1); err != nil {
		return err
	}
	b.logger.Info("changes discarded", "block", b.name, "loaded", len(b.records))

	b.show()
	if b.view != nil {
		b.view.Rewind()
	}
	return b.QueryDetails(ctx)
}

// refresh redraws rec if it sits in the view's window
func (b *Block) refresh(rec *models.Record) {
	if b.view == nil {
		return
	}
	for row := 0; row < b.view.RowCount(); row++ {
		if b.GetRecord(row) == rec {
			b.view.Refresh(row, rec)
			return
		}
	}
}

// ensure fetches until record n is loaded or the source is exhausted
func (b *Block) ensure(ctx context.Context, n int) error {
	for len(b.records) <= n && !b.eof {
		limit := b.fetchSize
		if need := n + 1 - len(b.records); need > limit {
			limit = need
		}
		recs, err := b.source.Fetch(ctx, b.table, b.query, len(b.records), limit)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", b.table, err)
		}
		b.logger.Debug("fetch", "block", b.name, "offset", len(b.records), "limit", limit, "got", len(recs))
		b.records = append(b.records, recs...)
		if len(recs) < limit {
			b.eof = true
		}
	}
	return nil
}

func (b *Block) rows() int {
	if b.view == nil {
		return 1
	}
	return b.view.RowCount()
}

func (b *Block) show() {
	if b.view == nil {
		return
	}
	for i := 0; i < b.view.RowCount(); i++ {
		b.view.Display(i, b.GetRecord(i))
	}
}

func (b *Block) raise(ctx context.Context, typ events.EventType) events.Result {
	if b.events == nil {
		return events.Proceed()
	}
	return b.events.Raise(ctx, events.Event{
		Type:   typ,
		Tier:   models.TierModel,
		Form:   b.form,
		Block:  b.name,
		Record: b.record,
	})
}
