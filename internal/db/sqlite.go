package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/thesavant42/tableforms/internal/model"
	"github.com/thesavant42/tableforms/internal/models"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

var _ model.Source = (*DB)(nil)

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := conn.Exec(createDepartmentsTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create departments schema: %w", err)
	}

	if _, err := conn.Exec(createEmployeesTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create employees schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// columns returns the whitelisted columns of a table
func columns(table string) ([]string, error) {
	cols, ok := tables[strings.ToLower(table)]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return cols, nil
}

func hasColumn(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}

// where renders the conditions of q, equalities first, each in column
// order
func where(cols []string, q models.Query) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	for _, k := range sortedKeys(q.Where) {
		if !hasColumn(cols, strings.ToLower(k)) {
			return "", nil, fmt.Errorf("unknown column %q", k)
		}
		conds = append(conds, strings.ToLower(k)+" = ?")
		args = append(args, q.Where[k])
	}
	for _, k := range sortedKeys(q.Below) {
		if !hasColumn(cols, strings.ToLower(k)) {
			return "", nil, fmt.Errorf("unknown column %q", k)
		}
		op := " < ?"
		if q.Below[k].Inclusive {
			op = " <= ?"
		}
		conds = append(conds, strings.ToLower(k)+op)
		args = append(args, q.Below[k].Value)
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fetch returns up to limit records of table matching q, skipping offset
func (db *DB) Fetch(ctx context.Context, table string, q models.Query, offset, limit int) ([]*models.Record, error) {
	cols, err := columns(table)
	if err != nil {
		return nil, err
	}
	cond, args, err := where(cols, q)
	if err != nil {
		return nil, err
	}

	order := "id"
	if q.OrderBy != "" {
		order = strings.ToLower(q.OrderBy)
		if !hasColumn(cols, order) {
			return nil, fmt.Errorf("unknown column %q", order)
		}
	}
	if limit <= 0 {
		limit = -1
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s, id LIMIT ? OFFSET ?",
		strings.Join(cols, ", "), strings.ToLower(table), cond, order)
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}

		id, err := strconv.ParseInt(values[0].String, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s id %q: %w", table, values[0].String, err)
		}
		rec := models.NewRecord(id, cols)
		for i, c := range cols {
			rec.Load(c, values[i].String)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of records of table matching q
func (db *DB) Count(ctx context.Context, table string, q models.Query) (int, error) {
	cols, err := columns(table)
	if err != nil {
		return 0, err
	}
	cond, args, err := where(cols, q)
	if err != nil {
		return 0, err
	}

	var total int
	err = db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+strings.ToLower(table)+cond, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return total, nil
}

// Update writes the values of rec back to its row. Columns the table does
// not have are ignored; the id is never changed.
func (db *DB) Update(ctx context.Context, table string, rec *models.Record) error {
	return db.Apply(ctx, []model.Change{{Table: table, Record: rec}})
}

// Apply writes every change in one transaction. A missing row rolls the
// whole batch back.
func (db *DB) Apply(ctx context.Context, changes []model.Change) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range changes {
		query, args, err := updateStatement(c.Table, c.Record)
		if err != nil {
			return err
		}
		if query == "" {
			continue
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update %s %d: %w", c.Table, c.Record.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("failed to update %s %d: no such row", c.Table, c.Record.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// updateStatement builds the UPDATE for rec; an empty query means there
// is nothing to write
func updateStatement(table string, rec *models.Record) (string, []any, error) {
	cols, err := columns(table)
	if err != nil {
		return "", nil, err
	}

	var (
		sets []string
		args []any
	)
	for _, c := range cols[1:] {
		if _, ok := rec.Values[c]; !ok {
			continue
		}
		sets = append(sets, c+" = ?")
		args = append(args, nullable(rec.Values[c]))
	}
	if len(sets) == 0 {
		return "", nil, nil
	}
	args = append(args, rec.ID)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", strings.ToLower(table), strings.Join(sets, ", "))
	return query, args, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// Tables returns the names of the tables the database serves
func Tables() []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot copies every table into an in-memory source. Saves made
// against the copy never reach the database.
func (db *DB) Snapshot(ctx context.Context) (*model.MemorySource, error) {
	src := model.NewMemorySource()
	for _, table := range Tables() {
		recs, err := db.Fetch(ctx, table, models.Query{}, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to copy %s: %w", table, err)
		}
		src.Insert(table, recs...)
	}
	return src, nil
}
