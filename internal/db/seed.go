package db

import (
	"context"
	"fmt"
	"time"
)

var seedDepartments = []struct {
	name     string
	location string
}{
	{"Accounting", "New York"},
	{"Research", "Dallas"},
	{"Sales", "Chicago"},
	{"Operations", "Boston"},
}

var (
	seedFirst = []string{"Ada", "Brian", "Carla", "Dmitri", "Elena", "Farid", "Grace", "Hiro", "Ines", "Jonas", "Kemi", "Liam"}
	seedLast  = []string{"Smith", "Allen", "Ward", "Jones", "Martin", "Blake", "Clark", "Scott", "King", "Turner", "Adams", "Ford"}
	seedJobs  = []string{"Clerk", "Salesman", "Analyst", "Manager"}
)

// Seed replaces the demo tables with the fixed departments and n
// generated employees spread over them
func (db *DB) Seed(ctx context.Context, n int) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM employees"); err != nil {
		return fmt.Errorf("failed to clear employees: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM departments"); err != nil {
		return fmt.Errorf("failed to clear departments: %w", err)
	}

	deptStmt, err := tx.PrepareContext(ctx, insertDepartment)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer deptStmt.Close()

	for i, d := range seedDepartments {
		if _, err := deptStmt.ExecContext(ctx, (i+1)*10, d.name, d.location); err != nil {
			return fmt.Errorf("failed to insert department %s: %w", d.name, err)
		}
	}

	empStmt, err := tx.PrepareContext(ctx, insertEmployee)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer empStmt.Close()

	start := time.Date(2015, time.January, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		name := seedFirst[i%len(seedFirst)] + " " + seedLast[(i/len(seedFirst)+i)%len(seedLast)]
		job := seedJobs[i%len(seedJobs)]
		salary := 1000 + (i*370)%4000
		hired := start.AddDate(0, 0, i*17).Format("2006-01-02")
		dept := (i%len(seedDepartments) + 1) * 10
		if _, err := empStmt.ExecContext(ctx, 7000+i, name, job, salary, hired, dept); err != nil {
			return fmt.Errorf("failed to insert employee %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
