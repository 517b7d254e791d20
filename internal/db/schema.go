package db

const createDepartmentsTable = `
CREATE TABLE IF NOT EXISTS departments (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    location TEXT
);
`

const createEmployeesTable = `
CREATE TABLE IF NOT EXISTS employees (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    job TEXT,
    salary INTEGER,
    hired TEXT,
    dept_id INTEGER REFERENCES departments(id)
);

CREATE INDEX IF NOT EXISTS idx_employees_dept ON employees(dept_id);
`

const insertDepartment = `
INSERT OR REPLACE INTO departments (id, name, location) VALUES (?, ?, ?)
`

const insertEmployee = `
INSERT OR REPLACE INTO employees (id, name, job, salary, hired, dept_id)
VALUES (?, ?, ?, ?, ?, ?)
`

// tables lists the columns each table exposes, id first. Query builders
// only ever interpolate names found here.
var tables = map[string][]string{
	"departments": {"id", "name", "location"},
	"employees":   {"id", "name", "job", "salary", "hired", "dept_id"},
}
