package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"payment-schedule/domain"
)

const projectSchemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
    project_id       TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    contract_value   REAL NOT NULL,
    custom_schedule  INTEGER NOT NULL DEFAULT 0,
    schedule_json    TEXT NOT NULL DEFAULT '[]',
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);
`

// ProjectRepositorySQLite stores projects in a SQLite database. The schedule
// is kept as its JSON stage-record list.
type ProjectRepositorySQLite struct {
	db *sql.DB
}

// OpenProjectRepositorySQLite opens or creates the database at dbPath.
func OpenProjectRepositorySQLite(dbPath string) (*ProjectRepositorySQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening project db: %w", err)
	}

	if _, err := db.Exec(projectSchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &ProjectRepositorySQLite{db: db}, nil
}

func (r *ProjectRepositorySQLite) Close() error {
	return r.db.Close()
}

func (r *ProjectRepositorySQLite) Create(ctx context.Context, project domain.Project) error {
	scheduleJSON, err := json.Marshal(project.Schedule)
	if err != nil {
		return fmt.Errorf("encoding schedule: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO projects (project_id, name, contract_value, custom_schedule, schedule_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.Name,
		project.ContractValue,
		boolToInt(project.CustomSchedule),
		string(scheduleJSON),
		project.CreatedAt.UTC().Format(time.RFC3339Nano),
		project.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrProjectExists
		}
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

func (r *ProjectRepositorySQLite) Get(ctx context.Context, id string) (domain.Project, error) {
	var (
		p            domain.Project
		custom       int
		scheduleJSON string
		createdAt    string
		updatedAt    string
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT project_id, name, contract_value, custom_schedule, schedule_json, created_at, updated_at
		 FROM projects WHERE project_id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.ContractValue, &custom, &scheduleJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Project{}, ErrProjectNotFound
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("loading project: %w", err)
	}

	if err := json.Unmarshal([]byte(scheduleJSON), &p.Schedule); err != nil {
		return domain.Project{}, fmt.Errorf("decoding schedule of %s: %w", id, err)
	}
	p.CustomSchedule = custom != 0
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return domain.Project{}, fmt.Errorf("decoding timestamps of %s: %w", id, err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return domain.Project{}, fmt.Errorf("decoding timestamps of %s: %w", id, err)
	}

	return p, nil
}

func (r *ProjectRepositorySQLite) UpdateSchedule(ctx context.Context, project domain.Project) error {
	scheduleJSON, err := json.Marshal(project.Schedule)
	if err != nil {
		return fmt.Errorf("encoding schedule: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET custom_schedule = ?, schedule_json = ?, updated_at = ?
		 WHERE project_id = ?`,
		boolToInt(project.CustomSchedule),
		string(scheduleJSON),
		project.UpdatedAt.UTC().Format(time.RFC3339Nano),
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("updating schedule: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// isConstraintViolation reports a duplicate project_id.
func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
