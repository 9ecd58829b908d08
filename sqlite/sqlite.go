// Package sqlite stores extracted records in a local sqlite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/gosom/selfstorage-scraper/gmaps"
	"github.com/gosom/selfstorage-scraper/runner"
)

var _ runner.RunRepository = (*Repository)(nil)

type Repository struct {
	db *sql.DB
	mu sync.Mutex
}

func New(path string) (*Repository, error) {
	db, err := initDatabase(path)
	if err != nil {
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Save inserts the records of one run in a single transaction. Records
// already stored for the same run, area and reference are skipped.
func (r *Repository) Save(ctx context.Context, runID string, records []gmaps.ExtractedRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO records
		(id, run_id, area, company_name, address, phone, website, opening_hours,
		 google_maps_url, latitude, longitude, notes, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		_ = tx.Rollback()

		return 0, fmt.Errorf("preparing stmt: %w", err)
	}

	defer stmt.Close()

	now := time.Now().UTC().Unix()
	inserted := 0

	for i := range records {
		rec := &records[i]

		res, err := stmt.ExecContext(ctx,
			uuid.NewString(), runID, rec.Area, rec.CompanyName, rec.Address, rec.Phone,
			rec.WebsiteDomain, rec.Hours, rec.SourceReference, rec.Latitude, rec.Longitude,
			rec.Note, now,
		)
		if err != nil {
			_ = tx.Rollback()

			return 0, fmt.Errorf("inserting record %d: %w", i, err)
		}

		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}

	return inserted, nil
}

// Select returns the records of a run in insertion order.
func (r *Repository) Select(ctx context.Context, runID string) ([]gmaps.ExtractedRecord, error) {
	const q = `SELECT area, company_name, address, phone, website, opening_hours,
		google_maps_url, latitude, longitude, notes
		FROM records WHERE run_id = ? ORDER BY rowid`

	rows, err := r.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ans []gmaps.ExtractedRecord

	for rows.Next() {
		var rec gmaps.ExtractedRecord

		if err := rows.Scan(
			&rec.Area, &rec.CompanyName, &rec.Address, &rec.Phone, &rec.WebsiteDomain,
			&rec.Hours, &rec.SourceReference, &rec.Latitude, &rec.Longitude, &rec.Note,
		); err != nil {
			return nil, err
		}

		ans = append(ans, rec)
	}

	return ans, rows.Err()
}

func (r *Repository) CreateRun(ctx context.Context, run *runner.RunInfo) error {
	if err := run.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(run.Data)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	const q = `INSERT INTO runs (id, status, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, q, run.ID, run.Status, string(data), run.CreatedAt.Unix(), time.Now().UTC().Unix())

	return err
}

func (r *Repository) UpdateRun(ctx context.Context, run *runner.RunInfo) error {
	data, err := json.Marshal(run.Data)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	const q = `UPDATE runs SET status = ?, data = ?, updated_at = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, q, run.Status, string(data), time.Now().UTC().Unix(), run.ID)
	if err != nil {
		return err
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", runner.ErrRunNotFound, run.ID)
	}

	return nil
}

func (r *Repository) GetRun(ctx context.Context, id string) (runner.RunInfo, error) {
	const q = `SELECT id, status, data, created_at, updated_at FROM runs WHERE id = ?`

	var (
		ans                  runner.RunInfo
		data                 string
		createdAt, updatedAt int64
	)

	err := r.db.QueryRowContext(ctx, q, id).Scan(&ans.ID, &ans.Status, &data, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return runner.RunInfo{}, fmt.Errorf("%w: %s", runner.ErrRunNotFound, id)
	}

	if err != nil {
		return runner.RunInfo{}, err
	}

	if err := json.Unmarshal([]byte(data), &ans.Data); err != nil {
		return runner.RunInfo{}, err
	}

	ans.CreatedAt = time.Unix(createdAt, 0).UTC()
	ans.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return ans, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func initDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=1000",
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()

			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, err
	}

	if err := createSchema(db); err != nil {
		db.Close()

		return nil, err
	}

	return db, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			area TEXT NOT NULL,
			company_name TEXT NOT NULL,
			address TEXT NOT NULL,
			phone TEXT NOT NULL,
			website TEXT NOT NULL,
			opening_hours TEXT NOT NULL,
			google_maps_url TEXT NOT NULL,
			latitude TEXT NOT NULL,
			longitude TEXT NOT NULL,
			notes TEXT NOT NULL,
			created_at INT NOT NULL,
			UNIQUE(run_id, area, google_maps_url)
		);
		CREATE INDEX IF NOT EXISTS idx_records_run ON records(run_id);
		CREATE INDEX IF NOT EXISTS idx_records_area ON records(area);
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at INT NOT NULL,
			updated_at INT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}
