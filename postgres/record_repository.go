// Package postgres stores extracted records in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/gosom/selfstorage-scraper/gmaps"
)

const createTable = `
CREATE TABLE IF NOT EXISTS records (
	id UUID PRIMARY KEY,
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
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (run_id, area, google_maps_url)
);
CREATE INDEX IF NOT EXISTS idx_records_run ON records (run_id);
`

type RecordRepository struct {
	db *sql.DB
}

// Open connects to dsn and creates the records and runs tables when missing.
func Open(ctx context.Context, dsn string) (*RecordRepository, error) {
	db, err := openPostgresConn(ctx, dsn)
	if err != nil {
		return nil, err
	}

	for _, stmt := range []string{createTable, createRunsTable} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()

			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return NewRecordRepository(db), nil
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Save(ctx context.Context, runID string, records []gmaps.ExtractedRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO records
		(id, run_id, area, company_name, address, phone, website, opening_hours,
		 google_maps_url, latitude, longitude, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (run_id, area, google_maps_url) DO NOTHING`

	now := time.Now().UTC()
	inserted := 0

	for i := range records {
		rec := &records[i]

		res, err := tx.ExecContext(ctx, q,
			uuid.New(), runID, rec.Area, rec.CompanyName, rec.Address, rec.Phone,
			rec.WebsiteDomain, rec.Hours, rec.SourceReference, rec.Latitude, rec.Longitude,
			rec.Note, now,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting record %d: %w", i, err)
		}

		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return inserted, nil
}

func (r *RecordRepository) Close() error {
	return r.db.Close()
}

func openPostgresConn(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}
