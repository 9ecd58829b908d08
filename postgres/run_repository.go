package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosom/selfstorage-scraper/runner"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	data JSONB NOT NULL,
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs (status);
`

var _ runner.RunRepository = (*RecordRepository)(nil)

type RunSelectParams struct {
	Status string
	Limit  int
}

func (r *RecordRepository) GetRun(ctx context.Context, id string) (runner.RunInfo, error) {
	const q = `SELECT id, status, data, created_at, updated_at FROM runs WHERE id = $1`

	ans, err := rowToRun(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return runner.RunInfo{}, fmt.Errorf("%w: %s", runner.ErrRunNotFound, id)
	}

	return ans, err
}

func (r *RecordRepository) CreateRun(ctx context.Context, run *runner.RunInfo) error {
	if err := run.Validate(); err != nil {
		return err
	}

	item, err := runToRow(run)
	if err != nil {
		return err
	}

	const q = `INSERT INTO runs (id, status, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`

	_, err = r.db.ExecContext(ctx, q, item.ID, item.Status, item.Data, item.CreatedAt, item.UpdatedAt)

	return err
}

func (r *RecordRepository) UpdateRun(ctx context.Context, run *runner.RunInfo) error {
	item, err := runToRow(run)
	if err != nil {
		return err
	}

	const q = `UPDATE runs SET status = $1, data = $2, updated_at = $3 WHERE id = $4`

	res, err := r.db.ExecContext(ctx, q, item.Status, item.Data, item.UpdatedAt, item.ID)
	if err != nil {
		return err
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", runner.ErrRunNotFound, run.ID)
	}

	return nil
}

// SelectRuns lists runs, newest first.
func (r *RecordRepository) SelectRuns(ctx context.Context, params RunSelectParams) ([]runner.RunInfo, error) {
	q, args := selectRunsQuery(params)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ans []runner.RunInfo

	for rows.Next() {
		run, err := rowToRun(rows)
		if err != nil {
			return nil, err
		}

		ans = append(ans, run)
	}

	return ans, rows.Err()
}

func selectRunsQuery(params RunSelectParams) (string, []any) {
	q := `SELECT id, status, data, created_at, updated_at FROM runs`

	var (
		args       []any
		conditions []string
	)

	argNum := 1

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, params.Status)
		argNum++
	}

	if len(conditions) > 0 {
		q += " WHERE " + strings.Join(conditions, " AND ")
	}

	q += " ORDER BY created_at DESC"

	if params.Limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, params.Limit)
	}

	return q, args
}

type runRow struct {
	ID        string
	Status    string
	Data      string
	CreatedAt int64
	UpdatedAt int64
}

type scannable interface {
	Scan(dest ...any) error
}

func rowToRun(row scannable) (runner.RunInfo, error) {
	var item runRow

	if err := row.Scan(&item.ID, &item.Status, &item.Data, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return runner.RunInfo{}, err
	}

	ans := runner.RunInfo{
		ID:        item.ID,
		Status:    item.Status,
		CreatedAt: time.Unix(item.CreatedAt, 0).UTC(),
		UpdatedAt: time.Unix(item.UpdatedAt, 0).UTC(),
	}

	if err := json.Unmarshal([]byte(item.Data), &ans.Data); err != nil {
		return runner.RunInfo{}, err
	}

	return ans, nil
}

func runToRow(run *runner.RunInfo) (runRow, error) {
	data, err := json.Marshal(run.Data)
	if err != nil {
		return runRow{}, err
	}

	return runRow{
		ID:        run.ID,
		Status:    run.Status,
		Data:      string(data),
		CreatedAt: run.CreatedAt.Unix(),
		UpdatedAt: time.Now().UTC().Unix(),
	}, nil
}
