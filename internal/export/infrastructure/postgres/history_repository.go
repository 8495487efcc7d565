package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	readings "zaehlerwerk/internal/readings/domain"
)

const defaultHistoryTable = "snapshot_history"

// HistoryRepository archives snapshot rows in Postgres, one row per
// meter and period, newest run wins.
type HistoryRepository struct {
	db    *sql.DB
	table string
}

// NewHistoryRepository constructs a repository with default table name.
func NewHistoryRepository(db *sql.DB, opts ...RepositoryOption) *HistoryRepository {
	repo := &HistoryRepository{db: db, table: defaultHistoryTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*HistoryRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *HistoryRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// SaveSnapshots upserts a folder's snapshot rows.
func (r *HistoryRepository) SaveSnapshots(ctx context.Context, folder string, rows []readings.SnapshotRow) error {
	if r == nil || r.db == nil {
		return errors.New("history repo: nil db")
	}
	if folder == "" {
		return errors.New("history repo: empty folder")
	}
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	folder,
	meter_key,
	counter_id,
	counter_name,
	granularity,
	time_key,
	reading_at,
	value_num,
	delta,
	reset_detected,
	remark
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)
ON CONFLICT (folder, meter_key, granularity, time_key)
DO UPDATE SET
	counter_id = EXCLUDED.counter_id,
	counter_name = EXCLUDED.counter_name,
	reading_at = EXCLUDED.reading_at,
	value_num = EXCLUDED.value_num,
	delta = EXCLUDED.delta,
	reset_detected = EXCLUDED.reset_detected,
	remark = EXCLUDED.remark,
	updated_at = NOW()`, r.table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if row.MeterKey == "" || !row.Granularity.IsValid() {
			_ = tx.Rollback()
			return errors.New("history repo: invalid snapshot")
		}
		timeKey, err := row.TimeKey()
		if err != nil {
			_ = tx.Rollback()
			return err
		}

		readingAt := sql.NullTime{}
		if row.Taken.Valid {
			readingAt = sql.NullTime{Time: row.Taken.Time, Valid: true}
		}
		valueNum := sql.NullFloat64{}
		if row.Value != nil {
			valueNum = sql.NullFloat64{Float64: *row.Value, Valid: true}
		}
		delta := sql.NullFloat64{}
		if row.Delta != nil {
			delta = sql.NullFloat64{Float64: *row.Delta, Valid: true}
		}

		if _, err := stmt.ExecContext(
			ctx,
			folder,
			row.MeterKey,
			row.CounterID,
			row.Name,
			string(row.Granularity),
			timeKey.String(),
			readingAt,
			valueNum,
			delta,
			row.Reset,
			row.Remark,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
