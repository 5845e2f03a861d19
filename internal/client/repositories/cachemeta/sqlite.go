package cachemeta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `data_type, last_fetch_time, expiry_time, is_expired, record_count`

func scanRecord(row interface{ Scan(...any) error }) (models.CacheRecord, error) {
	var (
		class            string
		fetched, expires int64
		rec              models.CacheRecord
	)
	if err := row.Scan(&class, &fetched, &expires, &rec.IsExpired, &rec.RecordCount); err != nil {
		return rec, err
	}
	rec.Class = models.EntityClass(class)
	rec.LastFetchTime = time.UnixMilli(fetched).UTC()
	rec.ExpiryTime = time.UnixMilli(expires).UTC()
	return rec, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, class models.EntityClass) (*models.CacheRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM cache_metadata WHERE data_type = ?`, string(class))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache metadata[%s]: %w", class, err)
	}
	return &rec, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, rec models.CacheRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cache_metadata (data_type, last_fetch_time, expiry_time, is_expired, record_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(data_type) DO UPDATE SET
			last_fetch_time = excluded.last_fetch_time,
			expiry_time     = excluded.expiry_time,
			is_expired      = excluded.is_expired,
			record_count    = excluded.record_count
	`, string(rec.Class), rec.LastFetchTime.UnixMilli(), rec.ExpiryTime.UnixMilli(), rec.IsExpired, rec.RecordCount)
	if err != nil {
		return fmt.Errorf("failed to upsert cache metadata[%s]: %w", rec.Class, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkExpired(ctx context.Context, class models.EntityClass) error {
	_, err := r.db.ExecContext(ctx, `UPDATE cache_metadata SET is_expired = 1 WHERE data_type = ?`, string(class))
	if err != nil {
		return fmt.Errorf("failed to expire cache metadata[%s]: %w", class, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkAllExpired(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE cache_metadata SET is_expired = 1`)
	if err != nil {
		return fmt.Errorf("failed to expire cache metadata: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.CacheRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM cache_metadata ORDER BY data_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache metadata: %w", err)
	}
	defer rows.Close()

	var result []models.CacheRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cache metadata row: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cache metadata rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cache_metadata`); err != nil {
		return fmt.Errorf("failed to clear cache metadata: %w", err)
	}
	return nil
}
