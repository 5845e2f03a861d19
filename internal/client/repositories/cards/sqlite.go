package cards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/dmitrijs2005/securebank/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DB
}

func NewSQLiteRepository(db dbx.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const columns = `id, account_id, card_number, masked_number, holder_name, expiry_month, expiry_year,
	cvv, card_type, brand, is_active, is_blocked, daily_limit, monthly_limit, currency, last_used,
	created_date, sync_status`

const upsertQuery = `
	INSERT INTO cards (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		account_id    = excluded.account_id,
		card_number   = excluded.card_number,
		masked_number = excluded.masked_number,
		holder_name   = excluded.holder_name,
		expiry_month  = excluded.expiry_month,
		expiry_year   = excluded.expiry_year,
		cvv           = excluded.cvv,
		card_type     = excluded.card_type,
		brand         = excluded.brand,
		is_active     = excluded.is_active,
		is_blocked    = excluded.is_blocked,
		daily_limit   = excluded.daily_limit,
		monthly_limit = excluded.monthly_limit,
		currency      = excluded.currency,
		last_used     = excluded.last_used,
		created_date  = excluded.created_date,
		sync_status   = excluded.sync_status`

func scanRow(row interface{ Scan(...any) error }) (models.CardRow, error) {
	var c models.CardRow
	var status string
	var lastUsed sql.NullInt64
	err := row.Scan(&c.ID, &c.AccountID, &c.CardNumber, &c.MaskedNumber, &c.HolderName, &c.ExpiryMonth,
		&c.ExpiryYear, &c.CVV, &c.CardType, &c.Brand, &c.IsActive, &c.IsBlocked, &c.DailyLimit,
		&c.MonthlyLimit, &c.Currency, &lastUsed, &c.CreatedDate, &status)
	if lastUsed.Valid {
		v := lastUsed.Int64
		c.LastUsed = &v
	}
	c.SyncStatus = models.SyncStatus(status)
	return c, err
}

func upsert(ctx context.Context, db dbx.DBTX, c models.CardRow) error {
	var lastUsed sql.NullInt64
	if c.LastUsed != nil {
		lastUsed = sql.NullInt64{Int64: *c.LastUsed, Valid: true}
	}
	_, err := db.ExecContext(ctx, upsertQuery, c.ID, c.AccountID, c.CardNumber, c.MaskedNumber, c.HolderName,
		c.ExpiryMonth, c.ExpiryYear, c.CVV, c.CardType, c.Brand, c.IsActive, c.IsBlocked, c.DailyLimit,
		c.MonthlyLimit, c.Currency, lastUsed, c.CreatedDate, string(c.SyncStatus))
	return err
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.CardRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM cards ORDER BY created_date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select cards: %w", err)
	}
	defer rows.Close()

	var result []models.CardRow
	for rows.Next() {
		c, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate card rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.CardRow, error) {
	c, err := scanRow(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM cards WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card[%s]: %w", id, err)
	}
	return &c, nil
}

func (r *SQLiteRepository) Replace(ctx context.Context, rows []models.CardRow) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cards`); err != nil {
			return err
		}
		for _, c := range rows {
			if err := upsert(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace cards: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, row models.CardRow) error {
	if err := upsert(ctx, r.db, row); err != nil {
		return fmt.Errorf("failed to upsert card[%s]: %w", row.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cards`); err != nil {
		return fmt.Errorf("failed to clear cards: %w", err)
	}
	return nil
}
