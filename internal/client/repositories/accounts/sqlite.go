package accounts

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

const columns = `id, account_number, account_type, balance, currency, is_active, last_updated, created_date, sync_status`

const upsertQuery = `
	INSERT INTO accounts (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		account_number = excluded.account_number,
		account_type   = excluded.account_type,
		balance        = excluded.balance,
		currency       = excluded.currency,
		is_active      = excluded.is_active,
		last_updated   = excluded.last_updated,
		created_date   = excluded.created_date,
		sync_status    = excluded.sync_status`

func scanRow(row interface{ Scan(...any) error }) (models.AccountRow, error) {
	var a models.AccountRow
	var status string
	err := row.Scan(&a.ID, &a.AccountNumber, &a.AccountType, &a.Balance, &a.Currency,
		&a.IsActive, &a.LastUpdated, &a.CreatedDate, &status)
	a.SyncStatus = models.SyncStatus(status)
	return a, err
}

func upsert(ctx context.Context, db dbx.DBTX, a models.AccountRow) error {
	_, err := db.ExecContext(ctx, upsertQuery, a.ID, a.AccountNumber, a.AccountType, a.Balance,
		a.Currency, a.IsActive, a.LastUpdated, a.CreatedDate, string(a.SyncStatus))
	return err
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.AccountRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select accounts: %w", err)
	}
	defer rows.Close()

	var result []models.AccountRow
	for rows.Next() {
		a, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.AccountRow, error) {
	a, err := scanRow(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account[%s]: %w", id, err)
	}
	return &a, nil
}

func (r *SQLiteRepository) Replace(ctx context.Context, rows []models.AccountRow) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
			return err
		}
		for _, a := range rows {
			if err := upsert(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace accounts: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, row models.AccountRow) error {
	if err := upsert(ctx, r.db, row); err != nil {
		return fmt.Errorf("failed to upsert account[%s]: %w", row.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("failed to clear accounts: %w", err)
	}
	return nil
}
