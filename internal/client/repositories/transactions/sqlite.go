package transactions

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

const columns = `id, account_id, amount, currency, type, status, description, recipient_name,
	recipient_account, reference, date, balance_after, sync_status`

const upsertQuery = `
	INSERT INTO transactions (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		account_id        = excluded.account_id,
		amount            = excluded.amount,
		currency          = excluded.currency,
		type              = excluded.type,
		status            = excluded.status,
		description       = excluded.description,
		recipient_name    = excluded.recipient_name,
		recipient_account = excluded.recipient_account,
		reference         = excluded.reference,
		date              = excluded.date,
		balance_after     = excluded.balance_after,
		sync_status       = excluded.sync_status`

func scanRow(row interface{ Scan(...any) error }) (models.TransactionRow, error) {
	var t models.TransactionRow
	var status string
	err := row.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Currency, &t.Type, &t.Status, &t.Description,
		&t.RecipientName, &t.RecipientAccount, &t.Reference, &t.Date, &t.BalanceAfter, &status)
	t.SyncStatus = models.SyncStatus(status)
	return t, err
}

func upsert(ctx context.Context, db dbx.DBTX, t models.TransactionRow) error {
	_, err := db.ExecContext(ctx, upsertQuery, t.ID, t.AccountID, t.Amount, t.Currency, t.Type, t.Status,
		t.Description, t.RecipientName, t.RecipientAccount, t.Reference, t.Date, t.BalanceAfter, string(t.SyncStatus))
	return err
}

func (r *SQLiteRepository) List(ctx context.Context, limit, offset int) ([]models.TransactionRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columns+` FROM transactions ORDER BY date DESC, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select transactions: %w", err)
	}
	defer rows.Close()

	var result []models.TransactionRow
	for rows.Next() {
		t, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transaction rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.TransactionRow, error) {
	t, err := scanRow(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction[%s]: %w", id, err)
	}
	return &t, nil
}

func (r *SQLiteRepository) Replace(ctx context.Context, rows []models.TransactionRow) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
			return err
		}
		for _, t := range rows {
			if err := upsert(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace transactions: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, row models.TransactionRow) error {
	if err := upsert(ctx, r.db, row); err != nil {
		return fmt.Errorf("failed to upsert transaction[%s]: %w", row.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}
	return nil
}
