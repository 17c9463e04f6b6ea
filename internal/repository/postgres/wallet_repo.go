package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
)

type WalletRepo struct {
	q querier
}

func NewWalletRepo(q querier) *WalletRepo {
	return &WalletRepo{q: q}
}

const walletColumns = `id, user_id, balance, created_at, updated_at`

func (r *WalletRepo) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	return r.getWallet(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
}

func (r *WalletRepo) GetWalletForUpdate(ctx context.Context, userID string) (*models.Wallet, error) {
	return r.getWallet(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *WalletRepo) getWallet(ctx context.Context, query, userID string) (*models.Wallet, error) {
	var w models.Wallet
	err := r.q.QueryRowContext(ctx, query, userID).Scan(&w.ID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *WalletRepo) CreateWallet(ctx context.Context, w *models.Wallet) error {
	query := `
		INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.q.ExecContext(ctx, query, w.ID, w.UserID, w.Balance, w.CreatedAt, w.UpdatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (r *WalletRepo) AddWalletBalance(ctx context.Context, walletID string, delta int64, at time.Time) error {
	query := `
		UPDATE wallets
		SET balance = balance + $2,
		    updated_at = $3
		WHERE id = $1
	`
	res, err := r.q.ExecContext(ctx, query, walletID, delta, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *WalletRepo) AppendWalletTransaction(ctx context.Context, t *models.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions (id, wallet_id, amount, type, order_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var orderID sql.NullString
	if t.OrderID != nil {
		orderID = sql.NullString{String: *t.OrderID, Valid: true}
	}
	_, err := r.q.ExecContext(ctx, query, t.ID, t.WalletID, t.Amount, string(t.Type), orderID, t.Description, t.CreatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (r *WalletRepo) ListWalletTransactions(ctx context.Context, walletID string) ([]models.WalletTransaction, error) {
	query := `
		SELECT id, wallet_id, amount, type, order_id, description, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.q.QueryContext(ctx, query, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WalletTransaction
	for rows.Next() {
		var (
			t       models.WalletTransaction
			txType  string
			orderID sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Amount, &txType, &orderID, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Type = models.TransactionType(txType)
		if orderID.Valid {
			id := orderID.String
			t.OrderID = &id
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *WalletRepo) HasOrderCredit(ctx context.Context, orderID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM wallet_transactions
			WHERE order_id = $1 AND type = 'CREDIT'
		)
	`
	var exists bool
	err := r.q.QueryRowContext(ctx, query, orderID).Scan(&exists)
	return exists, err
}
