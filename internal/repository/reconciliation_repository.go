package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qkart/cart-core/internal/domain"
	"github.com/qkart/cart-core/internal/port"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// PendingDebit is a wallet debit recorded after a checkout cleared the cart
// but could not apply the debit. An operator process drains these.
type PendingDebit struct {
	ID        int64
	OwnerID   string
	Amount    domain.Money
	CreatedAt time.Time
	AppliedAt *time.Time
}

type ReconciliationRepository struct {
	db querier
}

func NewReconciliationQueue(pool *pgxpool.Pool) (*ReconciliationRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &ReconciliationRepository{db: pool}, nil
}

var _ port.ReconciliationQueue = (*ReconciliationRepository)(nil)

func (r *ReconciliationRepository) EnqueueWalletDebit(ctx context.Context, ownerID string, amount domain.Money) error {
	if ownerID == "" {
		return fmt.Errorf("ownerID is empty")
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO wallet_debits (owner_id, amount, currency) VALUES ($1, $2, $3)`,
		ownerID, amount.Amount, amount.Currency.String())
	if err != nil {
		return fmt.Errorf("insert wallet_debits: %w", err)
	}

	return nil
}

func (r *ReconciliationRepository) FetchPending(ctx context.Context, limit int) ([]PendingDebit, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, owner_id, amount, currency, created_at, applied_at
		 FROM wallet_debits WHERE applied_at IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select wallet_debits: %w", err)
	}
	defer rows.Close()

	var out []PendingDebit
	for rows.Next() {
		var (
			debit        PendingDebit
			amount       decimal.Decimal
			currencyCode string
		)
		if err := rows.Scan(&debit.ID, &debit.OwnerID, &amount, &currencyCode,
			&debit.CreatedAt, &debit.AppliedAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		parsedCurrency, err := currency.ParseISO(currencyCode)
		if err != nil {
			return nil, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
		}
		debit.Amount = domain.Money{Amount: amount, Currency: parsedCurrency}

		out = append(out, debit)
	}

	return out, rows.Err()
}

func (r *ReconciliationRepository) MarkApplied(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE wallet_debits SET applied_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update wallet_debits: %w", err)
	}

	return nil
}
