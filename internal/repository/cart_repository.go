package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qkart/cart-core/internal/domain"
	"github.com/qkart/cart-core/internal/port"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const uniqueViolationCode = "23505"

type cartRepository struct {
	db   querier
	pool *pgxpool.Pool
}

func NewCart(pool *pgxpool.Pool) (port.CartRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &cartRepository{
		db:   pool,
		pool: pool,
	}, nil
}

func NewCartWithTx(tx pgx.Tx) port.CartRepository {
	return &cartRepository{
		db:   tx,
		pool: nil, // use provided transaction instead
	}
}

func (r *cartRepository) FindCart(ctx context.Context, ownerID string) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, fmt.Errorf("ownerID is empty")
	}

	cart := domain.Cart{OwnerID: ownerID}

	err := r.db.QueryRow(ctx,
		`SELECT version FROM carts WHERE owner_id = $1`, ownerID).Scan(&cart.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Cart{}, port.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT product_id, product_name, cost_amount, cost_currency, quantity, created_at
		 FROM cart_items WHERE owner_id = $1 ORDER BY position`, ownerID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("select cart_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return domain.Cart{}, fmt.Errorf("scanCartItem: %w", err)
		}

		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, fmt.Errorf("rows.Err: %w", err)
	}

	return cart, nil
}

func (r *cartRepository) CreateCart(ctx context.Context, ownerID string) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, fmt.Errorf("ownerID is empty")
	}

	cart := domain.Cart{OwnerID: ownerID}

	err := r.db.QueryRow(ctx,
		`INSERT INTO carts (owner_id) VALUES ($1) RETURNING version`, ownerID).Scan(&cart.Version)
	if err != nil {
		// A concurrent create already claimed the owner key; the caller
		// should re-read and retry.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.Cart{}, port.ErrVersionConflict
		}
		return domain.Cart{}, fmt.Errorf("insert cart: %w", err)
	}

	return cart, nil
}

// SaveCart rewrites the whole cart document: the version row is bumped under
// an optimistic check, then items are deleted and re-inserted in order.
func (r *cartRepository) SaveCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if cart.OwnerID == "" {
		return domain.Cart{}, fmt.Errorf("ownerID is empty")
	}

	return withTx(ctx, r.pool, r.db, func(q querier) (domain.Cart, error) {
		tag, err := q.Exec(ctx,
			`UPDATE carts SET version = version + 1, updated_at = now()
			 WHERE owner_id = $1 AND version = $2`, cart.OwnerID, cart.Version)
		if err != nil {
			return domain.Cart{}, fmt.Errorf("update carts: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.Cart{}, port.ErrVersionConflict
		}

		if _, err := q.Exec(ctx,
			`DELETE FROM cart_items WHERE owner_id = $1`, cart.OwnerID); err != nil {
			return domain.Cart{}, fmt.Errorf("delete cart_items: %w", err)
		}

		for i, item := range cart.Items {
			createdAt := item.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}

			_, err := q.Exec(ctx,
				`INSERT INTO cart_items (owner_id, product_id, product_name, cost_amount, cost_currency, quantity, position, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				cart.OwnerID, item.Product.ID, item.Product.Name,
				item.Product.Cost.Amount, item.Product.Cost.Currency.String(),
				item.Quantity, i, createdAt)
			if err != nil {
				return domain.Cart{}, fmt.Errorf("insert cart_items: %w", err)
			}
		}

		saved := cart
		saved.Version = cart.Version + 1
		return saved, nil
	})
}

func scanCartItem(rows pgx.Rows) (domain.CartItem, error) {
	var (
		item         domain.CartItem
		costAmount   decimal.Decimal
		costCurrency string
	)

	err := rows.Scan(&item.Product.ID, &item.Product.Name, &costAmount, &costCurrency,
		&item.Quantity, &item.CreatedAt)
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("rows.Scan: %w", err)
	}

	parsedCurrency, err := currency.ParseISO(costCurrency)
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("currency[%s] is not valid: %w", costCurrency, err)
	}
	item.Product.Cost = domain.Money{Amount: costAmount, Currency: parsedCurrency}

	return item, nil
}
