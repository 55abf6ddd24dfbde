package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qkart/cart-core/internal/domain"
	"github.com/qkart/cart-core/internal/port"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// productRepository is the read-only catalog lookup. The catalog is owned
// elsewhere; this side never writes it.
type productRepository struct {
	db querier
}

func NewProductCatalog(pool *pgxpool.Pool) (port.ProductCatalog, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &productRepository{db: pool}, nil
}

func (r *productRepository) GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error) {
	var (
		product      domain.Product
		costAmount   decimal.Decimal
		costCurrency string
	)

	err := r.db.QueryRow(ctx,
		`SELECT id, name, cost_amount, cost_currency FROM products WHERE id = $1`, productID).
		Scan(&product.ID, &product.Name, &costAmount, &costCurrency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, port.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	parsedCurrency, err := currency.ParseISO(costCurrency)
	if err != nil {
		return domain.Product{}, fmt.Errorf("currency[%s] is not valid: %w", costCurrency, err)
	}
	product.Cost = domain.Money{Amount: costAmount, Currency: parsedCurrency}

	return product, nil
}
