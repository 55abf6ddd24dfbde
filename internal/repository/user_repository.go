package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qkart/cart-core/internal/domain"
	"github.com/qkart/cart-core/internal/port"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type userRepository struct {
	db querier
}

func NewUser(pool *pgxpool.Pool) (port.UserRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &userRepository{db: pool}, nil
}

func NewUserWithTx(tx pgx.Tx) port.UserRepository {
	return &userRepository{db: tx}
}

func (r *userRepository) GetUser(ctx context.Context, email string) (domain.User, error) {
	if email == "" {
		return domain.User{}, fmt.Errorf("email is empty")
	}

	var (
		user           domain.User
		walletAmount   decimal.Decimal
		walletCurrency string
	)

	err := r.db.QueryRow(ctx,
		`SELECT email, wallet_amount, wallet_currency, address FROM users WHERE email = $1`, email).
		Scan(&user.Email, &walletAmount, &walletCurrency, &user.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, port.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}

	parsedCurrency, err := currency.ParseISO(walletCurrency)
	if err != nil {
		return domain.User{}, fmt.Errorf("currency[%s] is not valid: %w", walletCurrency, err)
	}
	user.Wallet = domain.Money{Amount: walletAmount, Currency: parsedCurrency}

	return user, nil
}

func (r *userRepository) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	if user.Email == "" {
		return domain.User{}, fmt.Errorf("email is empty")
	}

	address := user.Address
	if address == "" {
		address = domain.DefaultAddress
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO users (email, wallet_amount, wallet_currency, address) VALUES ($1, $2, $3, $4)`,
		user.Email, user.Wallet.Amount, user.Wallet.Currency.String(), address)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.User{}, port.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}

	user.Address = address
	return user, nil
}

func (r *userRepository) SetAddress(ctx context.Context, email, address string) error {
	if email == "" {
		return fmt.Errorf("email is empty")
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET address = $2 WHERE email = $1`, email, address)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return port.ErrUserNotFound
	}

	return nil
}

// DebitWallet decrements the balance in a single conditional statement, so
// the wallet can never go negative even when debits race.
func (r *userRepository) DebitWallet(ctx context.Context, email string, amount domain.Money) error {
	if email == "" {
		return fmt.Errorf("email is empty")
	}
	if amount.IsNegative() {
		return fmt.Errorf("debit amount is negative")
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET wallet_amount = wallet_amount - $2
		 WHERE email = $1 AND wallet_currency = $3 AND wallet_amount >= $2`,
		email, amount.Amount, amount.Currency.String())
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the user vanished or the balance dropped below the total
		// since it was read; tell them apart for the caller.
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists); err != nil {
			return fmt.Errorf("select user exists: %w", err)
		}
		if !exists {
			return port.ErrUserNotFound
		}
		return port.ErrInsufficientFunds
	}

	return nil
}
