package port

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/qkart/cart-core/internal/domain"
)

// Sentinel errors the repositories translate store-level conditions into.
// The service layer maps these onto the public (kind, message) contract.
var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already taken")

	// ErrVersionConflict means the cart document's version advanced between
	// read and write; the caller should re-read and retry.
	ErrVersionConflict = errors.New("cart version conflict")

	// ErrInsufficientFunds means a conditional wallet debit found less
	// balance than the debit amount at write time.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
)

// CartRepository is the durable store of one cart document per owner.
// SaveCart rewrites the whole document and fails with ErrVersionConflict if
// the stored version differs from cart.Version.
type CartRepository interface {
	FindCart(ctx context.Context, ownerID string) (domain.Cart, error)
	CreateCart(ctx context.Context, ownerID string) (domain.Cart, error)
	SaveCart(ctx context.Context, cart domain.Cart) (domain.Cart, error)
}

// ProductCatalog is the read-only product registry.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error)
}

// UserRepository is the per-user balance/address ledger. DebitWallet is a
// conditional single-statement decrement: it fails with
// ErrInsufficientFunds rather than ever driving the balance negative.
type UserRepository interface {
	GetUser(ctx context.Context, email string) (domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	SetAddress(ctx context.Context, email, address string) error
	DebitWallet(ctx context.Context, email string, amount domain.Money) error
}

// Transactor runs fn with cart and user repositories bound to one database
// transaction, committing only if fn returns nil.
type Transactor interface {
	RunAtomic(ctx context.Context, fn func(carts CartRepository, users UserRepository) error) error
}

// ReconciliationQueue records wallet debits that could not be applied after
// a cart was already cleared, for an out-of-band process to drain.
type ReconciliationQueue interface {
	EnqueueWalletDebit(ctx context.Context, ownerID string, amount domain.Money) error
}
