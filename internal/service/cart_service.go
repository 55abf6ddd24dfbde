package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/qkart/cart-core/internal/domain"
	"github.com/qkart/cart-core/internal/port"
)

// Fixed failure messages. These are part of the contract: callers and tests
// match on them.
const (
	msgNoCart          = "User does not have a cart"
	msgNoCartForUpdate = "User does not have a cart. Use POST to create cart and add a product"
	msgNoCartCheckout  = "User has no cart"
	msgProductMissing  = "Product doesn't exist in database"
	msgAlreadyInCart   = "Product already in cart. Use the cart sidebar to update or remove product from cart"
	msgNotInCart       = "Product not in cart"
	msgEmptyCart       = "User cart is empty"
	msgNoAddress       = "User address is not set"
	msgLowBalance      = "User has insufficient balance"
	msgUserNotFound    = "User not found"
	msgEmailTaken      = "Email already taken"
	msgShortAddress    = "Address should be greater than 20 characters"
	msgBadQuantity     = "Quantity must be at least 1"
	msgInternal        = "INTERNAL_SERVER_ERROR"
	msgTimeout         = "Operation timed out"
	msgCartContended   = "Cart was modified concurrently, please retry"
)

// maxWriteAttempts bounds the re-read-and-retry loop on version conflicts.
const maxWriteAttempts = 3

// CartService is the business-logic layer over the cart store, the product
// catalog and the user ledger. All invariants live here; the stores only
// persist.
type CartService struct {
	carts   port.CartRepository
	catalog port.ProductCatalog
	users   port.UserRepository

	// optional: when set, checkout clears the cart and debits the wallet
	// inside one database transaction.
	tx port.Transactor

	// optional: receives wallet debits that failed after the cart was
	// already cleared on the non-transactional path.
	reconcile port.ReconciliationQueue

	logger *slog.Logger
	locks  ownerLocker
}

type Option func(*CartService)

func WithTransactor(tx port.Transactor) Option {
	return func(s *CartService) { s.tx = tx }
}

func WithReconciliationQueue(q port.ReconciliationQueue) Option {
	return func(s *CartService) { s.reconcile = q }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *CartService) { s.logger = logger }
}

func New(carts port.CartRepository, catalog port.ProductCatalog, users port.UserRepository, opts ...Option) (*CartService, error) {
	if carts == nil {
		return nil, fmt.Errorf("carts is nil")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	if users == nil {
		return nil, fmt.Errorf("users is nil")
	}

	s := &CartService{
		carts:   carts,
		catalog: catalog,
		users:   users,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// GetCart looks up the single cart keyed by owner. No side effects.
func (s *CartService) GetCart(ctx context.Context, ownerID string) (domain.Cart, error) {
	cart, err := s.carts.FindCart(ctx, ownerID)
	if err != nil {
		if errors.Is(err, port.ErrCartNotFound) {
			return domain.Cart{}, domain.NotFound(msgNoCart)
		}
		return domain.Cart{}, s.storeErr("carts.FindCart", err)
	}

	return cart, nil
}

// AddProduct appends a new line item holding a snapshot of the product as
// priced right now. The cart is created lazily on first add.
func (s *CartService) AddProduct(ctx context.Context, ownerID string, productID uuid.UUID, quantity int64) (domain.Cart, error) {
	if quantity < 1 {
		return domain.Cart{}, domain.InvalidRequest(msgBadQuantity)
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		cart, err := s.findOrCreateCart(ctx, ownerID)
		if err != nil {
			if errors.Is(err, port.ErrVersionConflict) {
				continue
			}
			return domain.Cart{}, err
		}

		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, port.ErrProductNotFound) {
				return domain.Cart{}, domain.InvalidRequest(msgProductMissing)
			}
			return domain.Cart{}, s.storeErr("catalog.GetProduct", err)
		}

		if cart.FindItem(product.ID) >= 0 {
			return domain.Cart{}, domain.Conflict(msgAlreadyInCart)
		}

		cart.Items = append(cart.Items, domain.CartItem{
			Product:   product,
			Quantity:  quantity,
			CreatedAt: time.Now().UTC(),
		})

		saved, err := s.carts.SaveCart(ctx, cart)
		if err != nil {
			if errors.Is(err, port.ErrVersionConflict) {
				continue
			}
			return domain.Cart{}, s.storeErr("carts.SaveCart", err)
		}

		return saved, nil
	}

	return domain.Cart{}, domain.Conflict(msgCartContended)
}

// UpdateQuantity overwrites the quantity of an existing line item in place,
// keeping the product snapshot captured at add-time. It never creates a
// cart or an item.
func (s *CartService) UpdateQuantity(ctx context.Context, ownerID string, productID uuid.UUID, quantity int64) (domain.Cart, error) {
	if quantity < 1 {
		return domain.Cart{}, domain.InvalidRequest(msgBadQuantity)
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		cart, err := s.carts.FindCart(ctx, ownerID)
		if err != nil {
			if errors.Is(err, port.ErrCartNotFound) {
				return domain.Cart{}, domain.InvalidRequest(msgNoCartForUpdate)
			}
			return domain.Cart{}, s.storeErr("carts.FindCart", err)
		}

		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, port.ErrProductNotFound) {
				return domain.Cart{}, domain.InvalidRequest(msgProductMissing)
			}
			return domain.Cart{}, s.storeErr("catalog.GetProduct", err)
		}

		idx := cart.FindItem(product.ID)
		if idx < 0 {
			return domain.Cart{}, domain.InvalidRequest(msgNotInCart)
		}

		cart.Items[idx].Quantity = quantity

		saved, err := s.carts.SaveCart(ctx, cart)
		if err != nil {
			if errors.Is(err, port.ErrVersionConflict) {
				continue
			}
			return domain.Cart{}, s.storeErr("carts.SaveCart", err)
		}

		return saved, nil
	}

	return domain.Cart{}, domain.Conflict(msgCartContended)
}

// DeleteProduct removes exactly one line item, preserving the relative
// order of the rest.
func (s *CartService) DeleteProduct(ctx context.Context, ownerID string, productID uuid.UUID) error {
	unlock := s.locks.lock(ownerID)
	defer unlock()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		cart, err := s.carts.FindCart(ctx, ownerID)
		if err != nil {
			if errors.Is(err, port.ErrCartNotFound) {
				return domain.InvalidRequest(msgNoCart)
			}
			return s.storeErr("carts.FindCart", err)
		}

		idx := cart.FindItem(productID)
		if idx < 0 {
			return domain.InvalidRequest(msgNotInCart)
		}

		cart.RemoveItem(idx)

		if _, err := s.carts.SaveCart(ctx, cart); err != nil {
			if errors.Is(err, port.ErrVersionConflict) {
				continue
			}
			return s.storeErr("carts.SaveCart", err)
		}

		return nil
	}

	return domain.Conflict(msgCartContended)
}

func (s *CartService) findOrCreateCart(ctx context.Context, ownerID string) (domain.Cart, error) {
	cart, err := s.carts.FindCart(ctx, ownerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, port.ErrCartNotFound) {
		return domain.Cart{}, s.storeErr("carts.FindCart", err)
	}

	cart, err = s.carts.CreateCart(ctx, ownerID)
	if err != nil {
		if errors.Is(err, port.ErrVersionConflict) {
			// lost a create race, caller re-reads
			return domain.Cart{}, err
		}
		return domain.Cart{}, domain.Internal(msgInternal, err)
	}

	return cart, nil
}

// storeErr classifies an unexpected store failure: deadline and cancellation
// surface as Timeout, everything else as Internal.
func (s *CartService) storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.Timeout(msgTimeout, fmt.Errorf("%s: %w", op, err))
	}
	return domain.Internal(msgInternal, fmt.Errorf("%s: %w", op, err))
}
