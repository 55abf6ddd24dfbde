package service

import (
	"context"
	"errors"

	"github.com/qkart/cart-core/internal/domain"
	"github.com/qkart/cart-core/internal/port"
)

// CheckoutOutcome reports how far a checkout got.
type CheckoutOutcome int

const (
	// CheckoutFailed means nothing was applied.
	CheckoutFailed CheckoutOutcome = iota
	// CheckoutPartiallyApplied means the cart was durably cleared but the
	// wallet debit did not apply; a reconciliation record holds the debit.
	CheckoutPartiallyApplied
	// CheckoutFullySucceeded means cart cleared and wallet debited.
	CheckoutFullySucceeded
)

func (o CheckoutOutcome) String() string {
	switch o {
	case CheckoutPartiallyApplied:
		return "partially_applied"
	case CheckoutFullySucceeded:
		return "fully_succeeded"
	default:
		return "failed"
	}
}

type CheckoutResult struct {
	Outcome CheckoutOutcome
	Total   domain.Money
}

// Checkout converts a non-empty cart into a wallet debit plus an emptied
// cart. Preconditions are evaluated strictly in order and short-circuit, so
// no side effect happens for a cart that fails a later check. The total is
// computed from the product snapshots captured at add-time, on purpose: a
// catalog price change after add does not change what checkout charges.
func (s *CartService) Checkout(ctx context.Context, ownerID string) (CheckoutResult, error) {
	unlock := s.locks.lock(ownerID)
	defer unlock()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		cart, err := s.carts.FindCart(ctx, ownerID)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return CheckoutResult{}, s.storeErr("carts.FindCart", err)
			}
			return CheckoutResult{}, domain.NotFound(msgNoCartCheckout)
		}

		if len(cart.Items) == 0 {
			return CheckoutResult{}, domain.InvalidRequest(msgEmptyCart)
		}

		user, err := s.users.GetUser(ctx, ownerID)
		if err != nil {
			if errors.Is(err, port.ErrUserNotFound) {
				return CheckoutResult{}, domain.NotFound(msgUserNotFound)
			}
			return CheckoutResult{}, s.storeErr("users.GetUser", err)
		}

		if !user.HasShippingAddress() {
			return CheckoutResult{}, domain.InvalidRequest(msgNoAddress)
		}

		total, err := cart.TotalCost()
		if err != nil {
			return CheckoutResult{}, domain.Internal(msgInternal, err)
		}

		if user.Wallet.LessThan(total) {
			return CheckoutResult{}, domain.InvalidRequest(msgLowBalance)
		}

		emptied := cart
		emptied.Items = nil

		if s.tx != nil {
			result, err := s.checkoutAtomic(ctx, emptied, total)
			if err != nil {
				if errors.Is(err, port.ErrVersionConflict) {
					continue
				}
				return CheckoutResult{}, err
			}
			return result, nil
		}

		result, err := s.checkoutSequential(ctx, emptied, total)
		if err != nil {
			if errors.Is(err, port.ErrVersionConflict) {
				continue
			}
			return CheckoutResult{}, err
		}
		return result, nil
	}

	return CheckoutResult{}, domain.Conflict(msgCartContended)
}

// checkoutAtomic clears the cart and debits the wallet in one database
// transaction: both apply or neither does.
func (s *CartService) checkoutAtomic(ctx context.Context, emptied domain.Cart, total domain.Money) (CheckoutResult, error) {
	err := s.tx.RunAtomic(ctx, func(carts port.CartRepository, users port.UserRepository) error {
		if _, err := carts.SaveCart(ctx, emptied); err != nil {
			return err
		}
		return users.DebitWallet(ctx, emptied.OwnerID, total)
	})
	if err != nil {
		if errors.Is(err, port.ErrVersionConflict) {
			return CheckoutResult{}, err
		}
		// The balance dropped between the read and the conditional debit;
		// the transaction rolled back, so the cart is untouched.
		if errors.Is(err, port.ErrInsufficientFunds) {
			return CheckoutResult{}, domain.InvalidRequest(msgLowBalance)
		}
		return CheckoutResult{}, s.storeErr("tx.RunAtomic", err)
	}

	return CheckoutResult{Outcome: CheckoutFullySucceeded, Total: total}, nil
}

// checkoutSequential is the non-transactional path: clear the cart first,
// then debit. A debit failure after the cart is durably cleared is a
// degraded outcome, not an error: the caller has already observed a
// successful checkout, so the debit is reported out-of-band and queued for
// reconciliation.
func (s *CartService) checkoutSequential(ctx context.Context, emptied domain.Cart, total domain.Money) (CheckoutResult, error) {
	if _, err := s.carts.SaveCart(ctx, emptied); err != nil {
		if errors.Is(err, port.ErrVersionConflict) {
			return CheckoutResult{}, err
		}
		return CheckoutResult{}, s.storeErr("carts.SaveCart", err)
	}

	if err := s.users.DebitWallet(ctx, emptied.OwnerID, total); err != nil {
		s.logger.Error("wallet debit failed after cart was cleared",
			"owner_id", emptied.OwnerID,
			"total", total.String(),
			"error", err)

		if s.reconcile != nil {
			if qErr := s.reconcile.EnqueueWalletDebit(ctx, emptied.OwnerID, total); qErr != nil {
				s.logger.Error("failed to enqueue wallet debit for reconciliation",
					"owner_id", emptied.OwnerID,
					"error", qErr)
			}
		}

		return CheckoutResult{Outcome: CheckoutPartiallyApplied, Total: total}, nil
	}

	return CheckoutResult{Outcome: CheckoutFullySucceeded, Total: total}, nil
}
