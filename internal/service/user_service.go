package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/qkart/cart-core/internal/domain"
	"github.com/qkart/cart-core/internal/port"
)

// UserService exposes the ledger operations the boundary layer needs beyond
// checkout: user lookup, registration and shipping-address updates.
type UserService struct {
	users port.UserRepository
}

func NewUserService(users port.UserRepository) (*UserService, error) {
	if users == nil {
		return nil, fmt.Errorf("users is nil")
	}

	return &UserService{users: users}, nil
}

func (s *UserService) GetUser(ctx context.Context, email string) (domain.User, error) {
	user, err := s.users.GetUser(ctx, email)
	if err != nil {
		if errors.Is(err, port.ErrUserNotFound) {
			return domain.User{}, domain.NotFound(msgUserNotFound)
		}
		return domain.User{}, domain.Internal(msgInternal, err)
	}

	return user, nil
}

func (s *UserService) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	if user.Wallet.IsNegative() {
		return domain.User{}, domain.InvalidRequest("Wallet balance cannot be negative")
	}

	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, port.ErrEmailTaken) {
			return domain.User{}, domain.Conflict(msgEmailTaken)
		}
		return domain.User{}, domain.Internal(msgInternal, err)
	}

	return created, nil
}

// SetAddress replaces the shipping address, lifting the user out of the
// default-address sentinel state checkout refuses to proceed from.
func (s *UserService) SetAddress(ctx context.Context, email, address string) (string, error) {
	if len(address) < domain.MinAddressLength {
		return "", domain.InvalidRequest(msgShortAddress)
	}

	if err := s.users.SetAddress(ctx, email, address); err != nil {
		if errors.Is(err, port.ErrUserNotFound) {
			return "", domain.NotFound(msgUserNotFound)
		}
		return "", domain.Internal(msgInternal, err)
	}

	return address, nil
}
