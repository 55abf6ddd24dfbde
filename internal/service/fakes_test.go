package service_test

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/qkart/cart-core/internal/domain"
	"github.com/qkart/cart-core/internal/port"
)

// memStore is an in-memory stand-in for the cart store, the catalog and the
// ledger, with the same version-check semantics as the postgres
// repositories.
type memStore struct {
	mu       sync.Mutex
	carts    map[string]domain.Cart
	products map[uuid.UUID]domain.Product
	users    map[string]domain.User

	// when set, DebitWallet fails with this error
	debitErr error

	queuedDebits []queuedDebit
}

type queuedDebit struct {
	ownerID string
	amount  domain.Money
}

func newMemStore() *memStore {
	return &memStore{
		carts:    make(map[string]domain.Cart),
		products: make(map[uuid.UUID]domain.Product),
		users:    make(map[string]domain.User),
	}
}

func (m *memStore) FindCart(_ context.Context, ownerID string) (domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, ok := m.carts[ownerID]
	if !ok {
		return domain.Cart{}, port.ErrCartNotFound
	}

	cart.Items = slices.Clone(cart.Items)
	return cart, nil
}

func (m *memStore) CreateCart(_ context.Context, ownerID string) (domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.carts[ownerID]; ok {
		return domain.Cart{}, port.ErrVersionConflict
	}

	cart := domain.Cart{OwnerID: ownerID, Version: 1}
	m.carts[ownerID] = cart
	return cart, nil
}

func (m *memStore) SaveCart(_ context.Context, cart domain.Cart) (domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.carts[cart.OwnerID]
	if !ok || stored.Version != cart.Version {
		return domain.Cart{}, port.ErrVersionConflict
	}

	cart.Version++
	cart.Items = slices.Clone(cart.Items)
	m.carts[cart.OwnerID] = cart
	return cart, nil
}

func (m *memStore) GetProduct(_ context.Context, productID uuid.UUID) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, ok := m.products[productID]
	if !ok {
		return domain.Product{}, port.ErrProductNotFound
	}
	return product, nil
}

func (m *memStore) GetUser(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[email]
	if !ok {
		return domain.User{}, port.ErrUserNotFound
	}
	return user, nil
}

func (m *memStore) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.Email]; ok {
		return domain.User{}, port.ErrEmailTaken
	}
	if user.Address == "" {
		user.Address = domain.DefaultAddress
	}
	m.users[user.Email] = user
	return user, nil
}

func (m *memStore) SetAddress(_ context.Context, email, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[email]
	if !ok {
		return port.ErrUserNotFound
	}
	user.Address = address
	m.users[email] = user
	return nil
}

func (m *memStore) DebitWallet(_ context.Context, email string, amount domain.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.debitErr != nil {
		return m.debitErr
	}

	user, ok := m.users[email]
	if !ok {
		return port.ErrUserNotFound
	}
	if user.Wallet.LessThan(amount) {
		return port.ErrInsufficientFunds
	}

	wallet, err := user.Wallet.Sub(amount)
	if err != nil {
		return err
	}
	user.Wallet = wallet
	m.users[email] = user
	return nil
}

func (m *memStore) EnqueueWalletDebit(_ context.Context, ownerID string, amount domain.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queuedDebits = append(m.queuedDebits, queuedDebit{ownerID: ownerID, amount: amount})
	return nil
}

// failingCartStore wraps memStore to inject a lookup failure, e.g. a
// wrapped context deadline.
type failingCartStore struct {
	*memStore
	findErr error
}

func (f *failingCartStore) FindCart(ctx context.Context, ownerID string) (domain.Cart, error) {
	if f.findErr != nil {
		return domain.Cart{}, f.findErr
	}
	return f.memStore.FindCart(ctx, ownerID)
}

// contendedCartStore wraps memStore so every save loses the optimistic
// version check, as if another writer always got there first.
type contendedCartStore struct {
	*memStore
	saveCalls int
}

func (c *contendedCartStore) SaveCart(_ context.Context, _ domain.Cart) (domain.Cart, error) {
	c.saveCalls++
	return domain.Cart{}, port.ErrVersionConflict
}

// memTransactor applies fn against the shared store and restores the
// pre-call state when fn fails, mirroring a rolled-back transaction.
type memTransactor struct {
	store *memStore
}

func (t *memTransactor) RunAtomic(ctx context.Context, fn func(carts port.CartRepository, users port.UserRepository) error) error {
	t.store.mu.Lock()
	cartsBackup := make(map[string]domain.Cart, len(t.store.carts))
	for k, v := range t.store.carts {
		v.Items = slices.Clone(v.Items)
		cartsBackup[k] = v
	}
	usersBackup := make(map[string]domain.User, len(t.store.users))
	for k, v := range t.store.users {
		usersBackup[k] = v
	}
	t.store.mu.Unlock()

	if err := fn(t.store, t.store); err != nil {
		t.store.mu.Lock()
		t.store.carts = cartsBackup
		t.store.users = usersBackup
		t.store.mu.Unlock()
		return err
	}

	return nil
}
