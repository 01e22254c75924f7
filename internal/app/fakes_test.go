package app

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/cimillas/storefront/services/api/internal/domain"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory stand-in for the Postgres repositories. WithTx
// serializes transactions. Writes made through the transaction context are
// journaled and undone when fn fails; writes from outside the transaction
// are left alone.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users    map[string]domain.User
	products map[string]domain.Product
	orders   []domain.Order

	failCreateOrder error
	failCommit      error
	txCount         int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]domain.User),
		products: make(map[string]domain.Product),
	}
}

func (f *fakeStore) addUser(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

func (f *fakeStore) addProduct(p domain.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
}

func (f *fakeStore) user(id string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

func (f *fakeStore) product(id string) domain.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id]
}

func (f *fakeStore) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type fakeTxKey struct{}

type fakeTx struct {
	undo []func()
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	f.txCount++
	f.mu.Unlock()

	tx := &fakeTx{}
	err := fn(context.WithValue(ctx, fakeTxKey{}, tx))
	if err == nil && f.failCommit != nil {
		err = f.failCommit
	}
	if err != nil {
		f.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		f.mu.Unlock()
		return err
	}
	return nil
}

// journal records how to revert a transactional write. Callers hold f.mu;
// undo functions run with f.mu held.
func journal(ctx context.Context, undo func()) {
	if tx, ok := ctx.Value(fakeTxKey{}).(*fakeTx); ok {
		tx.undo = append(tx.undo, undo)
	}
}

func (f *fakeStore) FindOrCreateUser(_ context.Context, candidate domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == candidate.Email {
			return u, nil
		}
	}
	f.users[candidate.ID] = candidate
	return candidate, nil
}

func (f *fakeStore) UpdateUserToken(_ context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Token = token
	f.users[userID] = u
	return nil
}

func (f *fakeStore) GetProduct(_ context.Context, productID string) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeStore) ListProducts(_ context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Product
	for _, p := range f.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) CreateProducts(_ context.Context, products []domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range products {
		f.products[p.ID] = p
	}
	return nil
}

func (f *fakeStore) GetUserForUpdate(_ context.Context, userID string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) GetProductForUpdate(ctx context.Context, productID string) (domain.Product, error) {
	return f.GetProduct(ctx, productID)
}

func (f *fakeStore) UpdateUserBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if balance.IsNegative() {
		return errors.New("balance check constraint")
	}
	prev := u.Balance
	journal(ctx, func() {
		u := f.users[userID]
		u.Balance = prev
		f.users[userID] = u
	})
	u.Balance = balance
	f.users[userID] = u
	return nil
}

func (f *fakeStore) UpdateProductStock(ctx context.Context, productID string, stock int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if stock < 0 {
		return errors.New("stock check constraint")
	}
	prev := p.Stock
	journal(ctx, func() {
		p := f.products[productID]
		p.Stock = prev
		f.products[productID] = p
	})
	p.Stock = stock
	f.products[productID] = p
	return nil
}

func (f *fakeStore) CreateOrder(ctx context.Context, order domain.Order) error {
	if f.failCreateOrder != nil {
		return f.failCreateOrder
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	journal(ctx, func() {
		for i := range f.orders {
			if f.orders[i].ID == order.ID {
				f.orders = append(f.orders[:i], f.orders[i+1:]...)
				return
			}
		}
	})
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeStore) ListOrdersByUser(_ context.Context, userID string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for i := len(f.orders) - 1; i >= 0; i-- {
		if f.orders[i].UserID == userID {
			out = append(out, f.orders[i])
		}
	}
	return out, nil
}

type stubTokens struct {
	mu     sync.Mutex
	issued int
	err    error
}

func (s *stubTokens) Issue(userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.issued++
	return "token-" + userID, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	orders []domain.Order
	err    error
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, order domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, order)
	return p.err
}
