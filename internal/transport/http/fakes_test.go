package http

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/cimillas/storefront/services/api/internal/app"
	"github.com/cimillas/storefront/services/api/internal/auth"
	"github.com/cimillas/storefront/services/api/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeOrders struct {
	mu        sync.Mutex
	result    app.PlaceOrderResult
	placeErr  error
	gotInput  app.PlaceOrderInput
	placed    int
	orders    []domain.Order
	listErr   error
	gotUserID string
}

func (f *fakeOrders) PlaceOrder(_ context.Context, in app.PlaceOrderInput) (app.PlaceOrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotInput = in
	f.placed++
	if f.placeErr != nil {
		return app.PlaceOrderResult{}, f.placeErr
	}
	return f.result, nil
}

func (f *fakeOrders) OrdersForUser(_ context.Context, userID string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotUserID = userID
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.orders == nil {
		return []domain.Order{}, nil
	}
	return f.orders, nil
}

type fakeCatalog struct {
	products    []domain.Product
	err         error
	gotID       string
	generateErr error
}

func (f *fakeCatalog) FindProduct(_ context.Context, productID string) (domain.Product, error) {
	f.gotID = productID
	if f.err != nil {
		return domain.Product{}, f.err
	}
	for _, p := range f.products {
		if p.ID == productID {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

func (f *fakeCatalog) ListProducts(context.Context) ([]domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func (f *fakeCatalog) GenerateProducts(context.Context) ([]domain.Product, error) {
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return f.products, nil
}

type fakeVerifier struct {
	tokens map[string]string
}

func (f fakeVerifier) Verify(token string) (string, error) {
	if token == "" {
		return "", auth.ErrMissingToken
	}
	id, ok := f.tokens[token]
	if !ok {
		return "", auth.ErrInvalidToken
	}
	return id, nil
}

type fakeLimiter struct {
	mu      sync.Mutex
	allowed int
	err     error
	keys    []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	if f.err != nil {
		return false, f.err
	}
	if f.allowed <= 0 {
		return false, nil
	}
	f.allowed--
	return true, nil
}
