package app

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/cimillas/storefront/services/api/internal/clock"
	"github.com/cimillas/storefront/services/api/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	generateBatchSize = 10
	minPriceCents     = 5000
	maxPriceCents     = 10000
	minStock          = 1
	maxStock          = 100
	nameSuffixLen     = 6
	nameSuffixChars   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

type ProductRepository interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProducts(ctx context.Context, products []domain.Product) error
}

type CatalogService struct {
	repo  ProductRepository
	clock clock.Clock

	mu   sync.Mutex
	intN func(n int) int
}

type CatalogServiceOption func(*CatalogService)

// WithRand makes product generation deterministic.
func WithRand(r *rand.Rand) CatalogServiceOption {
	return func(s *CatalogService) {
		if r != nil {
			s.intN = r.IntN
		}
	}
}

func NewCatalogService(repo ProductRepository, clk clock.Clock, opts ...CatalogServiceOption) *CatalogService {
	svc := &CatalogService{
		repo:  repo,
		clock: clk,
		intN:  rand.IntN,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// FindProduct returns domain.ErrProductNotFound when the product does not exist.
func (s *CatalogService) FindProduct(ctx context.Context, productID string) (domain.Product, error) {
	if productID == "" {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return s.repo.GetProduct(ctx, productID)
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// GenerateProducts seeds a batch of products with random names, prices in
// [50.00, 100.00] and stock in [1, 100].
func (s *CatalogService) GenerateProducts(ctx context.Context) ([]domain.Product, error) {
	now := s.clock.Now()
	products := make([]domain.Product, 0, generateBatchSize)

	s.mu.Lock()
	for i := 0; i < generateBatchSize; i++ {
		products = append(products, domain.Product{
			ID:        newID(),
			Name:      "Product " + s.suffix(),
			Price:     decimal.New(int64(minPriceCents+s.intN(maxPriceCents-minPriceCents+1)), -2),
			Stock:     minStock + s.intN(maxStock-minStock+1),
			CreatedAt: now,
		})
	}
	s.mu.Unlock()

	if err := s.repo.CreateProducts(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *CatalogService) suffix() string {
	b := make([]byte, nameSuffixLen)
	for i := range b {
		b[i] = nameSuffixChars[s.intN(len(nameSuffixChars))]
	}
	return string(b)
}
