package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cimillas/storefront/services/api/internal/clock"
	"github.com/cimillas/storefront/services/api/internal/domain"
	"github.com/shopspring/decimal"
)

type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUserForUpdate(ctx context.Context, userID string) (domain.User, error)
	GetProductForUpdate(ctx context.Context, productID string) (domain.Product, error)
	UpdateUserBalance(ctx context.Context, userID string, balance decimal.Decimal) error
	UpdateProductStock(ctx context.Context, productID string, stock int) error
	CreateOrder(ctx context.Context, order domain.Order) error
	ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

// IdentityResolver finds or creates the ordering user.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, name, email string) (domain.User, error)
	RecordToken(ctx context.Context, userID, token string) error
}

type ProductFinder interface {
	FindProduct(ctx context.Context, productID string) (domain.Product, error)
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// OrderPublisher announces committed orders to other systems.
type OrderPublisher interface {
	PublishOrderCreated(ctx context.Context, order domain.Order) error
}

const defaultPublishTimeout = 5 * time.Second

type OrderService struct {
	repo           OrderRepository
	users          IdentityResolver
	catalog        ProductFinder
	tokens         TokenIssuer
	clock          clock.Clock
	publisher      OrderPublisher
	publishTimeout time.Duration
	inflight       sync.WaitGroup
	logger         *slog.Logger
}

type OrderServiceOption func(*OrderService)

func WithPublisher(p OrderPublisher) OrderServiceOption {
	return func(s *OrderService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithPublishTimeout bounds how long one order event may take to publish.
func WithPublishTimeout(d time.Duration) OrderServiceOption {
	return func(s *OrderService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) OrderServiceOption {
	return func(s *OrderService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewOrderService(
	repo OrderRepository,
	users IdentityResolver,
	catalog ProductFinder,
	tokens TokenIssuer,
	clk clock.Clock,
	opts ...OrderServiceOption,
) *OrderService {
	svc := &OrderService{
		repo:           repo,
		users:          users,
		catalog:        catalog,
		tokens:         tokens,
		clock:          clk,
		publishTimeout: defaultPublishTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type PlaceOrderInput struct {
	Name      string
	Email     string
	ProductID string
	Quantity  int
}

type PlaceOrderResult struct {
	User  domain.User
	Token string
	Order domain.Order
}

// PlaceOrder resolves the user, issues a fresh token and then debits the
// user's balance, decrements stock and records the order in one transaction.
// Rejections (stock, balance, missing product) are returned as domain errors
// and leave no writes behind. Any other failure inside the transaction is
// returned as *domain.TransactionError.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (PlaceOrderResult, error) {
	if in.Quantity <= 0 {
		return PlaceOrderResult{}, domain.ErrInvalidQuantity
	}

	user, err := s.users.ResolveUser(ctx, in.Name, in.Email)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	// A token is minted on every order call, not only on first registration.
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return PlaceOrderResult{}, fmt.Errorf("issue token: %w", err)
	}
	if err := s.users.RecordToken(ctx, user.ID, token); err != nil {
		return PlaceOrderResult{}, err
	}
	user.Token = token

	product, err := s.catalog.FindProduct(ctx, in.ProductID)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	if err := checkOrder(user, product, in.Quantity); err != nil {
		return PlaceOrderResult{}, err
	}

	now := s.clock.Now()
	var result PlaceOrderResult

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		// Lock order is always user then product.
		lockedUser, err := s.repo.GetUserForUpdate(txCtx, user.ID)
		if err != nil {
			return err
		}
		lockedProduct, err := s.repo.GetProductForUpdate(txCtx, product.ID)
		if err != nil {
			return err
		}

		// The pre-check above ran without locks; repeat it on the locked rows.
		if err := checkOrder(lockedUser, lockedProduct, in.Quantity); err != nil {
			return err
		}

		total := lockedProduct.TotalFor(in.Quantity)
		lockedUser.Balance = lockedUser.Balance.Sub(total)
		lockedProduct.Stock -= in.Quantity

		if err := s.repo.UpdateUserBalance(txCtx, lockedUser.ID, lockedUser.Balance); err != nil {
			return err
		}
		if err := s.repo.UpdateProductStock(txCtx, lockedProduct.ID, lockedProduct.Stock); err != nil {
			return err
		}

		order := domain.Order{
			ID:         newID(),
			UserID:     lockedUser.ID,
			ProductID:  lockedProduct.ID,
			Quantity:   in.Quantity,
			TotalPrice: total,
			CreatedAt:  now,
		}
		if err := s.repo.CreateOrder(txCtx, order); err != nil {
			return err
		}

		lockedUser.Token = token
		result = PlaceOrderResult{User: lockedUser, Token: token, Order: order}
		return nil
	})
	if err != nil {
		if isOrderRejection(err) {
			return PlaceOrderResult{}, err
		}
		s.logger.ErrorContext(ctx, "order transaction aborted",
			"user_id", user.ID,
			"product_id", product.ID,
			"quantity", in.Quantity,
			"error", err,
		)
		return PlaceOrderResult{}, &domain.TransactionError{Err: err}
	}

	s.publish(ctx, result.Order)
	return result, nil
}

// OrdersForUser lists a user's orders, newest first. A user without orders
// gets an empty slice.
func (s *OrderService) OrdersForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrInvalidID
	}
	orders, err := s.repo.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// publish sends the order event in the background. The event outlives the
// request that created the order but not publishTimeout.
func (s *OrderService) publish(ctx context.Context, order domain.Order) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()
		if err := s.publisher.PublishOrderCreated(pubCtx, order); err != nil {
			s.logger.WarnContext(pubCtx, "publish order created",
				"order_id", order.ID,
				"error", err,
			)
		}
	}()
}

// Wait blocks until every order event handed to the publisher has been sent
// or given up on. Call it before closing the publisher.
func (s *OrderService) Wait() {
	s.inflight.Wait()
}

func checkOrder(user domain.User, product domain.Product, quantity int) error {
	if product.Stock < quantity {
		return domain.ErrInsufficientStock
	}
	if user.Balance.LessThan(product.TotalFor(quantity)) {
		return domain.ErrInsufficientBalance
	}
	return nil
}

func isOrderRejection(err error) bool {
	return errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrInsufficientBalance) ||
		errors.Is(err, domain.ErrProductNotFound) ||
		errors.Is(err, domain.ErrUserNotFound) ||
		errors.Is(err, domain.ErrInvalidID)
}
