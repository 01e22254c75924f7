package http

import (
	"time"

	"github.com/cimillas/storefront/services/api/internal/domain"
	"github.com/shopspring/decimal"
)

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
}

type productResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"createdAt"`
}

type orderResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	ProductID  string    `json:"productId"`
	Quantity   int       `json:"quantity"`
	TotalPrice string    `json:"totalPrice"`
	CreatedAt  time.Time `json:"createdAt"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Balance:   money(u.Balance),
		CreatedAt: u.CreatedAt,
	}
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:        p.ID,
		Name:      p.Name,
		Price:     money(p.Price),
		Stock:     p.Stock,
		CreatedAt: p.CreatedAt,
	}
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		ProductID:  o.ProductID,
		Quantity:   o.Quantity,
		TotalPrice: money(o.TotalPrice),
		CreatedAt:  o.CreatedAt,
	}
}

func toProductResponses(products []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

func toOrderResponses(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}
