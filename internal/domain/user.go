package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBalance is credited to every user on creation.
var DefaultBalance = decimal.New(10000, -2)

// User is a storefront customer identified by email.
type User struct {
	ID      string
	Name    string
	Email   string
	Balance decimal.Decimal
	// Token is the most recently issued credential. It is informational only.
	Token     string
	CreatedAt time.Time
}
