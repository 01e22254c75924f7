package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is an immutable purchase record. TotalPrice is fixed at the unit
// price in effect when the order was placed.
type Order struct {
	ID         string
	UserID     string
	ProductID  string
	Quantity   int
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
}
