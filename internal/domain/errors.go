package domain

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrInsufficientStock   = errors.New("not enough stock")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidID           = errors.New("invalid id")
	ErrNameRequired        = errors.New("name is required")
	ErrEmailRequired       = errors.New("email is required")
	ErrTransactionFailed   = errors.New("transaction failed")
)

// TransactionError reports an aborted order transaction. The cause is kept
// for logs; callers match it with errors.Is(err, ErrTransactionFailed).
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string {
	if e.Err == nil {
		return ErrTransactionFailed.Error()
	}
	return ErrTransactionFailed.Error() + ": " + e.Err.Error()
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

func (e *TransactionError) Is(target error) bool {
	return target == ErrTransactionFailed
}
