package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/cimillas/storefront/services/api/internal/app"
	"github.com/cimillas/storefront/services/api/internal/domain"
	"github.com/go-chi/chi/v5"
)

const maxOrderBodyBytes = 1 << 20

// OrderPlacer is the minimal interface needed to place orders.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, in app.PlaceOrderInput) (app.PlaceOrderResult, error)
}

// OrderLister is the minimal interface needed to list a user's orders.
type OrderLister interface {
	OrdersForUser(ctx context.Context, userID string) ([]domain.Order, error)
}

var errQuantityNotInteger = errors.New("quantity must be a whole number")

// HandlePlaceOrder returns an HTTP handler for placing orders.
func HandlePlaceOrder(svc OrderPlacer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req placeOrderRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, errQuantityNotInteger) {
				writeError(w, http.StatusBadRequest, codeInvalidQuantity, domain.ErrInvalidQuantity.Error())
				return
			}
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, err.Error())
			return
		}

		res, err := svc.PlaceOrder(r.Context(), app.PlaceOrderInput{
			Name:      req.Name,
			Email:     req.Email,
			ProductID: req.ProductID,
			Quantity:  req.Quantity.value,
		})
		if err != nil {
			writeOrderError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, placeOrderResponse{
			User:  toUserResponse(res.User),
			Token: res.Token,
			Order: toOrderResponse(res.Order),
		})
	}
}

// HandleUserOrders lists orders for the user named in the path.
func HandleUserOrders(svc OrderLister, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listOrders(w, r, svc, logger, chi.URLParam(r, "userId"))
	}
}

// HandleMyOrders lists orders for the authenticated caller. It must sit
// behind Authenticate.
func HandleMyOrders(svc OrderLister, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeMissingToken, "missing token")
			return
		}
		listOrders(w, r, svc, logger, userID)
	}
}

func listOrders(w http.ResponseWriter, r *http.Request, svc OrderLister, logger *slog.Logger, userID string) {
	orders, err := svc.OrdersForUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidID) {
			writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			return
		}
		logger.ErrorContext(r.Context(), "list orders", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

func writeOrderError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrEmailRequired):
		writeError(w, http.StatusBadRequest, codeMissingRequiredField, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, codeProductNotFound, err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, codeUserNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusBadRequest, codeInsufficientStock, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		writeError(w, http.StatusBadRequest, codeInsufficientBalance, err.Error())
	case errors.Is(err, domain.ErrTransactionFailed):
		writeError(w, http.StatusInternalServerError, codeTransactionFailed, "order could not be completed")
	default:
		logger.ErrorContext(r.Context(), "place order", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

type placeOrderRequest struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	ProductID string   `json:"productId"`
	Quantity  quantity `json:"quantity"`
}

func (r placeOrderRequest) validate() error {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(r.ProductID) == "" {
		missing = append(missing, "productId")
	}
	if !r.Quantity.set {
		missing = append(missing, "quantity")
	}
	if len(missing) > 0 {
		return errors.New(strings.Join(missing, ", ") + " required")
	}
	return nil
}

// quantity accepts a JSON number or a numeric string holding a whole number.
type quantity struct {
	value int
	set   bool
}

func (q *quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > math.MaxInt32 || n < math.MinInt32 {
			return errQuantityNotInteger
		}
		q.value, q.set = int(n), true
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return errQuantityNotInteger
	}
	q.value, q.set = int(f), true
	return nil
}

type placeOrderResponse struct {
	User  userResponse  `json:"user"`
	Token string        `json:"token"`
	Order orderResponse `json:"order"`
}
