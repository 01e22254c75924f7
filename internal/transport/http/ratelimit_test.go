package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderBody = `{"name":"A","email":"a@x","productId":"prod-1","quantity":1}`

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{result: placedResult()}
	limiter := &fakeLimiter{allowed: 1}
	router := NewRouter(RouterConfig{Orders: orders, Limiter: limiter, Logger: discardLogger()})

	first := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(orderBody))
	first.RemoteAddr = "10.1.1.1:5555"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, first)
	require.Equal(t, http.StatusCreated, rec.Code)

	second := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(orderBody))
	second.RemoteAddr = "10.1.1.1:6666"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, second)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, codeRateLimited, resp.Code)

	assert.Equal(t, 1, orders.placed)
	assert.Equal(t, []string{"10.1.1.1", "10.1.1.1"}, limiter.keys)
}

func TestRateLimit_UsesForwardedClient(t *testing.T) {
	t.Parallel()

	limiter := &fakeLimiter{allowed: 5}
	router := NewRouter(RouterConfig{
		Orders:            &fakeOrders{result: placedResult()},
		Limiter:           limiter,
		Logger:            discardLogger(),
		TrustProxyHeaders: true,
	})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(orderBody))
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []string{"203.0.113.9"}, limiter.keys)
}

func TestRateLimit_IgnoresForwardedHeadersByDefault(t *testing.T) {
	t.Parallel()

	limiter := &fakeLimiter{allowed: 5}
	router := NewRouter(RouterConfig{Orders: &fakeOrders{result: placedResult()}, Limiter: limiter, Logger: discardLogger()})

	for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(orderBody))
		req.Header.Set(header, "203.0.113.9")
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, []string{"192.0.2.1", "192.0.2.1"}, limiter.keys)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{result: placedResult()}
	limiter := &fakeLimiter{err: errors.New("redis down")}
	router := NewRouter(RouterConfig{Orders: orders, Limiter: limiter, Logger: discardLogger()})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(orderBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, orders.placed)
}

func TestRateLimit_OnlyGuardsOrderPlacement(t *testing.T) {
	t.Parallel()

	limiter := &fakeLimiter{}
	router := NewRouter(RouterConfig{
		Orders:  &fakeOrders{},
		Catalog: &fakeCatalog{},
		Limiter: limiter,
		Logger:  discardLogger(),
	})

	for _, path := range []string{"/products", "/orders/user-1", "/health"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Empty(t, limiter.keys)
}
