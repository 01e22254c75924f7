// Package ratelimit throttles order placement per client.
package ratelimit

import "context"

// Limiter reports whether one more request for key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
