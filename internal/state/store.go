// Package state is the durable key/value layer used for the risk day
// snapshot and the gateway's client-order-id idempotency cache.
package state

import "context"

type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
