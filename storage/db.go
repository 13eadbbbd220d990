package storage

import (
	"context"
	"errors"

	"github.com/dauTT/astroport-dca/internal/types"
)

// ErrNotFound is returned when the requested order does not exist. Canceled
// order ids are never reassigned, so a missing id stays missing forever.
var ErrNotFound = errors.New("order not found")

// OrderRepository persists DCA orders and the per-user index of order ids.
type OrderRepository interface {
	// NextOrderID returns a fresh order id. Ids start at 1, grow
	// monotonically and are never reused.
	NextOrderID(ctx context.Context) (uint64, error)
	GetOrder(ctx context.Context, id uint64) (types.Order, error)
	// PutOrder upserts the order. A first Put also appends the id to the
	// owner's index.
	PutOrder(ctx context.Context, order types.Order) error
	// RemoveOrder deletes the order and drops its id from the owner's index,
	// preserving the relative order of the remaining ids.
	RemoveOrder(ctx context.Context, id uint64) error
	// ListUserOrders returns the ids of the user's orders in insertion order.
	ListUserOrders(ctx context.Context, address string) ([]uint64, error)
}

// ConfigRepository persists the singleton engine configuration.
type ConfigRepository interface {
	GetConfig(ctx context.Context) (types.Config, error)
	SetConfig(ctx context.Context, cfg types.Config) error
}

// Store is the full persistence surface the engine runs against.
type Store interface {
	OrderRepository
	ConfigRepository
	Close() error
}
