package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/dauTT/astroport-dca/internal/types"
)

// MemoryStore is an in-process Store. It backs the tests and single-node
// deployments that do not need postgres.
type MemoryStore struct {
	mu     sync.Mutex
	nextID uint64
	orders map[uint64]types.Order
	// byUser keeps the ids of each user's orders in insertion order.
	byUser map[string][]uint64
	cfg    *types.Config
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[uint64]types.Order),
		byUser: make(map[string][]uint64),
	}
}

func (m *MemoryStore) NextOrderID(_ context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return m.nextID, nil
}

func (m *MemoryStore) GetOrder(_ context.Context, id uint64) (types.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return types.Order{}, ErrNotFound
	}
	return order, nil
}

func (m *MemoryStore) PutOrder(_ context.Context, order types.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[order.ID]; !exists {
		m.byUser[order.CreatedBy] = append(m.byUser[order.CreatedBy], order.ID)
	}
	m.orders[order.ID] = order
	return nil
}

func (m *MemoryStore) RemoveOrder(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.orders, id)

	ids := m.byUser[order.CreatedBy]
	for i, oid := range ids {
		if oid == id {
			m.byUser[order.CreatedBy] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) ListUserOrders(_ context.Context, address string) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.byUser[address]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out, nil
}

// ListDueOrders returns ids of orders whose next purchase time is at or
// before now, ascending.
func (m *MemoryStore) ListDueOrders(_ context.Context, now int64) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint64
	for id, order := range m.orders {
		due := order.StartAt
		if next := order.Balance.LastPurchase + order.Interval; next > due {
			due = next
		}
		if due <= now {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *MemoryStore) GetConfig(_ context.Context) (types.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return types.Config{}, ErrNotFound
	}
	return *m.cfg, nil
}

func (m *MemoryStore) SetConfig(_ context.Context, cfg types.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = &cfg
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
