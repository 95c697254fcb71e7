package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SettlementMarkers remembers which orders have already been settled so a
// retried "delivered" request can skip the ledger work. The database row is
// still the source of truth; a missing marker only costs one extra query.
type SettlementMarkers struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewSettlementMarkers(client *redis.Client, ttl time.Duration) *SettlementMarkers {
	return &SettlementMarkers{Client: client, TTL: ttl}
}

// NewRedisClient builds a client for addr. An empty addr returns nil, which
// every SettlementMarkers method treats as "no cache".
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (m *SettlementMarkers) Key(orderID string) string {
	return "settlement:order:" + orderID
}

func (m *SettlementMarkers) enabled() bool {
	return m != nil && m.Client != nil
}

func (m *SettlementMarkers) Exists(ctx context.Context, orderID string) (bool, error) {
	if !m.enabled() {
		return false, nil
	}
	n, err := m.Client.Exists(ctx, m.Key(orderID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *SettlementMarkers) Mark(ctx context.Context, orderID string) error {
	if !m.enabled() {
		return nil
	}
	return m.Client.Set(ctx, m.Key(orderID), "1", m.TTL).Err()
}
