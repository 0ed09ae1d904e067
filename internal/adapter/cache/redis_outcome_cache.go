package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aq2208/settlement-api/internal/entity"
	"github.com/aq2208/settlement-api/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisOutcomeCache shortcuts webhook replays. It is best-effort: a miss or a
// redis outage just sends the caller to the registry, never to a wrong answer.
type RedisOutcomeCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisOutcomeCache(rdb *redis.Client, ttl time.Duration) *RedisOutcomeCache {
	return &RedisOutcomeCache{rdb: rdb, ttl: ttl}
}

type cachedOutcome struct {
	OrderID string `json:"orderId"`
	State   string `json:"state"`
}

func (c *RedisOutcomeCache) SetOutcome(ctx context.Context, eventID, orderID string, state entity.SettlementState) error {
	b, err := json.Marshal(cachedOutcome{OrderID: orderID, State: string(state)})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, "settle:outcome:"+eventID, b, c.ttl).Err()
}

func (c *RedisOutcomeCache) GetOutcome(ctx context.Context, eventID string) (string, entity.SettlementState, bool, error) {
	val, err := c.rdb.Get(ctx, "settle:outcome:"+eventID).Bytes()
	if err == redis.Nil {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	var out cachedOutcome
	if err := json.Unmarshal(val, &out); err != nil {
		return "", "", false, err
	}
	return out.OrderID, entity.SettlementState(out.State), true, nil
}

var _ usecase.OutcomeCache = (*RedisOutcomeCache)(nil)
