// Package events pushes committed ledger events onto a Redis list for
// downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/ruralpay/creditledger/internal/ledger"
)

// DefaultQueue is the Redis list events are pushed to.
const DefaultQueue = "ledger_events"

var _ ledger.Publisher = (*RedisPublisher)(nil)

type RedisPublisher struct {
	redis *redis.Client
	queue string
}

func NewRedisPublisher(rdb *redis.Client, queue string) *RedisPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisPublisher{redis: rdb, queue: queue}
}

// message is the wire form of a ledger.Event. Amounts travel as fixed
// two-place strings.
type message struct {
	Type        ledger.EventType `json:"type"`
	AccountID   string           `json:"account_id"`
	Seq         int64            `json:"seq,omitempty"`
	Amount      string           `json:"amount"`
	Balance     string           `json:"balance,omitempty"`
	ReferenceID string           `json:"reference_id,omitempty"`
	Status      string           `json:"status,omitempty"`
	CreatedAt   string           `json:"created_at"`
}

func (p *RedisPublisher) Publish(ctx context.Context, event ledger.Event) error {
	msg := message{
		Type:        event.Type,
		AccountID:   event.AccountID,
		Seq:         event.Seq,
		Amount:      ledger.Cents(event.Amount),
		ReferenceID: event.ReferenceID,
		Status:      event.Status,
		CreatedAt:   event.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if event.Type != ledger.EventDecision {
		msg.Balance = ledger.Cents(event.Balance)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode ledger event: %w", err)
	}
	if err := p.redis.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("push ledger event: %w", err)
	}
	return nil
}
