package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ruralpay/creditledger/internal/ledger"
)

func TestRedisPublisher_Publish(t *testing.T) {
	createdAt := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	t.Run("spend event", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		publisher := NewRedisPublisher(rdb, "")

		want := `{"type":"SPEND","account_id":"seller-1","seq":4,"amount":"-30.00","balance":"70.00","reference_id":"sp-1","created_at":"2024-03-01T10:30:00.000Z"}`
		mock.ExpectRPush(DefaultQueue, []byte(want)).SetVal(1)

		err := publisher.Publish(context.Background(), ledger.Event{
			Type:        ledger.EventSpend,
			AccountID:   "seller-1",
			Seq:         4,
			Amount:      decimal.NewFromInt(-30),
			Balance:     decimal.NewFromInt(70),
			ReferenceID: "sp-1",
			CreatedAt:   createdAt,
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("decision event carries no balance", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		publisher := NewRedisPublisher(rdb, "decisions")

		want := `{"type":"DECISION","account_id":"seller-1","amount":"50.00","reference_id":"req-1","status":"REJECTED","created_at":"2024-03-01T10:30:00.000Z"}`
		mock.ExpectRPush("decisions", []byte(want)).SetVal(1)

		err := publisher.Publish(context.Background(), ledger.Event{
			Type:        ledger.EventDecision,
			AccountID:   "seller-1",
			Amount:      decimal.NewFromInt(50),
			ReferenceID: "req-1",
			Status:      "REJECTED",
			CreatedAt:   createdAt,
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("push failure", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectRPush(DefaultQueue, []byte(`{"type":"CREDIT","account_id":"seller-1","seq":1,"amount":"10.00","balance":"10.00","created_at":"2024-03-01T10:30:00.000Z"}`)).
			SetErr(errors.New("READONLY"))

		err := NewRedisPublisher(rdb, "").Publish(context.Background(), ledger.Event{
			Type:      ledger.EventCredit,
			AccountID: "seller-1",
			Seq:       1,
			Amount:    decimal.NewFromInt(10),
			Balance:   decimal.NewFromInt(10),
			CreatedAt: createdAt,
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "push ledger event")
	})
}
