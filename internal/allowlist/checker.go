// Package allowlist decides which phone numbers may receive a spend.
package allowlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/ruralpay/creditledger/internal/ledger"
	"github.com/ruralpay/creditledger/internal/models"
)

// ErrNotListed is returned by Deactivate for an unknown number.
var ErrNotListed = errors.New("allowlist: phone number not listed")

var _ ledger.TargetValidator = (*Checker)(nil)

// Checker reads the phone_numbers table through an optional Redis cache.
type Checker struct {
	db     *sql.DB
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewChecker creates a Checker. A nil redis client disables caching.
func NewChecker(db *sql.DB, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		db:     db,
		redis:  rdb,
		ttl:    ttl,
		logger: logger.Named("allowlist"),
	}
}

func cacheKey(phone string) string {
	return fmt.Sprintf("allowlist:%s", phone)
}

// IsValid reports whether phone is listed and active. Unlisted numbers are
// not an error.
func (c *Checker) IsValid(ctx context.Context, phone string) (bool, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return false, nil
	}

	if c.redis != nil {
		cached, err := c.redis.Get(ctx, cacheKey(phone)).Result()
		switch {
		case err == nil:
			return cached == "1", nil
		case errors.Is(err, redis.Nil):
		default:
			c.logger.Warn("allow-list cache read failed", zap.String("target", phone), zap.Error(err))
		}
	}

	var active bool
	err := c.db.QueryRowContext(ctx,
		`SELECT is_active FROM phone_numbers WHERE phone_number = $1`, phone,
	).Scan(&active)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("allowlist lookup: %w", err)
	}

	if c.redis != nil {
		value := "0"
		if active {
			value = "1"
		}
		if err := c.redis.Set(ctx, cacheKey(phone), value, c.ttl).Err(); err != nil {
			c.logger.Warn("allow-list cache write failed", zap.String("target", phone), zap.Error(err))
		}
	}
	return active, nil
}

// Add lists phone as active, reactivating it if it was listed before.
func (c *Checker) Add(ctx context.Context, phone, description string) (*models.PhoneNumber, error) {
	p := models.PhoneNumber{PhoneNumber: strings.TrimSpace(phone)}
	err := c.db.QueryRowContext(ctx, `
		INSERT INTO phone_numbers (phone_number, is_active, description, added_at)
		VALUES ($1, TRUE, $2, NOW())
		ON CONFLICT (phone_number)
		DO UPDATE SET is_active = TRUE, description = EXCLUDED.description
		RETURNING is_active, description, added_at`,
		p.PhoneNumber, strings.TrimSpace(description),
	).Scan(&p.IsActive, &p.Description, &p.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("allowlist add: %w", err)
	}

	c.invalidate(ctx, p.PhoneNumber)
	c.logger.Info("phone number listed", zap.String("target", p.PhoneNumber))
	return &p, nil
}

// Deactivate keeps the row but stops phone from receiving spends.
func (c *Checker) Deactivate(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	result, err := c.db.ExecContext(ctx,
		`UPDATE phone_numbers SET is_active = FALSE WHERE phone_number = $1`, phone)
	if err != nil {
		return fmt.Errorf("allowlist deactivate: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("allowlist deactivate: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotListed
	}

	c.invalidate(ctx, phone)
	c.logger.Info("phone number deactivated", zap.String("target", phone))
	return nil
}

func (c *Checker) invalidate(ctx context.Context, phone string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, cacheKey(phone)).Err(); err != nil {
		c.logger.Warn("allow-list cache invalidation failed", zap.String("target", phone), zap.Error(err))
	}
}
