package allowlist

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ruralpay/creditledger/internal/ledger"
	"github.com/ruralpay/creditledger/internal/models"
)

var _ ledger.TargetValidator = (*Static)(nil)

// Static is an in-process allow-list for tests and local runs.
type Static struct {
	mu      sync.RWMutex
	numbers map[string]models.PhoneNumber
}

func NewStatic(phones ...string) *Static {
	s := &Static{numbers: make(map[string]models.PhoneNumber)}
	for _, p := range phones {
		s.numbers[p] = models.PhoneNumber{PhoneNumber: p, IsActive: true, AddedAt: time.Now().UTC()}
	}
	return s
}

func (s *Static) IsValid(_ context.Context, phone string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.numbers[strings.TrimSpace(phone)].IsActive, nil
}

func (s *Static) Add(_ context.Context, phone, description string) (*models.PhoneNumber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	phone = strings.TrimSpace(phone)
	p, ok := s.numbers[phone]
	if !ok {
		p = models.PhoneNumber{PhoneNumber: phone, AddedAt: time.Now().UTC()}
	}
	p.IsActive = true
	p.Description = strings.TrimSpace(description)
	s.numbers[phone] = p
	return &p, nil
}

func (s *Static) Deactivate(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	phone = strings.TrimSpace(phone)
	p, ok := s.numbers[phone]
	if !ok {
		return ErrNotListed
	}
	p.IsActive = false
	s.numbers[phone] = p
	return nil
}
