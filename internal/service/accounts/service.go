package accounts

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/eventlog/internal/metrics"
	"github.com/jmehdipour/eventlog/internal/model"
	"github.com/jmehdipour/eventlog/internal/repository"
	"github.com/jmehdipour/eventlog/internal/util"
)

var (
	ErrInvalidCredentials = errors.New("invalid or blocked")
)

// Service owns the customer lifecycle: provisioning, listing, blocking,
// token rotation and credential checks.
type Service struct {
	customers repository.CustomersRepository
	now       func() time.Time
}

func New(customers repository.CustomersRepository) *Service {
	return &Service{customers: customers, now: time.Now}
}

// Provision creates a customer with a fresh copy_id and token. source labels
// the creation path for metrics (register, admin, seed).
func (s *Service) Provision(ctx context.Context, source, name, email string) (model.Credentials, error) {
	c := model.Customer{
		CopyID:    util.NewCopyID(),
		Token:     util.NewToken(),
		Name:      name,
		Email:     email,
		CreatedAt: s.now().UTC().Format(model.TimeLayout),
	}
	if _, err := s.customers.Create(ctx, c); err != nil {
		return model.Credentials{}, fmt.Errorf("create customer: %w", err)
	}

	metrics.CustomersTotal.WithLabelValues(source).Inc()
	return model.Credentials{CopyID: c.CopyID, Token: c.Token}, nil
}

func (s *Service) List(ctx context.Context) ([]model.CustomerSummary, error) {
	return s.customers.List(ctx)
}

// Block disables the customer. Unknown copy_ids are not an error.
func (s *Service) Block(ctx context.Context, copyID string) error {
	if err := s.customers.Block(ctx, copyID); err != nil {
		return fmt.Errorf("block %s: %w", copyID, err)
	}
	return nil
}

// ResetToken assigns a new token and returns it. Unknown copy_ids still get a
// response; no row changes.
func (s *Service) ResetToken(ctx context.Context, copyID string) (model.Credentials, error) {
	token := util.NewToken()
	if err := s.customers.UpdateToken(ctx, copyID, token); err != nil {
		return model.Credentials{}, fmt.Errorf("reset token %s: %w", copyID, err)
	}
	return model.Credentials{CopyID: copyID, Token: token}, nil
}

// Authenticate returns the customer owning copyID when token matches and the
// customer is not blocked.
func (s *Service) Authenticate(ctx context.Context, copyID, token string) (*model.Customer, error) {
	c, err := s.customers.GetByCopyID(ctx, copyID)
	if err != nil {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}
	if c == nil || c.Blocked {
		return nil, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(c.Token), []byte(token)) != 1 {
		return nil, ErrInvalidCredentials
	}
	return c, nil
}
