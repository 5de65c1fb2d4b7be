package account

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"ALBA-backend/internal/platform/apperr"
	"ALBA-backend/internal/platform/logging"
)

type Service struct {
	store *Store
	now   func() time.Time
}

func NewService(conn *sql.DB, sealer *Sealer) *Service {
	return &Service{store: NewStore(conn, sealer), now: func() time.Time { return time.Now().UTC() }}
}

// POST /accounts
func (s *Service) Create(ctx context.Context, in CreateRequest) (AccountResponse, error) {
	bank := strings.TrimSpace(in.BankName)
	number := strings.TrimSpace(in.AccountNumber)
	if in.OwnerID <= 0 || bank == "" {
		return AccountResponse{}, apperr.ErrInvalid("owner_id and bank_name are required")
	}
	if !validNumber(number) {
		return AccountResponse{}, apperr.ErrInvalid("account_number must be 6-20 digits (hyphens allowed)")
	}

	a := Account{OwnerID: in.OwnerID, BankName: bank, AccountNumber: number, CreatedAt: s.now()}
	if err := s.store.Create(ctx, &a); err != nil {
		return AccountResponse{}, err
	}
	logging.FromContext(ctx).Info("account registered",
		slog.Int64("account_id", a.ID), slog.Int64("owner_id", a.OwnerID))
	return a.toDTO(), nil
}

// GET /employees/:employee_id/accounts
func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]AccountResponse, error) {
	list, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]AccountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, a.toDTO())
	}
	return out, nil
}

func validNumber(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '-':
		default:
			return false
		}
	}
	return digits >= 6 && digits <= 20
}
