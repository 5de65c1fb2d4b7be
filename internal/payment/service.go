package payment

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"ALBA-backend/internal/account"
	"ALBA-backend/internal/platform/apperr"
	"ALBA-backend/internal/platform/logging"
	"ALBA-backend/internal/wage"
)

// ===== インターフェース群 =====

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// IDGen: 支払いの公開参照番号（ULID）
type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Estimator: 対象月の給与見込みと逆算（wage.Service が実装）
type Estimator interface {
	EstimatePeriod(ctx context.Context, employeeID, storeID int64, p wage.Period) (wage.Estimate, error)
	Reverse(ctx context.Context, employeeID, totalAmount int64, totalHours decimal.Decimal) (wage.Breakdown, error)
	Location() *time.Location
}

// ===== Service =====

type Service struct {
	repo  Repository
	wages Estimator
	clock Clock
	ids   IDGen
}

func NewService(conn *sql.DB, sealer *account.Sealer, wages Estimator) *Service {
	return newService(NewStore(conn, sealer), wages, realClock{}, ulidGen{})
}

func newService(repo Repository, wages Estimator, clock Clock, ids IDGen) *Service {
	return &Service{repo: repo, wages: wages, clock: clock, ids: ids}
}

// POST /payments
// 同じ (employee, store, 月) なら既存の支払いを返す。新規は WAITING で、金額は給与見込みから。
func (s *Service) CreateOrGet(ctx context.Context, in CreateRequest) (PaymentResponse, bool, error) {
	if in.EmployeeID <= 0 || in.StoreID <= 0 {
		return PaymentResponse{}, false, apperr.ErrInvalid("employee_id and store_id are required")
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(in.PeriodStart), s.wages.Location())
	if err != nil {
		return PaymentResponse{}, false, apperr.ErrInvalid("period_start must be YYYY-MM-DD")
	}
	period := wage.PeriodOf(day)
	start := period.Start.Format("2006-01-02")

	if existing, err := s.repo.FindByPeriod(ctx, in.EmployeeID, in.StoreID, start, false); err != nil {
		return PaymentResponse{}, false, err
	} else if existing != nil {
		return existing.toDTO(), false, nil
	}

	p, err := s.draft(ctx, in.EmployeeID, in.StoreID, period)
	if err != nil {
		return PaymentResponse{}, false, err
	}
	if p.AccountID, err = s.repo.LatestAccountID(ctx, in.EmployeeID); err != nil {
		return PaymentResponse{}, false, err
	}

	if err := s.repo.Insert(ctx, p); err != nil {
		if !errors.Is(err, errDuplicatePeriod) {
			return PaymentResponse{}, false, err
		}
		// 同時作成に負けた側は勝った方の行を返す
		existing, err := s.repo.FindByPeriod(ctx, in.EmployeeID, in.StoreID, start, false)
		if err != nil {
			return PaymentResponse{}, false, err
		}
		if existing == nil {
			return PaymentResponse{}, false, apperr.ErrInternal("payment vanished after duplicate insert")
		}
		return existing.toDTO(), false, nil
	}

	logging.FromContext(ctx).Info("payment created",
		slog.Int64("payment_id", p.ID), slog.String("reference", p.ULID),
		slog.Int64("employee_id", p.EmployeeID), slog.String("period_start", p.PeriodStart),
		slog.Int64("total_amount", p.TotalAmount))
	return p.toDTO(), true, nil
}

// POST /payments/:payment_id/request
// WAITING → REQUESTED。REQUESTED はそのまま返す。COMPLETED は不可
func (s *Service) Request(ctx context.Context, paymentID int64) (PaymentResponse, error) {
	var out Payment
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		p, err := tx.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		switch p.Status {
		case StatusCompleted:
			return apperr.ErrInvalidState("payment already completed")
		case StatusRequested:
			out = *p
			return nil
		}
		now := s.clock.Now()
		p.Status = StatusRequested
		p.RequestedAt = &now
		if err := tx.Update(ctx, p); err != nil {
			return err
		}
		out = *p
		return nil
	})
	if err != nil {
		return PaymentResponse{}, err
	}
	return out.toDTO(), nil
}

// POST /payments/:payment_id/complete
// 支払い → 口座の順に FOR UPDATE。入金と COMPLETED への更新は同じ Tx
func (s *Service) Complete(ctx context.Context, paymentID, accountID int64) (PaymentResponse, error) {
	var out Payment
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		p, err := tx.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := s.complete(ctx, tx, p, accountID); err != nil {
			return err
		}
		out = *p
		return nil
	})
	if err != nil {
		return PaymentResponse{}, err
	}
	return out.toDTO(), nil
}

// POST /payments/execute
// 対象月の支払いを作成（または既存をロック）して、そのまま確定まで1つの Tx で行う
func (s *Service) ExecuteNew(ctx context.Context, in ExecuteRequest) (PaymentResponse, error) {
	if in.EmployeeID <= 0 || in.StoreID <= 0 {
		return PaymentResponse{}, apperr.ErrInvalid("employee_id and store_id are required")
	}
	if in.AccountID <= 0 {
		return PaymentResponse{}, apperr.ErrInvalid("account_id is required")
	}
	period, err := wage.NewPeriod(in.Year, in.Month, s.wages.Location())
	if err != nil {
		return PaymentResponse{}, apperr.ErrInvalid(err.Error())
	}
	start := period.Start.Format("2006-01-02")

	draft, err := s.draft(ctx, in.EmployeeID, in.StoreID, period)
	if err != nil {
		return PaymentResponse{}, err
	}
	accountID := in.AccountID
	draft.AccountID = &accountID

	var out Payment
	err = s.repo.WithTx(ctx, func(tx Repository) error {
		// 先に INSERT してから既存行をロックする（空振りの FOR UPDATE によるギャップロックを避ける）
		p := draft
		if err := tx.Insert(ctx, p); err != nil {
			if !errors.Is(err, errDuplicatePeriod) {
				return err
			}
			if p, err = tx.FindByPeriod(ctx, in.EmployeeID, in.StoreID, start, true); err != nil {
				return err
			}
			if p == nil {
				return apperr.ErrInternal("payment vanished after duplicate insert")
			}
		}
		if err := s.complete(ctx, tx, p, in.AccountID); err != nil {
			return err
		}
		out = *p
		return nil
	})
	if err != nil {
		return PaymentResponse{}, err
	}
	return out.toDTO(), nil
}

// complete: p はロック済みであること
func (s *Service) complete(ctx context.Context, tx Repository, p *Payment, accountID int64) error {
	if p.Status == StatusCompleted {
		return apperr.ErrInvalidState("payment already completed")
	}
	if accountID <= 0 {
		if p.AccountID == nil {
			return apperr.ErrInvalid("account_id is required: payment has no destination account")
		}
		accountID = *p.AccountID
	}

	acct, err := tx.LockAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if acct.OwnerID != p.EmployeeID {
		return apperr.ErrAccountMismatch("account does not belong to the employee")
	}
	if p.TotalAmount > 0 {
		if err := tx.CreditAccount(ctx, acct.ID, p.TotalAmount); err != nil {
			return err
		}
	}

	now := s.clock.Now()
	p.Status = StatusCompleted
	p.CompletedAt = &now
	p.AccountID = &acct.ID
	if err := tx.Update(ctx, p); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("payment completed",
		slog.Int64("payment_id", p.ID), slog.String("reference", p.ULID),
		slog.Int64("employee_id", p.EmployeeID), slog.Int64("account_id", acct.ID),
		slog.Int64("total_amount", p.TotalAmount))
	return nil
}

// GET /payments/:payment_id（内訳は逆算の概算）
func (s *Service) Get(ctx context.Context, paymentID int64) (PaymentResponse, error) {
	p, err := s.repo.Get(ctx, paymentID)
	if err != nil {
		return PaymentResponse{}, err
	}
	res := p.toDTO()
	b, err := s.wages.Reverse(ctx, p.EmployeeID, p.TotalAmount, p.TotalHours)
	if err != nil {
		return PaymentResponse{}, err
	}
	res.Breakdown = &b
	return res, nil
}

// GET /payments
func (s *Service) List(ctx context.Context, q ListQuery) (ListResult, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Status != nil && !q.Status.Valid() {
		return ListResult{}, apperr.ErrInvalid("invalid status")
	}

	rows, total, err := s.repo.List(ctx, q)
	if err != nil {
		return ListResult{}, err
	}
	items := make([]PaymentResponse, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toDTO())
	}
	next := q.Offset + q.Limit
	if next >= int(total) {
		next = 0
	} // 0=終端
	return ListResult{Items: items, Total: total, NextOffset: next}, nil
}

// draft: 給与見込みから WAITING の支払いを組み立てる（未保存）
func (s *Service) draft(ctx context.Context, employeeID, storeID int64, period wage.Period) (*Payment, error) {
	est, err := s.wages.EstimatePeriod(ctx, employeeID, storeID, period)
	if err != nil {
		return nil, err
	}
	ref, err := s.ids.New()
	if err != nil {
		return nil, err
	}
	return &Payment{
		ULID:        ref,
		EmployeeID:  employeeID,
		StoreID:     storeID,
		TotalAmount: est.NetPay,
		TotalHours:  est.TotalHours.Round(6),
		PeriodStart: est.PeriodStart,
		PeriodEnd:   est.PeriodEnd,
		Status:      StatusWaiting,
		CreatedAt:   s.clock.Now(),
	}, nil
}
