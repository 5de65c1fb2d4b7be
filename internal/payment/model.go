package payment

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"ALBA-backend/internal/wage"
)

type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusRequested Status = "REQUESTED"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusRequested, StatusCompleted:
		return true
	}
	return false
}

// DB行（スキャン用）
type paymentRow struct {
	PaymentID   int64
	ULID        string
	EmployeeID  int64
	StoreID     int64
	AccountID   sql.NullInt64
	TotalAmount int64
	TotalHours  string // DECIMAL はそのまま文字列で受ける
	PeriodStart string
	PeriodEnd   string
	Status      string
	CreatedAt   time.Time
	RequestedAt sql.NullTime
	CompletedAt sql.NullTime
}

// Payment: 従業員×店舗×月の精算。TotalAmount は源泉徴収後の手取り
type Payment struct {
	ID          int64
	ULID        string
	EmployeeID  int64
	StoreID     int64
	AccountID   *int64
	TotalAmount int64
	TotalHours  decimal.Decimal
	PeriodStart string
	PeriodEnd   string
	Status      Status
	CreatedAt   time.Time
	RequestedAt *time.Time
	CompletedAt *time.Time
}

func (r paymentRow) toModel() (Payment, error) {
	hours, err := decimal.NewFromString(r.TotalHours)
	if err != nil {
		return Payment{}, err
	}
	p := Payment{
		ID:          r.PaymentID,
		ULID:        r.ULID,
		EmployeeID:  r.EmployeeID,
		StoreID:     r.StoreID,
		TotalAmount: r.TotalAmount,
		TotalHours:  hours,
		PeriodStart: r.PeriodStart,
		PeriodEnd:   r.PeriodEnd,
		Status:      Status(r.Status),
		CreatedAt:   r.CreatedAt.UTC(),
		RequestedAt: nullTimePtr(r.RequestedAt),
		CompletedAt: nullTimePtr(r.CompletedAt),
	}
	if r.AccountID.Valid {
		v := r.AccountID.Int64
		p.AccountID = &v
	}
	return p, nil
}

func (p Payment) toDTO() PaymentResponse {
	return PaymentResponse{
		PaymentID:          p.ID,
		Reference:          p.ULID,
		EmployeeID:         p.EmployeeID,
		StoreID:            p.StoreID,
		AccountID:          p.AccountID,
		TotalAmount:        p.TotalAmount,
		TotalAmountDisplay: wage.FormatWon(p.TotalAmount),
		TotalHours:         p.TotalHours.StringFixed(2),
		PeriodStart:        p.PeriodStart,
		PeriodEnd:          p.PeriodEnd,
		Status:             p.Status,
		CreatedAt:          p.CreatedAt,
		RequestedAt:        p.RequestedAt,
		CompletedAt:        p.CompletedAt,
	}
}

func nullTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func int64OrNil(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
