package payment

import (
	"time"

	"ALBA-backend/internal/wage"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// CreateRequest: period_start を含む月の精算を作る（同一月なら既存を返す）
type CreateRequest struct {
	EmployeeID  int64  `json:"employee_id" binding:"required"`
	StoreID     int64  `json:"store_id" binding:"required"`
	PeriodStart string `json:"period_start" binding:"required"` // YYYY-MM-DD
}

// CompleteRequest: account_id 省略時は支払いに紐づく口座
type CompleteRequest struct {
	AccountID int64 `json:"account_id"`
}

type ExecuteRequest struct {
	EmployeeID int64 `json:"employee_id" binding:"required"`
	StoreID    int64 `json:"store_id" binding:"required"`
	AccountID  int64 `json:"account_id" binding:"required"`
	Year       int   `json:"year" binding:"required"`
	Month      int   `json:"month" binding:"required"`
}

type PaymentResponse struct {
	PaymentID          int64           `json:"payment_id"`
	Reference          string          `json:"reference"`
	EmployeeID         int64           `json:"employee_id"`
	StoreID            int64           `json:"store_id"`
	AccountID          *int64          `json:"account_id,omitempty"`
	TotalAmount        int64           `json:"total_amount"`
	TotalAmountDisplay string          `json:"total_amount_display"`
	TotalHours         string          `json:"total_hours"`
	PeriodStart        string          `json:"period_start"`
	PeriodEnd          string          `json:"period_end"`
	Status             Status          `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	RequestedAt        *time.Time      `json:"requested_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	Breakdown          *wage.Breakdown `json:"breakdown,omitempty"`
}

type ListQuery struct {
	EmployeeID *int64
	StoreID    *int64
	Status     *Status
	Limit      int
	Offset     int
}

type ListResult struct {
	Items      []PaymentResponse `json:"items"`
	Total      int64             `json:"total"`
	NextOffset int               `json:"next_offset"` // 0 = 終端
}
