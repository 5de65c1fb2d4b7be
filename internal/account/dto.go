package account

import "time"

type CreateRequest struct {
	OwnerID       int64  `json:"owner_id" binding:"required"`
	BankName      string `json:"bank_name" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
}

// AccountResponse: 口座番号は常にマスク済み
type AccountResponse struct {
	AccountID     int64     `json:"account_id"`
	OwnerID       int64     `json:"owner_id"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	Balance       int64     `json:"balance"`
	CreatedAt     time.Time `json:"created_at"`
}
