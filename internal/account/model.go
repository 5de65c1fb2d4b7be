package account

import "time"

type accountRow struct {
	AccountID     int64
	OwnerID       int64
	BankName      string
	AccountNumber []byte
	Balance       int64
	CreatedAt     time.Time
}

// AccountNumber は平文（メモリ上のみ）
type Account struct {
	ID            int64
	OwnerID       int64
	BankName      string
	AccountNumber string
	Balance       int64
	CreatedAt     time.Time
}

func (a Account) toDTO() AccountResponse {
	return AccountResponse{
		AccountID:     a.ID,
		OwnerID:       a.OwnerID,
		BankName:      a.BankName,
		AccountNumber: Mask(a.AccountNumber),
		Balance:       a.Balance,
		CreatedAt:     a.CreatedAt,
	}
}
