package account

import (
	"context"
	"database/sql"
	"errors"

	"ALBA-backend/internal/platform/apperr"
	"ALBA-backend/internal/platform/db"
)

type Store struct {
	db     db.DBTX
	sealer *Sealer
}

// NewStore: conn は *sql.DB でも Tx でもよい（支払い確定は呼び出し側の Tx に相乗りする）
func NewStore(conn db.DBTX, sealer *Sealer) *Store {
	return &Store{db: conn, sealer: sealer}
}

const selectCols = `
	SELECT account_id, owner_id, bank_name, account_number, balance, created_at
	FROM accounts`

func (s *Store) Create(ctx context.Context, a *Account) error {
	sealed, err := s.sealer.Seal(a.AccountNumber)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
	INSERT INTO accounts (owner_id, bank_name, account_number, balance, created_at)
	VALUES (?, ?, ?, ?, ?)`,
		a.OwnerID, a.BankName, sealed, a.Balance, a.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Account, error) {
	return s.get(ctx, id, "")
}

// LockForUpdate: 残高更新前に行ロックを取る
func (s *Store) LockForUpdate(ctx context.Context, id int64) (*Account, error) {
	return s.get(ctx, id, " FOR UPDATE")
}

func (s *Store) get(ctx context.Context, id int64, lock string) (*Account, error) {
	a, err := s.scan(s.db.QueryRowContext(ctx, selectCols+` WHERE account_id = ?`+lock, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound("account not found")
	}
	return a, err
}

func (s *Store) ListByOwner(ctx context.Context, ownerID int64) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, selectCols+`
	WHERE owner_id = ? ORDER BY created_at DESC, account_id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Account, 0, 4)
	for rows.Next() {
		a, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Latest: 最も新しく登録された口座。無ければ nil
func (s *Store) Latest(ctx context.Context, ownerID int64) (*Account, error) {
	a, err := s.scan(s.db.QueryRowContext(ctx, selectCols+`
	WHERE owner_id = ? ORDER BY created_at DESC, account_id DESC LIMIT 1`, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// Credit: 残高に加算する。amount は正のみ
func (s *Store) Credit(ctx context.Context, id, amount int64) error {
	if amount <= 0 {
		return apperr.ErrInvalid("credit amount must be positive")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET balance = balance + ? WHERE account_id = ?`, amount, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound("account not found")
	}
	return nil
}

type scanner interface{ Scan(dest ...any) error }

func (s *Store) scan(sc scanner) (*Account, error) {
	var r accountRow
	if err := sc.Scan(&r.AccountID, &r.OwnerID, &r.BankName, &r.AccountNumber, &r.Balance, &r.CreatedAt); err != nil {
		return nil, err
	}
	number, err := s.sealer.Open(r.AccountNumber)
	if err != nil {
		return nil, err
	}
	return &Account{
		ID:            r.AccountID,
		OwnerID:       r.OwnerID,
		BankName:      r.BankName,
		AccountNumber: number,
		Balance:       r.Balance,
		CreatedAt:     r.CreatedAt.UTC(),
	}, nil
}
