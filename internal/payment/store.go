package payment

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ALBA-backend/internal/account"
	"ALBA-backend/internal/platform/apperr"
	"ALBA-backend/internal/platform/db"
)

// errDuplicatePeriod: (employee, store, period_start) の UNIQUE 違反。Service 側で既存行を読み直す
var errDuplicatePeriod = errors.New("payment for the period already exists")

// Repository: 支払いと口座の永続化。WithTx の中では同じ Tx に束縛された Repository が渡る
type Repository interface {
	WithTx(ctx context.Context, fn func(Repository) error) error
	Get(ctx context.Context, id int64) (*Payment, error)
	GetForUpdate(ctx context.Context, id int64) (*Payment, error)
	// FindByPeriod: 無ければ nil, nil
	FindByPeriod(ctx context.Context, employeeID, storeID int64, periodStart string, forUpdate bool) (*Payment, error)
	Insert(ctx context.Context, p *Payment) error
	Update(ctx context.Context, p *Payment) error
	List(ctx context.Context, q ListQuery) ([]Payment, int64, error)

	LockAccount(ctx context.Context, accountID int64) (*account.Account, error)
	CreditAccount(ctx context.Context, accountID, amount int64) error
	LatestAccountID(ctx context.Context, employeeID int64) (*int64, error)
}

type Store struct {
	conn     *sql.DB // Tx 外のときだけ非nil
	db       db.DBTX
	accounts *account.Store
	sealer   *account.Sealer
}

func NewStore(conn *sql.DB, sealer *account.Sealer) *Store {
	return &Store{conn: conn, db: conn, accounts: account.NewStore(conn, sealer), sealer: sealer}
}

const selectCols = `
	SELECT payment_id, payment_ulid, employee_id, store_id, account_id, total_amount, total_hours,
	DATE_FORMAT(period_start, '%Y-%m-%d') AS period_start, DATE_FORMAT(period_end, '%Y-%m-%d') AS period_end,
	status, created_at, requested_at, completed_at
	FROM salary_payments`

func (s *Store) WithTx(ctx context.Context, fn func(Repository) error) error {
	if s.conn == nil {
		return fn(s)
	}
	return db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
		return fn(&Store{db: tx, accounts: account.NewStore(tx, s.sealer), sealer: s.sealer})
	})
}

func (s *Store) Get(ctx context.Context, id int64) (*Payment, error) {
	return s.get(ctx, id, "")
}

func (s *Store) GetForUpdate(ctx context.Context, id int64) (*Payment, error) {
	return s.get(ctx, id, " FOR UPDATE")
}

func (s *Store) get(ctx context.Context, id int64, lock string) (*Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx, selectCols+` WHERE payment_id = ?`+lock, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound("payment not found")
	}
	return p, err
}

func (s *Store) FindByPeriod(ctx context.Context, employeeID, storeID int64, periodStart string, forUpdate bool) (*Payment, error) {
	q := selectCols + ` WHERE employee_id = ? AND store_id = ? AND period_start = ?`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	p, err := scanPayment(s.db.QueryRowContext(ctx, q, employeeID, storeID, periodStart))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (s *Store) Insert(ctx context.Context, p *Payment) error {
	const q = `
	INSERT INTO salary_payments
	(payment_ulid, employee_id, store_id, account_id, total_amount, total_hours,
	 period_start, period_end, status, created_at, requested_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, q,
		p.ULID, p.EmployeeID, p.StoreID, int64OrNil(p.AccountID), p.TotalAmount, p.TotalHours.StringFixed(6),
		p.PeriodStart, p.PeriodEnd, string(p.Status), p.CreatedAt.UTC(), timeOrNil(p.RequestedAt), timeOrNil(p.CompletedAt),
	)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %v", errDuplicatePeriod, err)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

// Update: 状態遷移で変わる列だけ更新する
func (s *Store) Update(ctx context.Context, p *Payment) error {
	const q = `
	UPDATE salary_payments
	SET account_id = ?, status = ?, requested_at = ?, completed_at = ?
	WHERE payment_id = ?`
	_, err := s.db.ExecContext(ctx, q,
		int64OrNil(p.AccountID), string(p.Status), timeOrNil(p.RequestedAt), timeOrNil(p.CompletedAt), p.ID)
	return err
}

func (s *Store) List(ctx context.Context, q ListQuery) ([]Payment, int64, error) {
	var (
		buf    bytes.Buffer
		args   []any
		wheres []string
	)
	buf.WriteString(selectCols)

	if q.EmployeeID != nil {
		wheres = append(wheres, "employee_id = ?")
		args = append(args, *q.EmployeeID)
	}
	if q.StoreID != nil {
		wheres = append(wheres, "store_id = ?")
		args = append(args, *q.StoreID)
	}
	if q.Status != nil {
		wheres = append(wheres, "status = ?")
		args = append(args, string(*q.Status))
	}
	where := ""
	if len(wheres) > 0 {
		where = " WHERE " + strings.Join(wheres, " AND ")
	}
	buf.WriteString(where)
	buf.WriteString(" ORDER BY period_start DESC, payment_id DESC")
	buf.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", q.Limit, q.Offset))

	rows, err := s.db.QueryContext(ctx, buf.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Payment, 0, q.Limit)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM salary_payments"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ---------- 口座（同じ Tx で扱う） ----------

func (s *Store) LockAccount(ctx context.Context, accountID int64) (*account.Account, error) {
	return s.accounts.LockForUpdate(ctx, accountID)
}

func (s *Store) CreditAccount(ctx context.Context, accountID, amount int64) error {
	return s.accounts.Credit(ctx, accountID, amount)
}

func (s *Store) LatestAccountID(ctx context.Context, employeeID int64) (*int64, error) {
	a, err := s.accounts.Latest(ctx, employeeID)
	if err != nil || a == nil {
		return nil, err
	}
	return &a.ID, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(sc scanner) (*Payment, error) {
	var r paymentRow
	if err := sc.Scan(&r.PaymentID, &r.ULID, &r.EmployeeID, &r.StoreID, &r.AccountID, &r.TotalAmount, &r.TotalHours,
		&r.PeriodStart, &r.PeriodEnd, &r.Status, &r.CreatedAt, &r.RequestedAt, &r.CompletedAt); err != nil {
		return nil, err
	}
	p, err := r.toModel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}
