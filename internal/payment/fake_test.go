package payment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"ALBA-backend/internal/account"
	"ALBA-backend/internal/platform/apperr"
	"ALBA-backend/internal/wage"
)

var seoul = time.FixedZone("KST", 9*3600)

// memoryRepo: 支払いと口座を持つテスト用 Repository。WithTx は直列化して失敗時に巻き戻す
type memoryRepo struct {
	txMu     *sync.Mutex
	mu       *sync.Mutex
	payments map[int64]Payment
	accounts map[int64]account.Account
	nextID   *int64
	inTx     bool
}

func newMemoryRepo() *memoryRepo {
	var next int64
	return &memoryRepo{
		txMu:     &sync.Mutex{},
		mu:       &sync.Mutex{},
		payments: map[int64]Payment{},
		accounts: map[int64]account.Account{},
		nextID:   &next,
	}
}

func (m *memoryRepo) addAccount(id, owner int64, created time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id] = account.Account{ID: id, OwnerID: owner, BankName: "KB", AccountNumber: "1234567890", CreatedAt: created}
}

func (m *memoryRepo) balance(id int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id].Balance
}

func (m *memoryRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(Repository) error) error {
	if m.inTx {
		return fn(m)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	payments := make(map[int64]Payment, len(m.payments))
	for k, v := range m.payments {
		payments[k] = v
	}
	accounts := make(map[int64]account.Account, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v
	}
	m.mu.Unlock()

	tx := *m
	tx.inTx = true
	if err := fn(&tx); err != nil {
		m.mu.Lock()
		m.payments, m.accounts = payments, accounts
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, apperr.ErrNotFound("payment not found")
	}
	return &p, nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, id int64) (*Payment, error) {
	return m.Get(ctx, id)
}

func (m *memoryRepo) FindByPeriod(ctx context.Context, employeeID, storeID int64, periodStart string, _ bool) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.EmployeeID == employeeID && p.StoreID == storeID && p.PeriodStart == periodStart {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryRepo) Insert(ctx context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.payments {
		if e.EmployeeID == p.EmployeeID && e.StoreID == p.StoreID && e.PeriodStart == p.PeriodStart {
			return errDuplicatePeriod
		}
	}
	*m.nextID++
	p.ID = *m.nextID
	m.payments[p.ID] = *p
	return nil
}

func (m *memoryRepo) Update(ctx context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = *p
	return nil
}

func (m *memoryRepo) List(ctx context.Context, q ListQuery) ([]Payment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []Payment
	for _, p := range m.payments {
		if q.EmployeeID != nil && p.EmployeeID != *q.EmployeeID {
			continue
		}
		if q.Status != nil && p.Status != *q.Status {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if q.Offset >= len(all) {
		return nil, total, nil
	}
	end := q.Offset + q.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[q.Offset:end], total, nil
}

func (m *memoryRepo) LockAccount(ctx context.Context, accountID int64) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return nil, apperr.ErrNotFound("account not found")
	}
	return &a, nil
}

func (m *memoryRepo) CreditAccount(ctx context.Context, accountID, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return apperr.ErrNotFound("account not found")
	}
	a.Balance += amount
	m.accounts[accountID] = a
	return nil
}

func (m *memoryRepo) LatestAccountID(ctx context.Context, employeeID int64) (*int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *account.Account
	for _, a := range m.accounts {
		if a.OwnerID != employeeID {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			cp := a
			latest = &cp
		}
	}
	if latest == nil {
		return nil, nil
	}
	return &latest.ID, nil
}

// fakeEstimator: 手取りと時間を固定で返す
type fakeEstimator struct {
	netPay int64
	hours  decimal.Decimal
	calls  atomic.Int32
}

func (f *fakeEstimator) EstimatePeriod(_ context.Context, employeeID, storeID int64, p wage.Period) (wage.Estimate, error) {
	f.calls.Add(1)
	return wage.Estimate{
		EmployeeID:  employeeID,
		StoreID:     storeID,
		Period:      p.Label(),
		PeriodStart: p.Start.Format("2006-01-02"),
		PeriodEnd:   p.End().Format("2006-01-02"),
		HourlyWage:  10000,
		TotalHours:  f.hours,
		NetPay:      f.netPay,
	}, nil
}

func (f *fakeEstimator) Reverse(_ context.Context, _, totalAmount int64, totalHours decimal.Decimal) (wage.Breakdown, error) {
	return wage.NewCalculator(wage.DefaultRates()).Reverse(totalAmount, totalHours, 10000), nil
}

func (f *fakeEstimator) Location() *time.Location { return seoul }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) New() (string, error) {
	return fmt.Sprintf("01JTEST%019d", s.n.Add(1)), nil
}
