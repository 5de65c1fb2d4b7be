package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"ALBA-backend/internal/platform/apperr"
	"ALBA-backend/internal/schedule"
)

// memoryRepo: MySQL 実装と同じ制約（open shift の一意性）を持つテスト用 Repository
type memoryRepo struct {
	txMu    *sync.Mutex
	mu      *sync.Mutex
	records map[int64]Record
	nextID  *int64
	inTx    bool
}

func newMemoryRepo() *memoryRepo {
	var next int64
	return &memoryRepo{txMu: &sync.Mutex{}, mu: &sync.Mutex{}, records: map[int64]Record{}, nextID: &next}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(Repository) error) error {
	if m.inTx {
		return fn(m)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := make(map[int64]Record, len(m.records))
	for k, v := range m.records {
		snapshot[k] = v
	}
	m.mu.Unlock()

	tx := *m
	tx.inTx = true
	if err := fn(&tx); err != nil {
		m.mu.Lock()
		for k := range m.records {
			delete(m.records, k)
		}
		for k, v := range snapshot {
			m.records[k] = v
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memoryRepo) LockEmployee(ctx context.Context, employeeID int64) error { return nil }

func (m *memoryRepo) FindOpen(ctx context.Context, employeeID int64) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.EmployeeID == employeeID && r.Status.IsOpen() {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, apperr.ErrNotFound("attendance not found")
	}
	return &r, nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, id int64) (*Record, error) {
	return m.Get(ctx, id)
}

func (m *memoryRepo) violatesOpenUnique(r *Record) bool {
	if !r.Status.IsOpen() {
		return false
	}
	for id, other := range m.records {
		if id != r.ID && other.EmployeeID == r.EmployeeID && other.Status.IsOpen() {
			return true
		}
	}
	return false
}

func (m *memoryRepo) Insert(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.violatesOpenUnique(r) {
		return apperr.ErrAlreadyClockedIn("employee already has an open shift")
	}
	*m.nextID++
	r.ID = *m.nextID
	m.records[r.ID] = *r
	return nil
}

func (m *memoryRepo) Update(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.violatesOpenUnique(r) {
		return apperr.ErrAlreadyClockedIn("employee already has an open shift")
	}
	m.records[r.ID] = *r
	return nil
}

func (m *memoryRepo) ListOverlapping(ctx context.Context, employeeID int64, from, to time.Time) ([]Record, error) {
	return m.filter(func(r Record) bool {
		return r.EmployeeID == employeeID && r.ClockIn.Before(to) && (r.ClockOut == nil || r.ClockOut.After(from))
	}), nil
}

func (m *memoryRepo) ListClosed(ctx context.Context, employeeID, storeID int64, from, to time.Time) ([]Record, error) {
	return m.filter(func(r Record) bool {
		return r.EmployeeID == employeeID && (storeID == 0 || r.StoreID == storeID) &&
			!r.ClockIn.Before(from) && r.ClockIn.Before(to) && r.ClockOut != nil
	}), nil
}

func (m *memoryRepo) List(ctx context.Context, q ListQuery) ([]Record, int64, error) {
	all := m.filter(func(r Record) bool {
		if q.EmployeeID != nil && r.EmployeeID != *q.EmployeeID {
			return false
		}
		if q.StoreID != nil && r.StoreID != *q.StoreID {
			return false
		}
		if q.From != nil && r.WorkDate < *q.From {
			return false
		}
		if q.To != nil && r.WorkDate > *q.To {
			return false
		}
		if q.Status != nil && r.Status != *q.Status {
			return false
		}
		return true
	})
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

func (m *memoryRepo) filter(keep func(Record) bool) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockIn.Before(out[j].ClockIn) })
	return out
}

// ---------- schedule / clock ----------

type fakeSchedules map[int64]*schedule.Shift // employee_id → shift（日付は問わない）

func (f fakeSchedules) FindPlannedShift(ctx context.Context, employeeID, storeID int64, date time.Time) (*schedule.Shift, error) {
	return f[employeeID], nil
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
