package attendance

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ALBA-backend/internal/platform/apperr"
	"ALBA-backend/internal/platform/db"
)

// Repository: Service から見た永続化。WithTx の中では同じ Tx に束縛された Repository が渡る
type Repository interface {
	WithTx(ctx context.Context, fn func(Repository) error) error
	LockEmployee(ctx context.Context, employeeID int64) error
	FindOpen(ctx context.Context, employeeID int64) (*Record, error)
	Get(ctx context.Context, id int64) (*Record, error)
	GetForUpdate(ctx context.Context, id int64) (*Record, error)
	Insert(ctx context.Context, r *Record) error
	Update(ctx context.Context, r *Record) error
	ListOverlapping(ctx context.Context, employeeID int64, from, to time.Time) ([]Record, error)
	ListClosed(ctx context.Context, employeeID, storeID int64, from, to time.Time) ([]Record, error)
	List(ctx context.Context, q ListQuery) ([]Record, int64, error)
}

type Store struct {
	conn *sql.DB // Tx 外のときだけ非nil
	db   db.DBTX
}

func NewStore(conn *sql.DB) *Store { return &Store{conn: conn, db: conn} }

const selectCols = `
	SELECT attendance_id, employee_id, store_id, DATE_FORMAT(work_date, '%Y-%m-%d') AS work_date,
	clock_in, clock_out, break_minutes, status, clock_in_location, clock_in_network, clock_out_location
	FROM attendances`

func (s *Store) WithTx(ctx context.Context, fn func(Repository) error) error {
	if s.conn == nil {
		return fn(s)
	}
	return db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
		return fn(&Store{db: tx})
	})
}

// LockEmployee: 従業員行を FOR UPDATE して同一従業員の打刻を直列化する。
// 従業員行が無い環境でも attendances の UNIQUE(employee_id, open_marker) が最後の砦になる
func (s *Store) LockEmployee(ctx context.Context, employeeID int64) error {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT employee_id FROM employees WHERE employee_id = ? FOR UPDATE`, employeeID).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return nil
}

func (s *Store) FindOpen(ctx context.Context, employeeID int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectCols+`
	WHERE employee_id = ? AND status IN ('ON', 'LATE')
	ORDER BY clock_in DESC LIMIT 1`, employeeID)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	return s.get(ctx, id, "")
}

func (s *Store) GetForUpdate(ctx context.Context, id int64) (*Record, error) {
	return s.get(ctx, id, " FOR UPDATE")
}

func (s *Store) get(ctx context.Context, id int64, lock string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectCols+` WHERE attendance_id = ?`+lock, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound("attendance not found")
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) Insert(ctx context.Context, r *Record) error {
	const q = `
	INSERT INTO attendances
	(employee_id, store_id, work_date, clock_in, clock_out, break_minutes, status,
	 clock_in_location, clock_in_network, clock_out_location)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, q,
		r.EmployeeID, r.StoreID, r.WorkDate, r.ClockIn.UTC(), timeOrNil(r.ClockOut), r.BreakMinutes, string(r.Status),
		ptrToNull(r.ClockInLocation), ptrToNull(r.ClockInNetwork), ptrToNull(r.ClockOutLocation),
	)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return apperr.ErrAlreadyClockedIn("employee already has an open shift")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

func (s *Store) Update(ctx context.Context, r *Record) error {
	const q = `
	UPDATE attendances
	SET work_date = ?, clock_in = ?, clock_out = ?, break_minutes = ?, status = ?, clock_out_location = ?
	WHERE attendance_id = ?`

	// MySQL は値が同じだと RowsAffected=0 になるので、存在確認は呼び出し側の GetForUpdate に任せる
	_, err := s.db.ExecContext(ctx, q,
		r.WorkDate, r.ClockIn.UTC(), timeOrNil(r.ClockOut), r.BreakMinutes, string(r.Status),
		ptrToNull(r.ClockOutLocation), r.ID,
	)
	if err != nil && db.IsDuplicateKey(err) {
		return apperr.ErrAlreadyClockedIn("employee already has an open shift")
	}
	return err
}

// ListOverlapping: [from, to) と重なる打刻（退勤なしは出勤以降ずっと重なる扱い）
func (s *Store) ListOverlapping(ctx context.Context, employeeID int64, from, to time.Time) ([]Record, error) {
	return s.query(ctx, selectCols+`
	WHERE employee_id = ? AND clock_in < ? AND (clock_out IS NULL OR clock_out > ?)
	ORDER BY clock_in ASC`, employeeID, to.UTC(), from.UTC())
}

// ListClosed: clock_in が [from, to) にある退勤済み打刻。storeID=0 は全店舗
func (s *Store) ListClosed(ctx context.Context, employeeID, storeID int64, from, to time.Time) ([]Record, error) {
	q := selectCols + `
	WHERE employee_id = ? AND clock_in >= ? AND clock_in < ? AND clock_out IS NOT NULL`
	args := []any{employeeID, from.UTC(), to.UTC()}
	if storeID > 0 {
		q += ` AND store_id = ?`
		args = append(args, storeID)
	}
	q += ` ORDER BY clock_in ASC, attendance_id ASC`
	return s.query(ctx, q, args...)
}

// List: 条件に応じて動的WHERE + ORDER + LIMIT/OFFSET
func (s *Store) List(ctx context.Context, q ListQuery) ([]Record, int64, error) {
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
	if q.From != nil && *q.From != "" {
		wheres = append(wheres, "work_date >= ?")
		args = append(args, *q.From)
	}
	if q.To != nil && *q.To != "" {
		wheres = append(wheres, "work_date <= ?")
		args = append(args, *q.To)
	}
	if q.Status != nil {
		wheres = append(wheres, "status = ?")
		args = append(args, string(*q.Status))
	}
	if len(wheres) > 0 {
		buf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	buf.WriteString(" ORDER BY clock_in DESC, attendance_id DESC")
	buf.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", q.Limit, q.Offset))

	out, err := s.query(ctx, buf.String(), args...)
	if err != nil {
		return nil, 0, err
	}

	// COUNT（ORDER BY より前までを再構築）
	var cntBuf bytes.Buffer
	cntBuf.WriteString("SELECT COUNT(*) FROM attendances")
	if len(wheres) > 0 {
		cntBuf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, cntBuf.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ===== helpers =====

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var r recordRow
	if err := sc.Scan(&r.AttendanceID, &r.EmployeeID, &r.StoreID, &r.WorkDate, &r.ClockIn, &r.ClockOut,
		&r.BreakMinutes, &r.Status, &r.ClockInLocation, &r.ClockInNetwork, &r.ClockOutLocation); err != nil {
		return nil, err
	}
	m := r.toModel()
	return &m, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
