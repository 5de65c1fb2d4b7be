package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ALBA-backend/internal/platform/db"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Shift: 勤務予定（読み取り専用。登録はシフト管理側）
type Shift struct {
	EmployeeID   int64
	StoreID      int64
	Date         string
	PlannedStart time.Duration // 0:00 からの経過
	PlannedEnd   time.Duration
}

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

// FindPlannedShift: 予定が無ければ (nil, nil)
func (s *Store) FindPlannedShift(ctx context.Context, employeeID, storeID int64, date time.Time) (*Shift, error) {
	const q = `
	SELECT employee_id, store_id, DATE_FORMAT(work_date, '%Y-%m-%d'), planned_start, planned_end
	FROM schedules
	WHERE employee_id = ? AND store_id = ? AND work_date = ?
	LIMIT 1`

	var (
		sh         Shift
		start, end string
	)
	err := s.db.QueryRowContext(ctx, q, employeeID, storeID, date.Format(DateLayout)).
		Scan(&sh.EmployeeID, &sh.StoreID, &sh.Date, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if sh.PlannedStart, err = ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("schedules.planned_start: %w", err)
	}
	if sh.PlannedEnd, err = ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("schedules.planned_end: %w", err)
	}
	return &sh, nil
}

// ParseTimeOfDay: "09:00" / "09:00:00" を 0:00 からの Duration に変換
func ParseTimeOfDay(v string) (time.Duration, error) {
	layouts := []string{TimeLayout, "15:04"}
	for _, l := range layouts {
		t, err := time.Parse(l, v)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", v)
}

// TimeOfDay: t の壁時計時刻（t のロケーション基準）
func TimeOfDay(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}
