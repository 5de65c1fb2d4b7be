package attendance

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"ALBA-backend/internal/platform/apperr"
	"ALBA-backend/internal/platform/logging"
	"ALBA-backend/internal/schedule"
)

// ===== インターフェース群 =====

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// ScheduleLookup: 勤務予定の参照（予定なしは nil）
type ScheduleLookup interface {
	FindPlannedShift(ctx context.Context, employeeID, storeID int64, date time.Time) (*schedule.Shift, error)
}

// ===== Service =====

type Service struct {
	repo      Repository
	schedules ScheduleLookup
	clock     Clock
	loc       *time.Location // work_date と遅刻判定の基準タイムゾーン
}

func NewService(conn *sql.DB, schedules ScheduleLookup, loc *time.Location) *Service {
	return newService(NewStore(conn), schedules, realClock{}, loc)
}

func newService(repo Repository, schedules ScheduleLookup, clock Clock, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, schedules: schedules, clock: clock, loc: loc}
}

// POST /attendances/clock-in
func (s *Service) ClockIn(ctx context.Context, in ClockInRequest) (ClockInResponse, error) {
	if in.EmployeeID <= 0 || in.StoreID <= 0 {
		return ClockInResponse{}, apperr.ErrInvalid("employee_id and store_id are required")
	}

	now := s.clock.Now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	shift, err := s.schedules.FindPlannedShift(ctx, in.EmployeeID, in.StoreID, today)
	if err != nil {
		return ClockInResponse{}, err
	}
	status := resolveClockInStatus(now, shift)

	rec := &Record{
		EmployeeID:      in.EmployeeID,
		StoreID:         in.StoreID,
		WorkDate:        today.Format(DateLayout),
		ClockIn:         now.UTC(),
		Status:          status,
		ClockInLocation: trimPtr(in.Location),
		ClockInNetwork:  trimPtr(in.NetworkID),
	}

	err = s.repo.WithTx(ctx, func(tx Repository) error {
		if err := tx.LockEmployee(ctx, in.EmployeeID); err != nil {
			return err
		}
		open, err := tx.FindOpen(ctx, in.EmployeeID)
		if err != nil {
			return err
		}
		if open != nil {
			return apperr.ErrAlreadyClockedIn("employee already has an open shift")
		}
		return tx.Insert(ctx, rec)
	})
	if err != nil {
		return ClockInResponse{}, err
	}

	logging.FromContext(ctx).Info("clock in",
		slog.Int64("attendance_id", rec.ID),
		slog.Int64("employee_id", rec.EmployeeID),
		slog.String("status", string(rec.Status)),
	)

	return ClockInResponse{
		AttendanceID: rec.ID,
		Status:       rec.Status,
		ClockedAt:    rec.ClockIn,
		WorkDate:     rec.WorkDate,
	}, nil
}

// resolveClockInStatus: 予定があり、実打刻の時刻が予定開始より厳密に遅ければ LATE
func resolveClockInStatus(now time.Time, shift *schedule.Shift) Status {
	if shift != nil && schedule.TimeOfDay(now) > shift.PlannedStart {
		return StatusLate
	}
	return StatusOn
}

// POST /attendances/:id/clock-out
func (s *Service) ClockOut(ctx context.Context, recordID int64, in ClockOutRequest) (RecordResponse, error) {
	if recordID <= 0 {
		return RecordResponse{}, apperr.ErrInvalid("attendance_id must be > 0")
	}
	now := s.clock.Now().UTC()

	var rec *Record
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		r, err := tx.GetForUpdate(ctx, recordID)
		if err != nil {
			return err
		}
		r.ClockOut = &now
		r.Status = StatusOff
		r.ClockOutLocation = trimPtr(in.Location)
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return RecordResponse{}, err
	}

	logging.FromContext(ctx).Info("clock out",
		slog.Int64("attendance_id", rec.ID),
		slog.Int64("employee_id", rec.EmployeeID),
	)
	return rec.toDTO(), nil
}

// POST /attendances/manual
// 事後登録は PENDING で作成（承認待ち）。同一従業員の既存打刻と時間帯が重なる場合は拒否する
func (s *Service) ManualRegister(ctx context.Context, in ManualRequest) (RecordResponse, error) {
	if in.EmployeeID <= 0 || in.StoreID <= 0 {
		return RecordResponse{}, apperr.ErrInvalid("employee_id and store_id are required")
	}
	if in.BreakMinutes < 0 {
		return RecordResponse{}, apperr.ErrInvalid("break_minutes must be >= 0")
	}
	day, start, end, err := s.parseSpan(in.WorkDate, in.Start, &in.End)
	if err != nil {
		return RecordResponse{}, err
	}
	if !end.After(start) {
		return RecordResponse{}, apperr.ErrInvalid("end must be after start")
	}

	rec := &Record{
		EmployeeID:   in.EmployeeID,
		StoreID:      in.StoreID,
		WorkDate:     day.Format(DateLayout),
		ClockIn:      start.UTC(),
		ClockOut:     ptrTime(end.UTC()),
		BreakMinutes: in.BreakMinutes,
		Status:       StatusPending,
	}

	err = s.repo.WithTx(ctx, func(tx Repository) error {
		if err := tx.LockEmployee(ctx, in.EmployeeID); err != nil {
			return err
		}
		overlaps, err := tx.ListOverlapping(ctx, in.EmployeeID, start, end)
		if err != nil {
			return err
		}
		if len(overlaps) > 0 {
			return apperr.ErrInvalidState("overlaps an existing attendance record")
		}
		return tx.Insert(ctx, rec)
	})
	if err != nil {
		return RecordResponse{}, err
	}
	return rec.toDTO(), nil
}

// PUT /attendances/:id
// 管理者による修正。4項目を無条件に上書きする（監査ログは別サービス）
func (s *Service) Modify(ctx context.Context, recordID int64, in ModifyRequest) (RecordResponse, error) {
	if recordID <= 0 {
		return RecordResponse{}, apperr.ErrInvalid("attendance_id must be > 0")
	}
	if !in.Status.Valid() {
		return RecordResponse{}, apperr.ErrInvalid("status must be one of ON, LATE, OFF, ABSENT, PENDING")
	}
	if in.BreakMinutes != nil && *in.BreakMinutes < 0 {
		return RecordResponse{}, apperr.ErrInvalid("break_minutes must be >= 0")
	}
	day, start, end, err := s.parseSpan(in.WorkDate, in.Start, in.End)
	if err != nil {
		return RecordResponse{}, err
	}

	var rec *Record
	err = s.repo.WithTx(ctx, func(tx Repository) error {
		r, err := tx.GetForUpdate(ctx, recordID)
		if err != nil {
			return err
		}
		r.WorkDate = day.Format(DateLayout)
		r.ClockIn = start.UTC()
		r.ClockOut = nil
		if in.End != nil {
			r.ClockOut = ptrTime(end.UTC())
		}
		r.Status = in.Status
		if in.BreakMinutes != nil {
			r.BreakMinutes = *in.BreakMinutes
		}
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return RecordResponse{}, err
	}
	return rec.toDTO(), nil
}

// POST /attendances/:id/approve  PENDING → OFF
func (s *Service) Approve(ctx context.Context, recordID int64) (RecordResponse, error) {
	var rec *Record
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		r, err := tx.GetForUpdate(ctx, recordID)
		if err != nil {
			return err
		}
		if r.Status != StatusPending {
			return apperr.ErrInvalidState("only PENDING records can be approved")
		}
		r.Status = StatusOff
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return RecordResponse{}, err
	}
	return rec.toDTO(), nil
}

func (s *Service) Get(ctx context.Context, recordID int64) (RecordResponse, error) {
	r, err := s.repo.Get(ctx, recordID)
	if err != nil {
		return RecordResponse{}, err
	}
	return r.toDTO(), nil
}

// GET /employees/:employee_id/open-shift
func (s *Service) OpenShift(ctx context.Context, employeeID int64) (RecordResponse, error) {
	r, err := s.repo.FindOpen(ctx, employeeID)
	if err != nil {
		return RecordResponse{}, err
	}
	if r == nil {
		return RecordResponse{}, apperr.ErrNotFound("no open shift")
	}
	return r.toDTO(), nil
}

// GET /attendances
func (s *Service) List(ctx context.Context, q ListQuery) (ListResult, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	for _, v := range []*string{q.From, q.To} {
		if v != nil && *v != "" {
			if _, err := time.Parse(DateLayout, *v); err != nil {
				return ListResult{}, apperr.ErrInvalid("from/to must be YYYY-MM-DD")
			}
		}
	}
	if q.Status != nil && !q.Status.Valid() {
		return ListResult{}, apperr.ErrInvalid("invalid status")
	}

	rows, total, err := s.repo.List(ctx, q)
	if err != nil {
		return ListResult{}, err
	}
	items := make([]RecordResponse, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toDTO())
	}
	next := q.Offset + q.Limit
	if next >= int(total) {
		next = 0
	} // 0=終端
	return ListResult{Items: items, Total: total, NextOffset: next}, nil
}

// ClosedRecords: 給与計算用。clock_in が [from, to) の退勤済み打刻
func (s *Service) ClosedRecords(ctx context.Context, employeeID, storeID int64, from, to time.Time) ([]Record, error) {
	return s.repo.ListClosed(ctx, employeeID, storeID, from, to)
}

func (s *Service) Location() *time.Location { return s.loc }

// ===== helpers =====

// parseSpan: work_date と start/end を解釈する。"HH:MM" は work_date 基準で、
// end <= start なら翌日扱い（日跨ぎ勤務）。RFC3339 はそのまま。
func (s *Service) parseSpan(workDate, start string, end *string) (day, from, to time.Time, err error) {
	day, err = time.ParseInLocation(DateLayout, strings.TrimSpace(workDate), s.loc)
	if err != nil {
		return day, from, to, apperr.ErrInvalid("work_date must be YYYY-MM-DD")
	}
	from, clockStart, err := s.parseMoment(day, start)
	if err != nil {
		return day, from, to, apperr.ErrInvalid("start must be HH:MM or RFC3339")
	}
	if end == nil {
		return day, from, to, nil
	}
	to, clockEnd, err := s.parseMoment(day, *end)
	if err != nil {
		return day, from, to, apperr.ErrInvalid("end must be HH:MM or RFC3339")
	}
	if clockStart && clockEnd && !to.After(from) {
		to = to.AddDate(0, 0, 1)
	}
	return day, from, to, nil
}

func (s *Service) parseMoment(day time.Time, v string) (time.Time, bool, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	c, err := time.ParseInLocation(ClockLayout, v, s.loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, s.loc), true, nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func ptrTime(t time.Time) *time.Time { return &t }
