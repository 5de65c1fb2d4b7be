package attendance

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusOn      Status = "ON"
	StatusLate    Status = "LATE"
	StatusOff     Status = "OFF"
	StatusAbsent  Status = "ABSENT"
	StatusPending Status = "PENDING"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOn, StatusLate, StatusOff, StatusAbsent, StatusPending:
		return true
	}
	return false
}

// IsOpen: 出勤中（退勤前）の状態。従業員ごとに同時に1件まで。
func (s Status) IsOpen() bool { return s == StatusOn || s == StatusLate }

// DB行に対応（スキャン用）
type recordRow struct {
	AttendanceID     int64
	EmployeeID       int64
	StoreID          int64
	WorkDate         string // DATE → "YYYY-MM-DD"
	ClockIn          time.Time
	ClockOut         sql.NullTime
	BreakMinutes     int
	Status           string
	ClockInLocation  sql.NullString
	ClockInNetwork   sql.NullString
	ClockOutLocation sql.NullString
}

// Service ↔ Store で使うモデル
type Record struct {
	ID               int64
	EmployeeID       int64
	StoreID          int64
	WorkDate         string
	ClockIn          time.Time
	ClockOut         *time.Time
	BreakMinutes     int
	Status           Status
	ClockInLocation  *string
	ClockInNetwork   *string
	ClockOutLocation *string
}

func (r recordRow) toModel() Record {
	m := Record{
		ID:               r.AttendanceID,
		EmployeeID:       r.EmployeeID,
		StoreID:          r.StoreID,
		WorkDate:         r.WorkDate,
		ClockIn:          r.ClockIn.UTC(),
		BreakMinutes:     r.BreakMinutes,
		Status:           Status(r.Status),
		ClockInLocation:  nullToPtr(r.ClockInLocation),
		ClockInNetwork:   nullToPtr(r.ClockInNetwork),
		ClockOutLocation: nullToPtr(r.ClockOutLocation),
	}
	if r.ClockOut.Valid {
		t := r.ClockOut.Time.UTC()
		m.ClockOut = &t
	}
	return m
}

// WorkedMinutes = (退勤 - 出勤)[分, 切り捨て] - 休憩。退勤前は ok=false。
// 負値（退勤が出勤より前）は補正しない。
func WorkedMinutes(r Record) (int64, bool) {
	if r.ClockOut == nil {
		return 0, false
	}
	span := int64(r.ClockOut.Sub(r.ClockIn) / time.Minute)
	return span - int64(r.BreakMinutes), true
}

// WorkedHours: WorkedMinutes / 60（小数時間）
func WorkedHours(r Record) (decimal.Decimal, bool) {
	m, ok := WorkedMinutes(r)
	if !ok {
		return decimal.Zero, false
	}
	return MinutesToHours(m), true
}

func MinutesToHours(m int64) decimal.Decimal {
	return decimal.NewFromInt(m).Div(decimal.NewFromInt(60))
}

func (r Record) toDTO() RecordResponse {
	resp := RecordResponse{
		AttendanceID:     r.ID,
		EmployeeID:       r.EmployeeID,
		StoreID:          r.StoreID,
		WorkDate:         r.WorkDate,
		ClockIn:          r.ClockIn,
		ClockOut:         r.ClockOut,
		BreakMinutes:     r.BreakMinutes,
		Status:           r.Status,
		ClockInLocation:  r.ClockInLocation,
		ClockInNetwork:   r.ClockInNetwork,
		ClockOutLocation: r.ClockOutLocation,
	}
	if h, ok := WorkedHours(r); ok {
		v := h.StringFixed(2)
		resp.WorkedHours = &v
	}
	return resp
}

func nullToPtr(ns sql.NullString) *string {
	if ns.Valid {
		v := ns.String
		return &v
	}
	return nil
}

func ptrToNull(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
