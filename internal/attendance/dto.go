package attendance

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
	DateLayout       = "2006-01-02"
	ClockLayout      = "15:04"
)

type ClockInRequest struct {
	EmployeeID int64   `json:"employee_id" binding:"required"`
	StoreID    int64   `json:"store_id" binding:"required"`
	Location   *string `json:"location,omitempty"`
	NetworkID  *string `json:"network_id,omitempty"`
}

type ClockInResponse struct {
	AttendanceID int64     `json:"attendance_id"`
	Status       Status    `json:"status"`
	ClockedAt    time.Time `json:"clocked_at"`
	WorkDate     string    `json:"work_date"`
}

type ClockOutRequest struct {
	Location *string `json:"location,omitempty"`
}

// ManualRequest: 打刻漏れの事後登録。Start/End は "HH:MM"（work_date 基準）または RFC3339
type ManualRequest struct {
	EmployeeID   int64  `json:"employee_id" binding:"required"`
	StoreID      int64  `json:"store_id" binding:"required"`
	WorkDate     string `json:"work_date" binding:"required"`
	Start        string `json:"start" binding:"required"`
	End          string `json:"end" binding:"required"`
	BreakMinutes int    `json:"break_minutes"`
}

// ModifyRequest: 管理者による上書き。End 省略時は退勤なし(NULL)に戻す
type ModifyRequest struct {
	WorkDate     string  `json:"work_date" binding:"required"`
	Start        string  `json:"start" binding:"required"`
	End          *string `json:"end,omitempty"`
	Status       Status  `json:"status" binding:"required"`
	BreakMinutes *int    `json:"break_minutes,omitempty"`
}

type RecordResponse struct {
	AttendanceID     int64      `json:"attendance_id"`
	EmployeeID       int64      `json:"employee_id"`
	StoreID          int64      `json:"store_id"`
	WorkDate         string     `json:"work_date"`
	ClockIn          time.Time  `json:"clock_in"`
	ClockOut         *time.Time `json:"clock_out,omitempty"`
	BreakMinutes     int        `json:"break_minutes"`
	Status           Status     `json:"status"`
	WorkedHours      *string    `json:"worked_hours,omitempty"`
	ClockInLocation  *string    `json:"clock_in_location,omitempty"`
	ClockInNetwork   *string    `json:"clock_in_network,omitempty"`
	ClockOutLocation *string    `json:"clock_out_location,omitempty"`
}

type ListQuery struct {
	EmployeeID *int64
	StoreID    *int64
	From       *string // YYYY-MM-DD (work_date)
	To         *string
	Status     *Status
	Limit      int
	Offset     int
}

type ListResult struct {
	Items      []RecordResponse `json:"items"`
	Total      int64            `json:"total"`
	NextOffset int              `json:"next_offset"`
}
