package wage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ALBA-backend/internal/attendance"
)

var seoul = time.FixedZone("KST", 9*3600)

// closed: day の 10:00 から minutes 分働いた退勤済み打刻
func closed(day time.Time, minutes int) attendance.Record {
	in := time.Date(day.Year(), day.Month(), day.Day(), 10, 0, 0, 0, seoul)
	out := in.Add(time.Duration(minutes) * time.Minute)
	return attendance.Record{
		EmployeeID: 1,
		StoreID:    10,
		WorkDate:   in.Format(attendance.DateLayout),
		ClockIn:    in,
		ClockOut:   &out,
		Status:     attendance.StatusOff,
	}
}

func march(t *testing.T) Period {
	t.Helper()
	p, err := NewPeriod(2025, 3, seoul)
	require.NoError(t, err)
	return p
}

func TestCompute_FullWeek(t *testing.T) {
	// GIVEN 2025-03-10(月)〜15(土) に 7 時間 × 6 日 = 42 時間、時給 10000
	var records []attendance.Record
	for d := 10; d <= 15; d++ {
		records = append(records, closed(time.Date(2025, 3, d, 0, 0, 0, 0, seoul), 7*60))
	}

	// WHEN
	est := NewCalculator(DefaultRates()).Compute(records, 10000, march(t))

	// THEN 基本給 420,000 + 週休手当 80,000（40時間で頭打ち）
	assert.Equal(t, int64(42*60), est.TotalMinutes)
	assert.True(t, decimal.NewFromInt(42).Equal(est.TotalHours))
	assert.Equal(t, int64(420000), est.BasePay)
	assert.Equal(t, int64(80000), est.WeeklyAllowance)
	assert.Equal(t, int64(500000), est.RawAmount)
	assert.Equal(t, int64(16500), est.Tax)
	assert.Equal(t, int64(483500), est.NetPay)
	assert.Equal(t, "483,500원", est.NetPayDisplay)

	require.Len(t, est.Weeks, 1)
	assert.Equal(t, 2025, est.Weeks[0].ISOYear)
	assert.Equal(t, 11, est.Weeks[0].ISOWeek)
	assert.Equal(t, int64(80000), est.Weeks[0].Allowance)

	assert.Equal(t, "2025-03", est.Period)
	assert.Equal(t, "2025-03-01", est.PeriodStart)
	assert.Equal(t, "2025-03-31", est.PeriodEnd)
}

func TestWeeklyAllowance_Threshold(t *testing.T) {
	c := NewCalculator(DefaultRates())

	assert.Equal(t, int64(0), c.WeeklyAllowance(15*60-1, 10000))
	assert.Equal(t, int64(30000), c.WeeklyAllowance(15*60, 10000))
	assert.Equal(t, int64(40000), c.WeeklyAllowance(20*60, 10000))
	assert.Equal(t, int64(80000), c.WeeklyAllowance(40*60, 10000))
	assert.Equal(t, int64(80000), c.WeeklyAllowance(60*60, 10000))
}

func TestCompute_ShortWeeksGetNoAllowance(t *testing.T) {
	// 2 週にまたがって各 10 時間
	records := []attendance.Record{
		closed(time.Date(2025, 3, 4, 0, 0, 0, 0, seoul), 5*60),
		closed(time.Date(2025, 3, 5, 0, 0, 0, 0, seoul), 5*60),
		closed(time.Date(2025, 3, 11, 0, 0, 0, 0, seoul), 10*60),
	}

	est := NewCalculator(DefaultRates()).Compute(records, 10000, march(t))

	assert.Equal(t, int64(200000), est.BasePay)
	assert.Equal(t, int64(0), est.WeeklyAllowance)
	require.Len(t, est.Weeks, 2)
	assert.Equal(t, 10, est.Weeks[0].ISOWeek)
	assert.Equal(t, 11, est.Weeks[1].ISOWeek)
}

func TestCompute_IgnoresOpenAndOutOfMonthRecords(t *testing.T) {
	open := closed(time.Date(2025, 3, 20, 0, 0, 0, 0, seoul), 0)
	open.ClockOut = nil
	open.Status = attendance.StatusOn

	records := []attendance.Record{
		closed(time.Date(2025, 3, 31, 0, 0, 0, 0, seoul), 8*60),
		closed(time.Date(2025, 4, 1, 0, 0, 0, 0, seoul), 8*60),
		closed(time.Date(2025, 2, 28, 0, 0, 0, 0, seoul), 8*60),
		open,
	}

	est := NewCalculator(DefaultRates()).Compute(records, 10000, march(t))

	assert.Equal(t, int64(8*60), est.TotalMinutes)
	assert.Equal(t, int64(80000), est.BasePay)
	// 3/31 週は月内分 8 時間のみで判定
	assert.Equal(t, int64(0), est.WeeklyAllowance)
}

func TestCompute_EmptyMonth(t *testing.T) {
	est := NewCalculator(DefaultRates()).Compute(nil, 10030, march(t))

	assert.Equal(t, int64(0), est.NetPay)
	assert.Equal(t, int64(0), est.Tax)
	assert.Empty(t, est.Weeks)
	assert.Equal(t, "0원", est.NetPayDisplay)
}

func TestRounding_HalfUp(t *testing.T) {
	c := NewCalculator(DefaultRates())

	// 3 分 × 10 / 60 = 0.5
	assert.Equal(t, int64(1), c.BasePay(3, 10))
	// 500 × 0.033 = 16.5
	assert.Equal(t, int64(17), c.Tax(500))
	// 100 分 × 10030 / 60 = 16716.66…
	assert.Equal(t, int64(16717), c.BasePay(100, 10030))
}

func TestReverse_ExactCase(t *testing.T) {
	b := NewCalculator(DefaultRates()).Reverse(483500, decimal.NewFromInt(42), 10000)

	assert.Equal(t, int64(16500), b.Tax)
	assert.Equal(t, int64(420000), b.BasePay)
	assert.Equal(t, int64(80000), b.WeeklyAllowance)
	assert.Equal(t, int64(500000), b.RawAmount)
	assert.True(t, b.Approximate)
}

func TestReverse_ClampsNegativeAllowance(t *testing.T) {
	// 時給が後から上がると基本給が手取りを超える
	b := NewCalculator(DefaultRates()).Reverse(100000, decimal.NewFromInt(20), 20000)

	assert.Equal(t, int64(400000), b.BasePay)
	assert.Equal(t, int64(0), b.WeeklyAllowance)
}

func TestReverse_WithinTolerance(t *testing.T) {
	c := NewCalculator(DefaultRates())
	cases := []struct {
		name    string
		wage    int64
		minutes []int
	}{
		{"odd minutes", 10030, []int{100, 47, 233}},
		{"one long week", 9860, []int{431, 431, 431, 431, 431}},
		{"two weeks", 12345, []int{600, 600, 0, 0, 0, 0, 0, 610, 610, 610}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var records []attendance.Record
			for i, m := range tc.minutes {
				if m == 0 {
					continue
				}
				records = append(records, closed(time.Date(2025, 3, 3+i, 0, 0, 0, 0, seoul), m))
			}
			est := c.Compute(records, tc.wage, march(t))

			// 支払いには小数 6 桁で保存される
			b := c.Reverse(est.NetPay, est.TotalHours.Round(6), tc.wage)

			assert.InDelta(t, est.Tax, b.Tax, 1)
			assert.InDelta(t, est.BasePay, b.BasePay, 1)
			assert.InDelta(t, est.WeeklyAllowance, b.WeeklyAllowance, 2)
		})
	}
}

func TestNewPeriod_Validation(t *testing.T) {
	_, err := NewPeriod(2025, 13, seoul)
	assert.Error(t, err)
	_, err = NewPeriod(2025, 0, seoul)
	assert.Error(t, err)
	_, err = NewPeriod(0, 3, seoul)
	assert.Error(t, err)

	p, err := NewPeriod(2024, 12, seoul)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, seoul), p.Until)
	assert.Equal(t, "2024-12-31", p.End().Format(attendance.DateLayout))
}
