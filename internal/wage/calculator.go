package wage

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ALBA-backend/internal/attendance"
)

// Rates: 週休手当と源泉徴収の定数。ここ以外に直書きしない
type Rates struct {
	WeeklyThresholdHours int64           // これ未満の週は手当なし
	WeeklyCapHours       int64           // 手当計算上の週労働時間の上限
	WeeklyPaidHours      int64           // 満額時の手当時間
	TaxRate              decimal.Decimal // 事業所得の源泉徴収 3.3%
}

func DefaultRates() Rates {
	return Rates{
		WeeklyThresholdHours: 15,
		WeeklyCapHours:       40,
		WeeklyPaidHours:      8,
		TaxRate:              decimal.RequireFromString("0.033"),
	}
}

// Period: 対象月。Start 以上 Until 未満の clock_in を集計する
type Period struct {
	Year  int
	Month time.Month
	Start time.Time
	Until time.Time
}

func NewPeriod(year, month int, loc *time.Location) (Period, error) {
	if year < 1 || year > 9999 {
		return Period{}, fmt.Errorf("year out of range: %d", year)
	}
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("month out of range: %d", month)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return Period{Year: year, Month: time.Month(month), Start: start, Until: start.AddDate(0, 1, 0)}, nil
}

// PeriodOf: 任意の日付を含む月
func PeriodOf(day time.Time) Period {
	p, _ := NewPeriod(day.Year(), int(day.Month()), day.Location())
	return p
}

func (p Period) End() time.Time { return p.Until.AddDate(0, 0, -1) }
func (p Period) Label() string  { return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month)) }

type WeekSummary struct {
	ISOYear   int             `json:"iso_year"`
	ISOWeek   int             `json:"iso_week"`
	Minutes   int64           `json:"minutes"`
	Hours     decimal.Decimal `json:"hours"`
	Allowance int64           `json:"allowance"`
}

type Estimate struct {
	EmployeeID      int64           `json:"employee_id"`
	StoreID         int64           `json:"store_id"`
	Period          string          `json:"period"`
	PeriodStart     string          `json:"period_start"`
	PeriodEnd       string          `json:"period_end"`
	HourlyWage      int64           `json:"hourly_wage"`
	TotalMinutes    int64           `json:"total_minutes"`
	TotalHours      decimal.Decimal `json:"total_hours"`
	BasePay         int64           `json:"base_pay"`
	WeeklyAllowance int64           `json:"weekly_allowance"`
	RawAmount       int64           `json:"raw_amount"`
	Tax             int64           `json:"tax"`
	NetPay          int64           `json:"net_pay"`
	NetPayDisplay   string          `json:"net_pay_display"`
	Weeks           []WeekSummary   `json:"weeks"`
}

type Calculator struct{ rates Rates }

func NewCalculator(r Rates) Calculator { return Calculator{rates: r} }

func (c Calculator) Rates() Rates { return c.rates }

// Compute: 対象月の打刻から給与見込みを出す。永続化はしない。
// 週休手当は ISO 週単位だが、集計対象は対象月内の打刻に限る（月跨ぎの週は月内分のみで判定）。
func (c Calculator) Compute(records []attendance.Record, hourlyWage int64, p Period) Estimate {
	var total int64
	weeks := map[[2]int]int64{}

	loc := p.Start.Location()
	for _, r := range records {
		m, ok := attendance.WorkedMinutes(r)
		if !ok {
			continue
		}
		if r.ClockIn.Before(p.Start) || !r.ClockIn.Before(p.Until) {
			continue
		}
		total += m
		y, w := r.ClockIn.In(loc).ISOWeek()
		weeks[[2]int{y, w}] += m
	}

	est := Estimate{
		Period:       p.Label(),
		PeriodStart:  p.Start.Format(attendance.DateLayout),
		PeriodEnd:    p.End().Format(attendance.DateLayout),
		HourlyWage:   hourlyWage,
		TotalMinutes: total,
		TotalHours:   attendance.MinutesToHours(total),
		BasePay:      c.BasePay(total, hourlyWage),
		Weeks:        make([]WeekSummary, 0, len(weeks)),
	}

	for key, minutes := range weeks {
		allowance := c.WeeklyAllowance(minutes, hourlyWage)
		est.WeeklyAllowance += allowance
		est.Weeks = append(est.Weeks, WeekSummary{
			ISOYear:   key[0],
			ISOWeek:   key[1],
			Minutes:   minutes,
			Hours:     attendance.MinutesToHours(minutes),
			Allowance: allowance,
		})
	}
	sort.Slice(est.Weeks, func(i, j int) bool {
		if est.Weeks[i].ISOYear != est.Weeks[j].ISOYear {
			return est.Weeks[i].ISOYear < est.Weeks[j].ISOYear
		}
		return est.Weeks[i].ISOWeek < est.Weeks[j].ISOWeek
	})

	est.RawAmount = est.BasePay + est.WeeklyAllowance
	est.Tax = c.Tax(est.RawAmount)
	est.NetPay = est.RawAmount - est.Tax
	est.NetPayDisplay = FormatWon(est.NetPay)
	return est
}

// BasePay = round(分 × 時給 / 60)
func (c Calculator) BasePay(minutes, hourlyWage int64) int64 {
	return roundInt(decimal.NewFromInt(minutes).Mul(decimal.NewFromInt(hourlyWage)).Div(decimal.NewFromInt(60)))
}

// WeeklyAllowance = round(min(週時間, 40) / 40 × 8 × 時給)。15時間未満は 0
func (c Calculator) WeeklyAllowance(weekMinutes, hourlyWage int64) int64 {
	if weekMinutes < c.rates.WeeklyThresholdHours*60 {
		return 0
	}
	capMinutes := c.rates.WeeklyCapHours * 60
	effective := weekMinutes
	if effective > capMinutes {
		effective = capMinutes
	}
	v := decimal.NewFromInt(effective).
		Mul(decimal.NewFromInt(c.rates.WeeklyPaidHours)).
		Mul(decimal.NewFromInt(hourlyWage)).
		Div(decimal.NewFromInt(capMinutes))
	return roundInt(v)
}

// Tax = round(raw × 3.3%)
func (c Calculator) Tax(raw int64) int64 {
	return roundInt(decimal.NewFromInt(raw).Mul(c.rates.TaxRate))
}

// Breakdown: 確定済み支払いからの内訳の逆算（丸め誤差があるため概算）
type Breakdown struct {
	HourlyWage      int64 `json:"hourly_wage"`
	BasePay         int64 `json:"base_pay"`
	WeeklyAllowance int64 `json:"weekly_allowance"`
	RawAmount       int64 `json:"raw_amount"`
	Tax             int64 `json:"tax"`
	NetPay          int64 `json:"net_pay"`
	Approximate     bool  `json:"approximate"`
}

// Reverse: raw = 手取り / (1 - 税率)、tax = round(raw × 税率)、手当 = 手取り + tax - 基本給（負なら 0）
func (c Calculator) Reverse(totalAmount int64, totalHours decimal.Decimal, hourlyWage int64) Breakdown {
	one := decimal.NewFromInt(1)
	raw := decimal.NewFromInt(totalAmount).Div(one.Sub(c.rates.TaxRate))
	tax := roundInt(raw.Mul(c.rates.TaxRate))
	base := roundInt(totalHours.Mul(decimal.NewFromInt(hourlyWage)))

	allowance := totalAmount + tax - base
	if allowance < 0 {
		allowance = 0
	}
	return Breakdown{
		HourlyWage:      hourlyWage,
		BasePay:         base,
		WeeklyAllowance: allowance,
		RawAmount:       totalAmount + tax,
		Tax:             tax,
		NetPay:          totalAmount,
		Approximate:     true,
	}
}

// 四捨五入（0.5 は 0 から遠い方へ）。基本給・手当・税で共通
func roundInt(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
