package wage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ALBA-backend/internal/attendance"
	"ALBA-backend/internal/platform/apperr"
	"ALBA-backend/internal/platform/logging"
)

// RecordSource: 対象期間の退勤済み打刻（attendance.Service が実装）
type RecordSource interface {
	ClosedRecords(ctx context.Context, employeeID, storeID int64, from, to time.Time) ([]attendance.Record, error)
}

// WageDirectory: 従業員の時給（employee.Directory が実装）
type WageDirectory interface {
	HourlyWage(ctx context.Context, employeeID int64) (int64, error)
}

type Service struct {
	records RecordSource
	wages   WageDirectory
	calc    Calculator
	loc     *time.Location
}

func NewService(records RecordSource, wages WageDirectory, rates Rates, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{records: records, wages: wages, calc: NewCalculator(rates), loc: loc}
}

func (s *Service) Location() *time.Location { return s.loc }

// GET /wages/estimate
func (s *Service) Estimate(ctx context.Context, employeeID, storeID int64, year, month int) (Estimate, error) {
	if employeeID <= 0 || storeID <= 0 {
		return Estimate{}, apperr.ErrInvalid("employee_id and store_id are required")
	}
	p, err := NewPeriod(year, month, s.loc)
	if err != nil {
		return Estimate{}, apperr.ErrInvalid(err.Error())
	}
	return s.EstimatePeriod(ctx, employeeID, storeID, p)
}

func (s *Service) EstimatePeriod(ctx context.Context, employeeID, storeID int64, p Period) (Estimate, error) {
	wage, err := s.wages.HourlyWage(ctx, employeeID)
	if err != nil {
		return Estimate{}, err
	}
	records, err := s.records.ClosedRecords(ctx, employeeID, storeID, p.Start, p.Until)
	if err != nil {
		return Estimate{}, err
	}

	est := s.calc.Compute(records, wage, p)
	est.EmployeeID = employeeID
	est.StoreID = storeID

	logging.FromContext(ctx).Debug("wage estimated",
		"employee_id", employeeID, "store_id", storeID, "period", est.Period,
		"minutes", est.TotalMinutes, "net_pay", est.NetPay)
	return est, nil
}

// Reverse: 支払い済み金額から内訳を概算する（時給は現在値を使う）
func (s *Service) Reverse(ctx context.Context, employeeID, totalAmount int64, totalHours decimal.Decimal) (Breakdown, error) {
	wage, err := s.wages.HourlyWage(ctx, employeeID)
	if err != nil {
		return Breakdown{}, err
	}
	return s.calc.Reverse(totalAmount, totalHours, wage), nil
}
