package payment

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ALBA-backend/internal/account"
	"ALBA-backend/internal/platform/apperr"
)

var (
	paymentCols = []string{
		"payment_id", "payment_ulid", "employee_id", "store_id", "account_id", "total_amount", "total_hours",
		"period_start", "period_end", "status", "created_at", "requested_at", "completed_at",
	}
	accountCols = []string{"account_id", "owner_id", "bank_name", "account_number", "balance", "created_at"}
)

func testSealer(t *testing.T) *account.Sealer {
	t.Helper()
	s, err := account.NewSealer(bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)
	return s
}

func TestStore_CompleteRunsInOneTx(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	sealer := testSealer(t)
	sealed, err := sealer.Seal("1234567890")
	require.NoError(t, err)
	created := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM salary_payments WHERE payment_id = \\? FOR UPDATE").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(paymentCols).AddRow(
			7, "01JTEST", 1, 10, 3, 483500, "42.000000", "2025-03-01", "2025-03-31", "REQUESTED", created, created, nil))
	mock.ExpectQuery("FROM accounts WHERE account_id = \\? FOR UPDATE").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow(3, 1, "KB", sealed, 1000, created))
	mock.ExpectExec("UPDATE accounts SET balance = balance \\+ \\?").
		WithArgs(int64(483500), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE salary_payments").
		WithArgs(int64(3), "COMPLETED", sqlmock.AnyArg(), sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := newService(NewStore(conn, sealer), &fakeEstimator{}, fixedClock{t: testNow}, &seqIDs{})
	res, err := svc.Complete(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "42.00", res.TotalHours)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CompleteMismatchRollsBack(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	sealer := testSealer(t)
	sealed, err := sealer.Seal("1234567890")
	require.NoError(t, err)
	created := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM salary_payments WHERE payment_id = \\? FOR UPDATE").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(paymentCols).AddRow(
			7, "01JTEST", 1, 10, nil, 483500, "42.000000", "2025-03-01", "2025-03-31", "WAITING", created, nil, nil))
	mock.ExpectQuery("FROM accounts WHERE account_id = \\? FOR UPDATE").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow(9, 2, "KB", sealed, 0, created))
	mock.ExpectRollback()

	svc := newService(NewStore(conn, sealer), &fakeEstimator{}, fixedClock{t: testNow}, &seqIDs{})
	_, err = svc.Complete(context.Background(), 7, 9)
	assert.True(t, apperr.HasCode(err, apperr.CodeAccountMismatch))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InsertDuplicatePeriod(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("INSERT INTO salary_payments").
		WithArgs("01JTEST", int64(1), int64(10), nil, int64(483500), "42.000000",
			"2025-03-01", "2025-03-31", "WAITING", sqlmock.AnyArg(), nil, nil).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	p := &Payment{
		ULID: "01JTEST", EmployeeID: 1, StoreID: 10, TotalAmount: 483500, TotalHours: decimal.NewFromInt(42),
		PeriodStart: "2025-03-01", PeriodEnd: "2025-03-31", Status: StatusWaiting, CreatedAt: testNow,
	}
	err = NewStore(conn, testSealer(t)).Insert(context.Background(), p)
	assert.True(t, errors.Is(err, errDuplicatePeriod), "%v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindByPeriodNone(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery("WHERE employee_id = \\? AND store_id = \\? AND period_start = \\? FOR UPDATE").
		WithArgs(int64(1), int64(10), "2025-03-01").
		WillReturnRows(sqlmock.NewRows(paymentCols))

	p, err := NewStore(conn, testSealer(t)).FindByPeriod(context.Background(), 1, 10, "2025-03-01", true)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}
