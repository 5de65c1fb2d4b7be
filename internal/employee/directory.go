package employee

import (
	"context"
	"database/sql"
	"errors"

	"ALBA-backend/internal/platform/db"
)

// Directory: 従業員の時給を引く。未設定(NULL/0/行なし)は設定ファイルのデフォルト時給。
type Directory struct {
	db          db.DBTX
	defaultWage int64
}

func NewDirectory(conn db.DBTX, defaultWage int64) *Directory {
	return &Directory{db: conn, defaultWage: defaultWage}
}

func (d *Directory) DefaultWage() int64 { return d.defaultWage }

func (d *Directory) HourlyWage(ctx context.Context, employeeID int64) (int64, error) {
	const q = `SELECT hourly_wage FROM employees WHERE employee_id = ?`
	var wage sql.NullInt64
	err := d.db.QueryRowContext(ctx, q, employeeID).Scan(&wage)
	if errors.Is(err, sql.ErrNoRows) {
		return d.defaultWage, nil
	}
	if err != nil {
		return 0, err
	}
	if !wage.Valid || wage.Int64 <= 0 {
		return d.defaultWage, nil
	}
	return wage.Int64, nil
}
