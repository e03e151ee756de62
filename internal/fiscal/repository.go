package fiscal

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tahiry-mg/tahiry/internal/platform/db"
	"github.com/tahiry-mg/tahiry/internal/shared"
)

type Repository interface {
	GetYear(ctx context.Context, year int) (FiscalYear, error)
	CreateYear(ctx context.Context, fy FiscalYear) (FiscalYear, error)
	SetClosed(ctx context.Context, year int, closed bool) error
	PeriodsForYear(ctx context.Context, fiscalYearID int64) ([]Period, error)
	CreatePeriod(ctx context.Context, p Period) (Period, error)
	GetPeriod(ctx context.Context, fiscalYearID int64, code string) (Period, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const yearColumns = `id, year, label, start_date, end_date, closed, created_at, updated_at`

func scanYear(row pgx.Row) (FiscalYear, error) {
	var fy FiscalYear
	err := row.Scan(&fy.ID, &fy.Year, &fy.Label, &fy.StartDate, &fy.EndDate, &fy.Closed, &fy.CreatedAt, &fy.UpdatedAt)
	return fy, err
}

func (r *repository) GetYear(ctx context.Context, year int) (FiscalYear, error) {
	fy, err := scanYear(r.db.QueryRow(ctx,
		`SELECT `+yearColumns+` FROM fiscal_years WHERE year = $1`, year))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalYear{}, &shared.NotFoundError{Entity: "fiscal year", ID: strconv.Itoa(year)}
		}
		return FiscalYear{}, err
	}
	return fy, nil
}

func (r *repository) CreateYear(ctx context.Context, fy FiscalYear) (FiscalYear, error) {
	created, err := scanYear(r.db.QueryRow(ctx, `
INSERT INTO fiscal_years (year, label, start_date, end_date, closed)
VALUES ($1, $2, $3, $4, false)
RETURNING `+yearColumns,
		fy.Year, fy.Label, fy.StartDate, fy.EndDate))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return FiscalYear{}, &shared.ConflictError{Entity: "fiscal year", Key: strconv.Itoa(fy.Year)}
		}
		return FiscalYear{}, err
	}
	return created, nil
}

func (r *repository) SetClosed(ctx context.Context, year int, closed bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE fiscal_years SET closed = $2, updated_at = now() WHERE year = $1`, year, closed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "fiscal year", ID: strconv.Itoa(year)}
	}
	return nil
}

const periodColumns = `id, fiscal_year_id, code, name, kind, sort_order, start_date, end_date, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.FiscalYearID, &p.Code, &p.Name, &p.Kind, &p.SortOrder, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) PeriodsForYear(ctx context.Context, fiscalYearID int64) ([]Period, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+periodColumns+` FROM periods WHERE fiscal_year_id = $1 ORDER BY sort_order, code`, fiscalYearID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *repository) CreatePeriod(ctx context.Context, p Period) (Period, error) {
	created, err := scanPeriod(r.db.QueryRow(ctx, `
INSERT INTO periods (fiscal_year_id, code, name, kind, sort_order, start_date, end_date)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+periodColumns,
		p.FiscalYearID, p.Code, p.Name, p.Kind, p.SortOrder, p.StartDate, p.EndDate))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Period{}, &shared.ConflictError{Entity: "period", Key: p.Code}
		}
		return Period{}, err
	}
	return created, nil
}

func (r *repository) GetPeriod(ctx context.Context, fiscalYearID int64, code string) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx,
		`SELECT `+periodColumns+` FROM periods WHERE fiscal_year_id = $1 AND code = $2`, fiscalYearID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, &shared.NotFoundError{Entity: "period", ID: code}
		}
		return Period{}, err
	}
	return p, nil
}
