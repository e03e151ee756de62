package fiscal

import (
	"context"
	"strconv"
	"strings"

	"github.com/tahiry-mg/tahiry/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ResolveYear returns the fiscal year record for the given calendar year.
func (s *Service) ResolveYear(ctx context.Context, year int) (FiscalYear, error) {
	return s.repo.GetYear(ctx, year)
}

func (s *Service) CreateYear(ctx context.Context, fy FiscalYear) (FiscalYear, error) {
	if fy.Year < 1900 || fy.Year > 2200 {
		return FiscalYear{}, shared.Validationf("year", "out of range: %d", fy.Year)
	}
	if !fy.EndDate.After(fy.StartDate) {
		return FiscalYear{}, shared.Validationf("end_date", "must be after start_date")
	}
	return s.repo.CreateYear(ctx, fy)
}

// CloseYear marks the year closed. Idempotent; closing an already closed
// year is a no-op.
func (s *Service) CloseYear(ctx context.Context, year int) error {
	return s.repo.SetClosed(ctx, year, true)
}

// ReopenYear lifts the closed flag again.
func (s *Service) ReopenYear(ctx context.Context, year int) error {
	return s.repo.SetClosed(ctx, year, false)
}

// PeriodsForYear returns the reporting periods ordered by their configured
// display order.
func (s *Service) PeriodsForYear(ctx context.Context, year int) ([]Period, error) {
	fy, err := s.repo.GetYear(ctx, year)
	if err != nil {
		return nil, err
	}
	return s.repo.PeriodsForYear(ctx, fy.ID)
}

// ResolvePeriod returns the period identified by code within the given
// calendar year, so callers addressing a cell by (year, period code) cannot
// reach a period of another exercise.
func (s *Service) ResolvePeriod(ctx context.Context, year int, code string) (Period, error) {
	fy, err := s.repo.GetYear(ctx, year)
	if err != nil {
		return Period{}, err
	}
	return s.repo.GetPeriod(ctx, fy.ID, code)
}

// CreatePeriod attaches a new reporting period to an open fiscal year.
// Overlapping date ranges are permitted; display order is the only ordering
// the table honours.
func (s *Service) CreatePeriod(ctx context.Context, year int, p Period) (Period, error) {
	if strings.TrimSpace(p.Code) == "" {
		return Period{}, shared.Validationf("code", "is required")
	}
	if !p.Kind.Valid() {
		return Period{}, shared.Validationf("kind", "unknown period kind %q", p.Kind)
	}
	fy, err := s.repo.GetYear(ctx, year)
	if err != nil {
		return Period{}, err
	}
	if fy.Closed {
		return Period{}, &shared.InvalidStateError{Reason: "fiscal year " + strconv.Itoa(fy.Year) + " is closed"}
	}
	p.FiscalYearID = fy.ID
	return s.repo.CreatePeriod(ctx, p)
}
