package fiscal

import "time"

// FiscalYear (exercice) is one accounting year. Once closed, no figure may
// be created or mutated against it.
type FiscalYear struct {
	ID        int64     `json:"id"`
	Year      int       `json:"year"`
	Label     string    `json:"label"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Closed    bool      `json:"closed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PeriodKind enumerates reporting period granularities.
type PeriodKind string

const (
	PeriodMonthly    PeriodKind = "monthly"
	PeriodQuarterly  PeriodKind = "quarterly"
	PeriodSemestrial PeriodKind = "semestrial"
	PeriodAnnual     PeriodKind = "annual"
)

// Valid reports whether the kind is one of the supported granularities.
func (k PeriodKind) Valid() bool {
	switch k {
	case PeriodMonthly, PeriodQuarterly, PeriodSemestrial, PeriodAnnual:
		return true
	}
	return false
}

// Period is one reporting column of the rendered table. Periods of one year
// may overlap in date range; budget documents show monthly and annual
// columns side by side. Display order is SortOrder, never the date range.
type Period struct {
	ID           int64      `json:"id"`
	FiscalYearID int64      `json:"fiscal_year_id"`
	Code         string     `json:"code"`
	Name         string     `json:"name"`
	Kind         PeriodKind `json:"kind"`
	SortOrder    int        `json:"sort_order"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      time.Time  `json:"end_date"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
