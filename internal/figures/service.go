package figures

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// rawColumn pairs an input column with its name for validation messages.
type rawColumn struct {
	name  string
	value decimal.Decimal
}

func rawColumns(a Amounts) []rawColumn {
	return []rawColumn{
		{"budget_primitif", a.BudgetPrimitif},
		{"budget_additionnel", a.BudgetAdditionnel},
		{"modifications", a.Modifications},
		{"or_admis", a.OrAdmis},
		{"recouvrement", a.Recouvrement},
		{"engagement", a.Engagement},
		{"mandat_admis", a.MandatAdmis},
		{"paiement", a.Paiement},
	}
}

// Upsert validates raw input, recomputes every derived column and writes
// the row. All raw amounts must be non-negative; only derived columns may
// go negative, representing over-collection or overpayment.
func (s *Service) Upsert(ctx context.Context, f Figure) (Figure, error) {
	for _, col := range rawColumns(f.Amounts) {
		if col.value.IsNegative() {
			return Figure{}, shared.Validationf(col.name, "must not be negative, got %s", col.value)
		}
	}
	f.Amounts = f.Amounts.WithDerived()
	if actor := shared.ActorFromContext(ctx); actor.ID != 0 {
		f.UpdatedBy = actor.ID
		if f.CreatedBy == 0 {
			f.CreatedBy = actor.ID
		}
	}
	return s.repo.Upsert(ctx, f)
}

// Grid returns the rectangular (account × period) cell set for one commune
// and year.
func (s *Service) Grid(ctx context.Context, communeID, fiscalYearID int64, kind accounts.Kind, projectID *uuid.UUID) ([]GridCell, error) {
	return s.repo.QueryGrid(ctx, communeID, fiscalYearID, kind, true, projectID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Figure, error) {
	return s.repo.Get(ctx, id)
}

// MarkValidated records the validator identity and timestamp. Idempotent.
func (s *Service) MarkValidated(ctx context.Context, id uuid.UUID) error {
	actor := shared.ActorFromContext(ctx)
	return s.repo.MarkValidated(ctx, id, actor.ID)
}

// RefreshDerived repairs stored derived columns for one fiscal year and
// returns the number of rows touched.
func (s *Service) RefreshDerived(ctx context.Context, fiscalYearID int64) (int64, error) {
	return s.repo.RefreshDerived(ctx, fiscalYearID)
}
