package figures

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tahiry-mg/tahiry/internal/accounts"
)

// Amounts groups every monetary column of a figure. All values are
// arbitrary-precision decimals with 2 fraction digits, in Ariary. Absent
// columns are zero, never null. The last four columns apply to dépense
// figures only and stay zero on recettes.
type Amounts struct {
	BudgetPrimitif        decimal.Decimal `json:"budget_primitif"`
	BudgetAdditionnel     decimal.Decimal `json:"budget_additionnel"`
	Modifications         decimal.Decimal `json:"modifications"`
	PrevisionsDefinitives decimal.Decimal `json:"previsions_definitives"`
	OrAdmis               decimal.Decimal `json:"or_admis"`
	Recouvrement          decimal.Decimal `json:"recouvrement"`
	ResteARecouvrer       decimal.Decimal `json:"reste_a_recouvrer"`
	Engagement            decimal.Decimal `json:"engagement"`
	MandatAdmis           decimal.Decimal `json:"mandat_admis"`
	Paiement              decimal.Decimal `json:"paiement"`
	ResteAPayer           decimal.Decimal `json:"reste_a_payer"`
}

// Add returns the column-wise sum of two amount sets.
func (a Amounts) Add(b Amounts) Amounts {
	return Amounts{
		BudgetPrimitif:        a.BudgetPrimitif.Add(b.BudgetPrimitif),
		BudgetAdditionnel:     a.BudgetAdditionnel.Add(b.BudgetAdditionnel),
		Modifications:         a.Modifications.Add(b.Modifications),
		PrevisionsDefinitives: a.PrevisionsDefinitives.Add(b.PrevisionsDefinitives),
		OrAdmis:               a.OrAdmis.Add(b.OrAdmis),
		Recouvrement:          a.Recouvrement.Add(b.Recouvrement),
		ResteARecouvrer:       a.ResteARecouvrer.Add(b.ResteARecouvrer),
		Engagement:            a.Engagement.Add(b.Engagement),
		MandatAdmis:           a.MandatAdmis.Add(b.MandatAdmis),
		Paiement:              a.Paiement.Add(b.Paiement),
		ResteAPayer:           a.ResteAPayer.Add(b.ResteAPayer),
	}
}

// IsZero reports whether every column is zero.
func (a Amounts) IsZero() bool {
	return a.BudgetPrimitif.IsZero() && a.BudgetAdditionnel.IsZero() &&
		a.Modifications.IsZero() && a.PrevisionsDefinitives.IsZero() &&
		a.OrAdmis.IsZero() && a.Recouvrement.IsZero() && a.ResteARecouvrer.IsZero() &&
		a.Engagement.IsZero() && a.MandatAdmis.IsZero() && a.Paiement.IsZero() &&
		a.ResteAPayer.IsZero()
}

// Realisation returns the recognized amount for the movement kind: OR admis
// for recettes, mandat admis for dépenses.
func (a Amounts) Realisation(kind accounts.Kind) decimal.Decimal {
	if kind == accounts.KindDepense {
		return a.MandatAdmis
	}
	return a.OrAdmis
}

// WithDerived recomputes every derived column from the raw inputs:
//
//	previsions_definitives = budget_primitif + budget_additionnel + modifications
//	reste_a_recouvrer      = or_admis − recouvrement
//	reste_a_payer          = mandat_admis − paiement
//
// Derived columns are never trusted from client input.
func (a Amounts) WithDerived() Amounts {
	a.PrevisionsDefinitives = a.BudgetPrimitif.Add(a.BudgetAdditionnel).Add(a.Modifications).Round(2)
	a.ResteARecouvrer = a.OrAdmis.Sub(a.Recouvrement).Round(2)
	a.ResteAPayer = a.MandatAdmis.Sub(a.Paiement).Round(2)
	return a
}

// ExecutionRate returns realisation over prévisions définitives as a
// percentage rounded to 2 digits, and 0 when the denominator is zero.
func (a Amounts) ExecutionRate(kind accounts.Kind) decimal.Decimal {
	if a.PrevisionsDefinitives.IsZero() {
		return decimal.Zero
	}
	return a.Realisation(kind).
		Div(a.PrevisionsDefinitives).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

// Variance returns realisation minus prévisions définitives. Negative means
// under-execution.
func (a Amounts) Variance(kind accounts.Kind) decimal.Decimal {
	return a.Realisation(kind).Sub(a.PrevisionsDefinitives).Round(2)
}

// Figure is one fact row: the monetary columns for one
// (commune, account, period[, project]) combination.
type Figure struct {
	ID           uuid.UUID
	CommuneID    int64
	AccountCode  string
	PeriodID     int64
	ProjectID    *uuid.UUID
	Amounts      Amounts
	Observations string
	Validated    bool
	ValidatedBy  *int64
	ValidatedAt  *time.Time
	CreatedBy    int64
	UpdatedBy    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GridCell is one cell of the rectangular (account × period) grid returned
// by the store: missing figures surface as zero-valued virtual cells so the
// rendered table always has complete shape.
type GridCell struct {
	AccountCode string
	PeriodID    int64
	FigureID    *uuid.UUID
	Amounts     Amounts
	Validated   bool
}
