// Package table assembles the cross-product of accounts and periods into a
// renderable financial table: hierarchical roll-ups, derived metrics and
// the budget balance synthesis.
package table

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/columns"
	"github.com/tahiry-mg/tahiry/internal/figures"
	"github.com/tahiry-mg/tahiry/internal/fiscal"
	"github.com/tahiry-mg/tahiry/internal/geography"
)

// Cell is one resolved (account, period) intersection. FigureID is nil for
// virtual zero cells where no figure was stored.
type Cell struct {
	Amounts   figures.Amounts          `json:"amounts"`
	FigureID  *uuid.UUID               `json:"figure_id,omitempty"`
	Validated bool                     `json:"validated,omitempty"`
	Custom    map[string]columns.Value `json:"custom,omitempty"`
}

// Row is one account line of the rendered table, cells aligned with the
// period columns. Variance and ExecutionRate are filled on every row, leaf
// or roll-up: the reference template prints a taux on total lines too, so
// they are computed from the row's own aggregated Total.
type Row struct {
	Account       accounts.AccountNode `json:"account"`
	Cells         []Cell               `json:"cells"`
	Total         figures.Amounts      `json:"total"`
	Variance      decimal.Decimal      `json:"variance"`
	ExecutionRate decimal.Decimal      `json:"execution_rate"`
}

// EquilibreLine is one section of the budget balance synthesis, built from
// level-1 rows only: admitted revenue orders against expenditure mandates,
// and actual collections against payments.
type EquilibreLine struct {
	Label             string          `json:"label"`
	RecettesAdmises   decimal.Decimal `json:"recettes_admises"`
	Recouvrements     decimal.Decimal `json:"recouvrements"`
	DepensesMandatees decimal.Decimal `json:"depenses_mandatees"`
	Paiements         decimal.Decimal `json:"paiements"`
	SoldeAdmis        decimal.Decimal `json:"solde_admis"`
	SoldeRegle        decimal.Decimal `json:"solde_regle"`
}

// Equilibre is the synthesis sheet: fonctionnement and investissement
// blocks plus the grand total.
type Equilibre struct {
	Fonctionnement EquilibreLine `json:"fonctionnement"`
	Investissement EquilibreLine `json:"investissement"`
	Total          EquilibreLine `json:"total"`
}

// RenderedTable is the output of one aggregation request. Renders may be
// served from the version-keyed cache; any figure mutation bumps the
// version and invalidates every cached render at once.
type RenderedTable struct {
	Commune     geography.CommuneDetails `json:"commune"`
	Year        fiscal.FiscalYear        `json:"fiscal_year"`
	Periods     []fiscal.Period          `json:"periods"`
	Recettes    []Row                    `json:"recettes"`
	Depenses    []Row                    `json:"depenses"`
	Equilibre   Equilibre                `json:"equilibre"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// IsEmpty reports whether there is nothing at all to render: no account
// rows and no period columns.
func (t *RenderedTable) IsEmpty() bool {
	return len(t.Recettes) == 0 && len(t.Depenses) == 0 && len(t.Periods) == 0
}
