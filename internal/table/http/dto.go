package http

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tahiry-mg/tahiry/internal/figures"
)

// upsertFigureRequest carries the raw monetary inputs for one
// (account, period[, project]) cell. The period is addressed by code and
// resolved within the exercise named in the URL. Derived columns are not
// accepted; the server recomputes them.
type upsertFigureRequest struct {
	AccountCode       string          `json:"account_code" validate:"required"`
	PeriodCode        string          `json:"period_code" validate:"required"`
	ProjectID         *uuid.UUID      `json:"project_id"`
	BudgetPrimitif    decimal.Decimal `json:"budget_primitif"`
	BudgetAdditionnel decimal.Decimal `json:"budget_additionnel"`
	Modifications     decimal.Decimal `json:"modifications"`
	OrAdmis           decimal.Decimal `json:"or_admis"`
	Recouvrement      decimal.Decimal `json:"recouvrement"`
	Engagement        decimal.Decimal `json:"engagement"`
	MandatAdmis       decimal.Decimal `json:"mandat_admis"`
	Paiement          decimal.Decimal `json:"paiement"`
	Observations      string          `json:"observations" validate:"max=2000"`
}

func (r upsertFigureRequest) amounts() figures.Amounts {
	return figures.Amounts{
		BudgetPrimitif:    r.BudgetPrimitif,
		BudgetAdditionnel: r.BudgetAdditionnel,
		Modifications:     r.Modifications,
		OrAdmis:           r.OrAdmis,
		Recouvrement:      r.Recouvrement,
		Engagement:        r.Engagement,
		MandatAdmis:       r.MandatAdmis,
		Paiement:          r.Paiement,
	}
}

type setColumnValueRequest struct {
	Value string `json:"value" validate:"required,max=4000"`
}

type figureResponse struct {
	ID           uuid.UUID       `json:"id"`
	CommuneID    int64           `json:"commune_id"`
	AccountCode  string          `json:"account_code"`
	PeriodID     int64           `json:"period_id"`
	ProjectID    *uuid.UUID      `json:"project_id,omitempty"`
	Amounts      figures.Amounts `json:"amounts"`
	Observations string          `json:"observations,omitempty"`
	Validated    bool            `json:"validated"`
}

func toFigureResponse(f figures.Figure) figureResponse {
	return figureResponse{
		ID:           f.ID,
		CommuneID:    f.CommuneID,
		AccountCode:  f.AccountCode,
		PeriodID:     f.PeriodID,
		ProjectID:    f.ProjectID,
		Amounts:      f.Amounts,
		Observations: f.Observations,
		Validated:    f.Validated,
	}
}
