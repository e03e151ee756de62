package figures

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/platform/db"
	"github.com/tahiry-mg/tahiry/internal/shared"
)

const nilProject = "00000000-0000-0000-0000-000000000000"

type Repository interface {
	Upsert(ctx context.Context, f Figure) (Figure, error)
	QueryGrid(ctx context.Context, communeID, fiscalYearID int64, kind accounts.Kind, activeOnly bool, projectID *uuid.UUID) ([]GridCell, error)
	Get(ctx context.Context, id uuid.UUID) (Figure, error)
	MarkValidated(ctx context.Context, id uuid.UUID, validatorID int64) error
	RefreshDerived(ctx context.Context, fiscalYearID int64) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const figureColumns = `id, commune_id, account_code, period_id, project_id,
	budget_primitif, budget_additionnel, modifications, previsions_definitives,
	or_admis, recouvrement, reste_a_recouvrer,
	engagement, mandat_admis, paiement, reste_a_payer,
	observations, validated, validated_by, validated_at,
	created_by, updated_by, created_at, updated_at`

func scanFigure(row pgx.Row) (Figure, error) {
	var f Figure
	err := row.Scan(&f.ID, &f.CommuneID, &f.AccountCode, &f.PeriodID, &f.ProjectID,
		&f.Amounts.BudgetPrimitif, &f.Amounts.BudgetAdditionnel, &f.Amounts.Modifications, &f.Amounts.PrevisionsDefinitives,
		&f.Amounts.OrAdmis, &f.Amounts.Recouvrement, &f.Amounts.ResteARecouvrer,
		&f.Amounts.Engagement, &f.Amounts.MandatAdmis, &f.Amounts.Paiement, &f.Amounts.ResteAPayer,
		&f.Observations, &f.Validated, &f.ValidatedBy, &f.ValidatedAt,
		&f.CreatedBy, &f.UpdatedBy, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

// Upsert writes the figure inside a single transaction: it locks the
// period's fiscal year row, rejects closed years, checks the account code
// exists, then inserts or overwrites the row for the composite key. The lock closes the race where
// an administrator closes the year between check and write.
func (r *repository) Upsert(ctx context.Context, f Figure) (Figure, error) {
	var stored Figure
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var year int
		var closed bool
		err := tx.QueryRow(ctx, `
SELECT fy.year, fy.closed
FROM periods p
JOIN fiscal_years fy ON fy.id = p.fiscal_year_id
WHERE p.id = $1
FOR SHARE OF fy`, f.PeriodID).Scan(&year, &closed)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &shared.NotFoundError{Entity: "period", ID: strconv.FormatInt(f.PeriodID, 10)}
			}
			return err
		}
		if closed {
			return &shared.InvalidStateError{Reason: "fiscal year " + strconv.Itoa(year) + " is closed"}
		}

		var accountKnown bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM account_nodes WHERE code = $1)`,
			f.AccountCode).Scan(&accountKnown); err != nil {
			return err
		}
		if !accountKnown {
			return &shared.NotFoundError{Entity: "account", ID: f.AccountCode}
		}

		stored, err = scanFigure(tx.QueryRow(ctx, `
INSERT INTO figures (
	id, commune_id, account_code, period_id, project_id,
	budget_primitif, budget_additionnel, modifications, previsions_definitives,
	or_admis, recouvrement, reste_a_recouvrer,
	engagement, mandat_admis, paiement, reste_a_payer,
	observations, created_by, updated_by)
VALUES ($1, $2, $3, $4, $5,
	$6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
	$17, $18, $18)
ON CONFLICT (commune_id, account_code, period_id, COALESCE(project_id, '`+nilProject+`'::uuid))
DO UPDATE SET
	budget_primitif = EXCLUDED.budget_primitif,
	budget_additionnel = EXCLUDED.budget_additionnel,
	modifications = EXCLUDED.modifications,
	previsions_definitives = EXCLUDED.previsions_definitives,
	or_admis = EXCLUDED.or_admis,
	recouvrement = EXCLUDED.recouvrement,
	reste_a_recouvrer = EXCLUDED.reste_a_recouvrer,
	engagement = EXCLUDED.engagement,
	mandat_admis = EXCLUDED.mandat_admis,
	paiement = EXCLUDED.paiement,
	reste_a_payer = EXCLUDED.reste_a_payer,
	observations = EXCLUDED.observations,
	updated_by = EXCLUDED.updated_by,
	updated_at = now()
RETURNING `+figureColumns,
			uuid.New(), f.CommuneID, f.AccountCode, f.PeriodID, f.ProjectID,
			f.Amounts.BudgetPrimitif, f.Amounts.BudgetAdditionnel, f.Amounts.Modifications, f.Amounts.PrevisionsDefinitives,
			f.Amounts.OrAdmis, f.Amounts.Recouvrement, f.Amounts.ResteARecouvrer,
			f.Amounts.Engagement, f.Amounts.MandatAdmis, f.Amounts.Paiement, f.Amounts.ResteAPayer,
			f.Observations, f.UpdatedBy))
		return err
	})
	if err != nil {
		return Figure{}, err
	}
	return stored, nil
}

// QueryGrid left-joins the stored figures against the full cross-product of
// (account × period) for the year, so missing combinations surface as
// zero-valued cells. The result is always rectangular.
func (r *repository) QueryGrid(ctx context.Context, communeID, fiscalYearID int64, kind accounts.Kind, activeOnly bool, projectID *uuid.UUID) ([]GridCell, error) {
	const query = `
SELECT a.code, p.id, f.id,
	COALESCE(f.budget_primitif, 0), COALESCE(f.budget_additionnel, 0),
	COALESCE(f.modifications, 0), COALESCE(f.previsions_definitives, 0),
	COALESCE(f.or_admis, 0), COALESCE(f.recouvrement, 0), COALESCE(f.reste_a_recouvrer, 0),
	COALESCE(f.engagement, 0), COALESCE(f.mandat_admis, 0), COALESCE(f.paiement, 0),
	COALESCE(f.reste_a_payer, 0),
	COALESCE(f.validated, false)
FROM account_nodes a
CROSS JOIN periods p
LEFT JOIN figures f
	ON f.account_code = a.code
	AND f.period_id = p.id
	AND f.commune_id = $1
	AND ($5::uuid IS NULL AND f.project_id IS NULL OR f.project_id = $5)
WHERE p.fiscal_year_id = $2
	AND a.kind = $3
	AND ($4 = false OR a.active)
ORDER BY a.level, a.sort_order, a.code, p.sort_order`
	rows, err := r.db.Query(ctx, query, communeID, fiscalYearID, kind, activeOnly, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cells []GridCell
	for rows.Next() {
		var c GridCell
		if err := rows.Scan(&c.AccountCode, &c.PeriodID, &c.FigureID,
			&c.Amounts.BudgetPrimitif, &c.Amounts.BudgetAdditionnel,
			&c.Amounts.Modifications, &c.Amounts.PrevisionsDefinitives,
			&c.Amounts.OrAdmis, &c.Amounts.Recouvrement, &c.Amounts.ResteARecouvrer,
			&c.Amounts.Engagement, &c.Amounts.MandatAdmis, &c.Amounts.Paiement,
			&c.Amounts.ResteAPayer,
			&c.Validated); err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Figure, error) {
	f, err := scanFigure(r.db.QueryRow(ctx, `SELECT `+figureColumns+` FROM figures WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Figure{}, &shared.NotFoundError{Entity: "figure", ID: id.String()}
		}
		return Figure{}, err
	}
	return f, nil
}

// MarkValidated is idempotent: validating twice keeps the first validator
// and timestamp.
func (r *repository) MarkValidated(ctx context.Context, id uuid.UUID, validatorID int64) error {
	tag, err := r.db.Exec(ctx, `
UPDATE figures
SET validated = true,
	validated_by = COALESCE(validated_by, $2),
	validated_at = COALESCE(validated_at, now()),
	updated_at = now()
WHERE id = $1`, id, validatorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "figure", ID: id.String()}
	}
	return nil
}

// RefreshDerived recomputes the derived columns for every figure of the
// year from the stored raw inputs. Stored derived values are a cache; this
// repairs drift left behind by older import paths.
func (r *repository) RefreshDerived(ctx context.Context, fiscalYearID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `
UPDATE figures f
SET previsions_definitives = round(f.budget_primitif + f.budget_additionnel + f.modifications, 2),
	reste_a_recouvrer = round(f.or_admis - f.recouvrement, 2),
	reste_a_payer = round(f.mandat_admis - f.paiement, 2),
	updated_at = now()
FROM periods p
WHERE p.id = f.period_id
	AND p.fiscal_year_id = $1
	AND (f.previsions_definitives <> round(f.budget_primitif + f.budget_additionnel + f.modifications, 2)
		OR f.reste_a_recouvrer <> round(f.or_admis - f.recouvrement, 2)
		OR f.reste_a_payer <> round(f.mandat_admis - f.paiement, 2))`, fiscalYearID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
