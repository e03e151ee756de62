package columns

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tahiry-mg/tahiry/internal/platform/db"
	"github.com/tahiry-mg/tahiry/internal/shared"
)

type Repository interface {
	ListDefinitions(ctx context.Context, activeOnly bool) ([]Definition, error)
	InsertDefinition(ctx context.Context, d Definition) (Definition, error)
	UpsertValue(ctx context.Context, definitionID int64, figureID uuid.UUID, raw string) error
	RawValuesForFigure(ctx context.Context, figureID uuid.UUID) (map[int64]string, error)
	RawValuesForFigures(ctx context.Context, figureIDs []uuid.UUID) (map[uuid.UUID]map[int64]string, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const definitionColumns = `id, code, name, data_type, default_value, required, visible, editable, sort_order, active, created_at, updated_at`

func (r *repository) ListDefinitions(ctx context.Context, activeOnly bool) ([]Definition, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+definitionColumns+` FROM column_definitions
WHERE ($1 = false OR active)
ORDER BY sort_order, code`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var defs []Definition
	for rows.Next() {
		var d Definition
		if err := rows.Scan(&d.ID, &d.Code, &d.Name, &d.DataType, &d.DefaultValue,
			&d.Required, &d.Visible, &d.Editable, &d.SortOrder, &d.Active,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

func (r *repository) InsertDefinition(ctx context.Context, d Definition) (Definition, error) {
	err := r.db.QueryRow(ctx, `
INSERT INTO column_definitions (code, name, data_type, default_value, required, visible, editable, sort_order, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
RETURNING `+definitionColumns,
		d.Code, d.Name, d.DataType, d.DefaultValue, d.Required, d.Visible, d.Editable, d.SortOrder).
		Scan(&d.ID, &d.Code, &d.Name, &d.DataType, &d.DefaultValue,
			&d.Required, &d.Visible, &d.Editable, &d.SortOrder, &d.Active,
			&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Definition{}, &shared.ConflictError{Entity: "column definition", Key: d.Code}
		}
		return Definition{}, err
	}
	return d, nil
}

// UpsertValue stores at most one value per (definition, figure) pair.
func (r *repository) UpsertValue(ctx context.Context, definitionID int64, figureID uuid.UUID, raw string) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO column_values (definition_id, figure_id, payload)
VALUES ($1, $2, $3)
ON CONFLICT (definition_id, figure_id)
DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		definitionID, figureID, raw)
	return err
}

func (r *repository) RawValuesForFigure(ctx context.Context, figureID uuid.UUID) (map[int64]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT definition_id, payload FROM column_values WHERE figure_id = $1`, figureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	values := make(map[int64]string)
	for rows.Next() {
		var id int64
		var payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		values[id] = payload
	}
	return values, rows.Err()
}

func (r *repository) RawValuesForFigures(ctx context.Context, figureIDs []uuid.UUID) (map[uuid.UUID]map[int64]string, error) {
	if len(figureIDs) == 0 {
		return map[uuid.UUID]map[int64]string{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT figure_id, definition_id, payload FROM column_values WHERE figure_id = ANY($1)`, figureIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	values := make(map[uuid.UUID]map[int64]string)
	for rows.Next() {
		var figureID uuid.UUID
		var definitionID int64
		var payload string
		if err := rows.Scan(&figureID, &definitionID, &payload); err != nil {
			return nil, err
		}
		if values[figureID] == nil {
			values[figureID] = make(map[int64]string)
		}
		values[figureID][definitionID] = payload
	}
	return values, rows.Err()
}
