package projects

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tahiry-mg/tahiry/internal/platform/db"
	"github.com/tahiry-mg/tahiry/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (Project, error)
	ListForCommune(ctx context.Context, communeID int64) ([]Project, error)
	Create(ctx context.Context, p Project) (Project, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const projectColumns = `id, code, name, company, mineral, commune_id, active, created_at, updated_at`

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Company, &p.Mineral, &p.CommuneID, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, &shared.NotFoundError{Entity: "project", ID: id.String()}
		}
		return Project{}, err
	}
	return p, nil
}

func (r *repository) ListForCommune(ctx context.Context, communeID int64) ([]Project, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE ($1 = 0 OR commune_id = $1) ORDER BY name`, communeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, p Project) (Project, error) {
	created, err := scanProject(r.db.QueryRow(ctx, `
INSERT INTO projects (id, code, name, company, mineral, commune_id, active)
VALUES ($1, $2, $3, $4, $5, $6, true)
RETURNING `+projectColumns,
		uuid.New(), p.Code, p.Name, p.Company, p.Mineral, p.CommuneID))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Project{}, &shared.ConflictError{Entity: "project", Key: p.Code}
		}
		return Project{}, err
	}
	return created, nil
}
