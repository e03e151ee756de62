package geography

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tahiry-mg/tahiry/internal/shared"
)

type Repository interface {
	ResolveCommune(ctx context.Context, code string) (CommuneDetails, error)
	ListCommunes(ctx context.Context, regionCode string) ([]Commune, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ResolveCommune(ctx context.Context, code string) (CommuneDetails, error) {
	const query = `
SELECT c.id, c.code, c.name, c.region_id, c.urban, c.created_at, c.updated_at,
       rg.name, p.name
FROM communes c
JOIN regions rg ON rg.id = c.region_id
JOIN provinces p ON p.id = rg.province_id
WHERE c.code = $1`
	var d CommuneDetails
	err := r.db.QueryRow(ctx, query, code).Scan(
		&d.ID, &d.Code, &d.Name, &d.RegionID, &d.Urban, &d.CreatedAt, &d.UpdatedAt,
		&d.RegionName, &d.ProvinceName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CommuneDetails{}, &shared.NotFoundError{Entity: "commune", ID: code}
		}
		return CommuneDetails{}, err
	}
	return d, nil
}

func (r *repository) ListCommunes(ctx context.Context, regionCode string) ([]Commune, error) {
	const query = `
SELECT c.id, c.code, c.name, c.region_id, c.urban, c.created_at, c.updated_at
FROM communes c
JOIN regions rg ON rg.id = c.region_id
WHERE ($1 = '' OR rg.code = $1)
ORDER BY c.name`
	rows, err := r.db.Query(ctx, query, regionCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var communes []Commune
	for rows.Next() {
		var c Commune
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.RegionID, &c.Urban, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		communes = append(communes, c)
	}
	return communes, rows.Err()
}
