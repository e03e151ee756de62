package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tahiry-mg/tahiry/internal/platform/db"
	"github.com/tahiry-mg/tahiry/internal/shared"
)

type Repository interface {
	ListByKind(ctx context.Context, kind Kind, activeOnly bool) ([]AccountNode, error)
	ListAll(ctx context.Context) ([]AccountNode, error)
	GetByCode(ctx context.Context, code string) (AccountNode, error)
	Insert(ctx context.Context, node AccountNode) (AccountNode, error)
	SetActive(ctx context.Context, code string, active bool) error
	ListCategories(ctx context.Context) ([]CategoryGroup, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const nodeColumns = `id, code, name, kind, section, level, COALESCE(parent_code, ''), sort_order, computed, summable, active, created_at, updated_at`

func scanNode(row pgx.Row) (AccountNode, error) {
	var n AccountNode
	err := row.Scan(&n.ID, &n.Code, &n.Name, &n.Kind, &n.Section, &n.Level, &n.ParentCode,
		&n.SortOrder, &n.Computed, &n.Summable, &n.Active, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func (r *repository) collect(ctx context.Context, query string, args ...any) ([]AccountNode, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var nodes []AccountNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (r *repository) ListByKind(ctx context.Context, kind Kind, activeOnly bool) ([]AccountNode, error) {
	return r.collect(ctx, `
SELECT `+nodeColumns+` FROM account_nodes
WHERE kind = $1 AND ($2 = false OR active)
ORDER BY level, sort_order, code`, kind, activeOnly)
}

func (r *repository) ListAll(ctx context.Context) ([]AccountNode, error) {
	return r.collect(ctx, `SELECT `+nodeColumns+` FROM account_nodes ORDER BY kind, level, sort_order, code`)
}

func (r *repository) GetByCode(ctx context.Context, code string) (AccountNode, error) {
	n, err := scanNode(r.db.QueryRow(ctx, `SELECT `+nodeColumns+` FROM account_nodes WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountNode{}, &shared.NotFoundError{Entity: "account", ID: code}
		}
		return AccountNode{}, err
	}
	return n, nil
}

func (r *repository) Insert(ctx context.Context, node AccountNode) (AccountNode, error) {
	created, err := scanNode(r.db.QueryRow(ctx, `
INSERT INTO account_nodes (code, name, kind, section, level, parent_code, sort_order, computed, summable, active)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, true)
RETURNING `+nodeColumns,
		node.Code, node.Name, node.Kind, node.Section, node.Level, node.ParentCode,
		node.SortOrder, node.Computed, node.Summable))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return AccountNode{}, &shared.ConflictError{Entity: "account", Key: node.Code}
		}
		return AccountNode{}, err
	}
	return created, nil
}

func (r *repository) SetActive(ctx context.Context, code string, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE account_nodes SET active = $2, updated_at = now() WHERE code = $1`, code, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "account", ID: code}
	}
	return nil
}

func (r *repository) ListCategories(ctx context.Context) ([]CategoryGroup, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, code, name, sort_order, created_at, updated_at FROM category_groups ORDER BY sort_order, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []CategoryGroup
	for rows.Next() {
		var g CategoryGroup
		if err := rows.Scan(&g.ID, &g.Code, &g.Name, &g.SortOrder, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
