package projects

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tahiry-mg/tahiry/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the project for the given identifier.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Project, error) {
	return s.repo.Get(ctx, id)
}

// ListForCommune returns the projects attached to one commune; a zero
// commune ID lists the whole catalogue.
func (s *Service) ListForCommune(ctx context.Context, communeID int64) ([]Project, error) {
	return s.repo.ListForCommune(ctx, communeID)
}

// Create registers a new mining project.
func (s *Service) Create(ctx context.Context, p Project) (Project, error) {
	if strings.TrimSpace(p.Code) == "" {
		return Project{}, shared.Validationf("code", "is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return Project{}, shared.Validationf("name", "is required")
	}
	if p.CommuneID <= 0 {
		return Project{}, shared.Validationf("commune_id", "is required")
	}
	return s.repo.Create(ctx, p)
}
