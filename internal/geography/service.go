package geography

import "context"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ResolveCommune(ctx context.Context, code string) (CommuneDetails, error) {
	return s.repo.ResolveCommune(ctx, code)
}

func (s *Service) ListCommunes(ctx context.Context, regionCode string) ([]Commune, error) {
	return s.repo.ListCommunes(ctx, regionCode)
}
