package table

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/google/uuid"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/columns"
	"github.com/tahiry-mg/tahiry/internal/figures"
	"github.com/tahiry-mg/tahiry/internal/fiscal"
	"github.com/tahiry-mg/tahiry/internal/geography"
)

// AccountSource abstracts the chart-of-accounts lookups the engine needs.
type AccountSource interface {
	Subtree(ctx context.Context, kind accounts.Kind, activeOnly bool) (*accounts.Arena, error)
}

// FigureSource abstracts the fact-table grid query.
type FigureSource interface {
	Grid(ctx context.Context, communeID, fiscalYearID int64, kind accounts.Kind, projectID *uuid.UUID) ([]figures.GridCell, error)
}

// ColumnSource abstracts the dynamic-column snapshot and payload loads.
type ColumnSource interface {
	LoadSnapshot(ctx context.Context) (*columns.Snapshot, error)
	RawValuesForFigures(ctx context.Context, figureIDs []uuid.UUID) (map[uuid.UUID]map[int64]string, error)
}

// CommuneSource resolves the commune header metadata.
type CommuneSource interface {
	ResolveCommune(ctx context.Context, code string) (geography.CommuneDetails, error)
}

// YearSource resolves fiscal years and their period catalogue.
type YearSource interface {
	ResolveYear(ctx context.Context, year int) (fiscal.FiscalYear, error)
	PeriodsForYear(ctx context.Context, year int) ([]fiscal.Period, error)
}

// Options narrows a render request to one movement kind or one mining
// project, and toggles the dynamic-column merge.
type Options struct {
	Kind          *accounts.Kind
	ProjectID     *uuid.UUID
	IncludeCustom bool
}

// Service renders financial tables for one (commune, year) pair. Every
// render rebuilds the table from stored raw inputs; nothing derived is
// trusted from storage. A short-lived Redis cache in front absorbs repeat
// reads and is version-bumped on every figure mutation.
type Service struct {
	geo      CommuneSource
	years    YearSource
	accounts AccountSource
	figures  FigureSource
	columns  ColumnSource
	cache    *Cache
	flight   singleflight.Group
}

func NewService(geo CommuneSource, years YearSource, accountSource AccountSource, figureSource FigureSource, columnSource ColumnSource, cache *Cache) *Service {
	return &Service{geo: geo, years: years, accounts: accountSource, figures: figureSource, columns: columnSource, cache: cache}
}

// Render builds the full RenderedTable for a commune and fiscal year,
// serving from cache when a fresh copy exists. Renders that merge dynamic
// column values bypass the cache; their typed values do not survive a JSON
// round trip.
func (s *Service) Render(ctx context.Context, communeCode string, year int, opts Options) (*RenderedTable, error) {
	if opts.IncludeCustom {
		return s.build(ctx, communeCode, year, opts)
	}
	key, err := s.cache.BuildKey(ctx, renderKey(communeCode, year, opts)...)
	if err != nil {
		return nil, err
	}
	// Collapse concurrent identical renders into one build.
	resultCh := s.flight.DoChan(key, func() (any, error) {
		var rendered RenderedTable
		err := s.cache.FetchJSON(ctx, key, &rendered, func(ctx context.Context) (any, error) {
			return s.build(ctx, communeCode, year, opts)
		})
		if err != nil {
			return nil, err
		}
		return &rendered, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultCh:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*RenderedTable), nil
	}
}

// Invalidate drops every cached table after a mutation.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) build(ctx context.Context, communeCode string, year int, opts Options) (*RenderedTable, error) {
	commune, err := s.geo.ResolveCommune(ctx, communeCode)
	if err != nil {
		return nil, err
	}
	fy, err := s.years.ResolveYear(ctx, year)
	if err != nil {
		return nil, err
	}
	periods, err := s.years.PeriodsForYear(ctx, year)
	if err != nil {
		return nil, err
	}

	result := &RenderedTable{
		Commune:     commune,
		Year:        fy,
		Periods:     periods,
		GeneratedAt: time.Now().UTC(),
	}

	kinds := []accounts.Kind{accounts.KindRecette, accounts.KindDepense}
	if opts.Kind != nil {
		kinds = []accounts.Kind{*opts.Kind}
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		g.Go(func() error {
			rows, err := s.renderKind(gctx, commune.ID, fy.ID, kind, periods, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			switch kind {
			case accounts.KindDepense:
				result.Depenses = rows
			default:
				result.Recettes = rows
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	result.Equilibre = BuildEquilibre(result.Recettes, result.Depenses)
	return result, nil
}

func (s *Service) renderKind(ctx context.Context, communeID, fiscalYearID int64, kind accounts.Kind, periods []fiscal.Period, opts Options) ([]Row, error) {
	arena, err := s.accounts.Subtree(ctx, kind, true)
	if err != nil {
		return nil, err
	}
	cells, err := s.figures.Grid(ctx, communeID, fiscalYearID, kind, opts.ProjectID)
	if err != nil {
		return nil, err
	}
	var custom map[uuid.UUID]map[string]columns.Value
	if opts.IncludeCustom {
		custom, err = s.loadCustom(ctx, cells)
		if err != nil {
			return nil, err
		}
	}
	return BuildRows(arena, periods, cells, custom), nil
}

func (s *Service) loadCustom(ctx context.Context, cells []figures.GridCell) (map[uuid.UUID]map[string]columns.Value, error) {
	snapshot, err := s.columns.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(cells))
	for _, c := range cells {
		if c.FigureID != nil {
			ids = append(ids, *c.FigureID)
		}
	}
	raw, err := s.columns.RawValuesForFigures(ctx, ids)
	if err != nil {
		return nil, err
	}
	resolved := make(map[uuid.UUID]map[string]columns.Value, len(raw))
	for figureID, payloads := range raw {
		values, err := columns.ResolveValues(snapshot, payloads)
		if err != nil {
			return nil, err
		}
		resolved[figureID] = values
	}
	return resolved, nil
}
