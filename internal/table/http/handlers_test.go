package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/columns"
	"github.com/tahiry-mg/tahiry/internal/figures"
	"github.com/tahiry-mg/tahiry/internal/fiscal"
	"github.com/tahiry-mg/tahiry/internal/geography"
	"github.com/tahiry-mg/tahiry/internal/shared"
	"github.com/tahiry-mg/tahiry/internal/table"
	"github.com/tahiry-mg/tahiry/internal/table/importer"
)

type fixtureStore struct {
	commune geography.CommuneDetails
	year    fiscal.FiscalYear
	periods []fiscal.Period
	nodes   map[accounts.Kind][]accounts.AccountNode
	figures map[uuid.UUID]figures.Figure
	defs    []columns.Definition
	values  map[uuid.UUID]map[int64]string
}

func newFixtureStore() *fixtureStore {
	return &fixtureStore{
		commune: geography.CommuneDetails{
			Commune:      geography.Commune{ID: 1, Code: "ANT-ANA-001", Name: "Antananarivo Renivohitra"},
			RegionName:   "Analamanga",
			ProvinceName: "Antananarivo",
		},
		year:    fiscal.FiscalYear{ID: 1, Year: 2024, Label: "Exercice 2024"},
		periods: []fiscal.Period{{ID: 1, Code: "T1", Kind: fiscal.PeriodQuarterly, SortOrder: 1}},
		nodes: map[accounts.Kind][]accounts.AccountNode{
			accounts.KindRecette: {
				{Code: "R000", Name: "Recettes", Kind: accounts.KindRecette, Section: accounts.SectionFonctionnement, Level: 1, Computed: true, Summable: true, Active: true},
				{Code: "7717", Name: "Ristournes minières", Kind: accounts.KindRecette, Section: accounts.SectionFonctionnement, Level: 2, ParentCode: "R000", Summable: true, Active: true},
			},
			accounts.KindDepense: {
				{Code: "D000", Name: "Dépenses", Kind: accounts.KindDepense, Section: accounts.SectionFonctionnement, Level: 1, Computed: true, Summable: true, Active: true},
			},
		},
		figures: make(map[uuid.UUID]figures.Figure),
		defs: []columns.Definition{
			{ID: 1, Code: "source_document", Name: "Document source", DataType: columns.TypeText, Editable: true, Active: true},
		},
		values: make(map[uuid.UUID]map[int64]string),
	}
}

// geography.Repository

func (s *fixtureStore) ResolveCommune(ctx context.Context, code string) (geography.CommuneDetails, error) {
	if code != s.commune.Code {
		return geography.CommuneDetails{}, &shared.NotFoundError{Entity: "commune", ID: code}
	}
	return s.commune, nil
}

func (s *fixtureStore) ListCommunes(ctx context.Context, regionCode string) ([]geography.Commune, error) {
	return []geography.Commune{s.commune.Commune}, nil
}

// fiscal.Repository

func (s *fixtureStore) GetYear(ctx context.Context, year int) (fiscal.FiscalYear, error) {
	if year != s.year.Year {
		return fiscal.FiscalYear{}, &shared.NotFoundError{Entity: "fiscal year", ID: "?"}
	}
	return s.year, nil
}

func (s *fixtureStore) CreateYear(ctx context.Context, fy fiscal.FiscalYear) (fiscal.FiscalYear, error) {
	return fy, nil
}

func (s *fixtureStore) SetClosed(ctx context.Context, year int, closed bool) error {
	return nil
}

func (s *fixtureStore) PeriodsForYear(ctx context.Context, fiscalYearID int64) ([]fiscal.Period, error) {
	return s.periods, nil
}

func (s *fixtureStore) CreatePeriod(ctx context.Context, p fiscal.Period) (fiscal.Period, error) {
	return p, nil
}

func (s *fixtureStore) GetPeriod(ctx context.Context, fiscalYearID int64, code string) (fiscal.Period, error) {
	for _, p := range s.periods {
		if p.Code == code {
			return p, nil
		}
	}
	return fiscal.Period{}, &shared.NotFoundError{Entity: "period", ID: code}
}

// accounts.Repository

func (s *fixtureStore) ListByKind(ctx context.Context, kind accounts.Kind, activeOnly bool) ([]accounts.AccountNode, error) {
	return s.nodes[kind], nil
}

func (s *fixtureStore) ListAll(ctx context.Context) ([]accounts.AccountNode, error) {
	var all []accounts.AccountNode
	for _, nodes := range s.nodes {
		all = append(all, nodes...)
	}
	return all, nil
}

func (s *fixtureStore) GetByCode(ctx context.Context, code string) (accounts.AccountNode, error) {
	for _, nodes := range s.nodes {
		for _, n := range nodes {
			if n.Code == code {
				return n, nil
			}
		}
	}
	return accounts.AccountNode{}, &shared.NotFoundError{Entity: "account", ID: code}
}

func (s *fixtureStore) Insert(ctx context.Context, node accounts.AccountNode) (accounts.AccountNode, error) {
	s.nodes[node.Kind] = append(s.nodes[node.Kind], node)
	return node, nil
}

func (s *fixtureStore) SetActive(ctx context.Context, code string, active bool) error {
	return nil
}

func (s *fixtureStore) ListCategories(ctx context.Context) ([]accounts.CategoryGroup, error) {
	return nil, nil
}

// figures.Repository

func (s *fixtureStore) Upsert(ctx context.Context, f figures.Figure) (figures.Figure, error) {
	if s.year.Closed {
		return figures.Figure{}, &shared.InvalidStateError{Reason: "fiscal year " + strconv.Itoa(s.year.Year) + " is closed"}
	}
	if _, err := s.GetByCode(ctx, f.AccountCode); err != nil {
		return figures.Figure{}, err
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	s.figures[f.ID] = f
	return f, nil
}

func (s *fixtureStore) QueryGrid(ctx context.Context, communeID, fiscalYearID int64, kind accounts.Kind, activeOnly bool, projectID *uuid.UUID) ([]figures.GridCell, error) {
	var cells []figures.GridCell
	for id, f := range s.figures {
		node, err := s.GetByCode(ctx, f.AccountCode)
		if err != nil || node.Kind != kind {
			continue
		}
		figureID := id
		cells = append(cells, figures.GridCell{
			AccountCode: f.AccountCode,
			PeriodID:    f.PeriodID,
			FigureID:    &figureID,
			Amounts:     f.Amounts,
			Validated:   f.Validated,
		})
	}
	return cells, nil
}

func (s *fixtureStore) Get(ctx context.Context, id uuid.UUID) (figures.Figure, error) {
	f, ok := s.figures[id]
	if !ok {
		return figures.Figure{}, &shared.NotFoundError{Entity: "figure", ID: id.String()}
	}
	return f, nil
}

func (s *fixtureStore) MarkValidated(ctx context.Context, id uuid.UUID, validatorID int64) error {
	f, ok := s.figures[id]
	if !ok {
		return &shared.NotFoundError{Entity: "figure", ID: id.String()}
	}
	f.Validated = true
	s.figures[id] = f
	return nil
}

func (s *fixtureStore) RefreshDerived(ctx context.Context, fiscalYearID int64) (int64, error) {
	return 0, nil
}

// columns.Repository

func (s *fixtureStore) ListDefinitions(ctx context.Context, activeOnly bool) ([]columns.Definition, error) {
	return s.defs, nil
}

func (s *fixtureStore) InsertDefinition(ctx context.Context, d columns.Definition) (columns.Definition, error) {
	return d, nil
}

func (s *fixtureStore) UpsertValue(ctx context.Context, definitionID int64, figureID uuid.UUID, raw string) error {
	if s.values[figureID] == nil {
		s.values[figureID] = make(map[int64]string)
	}
	s.values[figureID][definitionID] = raw
	return nil
}

func (s *fixtureStore) RawValuesForFigure(ctx context.Context, figureID uuid.UUID) (map[int64]string, error) {
	return s.values[figureID], nil
}

func (s *fixtureStore) RawValuesForFigures(ctx context.Context, figureIDs []uuid.UUID) (map[uuid.UUID]map[int64]string, error) {
	out := make(map[uuid.UUID]map[int64]string)
	for _, id := range figureIDs {
		if v, ok := s.values[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

type fakePDF struct {
	err error
}

func (f *fakePDF) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 fake"), nil
}

func newTestRouter(t *testing.T, store *fixtureStore, pdf PDFRenderClient) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	geoService := geography.NewService(store)
	fiscalService := fiscal.NewService(store)
	accountService := accounts.NewService(store)
	figureService := figures.NewService(store)
	columnService := columns.NewService(store)
	tableService := table.NewService(geoService, fiscalService, accountService, figureService, columnService, nil)
	importService := importer.NewService(accountService, figureService)

	handler := NewHandler(logger, tableService, figureService, geoService, fiscalService, columnService, importService, pdf)
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func seedFigure(t *testing.T, store *fixtureStore) figures.Figure {
	t.Helper()
	f, err := store.Upsert(context.Background(), figures.Figure{
		CommuneID:   1,
		AccountCode: "7717",
		PeriodID:    1,
		Amounts: figures.Amounts{
			BudgetPrimitif: decimal.NewFromInt(520_000_000),
			OrAdmis:        decimal.NewFromInt(515_000_000),
			Recouvrement:   decimal.NewFromInt(515_000_000),
		}.WithDerived(),
	})
	require.NoError(t, err)
	return f
}

func TestGetTable(t *testing.T) {
	store := newFixtureStore()
	seedFigure(t, store)
	router := newTestRouter(t, store, nil)

	req := httptest.NewRequest(http.MethodGet, "/communes/ANT-ANA-001/exercices/2024/table", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var rendered table.RenderedTable
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rendered))
	assert.Equal(t, "ANT-ANA-001", rendered.Commune.Code)
	require.Len(t, rendered.Recettes, 2)
	assert.Equal(t, "515000000", rendered.Recettes[0].Total.OrAdmis.String())
}

func TestGetTableUnknownCommune(t *testing.T) {
	router := newTestRouter(t, newFixtureStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/communes/XXX-000/exercices/2024/table", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTableRejectsSoldeKind(t *testing.T) {
	router := newTestRouter(t, newFixtureStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/communes/ANT-ANA-001/exercices/2024/table?kind=solde", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertFigure(t *testing.T) {
	store := newFixtureStore()
	router := newTestRouter(t, store, nil)

	body := `{"account_code":"7717","period_code":"T1","budget_primitif":"520000000","or_admis":"515000000","recouvrement":"515000000"}`
	req := httptest.NewRequest(http.MethodPut, "/communes/ANT-ANA-001/exercices/2024/figures", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp figureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "7717", resp.AccountCode)
	assert.Equal(t, "520000000", resp.Amounts.PrevisionsDefinitives.String())
	assert.True(t, resp.Amounts.ResteARecouvrer.IsZero())
	assert.Len(t, store.figures, 1)
}

func TestUpsertFigureUnknownAccount(t *testing.T) {
	store := newFixtureStore()
	router := newTestRouter(t, store, nil)

	body := `{"account_code":"NOPE","period_code":"T1","budget_primitif":"100"}`
	req := httptest.NewRequest(http.MethodPut, "/communes/ANT-ANA-001/exercices/2024/figures", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOPE")
	assert.Empty(t, store.figures)
}

func TestUpsertFigureRejectsPeriodOfAnotherYear(t *testing.T) {
	store := newFixtureStore()
	router := newTestRouter(t, store, nil)

	body := `{"account_code":"7717","period_code":"T9","budget_primitif":"100"}`
	req := httptest.NewRequest(http.MethodPut, "/communes/ANT-ANA-001/exercices/2024/figures", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "T9")
	assert.Empty(t, store.figures)
}

func TestUpsertFigureRejectsClosedYear(t *testing.T) {
	store := newFixtureStore()
	store.year.Closed = true
	router := newTestRouter(t, store, nil)

	body := `{"account_code":"7717","period_code":"T1","budget_primitif":"100"}`
	req := httptest.NewRequest(http.MethodPut, "/communes/ANT-ANA-001/exercices/2024/figures", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "closed")
	assert.Empty(t, store.figures)
}

func TestUpsertFigureRejectsNegativeAmount(t *testing.T) {
	router := newTestRouter(t, newFixtureStore(), nil)

	body := `{"account_code":"7717","period_code":"T1","recouvrement":"-12"}`
	req := httptest.NewRequest(http.MethodPut, "/communes/ANT-ANA-001/exercices/2024/figures", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "recouvrement")
}

func TestUpsertFigureRejectsMissingAccountCode(t *testing.T) {
	router := newTestRouter(t, newFixtureStore(), nil)

	req := httptest.NewRequest(http.MethodPut, "/communes/ANT-ANA-001/exercices/2024/figures", strings.NewReader(`{"period_code":"T1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateFigure(t *testing.T) {
	store := newFixtureStore()
	f := seedFigure(t, store)
	router := newTestRouter(t, store, nil)

	req := httptest.NewRequest(http.MethodPost, "/figures/"+f.ID.String()+"/validate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, store.figures[f.ID].Validated)
}

func TestSetColumnValue(t *testing.T) {
	store := newFixtureStore()
	f := seedFigure(t, store)
	router := newTestRouter(t, store, nil)

	req := httptest.NewRequest(http.MethodPost, "/figures/"+f.ID.String()+"/columns/source_document",
		strings.NewReader(`{"value":"quittance 2024-117"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "quittance 2024-117", store.values[f.ID][1])
}

func TestSetColumnValueUnknownColumn(t *testing.T) {
	store := newFixtureStore()
	f := seedFigure(t, store)
	router := newTestRouter(t, store, nil)

	req := httptest.NewRequest(http.MethodPost, "/figures/"+f.ID.String()+"/columns/inconnu",
		strings.NewReader(`{"value":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportCSV(t *testing.T) {
	store := newFixtureStore()
	seedFigure(t, store)
	router := newTestRouter(t, store, nil)

	req := httptest.NewRequest(http.MethodGet, "/communes/ANT-ANA-001/exercices/2024/export.csv", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tableau_ANT-ANA-001_2024.csv")
	assert.Contains(t, rec.Body.String(), "7717")
}

func TestExportWorkbook(t *testing.T) {
	store := newFixtureStore()
	seedFigure(t, store)
	router := newTestRouter(t, store, nil)

	req := httptest.NewRequest(http.MethodGet, "/communes/ANT-ANA-001/exercices/2024/export.xlsx", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	// XLSX files are zip archives.
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestExportPDF(t *testing.T) {
	store := newFixtureStore()
	seedFigure(t, store)
	router := newTestRouter(t, store, &fakePDF{})

	req := httptest.NewRequest(http.MethodGet, "/communes/ANT-ANA-001/exercices/2024/export.pdf", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
}

func TestExportPDFUnavailableWithoutRenderer(t *testing.T) {
	store := newFixtureStore()
	seedFigure(t, store)
	router := newTestRouter(t, store, nil)

	req := httptest.NewRequest(http.MethodGet, "/communes/ANT-ANA-001/exercices/2024/export.pdf", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExportPDFRendererFailure(t *testing.T) {
	store := newFixtureStore()
	seedFigure(t, store)
	router := newTestRouter(t, store, &fakePDF{err: errors.New("gotenberg down")})

	req := httptest.NewRequest(http.MethodGet, "/communes/ANT-ANA-001/exercices/2024/export.pdf", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func importWorkbookBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName(f.GetSheetName(0), "Recettes")
	leaf := []any{"7717", "Ristournes minières", 520000000, 0, 0, 520000000, 515000000, 515000000}
	require.NoError(t, f.SetSheetRow("Recettes", "A4", &leaf))
	rollup := []any{"R000", "Recettes", 515000000}
	require.NoError(t, f.SetSheetRow("Recettes", "A5", &rollup))
	unknown := []any{"9999", "Inconnu", 1}
	require.NoError(t, f.SetSheetRow("Recettes", "A6", &unknown))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestImportWorkbook(t *testing.T) {
	store := newFixtureStore()
	router := newTestRouter(t, store, nil)

	req := httptest.NewRequest(http.MethodPost, "/communes/ANT-ANA-001/exercices/2024/import.xlsx?period=T1", importWorkbookBody(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report importer.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "9999", report.Errors[0].Code)

	require.Len(t, store.figures, 1)
	for _, f := range store.figures {
		assert.Equal(t, "7717", f.AccountCode)
		assert.Equal(t, "520000000", f.Amounts.PrevisionsDefinitives.String())
	}
}

func TestImportWorkbookUnknownPeriod(t *testing.T) {
	store := newFixtureStore()
	router := newTestRouter(t, store, nil)

	req := httptest.NewRequest(http.MethodPost, "/communes/ANT-ANA-001/exercices/2024/import.xlsx?period=T9", importWorkbookBody(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, store.figures)
}

func TestImportWorkbookRequiresPeriod(t *testing.T) {
	router := newTestRouter(t, newFixtureStore(), nil)

	req := httptest.NewRequest(http.MethodPost, "/communes/ANT-ANA-001/exercices/2024/import.xlsx", importWorkbookBody(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "period")
}
