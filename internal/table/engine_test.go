package table

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/columns"
	"github.com/tahiry-mg/tahiry/internal/figures"
	"github.com/tahiry-mg/tahiry/internal/fiscal"
)

func recetteArena(t *testing.T) *accounts.Arena {
	t.Helper()
	arena, err := accounts.BuildArena([]accounts.AccountNode{
		{Code: "R000", Name: "Recettes de fonctionnement", Kind: accounts.KindRecette, Section: accounts.SectionFonctionnement, Level: 1, SortOrder: 1, Computed: true, Summable: true, Active: true},
		{Code: "R700", Name: "Recettes fiscales", Kind: accounts.KindRecette, Section: accounts.SectionFonctionnement, Level: 2, ParentCode: "R000", SortOrder: 1, Summable: true, Active: true},
		{Code: "7717", Name: "Ristournes minières", Kind: accounts.KindRecette, Section: accounts.SectionFonctionnement, Level: 3, ParentCode: "R700", SortOrder: 1, Summable: true, Active: true},
		{Code: "7718", Name: "Redevances minières", Kind: accounts.KindRecette, Section: accounts.SectionFonctionnement, Level: 3, ParentCode: "R700", SortOrder: 2, Summable: true, Active: true},
	})
	require.NoError(t, err)
	return arena
}

func quarters(n int) []fiscal.Period {
	periods := make([]fiscal.Period, n)
	for i := range periods {
		periods[i] = fiscal.Period{ID: int64(i + 1), Code: "T" + string(rune('1'+i)), Kind: fiscal.PeriodQuarterly, SortOrder: i + 1}
	}
	return periods
}

func amt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func rowByCode(t *testing.T, rows []Row, code string) Row {
	t.Helper()
	for _, r := range rows {
		if r.Account.Code == code {
			return r
		}
	}
	t.Fatalf("no row for account %s", code)
	return Row{}
}

func TestBuildRowsMiningRoyaltyExample(t *testing.T) {
	arena := recetteArena(t)
	periods := quarters(1)
	cells := []figures.GridCell{
		{AccountCode: "7717", PeriodID: 1, Amounts: figures.Amounts{
			BudgetPrimitif: amt(520_000_000),
			OrAdmis:        amt(515_000_000),
			Recouvrement:   amt(515_000_000),
		}.WithDerived()},
	}

	rows := BuildRows(arena, periods, cells, nil)
	require.Len(t, rows, 4)

	leaf := rowByCode(t, rows, "7717")
	assert.Equal(t, "520000000.00", leaf.Total.PrevisionsDefinitives.StringFixed(2))
	assert.True(t, leaf.Total.ResteARecouvrer.IsZero())
	assert.Equal(t, "99.04", leaf.ExecutionRate.StringFixed(2))
	assert.Equal(t, "-5000000.00", leaf.Variance.StringFixed(2))

	// The computed root carries the same totals up two levels.
	root := rowByCode(t, rows, "R000")
	assert.Equal(t, "515000000.00", root.Total.OrAdmis.StringFixed(2))
	assert.Equal(t, "99.04", root.ExecutionRate.StringFixed(2))
}

func TestBuildRowsComputedIgnoresStoredFigure(t *testing.T) {
	arena := recetteArena(t)
	periods := quarters(1)
	cells := []figures.GridCell{
		{AccountCode: "7717", PeriodID: 1, Amounts: figures.Amounts{OrAdmis: amt(300)}},
		// Stale direct entry on the computed root, must be ignored.
		{AccountCode: "R000", PeriodID: 1, Amounts: figures.Amounts{OrAdmis: amt(999_999)}},
	}

	rows := BuildRows(arena, periods, cells, nil)
	root := rowByCode(t, rows, "R000")
	assert.Equal(t, "300.00", root.Total.OrAdmis.StringFixed(2))
}

func TestBuildRowsSummableParentSumsChildren(t *testing.T) {
	arena := recetteArena(t)
	periods := quarters(2)
	cells := []figures.GridCell{
		{AccountCode: "7717", PeriodID: 1, Amounts: figures.Amounts{OrAdmis: amt(100)}},
		{AccountCode: "7717", PeriodID: 2, Amounts: figures.Amounts{OrAdmis: amt(40)}},
		{AccountCode: "7718", PeriodID: 1, Amounts: figures.Amounts{OrAdmis: amt(25)}},
	}

	rows := BuildRows(arena, periods, cells, nil)
	parent := rowByCode(t, rows, "R700")
	require.Len(t, parent.Cells, 2)
	assert.Equal(t, "125.00", parent.Cells[0].Amounts.OrAdmis.StringFixed(2))
	assert.Equal(t, "40.00", parent.Cells[1].Amounts.OrAdmis.StringFixed(2))
	assert.Equal(t, "165.00", parent.Total.OrAdmis.StringFixed(2))
}

func TestBuildRowsRectangularShape(t *testing.T) {
	arena := recetteArena(t)
	periods := quarters(4)

	rows := BuildRows(arena, periods, nil, nil)
	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.Len(t, row.Cells, 4, "account %s", row.Account.Code)
		for _, cell := range row.Cells {
			assert.True(t, cell.Amounts.IsZero())
			assert.Nil(t, cell.FigureID)
		}
	}
}

func TestBuildRowsZeroPeriods(t *testing.T) {
	arena := recetteArena(t)

	rows := BuildRows(arena, nil, nil, nil)
	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.Empty(t, row.Cells)
		assert.True(t, row.Total.IsZero())
	}
}

func TestBuildRowsAttachesCustomValues(t *testing.T) {
	arena := recetteArena(t)
	periods := quarters(1)
	figureID := uuid.New()
	cells := []figures.GridCell{
		{AccountCode: "7717", PeriodID: 1, FigureID: &figureID, Amounts: figures.Amounts{OrAdmis: amt(10)}},
	}
	custom := map[uuid.UUID]map[string]columns.Value{
		figureID: {"source_document": {Type: columns.TypeText, Text: "quittance 2024-117"}},
	}

	rows := BuildRows(arena, periods, cells, custom)
	leaf := rowByCode(t, rows, "7717")
	require.NotNil(t, leaf.Cells[0].Custom)
	assert.Equal(t, "quittance 2024-117", leaf.Cells[0].Custom["source_document"].Text)

	// Aggregated parents never carry custom values.
	parent := rowByCode(t, rows, "R700")
	assert.Nil(t, parent.Cells[0].Custom)
}

func TestBuildEquilibre(t *testing.T) {
	recettes := []Row{
		{Account: accounts.AccountNode{Code: "R000", Level: 1, Section: accounts.SectionFonctionnement, Kind: accounts.KindRecette},
			Total: figures.Amounts{OrAdmis: amt(1000), Recouvrement: amt(800)}},
		{Account: accounts.AccountNode{Code: "R900", Level: 1, Section: accounts.SectionInvestissement, Kind: accounts.KindRecette},
			Total: figures.Amounts{OrAdmis: amt(400), Recouvrement: amt(100)}},
		// Level 2 rows are already inside their parent's total.
		{Account: accounts.AccountNode{Code: "R700", Level: 2, Section: accounts.SectionFonctionnement, Kind: accounts.KindRecette},
			Total: figures.Amounts{OrAdmis: amt(1000)}},
	}
	depenses := []Row{
		{Account: accounts.AccountNode{Code: "D000", Level: 1, Section: accounts.SectionFonctionnement, Kind: accounts.KindDepense},
			Total: figures.Amounts{MandatAdmis: amt(700), Paiement: amt(650)}},
		{Account: accounts.AccountNode{Code: "D900", Level: 1, Section: accounts.SectionInvestissement, Kind: accounts.KindDepense},
			Total: figures.Amounts{MandatAdmis: amt(500), Paiement: amt(90)}},
	}

	eq := BuildEquilibre(recettes, depenses)

	assert.Equal(t, "1000.00", eq.Fonctionnement.RecettesAdmises.StringFixed(2))
	assert.Equal(t, "300.00", eq.Fonctionnement.SoldeAdmis.StringFixed(2))
	assert.Equal(t, "150.00", eq.Fonctionnement.SoldeRegle.StringFixed(2))

	assert.Equal(t, "-100.00", eq.Investissement.SoldeAdmis.StringFixed(2))
	assert.Equal(t, "10.00", eq.Investissement.SoldeRegle.StringFixed(2))

	assert.Equal(t, "1400.00", eq.Total.RecettesAdmises.StringFixed(2))
	assert.Equal(t, "1200.00", eq.Total.DepensesMandatees.StringFixed(2))
	assert.Equal(t, "200.00", eq.Total.SoldeAdmis.StringFixed(2))
	assert.Equal(t, "160.00", eq.Total.SoldeRegle.StringFixed(2))
}

func TestBuildEquilibreEmptyRows(t *testing.T) {
	eq := BuildEquilibre(nil, nil)
	assert.True(t, eq.Total.SoldeAdmis.IsZero())
	assert.Equal(t, "Total général", eq.Total.Label)
}
