package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/figures"
	"github.com/tahiry-mg/tahiry/internal/fiscal"
	"github.com/tahiry-mg/tahiry/internal/geography"
	"github.com/tahiry-mg/tahiry/internal/shared"
	"github.com/tahiry-mg/tahiry/internal/table"
)

func amt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func sampleTable() *table.RenderedTable {
	recetteRoot := table.Row{
		Account: accounts.AccountNode{Code: "R000", Name: "Recettes de fonctionnement", Kind: accounts.KindRecette, Section: accounts.SectionFonctionnement, Level: 1, Computed: true},
		Total: figures.Amounts{
			BudgetPrimitif: amt(520_000_000),
			OrAdmis:        amt(515_000_000),
			Recouvrement:   amt(515_000_000),
		}.WithDerived(),
	}
	recetteLeaf := table.Row{
		Account: accounts.AccountNode{Code: "7717", Name: "Ristournes minières", Kind: accounts.KindRecette, Section: accounts.SectionFonctionnement, Level: 3},
		Total:   recetteRoot.Total,
	}
	recetteRoot.ExecutionRate = recetteRoot.Total.ExecutionRate(accounts.KindRecette)
	recetteLeaf.ExecutionRate = recetteRoot.ExecutionRate

	depenseRoot := table.Row{
		Account: accounts.AccountNode{Code: "D000", Name: "Dépenses de fonctionnement", Kind: accounts.KindDepense, Section: accounts.SectionFonctionnement, Level: 1, Computed: true},
		Total: figures.Amounts{
			BudgetPrimitif: amt(480_000_000),
			MandatAdmis:    amt(300_000_000),
			Paiement:       amt(250_000_000),
		}.WithDerived(),
	}

	rendered := &table.RenderedTable{
		Commune: geography.CommuneDetails{
			Commune:      geography.Commune{Code: "ANT-ANA-001", Name: "Antananarivo Renivohitra"},
			RegionName:   "Analamanga",
			ProvinceName: "Antananarivo",
		},
		Year:     fiscal.FiscalYear{Year: 2024, Label: "Exercice 2024"},
		Periods:  []fiscal.Period{{ID: 1, Code: "T1", Kind: fiscal.PeriodQuarterly}},
		Recettes: []table.Row{recetteRoot, recetteLeaf},
		Depenses: []table.Row{depenseRoot},
	}
	rendered.Equilibre = table.BuildEquilibre(rendered.Recettes, rendered.Depenses)
	return rendered
}

func TestWorkbookRoundTrip(t *testing.T) {
	rendered := sampleTable()

	raw, err := Workbook(rendered)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Recettes", "Dépenses", "Équilibre"}, f.GetSheetList())

	title, err := f.GetCellValue("Recettes", "A1")
	require.NoError(t, err)
	assert.Contains(t, title, "Antananarivo Renivohitra")
	assert.Contains(t, title, "2024")

	header, err := f.GetCellValue("Recettes", "G3")
	require.NoError(t, err)
	assert.Equal(t, "OR Admis", header)

	code, err := f.GetCellValue("Recettes", "A4")
	require.NoError(t, err)
	assert.Equal(t, "R000", code)

	leafName, err := f.GetCellValue("Recettes", "B5")
	require.NoError(t, err)
	assert.Equal(t, "        Ristournes minières", leafName)

	mandat, err := f.GetCellValue("Dépenses", "H4")
	require.NoError(t, err)
	assert.Equal(t, "300,000,000.00", mandat)

	totalLabel, err := f.GetCellValue("Équilibre", "A6")
	require.NoError(t, err)
	assert.Equal(t, "Total général", totalLabel)
}

func TestWorkbookRejectsEmptyTable(t *testing.T) {
	_, err := Workbook(&table.RenderedTable{})
	var serialization *shared.SerializationError
	require.ErrorAs(t, err, &serialization)
}

func TestWriteCSV(t *testing.T) {
	rendered := sampleTable()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rendered))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Commune: Antananarivo Renivohitra"))
	assert.Contains(t, out, "# Exercice: 2024")
	assert.Contains(t, out, "7717")
	assert.Contains(t, out, "515000000.00")
	assert.Contains(t, out, "Total général")
}

func TestWriteCSVRejectsEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, &table.RenderedTable{})
	var serialization *shared.SerializationError
	require.ErrorAs(t, err, &serialization)
}

func TestHTMLDocument(t *testing.T) {
	rendered := sampleTable()

	doc, err := HTML(rendered)
	require.NoError(t, err)

	assert.Contains(t, doc, "<!DOCTYPE html>")
	assert.Contains(t, doc, "Antananarivo Renivohitra")
	assert.Contains(t, doc, "Ristournes minières")
	// French digit grouping uses non-breaking spaces.
	assert.Contains(t, doc, formatFrench(amt(515_000_000)))
	assert.Contains(t, doc, "Équilibre")
}

func TestHTMLRejectsEmptyTable(t *testing.T) {
	_, err := HTML(&table.RenderedTable{})
	var serialization *shared.SerializationError
	require.ErrorAs(t, err, &serialization)
}
