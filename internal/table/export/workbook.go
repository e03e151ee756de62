// Package export serializes rendered financial tables into downloadable
// artifacts: Excel workbooks, CSV streams and printable HTML for PDF
// conversion.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/shared"
	"github.com/tahiry-mg/tahiry/internal/table"
)

const (
	sheetRecettes  = "Recettes"
	sheetDepenses  = "Dépenses"
	sheetEquilibre = "Équilibre"

	amountFormat = "#,##0.00"
	rateFormat   = "0.00"
)

var recetteHeader = []string{
	"Code", "Intitulé",
	"Budget Primitif", "Budget Additionnel", "Modifications", "Prévisions Définitives",
	"OR Admis", "Recouvrement", "Reste à Recouvrer", "Taux Exécution (%)",
}

var depenseHeader = []string{
	"Code", "Intitulé",
	"Budget Primitif", "Budget Additionnel", "Modifications", "Prévisions Définitives",
	"Engagement", "Mandat Admis", "Paiement", "Reste à Payer", "Taux Exécution (%)",
}

var equilibreHeader = []string{
	"Section", "Recettes Admises", "Recouvrements", "Dépenses Mandatées", "Paiements",
	"Solde Admis", "Solde Réglé",
}

// Workbook renders the table into a three-sheet Excel workbook. Row totals
// over all period columns are exported; the per-period breakdown stays in
// the JSON representation.
func Workbook(t *table.RenderedTable) ([]byte, error) {
	if t.IsEmpty() {
		return nil, &shared.SerializationError{Reason: "nothing to export: no account rows and no periods"}
	}

	f := excelize.NewFile()
	defer f.Close()

	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(amountFormat)})
	if err != nil {
		return nil, &shared.SerializationError{Reason: "workbook style: " + err.Error()}
	}
	rateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(rateFormat)})
	if err != nil {
		return nil, &shared.SerializationError{Reason: "workbook style: " + err.Error()}
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDE8F0"}},
	})
	if err != nil {
		return nil, &shared.SerializationError{Reason: "workbook style: " + err.Error()}
	}
	groupStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, &shared.SerializationError{Reason: "workbook style: " + err.Error()}
	}

	styles := sheetStyles{amount: amountStyle, rate: rateStyle, header: headerStyle, group: groupStyle}

	f.SetSheetName(f.GetSheetName(0), sheetRecettes)
	if err := writeKindSheet(f, sheetRecettes, accounts.KindRecette, t, t.Recettes, styles); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetDepenses); err != nil {
		return nil, &shared.SerializationError{Reason: "workbook sheet: " + err.Error()}
	}
	if err := writeKindSheet(f, sheetDepenses, accounts.KindDepense, t, t.Depenses, styles); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetEquilibre); err != nil {
		return nil, &shared.SerializationError{Reason: "workbook sheet: " + err.Error()}
	}
	if err := writeEquilibreSheet(f, t, styles); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, &shared.SerializationError{Reason: "workbook write: " + err.Error()}
	}
	return buf.Bytes(), nil
}

type sheetStyles struct {
	amount int
	rate   int
	header int
	group  int
}

func writeKindSheet(f *excelize.File, sheet string, kind accounts.Kind, t *table.RenderedTable, rows []table.Row, styles sheetStyles) error {
	title := fmt.Sprintf("%s - Exercice %d - %s", t.Commune.Name, t.Year.Year, sheet)
	if err := setRow(f, sheet, 1, []any{title}); err != nil {
		return err
	}
	header := recetteHeader
	if kind == accounts.KindDepense {
		header = depenseHeader
	}
	headerCells := make([]any, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := setRow(f, sheet, 3, headerCells); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(sheet, "A3", lastCol+"3", styles.header); err != nil {
		return styleErr(err)
	}

	rowIdx := 4
	for _, row := range rows {
		indent := strings.Repeat("    ", row.Account.Level-1)
		cells := []any{
			row.Account.Code,
			indent + row.Account.Name,
			amountCell(row.Total.BudgetPrimitif),
			amountCell(row.Total.BudgetAdditionnel),
			amountCell(row.Total.Modifications),
			amountCell(row.Total.PrevisionsDefinitives),
		}
		if kind == accounts.KindDepense {
			cells = append(cells,
				amountCell(row.Total.Engagement),
				amountCell(row.Total.MandatAdmis),
				amountCell(row.Total.Paiement),
				amountCell(row.Total.ResteAPayer),
			)
		} else {
			cells = append(cells,
				amountCell(row.Total.OrAdmis),
				amountCell(row.Total.Recouvrement),
				amountCell(row.Total.ResteARecouvrer),
			)
		}
		cells = append(cells, amountCell(row.ExecutionRate))
		if err := setRow(f, sheet, rowIdx, cells); err != nil {
			return err
		}
		firstAmount, _ := excelize.ColumnNumberToName(3)
		lastAmount, _ := excelize.ColumnNumberToName(len(cells) - 1)
		if err := f.SetCellStyle(sheet,
			fmt.Sprintf("%s%d", firstAmount, rowIdx),
			fmt.Sprintf("%s%d", lastAmount, rowIdx),
			styles.amount); err != nil {
			return styleErr(err)
		}
		rateCol, _ := excelize.ColumnNumberToName(len(cells))
		if err := f.SetCellStyle(sheet,
			fmt.Sprintf("%s%d", rateCol, rowIdx),
			fmt.Sprintf("%s%d", rateCol, rowIdx),
			styles.rate); err != nil {
			return styleErr(err)
		}
		if row.Account.Level == 1 {
			if err := f.SetCellStyle(sheet,
				fmt.Sprintf("A%d", rowIdx),
				fmt.Sprintf("B%d", rowIdx),
				styles.group); err != nil {
				return styleErr(err)
			}
		}
		rowIdx++
	}

	if err := f.SetColWidth(sheet, "A", "A", 12); err != nil {
		return styleErr(err)
	}
	if err := f.SetColWidth(sheet, "B", "B", 48); err != nil {
		return styleErr(err)
	}
	if err := f.SetColWidth(sheet, "C", lastCol, 18); err != nil {
		return styleErr(err)
	}
	return nil
}

func writeEquilibreSheet(f *excelize.File, t *table.RenderedTable, styles sheetStyles) error {
	title := fmt.Sprintf("%s - Exercice %d - Équilibre du budget", t.Commune.Name, t.Year.Year)
	if err := setRow(f, sheetEquilibre, 1, []any{title}); err != nil {
		return err
	}
	headerCells := make([]any, len(equilibreHeader))
	for i, h := range equilibreHeader {
		headerCells[i] = h
	}
	if err := setRow(f, sheetEquilibre, 3, headerCells); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(equilibreHeader))
	if err := f.SetCellStyle(sheetEquilibre, "A3", lastCol+"3", styles.header); err != nil {
		return styleErr(err)
	}

	lines := []table.EquilibreLine{t.Equilibre.Fonctionnement, t.Equilibre.Investissement, t.Equilibre.Total}
	rowIdx := 4
	for _, line := range lines {
		cells := []any{
			line.Label,
			amountCell(line.RecettesAdmises),
			amountCell(line.Recouvrements),
			amountCell(line.DepensesMandatees),
			amountCell(line.Paiements),
			amountCell(line.SoldeAdmis),
			amountCell(line.SoldeRegle),
		}
		if err := setRow(f, sheetEquilibre, rowIdx, cells); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetEquilibre,
			fmt.Sprintf("B%d", rowIdx),
			fmt.Sprintf("%s%d", lastCol, rowIdx),
			styles.amount); err != nil {
			return styleErr(err)
		}
		rowIdx++
	}
	if err := f.SetCellStyle(sheetEquilibre,
		fmt.Sprintf("A%d", rowIdx-1),
		fmt.Sprintf("%s%d", lastCol, rowIdx-1),
		styles.group); err != nil {
		return styleErr(err)
	}
	if err := f.SetColWidth(sheetEquilibre, "A", "A", 24); err != nil {
		return styleErr(err)
	}
	if err := f.SetColWidth(sheetEquilibre, "B", lastCol, 20); err != nil {
		return styleErr(err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return &shared.SerializationError{Reason: "workbook cell: " + err.Error()}
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return &shared.SerializationError{Reason: "workbook row: " + err.Error()}
	}
	return nil
}

func amountCell(d decimal.Decimal) float64 {
	v, _ := d.Round(2).Float64()
	return v
}

func styleErr(err error) error {
	return &shared.SerializationError{Reason: "workbook style: " + err.Error()}
}

func strPtr(s string) *string { return &s }
