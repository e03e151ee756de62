// Package importer reads filled workbook templates back into the figure
// store. It is the inverse of package export: the same kind sheets and
// column layout, rows addressed by account code.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/figures"
	"github.com/tahiry-mg/tahiry/internal/shared"
)

const (
	sheetRecettes = "Recettes"
	sheetDepenses = "Dépenses"

	// Row 1 carries the title, row 3 the header; data starts at row 4.
	dataStartRow = 4
)

// AccountSource yields the chart of accounts for one movement kind in
// rendering order.
type AccountSource interface {
	ResolveSubtree(ctx context.Context, kind accounts.Kind, activeOnly bool) ([]accounts.AccountNode, error)
}

// FigureWriter persists one figure cell.
type FigureWriter interface {
	Upsert(ctx context.Context, f figures.Figure) (figures.Figure, error)
}

// RowError locates one rejected workbook row.
type RowError struct {
	Sheet  string `json:"sheet"`
	Row    int    `json:"row"`
	Code   string `json:"account_code,omitempty"`
	Reason string `json:"reason"`
}

// Report summarises one import run. Skipped counts roll-up rows, whose
// values are derived from their children at read time and never stored.
type Report struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

func (r *Report) fail(sheet string, line int, code, reason string) {
	r.Errors = append(r.Errors, RowError{Sheet: sheet, Row: line, Code: code, Reason: reason})
}

type columnSpec struct {
	col   int
	name  string
	apply func(*figures.Amounts, decimal.Decimal)
}

type sheetSpec struct {
	name string
	kind accounts.Kind
	// Raw monetary input columns, 1-based, matching the export header
	// order. Derived columns (prévisions définitives, restes, taux) are
	// ignored; the server recomputes them from the raw inputs.
	columns []columnSpec
}

var recetteSheet = sheetSpec{
	name: sheetRecettes,
	kind: accounts.KindRecette,
	columns: []columnSpec{
		{3, "budget_primitif", func(a *figures.Amounts, v decimal.Decimal) { a.BudgetPrimitif = v }},
		{4, "budget_additionnel", func(a *figures.Amounts, v decimal.Decimal) { a.BudgetAdditionnel = v }},
		{5, "modifications", func(a *figures.Amounts, v decimal.Decimal) { a.Modifications = v }},
		{7, "or_admis", func(a *figures.Amounts, v decimal.Decimal) { a.OrAdmis = v }},
		{8, "recouvrement", func(a *figures.Amounts, v decimal.Decimal) { a.Recouvrement = v }},
	},
}

var depenseSheet = sheetSpec{
	name: sheetDepenses,
	kind: accounts.KindDepense,
	columns: []columnSpec{
		{3, "budget_primitif", func(a *figures.Amounts, v decimal.Decimal) { a.BudgetPrimitif = v }},
		{4, "budget_additionnel", func(a *figures.Amounts, v decimal.Decimal) { a.BudgetAdditionnel = v }},
		{5, "modifications", func(a *figures.Amounts, v decimal.Decimal) { a.Modifications = v }},
		{7, "engagement", func(a *figures.Amounts, v decimal.Decimal) { a.Engagement = v }},
		{8, "mandat_admis", func(a *figures.Amounts, v decimal.Decimal) { a.MandatAdmis = v }},
		{9, "paiement", func(a *figures.Amounts, v decimal.Decimal) { a.Paiement = v }},
	},
}

// Service parses uploaded workbooks and writes their rows through the
// figure store, so every stored cell went through the same validation and
// derived-column recompute as a direct edit.
type Service struct {
	accounts AccountSource
	figures  FigureWriter
}

func NewService(accountSource AccountSource, writer FigureWriter) *Service {
	return &Service{accounts: accountSource, figures: writer}
}

// ImportWorkbook reads the Recettes and Dépenses sheets of a filled
// template and upserts every leaf row for the given commune and period.
// Row-level problems (unknown code, unparseable amount, negative input)
// are collected per row and do not stop the run; a closed exercise aborts
// it entirely.
func (s *Service) ImportWorkbook(ctx context.Context, communeID, periodID int64, data []byte) (Report, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Report{}, shared.Validationf("file", "not a workbook: %s", err.Error())
	}
	defer f.Close()

	var report Report
	found := false
	for _, spec := range []sheetSpec{recetteSheet, depenseSheet} {
		idx, err := f.GetSheetIndex(spec.name)
		if err != nil || idx < 0 {
			continue
		}
		found = true
		if err := s.importSheet(ctx, f, spec, communeID, periodID, &report); err != nil {
			return report, err
		}
	}
	if !found {
		return report, shared.Validationf("file", "workbook has neither a %q nor a %q sheet", sheetRecettes, sheetDepenses)
	}
	return report, nil
}

func (s *Service) importSheet(ctx context.Context, f *excelize.File, spec sheetSpec, communeID, periodID int64, report *Report) error {
	nodes, err := s.accounts.ResolveSubtree(ctx, spec.kind, false)
	if err != nil {
		return err
	}
	byCode := make(map[string]accounts.AccountNode, len(nodes))
	hasChildren := make(map[string]bool)
	for _, n := range nodes {
		byCode[n.Code] = n
		if n.ParentCode != "" {
			hasChildren[n.ParentCode] = true
		}
	}

	rows, err := f.GetRows(spec.name, excelize.Options{RawCellValue: true})
	if err != nil {
		return shared.Validationf("file", "sheet %s: %s", spec.name, err.Error())
	}
	for i, row := range rows {
		line := i + 1
		if line < dataStartRow {
			continue
		}
		code := strings.TrimSpace(cellAt(row, 1))
		if code == "" {
			continue
		}
		node, ok := byCode[code]
		if !ok {
			report.fail(spec.name, line, code, "unknown account code")
			continue
		}
		if node.Computed || hasChildren[code] {
			report.Skipped++
			continue
		}

		var amounts figures.Amounts
		bad := false
		for _, col := range spec.columns {
			raw := strings.TrimSpace(cellAt(row, col.col))
			if raw == "" || raw == "-" {
				continue
			}
			v, err := parseAmount(raw)
			if err != nil {
				report.fail(spec.name, line, code, fmt.Sprintf("%s: unparseable amount %q", col.name, raw))
				bad = true
				break
			}
			col.apply(&amounts, v)
		}
		if bad {
			continue
		}

		if _, err := s.figures.Upsert(ctx, figures.Figure{
			CommuneID:   communeID,
			AccountCode: code,
			PeriodID:    periodID,
			Amounts:     amounts,
		}); err != nil {
			var invalid *shared.InvalidStateError
			if errors.As(err, &invalid) {
				return err
			}
			report.fail(spec.name, line, code, err.Error())
			continue
		}
		report.Imported++
	}
	return nil
}

func cellAt(row []string, col int) string {
	if col > len(row) {
		return ""
	}
	return row[col-1]
}

// parseAmount accepts French-formatted input: grouping spaces (including
// the non-breaking variants) are stripped and a decimal comma becomes a
// dot.
func parseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', ' ':
			return -1
		}
		return r
	}, raw)
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	return decimal.NewFromString(cleaned)
}
