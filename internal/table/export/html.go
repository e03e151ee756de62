package export

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/shared"
	"github.com/tahiry-mg/tahiry/internal/table"
)

var frenchPrinter = message.NewPrinter(language.French)

func formatFrench(d decimal.Decimal) string {
	v, _ := d.Round(2).Float64()
	return frenchPrinter.Sprintf("%.2f", v)
}

type htmlRow struct {
	Code    string
	Name    string
	Indent  int
	Group   bool
	Amounts []string
	Rate    string
}

type htmlBlock struct {
	Title  string
	Header []string
	Rows   []htmlRow
}

type htmlEquilibreLine struct {
	Label   string
	Amounts []string
	Total   bool
}

type htmlDocument struct {
	Commune         string
	Region          string
	Province        string
	Year            int
	GeneratedAt     string
	Blocks          []htmlBlock
	EquilibreHeader []string
	Equilibre       []htmlEquilibreLine
}

var documentTemplate = template.Must(template.New("table").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<title>{{.Commune}} - Exercice {{.Year}}</title>
<style>
body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 11px; color: #1a1a2e; margin: 24px; }
h1 { font-size: 16px; margin-bottom: 2px; }
h2 { font-size: 13px; margin: 18px 0 6px; }
.meta { color: #555; margin-bottom: 14px; }
table { border-collapse: collapse; width: 100%; page-break-inside: avoid; }
th, td { border: 1px solid #c5ccd3; padding: 3px 6px; }
th { background: #dde8f0; text-align: center; }
td.num { text-align: right; white-space: nowrap; }
tr.group td { font-weight: bold; background: #f2f5f8; }
tr.total td { font-weight: bold; background: #e8eef3; }
.indent-1 { padding-left: 18px; }
.indent-2 { padding-left: 34px; }
</style>
</head>
<body>
<h1>{{.Commune}} — Exercice {{.Year}}</h1>
<div class="meta">Région {{.Region}}, Province {{.Province}} · Généré le {{.GeneratedAt}}</div>
{{range .Blocks}}
<h2>{{.Title}}</h2>
<table>
<thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr{{if .Group}} class="group"{{end}}>
<td>{{.Code}}</td>
<td{{if .Indent}} class="indent-{{.Indent}}"{{end}}>{{.Name}}</td>
{{range .Amounts}}<td class="num">{{.}}</td>{{end}}
<td class="num">{{.Rate}}</td>
</tr>
{{end}}</tbody>
</table>
{{end}}
<h2>Équilibre du budget</h2>
<table>
<thead><tr>{{range .EquilibreHeader}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Equilibre}}<tr{{if .Total}} class="total"{{end}}>
<td>{{.Label}}</td>
{{range .Amounts}}<td class="num">{{.}}</td>{{end}}
</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

// HTML renders the table as a printable document. The markup is what the
// PDF converter receives, so it carries inline styles only.
func HTML(t *table.RenderedTable) (string, error) {
	if t.IsEmpty() {
		return "", &shared.SerializationError{Reason: "nothing to export: no account rows and no periods"}
	}
	doc := htmlDocument{
		Commune:         t.Commune.Name,
		Region:          t.Commune.RegionName,
		Province:        t.Commune.ProvinceName,
		Year:            t.Year.Year,
		GeneratedAt:     t.GeneratedAt.Format("02/01/2006 15:04"),
		EquilibreHeader: equilibreHeader,
	}
	if len(t.Recettes) > 0 {
		doc.Blocks = append(doc.Blocks, buildBlock("Recettes", accounts.KindRecette, t.Recettes))
	}
	if len(t.Depenses) > 0 {
		doc.Blocks = append(doc.Blocks, buildBlock("Dépenses", accounts.KindDepense, t.Depenses))
	}
	for i, line := range []table.EquilibreLine{t.Equilibre.Fonctionnement, t.Equilibre.Investissement, t.Equilibre.Total} {
		doc.Equilibre = append(doc.Equilibre, htmlEquilibreLine{
			Label: line.Label,
			Amounts: []string{
				formatFrench(line.RecettesAdmises),
				formatFrench(line.Recouvrements),
				formatFrench(line.DepensesMandatees),
				formatFrench(line.Paiements),
				formatFrench(line.SoldeAdmis),
				formatFrench(line.SoldeRegle),
			},
			Total: i == 2,
		})
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, doc); err != nil {
		return "", &shared.SerializationError{Reason: "html render: " + err.Error()}
	}
	return buf.String(), nil
}

func buildBlock(title string, kind accounts.Kind, rows []table.Row) htmlBlock {
	header := recetteHeader
	if kind == accounts.KindDepense {
		header = depenseHeader
	}
	block := htmlBlock{Title: title, Header: header}
	for _, row := range rows {
		hr := htmlRow{
			Code:   row.Account.Code,
			Name:   strings.TrimSpace(row.Account.Name),
			Indent: row.Account.Level - 1,
			Group:  row.Account.Level == 1,
			Amounts: []string{
				formatFrench(row.Total.BudgetPrimitif),
				formatFrench(row.Total.BudgetAdditionnel),
				formatFrench(row.Total.Modifications),
				formatFrench(row.Total.PrevisionsDefinitives),
			},
			Rate: formatFrench(row.ExecutionRate),
		}
		if kind == accounts.KindDepense {
			hr.Amounts = append(hr.Amounts,
				formatFrench(row.Total.Engagement),
				formatFrench(row.Total.MandatAdmis),
				formatFrench(row.Total.Paiement),
				formatFrench(row.Total.ResteAPayer),
			)
		} else {
			hr.Amounts = append(hr.Amounts,
				formatFrench(row.Total.OrAdmis),
				formatFrench(row.Total.Recouvrement),
				formatFrench(row.Total.ResteARecouvrer),
			)
		}
		block.Rows = append(block.Rows, hr)
	}
	return block
}
