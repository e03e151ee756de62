package table

import (
	"github.com/google/uuid"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/columns"
	"github.com/tahiry-mg/tahiry/internal/figures"
	"github.com/tahiry-mg/tahiry/internal/fiscal"
)

type cellKey struct {
	code     string
	periodID int64
}

// BuildRows turns one kind's validated subtree plus the rectangular grid
// into rendered rows. Nodes are processed bottom-up (post-order) so parents
// sum already-computed children:
//
//   - computed nodes always take the sum of their children; any stored
//     figure on them is stale data and is ignored
//   - summable nodes with children take the sum of their children
//   - everything else (leaves, label-only groupings) takes its stored
//     amounts, zero when absent
//
// The returned rows are in pre-order so children render directly under
// their parent. A fiscal year with zero periods yields rows with no cells,
// which is a valid empty-column table.
func BuildRows(arena *accounts.Arena, periods []fiscal.Period, cells []figures.GridCell, custom map[uuid.UUID]map[string]columns.Value) []Row {
	stored := make(map[cellKey]figures.GridCell, len(cells))
	for _, c := range cells {
		stored[cellKey{c.AccountCode, c.PeriodID}] = c
	}

	resolved := make(map[string][]Cell, arena.Len())
	for _, node := range arena.PostOrder() {
		row := make([]Cell, len(periods))
		children := arena.Children(node.Code)
		sumChildren := node.Computed || (node.Summable && len(children) > 0)
		for i, period := range periods {
			if sumChildren {
				var sum figures.Amounts
				for _, child := range children {
					sum = sum.Add(resolved[child.Code][i].Amounts)
				}
				row[i] = Cell{Amounts: sum}
				continue
			}
			if c, ok := stored[cellKey{node.Code, period.ID}]; ok {
				cell := Cell{Amounts: c.Amounts, FigureID: c.FigureID, Validated: c.Validated}
				if c.FigureID != nil && custom != nil {
					cell.Custom = custom[*c.FigureID]
				}
				row[i] = cell
				continue
			}
			row[i] = Cell{}
		}
		resolved[node.Code] = row
	}

	ordered := arena.PreOrder()
	rows := make([]Row, 0, len(ordered))
	for _, node := range ordered {
		row := Row{Account: *node, Cells: resolved[node.Code]}
		for _, cell := range row.Cells {
			row.Total = row.Total.Add(cell.Amounts)
		}
		if node.Kind == accounts.KindRecette || node.Kind == accounts.KindDepense {
			row.Variance = row.Total.Variance(node.Kind)
			row.ExecutionRate = row.Total.ExecutionRate(node.Kind)
		}
		rows = append(rows, row)
	}
	return rows
}

// BuildEquilibre synthesizes the balance blocks from level-1 rows: admitted
// revenue orders and collections on the recette side, mandates and payments
// on the dépense side, split by budget section.
func BuildEquilibre(recettes, depenses []Row) Equilibre {
	eq := Equilibre{
		Fonctionnement: EquilibreLine{Label: "Section de fonctionnement"},
		Investissement: EquilibreLine{Label: "Section d'investissement"},
		Total:          EquilibreLine{Label: "Total général"},
	}
	for _, row := range recettes {
		if row.Account.Level != 1 {
			continue
		}
		line := eq.sectionLine(row.Account.Section)
		line.RecettesAdmises = line.RecettesAdmises.Add(row.Total.OrAdmis)
		line.Recouvrements = line.Recouvrements.Add(row.Total.Recouvrement)
	}
	for _, row := range depenses {
		if row.Account.Level != 1 {
			continue
		}
		line := eq.sectionLine(row.Account.Section)
		line.DepensesMandatees = line.DepensesMandatees.Add(row.Total.MandatAdmis)
		line.Paiements = line.Paiements.Add(row.Total.Paiement)
	}
	for _, line := range []*EquilibreLine{&eq.Fonctionnement, &eq.Investissement} {
		line.SoldeAdmis = line.RecettesAdmises.Sub(line.DepensesMandatees)
		line.SoldeRegle = line.Recouvrements.Sub(line.Paiements)
		eq.Total.RecettesAdmises = eq.Total.RecettesAdmises.Add(line.RecettesAdmises)
		eq.Total.Recouvrements = eq.Total.Recouvrements.Add(line.Recouvrements)
		eq.Total.DepensesMandatees = eq.Total.DepensesMandatees.Add(line.DepensesMandatees)
		eq.Total.Paiements = eq.Total.Paiements.Add(line.Paiements)
	}
	eq.Total.SoldeAdmis = eq.Total.RecettesAdmises.Sub(eq.Total.DepensesMandatees)
	eq.Total.SoldeRegle = eq.Total.Recouvrements.Sub(eq.Total.Paiements)
	return eq
}

func (eq *Equilibre) sectionLine(section accounts.Section) *EquilibreLine {
	if section == accounts.SectionInvestissement {
		return &eq.Investissement
	}
	return &eq.Fonctionnement
}
