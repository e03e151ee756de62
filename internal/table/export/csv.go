package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/shared"
	"github.com/tahiry-mg/tahiry/internal/table"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if !strings.HasSuffix(line, "\r\n") {
		line = strings.TrimSuffix(line, "\n")
		line += "\r\n"
	}
	if _, err := s.buf.WriteString(line); err != nil {
		return err
	}
	return nil
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

func (s *csvStreamer) Close() error {
	return s.Flush()
}

// WriteCSV streams the rendered table as a single flat CSV: comment lines
// carry the commune and exercise metadata, then the recette block, the
// dépense block and the balance synthesis.
func WriteCSV(w io.Writer, t *table.RenderedTable) error {
	if t.IsEmpty() {
		return &shared.SerializationError{Reason: "nothing to export: no account rows and no periods"}
	}
	streamer := newCSVStreamer(w)
	if err := streamer.writeComment(fmt.Sprintf("# Commune: %s (%s) | Région: %s | Province: %s",
		t.Commune.Name, t.Commune.Code, t.Commune.RegionName, t.Commune.ProvinceName)); err != nil {
		return err
	}
	if err := streamer.writeComment(fmt.Sprintf("# Exercice: %d | Généré: %s",
		t.Year.Year, t.GeneratedAt.Format("2006-01-02 15:04:05"))); err != nil {
		return err
	}
	if err := writeKindBlock(streamer, accounts.KindRecette, t.Recettes); err != nil {
		return err
	}
	if err := writeKindBlock(streamer, accounts.KindDepense, t.Depenses); err != nil {
		return err
	}
	if err := writeEquilibreBlock(streamer, t.Equilibre); err != nil {
		return err
	}
	return streamer.Close()
}

func writeKindBlock(streamer *csvStreamer, kind accounts.Kind, rows []table.Row) error {
	if len(rows) == 0 {
		return nil
	}
	header := recetteHeader
	label := "# Recettes"
	if kind == accounts.KindDepense {
		header = depenseHeader
		label = "# Dépenses"
	}
	if err := streamer.writeComment(label); err != nil {
		return err
	}
	if err := streamer.writeRow(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Account.Code,
			row.Account.Name,
			formatAmount(row.Total.BudgetPrimitif),
			formatAmount(row.Total.BudgetAdditionnel),
			formatAmount(row.Total.Modifications),
			formatAmount(row.Total.PrevisionsDefinitives),
		}
		if kind == accounts.KindDepense {
			record = append(record,
				formatAmount(row.Total.Engagement),
				formatAmount(row.Total.MandatAdmis),
				formatAmount(row.Total.Paiement),
				formatAmount(row.Total.ResteAPayer),
			)
		} else {
			record = append(record,
				formatAmount(row.Total.OrAdmis),
				formatAmount(row.Total.Recouvrement),
				formatAmount(row.Total.ResteARecouvrer),
			)
		}
		record = append(record, formatAmount(row.ExecutionRate))
		if err := streamer.writeRow(record); err != nil {
			return err
		}
	}
	return streamer.writeRow(make([]string, len(header)))
}

func writeEquilibreBlock(streamer *csvStreamer, eq table.Equilibre) error {
	if err := streamer.writeComment("# Équilibre du budget"); err != nil {
		return err
	}
	if err := streamer.writeRow(equilibreHeader); err != nil {
		return err
	}
	for _, line := range []table.EquilibreLine{eq.Fonctionnement, eq.Investissement, eq.Total} {
		if err := streamer.writeRow([]string{
			line.Label,
			formatAmount(line.RecettesAdmises),
			formatAmount(line.Recouvrements),
			formatAmount(line.DepensesMandatees),
			formatAmount(line.Paiements),
			formatAmount(line.SoldeAdmis),
			formatAmount(line.SoldeRegle),
		}); err != nil {
			return err
		}
	}
	return nil
}

func formatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
