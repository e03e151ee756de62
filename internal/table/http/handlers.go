// Package http exposes the financial table feature over JSON and file
// export endpoints.
package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/columns"
	"github.com/tahiry-mg/tahiry/internal/figures"
	"github.com/tahiry-mg/tahiry/internal/fiscal"
	"github.com/tahiry-mg/tahiry/internal/geography"
	"github.com/tahiry-mg/tahiry/internal/observability"
	"github.com/tahiry-mg/tahiry/internal/platform/httpx"
	"github.com/tahiry-mg/tahiry/internal/shared"
	"github.com/tahiry-mg/tahiry/internal/table"
	"github.com/tahiry-mg/tahiry/internal/table/export"
	"github.com/tahiry-mg/tahiry/internal/table/importer"
)

// maxImportBytes caps uploaded workbook size.
const maxImportBytes = 10 << 20

// PDFRenderClient is the narrow Gotenberg surface the handler needs; nil
// means PDF export responds 503.
type PDFRenderClient interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler wires the table rendering, figure editing, import and export
// endpoints.
type Handler struct {
	logger    *slog.Logger
	tables    *table.Service
	figures   *figures.Service
	geography *geography.Service
	fiscal    *fiscal.Service
	columns   *columns.Service
	importer  *importer.Service
	pdf       PDFRenderClient
	validate  *validator.Validate
	rateLimit func(http.Handler) http.Handler
}

// NewHandler builds the table handler. Import and export routes are rate
// limited per client since workbook handling is comparatively expensive.
func NewHandler(logger *slog.Logger, tables *table.Service, figureService *figures.Service, geo *geography.Service, fiscalService *fiscal.Service, columnService *columns.Service, importService *importer.Service, pdf PDFRenderClient) *Handler {
	limiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
	return &Handler{
		logger:    logger,
		tables:    tables,
		figures:   figureService,
		geography: geo,
		fiscal:    fiscalService,
		columns:   columnService,
		importer:  importService,
		pdf:       pdf,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		rateLimit: limiter,
	}
}

// MountRoutes registers the table endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/communes/{code}/exercices/{year}", func(r chi.Router) {
		r.Get("/table", h.handleGetTable)
		r.Put("/figures", h.handleUpsertFigure)
		r.Group(func(r chi.Router) {
			r.Use(h.rateLimit)
			r.Get("/export.xlsx", h.handleExportWorkbook)
			r.Get("/export.csv", h.handleExportCSV)
			r.Get("/export.pdf", h.handleExportPDF)
			r.Post("/import.xlsx", h.handleImportWorkbook)
		})
	})
	r.Post("/figures/{id}/validate", h.handleValidateFigure)
	r.Post("/figures/{id}/columns/{column}", h.handleSetColumnValue)
}

func (h *Handler) renderFromRequest(r *http.Request) (*table.RenderedTable, error) {
	code := chi.URLParam(r, "code")
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return nil, shared.Validationf("year", "must be a number, got %q", chi.URLParam(r, "year"))
	}
	opts, err := parseOptions(r)
	if err != nil {
		return nil, err
	}
	return h.tables.Render(r.Context(), code, year, opts)
}

func parseOptions(r *http.Request) (table.Options, error) {
	var opts table.Options
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind := accounts.Kind(raw)
		if !kind.Valid() || kind == accounts.KindSolde {
			return opts, shared.Validationf("kind", "must be %q or %q, got %q", accounts.KindRecette, accounts.KindDepense, raw)
		}
		opts.Kind = &kind
	}
	if raw := r.URL.Query().Get("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return opts, shared.Validationf("project_id", "must be a UUID, got %q", raw)
		}
		opts.ProjectID = &id
	}
	if raw := r.URL.Query().Get("include_custom"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, shared.Validationf("include_custom", "must be a boolean, got %q", raw)
		}
		opts.IncludeCustom = include
	}
	return opts, nil
}

func (h *Handler) handleGetTable(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rendered, err := h.renderFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	observability.ObserveTableRender(time.Since(start))
	httpx.JSON(w, http.StatusOK, rendered)
}

func (h *Handler) handleUpsertFigure(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("year", "must be a number, got %q", chi.URLParam(r, "year")))
		return
	}
	var req upsertFigureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	commune, err := h.geography.ResolveCommune(r.Context(), code)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := h.fiscal.ResolvePeriod(r.Context(), year, req.PeriodCode)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	saved, err := h.figures.Upsert(r.Context(), figures.Figure{
		CommuneID:    commune.ID,
		AccountCode:  req.AccountCode,
		PeriodID:     period.ID,
		ProjectID:    req.ProjectID,
		Amounts:      req.amounts(),
		Observations: req.Observations,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.tables.Invalidate(r.Context()); err != nil {
		h.logger.Warn("table cache invalidation failed", slog.Any("error", err))
	}
	h.logger.Info("figure upserted",
		slog.String("commune", code),
		slog.String("account", req.AccountCode),
		slog.String("period", req.PeriodCode))
	httpx.JSON(w, http.StatusOK, toFigureResponse(saved))
}

func (h *Handler) handleImportWorkbook(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("year", "must be a number, got %q", chi.URLParam(r, "year")))
		return
	}
	periodCode := r.URL.Query().Get("period")
	if periodCode == "" {
		httpx.RespondError(w, shared.Validationf("period", "is required"))
		return
	}
	commune, err := h.geography.ResolveCommune(r.Context(), code)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := h.fiscal.ResolvePeriod(r.Context(), year, periodCode)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	report, err := h.importer.ImportWorkbook(r.Context(), commune.ID, period.ID, data)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if report.Imported > 0 {
		if err := h.tables.Invalidate(r.Context()); err != nil {
			h.logger.Warn("table cache invalidation failed", slog.Any("error", err))
		}
	}
	observability.IncImport()
	h.logger.Info("workbook imported",
		slog.String("commune", code),
		slog.String("period", periodCode),
		slog.Int("imported", report.Imported),
		slog.Int("rejected", len(report.Errors)))
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleValidateFigure(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("id", "must be a UUID, got %q", chi.URLParam(r, "id")))
		return
	}
	if err := h.figures.MarkValidated(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.tables.Invalidate(r.Context()); err != nil {
		h.logger.Warn("table cache invalidation failed", slog.Any("error", err))
	}
	h.logger.Info("figure validated", slog.String("figure_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetColumnValue(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("id", "must be a UUID, got %q", chi.URLParam(r, "id")))
		return
	}
	column := chi.URLParam(r, "column")
	var req setColumnValueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	if err := h.columns.SetValue(r.Context(), column, id, req.Value); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	rendered, err := h.renderFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	data, err := export.Workbook(rendered)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	observability.IncExport("xlsx")
	httpx.Binary(w,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		exportFilename(rendered, "xlsx"),
		data)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	rendered, err := h.renderFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if rendered.IsEmpty() {
		httpx.RespondError(w, &shared.SerializationError{Reason: "nothing to export: no account rows and no periods"})
		return
	}
	observability.IncExport("csv")
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(rendered, "csv")))
	if err := export.WriteCSV(w, rendered); err != nil {
		h.logger.Error("csv export aborted mid-stream", slog.Any("error", err))
	}
}

func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "pdf export unavailable", "no PDF renderer is configured")
		return
	}
	rendered, err := h.renderFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	html, err := export.HTML(rendered)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	data, err := h.pdf.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("pdf render failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "pdf render failed", "the PDF renderer did not produce a document")
		return
	}
	observability.IncExport("pdf")
	httpx.Binary(w, "application/pdf", exportFilename(rendered, "pdf"), data)
}

func exportFilename(t *table.RenderedTable, ext string) string {
	return fmt.Sprintf("tableau_%s_%d.%s", t.Commune.Code, t.Year.Year, ext)
}
