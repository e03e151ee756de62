package fiscal

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tahiry-mg/tahiry/internal/platform/httpx"
	"github.com/tahiry-mg/tahiry/internal/shared"
)

// Handler manages fiscal year and period administration endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers fiscal administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/exercices", func(r chi.Router) {
		r.Post("/", h.createYear)
		r.Route("/{year}", func(r chi.Router) {
			r.Get("/", h.showYear)
			r.Post("/close", h.closeYear)
			r.Post("/reopen", h.reopenYear)
			r.Get("/periodes", h.listPeriods)
			r.Post("/periodes", h.createPeriod)
		})
	})
}

type createYearRequest struct {
	Year      int    `json:"year" validate:"required"`
	Label     string `json:"label" validate:"max=120"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

type createPeriodRequest struct {
	Code      string `json:"code" validate:"required,max=32"`
	Name      string `json:"name" validate:"required,max=120"`
	Kind      string `json:"kind" validate:"required"`
	SortOrder int    `json:"sort_order"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

func yearParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "year")
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.Validationf("year", "must be a number, got %q", raw)
	}
	return year, nil
}

func parseDate(field, raw string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, shared.Validationf(field, "must be a date in 2006-01-02 form, got %q", raw)
	}
	return d, nil
}

func (h *Handler) createYear(w http.ResponseWriter, r *http.Request) {
	var req createYearRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.CreateYear(r.Context(), FiscalYear{
		Year:      req.Year,
		Label:     req.Label,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("fiscal year created", slog.Int("year", created.Year))
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) showYear(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	fy, err := h.service.ResolveYear(r.Context(), year)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fy)
}

func (h *Handler) closeYear(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.CloseYear(r.Context(), year); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("fiscal year closed", slog.Int("year", year))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reopenYear(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.ReopenYear(r.Context(), year); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("fiscal year reopened", slog.Int("year", year))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	periods, err := h.service.PeriodsForYear(r.Context(), year)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, periods)
}

func (h *Handler) createPeriod(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req createPeriodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.CreatePeriod(r.Context(), year, Period{
		Code:      req.Code,
		Name:      req.Name,
		Kind:      PeriodKind(req.Kind),
		SortOrder: req.SortOrder,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("period created", slog.Int("year", year), slog.String("code", created.Code))
	httpx.JSON(w, http.StatusCreated, created)
}
