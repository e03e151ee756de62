package projects

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tahiry-mg/tahiry/internal/platform/httpx"
	"github.com/tahiry-mg/tahiry/internal/shared"
)

// Handler exposes the mining project catalogue.
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

// MountRoutes registers project catalogue routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.listProjects)
		r.Post("/", h.createProject)
		r.Get("/{id}", h.showProject)
	})
}

type createProjectRequest struct {
	Code      string `json:"code" validate:"required,max=64"`
	Name      string `json:"name" validate:"required,max=200"`
	Company   string `json:"company" validate:"max=200"`
	Mineral   string `json:"mineral" validate:"max=100"`
	CommuneID int64  `json:"commune_id" validate:"required,gt=0"`
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	var communeID int64
	if raw := r.URL.Query().Get("commune_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, shared.Validationf("commune_id", "must be a number, got %q", raw))
			return
		}
		communeID = id
	}
	projects, err := h.service.ListForCommune(r.Context(), communeID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, projects)
}

func (h *Handler) showProject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("id", "must be a UUID, got %q", chi.URLParam(r, "id")))
		return
	}
	project, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), Project{
		Code:      req.Code,
		Name:      req.Name,
		Company:   req.Company,
		Mineral:   req.Mineral,
		CommuneID: req.CommuneID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("project created", slog.String("code", created.Code), slog.String("id", created.ID.String()))
	httpx.JSON(w, http.StatusCreated, created)
}
