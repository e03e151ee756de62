package columns

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tahiry-mg/tahiry/internal/platform/httpx"
)

// Handler manages dynamic column administration endpoints.
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

// MountRoutes registers the column definition routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/colonnes", func(r chi.Router) {
		r.Get("/", h.listDefinitions)
		r.Post("/", h.createDefinition)
	})
}

type createDefinitionRequest struct {
	Code         string `json:"code" validate:"required,max=64"`
	Name         string `json:"name" validate:"required,max=200"`
	DataType     string `json:"data_type" validate:"required"`
	DefaultValue string `json:"default_value" validate:"max=4000"`
	Required     bool   `json:"required"`
	Visible      bool   `json:"visible"`
	Editable     bool   `json:"editable"`
	SortOrder    int    `json:"sort_order"`
}

func (h *Handler) listDefinitions(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.LoadSnapshot(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snapshot.Definitions())
}

func (h *Handler) createDefinition(w http.ResponseWriter, r *http.Request) {
	var req createDefinitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	created, err := h.service.Define(r.Context(), Definition{
		Code:         req.Code,
		Name:         req.Name,
		DataType:     DataType(req.DataType),
		DefaultValue: req.DefaultValue,
		Required:     req.Required,
		Visible:      req.Visible,
		Editable:     req.Editable,
		SortOrder:    req.SortOrder,
		Active:       true,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("column defined",
		slog.String("code", created.Code),
		slog.String("type", string(created.DataType)))
	httpx.JSON(w, http.StatusCreated, created)
}
