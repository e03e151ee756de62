package accounts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tahiry-mg/tahiry/internal/platform/httpx"
	"github.com/tahiry-mg/tahiry/internal/shared"
)

// Handler manages chart-of-accounts administration endpoints.
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

// MountRoutes registers the chart-of-accounts routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/rubriques", func(r chi.Router) {
		r.Get("/", h.listSubtree)
		r.Post("/", h.createNode)
		r.Post("/{code}/deactivate", h.deactivateNode)
	})
	r.Get("/categories", h.listCategories)
}

type createNodeRequest struct {
	Code       string `json:"code" validate:"required,max=32"`
	Name       string `json:"name" validate:"required,max=200"`
	Kind       string `json:"kind" validate:"required"`
	Level      int    `json:"level" validate:"required,min=1,max=3"`
	ParentCode string `json:"parent_code" validate:"max=32"`
	SortOrder  int    `json:"sort_order"`
	Computed   bool   `json:"computed"`
	Summable   bool   `json:"summable"`
}

func (h *Handler) listSubtree(w http.ResponseWriter, r *http.Request) {
	kind := Kind(r.URL.Query().Get("kind"))
	if !kind.Valid() {
		httpx.RespondError(w, shared.Validationf("kind", "must be one of %q, %q, %q", KindRecette, KindDepense, KindSolde))
		return
	}
	activeOnly := r.URL.Query().Get("include_inactive") != "true"
	nodes, err := h.service.ResolveSubtree(r.Context(), kind, activeOnly)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, nodes)
}

func (h *Handler) createNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	created, err := h.service.InsertNode(r.Context(), req.ParentCode, AccountNode{
		Code:      req.Code,
		Name:      req.Name,
		Kind:      Kind(req.Kind),
		Level:     req.Level,
		SortOrder: req.SortOrder,
		Computed:  req.Computed,
		Summable:  req.Summable,
		Active:    true,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("account node created",
		slog.String("code", created.Code),
		slog.String("kind", string(created.Kind)),
		slog.Int("level", created.Level))
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) deactivateNode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.service.DeactivateNode(r.Context(), code); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("account node deactivated", slog.String("code", code))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, categories)
}
