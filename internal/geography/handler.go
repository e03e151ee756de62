package geography

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tahiry-mg/tahiry/internal/platform/httpx"
)

// Handler exposes read-only territory lookups.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers territory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/communes", h.listCommunes)
	r.Get("/communes/{code}", h.showCommune)
}

func (h *Handler) listCommunes(w http.ResponseWriter, r *http.Request) {
	communes, err := h.service.ListCommunes(r.Context(), r.URL.Query().Get("region"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, communes)
}

func (h *Handler) showCommune(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.ResolveCommune(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, details)
}
