package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mintgate/internal/platform/metrics"
	"mintgate/internal/platform/middleware"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/httputil"
	admintoken "mintgate/pkg/platform/middleware/admin"
)

// AdminHandler exposes the restricted collection surface. Every route
// re-checks the admin token per call.
type AdminHandler struct {
	collection Service
	logger     *slog.Logger
	metrics    *metrics.Metrics
	adminToken string
}

func NewAdmin(collection Service, logger *slog.Logger, m *metrics.Metrics, adminToken string) *AdminHandler {
	return &AdminHandler{
		collection: collection,
		logger:     logger,
		metrics:    m,
		adminToken: adminToken,
	}
}

// Register registers the admin collection routes with the chi router.
func (h *AdminHandler) Register(r chi.Router) {
	adm := chi.NewRouter()
	adm.Use(middleware.Recovery(h.logger))
	adm.Use(middleware.RequestID)
	adm.Use(middleware.Logger(h.logger))
	adm.Use(middleware.Timeout(30 * time.Second))
	adm.Use(middleware.ContentTypeJSON)
	adm.Use(middleware.LatencyMiddleware(h.metrics))
	adm.Use(admintoken.RequireAdminToken(h.adminToken, h.logger))

	adm.Post("/sale", h.handleSetSale)
	adm.Post("/price", h.handleSetPrice)
	adm.Post("/base-uri", h.handleSetBaseURI)
	adm.Post("/provenance", h.handleSetProvenance)
	adm.Post("/team-mint", h.handleTeamMint)

	r.Mount("/v1/admin", adm)
}

func (h *AdminHandler) handleSetSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.collection.SetSaleActive(r.Context(), req.Active); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UnitPrice uint64 `json:"unit_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.collection.SetUnitPrice(r.Context(), req.UnitPrice); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleSetBaseURI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BaseURI string `json:"base_uri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.collection.SetBaseURI(r.Context(), req.BaseURI); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleSetProvenance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.collection.SetProvenanceHash(r.Context(), req.Hash); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleTeamMint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity uint64 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	receipt, err := h.collection.TeamMint(r.Context(), req.Quantity)
	if err != nil {
		h.logger.WarnContext(r.Context(), "team mint rejected",
			"quantity", req.Quantity,
			"error", err.Error(),
			"request_id", middleware.GetRequestID(r.Context()),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, receipt)
}
