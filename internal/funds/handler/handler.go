package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mintgate/internal/platform/metrics"
	"mintgate/internal/platform/middleware"
	"mintgate/pkg/platform/httputil"
	admintoken "mintgate/pkg/platform/middleware/admin"
)

// Service defines the fund ledger operations the handler depends on.
type Service interface {
	Settle(ctx context.Context) (uint64, error)
	Withdraw(ctx context.Context) (uint64, error)
}

// Handler exposes the fund ledger: settlement is public, withdrawal is
// administrator-only.
type Handler struct {
	funds      Service
	logger     *slog.Logger
	metrics    *metrics.Metrics
	adminToken string
}

func New(funds Service, logger *slog.Logger, m *metrics.Metrics, adminToken string) *Handler {
	return &Handler{
		funds:      funds,
		logger:     logger,
		metrics:    m,
		adminToken: adminToken,
	}
}

// Register registers the fund routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	fr := chi.NewRouter()
	fr.Use(middleware.Recovery(h.logger))
	fr.Use(middleware.RequestID)
	fr.Use(middleware.Logger(h.logger))
	fr.Use(middleware.Timeout(30 * time.Second))
	fr.Use(middleware.LatencyMiddleware(h.metrics))

	// No auth on settle: it only forwards earmarked funds to the fixed
	// beneficiary, so a permissionless trigger is safe.
	fr.Post("/settle", h.handleSettle)

	fr.Group(func(g chi.Router) {
		g.Use(admintoken.RequireAdminToken(h.adminToken, h.logger))
		g.Post("/withdraw", h.handleWithdraw)
	})

	r.Mount("/v1/funds", fr)
}

func (h *Handler) handleSettle(w http.ResponseWriter, r *http.Request) {
	amount, err := h.funds.Settle(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"settled": amount})
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	amount, err := h.funds.Withdraw(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"withdrawn": amount})
}
