package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mintgate/internal/collection/models"
	"mintgate/internal/platform/metrics"
	"mintgate/internal/platform/middleware"
	"mintgate/internal/ratelimit"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/httputil"
)

// Service defines the collection operations the handler depends on.
type Service interface {
	Mint(ctx context.Context, caller models.Address, quantity, payment uint64) (models.MintReceipt, error)
	TeamMint(ctx context.Context, quantity uint64) (models.MintReceipt, error)
	SetSaleActive(ctx context.Context, active bool) error
	SetUnitPrice(ctx context.Context, price uint64) error
	SetBaseURI(ctx context.Context, baseURI string) error
	SetProvenanceHash(ctx context.Context, hash string) error
	State(ctx context.Context) (models.CollectionState, error)
	OwnerOf(ctx context.Context, id models.UnitID) (models.Address, error)
	CountOf(ctx context.Context, owner models.Address) (uint64, error)
	TokenURI(ctx context.Context, id models.UnitID) (string, error)
}

// TokenIssuer mints wallet session tokens. Deployment fronts this with a
// wallet-signature challenge; the service itself only binds the address into
// a token.
type TokenIssuer interface {
	IssueToken(walletAddress string) (string, error)
}

// Handler exposes the public collection surface: minting, session issuance,
// and the read-only queries.
type Handler struct {
	collection   Service
	tokens       TokenIssuer
	logger       *slog.Logger
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	mintLimiter  ratelimit.Limiter
}

func New(
	collection Service,
	tokens TokenIssuer,
	logger *slog.Logger,
	m *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
	mintLimiter ratelimit.Limiter,
) *Handler {
	return &Handler{
		collection:   collection,
		tokens:       tokens,
		logger:       logger,
		metrics:      m,
		jwtValidator: jwtValidator,
		mintLimiter:  mintLimiter,
	}
}

// Register registers the public collection routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	pub := chi.NewRouter()
	pub.Use(middleware.Recovery(h.logger))
	pub.Use(middleware.RequestID)
	pub.Use(middleware.Logger(h.logger))
	pub.Use(middleware.Timeout(30 * time.Second))
	pub.Use(middleware.ContentTypeJSON)
	pub.Use(middleware.LatencyMiddleware(h.metrics))

	pub.Get("/collection", h.handleState)
	pub.Get("/units/{id}", h.handleUnit)
	pub.Get("/units/{id}/uri", h.handleUnitURI)
	pub.Get("/owners/{address}/count", h.handleOwnerCount)
	pub.Post("/session", h.handleSession)

	pub.Group(func(g chi.Router) {
		g.Use(middleware.RequireWallet(h.jwtValidator, h.logger))
		g.Use(ratelimit.Middleware(h.mintLimiter, mintRateKey, h.logger))
		g.Post("/mint", h.handleMint)
	})

	r.Mount("/v1", pub)
}

func mintRateKey(r *http.Request) string {
	return middleware.GetWalletAddress(r.Context())
}

type mintRequest struct {
	Quantity uint64 `json:"quantity"`
	// Payment is the attached amount in the native currency's smallest unit.
	Payment uint64 `json:"payment"`
}

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	caller := middleware.GetWalletAddress(ctx)
	if caller == "" {
		h.logger.ErrorContext(ctx, "wallet missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	receipt, err := h.collection.Mint(ctx, models.Address(caller), req.Quantity, req.Payment)
	if err != nil {
		h.logger.WarnContext(ctx, "mint rejected",
			"caller", caller,
			"quantity", req.Quantity,
			"error", err.Error(),
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, receipt)
}

type sessionRequest struct {
	WalletAddress string `json:"wallet_address"`
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WalletAddress == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "wallet_address is required"))
		return
	}

	token, err := h.tokens.IssueToken(req.WalletAddress)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "issue session token",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to issue session"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

type stateResponse struct {
	TotalIssued      uint64 `json:"total_issued"`
	MaxSupply        uint64 `json:"max_supply"`
	SaleActive       bool   `json:"sale_active"`
	UnitPrice        uint64 `json:"unit_price"`
	BaseURI          string `json:"base_uri"`
	ProvenanceHash   string `json:"provenance_hash"`
	EarmarkedBalance uint64 `json:"earmarked_balance"`
	ContractBalance  uint64 `json:"contract_balance"`
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := h.collection.State(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stateResponse{
		TotalIssued:      state.TotalIssued,
		MaxSupply:        models.MaxSupply,
		SaleActive:       state.SaleActive,
		UnitPrice:        state.UnitPrice,
		BaseURI:          state.BaseURI,
		ProvenanceHash:   state.ProvenanceHash,
		EarmarkedBalance: state.EarmarkedBalance,
		ContractBalance:  state.ContractBalance,
	})
}

func (h *Handler) handleUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := unitIDParam(w, r)
	if !ok {
		return
	}

	owner, err := h.collection.OwnerOf(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	uri, err := h.collection.TokenURI(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"unit_id":   id,
		"owner":     owner,
		"token_uri": uri,
	})
}

func (h *Handler) handleUnitURI(w http.ResponseWriter, r *http.Request) {
	id, ok := unitIDParam(w, r)
	if !ok {
		return
	}

	uri, err := h.collection.TokenURI(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"token_uri": uri})
}

func (h *Handler) handleOwnerCount(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if address == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "address is required"))
		return
	}

	count, err := h.collection.CountOf(r.Context(), models.Address(address))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"address": address,
		"count":   count,
	})
}

func unitIDParam(w http.ResponseWriter, r *http.Request) (models.UnitID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unit id must be a non-negative integer"))
		return 0, false
	}
	return models.UnitID(id), true
}
