package api

import (
	"cashflow_stp/internal/domain"
	"cashflow_stp/internal/processor"
	"cashflow_stp/internal/repository"
	"cashflow_stp/pkg/crypto"
	"cashflow_stp/pkg/metrics"
	"cashflow_stp/pkg/validator"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"
)

type APIHandler struct {
	cashflows      repository.CashflowRepository
	stp            *processor.STPProcessor
	netting        *processor.NettingProcessor
	checks         []processor.STPCheck
	validator      *validator.CashflowValidator
	metrics        *metrics.MetricsCollector
	signer         *crypto.Signer
	logger         *slog.Logger
	requestTimeout time.Duration
}

// NewAPIHandler wires the HTTP surface. With a signer every submission
// must carry a valid signature; a nil signer disables the check.
func NewAPIHandler(
	cashflows repository.CashflowRepository,
	stp *processor.STPProcessor,
	netting *processor.NettingProcessor,
	checks []processor.STPCheck,
	metrics *metrics.MetricsCollector,
	signer *crypto.Signer,
	logger *slog.Logger,
) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &APIHandler{
		cashflows:      cashflows,
		stp:            stp,
		netting:        netting,
		checks:         checks,
		validator:      validator.NewCashflowValidator(),
		metrics:        metrics,
		signer:         signer,
		logger:         logger,
		requestTimeout: 30 * time.Second,
	}
}

type CreateCashflowRequest struct {
	ID             string  `json:"id,omitempty"`
	CounterParty   string  `json:"counter_party"`
	Currency       string  `json:"currency"`
	Amount         float64 `json:"amount"`
	SettlementDate string  `json:"settlement_date"`
	Signature      string  `json:"signature,omitempty"`
}

type CashflowResponse struct {
	ID         string `json:"id"`
	StpAllowed bool   `json:"stp_allowed"`
	Note       string `json:"note,omitempty"`
	Version    int    `json:"version"`
	Message    string `json:"message,omitempty"`
}

type NettingSetResponse struct {
	CounterParty   string   `json:"counter_party"`
	Currency       string   `json:"currency"`
	SettlementDate string   `json:"settlement_date"`
	CashflowIDs    []string `json:"cashflow_ids"`
	Total          float64  `json:"total"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// CreateCashflowHandler stores a cashflow and runs the STP checks on it.
func (h *APIHandler) CreateCashflowHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req CreateCashflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	settlement, err := time.Parse(domain.DateLayout, req.SettlementDate)
	if err != nil {
		h.sendError(w, fmt.Sprintf("settlement_date must use %s", domain.DateLayout), http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	cf := domain.NewCashflow(req.CounterParty, req.Currency, req.Amount, settlement)
	if req.ID != "" {
		cf.WithID(req.ID)
	}

	if err := h.validator.ValidateCashflow(cf); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	if h.signer != nil {
		if req.Signature == "" {
			h.sendError(w, "Signature is required", http.StatusUnauthorized, "MISSING_SIGNATURE")
			return
		}
		if err := h.signer.VerifyCashflow(cf.CounterParty, cf.Currency, cf.Amount, cf.SettlementDay(), req.Signature); err != nil {
			h.sendError(w, "Invalid signature", http.StatusUnauthorized, "INVALID_SIGNATURE")
			return
		}
	}

	if err := h.cashflows.Save(ctx, cf); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			h.sendError(w, "Cashflow already exists", http.StatusConflict, "DUPLICATE")
		} else {
			h.logger.ErrorContext(ctx, "Failed to save cashflow",
				slog.String("error", err.Error()),
				slog.String("cashflow_id", cf.ID))
			h.sendError(w, "Failed to save cashflow", http.StatusInternalServerError, "SERVER_ERROR")
		}
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSubmission()
	}

	if _, err := h.stp.Evaluate(ctx, []*domain.Cashflow{cf}, h.checks); err != nil {
		h.logger.ErrorContext(ctx, "STP evaluation failed",
			slog.String("error", err.Error()),
			slog.String("cashflow_id", cf.ID))
		h.sendError(w, fmt.Sprintf("STP evaluation failed: %v", err), http.StatusInternalServerError, "PROCESSING_ERROR")
		return
	}

	message := "Cashflow accepted for STP"
	if !cf.StpAllowed {
		message = "Cashflow requires manual review"
	}

	h.sendJSON(w, CashflowResponse{
		ID:         cf.ID,
		StpAllowed: cf.StpAllowed,
		Note:       cf.Note,
		Version:    cf.Version,
		Message:    message,
	}, http.StatusCreated)

	h.logger.InfoContext(ctx, "Cashflow processed",
		slog.String("cashflow_id", cf.ID),
		slog.Bool("stp_allowed", cf.StpAllowed))
}

// GetCashflowHandler returns one cashflow by id, or a list filtered by
// counter_party when no id is given.
func (h *APIHandler) GetCashflowHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	if id := r.URL.Query().Get("id"); id != "" {
		cf, err := h.cashflows.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				h.sendError(w, "Cashflow not found", http.StatusNotFound, "NOT_FOUND")
			} else {
				h.sendError(w, "Failed to get cashflow", http.StatusInternalServerError, "SERVER_ERROR")
			}
			return
		}
		h.sendJSON(w, cf, http.StatusOK)
		return
	}

	var (
		cashflows []*domain.Cashflow
		err       error
	)
	if cp := r.URL.Query().Get("counter_party"); cp != "" {
		cashflows, err = h.cashflows.FindByCounterParty(ctx, cp)
	} else {
		cashflows, err = h.cashflows.FindAll(ctx)
	}
	if err != nil {
		h.sendError(w, "Failed to list cashflows", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if cashflows == nil {
		cashflows = []*domain.Cashflow{}
	}

	h.sendJSON(w, cashflows, http.StatusOK)
}

func (h *APIHandler) EvaluateSTPHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	report, err := h.stp.EvaluatePending(ctx, h.checks)
	if err != nil {
		h.logger.ErrorContext(ctx, "STP evaluation failed", slog.String("error", err.Error()))
		h.sendError(w, fmt.Sprintf("STP evaluation failed: %v", err), http.StatusInternalServerError, "PROCESSING_ERROR")
		return
	}

	h.sendJSON(w, report, http.StatusOK)
}

func (h *APIHandler) NettingHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	sets, err := h.netting.NetAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Netting failed", slog.String("error", err.Error()))
		h.sendError(w, fmt.Sprintf("Netting failed: %v", err), http.StatusInternalServerError, "PROCESSING_ERROR")
		return
	}

	response := make([]NettingSetResponse, 0, len(sets))
	for key, set := range sets {
		ids := make([]string, 0, len(set.Cashflows))
		for _, cf := range set.Cashflows {
			ids = append(ids, cf.ID)
		}
		response = append(response, NettingSetResponse{
			CounterParty:   key.CounterParty,
			Currency:       key.Currency,
			SettlementDate: key.SettlementDate,
			CashflowIDs:    ids,
			Total:          set.Total(),
		})
	}
	slices.SortFunc(response, func(a, b NettingSetResponse) int {
		return cmp.Or(
			cmp.Compare(a.CounterParty, b.CounterParty),
			cmp.Compare(a.Currency, b.Currency),
			cmp.Compare(a.SettlementDate, b.SettlementDate),
		)
	})

	h.sendJSON(w, response, http.StatusOK)
}

func (h *APIHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	}
	h.sendJSON(w, response, http.StatusOK)
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func (h *APIHandler) sendError(w http.ResponseWriter, message string, statusCode int, code string) {
	errorResponse := ErrorResponse{
		Error: message,
		Code:  code,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse)

	h.logger.Warn("API error response",
		slog.String("message", message),
		slog.String("code", code),
		slog.Int("status", statusCode))
}

func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/cashflows", h.CreateCashflowHandler)
	mux.HandleFunc("GET /api/v1/cashflows", h.GetCashflowHandler)
	mux.HandleFunc("POST /api/v1/stp/evaluate", h.EvaluateSTPHandler)
	mux.HandleFunc("POST /api/v1/netting", h.NettingHandler)
	mux.HandleFunc("GET /api/health", h.HealthCheckHandler)
}
