package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/market"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/overhead"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/pricing"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo         domain.Repository
	cache        domain.Cache
	bus          domain.EventBus
	orchestrator *pricing.Orchestrator
	catalog      domain.RiskFactorCatalog
	marketEngine *market.Engine
	pricingCfg   domain.PricingConfig
	version      string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, orchestrator *pricing.Orchestrator, catalog domain.RiskFactorCatalog, marketEngine *market.Engine, pricingCfg domain.PricingConfig, version string) *Handler {
	return &Handler{
		repo:         repo,
		cache:        cache,
		bus:          bus,
		orchestrator: orchestrator,
		catalog:      catalog,
		marketEngine: marketEngine,
		pricingCfg:   pricingCfg,
		version:      version,
	}
}

// CalculateResponse wraps the calculation result with request metadata.
type CalculateResponse struct {
	Result *domain.EnhancedCalculationResult `json:"result"`

	// OverheadBreakdown decomposes the overhead amount into fixed buckets
	// for proposal line items.
	OverheadBreakdown domain.OverheadBreakdown `json:"overheadBreakdown"`

	Metadata struct {
		TraceID string `json:"traceId"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// Calculate handles POST /calculate requests.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	var input domain.CalculationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	result, err := h.orchestrator.Calculate(ctx, input)
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidBaseCost) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}
		slog.Error("calculation failed", "error", err, "trace_id", traceID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "calculation failed",
		})
		return
	}

	resp := CalculateResponse{
		Result:            result,
		OverheadBreakdown: overhead.Breakdown(result.OverheadAmount),
	}
	resp.Metadata.TraceID = traceID
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// AuditLogs handles GET /audit-logs requests.
// Query parameters: includeErrors (bool), limit (int).
func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	filter := domain.AuditLogFilter{}

	if v := r.URL.Query().Get("includeErrors"); v != "" {
		includeErrors, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "includeErrors must be a boolean",
			})
			return
		}
		filter.IncludeErrors = includeErrors
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a non-negative integer",
			})
			return
		}
		filter.Limit = limit
	}

	entries := h.orchestrator.AuditLogs(filter)

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// ClearAuditLogs handles DELETE /audit-logs requests.
func (h *Handler) ClearAuditLogs(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.ClearAuditLogs()

	slog.Info("audit logs cleared")
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "audit logs cleared",
	})
}

// Statistics handles GET /statistics requests.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orchestrator.Statistics())
}

// ListFactors handles GET /factors requests, returning the full risk
// factor catalog grouped by category.
func (h *Handler) ListFactors(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "risk factor catalog not available",
		})
		return
	}

	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		slog.Error("failed to list risk categories", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load risk factor catalog",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"categories": categories,
		"count":      len(categories),
	})
}

// GetFactor handles GET /factors/{name} requests.
func (h *Handler) GetFactor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "factor name is required",
		})
		return
	}

	if h.catalog == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "risk factor catalog not available",
		})
		return
	}

	factor, err := h.catalog.GetFactor(r.Context(), name)
	if err != nil {
		if errors.Is(err, domain.ErrFactorNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "factor not found",
			})
			return
		}
		slog.Error("failed to get factor", "name", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load factor",
		})
		return
	}

	writeJSON(w, http.StatusOK, factor)
}

// MarketRecordRequest is the request body for POST /market-data.
type MarketRecordRequest struct {
	Region        string    `json:"region"`
	Value         float64   `json:"value"`
	Unit          string    `json:"unit,omitempty"`
	ProjectType   string    `json:"projectType,omitempty"`
	Source        string    `json:"source,omitempty"`
	EffectiveDate time.Time `json:"effectiveDate,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

// CreateMarketRecord handles POST /market-data requests.
func (h *Handler) CreateMarketRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req MarketRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Region == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "region is required",
		})
		return
	}
	if req.Value <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "value must be positive",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	rec := &domain.MarketDataRecord{
		ID:            uuid.New().String(),
		Region:        req.Region,
		Value:         req.Value,
		Unit:          req.Unit,
		ProjectType:   req.ProjectType,
		Source:        req.Source,
		EffectiveDate: req.EffectiveDate,
		Notes:         req.Notes,
	}
	if rec.Unit == "" {
		rec.Unit = "sqft"
	}
	if rec.Source == "" {
		rec.Source = "api"
	}
	if rec.EffectiveDate.IsZero() {
		rec.EffectiveDate = time.Now().UTC()
	}

	if err := h.repo.SaveMarketRecord(ctx, rec); err != nil {
		slog.Error("failed to save market record", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save market record",
		})
		return
	}

	// Notify subscribers so cached benchmarks for the region refresh.
	if h.bus != nil {
		payload, _ := json.Marshal(rec)
		if err := h.bus.Publish(ctx, domain.TopicMarketDataUpdated, payload); err != nil {
			slog.Debug("failed to publish market data update", "error", err)
		}
	}

	slog.Info("market record created", "id", rec.ID, "region", rec.Region)
	writeJSON(w, http.StatusCreated, rec)
}

// ListMarketRecords handles GET /market-data requests.
// Query parameters: region, projectType.
func (h *Handler) ListMarketRecords(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	filter := domain.MarketDataFilter{
		Region:      r.URL.Query().Get("region"),
		ProjectType: r.URL.Query().Get("projectType"),
	}

	records, err := h.repo.GetMarketRecords(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list market records", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load market records",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// Benchmark handles GET /benchmark requests.
// Query parameters: region (required), projectType, costPerUnit.
func (h *Handler) Benchmark(w http.ResponseWriter, r *http.Request) {
	if h.marketEngine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "market engine not available",
		})
		return
	}

	region := r.URL.Query().Get("region")
	if region == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "region is required",
		})
		return
	}

	costPerUnit := 0.0
	if v := r.URL.Query().Get("costPerUnit"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "costPerUnit must be a non-negative number",
			})
			return
		}
		costPerUnit = parsed
	}

	projectType := r.URL.Query().Get("projectType")
	benchKey := fmt.Sprintf("%s:%s:%.2f", region, projectType, costPerUnit)

	var benchmark *domain.MarketBenchmark
	if h.cache != nil {
		if cached, err := h.cache.GetBenchmark(r.Context(), benchKey); err == nil && cached != nil {
			benchmark = cached
		}
	}
	if benchmark == nil {
		b, err := h.marketEngine.Benchmark(r.Context(), costPerUnit, domain.MarketDataFilter{
			Region:      region,
			ProjectType: projectType,
		})
		if err != nil {
			slog.Error("benchmark failed", "region", region, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "benchmark failed",
			})
			return
		}
		benchmark = b

		if h.cache != nil {
			if err := h.cache.SetBenchmark(r.Context(), benchKey, benchmark, 10*time.Minute); err != nil {
				slog.Debug("failed to cache benchmark", "key", benchKey, "error", err)
			}
		}
	}

	resp := map[string]any{"benchmark": benchmark}

	// When a base cost is supplied, include tiered pricing packages around it.
	if v := r.URL.Query().Get("baseCost"); v != "" {
		baseCost, perr := strconv.ParseFloat(v, 64)
		if perr != nil || baseCost <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "baseCost must be a positive number",
			})
			return
		}
		winProbability, _ := h.marketEngine.WinProbability(benchmark, 50)
		resp["packages"] = h.marketEngine.RecommendPackages(
			baseCost, benchmark, winProbability, h.pricingCfg.MinMargin, h.pricingCfg.MaxMargin)
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListCalculations handles GET /calculations requests.
// Query parameters: region, sinceDays.
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	sinceDays := 90
	if v := r.URL.Query().Get("sinceDays"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "sinceDays must be a positive integer",
			})
			return
		}
		sinceDays = parsed
	}

	since := time.Now().UTC().AddDate(0, 0, -sinceDays)
	records, err := h.repo.ListCalculations(r.Context(), r.URL.Query().Get("region"), since)
	if err != nil {
		slog.Error("failed to list calculations", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load calculations",
		})
		return
	}

	proposals := make([]domain.ProposalRecord, len(records))
	for i, rec := range records {
		proposals[i] = domain.ProposalRecord{
			ID:          rec.ID,
			Status:      rec.Status,
			Region:      rec.Region,
			ProjectType: rec.ProjectType,
			TotalCost:   rec.TotalCost,
			CreatedAt:   rec.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"calculations": records,
		"count":        len(records),
		"stats":        market.Summarize(proposals),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
