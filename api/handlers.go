/*
handlers.go - HTTP API handlers for the store performance engine

PURPOSE:
  Exposes goals, results, scoring and network analytics via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  kpi, importer and analytics packages.

ENDPOINTS:
  Stores:
    GET    /api/stores                              List stores
    POST   /api/stores                              Create store
    GET    /api/stores/{id}                         Get store
    GET    /api/stores/{id}/audit                   Audit trail

  Goals and results:
    GET    /api/stores/{id}/goals/{period}          Goals + weights
    PUT    /api/stores/{id}/goals/{period}          Save goals (+ weights)
    GET    /api/stores/{id}/results/{period}        Store and collaborator actuals
    PUT    /api/stores/{id}/results/{period}        Save store actuals
    PUT    /api/stores/{id}/collaborator-results/{period}
    PUT    /api/stores/{id}/locks/{period}          Lock or unlock results entry
    POST   /api/weights/rebalance                   Slider move, no persistence

  Analytics:
    GET    /api/stores/{id}/score/{period}          Score + breakdown
    GET    /api/stores/{id}/gaps/{period}           Gap analysis
    GET    /api/stores/{id}/history/{period}        Score trend ending at period
    GET    /api/stores/{id}/pillars/{period}        4-pillar radar
    GET    /api/stores/{id}/occupancy/{period}      CTO report
    PUT    /api/stores/{id}/occupancy/{period}      Save occupancy costs
    GET    /api/dashboard/{period}?region=          Network dashboard

  Evaluations:
    GET    /api/stores/{id}/evaluations?period=
    POST   /api/stores/{id}/evaluations
    POST   /api/evaluations/{id}/approve        Manager only
    POST   /api/evaluations/{id}/reject         Manager only

  Imports:
    POST   /api/imports/{kind}?period=              CSV/XLSX upload (field "file")
    GET    /api/imports                             Import history

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate code, concurrent edit that kept losing)
  - 423: Results for the period are locked
  - 500: Internal errors

ROLES:
  "X-User-Role: manager" may write results into a locked period, change
  locks and review evaluations. "X-User" names the actor in the audit trail.
  Authentication is out of scope; see server.go.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/store-performance/analytics"
	"github.com/warp/store-performance/importer"
	"github.com/warp/store-performance/kpi"
	"github.com/warp/store-performance/store/sqlite"
)

const (
	headerUser  = "X-User"
	headerRole  = "X-User-Role"
	roleManager = "manager"

	maxUploadSize  = 10 << 20
	defaultHistory = 6
	maxHistory     = 24
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Service  *kpi.Service
	Importer *importer.Importer
	Log      logrus.FieldLogger

	// LockScheduler is optional; set by main when the scheduler runs.
	LockScheduler *ResultsLockScheduler

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Store:    store,
		Service:  kpi.NewService(store),
		Importer: importer.New(store, log.WithField("component", "importer")),
		Log:      log,
	}
}

// =============================================================================
// STORE ENDPOINTS
// =============================================================================

// ListStores returns all stores.
func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.Store.ListStores(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]StoreDTO, 0, len(stores))
	for i := range stores {
		dtos = append(dtos, toStoreDTO(&stores[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateStore creates a new store.
func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	var req CreateStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "code and name are required", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	st := kpi.Store{
		ID:     kpi.StoreID(req.ID),
		Code:   req.Code,
		Name:   strings.TrimSpace(req.Name),
		Region: strings.TrimSpace(req.Region),
	}
	if err := h.Store.CreateStore(r.Context(), st); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	created, err := h.Store.GetStore(r.Context(), st.ID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStoreDTO(created))
}

// GetStore returns a single store.
func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	st, err := h.Store.GetStore(r.Context(), storeID(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStoreDTO(st))
}

// GetAudit returns the store's audit trail, newest first.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	id := storeID(r)
	if _, err := h.Store.GetStore(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.Store.ListAudit(r.Context(), id, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	dtos := make([]AuditEventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, toAuditEventDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// GOALS AND WEIGHTS
// =============================================================================

// GetGoals returns one period of goals with the weights in effect.
func (h *Handler) GetGoals(w http.ResponseWriter, r *http.Request) {
	st, p, ok := h.loadStorePeriod(w, r)
	if !ok {
		return
	}

	goals := st.Goals.Get(p)
	if goals == nil {
		goals = kpi.Values{}
	}
	writeJSON(w, http.StatusOK, GoalsDTO{
		StoreID:        string(st.ID),
		Period:         p,
		Goals:          goals,
		Weights:        st.WeightsFor(p),
		DefaultWeights: len(st.Weights.Get(p)) == 0,
		Version:        st.Version,
	})
}

// SaveGoals persists the goal-entry form for one period.
func (h *Handler) SaveGoals(w http.ResponseWriter, r *http.Request) {
	p, err := kpi.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period", err)
		return
	}

	var req SaveGoalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := validateValues(req.Goals); err != nil {
		writeError(w, http.StatusBadRequest, "invalid goals", err)
		return
	}
	if err := validateValues(kpi.Values(req.Weights)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid weights", err)
		return
	}

	st, err := h.Service.SaveGoals(r.Context(), storeID(r), p, req.Goals, req.Weights)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.audit(r, sqlite.AuditGoalsSaved, st.ID, p, map[string]any{"goals": req.Goals, "weights": req.Weights})
	writeJSON(w, http.StatusOK, GoalsDTO{
		StoreID:        string(st.ID),
		Period:         p,
		Goals:          st.Goals.Get(p),
		Weights:        st.WeightsFor(p),
		DefaultWeights: len(st.Weights.Get(p)) == 0,
		Version:        st.Version,
	})
}

// Rebalance applies one slider move and returns balanced weights. Nothing
// is persisted; the form saves the final vector with its goals.
func (h *Handler) Rebalance(w http.ResponseWriter, r *http.Request) {
	var req RebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	changed, err := kpi.ParseKPI(req.Changed)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid kpi", err)
		return
	}
	if err := validateValues(kpi.Values(req.Weights)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid weights", err)
		return
	}
	current := req.Weights
	if len(current) == 0 {
		current = kpi.DefaultWeights()
	}

	next := kpi.Rebalance(current, changed, kpi.ClampWeight(req.NewValue))
	writeJSON(w, http.StatusOK, RebalanceResponse{Weights: next, Sum: next.Sum()})
}

// =============================================================================
// RESULTS
// =============================================================================

// GetResults returns one period of actuals.
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	st, p, ok := h.loadStorePeriod(w, r)
	if !ok {
		return
	}

	results := st.StoreResults.Get(p)
	if results == nil {
		results = kpi.Values{}
	}
	collaborators := st.CollaboratorResults.Get(p)
	if collaborators == nil {
		collaborators = kpi.CollaboratorValues{}
	}
	writeJSON(w, http.StatusOK, ResultsDTO{
		StoreID:       string(st.ID),
		Period:        p,
		Results:       results,
		Collaborators: collaborators,
		Locked:        st.IsLocked(p),
		Version:       st.Version,
	})
}

// SaveResults persists store-level actuals, deriving blank fields from the
// raw counters.
func (h *Handler) SaveResults(w http.ResponseWriter, r *http.Request) {
	p, err := kpi.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period", err)
		return
	}

	var req SaveResultsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := validateValues(req.Results); err != nil {
		writeError(w, http.StatusBadRequest, "invalid results", err)
		return
	}

	results := kpi.DeriveResults(kpi.ResultsInput{
		Values:       req.Results,
		Transactions: req.Transactions,
		Items:        req.Items,
		Visitors:     req.Visitors,
	})
	st, err := h.Service.SaveStoreResults(r.Context(), storeID(r), p, results, isManager(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.audit(r, sqlite.AuditResultsSaved, st.ID, p, map[string]any{"results": results})
	writeJSON(w, http.StatusOK, ResultsDTO{
		StoreID:       string(st.ID),
		Period:        p,
		Results:       st.StoreResults.Get(p),
		Collaborators: st.CollaboratorResults.Get(p),
		Locked:        st.IsLocked(p),
		Version:       st.Version,
	})
}

// SaveCollaboratorResults persists per-collaborator actuals.
func (h *Handler) SaveCollaboratorResults(w http.ResponseWriter, r *http.Request) {
	p, err := kpi.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period", err)
		return
	}

	var req SaveCollaboratorResultsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	for collaborator, values := range req.Collaborators {
		if strings.TrimSpace(collaborator) == "" {
			writeError(w, http.StatusBadRequest, "collaborator id is required", nil)
			return
		}
		if err := validateValues(values); err != nil {
			writeError(w, http.StatusBadRequest, "invalid results for "+collaborator, err)
			return
		}
	}

	st, err := h.Service.SaveCollaboratorResults(r.Context(), storeID(r), p, req.Collaborators, isManager(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.audit(r, sqlite.AuditResultsSaved, st.ID, p, map[string]any{"collaborators": len(req.Collaborators)})
	writeJSON(w, http.StatusOK, ResultsDTO{
		StoreID:       string(st.ID),
		Period:        p,
		Results:       st.StoreResults.Get(p),
		Collaborators: st.CollaboratorResults.Get(p),
		Locked:        st.IsLocked(p),
		Version:       st.Version,
	})
}

// SetLock freezes or reopens result entry. Managers only.
func (h *Handler) SetLock(w http.ResponseWriter, r *http.Request) {
	if !isManager(r) {
		writeError(w, http.StatusForbidden, "only managers can change result locks", nil)
		return
	}
	p, err := kpi.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period", err)
		return
	}

	var req LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	st, err := h.Service.SetLock(r.Context(), storeID(r), p, req.Locked)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	eventType := sqlite.AuditPeriodUnlocked
	if req.Locked {
		eventType = sqlite.AuditPeriodLocked
	}
	h.audit(r, eventType, st.ID, p, nil)
	writeJSON(w, http.StatusOK, toStoreDTO(st))
}

// =============================================================================
// ANALYTICS
// =============================================================================

// GetScore returns the store score and its per-KPI breakdown.
func (h *Handler) GetScore(w http.ResponseWriter, r *http.Request) {
	st, p, ok := h.loadStorePeriod(w, r)
	if !ok {
		return
	}

	weights := st.WeightsFor(p)
	writeJSON(w, http.StatusOK, ScoreDTO{
		StoreID:   string(st.ID),
		Period:    p,
		Score:     kpi.StoreScore(st, p),
		Locked:    st.IsLocked(p),
		Breakdown: toAchievementDTOs(kpi.Breakdown(st.Goals.Get(p), st.StoreResults.Get(p), weights)),
	})
}

// GetGaps returns the gap analysis for one period.
func (h *Handler) GetGaps(w http.ResponseWriter, r *http.Request) {
	st, p, ok := h.loadStorePeriod(w, r)
	if !ok {
		return
	}

	gaps := analytics.GapAnalysis(st.Goals.Get(p), st.StoreResults.Get(p))
	resp := GapsResponse{StoreID: string(st.ID), Period: p, Gaps: toGapDTOs(gaps)}
	if worst, found := analytics.LargestGap(gaps); found {
		resp.Focus = &worst.KPI
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetHistory returns the score trend ending at the given period.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	st, p, ok := h.loadStorePeriod(w, r)
	if !ok {
		return
	}

	months := defaultHistory
	if raw := r.URL.Query().Get("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistory {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("months must be between 1 and %d", maxHistory), err)
			return
		}
		months = n
	}

	history := analytics.ScoreHistory(st, p, months)
	dtos := make([]PeriodScoreDTO, 0, len(history))
	for _, ps := range history {
		dtos = append(dtos, PeriodScoreDTO{Period: ps.Period, Score: ps.Score})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDashboard returns the network dashboard for one period.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := kpi.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period", err)
		return
	}

	stores, err := h.Store.ListStores(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	region := strings.TrimSpace(r.URL.Query().Get("region"))
	filter := analytics.Filter{Region: region}
	if ids := r.URL.Query().Get("stores"); ids != "" {
		for _, id := range strings.Split(ids, ",") {
			filter.StoreIDs = append(filter.StoreIDs, kpi.StoreID(strings.TrimSpace(id)))
		}
	}

	writeJSON(w, http.StatusOK, toDashboardDTO(analytics.NetworkDashboard(stores, p, filter), region))
}

// GetPillars returns the 4-pillar radar.
func (h *Handler) GetPillars(w http.ResponseWriter, r *http.Request) {
	st, p, ok := h.loadStorePeriod(w, r)
	if !ok {
		return
	}

	evaluations, err := h.Store.ListEvaluations(r.Context(), st.ID, p)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	radar := analytics.PillarScores(kpi.StoreScore(st, p), evaluations, p)
	resp := PillarsResponse{
		StoreID: string(st.ID),
		Period:  p,
		Overall: analytics.OverallPillarScore(radar),
		Pillars: make([]PillarDTO, 0, len(radar)),
	}
	for _, ps := range radar {
		resp.Pillars = append(resp.Pillars, PillarDTO(ps))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetOccupancy returns the CTO report. Missing costs count as zero.
func (h *Handler) GetOccupancy(w http.ResponseWriter, r *http.Request) {
	st, p, ok := h.loadStorePeriod(w, r)
	if !ok {
		return
	}

	costs, err := h.Store.GetOccupancyCosts(r.Context(), st.ID, p)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if costs == nil {
		costs = &analytics.OccupancyCosts{}
	}
	writeJSON(w, http.StatusOK, occupancyDTO(st, p, *costs))
}

// SaveOccupancy stores the month's occupancy costs and returns the report.
func (h *Handler) SaveOccupancy(w http.ResponseWriter, r *http.Request) {
	st, p, ok := h.loadStorePeriod(w, r)
	if !ok {
		return
	}

	var req OccupancyCostsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	costs := analytics.OccupancyCosts(req)
	for _, c := range []decimal.Decimal{costs.Rent, costs.CondoFees, costs.PropertyTax, costs.MarketingFund, costs.Other} {
		if c.IsNegative() {
			writeError(w, http.StatusBadRequest, "costs must not be negative", nil)
			return
		}
	}

	if err := h.Store.SaveOccupancyCosts(r.Context(), st.ID, p, costs); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, occupancyDTO(st, p, costs))
}

func occupancyDTO(st *kpi.Store, p kpi.Period, costs analytics.OccupancyCosts) OccupancyDTO {
	revenue := decimal.NewFromFloat(st.StoreResults.Get(p).Get(kpi.Faturamento))
	report := analytics.OccupancyCost(costs, revenue)
	return OccupancyDTO{
		StoreID:        string(st.ID),
		Period:         p,
		Costs:          OccupancyCostsRequest(costs),
		Total:          report.Total,
		Revenue:        report.Revenue,
		Percent:        report.Percent,
		Status:         report.Status,
		HealthyRevenue: report.HealthyRevenue,
	}
}

// =============================================================================
// EVALUATIONS
// =============================================================================

// ListEvaluations returns a store's evaluations, optionally for one period.
func (h *Handler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	id := storeID(r)
	if _, err := h.Store.GetStore(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	var p kpi.Period
	if raw := r.URL.Query().Get("period"); raw != "" {
		parsed, err := kpi.ParsePeriod(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid period", err)
			return
		}
		p = parsed
	}

	evaluations, err := h.Store.ListEvaluations(r.Context(), id, p)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	dtos := make([]EvaluationDTO, 0, len(evaluations))
	for _, e := range evaluations {
		dtos = append(dtos, toEvaluationDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEvaluation records a pending evaluation.
func (h *Handler) CreateEvaluation(w http.ResponseWriter, r *http.Request) {
	id := storeID(r)
	if _, err := h.Store.GetStore(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	var req CreateEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	p, err := kpi.ParsePeriod(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period", err)
		return
	}
	pillar := kpi.Pillar(strings.ToLower(strings.TrimSpace(req.Pillar)))
	if !pillar.Valid() || pillar == kpi.PillarPerformance {
		writeError(w, http.StatusBadRequest, "invalid pillar", fmt.Errorf("%q cannot be evaluated by form", req.Pillar))
		return
	}
	if req.Score < 0 || req.Score > 100 {
		writeError(w, http.StatusBadRequest, "score must be between 0 and 100", nil)
		return
	}

	e := kpi.Evaluation{
		ID:             uuid.NewString(),
		StoreID:        id,
		CollaboratorID: strings.TrimSpace(req.CollaboratorID),
		Pillar:         pillar,
		Period:         p,
		Score:          req.Score,
		Status:         kpi.EvaluationPending,
		Notes:          req.Notes,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.Store.SaveEvaluation(r.Context(), e); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEvaluationDTO(e))
}

// ApproveEvaluation marks an evaluation approved so it counts on the radar.
func (h *Handler) ApproveEvaluation(w http.ResponseWriter, r *http.Request) {
	h.reviewEvaluation(w, r, kpi.EvaluationApproved)
}

// RejectEvaluation marks an evaluation rejected.
func (h *Handler) RejectEvaluation(w http.ResponseWriter, r *http.Request) {
	h.reviewEvaluation(w, r, kpi.EvaluationRejected)
}

func (h *Handler) reviewEvaluation(w http.ResponseWriter, r *http.Request, status kpi.EvaluationStatus) {
	if !isManager(r) {
		writeError(w, http.StatusForbidden, "only managers can review evaluations", nil)
		return
	}

	e, err := h.Store.ReviewEvaluation(r.Context(), chi.URLParam(r, "id"), status, time.Now())
	if errors.Is(err, kpi.ErrEvaluationReviewed) {
		writeError(w, http.StatusConflict, "evaluation already reviewed", err)
		return
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvaluationDTO(*e))
}

// =============================================================================
// IMPORTS
// =============================================================================

// Import applies an uploaded CSV or XLSX sheet of goals or store results.
// Row problems are reported in the body; only a bad file fails the request.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	kind, err := importer.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid import kind", err)
		return
	}
	p, err := kpi.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "period query parameter is required (YYYY-MM)", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required", err)
		return
	}
	defer file.Close()

	sheet, err := importer.Parse(header.Filename, file)
	if err != nil {
		var missing *importer.MissingHeadersError
		if errors.As(err, &missing) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "missing required columns",
				Code:    "missing_headers",
				Details: missing.Missing,
			})
			return
		}
		writeError(w, http.StatusBadRequest, "could not read sheet", err)
		return
	}

	report, err := h.Importer.Apply(r.Context(), sheet, kind, p)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	body, err := json.Marshal(report)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	runID, err := h.Store.SaveImportRun(r.Context(), sqlite.ImportRun{
		Kind:          string(kind),
		Filename:      header.Filename,
		DefaultPeriod: string(p),
		Total:         report.Total,
		Imported:      report.Imported,
		ReportJSON:    string(body),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	for _, id := range report.Stores {
		h.audit(r, sqlite.AuditImport, id, p, map[string]any{"import_id": runID, "kind": string(kind)})
	}

	writeJSON(w, http.StatusOK, ImportResponse{ID: runID, Filename: header.Filename, Report: report})
}

// ListImports returns the import history.
func (h *Handler) ListImports(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.Store.ListImportRuns(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	dtos := make([]ImportRunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toImportRunDTO(run))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN
// =============================================================================

// RunLockScheduler triggers the results-lock check immediately.
func (h *Handler) RunLockScheduler(w http.ResponseWriter, r *http.Request) {
	if !isManager(r) {
		writeError(w, http.StatusForbidden, "only managers can run the lock scheduler", nil)
		return
	}
	if h.LockScheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "lock scheduler is not configured", nil)
		return
	}
	locked := h.LockScheduler.RunNow()
	writeJSON(w, http.StatusOK, map[string]any{
		"locked": locked,
		"period": h.LockScheduler.TargetPeriod(h.LockScheduler.Now()),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func storeID(r *http.Request) kpi.StoreID {
	return kpi.StoreID(chi.URLParam(r, "id"))
}

func isManager(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get(headerRole), roleManager)
}

func actor(r *http.Request) string {
	if u := strings.TrimSpace(r.Header.Get(headerUser)); u != "" {
		return u
	}
	return "anonymous"
}

// loadStorePeriod resolves {id} and {period}, writing the error response
// itself when either is bad.
func (h *Handler) loadStorePeriod(w http.ResponseWriter, r *http.Request) (*kpi.Store, kpi.Period, bool) {
	p, err := kpi.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period", err)
		return nil, "", false
	}
	st, err := h.Store.GetStore(r.Context(), storeID(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, "", false
	}
	return st, p, true
}

// validateValues rejects KPI names outside the fixed set.
func validateValues(v kpi.Values) error {
	for k := range v {
		if !k.Valid() {
			return fmt.Errorf("%w: %q", kpi.ErrInvalidKPI, k)
		}
	}
	return nil
}

// audit records an event; failures are logged, never returned to the client.
func (h *Handler) audit(r *http.Request, eventType string, id kpi.StoreID, p kpi.Period, payload map[string]any) {
	err := h.Store.AppendAudit(context.WithoutCancel(r.Context()), sqlite.AuditEvent{
		Actor:   actor(r),
		Type:    eventType,
		StoreID: id,
		Period:  p,
		Payload: payload,
	})
	if err != nil {
		h.Log.WithError(err).WithFields(logrus.Fields{"store": id, "type": eventType}).Warn("audit append failed")
	}
}

// writeDomainError maps kpi errors to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var locked *kpi.PeriodLockedError
	switch {
	case errors.As(err, &locked):
		writeJSON(w, http.StatusLocked, ErrorResponse{
			Error:   "results for this period are locked",
			Code:    "period_locked",
			Details: map[string]string{"store_id": string(locked.StoreID), "period": string(locked.Period)},
		})
	case kpi.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case kpi.IsConflict(err):
		writeError(w, http.StatusConflict, "conflict", err)
	case kpi.IsClientError(err):
		writeError(w, http.StatusBadRequest, "invalid input", err)
	default:
		h.Log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
