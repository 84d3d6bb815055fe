/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model (kpi, analytics) from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Stores:
    StoreDTO, CreateStoreRequest

  Goals and results:
    GoalsDTO, SaveGoalsRequest, ResultsDTO, SaveResultsRequest,
    SaveCollaboratorResultsRequest, LockRequest

  Weights:
    RebalanceRequest, RebalanceResponse

  Analytics:
    ScoreDTO, GapDTO, DashboardDTO, PillarDTO, OccupancyDTO

  Evaluations:
    EvaluationDTO, CreateEvaluationRequest

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/store-performance/analytics"
	"github.com/warp/store-performance/importer"
	"github.com/warp/store-performance/kpi"
	"github.com/warp/store-performance/store/sqlite"
)

// =============================================================================
// STORES
// =============================================================================

// StoreDTO represents a store in API responses. Blobs are omitted; clients
// fetch one period at a time.
type StoreDTO struct {
	ID            string       `json:"id"`
	Code          string       `json:"code"`
	Name          string       `json:"name"`
	Region        string       `json:"region"`
	Version       int64        `json:"version"`
	GoalPeriods   []kpi.Period `json:"goal_periods"`
	LockedPeriods []kpi.Period `json:"locked_periods"`
	UpdatedAt     string       `json:"updated_at,omitempty"`
}

// CreateStoreRequest is the request body for creating a store.
type CreateStoreRequest struct {
	ID     string `json:"id,omitempty"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

// =============================================================================
// GOALS, WEIGHTS, RESULTS
// =============================================================================

// GoalsDTO is one period of goals with the weights the scorer will use.
type GoalsDTO struct {
	StoreID string      `json:"store_id"`
	Period  kpi.Period  `json:"period"`
	Goals   kpi.Values  `json:"goals"`
	Weights kpi.Weights `json:"weights"`
	// DefaultWeights is true when no weights were saved for the period.
	DefaultWeights bool  `json:"default_weights"`
	Version        int64 `json:"version"`
}

// SaveGoalsRequest is the goal-entry form. Weights are optional; when sent
// they must add up to 100.
type SaveGoalsRequest struct {
	Goals   kpi.Values  `json:"goals"`
	Weights kpi.Weights `json:"weights,omitempty"`
}

// ResultsDTO is one period of store-level actuals.
type ResultsDTO struct {
	StoreID       string                 `json:"store_id"`
	Period        kpi.Period             `json:"period"`
	Results       kpi.Values             `json:"results"`
	Collaborators kpi.CollaboratorValues `json:"collaborators"`
	Locked        bool                   `json:"locked"`
	Version       int64                  `json:"version"`
}

// SaveResultsRequest is the results-entry form. Transactions, Items and
// Visitors feed the derived fields when those are left blank.
type SaveResultsRequest struct {
	Results      kpi.Values `json:"results"`
	Transactions float64    `json:"transactions,omitempty"`
	Items        float64    `json:"items,omitempty"`
	Visitors     float64    `json:"visitors,omitempty"`
}

// SaveCollaboratorResultsRequest maps collaborator ids to their actuals.
type SaveCollaboratorResultsRequest struct {
	Collaborators kpi.CollaboratorValues `json:"collaborators"`
}

// LockRequest freezes or reopens result entry for a period.
type LockRequest struct {
	Locked bool `json:"locked"`
}

// RebalanceRequest is one slider move.
type RebalanceRequest struct {
	Weights  kpi.Weights `json:"weights"`
	Changed  string      `json:"changed"`
	NewValue float64     `json:"new_value"`
}

// RebalanceResponse carries the rebalanced weights; Sum is always 100.
type RebalanceResponse struct {
	Weights kpi.Weights `json:"weights"`
	Sum     float64     `json:"sum"`
}

// =============================================================================
// ANALYTICS
// =============================================================================

// KPIAchievementDTO is one KPI line of a score breakdown.
type KPIAchievementDTO struct {
	KPI         kpi.KPI `json:"kpi"`
	Goal        float64 `json:"goal"`
	Result      float64 `json:"result"`
	Weight      float64 `json:"weight"`
	Achievement float64 `json:"achievement"`
	InPlay      bool    `json:"in_play"`
}

// ScoreDTO is a store's score for one period. Score is null without data.
type ScoreDTO struct {
	StoreID   string              `json:"store_id"`
	Period    kpi.Period          `json:"period"`
	Score     *int                `json:"score"`
	Locked    bool                `json:"locked"`
	Breakdown []KPIAchievementDTO `json:"breakdown"`
}

// GapDTO is one KPI of a gap analysis.
type GapDTO struct {
	KPI         kpi.KPI `json:"kpi"`
	Goal        float64 `json:"goal"`
	Result      float64 `json:"result"`
	Remaining   float64 `json:"remaining"`
	Surplus     float64 `json:"surplus"`
	Achievement float64 `json:"achievement"`
	InPlay      bool    `json:"in_play"`
}

// GapsResponse lists gaps and points at the weakest KPI.
type GapsResponse struct {
	StoreID string     `json:"store_id"`
	Period  kpi.Period `json:"period"`
	Gaps    []GapDTO   `json:"gaps"`
	Focus   *kpi.KPI   `json:"focus"`
}

// PeriodScoreDTO is one point of the trend chart.
type PeriodScoreDTO struct {
	Period kpi.Period `json:"period"`
	Score  *int       `json:"score"`
}

// StoreRowDTO is one line of the dashboard ranking.
type StoreRowDTO struct {
	Rank    int                 `json:"rank"`
	StoreID string              `json:"store_id"`
	Code    string              `json:"code"`
	Name    string              `json:"name"`
	Region  string              `json:"region"`
	Score   *int                `json:"score"`
	Locked  bool                `json:"locked"`
	KPIs    []KPIAchievementDTO `json:"kpis"`
}

// KPITotalDTO is one KPI summed across the filtered network.
type KPITotalDTO struct {
	KPI         kpi.KPI `json:"kpi"`
	Goal        float64 `json:"goal"`
	Result      float64 `json:"result"`
	Achievement float64 `json:"achievement"`
	InPlay      bool    `json:"in_play"`
}

// DashboardDTO is the network dashboard for one period.
type DashboardDTO struct {
	Period       kpi.Period    `json:"period"`
	Region       string        `json:"region,omitempty"`
	NetworkScore float64       `json:"network_score"`
	Scored       int           `json:"scored"`
	WithoutData  int           `json:"without_data"`
	Stores       []StoreRowDTO `json:"stores"`
	KPITotals    []KPITotalDTO `json:"kpi_totals"`
}

// PillarDTO is one axis of the radar.
type PillarDTO struct {
	Pillar kpi.Pillar `json:"pillar"`
	Score  *float64   `json:"score"`
	Count  int        `json:"count"`
}

// PillarsResponse is the radar plus its overall mean.
type PillarsResponse struct {
	StoreID string      `json:"store_id"`
	Period  kpi.Period  `json:"period"`
	Overall float64     `json:"overall"`
	Pillars []PillarDTO `json:"pillars"`
}

// OccupancyCostsRequest carries monetary values as decimal strings.
type OccupancyCostsRequest struct {
	Rent          decimal.Decimal `json:"rent"`
	CondoFees     decimal.Decimal `json:"condo_fees"`
	PropertyTax   decimal.Decimal `json:"property_tax"`
	MarketingFund decimal.Decimal `json:"marketing_fund"`
	Other         decimal.Decimal `json:"other"`
}

// OccupancyDTO is the CTO report for one store and period. Revenue comes
// from the store's faturamento result.
type OccupancyDTO struct {
	StoreID        string                `json:"store_id"`
	Period         kpi.Period            `json:"period"`
	Costs          OccupancyCostsRequest `json:"costs"`
	Total          decimal.Decimal       `json:"total"`
	Revenue        decimal.Decimal       `json:"revenue"`
	Percent        decimal.Decimal       `json:"percent"`
	Status         analytics.CTOStatus   `json:"status"`
	HealthyRevenue decimal.Decimal       `json:"healthy_revenue"`
}

// =============================================================================
// EVALUATIONS
// =============================================================================

// EvaluationDTO represents a collaborator evaluation.
type EvaluationDTO struct {
	ID             string     `json:"id"`
	StoreID        string     `json:"store_id"`
	CollaboratorID string     `json:"collaborator_id,omitempty"`
	Pillar         kpi.Pillar `json:"pillar"`
	Period         kpi.Period `json:"period"`
	Score          float64    `json:"score"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
}

// CreateEvaluationRequest is the request body for a new evaluation.
type CreateEvaluationRequest struct {
	CollaboratorID string  `json:"collaborator_id"`
	Pillar         string  `json:"pillar"`
	Period         string  `json:"period"`
	Score          float64 `json:"score"`
	Notes          string  `json:"notes"`
}

// =============================================================================
// IMPORTS AND AUDIT
// =============================================================================

// ImportResponse is returned after an upload.
type ImportResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	*importer.Report
}

// ImportRunDTO is one entry of the import history.
type ImportRunDTO struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Filename      string    `json:"filename"`
	DefaultPeriod string    `json:"default_period"`
	Total         int       `json:"total"`
	Imported      int       `json:"imported"`
	CreatedAt     time.Time `json:"created_at"`
}

// AuditEventDTO is one audit trail entry.
type AuditEventDTO struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	Type      string         `json:"type"`
	Period    kpi.Period     `json:"period,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// LoadScenarioRequest is the request body for loading a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toStoreDTO(s *kpi.Store) StoreDTO {
	dto := StoreDTO{
		ID:            string(s.ID),
		Code:          s.Code,
		Name:          s.Name,
		Region:        s.Region,
		Version:       s.Version,
		GoalPeriods:   s.Goals.Periods(),
		LockedPeriods: []kpi.Period{},
	}
	for _, p := range s.ResultsLocks.Periods() {
		if s.IsLocked(p) {
			dto.LockedPeriods = append(dto.LockedPeriods, p)
		}
	}
	if !s.UpdatedAt.IsZero() {
		dto.UpdatedAt = s.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func toAchievementDTOs(rows []kpi.KPIAchievement) []KPIAchievementDTO {
	dtos := make([]KPIAchievementDTO, 0, len(rows))
	for _, r := range rows {
		dtos = append(dtos, KPIAchievementDTO(r))
	}
	return dtos
}

func toGapDTOs(gaps []analytics.Gap) []GapDTO {
	dtos := make([]GapDTO, 0, len(gaps))
	for _, g := range gaps {
		dtos = append(dtos, GapDTO(g))
	}
	return dtos
}

func toDashboardDTO(d analytics.Dashboard, region string) DashboardDTO {
	dto := DashboardDTO{
		Period:       d.Period,
		Region:       region,
		NetworkScore: d.NetworkScore,
		Scored:       d.Scored,
		WithoutData:  d.WithoutData,
		Stores:       make([]StoreRowDTO, 0, len(d.Stores)),
		KPITotals:    make([]KPITotalDTO, 0, len(d.KPITotals)),
	}
	for i, row := range d.Stores {
		dto.Stores = append(dto.Stores, StoreRowDTO{
			Rank:    i + 1,
			StoreID: string(row.StoreID),
			Code:    row.Code,
			Name:    row.Name,
			Region:  row.Region,
			Score:   row.Score,
			Locked:  row.Locked,
			KPIs:    toAchievementDTOs(row.KPIs),
		})
	}
	for _, t := range d.KPITotals {
		dto.KPITotals = append(dto.KPITotals, KPITotalDTO(t))
	}
	return dto
}

func toEvaluationDTO(e kpi.Evaluation) EvaluationDTO {
	return EvaluationDTO{
		ID:             e.ID,
		StoreID:        string(e.StoreID),
		CollaboratorID: e.CollaboratorID,
		Pillar:         e.Pillar,
		Period:         e.Period,
		Score:          e.Score,
		Status:         string(e.Status),
		Notes:          e.Notes,
		CreatedAt:      e.CreatedAt,
		ReviewedAt:     e.ReviewedAt,
	}
}

func toImportRunDTO(r sqlite.ImportRun) ImportRunDTO {
	return ImportRunDTO{
		ID:            r.ID,
		Kind:          r.Kind,
		Filename:      r.Filename,
		DefaultPeriod: r.DefaultPeriod,
		Total:         r.Total,
		Imported:      r.Imported,
		CreatedAt:     r.CreatedAt,
	}
}

func toAuditEventDTO(e sqlite.AuditEvent) AuditEventDTO {
	return AuditEventDTO{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Actor:     e.Actor,
		Type:      e.Type,
		Period:    e.Period,
		Payload:   e.Payload,
	}
}
