/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built store networks that populate the database with
	realistic goals, results, locks, evaluations and occupancy costs. The
	definitions live in scenarios.yaml; months are relative to the current
	calendar month so dashboards always have recent data.

AVAILABLE SCENARIOS:

	demo-network:  Four stores, two regions, three months, last month locked
	single-store:  One store with goals and no results yet
	empty-network: Stores without goals, ready for a spreadsheet import

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create each store
 3. Save goals and weights per month through kpi.Service
 4. Save results (bypassing locks) and then apply the locks
 5. Add evaluations and occupancy costs

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "demo-network"}

ADDING NEW SCENARIOS:

	Add an entry to scenarios.yaml. No code change is needed.

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Endpoints that read the loaded data
  - cmd/server/main.go: SEED_SCENARIO loads one on startup
*/
package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/store-performance/analytics"
	"github.com/warp/store-performance/kpi"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

//go:embed scenarios.yaml
var scenariosYAML []byte

type scenarioFile struct {
	Scenarios []scenarioDef `yaml:"scenarios"`
}

type scenarioDef struct {
	ScenarioDTO `yaml:",inline"`
	Stores      []scenarioStore `yaml:"stores"`
}

type scenarioStore struct {
	Code        string               `yaml:"code"`
	Name        string               `yaml:"name"`
	Region      string               `yaml:"region"`
	Months      []scenarioMonth      `yaml:"months"`
	Evaluations []scenarioEvaluation `yaml:"evaluations"`
	Occupancy   *scenarioOccupancy   `yaml:"occupancy"`
}

type scenarioMonth struct {
	Ago     int         `yaml:"ago"`
	Goals   kpi.Values  `yaml:"goals"`
	Weights kpi.Weights `yaml:"weights"`
	Results kpi.Values  `yaml:"results"`
	Locked  bool        `yaml:"locked"`
}

type scenarioEvaluation struct {
	Ago      int     `yaml:"ago"`
	Pillar   string  `yaml:"pillar"`
	Score    float64 `yaml:"score"`
	Approved bool    `yaml:"approved"`
}

type scenarioOccupancy struct {
	Ago           int    `yaml:"ago"`
	Rent          string `yaml:"rent"`
	CondoFees     string `yaml:"condo_fees"`
	PropertyTax   string `yaml:"property_tax"`
	MarketingFund string `yaml:"marketing_fund"`
	Other         string `yaml:"other"`
}

var scenarios = mustParseScenarios(scenariosYAML)

func mustParseScenarios(data []byte) []scenarioDef {
	var f scenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		panic(fmt.Sprintf("scenarios.yaml: %v", err))
	}
	return f.Scenarios
}

func findScenario(id string) (scenarioDef, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenarioDef{}, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, 0, len(scenarios))
	for _, s := range scenarios {
		dtos = append(dtos, s.ScenarioDTO)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if s, ok := findScenario(h.currentScenario); ok {
		writeJSON(w, http.StatusOK, s.ScenarioDTO)
		return
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, ok := findScenario(req.ScenarioID); !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID, time.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADER
// =============================================================================

// LoadScenarioByID resets the database and loads scenario id with months
// counted back from the period containing now.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string, now time.Time) error {
	def, ok := findScenario(id)
	if !ok {
		return fmt.Errorf("unknown scenario %q", id)
	}

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	h.currentScenario = ""

	current := kpi.PeriodOf(now)
	for _, s := range def.Stores {
		if err := h.loadScenarioStore(ctx, s, current, now); err != nil {
			return fmt.Errorf("store %s: %w", s.Code, err)
		}
	}

	h.currentScenario = id
	h.Log.WithField("scenario", id).WithField("stores", len(def.Stores)).Info("scenario loaded")
	return nil
}

func (h *Handler) loadScenarioStore(ctx context.Context, s scenarioStore, current kpi.Period, now time.Time) error {
	st := kpi.Store{
		ID:     kpi.StoreID(uuid.NewString()),
		Code:   s.Code,
		Name:   s.Name,
		Region: s.Region,
	}
	if err := h.Store.CreateStore(ctx, st); err != nil {
		return err
	}

	for _, m := range s.Months {
		p := monthsAgo(current, m.Ago)
		if len(m.Goals) > 0 {
			var weights kpi.Weights
			if len(m.Weights) > 0 {
				weights = m.Weights
			}
			if _, err := h.Service.SaveGoals(ctx, st.ID, p, m.Goals, weights); err != nil {
				return err
			}
		}
		if len(m.Results) > 0 {
			if _, err := h.Service.SaveStoreResults(ctx, st.ID, p, m.Results, true); err != nil {
				return err
			}
		}
		if m.Locked {
			if _, err := h.Service.SetLock(ctx, st.ID, p, true); err != nil {
				return err
			}
		}
	}

	for _, e := range s.Evaluations {
		status := kpi.EvaluationPending
		var reviewed *time.Time
		if e.Approved {
			status = kpi.EvaluationApproved
			at := now.UTC()
			reviewed = &at
		}
		err := h.Store.SaveEvaluation(ctx, kpi.Evaluation{
			ID:         uuid.NewString(),
			StoreID:    st.ID,
			Pillar:     kpi.Pillar(e.Pillar),
			Period:     monthsAgo(current, e.Ago),
			Score:      e.Score,
			Status:     status,
			CreatedAt:  now.UTC(),
			ReviewedAt: reviewed,
		})
		if err != nil {
			return err
		}
	}

	if o := s.Occupancy; o != nil {
		costs := analytics.OccupancyCosts{
			Rent:          scenarioDecimal(o.Rent),
			CondoFees:     scenarioDecimal(o.CondoFees),
			PropertyTax:   scenarioDecimal(o.PropertyTax),
			MarketingFund: scenarioDecimal(o.MarketingFund),
			Other:         scenarioDecimal(o.Other),
		}
		if err := h.Store.SaveOccupancyCosts(ctx, st.ID, monthsAgo(current, o.Ago), costs); err != nil {
			return err
		}
	}
	return nil
}

func monthsAgo(p kpi.Period, n int) kpi.Period {
	for i := 0; i < n; i++ {
		p = p.Prev()
	}
	return p
}

func scenarioDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(s)
}
