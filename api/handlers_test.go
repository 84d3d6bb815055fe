/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Store creation and lookup
- Goal entry with weight validation, scoring and gaps
- Result entry against locked periods (423) and the manager bypass
- Weight rebalancing endpoint
- Network dashboard, spreadsheet import, evaluations, occupancy cost
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/store-performance/kpi"
	"github.com/warp/store-performance/store/sqlite"
)

const testPeriod = "2025-03"

type testServer struct {
	handler *Handler
	router  http.Handler
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	h := NewHandler(store, log)
	return &testServer{handler: h, router: NewRouter(h, []string{"*"})}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) createStore(t *testing.T, id, code, region string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/stores", CreateStoreRequest{ID: id, Code: code, Name: "Loja " + code, Region: region})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func manager() []string {
	return []string{headerRole, roleManager, headerUser, "ana"}
}

func TestStores_CreateGetList(t *testing.T) {
	ts := setupTestServer(t)
	ts.createStore(t, "s1", "LJ001", "Sul")

	rec := ts.do(t, http.MethodGet, "/api/stores/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	store := decode[StoreDTO](t, rec)
	assert.Equal(t, "LJ001", store.Code)
	assert.Equal(t, int64(1), store.Version)

	rec = ts.do(t, http.MethodPost, "/api/stores", CreateStoreRequest{Code: "lj001", Name: "Dup"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/stores", CreateStoreRequest{Name: "No code"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/stores/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/stores", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]StoreDTO](t, rec), 1)
}

func TestGoals_SaveAndScore(t *testing.T) {
	ts := setupTestServer(t)
	ts.createStore(t, "s1", "LJ001", "Sul")

	// GIVEN: Weights that do not add up to 100
	bad := SaveGoalsRequest{
		Goals:   kpi.Values{kpi.Faturamento: 100000},
		Weights: kpi.Weights{kpi.Faturamento: 50, kpi.PA: 30},
	}
	rec := ts.do(t, http.MethodPut, "/api/stores/s1/goals/"+testPeriod, bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// WHEN: Goals and balanced weights are saved
	req := SaveGoalsRequest{
		Goals:   kpi.Values{kpi.Faturamento: 100000, kpi.PA: 3, kpi.Conversao: 10},
		Weights: kpi.Weights{kpi.Faturamento: 50, kpi.PA: 30, kpi.Conversao: 20},
	}
	rec = ts.do(t, http.MethodPut, "/api/stores/s1/goals/"+testPeriod, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	goals := decode[GoalsDTO](t, rec)
	assert.False(t, goals.DefaultWeights)
	assert.Equal(t, 100000.0, goals.Goals[kpi.Faturamento])

	rec = ts.do(t, http.MethodPut, "/api/stores/s1/results/"+testPeriod, SaveResultsRequest{
		Results: kpi.Values{kpi.Faturamento: 120000, kpi.PA: 2.4, kpi.Conversao: 8},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: Revenue caps at 100, PA and conversion reach 80
	rec = ts.do(t, http.MethodGet, "/api/stores/s1/score/"+testPeriod, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	score := decode[ScoreDTO](t, rec)
	require.NotNil(t, score.Score)
	assert.Equal(t, 90, *score.Score)
	assert.Len(t, score.Breakdown, len(kpi.All))

	rec = ts.do(t, http.MethodGet, "/api/stores/s1/gaps/"+testPeriod, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	gaps := decode[GapsResponse](t, rec)
	require.NotNil(t, gaps.Focus)
	assert.Equal(t, kpi.PA, *gaps.Focus)

	// Another period has no data
	rec = ts.do(t, http.MethodGet, "/api/stores/s1/score/2025-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[ScoreDTO](t, rec).Score)
}

func TestGoals_InvalidInput(t *testing.T) {
	ts := setupTestServer(t)
	ts.createStore(t, "s1", "LJ001", "Sul")

	rec := ts.do(t, http.MethodGet, "/api/stores/s1/goals/2025-13", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/stores/s1/goals/"+testPeriod, SaveGoalsRequest{Goals: kpi.Values{"vendas": 1}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/stores/missing/goals/"+testPeriod, SaveGoalsRequest{Goals: kpi.Values{kpi.PA: 1}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Fractional weights are rejected even when they total 100
	rec = ts.do(t, http.MethodPut, "/api/stores/s1/goals/"+testPeriod, SaveGoalsRequest{
		Goals:   kpi.Values{kpi.PA: 1},
		Weights: kpi.Weights{kpi.Faturamento: 50.5, kpi.PA: 49.5},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Without saved weights the defaults apply
	rec = ts.do(t, http.MethodGet, "/api/stores/s1/goals/"+testPeriod, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	goals := decode[GoalsDTO](t, rec)
	assert.True(t, goals.DefaultWeights)
	assert.Equal(t, 100.0, goals.Weights.Sum())
}

func TestResults_LockedPeriod(t *testing.T) {
	ts := setupTestServer(t)
	ts.createStore(t, "s1", "LJ001", "Sul")
	path := "/api/stores/s1/results/" + testPeriod

	// GIVEN: Only managers may lock
	rec := ts.do(t, http.MethodPut, "/api/stores/s1/locks/"+testPeriod, LockRequest{Locked: true})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/stores/s1/locks/"+testPeriod, LockRequest{Locked: true}, manager()...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []kpi.Period{testPeriod}, decode[StoreDTO](t, rec).LockedPeriods)

	// WHEN: A store user writes results
	rec = ts.do(t, http.MethodPut, path, SaveResultsRequest{Results: kpi.Values{kpi.Faturamento: 1}})

	// THEN: 423 Locked
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "period_locked", decode[ErrorResponse](t, rec).Code)

	rec = ts.do(t, http.MethodPut, "/api/stores/s1/collaborator-results/"+testPeriod,
		SaveCollaboratorResultsRequest{Collaborators: kpi.CollaboratorValues{"c1": {kpi.PA: 2}}})
	assert.Equal(t, http.StatusLocked, rec.Code)

	// Managers bypass the lock
	rec = ts.do(t, http.MethodPut, path, SaveResultsRequest{Results: kpi.Values{kpi.Faturamento: 1}}, manager()...)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[ResultsDTO](t, rec)
	assert.True(t, results.Locked)
	assert.Equal(t, 1.0, results.Results[kpi.Faturamento])

	// Audit trail records the lock and the write
	rec = ts.do(t, http.MethodGet, "/api/stores/s1/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]AuditEventDTO](t, rec)
	require.Len(t, events, 2)
	assert.Equal(t, "ana", events[0].Actor)
}

func TestResults_DerivedFields(t *testing.T) {
	ts := setupTestServer(t)
	ts.createStore(t, "s1", "LJ001", "Sul")

	rec := ts.do(t, http.MethodPut, "/api/stores/s1/results/"+testPeriod, SaveResultsRequest{
		Results:      kpi.Values{kpi.Faturamento: 30000},
		Transactions: 100,
		Items:        250,
		Visitors:     1000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	results := decode[ResultsDTO](t, rec).Results
	assert.Equal(t, 300.0, results[kpi.TicketMedio])
	assert.Equal(t, 2.5, results[kpi.PA])
	assert.Equal(t, 10.0, results[kpi.Conversao])
}

func TestCollaboratorResults(t *testing.T) {
	ts := setupTestServer(t)
	ts.createStore(t, "s1", "LJ001", "Sul")

	rec := ts.do(t, http.MethodPut, "/api/stores/s1/collaborator-results/"+testPeriod, SaveCollaboratorResultsRequest{
		Collaborators: kpi.CollaboratorValues{"maria": {kpi.Faturamento: 12000}, "joao": {kpi.PA: 2.1}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	collaborators := decode[ResultsDTO](t, rec).Collaborators
	assert.Len(t, collaborators, 2)
	assert.Equal(t, 12000.0, collaborators["maria"][kpi.Faturamento])
}

func TestRebalance(t *testing.T) {
	ts := setupTestServer(t)

	// GIVEN: Equal weights; WHEN: revenue moves to 40
	rec := ts.do(t, http.MethodPost, "/api/weights/rebalance", RebalanceRequest{
		Weights:  kpi.DefaultWeights(),
		Changed:  string(kpi.Faturamento),
		NewValue: 40,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: The other four shrink evenly
	resp := decode[RebalanceResponse](t, rec)
	assert.Equal(t, 100.0, resp.Sum)
	assert.Equal(t, 40.0, resp.Weights[kpi.Faturamento])
	assert.Equal(t, 15.0, resp.Weights[kpi.PA])
	assert.Equal(t, 15.0, resp.Weights[kpi.Conversao])

	// Slider values beyond the range are clamped
	rec = ts.do(t, http.MethodPost, "/api/weights/rebalance", RebalanceRequest{Changed: string(kpi.PA), NewValue: 150})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[RebalanceResponse](t, rec)
	assert.Equal(t, 100.0, resp.Weights[kpi.PA])
	assert.Equal(t, 100.0, resp.Sum)

	rec = ts.do(t, http.MethodPost, "/api/weights/rebalance", RebalanceRequest{Changed: "vendas", NewValue: 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboard(t *testing.T) {
	ts := setupTestServer(t)
	ts.createStore(t, "s1", "LJ001", "Sul")
	ts.createStore(t, "s2", "LJ002", "Sudeste")
	ts.createStore(t, "s3", "LJ003", "Sul")

	for id, result := range map[string]float64{"s1": 90000, "s2": 70000} {
		rec := ts.do(t, http.MethodPut, "/api/stores/"+id+"/goals/"+testPeriod, SaveGoalsRequest{Goals: kpi.Values{kpi.Faturamento: 100000}})
		require.Equal(t, http.StatusOK, rec.Code)
		rec = ts.do(t, http.MethodPut, "/api/stores/"+id+"/results/"+testPeriod, SaveResultsRequest{Results: kpi.Values{kpi.Faturamento: result}})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := ts.do(t, http.MethodGet, "/api/dashboard/"+testPeriod, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[DashboardDTO](t, rec)
	assert.Equal(t, 80.0, d.NetworkScore)
	assert.Equal(t, 2, d.Scored)
	assert.Equal(t, 1, d.WithoutData)
	require.Len(t, d.Stores, 3)
	assert.Equal(t, "LJ001", d.Stores[0].Code)
	assert.Equal(t, 1, d.Stores[0].Rank)

	rec = ts.do(t, http.MethodGet, "/api/dashboard/"+testPeriod+"?region=sul", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d = decode[DashboardDTO](t, rec)
	assert.Equal(t, 90.0, d.NetworkScore)
	assert.Len(t, d.Stores, 2)

	rec = ts.do(t, http.MethodGet, "/api/stores/s1/history/"+testPeriod+"?months=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]PeriodScoreDTO](t, rec)
	require.Len(t, history, 3)
	assert.Equal(t, 90, *history[2].Score)
	assert.Nil(t, history[0].Score)
}

func upload(t *testing.T, ts *testServer, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func TestImport_GoalsCSV(t *testing.T) {
	ts := setupTestServer(t)
	ts.createStore(t, "s1", "LJ001", "Sul")

	csv := "codigo_loja;faturamento;pa;ticketmedio;prateleinfinita;conversao;mes_ano\n" +
		"lj001;R$ 150.000,00;2,5;320;;12;\n" +
		"LJ999;1;1;1;1;1;\n" +
		"LJ001;1.000;1;1;1;1;2025-4\n"

	// WHEN: Uploading goals
	rec := upload(t, ts, "/api/imports/goals?period="+testPeriod, "metas.csv", csv)

	// THEN: Good rows import, bad ones are reported
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ImportResponse](t, rec)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Imported)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "store_not_found", resp.Errors[0].Code)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, "invalid_period", resp.Warnings[0].Code)

	// The last row overwrote the first, both on the default period
	rec = ts.do(t, http.MethodGet, "/api/stores/s1/goals/"+testPeriod, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1000.0, decode[GoalsDTO](t, rec).Goals[kpi.Faturamento])

	rec = ts.do(t, http.MethodGet, "/api/imports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]ImportRunDTO](t, rec)
	require.Len(t, runs, 1)
	assert.Equal(t, "metas.csv", runs[0].Filename)
}

func TestImport_BadRequests(t *testing.T) {
	ts := setupTestServer(t)

	rec := upload(t, ts, "/api/imports/goals?period="+testPeriod, "metas.csv", "codigo_loja;faturamento\nLJ001;1\n")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_headers", decode[ErrorResponse](t, rec).Code)

	rec = upload(t, ts, "/api/imports/goals", "metas.csv", "x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, ts, "/api/imports/budget?period="+testPeriod, "metas.csv", "x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluationsAndPillars(t *testing.T) {
	ts := setupTestServer(t)
	ts.createStore(t, "s1", "LJ001", "Sul")

	rec := ts.do(t, http.MethodPost, "/api/stores/s1/evaluations", CreateEvaluationRequest{Pillar: "pessoas", Period: testPeriod, Score: 80})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	evaluation := decode[EvaluationDTO](t, rec)
	assert.Equal(t, "pending", evaluation.Status)

	// Performance comes from the scorer, never from a form
	rec = ts.do(t, http.MethodPost, "/api/stores/s1/evaluations", CreateEvaluationRequest{Pillar: "performance", Period: testPeriod, Score: 80})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Pending evaluations do not count yet
	rec = ts.do(t, http.MethodGet, "/api/stores/s1/pillars/"+testPeriod, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[PillarsResponse](t, rec).Pillars[0].Score)

	// Only managers review
	rec = ts.do(t, http.MethodPost, "/api/evaluations/"+evaluation.ID+"/approve", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/evaluations/"+evaluation.ID+"/approve", nil, manager()...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approved", decode[EvaluationDTO](t, rec).Status)
	rec = ts.do(t, http.MethodPost, "/api/evaluations/"+evaluation.ID+"/reject", nil, manager()...)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/stores/s1/pillars/"+testPeriod, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	radar := decode[PillarsResponse](t, rec)
	require.NotNil(t, radar.Pillars[0].Score)
	assert.Equal(t, 80.0, *radar.Pillars[0].Score)
	assert.Equal(t, 80.0, radar.Overall)

	rec = ts.do(t, http.MethodGet, "/api/stores/s1/evaluations?period="+testPeriod, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]EvaluationDTO](t, rec), 1)

	rec = ts.do(t, http.MethodPost, "/api/evaluations/missing/approve", nil, manager()...)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOccupancy(t *testing.T) {
	ts := setupTestServer(t)
	ts.createStore(t, "s1", "LJ001", "Sul")

	rec := ts.do(t, http.MethodPut, "/api/stores/s1/results/"+testPeriod, SaveResultsRequest{Results: kpi.Values{kpi.Faturamento: 100000}})
	require.Equal(t, http.StatusOK, rec.Code)

	body := map[string]string{"rent": "9000", "condo_fees": "2500.50", "property_tax": "499.50", "marketing_fund": "1000"}
	rec = ts.do(t, http.MethodPut, "/api/stores/s1/occupancy/"+testPeriod, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/stores/s1/occupancy/"+testPeriod, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[OccupancyDTO](t, rec)
	assert.Equal(t, "13000", report.Total.String())
	assert.Equal(t, "13", report.Percent.String())
	assert.Equal(t, "attention", string(report.Status))

	rec = ts.do(t, http.MethodPut, "/api/stores/s1/occupancy/"+testPeriod, map[string]string{"rent": "-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
