package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"samarth-go/internal/models"
	"samarth-go/internal/service"
	"samarth-go/internal/state"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(i int) *int { return &i }

func newTestRouter() chi.Router {
	var rain []models.Record
	for y := 2010; y <= 2012; y++ {
		rain = append(rain,
			models.Record{Location: "Udupi Coastal", Year: intp(y), Values: map[string]models.Value{models.MetricRainfall: models.NumberValue(3900)}},
			models.Record{Location: "Mysore Plateau", Year: intp(y), Values: map[string]models.Value{models.MetricRainfall: models.NumberValue(750)}},
		)
	}
	reg := state.NewRegistry([]*state.Dataset{
		state.NewDataset(models.DatasetDescriptor{
			ID:             "rainfall.csv",
			Kind:           models.KindRainfall,
			Granularity:    models.GranularitySubdivision,
			Temporal:       models.Temporal{Range: &models.YearRange{Start: 2010, End: 2012}},
			LocationColumn: "SUBDIVISION",
			YearColumn:     "YEAR",
			MetricColumns:  map[string]string{models.MetricRainfall: "ANNUAL"},
			Records:        6,
		}, rain),
		state.NewDataset(models.DatasetDescriptor{
			ID:             "crop_rice.csv",
			Kind:           models.KindCrop,
			Granularity:    models.GranularityDistrict,
			Temporal:       models.Temporal{Snapshot: true},
			CropType:       "rice",
			LocationColumn: "District",
			MetricColumns:  map[string]string{models.MetricProduction: "Production"},
			Records:        2,
		}, []models.Record{
			{Location: "Udupi", Values: map[string]models.Value{models.MetricProduction: models.NumberValue(500)}},
			{Location: "Mysore", Values: map[string]models.Value{models.MetricProduction: models.NumberValue(700)}},
		}),
	}, map[string][]string{"Karnataka": {"Udupi", "Mysore"}})

	engine := service.NewEngine(reg, service.DefaultPolicy(),
		clockwork.NewFakeClockAt(time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)))
	r := chi.NewRouter()
	NewHandler(engine).RegisterRoutes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	rec := do(t, newTestRouter(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestListDatasets(t *testing.T) {
	rec := do(t, newTestRouter(), http.MethodGet, "/api/datasets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decode[models.DatasetsResponse](t, rec)
	require.Len(t, resp.Datasets, 2)
	assert.Equal(t, "crop_rice.csv", resp.Datasets[0].ID)
	assert.Equal(t, "snapshot", resp.Datasets[0].Years)
	assert.Equal(t, "2010-2012", resp.Datasets[1].Years)
	assert.Equal(t, 2, resp.Subdivisions)
	assert.Equal(t, 2, resp.Districts)
}

func TestGetDataset(t *testing.T) {
	r := newTestRouter()

	rec := do(t, r, http.MethodGet, "/api/datasets/rainfall.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	desc := decode[models.DatasetDescriptor](t, rec)
	assert.Equal(t, "ANNUAL", desc.MetricColumns[models.MetricRainfall])

	rec = do(t, r, http.MethodGet, "/api/datasets/nope.csv", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "dataset not found: nope.csv", decode[models.ErrorResponse](t, rec).Error)
}

func TestParseEndpoint(t *testing.T) {
	rec := do(t, newTestRouter(), http.MethodPost, "/api/parse", `{"question":"Top 2 districts by rice production"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[models.ParseResponse](t, rec)
	assert.Equal(t, models.ActionRank, resp.Intent.Action)
	require.NotNil(t, resp.Intent.TopN)
	assert.Equal(t, 2, *resp.Intent.TopN)
}

func TestFeasibilityEndpoint(t *testing.T) {
	rec := do(t, newTestRouter(), http.MethodPost, "/api/feasibility", `{"question":"Show rice production trend over the last decade"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[models.FeasibilityResponse](t, rec)
	assert.Equal(t, models.StatusInfeasible, resp.Verdict.Status)
	assert.Equal(t, []models.ReasonCode{models.ReasonNoTemporalData}, resp.Verdict.Reasons)
	require.Len(t, resp.Verdict.Rewrites, 1)
}

func TestAskEndpoint(t *testing.T) {
	r := newTestRouter()

	t.Run("feasible", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/ask", `{"question":"Top 2 districts by rice production"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[models.AskResponse](t, rec)
		require.NotNil(t, resp.Result)
		assert.Len(t, resp.Result.Rows, 2)
		assert.Equal(t, "Mysore", resp.Result.Rows[0].Label)
		require.Len(t, resp.Citations, 1)
		assert.True(t, strings.HasSuffix(resp.Citations[0], "2025-03-14 09:30:00"))
		assert.Equal(t, service.ChartBar, resp.ChartFamily)
	})

	t.Run("infeasible without rewrite", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/ask", `{"question":"Show rice production trend over the last decade"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[models.AskResponse](t, rec)
		assert.Nil(t, resp.Result)
		assert.False(t, resp.Verdict.Feasible())
	})

	t.Run("infeasible with rewrite", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/ask", `{"question":"Show rice production trend over the last decade","use_rewrite":true}`)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[models.AskResponse](t, rec)
		require.NotNil(t, resp.Result)
		require.NotNil(t, resp.Analysed)
		assert.Equal(t, models.ActionRank, resp.Analysed.Action)
	})
}

func TestBadRequests(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"question":`, "Invalid JSON"},
		{"missing question", `{}`, "Question is required"},
		{"blank question", `{"question":"   "}`, "Question is required"},
		{"oversized body", `{"question":"` + strings.Repeat("a", MaxBodySize) + `"}`, "Invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/api/parse", "/api/feasibility", "/api/ask"} {
				rec := do(t, r, http.MethodPost, path, tt.body)
				assert.Equal(t, http.StatusBadRequest, rec.Code, path)
				assert.Equal(t, tt.want, decode[models.ErrorResponse](t, rec).Error, path)
			}
		})
	}
}

func TestWrongMethod(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, r, http.MethodGet, "/api/ask", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, r, http.MethodDelete, "/api/datasets", "").Code)
}
