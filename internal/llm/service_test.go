package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"samarth-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() models.AnalysisResult {
	rain := 3920.0
	return models.AnalysisResult{
		Action: models.ActionCorrelate,
		Rows: []models.Row{
			{Label: "Udupi / Udupi Coastal", Dataset: "crop_maize.csv", Metric: "production", Value: 100, Secondary: &rain, Count: 1},
		},
		Aggregates:       map[string]float64{"pairs": 4, "correlation": -0.995},
		CorrelationStats: &models.CorrelationStats{Coefficient: -0.995, SampleSize: 4},
		Citations: []models.Citation{{
			SourceFile:  "rainfall.csv",
			Description: "Annual rainfall by subdivision",
			PointCount:  5,
			ColumnsUsed: []string{"ANNUAL"},
			Timestamp:   time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		}},
	}
}

func TestAnswer(t *testing.T) {
	var got GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(GenerateResponse{
			Response: "<think>\nlet me look\n</think>\nRainfall and maize move in opposite directions [1].",
		})
	}))
	defer srv.Close()

	s := NewService(Config{BaseURL: srv.URL, Model: "test-model"})
	answer, err := s.Answer(context.Background(), "Correlate rainfall with maize", sampleResult())
	require.NoError(t, err)

	assert.Equal(t, "Rainfall and maize move in opposite directions [1].", answer)
	assert.Equal(t, "test-model", got.Model)
	assert.False(t, got.Stream)
	assert.Contains(t, got.Prompt, "Question: Correlate rainfall with maize")
	assert.Contains(t, got.Prompt, "- Udupi / Udupi Coastal: production = 100.00 (1 points, crop_maize.csv), rainfall = 3920.00")
	assert.Contains(t, got.Prompt, "Pearson correlation: -0.995 across 4 matched locations")
	assert.Contains(t, got.Prompt, "[1] rainfall.csv")
	assert.Less(t, strings.Index(got.Prompt, "- correlation ="), strings.Index(got.Prompt, "- pairs ="))
}

func TestAnswerErrors(t *testing.T) {
	t.Run("bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewService(Config{BaseURL: srv.URL}).Answer(context.Background(), "q", sampleResult())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("empty answer", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(GenerateResponse{Response: "<think>hmm</think>  "})
		}))
		defer srv.Close()

		_, err := NewService(Config{BaseURL: srv.URL}).Answer(context.Background(), "q", sampleResult())
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(GenerateResponse{Response: "late"})
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewService(Config{BaseURL: srv.URL}).Answer(ctx, "q", sampleResult())
		assert.Error(t, err)
	})
}

func TestNewServiceDefaults(t *testing.T) {
	s := NewService(Config{})
	assert.Equal(t, "http://localhost:11434", s.config.BaseURL)
	assert.Equal(t, "qwen3-vl:2b", s.config.Model)
	assert.Equal(t, 30*time.Second, s.client.Timeout)
}

func TestBuildPromptTruncatesRows(t *testing.T) {
	res := models.AnalysisResult{Action: models.ActionRank}
	for i := 0; i < maxPromptRows+5; i++ {
		res.Rows = append(res.Rows, models.Row{Label: "row", Metric: "production", Value: float64(i)})
	}
	prompt := buildPrompt("q", res)
	assert.Equal(t, maxPromptRows, strings.Count(prompt, "- row:"))
	assert.Contains(t, prompt, "... 5 more rows")
}
