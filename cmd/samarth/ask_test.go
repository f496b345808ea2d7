package main

import (
	"bytes"
	"testing"

	"samarth-go/internal/models"

	"github.com/stretchr/testify/assert"
)

func intp(i int) *int { return &i }

func TestDescribeIntent(t *testing.T) {
	assert.Equal(t, "rank(desc) top=5 crops=maize", describeIntent(models.Intent{
		Action: models.ActionRank, Direction: models.Descending, TopN: intp(5), Crops: []string{"maize"},
	}))
	assert.Equal(t, "trend locations=Kerala last 3 years", describeIntent(models.Intent{
		Action: models.ActionTrend, Locations: []string{"Kerala"}, RelativeYears: 3,
	}))
	assert.Equal(t, "compare years=2010-2014", describeIntent(models.Intent{
		Action: models.ActionCompare, YearRange: &models.YearRange{Start: 2010, End: 2014},
	}))
}

func TestRenderAskInfeasible(t *testing.T) {
	var buf bytes.Buffer
	renderAsk(&buf, models.AskResponse{
		Intent: models.Intent{Raw: "Show rice production trend over the last decade", Action: models.ActionTrend},
		Verdict: models.Verdict{
			Status:  models.StatusInfeasible,
			Reasons: []models.ReasonCode{models.ReasonNoTemporalData},
			Rewrites: []models.Rewrite{{
				Question:  "current rice production across all districts",
				Rationale: "the matching datasets are single snapshots",
			}},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Verdict:  infeasible (NO_TEMPORAL_DATA)")
	assert.Contains(t, out, `rewrite 1: "current rice production across all districts"`)
	assert.Contains(t, out, "--rewrite")
}

func TestRenderAskResult(t *testing.T) {
	rain := 3920.0
	var buf bytes.Buffer
	renderAsk(&buf, models.AskResponse{
		Intent:  models.Intent{Raw: "Correlate rainfall with maize", Action: models.ActionCorrelate},
		Verdict: models.Verdict{Status: models.StatusFeasible},
		Result: &models.AnalysisResult{
			Action: models.ActionCorrelate,
			Rows: []models.Row{
				{Label: "Udupi / Udupi Coastal", Dataset: "crop_maize.csv", Metric: "production", Value: 100, Secondary: &rain, Count: 1},
			},
			CorrelationStats: &models.CorrelationStats{Coefficient: -0.995, SampleSize: 4},
			Notes:            []string{"something odd"},
		},
		Citations:   []string{"[1] rainfall.csv — Annual rainfall by subdivision — points=5 — cols=[ANNUAL] — 2025-03-14 09:30:00"},
		ChartFamily: "scatter-trendline",
		Answer:      "Rainfall and maize move in opposite directions.",
	})

	out := buf.String()
	assert.Contains(t, out, "Udupi / Udupi Coastal")
	assert.Contains(t, out, "3920.00")
	assert.Contains(t, out, "Rainfall")
	assert.Contains(t, out, "Pearson r = -0.995 over 4 matched locations")
	assert.Contains(t, out, "note: something odd")
	assert.Contains(t, out, "Sources:\n[1] rainfall.csv")
	assert.Contains(t, out, "Suggested chart: scatter-trendline")
	assert.Contains(t, out, "opposite directions")
}

func TestRenderAskEmptyResult(t *testing.T) {
	var buf bytes.Buffer
	renderAsk(&buf, models.AskResponse{
		Verdict: models.Verdict{Status: models.StatusFeasible},
		Result:  &models.AnalysisResult{Rows: []models.Row{}},
	})
	assert.Contains(t, buf.String(), "No matching records.")
}

func TestRenderDatasets(t *testing.T) {
	var buf bytes.Buffer
	renderDatasets(&buf, []models.DatasetDescriptor{
		{ID: "crop_maize.csv", Kind: models.KindCrop, Granularity: models.GranularityDistrict, Temporal: models.Temporal{Snapshot: true}, CropType: "maize", Records: 18, NullPct: 2.5},
		{ID: "rainfall.csv", Kind: models.KindRainfall, Granularity: models.GranularitySubdivision, Temporal: models.Temporal{Range: &models.YearRange{Start: 1901, End: 2015}}, Records: 4116},
	})
	out := buf.String()
	assert.Contains(t, out, "crop_maize.csv")
	assert.Contains(t, out, "snapshot")
	assert.Contains(t, out, "1901-2015")
	assert.Contains(t, out, "2.5")
	assert.Contains(t, out, "Null %")
}
