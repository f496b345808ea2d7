package service

import (
	"context"

	"samarth-go/internal/models"
)

// Answerer turns an analysis into prose for the end user. Implementations
// live outside the core; a nil Answerer means the caller renders nothing.
type Answerer interface {
	Answer(ctx context.Context, question string, result models.AnalysisResult) (string, error)
}

// Visualizer builds a chart description from an analysis
type Visualizer interface {
	Visualize(ctx context.Context, family string, result models.AnalysisResult) ([]byte, error)
}

// Chart families handed to a Visualizer
const (
	ChartBar            = "bar"
	ChartMultiSeriesBar = "multi-series-bar"
	ChartScatter        = "scatter-trendline"
	ChartPie            = "pie-treemap"
	ChartBoxVariability = "box-variability"
)

var chartFamilies = map[models.Action]string{
	models.ActionRank:      ChartBar,
	models.ActionCompare:   ChartMultiSeriesBar,
	models.ActionCorrelate: ChartScatter,
	models.ActionRecommend: ChartPie,
	models.ActionTrend:     ChartBoxVariability,
	models.ActionIdentify:  ChartBar,
}

// ChartFamily returns the chart family for an action, or "" if unknown
func ChartFamily(action models.Action) string {
	return chartFamilies[action]
}
