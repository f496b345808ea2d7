package models

import (
	"fmt"
	"strings"
	"time"
)

// VerdictStatus is the outcome of a feasibility check
type VerdictStatus string

const (
	StatusFeasible   VerdictStatus = "feasible"
	StatusInfeasible VerdictStatus = "infeasible"
)

// ReasonCode explains why an intent cannot be answered as asked
type ReasonCode string

const (
	ReasonNoTemporalData           ReasonCode = "NO_TEMPORAL_DATA"
	ReasonGranularityMismatch      ReasonCode = "GRANULARITY_MISMATCH"
	ReasonGranularityUnrecoverable ReasonCode = "GRANULARITY_UNRECOVERABLE"
	ReasonNoSubtypeDimension       ReasonCode = "NO_SUBTYPE_DIMENSION"
	ReasonNoGeoOverlap             ReasonCode = "NO_GEO_OVERLAP"
)

// Rewrite is an alternative intent offered for an infeasible one
type Rewrite struct {
	Intent    Intent `json:"intent"`
	Rationale string `json:"rationale"`
	Question  string `json:"question"`
}

// Verdict is the decision on one intent. Intent carries the checked intent
// with relative years resolved.
type Verdict struct {
	Status   VerdictStatus `json:"status"`
	Reasons  []ReasonCode  `json:"reasons"`
	Rewrites []Rewrite     `json:"rewrites"`
	Intent   Intent        `json:"intent"`
}

// Feasible reports whether the intent may be handed to the analyzer
func (v Verdict) Feasible() bool {
	return v.Status == StatusFeasible
}

// PrimaryReason returns the first failing rule, or "" when feasible
func (v Verdict) PrimaryReason() ReasonCode {
	if len(v.Reasons) == 0 {
		return ""
	}
	return v.Reasons[0]
}

// MatchMethod names the rule that accepted a geographic pair
type MatchMethod string

const (
	MatchExact        MatchMethod = "exact"
	MatchSubstring    MatchMethod = "substring"
	MatchTokenOverlap MatchMethod = "token-overlap"
)

// GeoMatch pairs a subdivision name with a district name
type GeoMatch struct {
	Subdivision string      `json:"subdivision"`
	District    string      `json:"district"`
	Score       float64     `json:"score"`
	Method      MatchMethod `json:"method"`
}

// CitationTimeLayout is the timestamp layout used in formatted citations
const CitationTimeLayout = "2006-01-02 15:04:05"

// Citation records which dataset, filter and columns produced a value
type Citation struct {
	SourceFile  string    `json:"source_file"`
	Description string    `json:"description"`
	PointCount  int       `json:"point_count"`
	ColumnsUsed []string  `json:"columns_used"`
	Timestamp   time.Time `json:"timestamp"`
}

// Format renders the numbered source line printed under an answer
func (c Citation) Format(index int) string {
	return fmt.Sprintf("[%d] %s — %s — points=%d — cols=[%s] — %s",
		index, c.SourceFile, c.Description, c.PointCount,
		strings.Join(c.ColumnsUsed, ", "), c.Timestamp.Format(CitationTimeLayout))
}

// FormatCitations renders citations one per line, numbered from 1
func FormatCitations(citations []Citation) []string {
	out := make([]string, 0, len(citations))
	for i, c := range citations {
		out = append(out, c.Format(i+1))
	}
	return out
}

// Row is one output tuple of an analysis
type Row struct {
	Label     string   `json:"label"`
	Location  string   `json:"location,omitempty"`
	Crop      string   `json:"crop,omitempty"`
	Season    string   `json:"season,omitempty"`
	Dataset   string   `json:"dataset"`
	Metric    string   `json:"metric"`
	Value     float64  `json:"value"`
	Secondary *float64 `json:"secondary,omitempty"`
	Period    *int     `json:"period,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Count     int      `json:"count"`
}

// Point is a (period, value) pair for plotting
type Point struct {
	Period int     `json:"period"`
	Value  float64 `json:"value"`
}

// CorrelationStats summarises a rainfall-vs-crop correlation
type CorrelationStats struct {
	Coefficient  float64    `json:"coefficient"`
	SampleSize   int        `json:"sample_size"`
	MatchedPairs []GeoMatch `json:"matched_pairs"`
}

// AnalysisResult is the output of the analyzer
type AnalysisResult struct {
	Action           Action             `json:"action"`
	Direction        Direction          `json:"direction,omitempty"`
	Rows             []Row              `json:"rows"`
	Aggregates       map[string]float64 `json:"aggregates"`
	Buckets          map[string]string  `json:"buckets,omitempty"`
	Series           []Point            `json:"series,omitempty"`
	Citations        []Citation         `json:"citations"`
	CorrelationStats *CorrelationStats  `json:"correlation_stats,omitempty"`
	Notes            []string           `json:"notes,omitempty"`
}

// Empty reports whether the analysis produced no rows
func (r AnalysisResult) Empty() bool {
	return len(r.Rows) == 0
}
