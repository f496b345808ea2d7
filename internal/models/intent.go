package models

import "slices"

// Action is what a question asks the analyzer to do
type Action string

const (
	ActionRank      Action = "rank"
	ActionCompare   Action = "compare"
	ActionCorrelate Action = "correlate"
	ActionRecommend Action = "recommend"
	ActionIdentify  Action = "identify"
	ActionTrend     Action = "trend"
)

// Direction is the sort order for rank and identify
type Direction string

const (
	Descending Direction = "desc"
	Ascending  Direction = "asc"
)

// Intent is the structured form of a parsed question.
// Treat it as immutable: the With* methods return modified copies.
type Intent struct {
	Raw       string        `json:"raw"`
	Action    Action        `json:"action"`
	Direction Direction     `json:"direction,omitempty"`
	Locations []string      `json:"locations"`
	Crops     []string      `json:"crops"`
	Seasons   []string      `json:"seasons,omitempty"`
	Domains   []DatasetKind `json:"domains,omitempty"`
	YearRange *YearRange    `json:"year_range,omitempty"`

	// RelativeYears holds an unresolved "last N years" span. It is resolved
	// against a dataset's own maximum year, never at parse time.
	RelativeYears int    `json:"relative_years,omitempty"`
	TopN          *int   `json:"top_n,omitempty"`
	Metric        string `json:"metric,omitempty"`

	// Notes records parse ambiguities. They never make parsing fail.
	Notes []string `json:"notes,omitempty"`
}

// HasYears reports whether the intent constrains time in any form
func (i Intent) HasYears() bool {
	return i.YearRange != nil || i.RelativeYears > 0
}

// NeedsDomain reports whether the question mentioned kind explicitly
func (i Intent) NeedsDomain(kind DatasetKind) bool {
	return slices.Contains(i.Domains, kind)
}

// Clone returns a deep copy
func (i Intent) Clone() Intent {
	out := i
	out.Locations = slices.Clone(i.Locations)
	out.Crops = slices.Clone(i.Crops)
	out.Seasons = slices.Clone(i.Seasons)
	out.Domains = slices.Clone(i.Domains)
	out.Notes = slices.Clone(i.Notes)
	if i.YearRange != nil {
		yr := *i.YearRange
		out.YearRange = &yr
	}
	if i.TopN != nil {
		n := *i.TopN
		out.TopN = &n
	}
	return out
}

// WithoutYears returns a copy with every temporal constraint cleared
func (i Intent) WithoutYears() Intent {
	out := i.Clone()
	out.YearRange = nil
	out.RelativeYears = 0
	return out
}

// WithYearRange returns a copy constrained to yr
func (i Intent) WithYearRange(yr YearRange) Intent {
	out := i.Clone()
	out.YearRange = &yr
	out.RelativeYears = 0
	return out
}

// WithLocations returns a copy targeting locs
func (i Intent) WithLocations(locs []string) Intent {
	out := i.Clone()
	out.Locations = slices.Clone(locs)
	return out
}

// WithCrops returns a copy targeting crops
func (i Intent) WithCrops(crops []string) Intent {
	out := i.Clone()
	out.Crops = slices.Clone(crops)
	return out
}

// WithAction returns a copy with a new action and direction
func (i Intent) WithAction(a Action, d Direction) Intent {
	out := i.Clone()
	out.Action = a
	out.Direction = d
	return out
}

// WithTopN returns a copy truncated to n rows
func (i Intent) WithTopN(n int) Intent {
	out := i.Clone()
	out.TopN = &n
	return out
}
