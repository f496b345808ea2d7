package models

import (
	"fmt"
	"strings"
)

// DatasetKind classifies what a dataset measures
type DatasetKind string

const (
	KindRainfall DatasetKind = "rainfall"
	KindCrop     DatasetKind = "crop"
	KindSpice    DatasetKind = "spice"
)

// Granularity is the geographic level a dataset is keyed by
type Granularity string

const (
	GranularitySubdivision Granularity = "subdivision"
	GranularityDistrict    Granularity = "district"
)

// Canonical metric names. Ingestion maps source headers onto these keys.
const (
	MetricRainfall   = "rainfall"
	MetricProduction = "production"
	MetricArea       = "area"
	MetricYield      = "yield"
	MetricValue      = "value"
	MetricCrop       = "crop"
)

// DefaultSeason is the season label used for whole-year crop figures
const DefaultSeason = "All Seasons"

// YearRange is an inclusive span of years
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether year lies within the range
func (y YearRange) Contains(year int) bool {
	return year >= y.Start && year <= y.End
}

func (y YearRange) String() string {
	if y.Start == y.End {
		return fmt.Sprintf("%d", y.Start)
	}
	return fmt.Sprintf("%d-%d", y.Start, y.End)
}

// Temporal describes the time coverage of a dataset. Range is nil for snapshots.
type Temporal struct {
	Snapshot bool       `json:"snapshot"`
	Range    *YearRange `json:"range,omitempty"`
}

func (t Temporal) String() string {
	if t.Snapshot || t.Range == nil {
		return "snapshot"
	}
	return t.Range.String()
}

// DatasetDescriptor describes the capabilities of a loaded dataset.
// Descriptors are built once by ingestion and never modified afterwards.
type DatasetDescriptor struct {
	ID             string      `json:"id"`
	Kind           DatasetKind `json:"kind"`
	Granularity    Granularity `json:"granularity"`
	Temporal       Temporal    `json:"temporal"`
	Columns        []string    `json:"columns"`
	CropType       string      `json:"crop_type,omitempty"`
	LocationColumn string      `json:"location_column"`
	YearColumn     string      `json:"year_column,omitempty"`
	SeasonColumn   string      `json:"season_column,omitempty"`
	CropColumn     string      `json:"crop_column,omitempty"`

	// MetricColumns maps a canonical metric (optionally prefixed "Season|")
	// to the source header it was read from.
	MetricColumns map[string]string `json:"metric_columns,omitempty"`
	Seasons       []string          `json:"seasons,omitempty"`
	Records       int               `json:"records"`
	NullPct       float64           `json:"null_pct"`
}

// IsSnapshot reports whether the dataset has no temporal dimension
func (d DatasetDescriptor) IsSnapshot() bool {
	return d.Temporal.Snapshot || d.Temporal.Range == nil
}

// HasColumn reports whether the source file carried the given header
func (d DatasetDescriptor) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// HasMetric reports whether records carry a value for metric
func (d DatasetDescriptor) HasMetric(metric string) bool {
	if _, ok := d.MetricColumns[metric]; ok {
		return true
	}
	for key := range d.MetricColumns {
		if strings.HasSuffix(key, "|"+metric) {
			return true
		}
	}
	return false
}

// HasSeasons reports whether records are split by season
func (d DatasetDescriptor) HasSeasons() bool {
	return len(d.Seasons) > 0
}

// HasSubtypeDimension reports whether the dataset can distinguish crop.
// Per-crop files expose it through CropType, long-form files through a crop column.
func (d DatasetDescriptor) HasSubtypeDimension(crop string) bool {
	if d.CropColumn != "" {
		return true
	}
	return crop != "" && strings.EqualFold(d.CropType, crop)
}

// ColumnFor returns the source header behind metric for season
func (d DatasetDescriptor) ColumnFor(metric, season string) string {
	if season != "" {
		if col, ok := d.MetricColumns[season+"|"+metric]; ok {
			return col
		}
	}
	if col, ok := d.MetricColumns[metric]; ok {
		return col
	}
	return metric
}

// Value is a single cell. Valid is false for missing or null cells.
type Value struct {
	Num   float64 `json:"num,omitempty"`
	Str   string  `json:"str,omitempty"`
	Valid bool    `json:"valid"`
}

// NumberValue wraps a numeric cell
func NumberValue(f float64) Value {
	return Value{Num: f, Valid: true}
}

// TextValue wraps a textual cell
func TextValue(s string) Value {
	return Value{Str: s, Valid: s != ""}
}

// Record is a single row keyed by location, optional year and optional season
type Record struct {
	Location string           `json:"location"`
	Year     *int             `json:"year,omitempty"`
	Season   string           `json:"season,omitempty"`
	Values   map[string]Value `json:"values"`
}

// Number returns the numeric value of key. ok is false for missing, null or text cells.
func (r Record) Number(key string) (float64, bool) {
	v, found := r.Values[key]
	if !found || !v.Valid || v.Str != "" {
		return 0, false
	}
	return v.Num, true
}

// Text returns the textual value of key
func (r Record) Text(key string) string {
	return r.Values[key].Str
}
