package ingest

import (
	"strconv"
	"strings"
)

// columnProfile holds fill metrics for one column
type columnProfile struct {
	Name          string
	TotalRows     int
	NonNullRows   int
	NullRate      float64
	DistinctCount int
}

func isNullCell(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "null", "none", "na", "n/a", "nan", "-":
		return true
	}
	return false
}

func profileColumn(t *table, colIdx int) columnProfile {
	profile := columnProfile{
		Name:      t.headers[colIdx],
		TotalRows: len(t.rows),
	}

	uniqueValues := make(map[string]int)
	for _, row := range t.rows {
		value := t.cell(row, colIdx)
		if isNullCell(value) {
			continue
		}
		profile.NonNullRows++
		uniqueValues[value]++
	}
	profile.DistinctCount = len(uniqueValues)

	if profile.TotalRows > 0 {
		profile.NullRate = float64(profile.TotalRows-profile.NonNullRows) / float64(profile.TotalRows)
	}
	return profile
}

func profileAllColumns(t *table) []columnProfile {
	profiles := make([]columnProfile, len(t.headers))
	for i := range t.headers {
		profiles[i] = profileColumn(t, i)
	}
	return profiles
}

// nullPercentage is the share of null cells over the whole table, 0-100
func nullPercentage(t *table) float64 {
	cells, nulls := 0, 0
	for _, p := range profileAllColumns(t) {
		cells += p.TotalRows
		nulls += p.TotalRows - p.NonNullRows
	}
	if cells == 0 {
		return 0
	}
	return float64(nulls) / float64(cells) * 100
}

// parseNumber accepts thousands separators and surrounding whitespace
func parseNumber(value string) (float64, bool) {
	if isNullCell(value) {
		return 0, false
	}
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseYear accepts "2015", "2015.0" and "2015-16" style values
func parseYear(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if len(value) >= 4 {
		if y, err := strconv.Atoi(value[:4]); err == nil && y > 1800 && y < 2200 {
			return y, true
		}
	}
	return 0, false
}
