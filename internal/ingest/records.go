package ingest

import (
	"slices"
	"strings"

	"samarth-go/internal/models"
	"samarth-go/internal/state"
)

// build turns a table into a dataset. The returned map holds the state to
// district assignments found in the file's own state column.
func build(t *table, s shape) (*state.Dataset, map[string][]string) {
	desc := models.DatasetDescriptor{
		ID:             t.name,
		Kind:           s.kind,
		Granularity:    s.granularity,
		Columns:        slices.Clone(t.headers),
		CropType:       s.cropType,
		LocationColumn: t.headers[s.locIdx],
		MetricColumns:  map[string]string{},
		NullPct:        nullPercentage(t),
	}
	if s.yearIdx >= 0 {
		desc.YearColumn = t.headers[s.yearIdx]
	}
	if s.cropIdx >= 0 {
		desc.CropColumn = t.headers[s.cropIdx]
	}

	var records []models.Record
	states := map[string][]string{}
	minYear, maxYear := 0, 0

	for _, row := range t.rows {
		loc := t.cell(row, s.locIdx)
		if isNullCell(loc) {
			continue
		}
		var year *int
		if s.yearIdx >= 0 {
			if y, ok := parseYear(t.cell(row, s.yearIdx)); ok {
				year = &y
				if minYear == 0 || y < minYear {
					minYear = y
				}
				if y > maxYear {
					maxYear = y
				}
			}
		}
		if s.stateIdx >= 0 {
			if st := t.cell(row, s.stateIdx); !isNullCell(st) {
				states[st] = appendDistinct(states[st], loc)
			}
		}

		switch {
		case s.kind == models.KindRainfall:
			records = append(records, rainfallRecord(t, s, row, loc, year))
		case s.wide != nil:
			records = append(records, wideRecords(t, s, row, loc, year)...)
		default:
			records = append(records, longRecord(t, s, row, loc, year))
		}
	}

	switch {
	case s.kind == models.KindRainfall && s.annualIdx >= 0:
		desc.MetricColumns[models.MetricRainfall] = t.headers[s.annualIdx]
	case s.kind == models.KindRainfall:
		desc.MetricColumns[models.MetricRainfall] = monthSpan(t, s.monthIdx)
	case s.wide != nil:
		for season, metrics := range s.wide {
			for metric, idx := range metrics {
				desc.MetricColumns[season+"|"+metric] = t.headers[idx]
			}
		}
		if _, ok := s.wide[models.DefaultSeason]; !ok {
			for _, metric := range []string{models.MetricProduction, models.MetricArea} {
				if cols := seasonalColumns(t, s, metric); len(cols) > 0 {
					desc.MetricColumns[models.DefaultSeason+"|"+metric] = strings.Join(cols, "+")
				}
			}
		}
		desc.Seasons = slices.Clone(s.seasons)
	default:
		for metric, idx := range s.longCols {
			desc.MetricColumns[metric] = t.headers[idx]
		}
		if s.seasonIdx >= 0 {
			desc.SeasonColumn = t.headers[s.seasonIdx]
			for _, rec := range records {
				if rec.Season != "" && !slices.Contains(desc.Seasons, rec.Season) {
					desc.Seasons = append(desc.Seasons, rec.Season)
				}
			}
		}
	}

	if maxYear > 0 {
		desc.Temporal = models.Temporal{Range: &models.YearRange{Start: minYear, End: maxYear}}
	} else {
		desc.Temporal = models.Temporal{Snapshot: true}
	}
	desc.Records = len(records)

	return state.NewDataset(desc, records), states
}

func rainfallRecord(t *table, s shape, row []string, loc string, year *int) models.Record {
	rec := models.Record{Location: loc, Year: year, Values: map[string]models.Value{}}
	if s.annualIdx >= 0 {
		if v, ok := parseNumber(t.cell(row, s.annualIdx)); ok {
			rec.Values[models.MetricRainfall] = models.NumberValue(v)
			return rec
		}
	}
	total, found := 0.0, false
	for _, idx := range s.monthIdx {
		if v, ok := parseNumber(t.cell(row, idx)); ok {
			total += v
			found = true
		}
	}
	if found {
		rec.Values[models.MetricRainfall] = models.NumberValue(total)
	} else {
		rec.Values[models.MetricRainfall] = models.Value{}
	}
	return rec
}

// wideRecords melts one seasonal row into a record per season. A missing
// all-season total is synthesised for additive metrics.
func wideRecords(t *table, s shape, row []string, loc string, year *int) []models.Record {
	var out []models.Record
	sums := map[string]float64{}
	seen := map[string]bool{}
	for _, season := range s.seasons {
		metrics, ok := s.wide[season]
		if !ok {
			continue
		}
		rec := models.Record{Location: loc, Year: year, Season: season, Values: map[string]models.Value{}}
		for metric, idx := range metrics {
			v, ok := parseNumber(t.cell(row, idx))
			if !ok {
				rec.Values[metric] = models.Value{}
				continue
			}
			rec.Values[metric] = models.NumberValue(v)
			if metric == models.MetricProduction || metric == models.MetricArea {
				sums[metric] += v
				seen[metric] = true
			}
		}
		out = append(out, rec)
	}

	if _, ok := s.wide[models.DefaultSeason]; !ok {
		total := models.Record{Location: loc, Year: year, Season: models.DefaultSeason, Values: map[string]models.Value{}}
		for metric := range seen {
			total.Values[metric] = models.NumberValue(sums[metric])
		}
		out = append(out, total)
	}
	return out
}

func longRecord(t *table, s shape, row []string, loc string, year *int) models.Record {
	rec := models.Record{Location: loc, Year: year, Values: map[string]models.Value{}}
	if s.seasonIdx >= 0 {
		rec.Season = canonicalSeason(t.cell(row, s.seasonIdx))
	}
	if s.cropIdx >= 0 {
		rec.Values[models.MetricCrop] = models.TextValue(t.cell(row, s.cropIdx))
	}
	for metric, idx := range s.longCols {
		if v, ok := parseNumber(t.cell(row, idx)); ok {
			rec.Values[metric] = models.NumberValue(v)
		} else {
			rec.Values[metric] = models.Value{}
		}
	}
	return rec
}

func seasonalColumns(t *table, s shape, metric string) []string {
	var cols []string
	for _, season := range s.seasons {
		if idx, ok := s.wide[season][metric]; ok {
			cols = append(cols, t.headers[idx])
		}
	}
	return cols
}

func monthSpan(t *table, idx []int) string {
	if len(idx) == 0 {
		return models.MetricRainfall
	}
	return t.headers[idx[0]] + "-" + t.headers[idx[len(idx)-1]]
}

func appendDistinct(list []string, item string) []string {
	k := state.Key(item)
	for _, v := range list {
		if state.Key(v) == k {
			return list
		}
	}
	return append(list, item)
}
