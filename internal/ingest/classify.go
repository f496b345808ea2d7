package ingest

import (
	"regexp"
	"slices"
	"strings"

	"samarth-go/internal/models"
	"samarth-go/internal/state"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	monthKeys     = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
	rainfallHints = []string{"rain", "precipitation", "annual", "monsoon", "subdivision", "subdiv"}
	cropHints     = []string{"crop", "production", "area", "yield", "district", "kharif", "rabi", "all seasons"}
	knownCrops    = map[string]string{"maize": "maize", "corn": "maize", "ragi": "ragi", "rice": "rice", "paddy": "rice"}
	knownStates   = []string{"karnataka", "maharashtra", "uttar pradesh", "tamil nadu", "kerala", "gujarat", "punjab", "bihar", "andhra pradesh", "telangana"}

	// "Kharif Production", "Whole Year Area", "Total Production"
	seasonHeaderRe = regexp.MustCompile(`^(kharif|rabi|summer|autumn|winter|whole year|all seasons?|total)\s*(production|area|yield|value)\b`)
)

// shape is the column layout detected in a table
type shape struct {
	kind        models.DatasetKind
	granularity models.Granularity
	cropType    string

	locIdx, yearIdx, seasonIdx, cropIdx, stateIdx int

	// rainfall
	annualIdx int
	monthIdx  []int

	// wide seasonal sheets: season -> metric -> column index
	wide     map[string]map[string]int
	seasons  []string
	longCols map[string]int
}

func classifyKind(t *table) models.DatasetKind {
	if strings.Contains(strings.ToLower(t.name), "spice") {
		return models.KindSpice
	}
	keys := make([]string, 0, len(t.headers))
	for _, h := range t.headers {
		keys = append(keys, headerKey(h))
	}
	joined := strings.Join(keys, " ")
	if strings.Contains(joined, "spice") {
		return models.KindSpice
	}
	if containsAny(joined, rainfallHints) {
		return models.KindRainfall
	}
	if containsAny(joined, cropHints) {
		return models.KindCrop
	}
	for _, k := range keys {
		if slices.Contains(monthKeys, k) {
			return models.KindRainfall
		}
	}
	return models.KindCrop
}

// cropFromName derives the crop of a per-crop file, e.g. "crop_maize.csv"
func cropFromName(name string) string {
	lower := strings.ToLower(name)
	for _, alias := range []string{"maize", "corn", "ragi", "paddy", "rice"} {
		if strings.Contains(lower, alias) {
			return knownCrops[alias]
		}
	}
	return ""
}

// stateFromName infers a state from the file name, falling back to def
func stateFromName(name, def string) string {
	lower := strings.ToLower(strings.NewReplacer("_", " ", "-", " ").Replace(name))
	for _, st := range knownStates {
		if strings.Contains(lower, st) {
			return cases.Title(language.English).String(st)
		}
	}
	return def
}

func detectShape(t *table, entry *ManifestEntry) (shape, error) {
	s := shape{
		kind:      classifyKind(t),
		yearIdx:   -1,
		seasonIdx: -1,
		cropIdx:   -1,
		stateIdx:  -1,
		annualIdx: -1,
		longCols:  map[string]int{},
	}
	if entry != nil && entry.Kind != "" {
		s.kind = models.DatasetKind(entry.Kind)
	}

	s.granularity = models.GranularityDistrict
	if s.kind == models.KindRainfall {
		s.granularity = models.GranularitySubdivision
	}
	if entry != nil && entry.Granularity != "" {
		s.granularity = models.Granularity(entry.Granularity)
	}

	if s.kind == models.KindCrop {
		s.cropType = cropFromName(t.name)
	}
	if entry != nil && entry.CropType != "" {
		s.cropType = state.Key(entry.CropType)
		if canonical, ok := knownCrops[s.cropType]; ok {
			s.cropType = canonical
		}
	}

	s.locIdx = locationColumn(t, s.kind, entry)
	if s.locIdx < 0 {
		return s, eris.Errorf("%s: no location column in %v", t.name, t.headers)
	}

	s.yearIdx = t.column(func(k string) bool {
		return k == "year" || k == "crop year" || strings.HasPrefix(k, "year ")
	})
	s.seasonIdx = t.column(func(k string) bool { return k == "season" })
	s.cropIdx = t.column(func(k string) bool { return k == "crop" || k == "crop name" || k == "crop type" })
	if s.granularity == models.GranularityDistrict {
		s.stateIdx = t.column(func(k string) bool { return k == "state" || k == "state name" })
		if s.stateIdx == s.locIdx {
			s.stateIdx = -1
		}
	}

	if s.kind == models.KindRainfall {
		s.annualIdx = t.column(func(k string) bool { return strings.Contains(k, "annual") || k == "total" })
		for _, m := range monthKeys {
			if idx := t.column(func(k string) bool { return k == m }); idx >= 0 {
				s.monthIdx = append(s.monthIdx, idx)
			}
		}
		if s.annualIdx < 0 && len(s.monthIdx) == 0 {
			return s, eris.Errorf("%s: no annual or monthly rainfall columns", t.name)
		}
		return s, nil
	}

	s.wide = map[string]map[string]int{}
	for i, h := range t.headers {
		m := seasonHeaderRe.FindStringSubmatch(headerKey(h))
		if m == nil {
			continue
		}
		season := canonicalSeason(m[1])
		if _, ok := s.wide[season]; !ok {
			s.wide[season] = map[string]int{}
			s.seasons = append(s.seasons, season)
		}
		if _, dup := s.wide[season][m[2]]; !dup {
			s.wide[season][m[2]] = i
		}
	}
	if len(s.wide) > 0 {
		if _, ok := s.wide[models.DefaultSeason]; !ok {
			s.seasons = append(s.seasons, models.DefaultSeason)
		}
		return s, nil
	}
	s.wide = nil

	for _, metric := range []string{models.MetricProduction, models.MetricArea, models.MetricYield, models.MetricValue} {
		idx := t.column(func(k string) bool { return strings.Contains(k, metric) })
		if idx >= 0 {
			s.longCols[metric] = idx
		}
	}
	if len(s.longCols) == 0 {
		return s, eris.Errorf("%s: no production, area, yield or value columns", t.name)
	}
	return s, nil
}

func locationColumn(t *table, kind models.DatasetKind, entry *ManifestEntry) int {
	if entry != nil && entry.LocationColumn != "" {
		want := headerKey(entry.LocationColumn)
		return t.column(func(k string) bool { return k == want })
	}
	var probes []func(string) bool
	if kind == models.KindRainfall {
		probes = []func(string) bool{
			func(k string) bool { return strings.Contains(k, "subdiv") },
			func(k string) bool { return k == "region" || k == "state" },
			func(k string) bool { return strings.Contains(k, "district") },
		}
	} else {
		probes = []func(string) bool{
			func(k string) bool { return strings.Contains(k, "district") },
			func(k string) bool { return k == "location" || k == "region" },
			func(k string) bool { return k == "state" || k == "state name" },
		}
	}
	for _, p := range probes {
		if idx := t.column(p); idx >= 0 {
			return idx
		}
	}
	return -1
}

// canonicalSeason maps source season labels onto display names
func canonicalSeason(raw string) string {
	switch k := headerKey(raw); k {
	case "total", "all", "all season", "all seasons":
		return models.DefaultSeason
	case "":
		return ""
	default:
		return cases.Title(language.English).String(k)
	}
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
