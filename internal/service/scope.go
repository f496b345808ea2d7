package service

import (
	"slices"
	"strings"

	"samarth-go/internal/models"
	"samarth-go/internal/state"
)

// candidateDatasets returns the datasets an intent can be answered from,
// ordered by id. Crops narrow first, then named locations, then everything.
func candidateDatasets(reg *state.Registry, intent models.Intent) []*state.Dataset {
	var out []*state.Dataset
	seen := make(map[string]bool)
	add := func(ds *state.Dataset) {
		if !seen[ds.Descriptor.ID] {
			seen[ds.Descriptor.ID] = true
			out = append(out, ds)
		}
	}

	for _, crop := range intent.Crops {
		if isSpiceCrop(crop) {
			for _, ds := range reg.ByKind(models.KindSpice) {
				add(ds)
			}
			continue
		}
		for _, ds := range reg.ByKind(models.KindCrop) {
			if strings.EqualFold(ds.Descriptor.CropType, crop) || ds.Descriptor.CropColumn != "" {
				add(ds)
			}
		}
	}
	if len(intent.Crops) == 0 {
		for _, kind := range []models.DatasetKind{models.KindCrop, models.KindSpice} {
			if intent.NeedsDomain(kind) {
				for _, ds := range reg.ByKind(kind) {
					add(ds)
				}
			}
		}
	}

	if intent.NeedsDomain(models.KindRainfall) ||
		intent.Action == models.ActionCorrelate || intent.Action == models.ActionRecommend {
		for _, ds := range reg.ByKind(models.KindRainfall) {
			add(ds)
		}
	}

	if len(out) == 0 && len(intent.Locations) > 0 {
		for _, ds := range reg.Datasets() {
			for _, loc := range intent.Locations {
				if ds.HasLocation(loc) || hasDistrictOf(reg, ds, loc) {
					add(ds)
					break
				}
			}
		}
	}
	if len(out) == 0 {
		out = reg.Datasets()
	}

	slices.SortStableFunc(out, func(a, b *state.Dataset) int {
		return strings.Compare(a.Descriptor.ID, b.Descriptor.ID)
	})
	return out
}

// resolveLocations maps the intent's location names onto the names a dataset
// actually uses, in mention order. An empty intent list means every location.
func resolveLocations(reg *state.Registry, gm *GeoMatcher, ds *state.Dataset, names []string) []string {
	if len(names) == 0 {
		return ds.Locations()
	}

	var out []string
	seen := make(map[string]bool)
	add := func(loc string) {
		if k := state.Key(loc); !seen[k] {
			seen[k] = true
			out = append(out, loc)
		}
	}

	threshold := gm.policy.MatchThreshold
	for _, name := range names {
		if ds.HasLocation(name) {
			for _, loc := range ds.Locations() {
				if state.Key(loc) == state.Key(name) {
					add(loc)
				}
			}
			continue
		}

		switch ds.Descriptor.Granularity {
		case models.GranularityDistrict:
			if reg.IsState(name) {
				for _, d := range reg.DistrictsOf(name) {
					if ds.HasLocation(d) {
						add(d)
					}
				}
				continue
			}
			for _, loc := range ds.Locations() {
				if gm.Score(name, loc).Score >= threshold {
					add(loc)
				}
			}
		case models.GranularitySubdivision:
			probes := []string{name}
			if reg.IsState(name) {
				probes = append(probes, reg.DistrictsOf(name)...)
			}
			for _, loc := range ds.Locations() {
				for _, p := range probes {
					if gm.Score(loc, p).Score >= threshold {
						add(loc)
						break
					}
				}
			}
		}
	}
	return out
}

// yearsFor returns the effective year filter for ds, resolving relative spans
// against the dataset's own latest year. Snapshots are never filtered.
func yearsFor(intent models.Intent, ds *state.Dataset) *models.YearRange {
	if ds.Descriptor.IsSnapshot() {
		return nil
	}
	if intent.YearRange != nil {
		yr := *intent.YearRange
		return &yr
	}
	if intent.RelativeYears > 0 && ds.MaxYear() > 0 {
		return &models.YearRange{Start: ds.MaxYear() - intent.RelativeYears + 1, End: ds.MaxYear()}
	}
	return nil
}

// isStateLevel reports whether name is broader than a district
func isStateLevel(reg *state.Registry, name string) bool {
	if reg.IsDistrict(name) {
		return false
	}
	return reg.IsState(name) || reg.IsSubdivision(name)
}

func isSpiceCrop(crop string) bool {
	return state.Key(crop) == "spice" || IsSpiceSubtype(crop)
}

func hasDistrictOf(reg *state.Registry, ds *state.Dataset, name string) bool {
	for _, d := range reg.DistrictsOf(name) {
		if ds.HasLocation(d) {
			return true
		}
	}
	return false
}

func distinctLocationCount(datasets []*state.Dataset) int {
	seen := make(map[string]bool)
	for _, ds := range datasets {
		for _, loc := range ds.Locations() {
			seen[state.Key(loc)] = true
		}
	}
	return len(seen)
}
