package service

import (
	"fmt"
	"slices"
	"strings"

	"samarth-go/internal/models"
	"samarth-go/internal/state"

	"go.uber.org/zap"
)

// FeasibilityChecker decides whether an intent can be answered from the
// registry and proposes rewrites when it cannot. It holds no mutable state.
type FeasibilityChecker struct {
	reg    *state.Registry
	policy Policy
}

// NewFeasibilityChecker creates a checker over reg
func NewFeasibilityChecker(reg *state.Registry, policy Policy) *FeasibilityChecker {
	return &FeasibilityChecker{reg: reg, policy: policy.withDefaults()}
}

// repair is one rule's fix, applied to an intent to build a rewrite
type repair struct {
	reason    models.ReasonCode
	apply     func(models.Intent) models.Intent
	rationale string
	question  func(models.Intent) string
}

// ResolveYears turns a relative span into an explicit range ending at the
// latest year of the time-series candidates. Without such candidates the
// intent is returned unchanged.
func (fc *FeasibilityChecker) ResolveYears(intent models.Intent) models.Intent {
	if intent.YearRange != nil || intent.RelativeYears <= 0 {
		return intent.Clone()
	}
	maxYear := 0
	for _, ds := range candidateDatasets(fc.reg, intent) {
		if !ds.Descriptor.IsSnapshot() && ds.MaxYear() > maxYear {
			maxYear = ds.MaxYear()
		}
	}
	if maxYear == 0 {
		return intent.Clone()
	}
	return intent.WithYearRange(models.YearRange{Start: maxYear - intent.RelativeYears + 1, End: maxYear})
}

// Check evaluates every rule and collects all failing reasons in rule order
func (fc *FeasibilityChecker) Check(intent models.Intent) models.Verdict {
	resolved := fc.ResolveYears(intent)
	candidates := candidateDatasets(fc.reg, resolved)
	gm := NewGeoMatcher(fc.policy)

	var reasons []models.ReasonCode
	var repairs []repair

	if r, ok := fc.checkTemporal(resolved, candidates); ok {
		reasons = append(reasons, r.reason)
		repairs = append(repairs, r)
	}

	if r, failed, recoverable := fc.checkGranularity(resolved, candidates, gm); failed {
		reasons = append(reasons, models.ReasonGranularityMismatch)
		if recoverable {
			repairs = append(repairs, r)
		} else {
			reasons = append(reasons, models.ReasonGranularityUnrecoverable)
		}
	}

	if r, ok := fc.checkSubtype(resolved, candidates); ok {
		reasons = append(reasons, r.reason)
		repairs = append(repairs, r)
	}

	if fc.lacksGeoOverlap(resolved, candidates, gm) {
		reasons = append(reasons, models.ReasonNoGeoOverlap)
	}

	verdict := models.Verdict{
		Status:   models.StatusFeasible,
		Reasons:  []models.ReasonCode{},
		Rewrites: []models.Rewrite{},
		Intent:   resolved,
	}
	if len(reasons) > 0 {
		verdict.Status = models.StatusInfeasible
		verdict.Reasons = reasons
		verdict.Rewrites = fc.buildRewrites(resolved, repairs)
	}

	zap.L().Debug("feasibility verdict",
		zap.String("raw", intent.Raw),
		zap.String("status", string(verdict.Status)),
		zap.Any("reasons", verdict.Reasons),
		zap.Int("rewrites", len(verdict.Rewrites)),
	)
	return verdict
}

// checkTemporal fails a year filter or a trend when every candidate is a
// single snapshot. A trend needs no year phrase to fail.
func (fc *FeasibilityChecker) checkTemporal(intent models.Intent, candidates []*state.Dataset) (repair, bool) {
	if len(candidates) == 0 || (!intent.HasYears() && intent.Action != models.ActionTrend) {
		return repair{}, false
	}
	for _, ds := range candidates {
		if !ds.Descriptor.IsSnapshot() {
			return repair{}, false
		}
	}

	locations := distinctLocationCount(candidates)
	rationale := "the matching datasets are single snapshots with no year column, so the time filter was dropped and the current figures are shown instead"
	if !intent.HasYears() {
		rationale = "the matching datasets are single snapshots with no year column, so there is no trend to show and the current figures are ranked instead"
	}
	return repair{
		reason: models.ReasonNoTemporalData,
		apply: func(in models.Intent) models.Intent {
			out := in.WithoutYears()
			if out.Action == models.ActionTrend {
				out = out.WithAction(models.ActionRank, models.Descending).WithTopN(locations)
			}
			return out
		},
		rationale: rationale,
		question: func(in models.Intent) string {
			return fmt.Sprintf("current %s %s across %s", cropPhrase(in), metricPhrase(in), placePhrase(in))
		},
	}, true
}

// checkGranularity reports a mismatch between location level and dataset
// level. recoverable is false when some location has no replacement.
func (fc *FeasibilityChecker) checkGranularity(intent models.Intent, candidates []*state.Dataset, gm *GeoMatcher) (r repair, failed, recoverable bool) {
	if len(intent.Locations) == 0 || len(candidates) == 0 {
		return repair{}, false, false
	}

	allDistrict, allSubdivision := true, true
	for _, ds := range candidates {
		switch ds.Descriptor.Granularity {
		case models.GranularityDistrict:
			allSubdivision = false
		case models.GranularitySubdivision:
			allDistrict = false
		default:
			allDistrict, allSubdivision = false, false
		}
	}

	replacements := make(map[string][]string)
	recoverable = true
	for _, loc := range intent.Locations {
		var repl []string
		switch {
		case allDistrict && isStateLevel(fc.reg, loc):
			repl = fc.districtsFor(loc, candidates, gm)
		case allSubdivision && fc.reg.IsDistrict(loc) && !fc.reg.IsSubdivision(loc):
			repl = fc.subdivisionsFor(loc, candidates, gm)
		default:
			continue
		}
		failed = true
		if len(repl) == 0 {
			recoverable = false
		}
		replacements[state.Key(loc)] = repl
	}
	if !failed {
		return repair{}, false, false
	}

	return repair{
		reason: models.ReasonGranularityMismatch,
		apply: func(in models.Intent) models.Intent {
			var locs []string
			for _, loc := range in.Locations {
				if repl, ok := replacements[state.Key(loc)]; ok {
					locs = appendUnique(locs, repl...)
				} else {
					locs = appendUnique(locs, loc)
				}
			}
			return in.WithLocations(locs)
		},
		rationale: "the data is recorded at a different geographic level than the named location, so it was replaced with the matching locations at the data's level",
		question: func(in models.Intent) string {
			return fmt.Sprintf("%s %s for %s", cropPhrase(in), metricPhrase(in), placePhrase(in))
		},
	}, true, recoverable
}

// districtsFor lists replacement districts for a state-level name: the
// mapped districts first, then fuzzy matches above the rewrite threshold.
func (fc *FeasibilityChecker) districtsFor(name string, candidates []*state.Dataset, gm *GeoMatcher) []string {
	var out []string
	for _, d := range fc.reg.DistrictsOf(name) {
		if inAny(candidates, d) {
			out = appendUnique(out, d)
		}
	}
	for _, ds := range candidates {
		for _, d := range ds.Locations() {
			if gm.Score(name, d).Score >= fc.policy.RewriteThreshold {
				out = appendUnique(out, d)
			}
		}
	}
	return out
}

// subdivisionsFor lists replacement subdivisions for a district, matching
// on the district itself and on its state.
func (fc *FeasibilityChecker) subdivisionsFor(name string, candidates []*state.Dataset, gm *GeoMatcher) []string {
	probes := []string{name}
	if st, ok := fc.reg.StateOf(name); ok {
		probes = append(probes, st)
	}
	var out []string
	for _, ds := range candidates {
		for _, sub := range ds.Locations() {
			for _, p := range probes {
				if gm.Score(sub, p).Score >= fc.policy.RewriteThreshold {
					out = appendUnique(out, sub)
					break
				}
			}
		}
	}
	return out
}

func (fc *FeasibilityChecker) checkSubtype(intent models.Intent, candidates []*state.Dataset) (repair, bool) {
	var spices []*state.Dataset
	for _, ds := range candidates {
		if ds.Descriptor.Kind == models.KindSpice {
			spices = append(spices, ds)
		}
	}
	if len(spices) == 0 {
		return repair{}, false
	}

	missing := false
	for _, crop := range intent.Crops {
		if !IsSpiceSubtype(crop) {
			continue
		}
		supported := false
		for _, ds := range spices {
			if ds.Descriptor.HasSubtypeDimension(crop) {
				supported = true
				break
			}
		}
		if !supported {
			missing = true
		}
	}
	if !missing {
		return repair{}, false
	}

	return repair{
		reason: models.ReasonNoSubtypeDimension,
		apply: func(in models.Intent) models.Intent {
			var crops []string
			for _, c := range in.Crops {
				if !IsSpiceSubtype(c) {
					crops = appendUnique(crops, c)
				}
			}
			return in.WithCrops(appendUnique(crops, "spice"))
		},
		rationale: "the spice data is aggregated across all spices and cannot be split by individual spice, so the aggregate figure is used instead",
		question: func(in models.Intent) string {
			q := fmt.Sprintf("total %s %s by district", cropPhrase(in), metricPhrase(in))
			if len(in.Locations) > 0 {
				q += " in " + placePhrase(in)
			}
			return q
		},
	}, true
}

// lacksGeoOverlap reports a correlation whose two domains share no location
func (fc *FeasibilityChecker) lacksGeoOverlap(intent models.Intent, candidates []*state.Dataset, gm *GeoMatcher) bool {
	if intent.Action != models.ActionCorrelate {
		return false
	}
	var subs, dists []string
	for _, ds := range candidates {
		locs := resolveLocations(fc.reg, gm, ds, intent.Locations)
		if ds.Descriptor.Kind == models.KindRainfall {
			subs = appendUnique(subs, locs...)
		} else {
			dists = appendUnique(dists, locs...)
		}
	}
	return len(gm.Match(subs, dists)) == 0
}

// buildRewrites offers each repair alone plus, when several apply, all of
// them combined. The list is ordered by how many locations each would cover.
func (fc *FeasibilityChecker) buildRewrites(intent models.Intent, repairs []repair) []models.Rewrite {
	rewrites := []models.Rewrite{}
	if len(repairs) == 0 {
		return rewrites
	}

	if len(repairs) > 1 {
		combined := intent.Clone()
		var rationale []string
		for _, r := range repairs {
			combined = r.apply(combined)
			rationale = append(rationale, r.rationale)
		}
		combined.Notes = nil
		rewrites = append(rewrites, models.Rewrite{
			Intent:    combined,
			Rationale: strings.Join(rationale, "; "),
			Question:  repairs[0].question(combined),
		})
	}
	for _, r := range repairs {
		rewritten := r.apply(intent)
		rewritten.Notes = nil
		rewrites = append(rewrites, models.Rewrite{
			Intent:    rewritten,
			Rationale: r.rationale,
			Question:  r.question(rewritten),
		})
	}

	richness := make([]int, len(rewrites))
	for i, rw := range rewrites {
		richness[i] = fc.richness(rw.Intent)
	}
	order := make([]int, len(rewrites))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return richness[b] - richness[a] })

	sorted := make([]models.Rewrite, 0, len(rewrites))
	for _, i := range order {
		sorted = append(sorted, rewrites[i])
	}
	if len(sorted) > fc.policy.MaxRewrites {
		sorted = sorted[:fc.policy.MaxRewrites]
	}
	return sorted
}

// richness counts the distinct locations a rewritten intent would cover
func (fc *FeasibilityChecker) richness(intent models.Intent) int {
	gm := NewGeoMatcher(fc.policy)
	seen := make(map[string]bool)
	for _, ds := range candidateDatasets(fc.reg, intent) {
		for _, loc := range resolveLocations(fc.reg, gm, ds, intent.Locations) {
			seen[state.Key(loc)] = true
		}
	}
	return len(seen)
}

func cropPhrase(in models.Intent) string {
	if len(in.Crops) == 0 {
		if in.NeedsDomain(models.KindRainfall) && !in.NeedsDomain(models.KindCrop) {
			return "annual"
		}
		return "crop"
	}
	return strings.Join(in.Crops, " and ")
}

func metricPhrase(in models.Intent) string {
	if in.Metric != "" {
		return in.Metric
	}
	if len(in.Crops) == 0 && in.NeedsDomain(models.KindRainfall) && !in.NeedsDomain(models.KindCrop) {
		return models.MetricRainfall
	}
	return models.MetricProduction
}

func placePhrase(in models.Intent) string {
	if len(in.Locations) == 0 {
		return "all districts"
	}
	return strings.Join(in.Locations, ", ")
}

func inAny(datasets []*state.Dataset, loc string) bool {
	for _, ds := range datasets {
		if ds.HasLocation(loc) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, items ...string) []string {
	for _, it := range items {
		k := state.Key(it)
		dup := false
		for _, existing := range list {
			if state.Key(existing) == k {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, it)
		}
	}
	return list
}
