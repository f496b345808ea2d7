package service

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"samarth-go/internal/models"
	"samarth-go/internal/state"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Analyzer executes feasible intents against the registry. It does not
// re-check feasibility; callers run the FeasibilityChecker first.
type Analyzer struct {
	reg    *state.Registry
	policy Policy
	clock  clockwork.Clock
}

// NewAnalyzer creates an analyzer. clock stamps citations; nil means wall time.
func NewAnalyzer(reg *state.Registry, policy Policy, clock clockwork.Clock) *Analyzer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Analyzer{reg: reg, policy: policy.withDefaults(), clock: clock}
}

// analysisRun is the per-call state of one Analyze invocation
type analysisRun struct {
	*Analyzer
	intent    models.Intent
	gm        *GeoMatcher
	citations *CitationTracker
	result    models.AnalysisResult
}

// Analyze runs the intent's action. Degraded outcomes (no matching records,
// too few pairs) come back as empty rows or absent stats plus a note.
func (a *Analyzer) Analyze(intent models.Intent) models.AnalysisResult {
	run := &analysisRun{
		Analyzer:  a,
		intent:    intent,
		gm:        NewGeoMatcher(a.policy),
		citations: NewCitationTracker(a.clock),
		result: models.AnalysisResult{
			Action:     intent.Action,
			Direction:  intent.Direction,
			Rows:       []models.Row{},
			Aggregates: map[string]float64{},
		},
	}

	datasets := candidateDatasets(a.reg, intent)
	switch intent.Action {
	case models.ActionRank:
		run.rank(datasets)
	case models.ActionCompare:
		run.compare(datasets)
	case models.ActionCorrelate:
		run.correlate(datasets)
	case models.ActionRecommend:
		run.recommend(datasets)
	case models.ActionTrend:
		run.trend(datasets)
	default:
		run.result.Action = models.ActionIdentify
		run.identify(datasets)
	}

	run.result.Citations = run.citations.Citations()
	if run.result.Empty() {
		run.note("no records matched the question")
	}

	zap.L().Debug("analysis complete",
		zap.String("action", string(run.result.Action)),
		zap.Int("rows", len(run.result.Rows)),
		zap.Int("citations", len(run.result.Citations)),
	)
	return run.result
}

func (r *analysisRun) note(format string, args ...any) {
	r.result.Notes = append(r.result.Notes, fmt.Sprintf(format, args...))
}

func (r *analysisRun) direction() models.Direction {
	if r.intent.Direction == models.Ascending {
		return models.Ascending
	}
	return models.Descending
}

func (r *analysisRun) topN() int {
	if r.intent.TopN != nil && *r.intent.TopN > 0 {
		return *r.intent.TopN
	}
	return r.policy.DefaultTopN
}

// rankedRows aggregates ds per location and sorts by the intent's direction
func (r *analysisRun) rankedRows(ds *state.Dataset) ([]models.Row, filter, int) {
	f := r.filterFor(ds, resolveLocations(r.reg, r.gm, ds, r.intent.Locations), nil)
	var rows []models.Row
	points := 0
	for _, g := range f.byLocation() {
		if row, ok := f.row(g.label, g.label, g.values); ok {
			rows = append(rows, row)
			points += row.Count
		}
	}
	sortRows(rows, r.direction())
	return rows, f, points
}

// rank pools rows from every dataset before sorting, so topN applies to
// the whole result. Only datasets with a surviving row are cited.
func (r *analysisRun) rank(datasets []*state.Dataset) {
	r.result.Direction = r.direction()

	type source struct {
		f      filter
		points int
	}
	sources := make(map[string]source, len(datasets))
	var order []string

	var rows []models.Row
	total, hasTotal := 0.0, false
	for _, ds := range datasets {
		dsRows, f, points := r.rankedRows(ds)
		if len(dsRows) == 0 {
			continue
		}
		if ds.Descriptor.Kind != models.KindRainfall {
			for _, row := range dsRows {
				total += row.Value
			}
			hasTotal = true
		}
		rows = append(rows, dsRows...)
		sources[ds.Descriptor.ID] = source{f: f, points: points}
		order = append(order, ds.Descriptor.ID)
	}

	sortRows(rows, r.direction())
	if n := r.topN(); len(rows) > n {
		rows = rows[:n]
	}
	r.result.Rows = append(r.result.Rows, rows...)

	used := make(map[string]bool, len(order))
	for _, row := range rows {
		used[row.Dataset] = true
	}
	for _, id := range order {
		if used[id] {
			src := sources[id]
			r.citations.Add(id, src.f.describe(), src.points, src.f.columns()...)
		}
	}
	if hasTotal {
		r.result.Aggregates["total"] = total
	}
}

// identify reports the extreme value per dataset. Every location sharing it
// is returned, never an arbitrary single winner.
func (r *analysisRun) identify(datasets []*state.Dataset) {
	r.result.Direction = r.direction()
	for _, ds := range datasets {
		rows, f, points := r.rankedRows(ds)
		if len(rows) == 0 {
			continue
		}
		extreme := rows[0].Value
		var ties []models.Row
		for _, row := range rows {
			if row.Value == extreme {
				ties = append(ties, row)
			}
		}
		if len(ties) > 1 {
			labels := make([]string, 0, len(ties))
			for _, t := range ties {
				labels = append(labels, t.Label)
			}
			r.note("tie in %s: %s share %s", ds.Descriptor.ID, strings.Join(labels, ", "), formatNumber(extreme))
		}
		r.result.Rows = append(r.result.Rows, ties...)
		r.citations.Add(ds.Descriptor.ID, f.describe(), points, f.columns()...)
	}
}

// compare aggregates each named location independently, or each named
// season when only one location is given.
func (r *analysisRun) compare(datasets []*state.Dataset) {
	bySeason := len(r.intent.Locations) < 2 && len(r.intent.Seasons) >= 2
	if len(r.intent.Locations) < 2 && !bySeason {
		r.note("comparison needs at least two locations or seasons")
		return
	}

	resolved := make(map[string]bool)
	var rows []models.Row
	for _, ds := range datasets {
		if bySeason {
			if !ds.Descriptor.HasSeasons() {
				continue
			}
			locs := resolveLocations(r.reg, r.gm, ds, r.intent.Locations)
			for _, season := range r.intent.Seasons {
				f := r.filterFor(ds, locs, []string{season})
				vals := f.values()
				r.citations.Add(ds.Descriptor.ID, f.describe(), len(vals), f.columns()...)
				row, ok := f.row(season, strings.Join(r.intent.Locations, ", "), vals)
				if !ok {
					continue
				}
				row.Season = season
				rows = append(rows, row)
				resolved[season] = true
			}
			continue
		}

		for _, loc := range r.intent.Locations {
			locs := resolveLocations(r.reg, r.gm, ds, []string{loc})
			if len(locs) == 0 {
				continue
			}
			f := r.filterFor(ds, locs, nil)
			vals := f.values()
			r.citations.Add(ds.Descriptor.ID, f.describe(), len(vals), f.columns()...)
			row, ok := f.row(loc, loc, vals)
			if !ok {
				continue
			}
			rows = append(rows, row)
			resolved[state.Key(loc)] = true
		}
	}

	if len(resolved) < 2 {
		r.note("only %d of the compared entities matched any record", len(resolved))
		return
	}
	r.result.Rows = rows
}

// correlate pairs rainfall subdivisions with crop districts and computes a
// Pearson coefficient per crop dataset. The dataset pair with the most
// matched points supplies CorrelationStats.
func (r *analysisRun) correlate(datasets []*state.Dataset) {
	var rains, crops []*state.Dataset
	for _, ds := range datasets {
		if ds.Descriptor.Kind == models.KindRainfall {
			rains = append(rains, ds)
		} else {
			crops = append(crops, ds)
		}
	}
	if len(rains) == 0 || len(crops) == 0 {
		r.note("correlation needs both rainfall and crop data")
		return
	}

	var best *models.CorrelationStats
	for _, c := range crops {
		for _, rain := range rains {
			subs := resolveLocations(r.reg, r.gm, rain, r.intent.Locations)
			dists := resolveLocations(r.reg, r.gm, c, r.intent.Locations)
			matches := r.gm.Match(subs, dists)

			fr := r.filterFor(rain, subs, nil)
			fc := r.filterFor(c, dists, nil)
			rainBy := indexGroups(fr.byLocation())
			cropBy := indexGroups(fc.byLocation())

			var xs, ys []float64
			var used []models.GeoMatch
			for _, m := range matches {
				rv, rok := rainBy[state.Key(m.Subdivision)]
				cv, cok := cropBy[state.Key(m.District)]
				if !rok || !cok {
					continue
				}
				rainMean, _ := mean(rv)
				cropMean, _ := mean(cv)

				row, _ := fc.row(m.District+" / "+m.Subdivision, m.District, cv)
				row.Secondary = &rainMean
				r.result.Rows = append(r.result.Rows, row)

				r.citations.Add(rain.Descriptor.ID,
					fmt.Sprintf("%s; %s matched to %s", fr.describe(), m.Subdivision, m.District),
					len(rv), fr.columns()...)
				r.citations.Add(c.Descriptor.ID,
					fmt.Sprintf("%s; %s matched to %s", fc.describe(), m.District, m.Subdivision),
					len(cv), fc.columns()...)

				xs = append(xs, rainMean)
				ys = append(ys, cropMean)
				used = append(used, m)
			}

			if len(xs) < 2 {
				r.note("%s and %s share %d matched locations; at least 2 are needed for a correlation", rain.Descriptor.ID, c.Descriptor.ID, len(xs))
				continue
			}
			coeff, ok := pearsonCorrelation(xs, ys)
			if !ok {
				r.note("%s and %s have no variance across matched locations", rain.Descriptor.ID, c.Descriptor.ID)
				continue
			}
			r.result.Aggregates["correlation:"+c.Descriptor.ID] = coeff
			if best == nil || len(xs) > best.SampleSize {
				best = &models.CorrelationStats{Coefficient: coeff, SampleSize: len(xs), MatchedPairs: used}
			}
		}
	}

	r.result.CorrelationStats = best
	if best != nil {
		r.result.Aggregates["correlation"] = best.Coefficient
		r.result.Aggregates["pairs"] = float64(best.SampleSize)
	}
}

// recommend classifies every in-scope rainfall location into a bucket
func (r *analysisRun) recommend(datasets []*state.Dataset) {
	found := false
	for _, ds := range datasets {
		if ds.Descriptor.Kind != models.KindRainfall {
			continue
		}
		if !found {
			found = true
			r.result.Buckets = map[string]string{}
			for _, b := range []string{bucketLow, bucketModerate, bucketHigh} {
				r.result.Aggregates[b] = 0
			}
		}

		f := r.filterFor(ds, resolveLocations(r.reg, r.gm, ds, r.intent.Locations), nil)
		var rows []models.Row
		points := 0
		for _, g := range f.byLocation() {
			row, ok := f.row(g.label, g.label, g.values)
			if !ok {
				continue
			}
			b := r.bucket(row.Value)
			r.result.Buckets[g.label] = b
			r.result.Aggregates[b]++
			rows = append(rows, row)
			points += row.Count
		}
		sortRows(rows, models.Descending)
		r.result.Rows = append(r.result.Rows, rows...)
		r.citations.Add(ds.Descriptor.ID,
			fmt.Sprintf("%s; classified low <%smm, high >%smm", f.describe(), formatNumber(r.policy.LowRainfallMM), formatNumber(r.policy.HighRainfallMM)),
			points, f.columns()...)
	}
	if !found {
		r.note("recommendations need rainfall data")
	}
}

const (
	bucketLow      = "low"
	bucketModerate = "moderate"
	bucketHigh     = "high"
)

func (r *analysisRun) bucket(rainfall float64) string {
	switch {
	case rainfall < r.policy.LowRainfallMM:
		return bucketLow
	case rainfall > r.policy.HighRainfallMM:
		return bucketHigh
	default:
		return bucketModerate
	}
}

// trend aggregates per year. The first dataset with data supplies Series
// and the variance/slope aggregates.
func (r *analysisRun) trend(datasets []*state.Dataset) {
	for _, ds := range datasets {
		if ds.Descriptor.IsSnapshot() {
			r.note("%s has no year dimension and was left out of the trend", ds.Descriptor.ID)
			continue
		}
		f := r.filterFor(ds, resolveLocations(r.reg, r.gm, ds, r.intent.Locations), nil)
		periods := f.byYear()
		if len(periods) == 0 {
			continue
		}

		var xs, ys []float64
		var series []models.Point
		points := 0
		for _, p := range periods {
			row, ok := f.row(strconv.Itoa(p.year), "", p.values)
			if !ok {
				continue
			}
			year := p.year
			row.Period = &year
			r.result.Rows = append(r.result.Rows, row)
			series = append(series, models.Point{Period: year, Value: row.Value})
			xs = append(xs, float64(year))
			ys = append(ys, row.Value)
			points += row.Count
		}
		r.citations.Add(ds.Descriptor.ID, f.describe(), points, f.columns()...)

		if r.result.Series != nil || len(series) == 0 {
			continue
		}
		r.result.Series = series
		if m, ok := mean(ys); ok {
			r.result.Aggregates["mean"] = m
		}
		if v, ok := sampleVariance(ys); ok {
			r.result.Aggregates["variance"] = v
		}
		if s, ok := linearSlope(xs, ys); ok {
			r.result.Aggregates["slope"] = s
		}
	}
}

// filter selects records of one dataset for one metric
type filter struct {
	ds        *state.Dataset
	metric    string
	seasons   []string
	years     *models.YearRange
	locations map[string]bool
	scope     []string
	crops     []string
}

func (r *analysisRun) filterFor(ds *state.Dataset, locations []string, seasons []string) filter {
	f := filter{
		ds:     ds,
		metric: metricFor(ds.Descriptor, r.intent.Metric),
		years:  yearsFor(r.intent, ds),
	}

	if len(r.intent.Locations) > 0 {
		f.locations = make(map[string]bool, len(locations))
		for _, loc := range locations {
			f.locations[state.Key(loc)] = true
		}
		f.scope = locations
	}

	if ds.Descriptor.HasSeasons() {
		switch {
		case len(seasons) > 0:
			f.seasons = seasons
		case len(r.intent.Seasons) > 0:
			f.seasons = r.intent.Seasons
		case slices.Contains(ds.Descriptor.Seasons, models.DefaultSeason):
			f.seasons = []string{models.DefaultSeason}
		}
	}

	if ds.Descriptor.CropColumn != "" {
		for _, c := range r.intent.Crops {
			if state.Key(c) != "spice" {
				f.crops = append(f.crops, c)
			}
		}
	}
	return f
}

func (f filter) match(rec models.Record) bool {
	if f.locations != nil && !f.locations[state.Key(rec.Location)] {
		return false
	}
	if f.years != nil && (rec.Year == nil || !f.years.Contains(*rec.Year)) {
		return false
	}
	if len(f.seasons) > 0 && !containsFold(f.seasons, rec.Season) {
		return false
	}
	if len(f.crops) > 0 && !containsFold(f.crops, rec.Text(models.MetricCrop)) {
		return false
	}
	return true
}

// values returns every non-null metric value of matching records
func (f filter) values() []float64 {
	var out []float64
	for _, rec := range f.ds.Records {
		if !f.match(rec) {
			continue
		}
		if v, ok := rec.Number(f.metric); ok {
			out = append(out, v)
		}
	}
	return out
}

type locationGroup struct {
	label  string
	values []float64
}

// byLocation groups non-null values by location in first-appearance order.
// Locations with no values are omitted.
func (f filter) byLocation() []locationGroup {
	var groups []locationGroup
	index := make(map[string]int)
	for _, rec := range f.ds.Records {
		if !f.match(rec) {
			continue
		}
		v, ok := rec.Number(f.metric)
		if !ok {
			continue
		}
		k := state.Key(rec.Location)
		i, seen := index[k]
		if !seen {
			i = len(groups)
			index[k] = i
			groups = append(groups, locationGroup{label: rec.Location})
		}
		groups[i].values = append(groups[i].values, v)
	}
	return groups
}

type periodGroup struct {
	year   int
	values []float64
}

func (f filter) byYear() []periodGroup {
	byYear := make(map[int][]float64)
	for _, rec := range f.ds.Records {
		if rec.Year == nil || !f.match(rec) {
			continue
		}
		if v, ok := rec.Number(f.metric); ok {
			byYear[*rec.Year] = append(byYear[*rec.Year], v)
		}
	}
	out := make([]periodGroup, 0, len(byYear))
	for y, vals := range byYear {
		out = append(out, periodGroup{year: y, values: vals})
	}
	slices.SortFunc(out, func(a, b periodGroup) int { return cmp.Compare(a.year, b.year) })
	return out
}

// row summarises vals; ok is false when there is nothing to summarise
func (f filter) row(label, location string, vals []float64) (models.Row, bool) {
	m, ok := mean(vals)
	if !ok {
		return models.Row{}, false
	}
	row := models.Row{
		Label:    label,
		Location: location,
		Crop:     f.ds.Descriptor.CropType,
		Dataset:  f.ds.Descriptor.ID,
		Metric:   f.metric,
		Value:    m,
		Count:    len(vals),
	}
	if len(f.seasons) == 1 {
		row.Season = f.seasons[0]
	}
	if !f.ds.Descriptor.IsSnapshot() {
		lo, hi := minMax(vals)
		row.Min, row.Max = &lo, &hi
	}
	return row, true
}

func (f filter) columns() []string {
	d := f.ds.Descriptor
	cols := []string{d.LocationColumn}
	if f.years != nil || !d.IsSnapshot() {
		cols = append(cols, d.YearColumn)
	}
	if len(f.seasons) > 0 {
		cols = append(cols, d.SeasonColumn)
	}
	if len(f.crops) > 0 {
		cols = append(cols, d.CropColumn)
	}
	if len(f.seasons) == 0 {
		return append(cols, d.ColumnFor(f.metric, ""))
	}
	for _, s := range f.seasons {
		cols = append(cols, d.ColumnFor(f.metric, s))
	}
	return cols
}

// describe renders the filter for a citation, e.g.
// "Maize production by district; season=All Seasons; years=2010-2019"
func (f filter) describe() string {
	d := f.ds.Descriptor
	subject := string(d.Kind)
	switch {
	case len(f.crops) > 0:
		subject = strings.Join(f.crops, ", ")
	case d.CropType != "":
		subject = d.CropType
	case d.Kind == models.KindRainfall:
		subject = "annual"
	}
	parts := []string{fmt.Sprintf("%s %s by %s", cases.Title(language.English).String(subject), f.metric, d.Granularity)}
	if len(f.seasons) > 0 {
		parts = append(parts, "season="+strings.Join(f.seasons, ", "))
	}
	if f.years != nil {
		parts = append(parts, "years="+f.years.String())
	}
	if f.locations != nil {
		parts = append(parts, "locations="+strings.Join(f.scope, ", "))
	}
	return strings.Join(parts, "; ")
}

// metricFor picks the value key for a dataset, honouring the requested
// metric where the dataset carries it.
func metricFor(d models.DatasetDescriptor, requested string) string {
	switch d.Kind {
	case models.KindRainfall:
		return models.MetricRainfall
	case models.KindSpice:
		if (requested == models.MetricArea || requested == models.MetricValue) && d.HasMetric(requested) {
			return requested
		}
	default:
		if (requested == models.MetricArea || requested == models.MetricYield) && d.HasMetric(requested) {
			return requested
		}
	}
	return models.MetricProduction
}

// sortRows orders by value, breaking ties by label so output is stable
func sortRows(rows []models.Row, dir models.Direction) {
	slices.SortStableFunc(rows, func(a, b models.Row) int {
		c := cmp.Compare(b.Value, a.Value)
		if dir == models.Ascending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.Label, b.Label)
	})
}

func indexGroups(groups []locationGroup) map[string][]float64 {
	out := make(map[string][]float64, len(groups))
	for _, g := range groups {
		out[state.Key(g.label)] = g.values
	}
	return out
}

func containsFold(list []string, s string) bool {
	k := state.Key(s)
	for _, v := range list {
		if state.Key(v) == k {
			return true
		}
	}
	return false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
