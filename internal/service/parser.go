package service

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"samarth-go/internal/models"
	"samarth-go/internal/state"

	"go.uber.org/zap"
)

// actionRule maps keyword phrases to an action. Rules are listed in
// precedence order; see resolveAction for how conflicts are settled.
type actionRule struct {
	action    models.Action
	direction models.Direction
	keywords  []string
}

var (
	correlateRule = actionRule{models.ActionCorrelate, "", []string{
		"correlate", "correlation", "correlated", "relationship", "relation", "affect", "affects", "impact", "influence",
	}}
	trendRule = actionRule{models.ActionTrend, "", []string{
		"trend", "trends", "over the last", "over the past", "over time", "historical pattern", "year on year",
	}}
	recommendRule = actionRule{models.ActionRecommend, "", []string{
		"recommend", "recommendation", "recommendations", "suggest", "best for", "advise", "policy",
	}}
	rankDescRule = actionRule{models.ActionRank, models.Descending, []string{
		"top", "highest", "most", "maximum", "largest", "rank", "ranking",
	}}
	rankAscRule = actionRule{models.ActionRank, models.Ascending, []string{
		"lowest", "least", "minimum", "bottom", "smallest",
	}}
	compareRule = actionRule{models.ActionCompare, "", []string{
		"compare", "comparison", "versus", "vs",
	}}
)

// cropVocabulary maps a canonical crop to the phrases that name it
var cropVocabulary = map[string][]string{
	"maize": {"maize", "corn"},
	"ragi":  {"ragi", "finger millet"},
	"rice":  {"rice", "paddy"},
	"spice": {"spice", "spices"},
}

// spiceSubtypes are individual spices. Aggregated spice data cannot split them out.
var spiceSubtypes = map[string][]string{
	"pepper":    {"pepper", "black pepper"},
	"cardamom":  {"cardamom"},
	"turmeric":  {"turmeric"},
	"ginger":    {"ginger"},
	"chilli":    {"chilli", "chillies", "chili"},
	"garlic":    {"garlic"},
	"coriander": {"coriander"},
	"clove":     {"clove", "cloves"},
	"nutmeg":    {"nutmeg"},
	"cinnamon":  {"cinnamon"},
}

var seasonVocabulary = map[string][]string{
	"Kharif":             {"kharif"},
	"Rabi":               {"rabi"},
	"Summer":             {"summer"},
	"Whole Year":         {"whole year"},
	models.DefaultSeason: {"all seasons", "all season"},
}

var (
	rainfallWords = []string{"rain", "rainfall", "precipitation", "monsoon"}
	cropWords     = []string{"crop", "crops", "production", "produce", "produces", "produced", "yield", "yields", "harvest"}
	metricWords   = []struct {
		metric string
		words  []string
	}{
		{models.MetricYield, []string{"yield", "yields"}},
		{models.MetricArea, []string{"area", "acreage", "hectares", "cultivated area"}},
		{models.MetricValue, []string{"value", "worth"}},
		{models.MetricProduction, []string{"production", "produce", "produces", "produced", "output"}},
	}
	wordNumbers = map[string]int{
		"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "seven": 7,
		"eight": 8, "nine": 9, "ten": 10, "fifteen": 15, "twenty": 20,
	}

	yearRe         = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
	topNRe         = regexp.MustCompile(`\b(?:top|bottom|first|best|highest|lowest)\s+(\d{1,3}|one|two|three|four|five|six|seven|eight|nine|ten|fifteen|twenty)\b`)
	countNounRe    = regexp.MustCompile(`\b(\d{1,3}|two|three|four|five|six|seven|eight|nine|ten|fifteen|twenty)\s+(?:districts?|subdivisions?|sub divisions?|regions?|states?|locations?|places?|areas?)\b`)
	relativeYearRe = regexp.MustCompile(`\b(?:last|past|previous)\s+(\d{1,3}|two|three|four|five|six|seven|eight|nine|ten|fifteen|twenty)\s+years?\b`)
	decadesRe      = regexp.MustCompile(`\b(?:last|past|previous)\s+(\d{1,2}|two|three|four|five)\s+decades\b`)
	yearBetweenRe  = regexp.MustCompile(`\bbetween\s+(1[89]\d{2}|20\d{2})\s+and\s+(1[89]\d{2}|20\d{2})\b`)
	betweenAndRe   = regexp.MustCompile(`\bbetween\s+\S+.*\s+and\s+\S+`)
)

type vocabEntry struct {
	canonical string
	phrase    string
}

// QueryParser turns free text into an Intent using keyword scanning only
type QueryParser struct {
	locations []vocabEntry
}

// NewQueryParser builds a parser whose location vocabulary comes from reg
func NewQueryParser(reg *state.Registry) *QueryParser {
	p := &QueryParser{}
	seen := make(map[string]bool)
	var names []string
	names = append(names, reg.Subdivisions()...)
	names = append(names, reg.Districts()...)
	names = append(names, reg.States()...)
	for _, name := range names {
		phrase := strings.TrimSpace(normalizeText(name))
		if phrase == "" || seen[phrase] {
			continue
		}
		seen[phrase] = true
		p.locations = append(p.locations, vocabEntry{canonical: name, phrase: phrase})
	}
	return p
}

// Parse never fails. Fragments it cannot interpret are left out of the intent.
func (p *QueryParser) Parse(text string) models.Intent {
	norm := normalizeText(text)

	intent := models.Intent{
		Raw:       strings.TrimSpace(text),
		Locations: []string{},
		Crops:     []string{},
	}

	intent.TopN = parseTopN(norm)
	intent.Locations = p.findLocations(norm)
	intent.Crops = findCrops(norm)
	intent.Seasons = findSeasons(norm)
	intent.YearRange, intent.RelativeYears = parseYears(norm)
	intent.Domains = findDomains(norm, intent.Crops)
	intent.Metric = findMetric(norm, intent.Domains)
	intent.Action, intent.Direction, intent.Notes = resolveAction(norm, intent.TopN != nil, len(intent.Domains) >= 2)

	zap.L().Debug("parsed question",
		zap.String("raw", intent.Raw),
		zap.String("action", string(intent.Action)),
		zap.Strings("locations", intent.Locations),
		zap.Strings("crops", intent.Crops),
	)
	return intent
}

// resolveAction applies the precedence table:
// correlate > trend > recommend > rank/compare > identify.
// When rank and compare both match, rank wins only if a topN quantifier is present.
// "between X and Y" reads as correlate only when two domains are named.
func resolveAction(norm string, hasTopN, multiDomain bool) (models.Action, models.Direction, []string) {
	var notes []string

	compareHit := matchesAny(norm, compareRule.keywords)
	betweenAnd := multiDomain && betweenAndRe.MatchString(norm) && !yearBetweenRe.MatchString(norm)

	if matchesAny(norm, correlateRule.keywords) || (betweenAnd && !compareHit) {
		return models.ActionCorrelate, "", notes
	}
	if matchesAny(norm, trendRule.keywords) {
		return models.ActionTrend, "", notes
	}
	if matchesAny(norm, recommendRule.keywords) {
		return models.ActionRecommend, "", notes
	}

	descAt := firstIndex(norm, rankDescRule.keywords)
	ascAt := firstIndex(norm, rankAscRule.keywords)
	rankHit := descAt >= 0 || ascAt >= 0

	direction := models.Descending
	if ascAt >= 0 && (descAt < 0 || ascAt < descAt) {
		direction = models.Ascending
	}
	if descAt >= 0 && ascAt >= 0 {
		notes = append(notes, fmt.Sprintf("both ascending and descending keywords present, using %s", direction))
	}

	switch {
	case rankHit && compareHit:
		if hasTopN {
			notes = append(notes, "rank and compare keywords present, rank chosen because a count was given")
			return models.ActionRank, direction, notes
		}
		notes = append(notes, "rank and compare keywords present, compare chosen")
		return models.ActionCompare, "", notes
	case rankHit:
		return models.ActionRank, direction, notes
	case compareHit:
		return models.ActionCompare, "", notes
	}
	return models.ActionIdentify, models.Descending, notes
}

// findLocations returns known location names in order of first mention.
// Longer names claim their span first so "coastal karnataka" hides "karnataka".
func (p *QueryParser) findLocations(norm string) []string {
	type hit struct {
		start, end int
		name       string
	}

	entries := make([]vocabEntry, len(p.locations))
	copy(entries, p.locations)
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].phrase) > len(entries[j].phrase)
	})

	var hits []hit
	claimed := make([]bool, len(norm))
	for _, e := range entries {
		for _, idx := range phraseIndexes(norm, e.phrase) {
			end := idx + len(e.phrase)
			overlap := false
			for i := idx; i < end; i++ {
				if claimed[i] {
					overlap = true
					break
				}
			}
			if overlap {
				continue
			}
			for i := idx; i < end; i++ {
				claimed[i] = true
			}
			hits = append(hits, hit{start: idx, end: end, name: e.canonical})
			break
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	out := []string{}
	seen := make(map[string]bool)
	for _, h := range hits {
		k := state.Key(h.name)
		if !seen[k] {
			seen[k] = true
			out = append(out, h.name)
		}
	}
	return out
}

func findCrops(norm string) []string {
	type hit struct {
		at   int
		crop string
	}
	var hits []hit
	add := func(vocab map[string][]string) {
		for crop, aliases := range vocab {
			if at := firstIndex(norm, aliases); at >= 0 {
				hits = append(hits, hit{at, crop})
			}
		}
	}
	add(cropVocabulary)
	add(spiceSubtypes)

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].at != hits[j].at {
			return hits[i].at < hits[j].at
		}
		return hits[i].crop < hits[j].crop
	})
	out := []string{}
	for _, h := range hits {
		out = append(out, h.crop)
	}
	return out
}

func findSeasons(norm string) []string {
	type hit struct {
		at     int
		season string
	}
	var hits []hit
	for season, words := range seasonVocabulary {
		if at := firstIndex(norm, words); at >= 0 {
			hits = append(hits, hit{at, season})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].at < hits[j].at })
	var out []string
	for _, h := range hits {
		out = append(out, h.season)
	}
	return out
}

func findDomains(norm string, crops []string) []models.DatasetKind {
	var domains []models.DatasetKind
	if matchesAny(norm, rainfallWords) {
		domains = append(domains, models.KindRainfall)
	}

	hasCrop, hasSpice := false, false
	for _, c := range crops {
		if c == "spice" || IsSpiceSubtype(c) {
			hasSpice = true
		} else {
			hasCrop = true
		}
	}
	if hasCrop || (!hasSpice && matchesAny(norm, cropWords)) {
		domains = append(domains, models.KindCrop)
	}
	if hasSpice {
		domains = append(domains, models.KindSpice)
	}
	return domains
}

func findMetric(norm string, domains []models.DatasetKind) string {
	for _, mw := range metricWords {
		if matchesAny(norm, mw.words) {
			return mw.metric
		}
	}
	if len(domains) == 1 && domains[0] == models.KindRainfall {
		return models.MetricRainfall
	}
	return ""
}

func parseTopN(norm string) *int {
	for _, re := range []*regexp.Regexp{topNRe, countNounRe} {
		if m := re.FindStringSubmatch(norm); m != nil {
			if n, ok := parseCount(m[1]); ok && n > 0 {
				return &n
			}
		}
	}
	return nil
}

// parseYears returns an explicit range, or a relative span to be resolved later
func parseYears(norm string) (*models.YearRange, int) {
	var years []int
	for _, m := range yearRe.FindAllString(norm, -1) {
		y, _ := strconv.Atoi(m)
		years = append(years, y)
	}
	if len(years) > 0 {
		sort.Ints(years)
		return &models.YearRange{Start: years[0], End: years[len(years)-1]}, 0
	}

	if m := relativeYearRe.FindStringSubmatch(norm); m != nil {
		if n, ok := parseCount(m[1]); ok && n > 0 {
			return nil, n
		}
	}
	if m := decadesRe.FindStringSubmatch(norm); m != nil {
		if n, ok := parseCount(m[1]); ok && n > 0 {
			return nil, n * 10
		}
	}
	if containsPhrase(norm, "last decade") || containsPhrase(norm, "past decade") || containsPhrase(norm, "decade") {
		return nil, 10
	}
	if containsPhrase(norm, "last year") || containsPhrase(norm, "past year") {
		return nil, 1
	}
	return nil, 0
}

func parseCount(s string) (int, bool) {
	if n, ok := wordNumbers[s]; ok {
		return n, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// IsSpiceSubtype reports whether crop names an individual spice
func IsSpiceSubtype(crop string) bool {
	_, ok := spiceSubtypes[state.Key(crop)]
	return ok
}

// normalizeText lowercases, isolates "&" and turns other punctuation into
// spaces. The result is padded with single spaces for phrase matching.
func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '&':
			b.WriteString(" & ")
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return " " + strings.Join(strings.Fields(b.String()), " ") + " "
}

func containsPhrase(norm, phrase string) bool {
	return strings.Contains(norm, " "+phrase+" ")
}

func matchesAny(norm string, phrases []string) bool {
	return firstIndex(norm, phrases) >= 0
}

// firstIndex returns the earliest position any phrase occurs at, or -1
func firstIndex(norm string, phrases []string) int {
	best := -1
	for _, ph := range phrases {
		if idx := strings.Index(norm, " "+ph+" "); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	return best
}

// phraseIndexes returns every start offset of phrase in norm
func phraseIndexes(norm, phrase string) []int {
	var out []int
	needle := " " + phrase + " "
	offset := 0
	for {
		idx := strings.Index(norm[offset:], needle)
		if idx < 0 {
			return out
		}
		out = append(out, offset+idx+1)
		offset += idx + 1
	}
}
