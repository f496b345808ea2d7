package service

import (
	"testing"

	"samarth-go/internal/models"
	"samarth-go/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenarios(t *testing.T) {
	p := newFixture().parser

	t.Run("top n by crop", func(t *testing.T) {
		in := p.Parse("Top 5 districts by maize production")
		assert.Equal(t, models.ActionRank, in.Action)
		assert.Equal(t, models.Descending, in.Direction)
		require.NotNil(t, in.TopN)
		assert.Equal(t, 5, *in.TopN)
		assert.Equal(t, []string{"maize"}, in.Crops)
		assert.Equal(t, models.MetricProduction, in.Metric)
		assert.Empty(t, in.Locations)
	})

	t.Run("relative trend", func(t *testing.T) {
		in := p.Parse("Show rice production trend over the last decade")
		assert.Equal(t, models.ActionTrend, in.Action)
		assert.Equal(t, []string{"rice"}, in.Crops)
		assert.Nil(t, in.YearRange)
		assert.Equal(t, 10, in.RelativeYears)
		assert.True(t, in.HasYears())
	})

	t.Run("correlate across domains", func(t *testing.T) {
		in := p.Parse("Correlate rainfall in Karnataka with maize production")
		assert.Equal(t, models.ActionCorrelate, in.Action)
		assert.Equal(t, []string{"Karnataka"}, in.Locations)
		assert.Equal(t, []string{"maize"}, in.Crops)
		assert.Equal(t, []models.DatasetKind{models.KindRainfall, models.KindCrop}, in.Domains)
	})

	t.Run("spice subtype", func(t *testing.T) {
		in := p.Parse("Which district produces the most pepper?")
		assert.Equal(t, models.ActionRank, in.Action)
		assert.Equal(t, models.Descending, in.Direction)
		assert.Equal(t, []string{"pepper"}, in.Crops)
		assert.Equal(t, []models.DatasetKind{models.KindSpice}, in.Domains)
		assert.Nil(t, in.TopN)
	})
}

func TestParseActionPrecedence(t *testing.T) {
	p := newFixture().parser

	tests := []struct {
		name      string
		question  string
		action    models.Action
		direction models.Direction
		noted     bool
	}{
		{"correlate beats trend", "What is the trend and correlation of rainfall with maize production", models.ActionCorrelate, "", false},
		{"trend beats rank", "Trend of the highest rainfall in Kerala", models.ActionTrend, "", false},
		{"recommend beats rank", "Recommend crops with the highest yield for low rainfall areas", models.ActionRecommend, "", false},
		{"rank with count beats compare", "Compare the top 3 districts for rice production", models.ActionRank, models.Descending, true},
		{"compare without count beats rank", "Compare highest rainfall in Kerala and Kodagu Hills", models.ActionCompare, "", true},
		{"ascending keyword", "Which district has the lowest ragi production", models.ActionRank, models.Ascending, false},
		{"bottom is ascending", "Bottom 3 districts for rice", models.ActionRank, models.Ascending, false},
		{"versus", "Mysore versus Udupi maize production", models.ActionCompare, "", false},
		{"between two domains", "Is there a link between rainfall and maize production in Udupi", models.ActionCorrelate, "", false},
		{"between one domain", "Rainfall between Kerala and Kodagu Hills", models.ActionIdentify, models.Descending, false},
		{"between years", "Rainfall and maize production between 2010 and 2014", models.ActionIdentify, models.Descending, false},
		{"fallback identify", "Show rainfall in Kerala", models.ActionIdentify, models.Descending, false},
		{"word boundary", "Almost all rainfall in Kerala", models.ActionIdentify, models.Descending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := p.Parse(tt.question)
			assert.Equal(t, tt.action, in.Action)
			assert.Equal(t, tt.direction, in.Direction)
			if tt.noted {
				assert.NotEmpty(t, in.Notes)
			} else {
				assert.Empty(t, in.Notes)
			}
		})
	}
}

func TestParseYears(t *testing.T) {
	p := newFixture().parser

	tests := []struct {
		question string
		years    *models.YearRange
		relative int
	}{
		{"Rainfall in Kerala from 2005 to 2010", &models.YearRange{Start: 2005, End: 2010}, 0},
		{"Rainfall in Kerala between 2012 and 2008", &models.YearRange{Start: 2008, End: 2012}, 0},
		{"Rainfall in Kerala in 2015", &models.YearRange{Start: 2015, End: 2015}, 0},
		{"Rainfall in Kerala over the last 5 years", nil, 5},
		{"Rainfall in Kerala for the past two decades", nil, 20},
		{"Rainfall in Kerala last year", nil, 1},
		{"Rainfall in Kerala", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			in := p.Parse(tt.question)
			assert.Equal(t, tt.years, in.YearRange)
			assert.Equal(t, tt.relative, in.RelativeYears)
		})
	}
}

func TestParseTopN(t *testing.T) {
	p := newFixture().parser

	tests := []struct {
		question string
		want     *int
	}{
		{"Top 7 subdivisions by rainfall", intp(7)},
		{"top five districts for maize", intp(5)},
		{"Show 4 districts with the highest rice production", intp(4)},
		{"Highest rainfall subdivisions in 2012", nil},
		{"Top districts for maize in 2015", nil},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Parse(tt.question).TopN)
		})
	}
}

func TestParseLocations(t *testing.T) {
	reg := state.NewRegistry([]*state.Dataset{
		state.NewDataset(models.DatasetDescriptor{ID: "rain.csv", Kind: models.KindRainfall, Granularity: models.GranularitySubdivision}, []models.Record{
			{Location: "Coastal Karnataka"},
			{Location: "Andaman & Nicobar Islands"},
		}),
		state.NewDataset(models.DatasetDescriptor{ID: "maize.csv", Kind: models.KindCrop, Granularity: models.GranularityDistrict}, []models.Record{
			{Location: "Mysore"},
			{Location: "UDUPI"},
		}),
	}, map[string][]string{"Karnataka": {"Mysore", "UDUPI"}})
	p := NewQueryParser(reg)

	t.Run("longest name claims its span", func(t *testing.T) {
		in := p.Parse("Rainfall in Coastal Karnataka")
		assert.Equal(t, []string{"Coastal Karnataka"}, in.Locations)
	})

	t.Run("shorter name elsewhere still matches", func(t *testing.T) {
		in := p.Parse("Compare Coastal Karnataka with the rest of Karnataka")
		assert.Equal(t, []string{"Coastal Karnataka", "Karnataka"}, in.Locations)
	})

	t.Run("first mention order and canonical spelling", func(t *testing.T) {
		in := p.Parse("compare udupi and mysore maize production")
		assert.Equal(t, []string{"UDUPI", "Mysore"}, in.Locations)
	})

	t.Run("ampersand names", func(t *testing.T) {
		in := p.Parse("rainfall in andaman & nicobar islands")
		assert.Equal(t, []string{"Andaman & Nicobar Islands"}, in.Locations)
	})

	t.Run("no locations", func(t *testing.T) {
		in := p.Parse("top 3 districts by maize")
		assert.NotNil(t, in.Locations)
		assert.Empty(t, in.Locations)
	})
}

func TestParseCropsSeasonsMetric(t *testing.T) {
	p := newFixture().parser

	in := p.Parse("Compare paddy and corn yield in Mysore")
	assert.Equal(t, []string{"rice", "maize"}, in.Crops)
	assert.Equal(t, models.MetricYield, in.Metric)

	in = p.Parse("Compare kharif and rabi maize production in Mysore")
	assert.Equal(t, []string{"Kharif", "Rabi"}, in.Seasons)
	assert.Equal(t, models.ActionCompare, in.Action)

	in = p.Parse("Total spices area by district")
	assert.Equal(t, []string{"spice"}, in.Crops)
	assert.Equal(t, models.MetricArea, in.Metric)

	in = p.Parse("average rainfall in Kerala")
	assert.Equal(t, models.MetricRainfall, in.Metric)
	assert.Equal(t, []models.DatasetKind{models.KindRainfall}, in.Domains)

	in = p.Parse("finger millet production")
	assert.Equal(t, []string{"ragi"}, in.Crops)
}

func TestParseNeverFails(t *testing.T) {
	p := newFixture().parser
	for _, q := range []string{"", "   ", "???", "2015 2016 2017", "top", "between and"} {
		in := p.Parse(q)
		assert.NotEmpty(t, in.Action, q)
		assert.NotNil(t, in.Locations, q)
		assert.NotNil(t, in.Crops, q)
	}
}

func TestIsSpiceSubtype(t *testing.T) {
	assert.True(t, IsSpiceSubtype("pepper"))
	assert.True(t, IsSpiceSubtype("Cardamom"))
	assert.False(t, IsSpiceSubtype("spice"))
	assert.False(t, IsSpiceSubtype("maize"))
}
