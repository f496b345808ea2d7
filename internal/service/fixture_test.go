package service

import (
	"time"

	"samarth-go/internal/models"
	"samarth-go/internal/state"

	"github.com/jonboulle/clockwork"
)

var fixedTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func intp(i int) *int { return &i }

func rainfallRecords() []models.Record {
	base := map[string]float64{
		"Udupi Coastal":    3900,
		"Dakshina Kannada": 3600,
		"Kodagu Hills":     2700,
		"Mysore Plateau":   750,
		"Kerala":           3000,
	}
	order := []string{"Udupi Coastal", "Dakshina Kannada", "Kodagu Hills", "Mysore Plateau", "Kerala"}
	var recs []models.Record
	for year := 2010; year <= 2014; year++ {
		for _, sub := range order {
			v := base[sub] + float64((year-2010)*10)
			recs = append(recs, models.Record{
				Location: sub,
				Year:     intp(year),
				Values:   map[string]models.Value{models.MetricRainfall: models.NumberValue(v)},
			})
		}
	}
	// a null reading must not count toward any mean
	recs = append(recs, models.Record{
		Location: "Kerala",
		Year:     intp(2014),
		Values:   map[string]models.Value{models.MetricRainfall: {}},
	})
	return recs
}

func seasonalCropRecords(values map[string][3]float64, order []string) []models.Record {
	var recs []models.Record
	for _, d := range order {
		v := values[d]
		for i, season := range []string{"Kharif", "Rabi", models.DefaultSeason} {
			recs = append(recs, models.Record{
				Location: d,
				Season:   season,
				Values:   map[string]models.Value{models.MetricProduction: models.NumberValue(v[i])},
			})
		}
	}
	return recs
}

func newFixtureRegistry() *state.Registry {
	rain := state.NewDataset(models.DatasetDescriptor{
		ID:             "rainfall.csv",
		Kind:           models.KindRainfall,
		Granularity:    models.GranularitySubdivision,
		Temporal:       models.Temporal{Range: &models.YearRange{Start: 2010, End: 2014}},
		Columns:        []string{"SUBDIVISION", "YEAR", "ANNUAL"},
		LocationColumn: "SUBDIVISION",
		YearColumn:     "YEAR",
		MetricColumns:  map[string]string{models.MetricRainfall: "ANNUAL"},
	}, rainfallRecords())

	maizeOrder := []string{"Udupi", "Dakshina Kannada", "Kodagu", "Mysore", "Raichur", "Belgaum"}
	maize := state.NewDataset(models.DatasetDescriptor{
		ID:             "crop_maize.csv",
		Kind:           models.KindCrop,
		Granularity:    models.GranularityDistrict,
		Temporal:       models.Temporal{Snapshot: true},
		Columns:        []string{"District", "Kharif Production", "Rabi Production", "Total Production"},
		CropType:       "maize",
		LocationColumn: "District",
		MetricColumns: map[string]string{
			"Kharif|production":      "Kharif Production",
			"Rabi|production":        "Rabi Production",
			"All Seasons|production": "Total Production",
		},
		Seasons: []string{"Kharif", "Rabi", models.DefaultSeason},
	}, seasonalCropRecords(map[string][3]float64{
		"Udupi":            {60, 40, 100},
		"Dakshina Kannada": {150, 100, 250},
		"Kodagu":           {300, 100, 400},
		"Mysore":           {600, 300, 900},
		"Raichur":          {800, 400, 1200},
		"Belgaum":          {30, 20, 50},
	}, maizeOrder))

	rice := state.NewDataset(models.DatasetDescriptor{
		ID:             "crop_rice.csv",
		Kind:           models.KindCrop,
		Granularity:    models.GranularityDistrict,
		Temporal:       models.Temporal{Snapshot: true},
		Columns:        []string{"District", "Production"},
		CropType:       "rice",
		LocationColumn: "District",
		MetricColumns:  map[string]string{models.MetricProduction: "Production"},
	}, []models.Record{
		{Location: "Udupi", Values: map[string]models.Value{models.MetricProduction: models.NumberValue(500)}},
		{Location: "Mysore", Values: map[string]models.Value{models.MetricProduction: models.NumberValue(700)}},
		{Location: "Raichur", Values: map[string]models.Value{models.MetricProduction: models.NumberValue(650)}},
	})

	spice := state.NewDataset(models.DatasetDescriptor{
		ID:             "spices.csv",
		Kind:           models.KindSpice,
		Granularity:    models.GranularityDistrict,
		Temporal:       models.Temporal{Snapshot: true},
		Columns:        []string{"District", "Production", "Area"},
		LocationColumn: "District",
		MetricColumns:  map[string]string{models.MetricProduction: "Production", models.MetricArea: "Area"},
	}, []models.Record{
		{Location: "Udupi", Values: map[string]models.Value{models.MetricProduction: models.NumberValue(30), models.MetricArea: models.NumberValue(12)}},
		{Location: "Kodagu", Values: map[string]models.Value{models.MetricProduction: models.NumberValue(90), models.MetricArea: models.NumberValue(40)}},
		{Location: "Mysore", Values: map[string]models.Value{models.MetricProduction: models.NumberValue(15), models.MetricArea: models.NumberValue(9)}},
	})

	return state.NewRegistry([]*state.Dataset{rain, maize, rice, spice}, map[string][]string{
		"Karnataka": {"Udupi", "Dakshina Kannada", "Kodagu", "Mysore", "Raichur", "Belgaum"},
		"Goa":       {},
	})
}

type fixture struct {
	reg      *state.Registry
	parser   *QueryParser
	checker  *FeasibilityChecker
	analyzer *Analyzer
	clock    *clockwork.FakeClock
}

func newFixture() fixture {
	reg := newFixtureRegistry()
	clock := clockwork.NewFakeClockAt(fixedTime)
	return fixture{
		reg:      reg,
		parser:   NewQueryParser(reg),
		checker:  NewFeasibilityChecker(reg, DefaultPolicy()),
		analyzer: NewAnalyzer(reg, DefaultPolicy(), clock),
		clock:    clock,
	}
}
