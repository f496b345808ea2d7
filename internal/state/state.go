package state

import (
	"slices"
	"sort"
	"strings"

	"samarth-go/internal/models"

	"golang.org/x/text/cases"
)

// Dataset is a descriptor plus its loaded records
type Dataset struct {
	Descriptor models.DatasetDescriptor
	Records    []models.Record

	locations []string
	maxYear   int
}

// NewDataset indexes records for read-only access
func NewDataset(desc models.DatasetDescriptor, records []models.Record) *Dataset {
	ds := &Dataset{Descriptor: desc, Records: records}
	seen := make(map[string]bool)
	for _, rec := range records {
		k := Key(rec.Location)
		if k != "" && !seen[k] {
			seen[k] = true
			ds.locations = append(ds.locations, rec.Location)
		}
		if rec.Year != nil && *rec.Year > ds.maxYear {
			ds.maxYear = *rec.Year
		}
	}
	return ds
}

// Locations returns distinct location names in order of first appearance
func (ds *Dataset) Locations() []string {
	return slices.Clone(ds.locations)
}

// HasLocation reports whether any record is keyed by name
func (ds *Dataset) HasLocation(name string) bool {
	k := Key(name)
	for _, loc := range ds.locations {
		if Key(loc) == k {
			return true
		}
	}
	return false
}

// MaxYear returns the latest year present, or 0 for snapshots
func (ds *Dataset) MaxYear() int {
	return ds.maxYear
}

// Registry holds every loaded dataset. It is built once at startup and
// shared read-only afterwards; no method mutates it.
type Registry struct {
	datasets []*Dataset
	byID     map[string]*Dataset

	subdivisions []string
	districts    []string
	states       []string
	stateOf      map[string]string
	districtsOf  map[string][]string
}

// NewRegistry builds a registry. stateDistricts maps a state name to its districts.
func NewRegistry(datasets []*Dataset, stateDistricts map[string][]string) *Registry {
	r := &Registry{
		byID:        make(map[string]*Dataset),
		stateOf:     make(map[string]string),
		districtsOf: make(map[string][]string),
	}

	sorted := slices.Clone(datasets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Descriptor.ID < sorted[j].Descriptor.ID
	})

	subSeen := make(map[string]bool)
	distSeen := make(map[string]bool)
	for _, ds := range sorted {
		r.datasets = append(r.datasets, ds)
		r.byID[ds.Descriptor.ID] = ds
		for _, loc := range ds.locations {
			k := Key(loc)
			switch ds.Descriptor.Granularity {
			case models.GranularitySubdivision:
				if !subSeen[k] {
					subSeen[k] = true
					r.subdivisions = append(r.subdivisions, loc)
				}
			case models.GranularityDistrict:
				if !distSeen[k] {
					distSeen[k] = true
					r.districts = append(r.districts, loc)
				}
			}
		}
	}

	stateNames := make([]string, 0, len(stateDistricts))
	for st := range stateDistricts {
		stateNames = append(stateNames, st)
	}
	sort.Strings(stateNames)
	for _, st := range stateNames {
		r.states = append(r.states, st)
		for _, d := range stateDistricts[st] {
			r.districtsOf[Key(st)] = append(r.districtsOf[Key(st)], d)
			r.stateOf[Key(d)] = st
		}
	}

	return r
}

// Datasets returns all datasets ordered by id
func (r *Registry) Datasets() []*Dataset {
	return slices.Clone(r.datasets)
}

// Dataset looks up a dataset by id
func (r *Registry) Dataset(id string) (*Dataset, bool) {
	ds, ok := r.byID[id]
	return ds, ok
}

// ByKind returns datasets of the given kind ordered by id
func (r *Registry) ByKind(kind models.DatasetKind) []*Dataset {
	var out []*Dataset
	for _, ds := range r.datasets {
		if ds.Descriptor.Kind == kind {
			out = append(out, ds)
		}
	}
	return out
}

// Subdivisions returns every subdivision-level location name
func (r *Registry) Subdivisions() []string {
	return slices.Clone(r.subdivisions)
}

// Districts returns every district-level location name
func (r *Registry) Districts() []string {
	return slices.Clone(r.districts)
}

// States returns the state names known from the state to district mapping
func (r *Registry) States() []string {
	return slices.Clone(r.states)
}

// DistrictsOf returns the districts mapped to state
func (r *Registry) DistrictsOf(state string) []string {
	return slices.Clone(r.districtsOf[Key(state)])
}

// StateOf returns the state a district belongs to
func (r *Registry) StateOf(district string) (string, bool) {
	st, ok := r.stateOf[Key(district)]
	return st, ok
}

// IsDistrict reports whether name is a district in some dataset
func (r *Registry) IsDistrict(name string) bool {
	return containsKey(r.districts, name)
}

// IsSubdivision reports whether name is a subdivision in some dataset
func (r *Registry) IsSubdivision(name string) bool {
	return containsKey(r.subdivisions, name)
}

// IsState reports whether name is a known state
func (r *Registry) IsState(name string) bool {
	return containsKey(r.states, name)
}

// Key normalises a location or crop name for case-insensitive comparison.
// A Caser is stateful, so each call builds its own.
func Key(name string) string {
	return strings.Join(strings.Fields(cases.Fold().String(name)), " ")
}

func containsKey(names []string, name string) bool {
	k := Key(name)
	for _, n := range names {
		if Key(n) == k {
			return true
		}
	}
	return false
}
