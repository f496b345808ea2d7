// Package ingest loads CSV datasets from a folder into a Registry
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"samarth-go/internal/models"
	"samarth-go/internal/state"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options controls a load
type Options struct {
	// Manifest is a YAML file path, relative to the data dir unless absolute
	Manifest string
	// DefaultState owns districts whose state cannot be inferred
	DefaultState string
}

// Load reads every *.csv file in dir. Files that cannot be classified are
// logged and skipped; only an unreadable dir or manifest fails the load.
func Load(ctx context.Context, dir string, opts Options) (*state.Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "read data dir %s", dir)
	}

	manifestPath := opts.Manifest
	if manifestPath != "" && !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(dir, manifestPath)
	}
	manifest, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	parsed, err := parseAll(ctx, dir, names, manifest)
	if err != nil {
		return nil, err
	}

	var datasets []*state.Dataset
	stateDistricts := map[string][]string{}
	for i, name := range names {
		p := parsed[i]
		if p.ds == nil {
			continue
		}
		ds, entry := p.ds, manifest.entry(name)
		datasets = append(datasets, ds)

		for st, districts := range p.states {
			stateDistricts[st] = mergeDistinct(stateDistricts[st], districts...)
		}
		if len(p.states) == 0 && ds.Descriptor.Kind != models.KindRainfall && ds.Descriptor.Granularity == models.GranularityDistrict {
			owner := stateFromName(name, opts.DefaultState)
			if entry != nil && entry.State != "" {
				owner = entry.State
			}
			if owner != "" {
				stateDistricts[owner] = mergeDistinct(stateDistricts[owner], ds.Locations()...)
			}
		}

		zap.L().Info("loaded dataset",
			zap.String("file", name),
			zap.String("kind", string(ds.Descriptor.Kind)),
			zap.String("granularity", string(ds.Descriptor.Granularity)),
			zap.String("years", ds.Descriptor.Temporal.String()),
			zap.Int("records", ds.Descriptor.Records),
			zap.Float64("null_pct", ds.Descriptor.NullPct),
		)
	}

	for st, districts := range manifest.States {
		stateDistricts[st] = mergeDistinct(stateDistricts[st], districts...)
	}

	reg := state.NewRegistry(datasets, stateDistricts)
	zap.L().Info("registry ready",
		zap.Int("datasets", len(datasets)),
		zap.Int("subdivisions", len(reg.Subdivisions())),
		zap.Int("districts", len(reg.Districts())),
		zap.Int("states", len(reg.States())),
	)
	return reg, nil
}

type parsedFile struct {
	ds     *state.Dataset
	states map[string][]string
}

// parseAll reads files concurrently. Results keep the order of names so the
// registry is identical from run to run.
func parseAll(ctx context.Context, dir string, names []string, manifest *Manifest) ([]parsedFile, error) {
	parsed := make([]parsedFile, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		entry := manifest.entry(name)
		if entry != nil && entry.Skip {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ds, states, err := loadFile(filepath.Join(dir, name), entry)
			if err != nil {
				zap.L().Warn("skipping dataset", zap.String("file", name), zap.Error(err))
				return nil
			}
			parsed[i] = parsedFile{ds: ds, states: states}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "load cancelled")
	}
	return parsed, nil
}

func loadFile(path string, entry *ManifestEntry) (*state.Dataset, map[string][]string, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, nil, err
	}
	if len(t.rows) == 0 {
		return nil, nil, eris.Errorf("%s: no data rows", t.name)
	}
	s, err := detectShape(t, entry)
	if err != nil {
		return nil, nil, err
	}
	ds, states := build(t, s)
	return ds, states, nil
}

func mergeDistinct(list []string, items ...string) []string {
	for _, it := range items {
		list = appendDistinct(list, it)
	}
	return list
}
