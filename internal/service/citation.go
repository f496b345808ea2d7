package service

import (
	"slices"

	"samarth-go/internal/models"

	"github.com/jonboulle/clockwork"
)

// CitationTracker accumulates citations for one analysis run.
// Entries are kept in insertion order and never deduplicated.
type CitationTracker struct {
	clock     clockwork.Clock
	citations []models.Citation
}

// NewCitationTracker creates a tracker stamping entries with clock
func NewCitationTracker(clock clockwork.Clock) *CitationTracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CitationTracker{clock: clock, citations: []models.Citation{}}
}

// Add records one dataset/filter contribution. Contributions with no data
// points are skipped so citations only name datasets that were touched.
func (ct *CitationTracker) Add(sourceFile, description string, points int, columns ...string) {
	if points <= 0 {
		return
	}
	ct.citations = append(ct.citations, models.Citation{
		SourceFile:  sourceFile,
		Description: description,
		PointCount:  points,
		ColumnsUsed: compactColumns(columns),
		Timestamp:   ct.clock.Now(),
	})
}

// Citations returns a copy of the accumulated list
func (ct *CitationTracker) Citations() []models.Citation {
	return slices.Clone(ct.citations)
}

// Len returns the number of citations recorded so far
func (ct *CitationTracker) Len() int {
	return len(ct.citations)
}

// compactColumns drops empty and repeated column names, keeping order
func compactColumns(columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
