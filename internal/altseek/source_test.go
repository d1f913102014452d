package altseek

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/costest-cli/internal/bidtabs"
	"github.com/sells-group/costest-cli/internal/pricing"
	"github.com/sells-group/costest-cli/internal/refdata"
)

func newTestSourcer(records []bidtabs.Record, catalog *refdata.Catalog) *Sourcer {
	if catalog == nil {
		catalog = refdata.NewCatalog(nil, nil, nil)
	}
	return NewSourcer(bidtabs.NewPool(records), catalog, pricing.Config{Now: selNow})
}

func TestCandidates_PrefixAreaTolerance(t *testing.T) {
	s := newTestSourcer([]bidtabs.Record{
		histRecord("204-00050", 40, 50, "rectangle"), // within 20%
		histRecord("204-00060", 40, 90, "rectangle"), // 67% off, excluded
	}, nil)

	cands := s.Candidates(Target{ItemCode: "204-00100", Shape: "rectangle", AreaSqft: 54})
	require.Len(t, cands, 1)
	assert.Equal(t, "204-00050", cands[0].ItemCode)
}

func TestCandidates_PrefixShapeFilter(t *testing.T) {
	s := newTestSourcer([]bidtabs.Record{
		histRecord("204-00050", 40, 54, "circle"),
	}, nil)

	cands := s.Candidates(Target{ItemCode: "204-00100", Shape: "rectangle", AreaSqft: 54})
	assert.Empty(t, cands, "shape mismatch excludes prefix siblings")

	// A min_area target accepts any shape.
	cands = s.Candidates(Target{ItemCode: "204-00100", Shape: "min_area", AreaSqft: 54})
	require.Len(t, cands, 1)
}

func TestCandidates_PrefixAreaIsMeanOfRecords(t *testing.T) {
	s := newTestSourcer([]bidtabs.Record{
		histRecord("204-00050", 40, 48, "rectangle"),
		histRecord("204-00050", 42, 60, "rectangle"),
		histRecord("204-00050", 41, math.NaN(), "rectangle"), // unknown area ignored
	}, nil)

	cands := s.Candidates(Target{ItemCode: "204-00100", Shape: "rectangle", AreaSqft: 54})
	require.Len(t, cands, 1)
	assert.InDelta(t, 54.0, cands[0].AreaSqft, 1e-9, "candidate area is the mean of known areas")
	assert.InDelta(t, 1.0, cands[0].Ratio, 1e-9)
}

func TestCandidates_PrefixExcludesTargetItself(t *testing.T) {
	s := newTestSourcer([]bidtabs.Record{
		histRecord("204-00100", 40, 54, "rectangle"),
	}, nil)

	cands := s.Candidates(Target{ItemCode: "204-00100", Shape: "rectangle", AreaSqft: 54})
	assert.Empty(t, cands)
}

func TestCandidates_DifferentPrefixExcluded(t *testing.T) {
	s := newTestSourcer([]bidtabs.Record{
		histRecord("601-00050", 40, 54, "rectangle"),
	}, nil)

	cands := s.Candidates(Target{ItemCode: "204-00100", Shape: "rectangle", AreaSqft: 54})
	assert.Empty(t, cands)
}

func TestCandidates_RelatedItemsIncluded(t *testing.T) {
	catalog := refdata.NewCatalog(
		map[string]refdata.PayItem{"204-00100": {Section: "204"}},
		map[string]refdata.UnitPrice{
			"204-00100": {Section: "204"},
			"208-00300": {Section: "204", Description: "EROSION LOG 12 IN x 10 IN", WeightedAverage: 30, Contracts: 8},
		},
		nil,
	)
	s := newTestSourcer([]bidtabs.Record{
		histRecord("208-00300", 28, math.NaN(), ""),
	}, catalog)

	target := Target{
		ItemCode: "204-00100",
		Shape:    "rectangle",
		AreaSqft: 54,
		Bundle:   catalog.Bundle("204-00100"),
	}
	cands := s.Candidates(target)

	require.Len(t, cands, 1)
	assert.Equal(t, SourceRelated, cands[0].Source)
	assert.Equal(t, "208-00300", cands[0].ItemCode)
	assert.Equal(t, 1, cands[0].DataPoints)
}

func TestCandidates_StatewideScoreProfile(t *testing.T) {
	catalog := refdata.NewCatalog(
		map[string]refdata.PayItem{"204-00100": {Section: "204"}},
		map[string]refdata.UnitPrice{"204-00100": {Section: "204", WeightedAverage: 80, Contracts: 25}},
		nil,
	)
	s := newTestSourcer(nil, catalog)

	cands := s.Candidates(Target{
		ItemCode: "204-00100",
		AreaSqft: 54,
		Bundle:   catalog.Bundle("204-00100"),
	})
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, SummaryCode, c.ItemCode)
	assert.Equal(t, SourceStatewide, c.Source)
	assert.InDelta(t, 1.0, c.Ratio, 1e-9)
	assert.InDelta(t, 54.0, c.AreaSqft, 1e-9)
	assert.InDelta(t, 0.6, c.Similarity[ScoreGeometry], 1e-9)
	assert.InDelta(t, 0.65, c.Similarity[ScoreSpec], 1e-9, "spec section known")
	assert.InDelta(t, 0.5, c.Similarity[ScoreRecency], 1e-9)
	assert.InDelta(t, 0.4, c.Similarity[ScoreLocality], 1e-9)
	assert.InDelta(t, 0.5, c.Similarity[ScoreDataVolume], 1e-9, "25 of 50 contracts")
	assert.Equal(t, 25, c.DataPoints)
}
