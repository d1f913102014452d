package altseek

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/costest-cli/internal/bidtabs"
	"github.com/sells-group/costest-cli/internal/pricing"
	"github.com/sells-group/costest-cli/internal/refdata"
)

var selNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func histRecord(code string, price, area float64, shape string) bidtabs.Record {
	return bidtabs.Record{
		ItemCode:    code,
		UnitPrice:   price,
		Weight:      math.NaN(),
		Quantity:    math.NaN(),
		JobSize:     math.NaN(),
		LettingDate: selNow.AddDate(0, -2, 0),
		Shape:       shape,
		AreaSqft:    area,
	}
}

func TestSelector_PrefixFamilyFallback(t *testing.T) {
	pool := bidtabs.NewPool([]bidtabs.Record{
		histRecord("204-00050", 40.0, 50, "rectangle"),
	})
	catalog := refdata.NewCatalog(nil, nil, nil)
	sourcer := NewSourcer(pool, catalog, pricing.Config{Now: selNow})
	sel := NewSelector(sourcer, Disabled{})

	target := Target{
		ItemCode: "204-00100",
		Shape:    "rectangle",
		AreaSqft: 54,
		Bundle:   catalog.Bundle("204-00100"),
	}

	res, err := sel.Estimate(context.Background(), target)
	require.NoError(t, err)

	require.Len(t, res.Selections, 1)
	assert.InDelta(t, 1.0, res.Selections[0].Weight, 1e-9)
	assert.Equal(t, "204-00050", res.Selections[0].ItemCode)
	assert.InDelta(t, 43.20, res.FinalPrice, 1e-9, "price scaled by 54/50 area ratio")
	assert.Equal(t, 1, res.TotalPoints)
	assert.Equal(t, SourcePrefix, res.Selections[0].Source)
}

func TestSelector_WeightsSumToOne(t *testing.T) {
	pool := bidtabs.NewPool([]bidtabs.Record{
		histRecord("204-00050", 40, 50, "rectangle"),
		histRecord("204-00060", 44, 56, "rectangle"),
		histRecord("204-00070", 38, 48, "rectangle"),
		histRecord("204-00080", 52, 60, "rectangle"),
	})
	catalog := refdata.NewCatalog(nil, nil, nil)
	sel := NewSelector(NewSourcer(pool, catalog, pricing.Config{Now: selNow}), Disabled{})

	res, err := sel.Estimate(context.Background(), Target{
		ItemCode: "204-00100",
		Shape:    "rectangle",
		AreaSqft: 54,
		Bundle:   catalog.Bundle("204-00100"),
	})
	require.NoError(t, err)

	require.Len(t, res.Selections, 3, "fallback takes at most 3 candidates")
	sum := 0.0
	for _, s := range res.Selections {
		assert.Greater(t, s.Weight, 0.0)
		sum += s.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestSelector_UsedCategoriesFollowAccumulatedCounts(t *testing.T) {
	older := histRecord("204-00050", 44, 50, "rectangle")
	older.LettingDate = selNow.AddDate(0, -14, 0)
	pool := bidtabs.NewPool([]bidtabs.Record{
		histRecord("204-00050", 40, 50, "rectangle"),
		older,
	})
	catalog := refdata.NewCatalog(nil, nil, nil)
	// A sample target of 1 stops the candidate's own union after STATE_12M,
	// but the 24-month category still accumulates points.
	sourcer := NewSourcer(pool, catalog, pricing.Config{Now: selNow, MinSampleTarget: 1})
	sel := NewSelector(sourcer, Disabled{})

	res, err := sel.Estimate(context.Background(), Target{
		ItemCode: "204-00100",
		Shape:    "rectangle",
		AreaSqft: 54,
		Bundle:   catalog.Bundle("204-00100"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.CategoryCounts["STATE_12M"])
	assert.Equal(t, 1, res.CategoryCounts["STATE_24M"])
	assert.Equal(t, []string{"STATE_12M", "STATE_24M"}, res.UsedCategories,
		"every category with accumulated points is marked used")
}

func TestSelector_StatewideSummaryOnly(t *testing.T) {
	pool := bidtabs.NewPool(nil)
	catalog := refdata.NewCatalog(nil, map[string]refdata.UnitPrice{
		"204-00100": {
			Description:     "STRUCT EXCAVATION",
			WeightedAverage: 75.5,
			Contracts:       42,
		},
	}, nil)
	sel := NewSelector(NewSourcer(pool, catalog, pricing.Config{Now: selNow}), Disabled{})

	res, err := sel.Estimate(context.Background(), Target{
		ItemCode: "204-00100",
		AreaSqft: 54,
		Bundle:   catalog.Bundle("204-00100"),
	})
	require.NoError(t, err)

	require.Len(t, res.Selections, 1)
	assert.Equal(t, SummaryCode, res.Selections[0].ItemCode)
	assert.InDelta(t, 75.5, res.FinalPrice, 1e-9)
	assert.Equal(t, 42, res.TotalPoints, "summary-only selection reports contract count")
	assert.InDelta(t, 75.5, res.StatewidePrice, 1e-9)
}

func TestSelector_NoCandidates(t *testing.T) {
	pool := bidtabs.NewPool(nil)
	catalog := refdata.NewCatalog(nil, nil, nil)
	sel := NewSelector(NewSourcer(pool, catalog, pricing.Config{Now: selNow}), Disabled{})

	_, err := sel.Estimate(context.Background(), Target{
		ItemCode: "204-00100",
		AreaSqft: 54,
		Bundle:   catalog.Bundle("204-00100"),
	})
	assert.Error(t, err)
}

func TestNormalizeWeights_FallbackChain(t *testing.T) {
	selections := []Selection{
		{Candidate: Candidate{Similarity: map[string]float64{ScoreOverall: 0.8}}, Weight: 0},
		{Candidate: Candidate{Similarity: map[string]float64{ScoreOverall: 0.2}}, Weight: 0},
	}
	normalizeWeights(selections)

	assert.InDelta(t, 0.8, selections[0].Weight, 1e-9)
	assert.InDelta(t, 0.2, selections[1].Weight, 1e-9)
}

func TestNormalizeWeights_EqualShareWhenNothingKnown(t *testing.T) {
	selections := []Selection{
		{Candidate: Candidate{Similarity: map[string]float64{}}},
		{Candidate: Candidate{Similarity: map[string]float64{}}},
	}
	normalizeWeights(selections)

	assert.InDelta(t, 0.5, selections[0].Weight, 1e-9)
	assert.InDelta(t, 0.5, selections[1].Weight, 1e-9)
}

func TestNormalizeWeights_RescalesUnnormalized(t *testing.T) {
	selections := []Selection{
		{Weight: 3, Candidate: Candidate{Similarity: map[string]float64{}}},
		{Weight: 1, Candidate: Candidate{Similarity: map[string]float64{}}},
	}
	normalizeWeights(selections)

	assert.InDelta(t, 0.75, selections[0].Weight, 1e-9)
	assert.InDelta(t, 0.25, selections[1].Weight, 1e-9)
}

// stubRanker returns a canned outcome for ranker-path tests.
type stubRanker struct {
	outcome *RankOutcome
	err     error
}

func (s stubRanker) Rank(context.Context, Target, []Candidate) (*RankOutcome, error) {
	return s.outcome, s.err
}

func TestSelector_RemoteSelectionsUsed(t *testing.T) {
	pool := bidtabs.NewPool([]bidtabs.Record{
		histRecord("204-00050", 40, 50, "rectangle"),
		histRecord("204-00060", 60, 56, "rectangle"),
	})
	catalog := refdata.NewCatalog(nil, nil, nil)
	ranker := stubRanker{outcome: &RankOutcome{
		Selections: []RankSelection{
			{ItemCode: "204-00060", Weight: 1.0, Reason: "closest spec"},
		},
		Notes: "ranked remotely",
	}}
	sel := NewSelector(NewSourcer(pool, catalog, pricing.Config{Now: selNow}), ranker)

	res, err := sel.Estimate(context.Background(), Target{
		ItemCode: "204-00100",
		Shape:    "rectangle",
		AreaSqft: 54,
		Bundle:   catalog.Bundle("204-00100"),
	})
	require.NoError(t, err)

	require.Len(t, res.Selections, 1)
	assert.Equal(t, "204-00060", res.Selections[0].ItemCode)
	assert.Equal(t, "ranked remotely", res.RankerNotes)
	assert.InDelta(t, 60.0*54.0/56.0, res.FinalPrice, 1e-9)
}

func TestSelector_UnknownRemoteCodesFallBack(t *testing.T) {
	pool := bidtabs.NewPool([]bidtabs.Record{
		histRecord("204-00050", 40, 50, "rectangle"),
	})
	catalog := refdata.NewCatalog(nil, nil, nil)
	ranker := stubRanker{outcome: &RankOutcome{
		Selections: []RankSelection{{ItemCode: "999-99999", Weight: 1.0}},
	}}
	sel := NewSelector(NewSourcer(pool, catalog, pricing.Config{Now: selNow}), ranker)

	res, err := sel.Estimate(context.Background(), Target{
		ItemCode: "204-00100",
		Shape:    "rectangle",
		AreaSqft: 54,
		Bundle:   catalog.Bundle("204-00100"),
	})
	require.NoError(t, err)
	require.Len(t, res.Selections, 1)
	assert.Equal(t, "204-00050", res.Selections[0].ItemCode, "fallback must run when no remote pick matches")
}
