// Package pricing implements the category-hierarchy pricing engine.
//
// For one target pay item it evaluates six (scope × time-window) categories
// in a fixed priority order, progressively unioning their record subsets
// until a cumulative minimum-sample target is met, then aggregates the union
// into a single unit price. All functions are pure given (pool, arguments,
// Config.Now), which keeps the engine reproducible and independently
// testable.
package pricing

import (
	"math"
	"time"

	"github.com/sells-group/costest-cli/internal/bidtabs"
)

// AggregationMode selects how a record subset reduces to one price.
type AggregationMode string

const (
	ModeWeightedAverage AggregationMode = "WGT_AVG"
	ModeMean            AggregationMode = "MEAN"
	ModeMedian          AggregationMode = "MEDIAN"
	ModeP40P60          AggregationMode = "P40_P60"
)

// Scope restricts a category to the project region or statewide.
type Scope string

const (
	ScopeRegion Scope = "REGION"
	ScopeState  Scope = "STATE"
)

// CategoryDef defines one pricing category: a scope plus an age window in
// months relative to Config.Now.
type CategoryDef struct {
	Name      string
	Scope     Scope
	MinMonths int
	MaxMonths int
}

// Categories is the fixed priority order: district first, most recent first.
var Categories = []CategoryDef{
	{"DIST_12M", ScopeRegion, 0, 12},
	{"DIST_24M", ScopeRegion, 12, 24},
	{"DIST_36M", ScopeRegion, 24, 36},
	{"STATE_12M", ScopeState, 0, 12},
	{"STATE_24M", ScopeState, 12, 24},
	{"STATE_36M", ScopeState, 24, 36},
}

// CategoryNames lists category names in priority order.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = c.Name
	}
	return names
}

// Config carries the knobs the engine needs. Zero values get defaults from
// Normalize: MinSampleTarget 50, weighted-average mode, wall-clock Now.
// Region 0 means the project region is unknown, emptying region-scoped
// categories.
type Config struct {
	Region          int
	MinSampleTarget int
	Mode            AggregationMode
	Now             time.Time
}

// Normalize fills in defaults and returns the adjusted config.
func (c Config) Normalize() Config {
	if c.MinSampleTarget <= 0 {
		c.MinSampleTarget = 50
	}
	if c.Mode == "" {
		c.Mode = ModeWeightedAverage
	}
	if c.Now.IsZero() {
		c.Now = time.Now()
	}
	return c
}

// CategoryResult is the outcome of one category for one item.
// Count > 0 iff Price is finite; Count == 0 iff Price is NaN.
type CategoryResult struct {
	Name    string
	Price   float64
	Count   int
	Records []bidtabs.Record
}

// Outcome is the full category-hierarchy result for one item.
type Outcome struct {
	Price          float64
	Source         string
	Categories     map[string]CategoryResult
	UsedCategories []string
	Detail         []bidtabs.Record
	TotalUsed      int
}

// CategoryCount returns the record count for a named category.
func (o Outcome) CategoryCount(name string) int {
	return o.Categories[name].Count
}

// Breakdown computes the category hierarchy for one item code. When
// targetQty is positive, the pool is first restricted to records whose
// quantity lies within ±50% of it.
func Breakdown(pool *bidtabs.Pool, itemCode string, cfg Config, targetQty float64) Outcome {
	cfg = cfg.Normalize()

	records := pool.ForItem(itemCode)
	if targetQty > 0 {
		records = filterQuantityBand(records, targetQty)
	}

	out := Outcome{
		Price:      math.NaN(),
		Source:     "NO_DATA",
		Categories: make(map[string]CategoryResult, len(Categories)),
	}

	for _, def := range Categories {
		subset := FilterWindow(records, def.MinMonths, def.MaxMonths, cfg.Now)
		if def.Scope == ScopeRegion {
			subset = filterRegion(subset, cfg.Region)
		}

		if len(subset) >= 3 {
			subset = TrimOutliers(subset)
		}

		if len(subset) == 0 {
			out.Categories[def.Name] = CategoryResult{Name: def.Name, Price: math.NaN()}
			continue
		}

		price, count := Aggregate(subset, cfg.Mode)
		out.Categories[def.Name] = CategoryResult{
			Name:    def.Name,
			Price:   price,
			Count:   count,
			Records: subset,
		}
	}

	// Union category subsets in priority order, first-seen wins. A category
	// already being merged is completed even when the target is crossed
	// mid-category.
	seen := make(map[int]struct{})
	for _, def := range Categories {
		cat := out.Categories[def.Name]
		if cat.Count == 0 {
			continue
		}

		added := false
		for _, rec := range cat.Records {
			if _, dup := seen[rec.RowID]; dup {
				continue
			}
			seen[rec.RowID] = struct{}{}
			out.Detail = append(out.Detail, rec)
			added = true
		}
		if !added {
			continue
		}
		out.UsedCategories = append(out.UsedCategories, def.Name)

		if len(seen) >= cfg.MinSampleTarget {
			break
		}
	}

	if len(out.Detail) > 0 {
		price, _ := Aggregate(out.Detail, cfg.Mode)
		out.Price = price
		out.TotalUsed = len(out.Detail)
		out.Source = out.UsedCategories[len(out.UsedCategories)-1]
	}

	return out
}

// filterQuantityBand keeps records whose quantity is within ±50% of the
// target. Records without a known quantity are excluded.
func filterQuantityBand(records []bidtabs.Record, targetQty float64) []bidtabs.Record {
	lower := 0.5 * targetQty
	upper := 1.5 * targetQty
	var out []bidtabs.Record
	for _, r := range records {
		if math.IsNaN(r.Quantity) {
			continue
		}
		if r.Quantity >= lower && r.Quantity <= upper {
			out = append(out, r)
		}
	}
	return out
}

// filterRegion keeps records matching the project region. An unknown
// project region (0) or unknown record region empties the category.
func filterRegion(records []bidtabs.Record, region int) []bidtabs.Record {
	if region == 0 {
		return nil
	}
	var out []bidtabs.Record
	for _, r := range records {
		if r.Region == region {
			out = append(out, r)
		}
	}
	return out
}
