// Package estimator runs the full per-item pricing pipeline: category
// hierarchy first, alternate seek when no direct history exists, then the
// fixed percent-of-subtotal overrides for mobilization and bonding. Every
// requested item yields exactly one EstimateRow; per-item failures degrade
// to a zero price with explanatory notes, never abort the batch.
package estimator

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/costest-cli/internal/altseek"
	"github.com/sells-group/costest-cli/internal/bidtabs"
	"github.com/sells-group/costest-cli/internal/geometry"
	"github.com/sells-group/costest-cli/internal/pricing"
	"github.com/sells-group/costest-cli/internal/refdata"
	"github.com/sells-group/costest-cli/internal/stats"
)

// Item is one row of the project quantities table.
type Item struct {
	ItemCode    string
	Description string
	Unit        string
	Quantity    float64
}

// CategoryCell is one category's contribution to a row, for reporting.
type CategoryCell struct {
	Price    float64
	Count    int
	Included bool
}

// EstimateRow is the priced outcome for one requested pay item.
type EstimateRow struct {
	ItemCode    string
	Description string
	Unit        string
	Quantity    float64
	UnitPrice   float64
	Extended    float64
	DataPoints  int
	Source      string
	Confidence  float64
	Notes       []string

	Categories map[string]CategoryCell

	AlternateUsed bool
	Alternate     *altseek.Result

	Detail []bidtabs.Record
}

// Summary counts how each item in a batch was priced.
type Summary struct {
	Direct    int
	Alternate int
	NoData    int
}

// Override reprices one item code as a percentage of the contract
// subtotal after all other items are priced.
type Override struct {
	ItemCode string
	Percent  float64
}

// DefaultOverrides are the mobilization and bonding/insurance items.
func DefaultOverrides() []Override {
	return []Override{
		{ItemCode: "110-01001", Percent: 0.02},
		{ItemCode: "110-01002", Percent: 0.05},
	}
}

// Pipeline prices a batch of pay items against a loaded bid-history pool
// and reference catalog.
type Pipeline struct {
	Pool      *bidtabs.Pool
	Catalog   *refdata.Catalog
	Pricing   pricing.Config
	Selector  *altseek.Selector
	Overrides []Override
}

// New wires a pipeline. A nil ranker disables remote ranking; alternate
// seek then always uses its deterministic local fallback.
func New(pool *bidtabs.Pool, catalog *refdata.Catalog, cfg pricing.Config, ranker altseek.Ranker) *Pipeline {
	cfg = cfg.Normalize()
	sourcer := altseek.NewSourcer(pool, catalog, cfg)
	return &Pipeline{
		Pool:      pool,
		Catalog:   catalog,
		Pricing:   cfg,
		Selector:  altseek.NewSelector(sourcer, ranker),
		Overrides: DefaultOverrides(),
	}
}

// Run prices every item in input order, applies the percent-of-subtotal
// overrides, and returns one row per item plus the batch summary.
func (p *Pipeline) Run(ctx context.Context, items []Item) ([]EstimateRow, Summary) {
	rows := make([]EstimateRow, 0, len(items))
	var sum Summary

	for _, item := range items {
		row := p.EstimateRow(ctx, item)
		switch {
		case row.AlternateUsed:
			sum.Alternate++
		case row.DataPoints > 0:
			sum.Direct++
		default:
			sum.NoData++
		}
		rows = append(rows, row)
	}

	p.applyOverrides(rows)

	zap.L().Info("estimation batch complete",
		zap.Int("items", len(rows)),
		zap.Int("direct", sum.Direct),
		zap.Int("alternate", sum.Alternate),
		zap.Int("no_data", sum.NoData))
	return rows, sum
}

// EstimateRow prices a single pay item: direct category hierarchy first,
// alternate seek when no direct history exists and geometry is parsable.
func (p *Pipeline) EstimateRow(ctx context.Context, item Item) EstimateRow {
	code := bidtabs.NormalizeItemCode(item.ItemCode)
	row := EstimateRow{
		ItemCode:    code,
		Description: item.Description,
		Unit:        item.Unit,
		Quantity:    item.Quantity,
	}

	outcome := pricing.Breakdown(p.Pool, code, p.Pricing, item.Quantity)
	row.Source = outcome.Source
	row.DataPoints = outcome.TotalUsed
	row.Detail = outcome.Detail
	row.Categories = categoryCells(outcome)

	if math.IsNaN(outcome.Price) {
		row.UnitPrice = 0
		row.Notes = append(row.Notes, "No bid history in any category")
	} else {
		row.UnitPrice = outcome.Price
		if outcome.TotalUsed < p.Pricing.MinSampleTarget {
			row.Notes = append(row.Notes, fmt.Sprintf(
				"Only %d data points (target %d)", outcome.TotalUsed, p.Pricing.MinSampleTarget))
		}
	}
	row.Confidence = stats.Compute(recordPrices(outcome.Detail)).Confidence

	if row.DataPoints == 0 {
		p.tryAlternate(ctx, item, code, &row)
	}

	row.Extended = extend(row.UnitPrice, row.Quantity)
	return row
}

// tryAlternate runs alternate seek for an item with zero direct history.
// The zero-price outcome from the direct pass survives any failure here.
func (p *Pipeline) tryAlternate(ctx context.Context, item Item, code string, row *EstimateRow) {
	info := geometry.Parse(item.Description)
	if info == nil || info.AreaSqft <= 0 {
		return
	}

	target := altseek.Target{
		ItemCode:    code,
		Description: item.Description,
		Shape:       info.Shape,
		AreaSqft:    info.AreaSqft,
		Bundle:      p.Catalog.Bundle(code),
	}

	res, err := p.Selector.Estimate(ctx, target)
	if err != nil {
		row.Notes = append(row.Notes, "No alternate candidates found")
		zap.L().Debug("alternate seek unavailable",
			zap.String("item", code), zap.Error(err))
		return
	}

	row.UnitPrice = res.FinalPrice
	row.DataPoints = res.TotalPoints
	row.AlternateUsed = true
	row.Alternate = res
	row.Source = "ALT_SEEK"
	row.Notes = alternateNotes(res)
	row.Categories = alternateCells(res)
	row.Detail = nil
	row.Confidence = stats.Compute(detailPrices(res.Detail)).Confidence
}

// applyOverrides reprices the mobilization and bonding analogues as fixed
// percentages of the contract subtotal. Both use the same subtotal,
// computed once with every override code excluded, regardless of
// application order.
func (p *Pipeline) applyOverrides(rows []EstimateRow) {
	if len(p.Overrides) == 0 {
		return
	}

	excluded := make(map[string]struct{}, len(p.Overrides))
	for _, ov := range p.Overrides {
		excluded[bidtabs.NormalizeItemCode(ov.ItemCode)] = struct{}{}
	}

	subtotal := 0.0
	for _, row := range rows {
		if _, skip := excluded[row.ItemCode]; skip {
			continue
		}
		subtotal += row.Extended
	}

	for _, ov := range p.Overrides {
		code := bidtabs.NormalizeItemCode(ov.ItemCode)
		for i := range rows {
			if rows[i].ItemCode != code {
				continue
			}
			total := math.Floor(ov.Percent*subtotal/1000.0) * 1000.0
			unit := 0.0
			if rows[i].Quantity > 0 {
				unit = total / rows[i].Quantity
			}

			rows[i].UnitPrice = unit
			rows[i].Extended = total
			rows[i].DataPoints = 0
			rows[i].Source = "PCT_OF_SUBTOTAL"
			rows[i].Confidence = 0
			rows[i].AlternateUsed = false
			rows[i].Alternate = nil
			rows[i].Categories = nil
			rows[i].Detail = nil
			rows[i].Notes = []string{fmt.Sprintf(
				"Set to %.0f%% of contract subtotal $%.2f", ov.Percent*100, subtotal)}

			zap.L().Info("override applied",
				zap.String("item", code),
				zap.Float64("percent", ov.Percent),
				zap.Float64("total", total))
		}
	}
}

func categoryCells(outcome pricing.Outcome) map[string]CategoryCell {
	used := make(map[string]struct{}, len(outcome.UsedCategories))
	for _, name := range outcome.UsedCategories {
		used[name] = struct{}{}
	}

	cells := make(map[string]CategoryCell, len(outcome.Categories))
	for name, cat := range outcome.Categories {
		_, inc := used[name]
		cells[name] = CategoryCell{Price: cat.Price, Count: cat.Count, Included: inc}
	}
	return cells
}

func alternateCells(res *altseek.Result) map[string]CategoryCell {
	used := make(map[string]struct{}, len(res.UsedCategories))
	for _, name := range res.UsedCategories {
		used[name] = struct{}{}
	}

	cells := make(map[string]CategoryCell, len(res.CategoryPrices))
	for name, price := range res.CategoryPrices {
		_, inc := used[name]
		cells[name] = CategoryCell{Price: price, Count: res.CategoryCounts[name], Included: inc}
	}
	return cells
}

func alternateNotes(res *altseek.Result) []string {
	notes := []string{fmt.Sprintf(
		"Alternate seek: blended %d selection(s) over %d data points",
		len(res.Selections), res.TotalPoints)}
	for _, sel := range res.Selections {
		notes = append(notes, fmt.Sprintf("%s weight %.2f (ratio %.3f, %d pts)",
			sel.ItemCode, sel.Weight, sel.Ratio, sel.DataPoints))
	}
	if res.RankerNotes != "" {
		notes = append(notes, res.RankerNotes)
	}
	return notes
}

func recordPrices(records []bidtabs.Record) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		out = append(out, r.UnitPrice)
	}
	return out
}

func detailPrices(records []altseek.DetailRecord) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		out = append(out, r.UnitPrice)
	}
	return out
}

func extend(price, qty float64) float64 {
	if math.IsNaN(qty) {
		return 0
	}
	return price * qty
}
