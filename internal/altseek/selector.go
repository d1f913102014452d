package altseek

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/costest-cli/internal/pricing"
)

// ErrNoCandidates signals that all three sourcing strategies came up empty
// and no alternate estimate can be produced.
var ErrNoCandidates = eris.New("altseek: no candidates found")

const maxSelections = 3

// Selector runs the full alternate-seek flow for one target: source
// candidates, rank them (remotely or via the local fallback), normalize
// weights, and blend the selections into one price with audit detail.
type Selector struct {
	Sourcer *Sourcer
	Ranker  Ranker
}

// NewSelector wires a selector. A nil ranker means remote ranking is off.
func NewSelector(sourcer *Sourcer, ranker Ranker) *Selector {
	if ranker == nil {
		ranker = Disabled{}
	}
	return &Selector{Sourcer: sourcer, Ranker: ranker}
}

// Estimate produces the blended alternate-seek result for the target.
// Returns ErrNoCandidates when nothing can be sourced.
func (s *Selector) Estimate(ctx context.Context, target Target) (*Result, error) {
	candidates := s.Sourcer.Candidates(target)
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	res := &Result{
		TargetCode:     target.ItemCode,
		TargetArea:     target.AreaSqft,
		Candidates:     candidates,
		CategoryPrices: map[string]float64{},
		CategoryCounts: map[string]int{},
	}
	if target.Bundle != nil && target.Bundle.UnitPrice != nil {
		res.StatewidePrice = target.Bundle.UnitPrice.WeightedAverage
		res.StatewideContracts = int(target.Bundle.UnitPrice.Contracts)
	}

	selections := s.rank(ctx, target, candidates, res)
	normalizeWeights(selections)
	res.Selections = selections

	s.recombine(res)
	return res, nil
}

// rank attempts the remote ranking and falls back to the deterministic
// local ordering on any failure. The failure reason becomes a note, never
// an error.
func (s *Selector) rank(ctx context.Context, target Target, candidates []Candidate, res *Result) []Selection {
	outcome, err := s.Ranker.Rank(ctx, target, candidates)
	if err == nil && outcome != nil {
		if selections := matchSelections(outcome.Selections, candidates); len(selections) > 0 {
			res.RankerNotes = outcome.Notes
			res.ShowWorkMethod = outcome.ShowWorkMethod
			res.ProcessImprovements = outcome.ProcessImprovements
			return selections
		}
		err = eris.New("altseek: ranking selections matched no candidate")
	}
	if err == nil {
		err = eris.New("altseek: ranking returned nothing")
	}

	zap.L().Debug("remote ranking unavailable, using local fallback",
		zap.String("item", target.ItemCode),
		zap.Error(err))
	res.RankerNotes = "Local fallback ranking: " + eris.ToString(err, false)
	return fallbackSelect(target, candidates)
}

// matchSelections maps remote picks onto known candidates, dropping
// unrecognized item codes.
func matchSelections(picks []RankSelection, candidates []Candidate) []Selection {
	byCode := make(map[string]*Candidate, len(candidates))
	for i := range candidates {
		byCode[candidates[i].ItemCode] = &candidates[i]
	}

	var out []Selection
	for _, pick := range picks {
		cand, ok := byCode[pick.ItemCode]
		if !ok {
			continue
		}
		out = append(out, Selection{
			Candidate: *cand,
			Weight:    pick.Weight,
			Reason:    pick.Reason,
		})
	}
	return out
}

// fallbackSelect ranks candidates locally: best overall score first, then
// deeper bid history, then closest area. Top 3 with positive scores win;
// an all-zero field degrades to the single best candidate.
func fallbackSelect(target Target, candidates []Candidate) []Selection {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Overall() != ranked[j].Overall() {
			return ranked[i].Overall() > ranked[j].Overall()
		}
		if ranked[i].DataPoints != ranked[j].DataPoints {
			return ranked[i].DataPoints > ranked[j].DataPoints
		}
		return areaGap(target, ranked[i]) < areaGap(target, ranked[j])
	})

	var picked []Candidate
	for _, c := range ranked {
		if c.Overall() > 0 {
			picked = append(picked, c)
		}
		if len(picked) == maxSelections {
			break
		}
	}
	if len(picked) == 0 {
		picked = ranked[:1]
	}

	allZero := true
	for _, c := range picked {
		if c.Overall() > 0 {
			allZero = false
			break
		}
	}

	out := make([]Selection, 0, len(picked))
	for _, c := range picked {
		w := c.Overall()
		if allZero {
			w = float64(max(c.DataPoints, 1))
		}
		out = append(out, Selection{
			Candidate: c,
			Weight:    w,
			Reason:    "local similarity ranking",
		})
	}
	return out
}

func areaGap(target Target, c Candidate) float64 {
	if c.AreaSqft <= 0 || target.AreaSqft <= 0 {
		return math.Inf(1)
	}
	return math.Abs(c.AreaSqft - target.AreaSqft)
}

// normalizeWeights forces selection weights positive and rescales them to
// sum to 1. A missing weight falls back to the candidate's overall score,
// then its data-point count, then an equal share.
func normalizeWeights(selections []Selection) {
	if len(selections) == 0 {
		return
	}

	equal := 1.0 / float64(len(selections))
	for i := range selections {
		w := selections[i].Weight
		if math.IsNaN(w) || w <= 0 {
			w = selections[i].Overall()
		}
		if w <= 0 {
			w = float64(selections[i].DataPoints)
		}
		if w <= 0 {
			w = equal
		}
		selections[i].Weight = w
	}

	total := 0.0
	for i := range selections {
		total += selections[i].Weight
	}
	if total <= 0 {
		for i := range selections {
			selections[i].Weight = equal
		}
		return
	}
	for i := range selections {
		selections[i].Weight /= total
	}
}

// recombine rebuilds per-category prices and audit detail across all
// selections and computes the final blended price from selection-level
// adjusted prices and weights.
func (s *Selector) recombine(res *Result) {
	type catAccum struct {
		weighted float64
		count    int
	}
	accum := make(map[string]*catAccum)
	seen := make(map[int]struct{})
	summaryOnly := true

	for _, sel := range res.Selections {
		res.FinalPrice += sel.Weight * sel.AdjustedPrice

		if sel.Source == SourceStatewide {
			continue
		}
		summaryOnly = false

		outcome := pricing.Breakdown(s.Sourcer.Pool, sel.ItemCode, s.Sourcer.Pricing, 0)
		for name, cat := range outcome.Categories {
			if cat.Count == 0 {
				continue
			}
			a := accum[name]
			if a == nil {
				a = &catAccum{}
				accum[name] = a
			}
			a.weighted += float64(cat.Count) * cat.Price * sel.Ratio
			a.count += cat.Count
		}

		for _, rec := range outcome.Detail {
			if _, dup := seen[rec.RowID]; dup {
				continue
			}
			seen[rec.RowID] = struct{}{}
			res.Detail = append(res.Detail, DetailRecord{
				Record:     rec,
				SourceItem: sel.ItemCode,
				Weight:     sel.Weight,
				Ratio:      sel.Ratio,
			})
		}
	}

	for name, a := range accum {
		if a.count == 0 {
			continue
		}
		res.CategoryPrices[name] = a.weighted / float64(a.count)
		res.CategoryCounts[name] = a.count
	}
	// Any category with accumulated points counts as used, whether or not
	// it contributed to a selection's own union.
	for _, name := range pricing.CategoryNames() {
		if a, ok := accum[name]; ok && a.count > 0 {
			res.UsedCategories = append(res.UsedCategories, name)
		}
	}

	res.TotalPoints = len(res.Detail)
	if summaryOnly {
		res.TotalPoints = res.StatewideContracts
	}

	res.SimilaritySummary = blendScores(res.Selections)
}

// blendScores averages the selections' similarity profiles weighted by
// their normalized blending weights.
func blendScores(selections []Selection) map[string]float64 {
	if len(selections) == 0 {
		return nil
	}
	out := make(map[string]float64)
	for _, sel := range selections {
		for key, score := range sel.Similarity {
			out[key] += sel.Weight * score
		}
	}
	return out
}
