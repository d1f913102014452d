package altseek

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/costest-cli/internal/bidtabs"
	"github.com/sells-group/costest-cli/internal/geometry"
	"github.com/sells-group/costest-cli/internal/pricing"
	"github.com/sells-group/costest-cli/internal/refdata"
)

// Default area tolerances per candidate source.
const (
	DefaultPrefixTolerance  = 0.20
	DefaultRelatedTolerance = 0.35
)

// Sourcer discovers substitute candidates for a target pay item from three
// strategies: the prefix family in bid history, related items sharing the
// spec section, and the statewide unit-price summary.
type Sourcer struct {
	Pool    *bidtabs.Pool
	Catalog *refdata.Catalog
	Pricing pricing.Config

	PrefixTolerance  float64
	RelatedTolerance float64
}

// NewSourcer builds a Sourcer with default tolerances.
func NewSourcer(pool *bidtabs.Pool, catalog *refdata.Catalog, cfg pricing.Config) *Sourcer {
	return &Sourcer{
		Pool:             pool,
		Catalog:          catalog,
		Pricing:          cfg.Normalize(),
		PrefixTolerance:  DefaultPrefixTolerance,
		RelatedTolerance: DefaultRelatedTolerance,
	}
}

// Candidates assembles, prices, and scores every substitute candidate for
// the target. An empty result means no alternate estimate is possible.
func (s *Sourcer) Candidates(target Target) []Candidate {
	seen := make(map[string]struct{})
	var out []Candidate

	for _, cand := range s.prefixFamily(target) {
		seen[cand.ItemCode] = struct{}{}
		out = append(out, cand)
	}

	for _, cand := range s.relatedItems(target) {
		if _, dup := seen[cand.ItemCode]; dup {
			continue
		}
		seen[cand.ItemCode] = struct{}{}
		out = append(out, cand)
	}

	if cand, ok := s.statewideSummary(target); ok {
		out = append(out, cand)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Overall() > out[j].Overall()
	})

	zap.L().Debug("alternate candidates assembled",
		zap.String("item", target.ItemCode),
		zap.Int("count", len(out)))
	return out
}

// prefixFamily finds sibling codes in bid history sharing the target's
// family prefix with compatible geometry.
func (s *Sourcer) prefixFamily(target Target) []Candidate {
	prefix := bidtabs.ItemPrefix(target.ItemCode)
	if prefix == "" || target.AreaSqft <= 0 {
		return nil
	}

	var out []Candidate
	for _, code := range s.Pool.ItemCodes() {
		if code == target.ItemCode || bidtabs.ItemPrefix(code) != prefix {
			continue
		}
		shape, area := itemGeometry(s.Pool.ForItem(code))
		if area <= 0 {
			continue
		}
		if math.Abs(area-target.AreaSqft)/target.AreaSqft > s.PrefixTolerance {
			continue
		}
		if target.Shape != "" && target.Shape != "min_area" && shape != target.Shape {
			continue
		}
		cand, ok := s.buildCandidate(target, code, "", shape, area, SourcePrefix, s.PrefixTolerance)
		if !ok || cand.DataPoints == 0 {
			continue
		}
		out = append(out, cand)
	}
	return out
}

// relatedItems builds candidates from catalog items sharing the target's
// specification section. Geometry is taken from bid history when present,
// else parsed from the catalog description.
func (s *Sourcer) relatedItems(target Target) []Candidate {
	if target.Bundle == nil {
		return nil
	}

	var out []Candidate
	for _, rel := range target.Bundle.RelatedItems {
		if rel.ItemCode == target.ItemCode {
			continue
		}
		records := s.Pool.ForItem(rel.ItemCode)
		shape, area := itemGeometry(records)
		if area <= 0 {
			if info := geometry.Parse(rel.Description); info != nil {
				shape, area = info.Shape, info.AreaSqft
			}
		}
		cand, ok := s.buildCandidate(target, rel.ItemCode, rel.Description, shape, area, SourceRelated, s.RelatedTolerance)
		if !ok {
			continue
		}
		out = append(out, cand)
	}
	return out
}

// statewideSummary yields the synthetic candidate built from the target's
// own statewide weighted-average price, when one exists.
func (s *Sourcer) statewideSummary(target Target) (Candidate, bool) {
	if target.Bundle == nil || target.Bundle.UnitPrice == nil {
		return Candidate{}, false
	}
	up := target.Bundle.UnitPrice
	if up.WeightedAverage <= 0 {
		return Candidate{}, false
	}

	minTarget := s.Pricing.MinSampleTarget
	if minTarget < 10 {
		minTarget = 10
	}

	specScore := 0.5
	if target.Bundle.SectionID() != "" {
		specScore = 0.65
	}
	scores := map[string]float64{
		ScoreGeometry:   0.6,
		ScoreSpec:       specScore,
		ScoreRecency:    0.5,
		ScoreLocality:   0.4,
		ScoreDataVolume: clamp(up.Contracts / float64(minTarget)),
	}
	overall := 0.0
	for key, weight := range SimilarityWeights {
		overall += weight * scores[key]
	}
	scores[ScoreOverall] = clamp(overall)

	cand := Candidate{
		ItemCode:      SummaryCode,
		Description:   up.Description,
		AreaSqft:      target.AreaSqft,
		BasePrice:     up.WeightedAverage,
		AdjustedPrice: up.WeightedAverage,
		Ratio:         1.0,
		DataPoints:    int(up.Contracts),
		CategoryCount: map[string]int{},
		Source:        SourceStatewide,
		SpecSection:   target.Bundle.SectionID(),
		Similarity:    scores,
		Notes:         []string{fmt.Sprintf("Statewide weighted average across %.0f contracts", up.Contracts)},
	}
	return cand, true
}

// buildCandidate prices one sibling code through the category hierarchy
// (no quantity restriction) and scores it against the target.
func (s *Sourcer) buildCandidate(target Target, code, description, shape string, area float64, source string, tolerance float64) (Candidate, bool) {
	outcome := pricing.Breakdown(s.Pool, code, s.Pricing, 0)
	if outcome.TotalUsed == 0 || math.IsNaN(outcome.Price) {
		return Candidate{}, false
	}

	if description == "" {
		description = itemDescription(s.Pool.ForItem(code))
	}

	ratio := 1.0
	if area > 0 && target.AreaSqft > 0 {
		ratio = target.AreaSqft / area
	}

	counts := make(map[string]int, len(outcome.Categories))
	for name, cat := range outcome.Categories {
		counts[name] = cat.Count
	}

	candBundle := s.Catalog.Bundle(code)
	cand := Candidate{
		ItemCode:      code,
		Description:   description,
		AreaSqft:      area,
		BasePrice:     outcome.Price,
		AdjustedPrice: outcome.Price * ratio,
		Ratio:         ratio,
		DataPoints:    outcome.TotalUsed,
		CategoryCount: counts,
		Shape:         shape,
		Source:        source,
		SpecSection:   candBundle.SectionID(),
	}

	scores, notes := scoreCandidate(scoreInput{
		targetArea:    target.AreaSqft,
		targetShape:   target.Shape,
		targetDesc:    target.Description,
		targetBundle:  target.Bundle,
		candBundle:    candBundle,
		areaTolerance: tolerance,
		minTarget:     s.Pricing.MinSampleTarget,
	}, &cand)
	cand.Similarity = scores
	cand.Notes = notes

	return cand, true
}

// itemGeometry returns the representative (shape, area) for an item: the
// first known shape and the mean of all known areas across its records.
func itemGeometry(records []bidtabs.Record) (string, float64) {
	var shape string
	var sum float64
	var n int
	for _, r := range records {
		if shape == "" && r.Shape != "" {
			shape = r.Shape
		}
		if r.HasArea() {
			sum += r.AreaSqft
			n++
		}
	}
	if n == 0 {
		return shape, 0
	}
	return shape, sum / float64(n)
}

func itemDescription(records []bidtabs.Record) string {
	for _, r := range records {
		if strings.TrimSpace(r.Description) != "" {
			return r.Description
		}
	}
	return ""
}
