// Package altseek prices pay items that have no direct bid history by
// locating similar items, scoring them on five weighted similarity
// dimensions, weighting the survivors (remote ranking with a deterministic
// local fallback), and blending their area-adjusted prices into one
// estimate.
package altseek

import (
	"github.com/sells-group/costest-cli/internal/bidtabs"
	"github.com/sells-group/costest-cli/internal/refdata"
)

// Score map keys. Five weighted dimensions plus the weighted overall.
const (
	ScoreGeometry   = "geometry_score"
	ScoreSpec       = "spec_score"
	ScoreRecency    = "recency_score"
	ScoreLocality   = "locality_score"
	ScoreDataVolume = "data_volume_score"
	ScoreOverall    = "overall_score"
)

// SimilarityWeights are the fixed dimension weights for the overall score.
var SimilarityWeights = map[string]float64{
	ScoreGeometry:   0.35,
	ScoreSpec:       0.25,
	ScoreRecency:    0.20,
	ScoreLocality:   0.10,
	ScoreDataVolume: 0.10,
}

// Candidate source tags.
const (
	SourcePrefix    = "bidtabs-prefix"
	SourceRelated   = "bidtabs-related"
	SourceStatewide = "unit_price_summary"
)

// SummaryCode is the synthetic item code of the statewide-summary
// pseudo-candidate.
const SummaryCode = "UNIT_PRICE_SUMMARY"

// Target describes the pay item being priced by alternate seek.
type Target struct {
	ItemCode    string
	Description string
	Shape       string
	AreaSqft    float64
	Bundle      *refdata.Bundle
}

// Candidate is one substitute pay item under consideration.
type Candidate struct {
	ItemCode      string
	Description   string
	AreaSqft      float64
	BasePrice     float64
	AdjustedPrice float64
	Ratio         float64
	DataPoints    int
	CategoryCount map[string]int
	Shape         string
	Source        string
	SpecSection   string
	Similarity    map[string]float64
	Notes         []string
}

// Overall returns the candidate's overall similarity score.
func (c *Candidate) Overall() float64 {
	return c.Similarity[ScoreOverall]
}

// Selection is a candidate chosen for blending with a normalized weight.
type Selection struct {
	Candidate
	Weight float64
	Reason string
}

// DetailRecord is a contributing historical record tagged with the
// selection it came from.
type DetailRecord struct {
	bidtabs.Record
	SourceItem string
	Weight     float64
	Ratio      float64
}

// RankSelection is one weighted pick returned by a ranking strategy.
type RankSelection struct {
	ItemCode string  `json:"item_code"`
	Weight   float64 `json:"weight"`
	Reason   string  `json:"reason,omitempty"`
}

// RankOutcome is the full response of a ranking strategy. The narrative
// fields are informational only and never affect the numeric estimate.
type RankOutcome struct {
	Selections          []RankSelection `json:"selected"`
	Notes               string          `json:"notes,omitempty"`
	SystemOverview      string          `json:"system_overview,omitempty"`
	SystemSteps         []string        `json:"system_steps,omitempty"`
	SystemValidation    string          `json:"system_validation,omitempty"`
	ShowWorkMethod      string          `json:"show_work_method,omitempty"`
	ProcessImprovements string          `json:"process_improvements,omitempty"`
}

// Result is the blended alternate-seek outcome for one target item.
type Result struct {
	TargetCode string
	TargetArea float64

	Candidates []Candidate
	Selections []Selection

	FinalPrice float64

	CategoryPrices map[string]float64
	CategoryCounts map[string]int
	UsedCategories []string
	Detail         []DetailRecord
	TotalPoints    int

	StatewidePrice     float64
	StatewideContracts int

	SimilaritySummary map[string]float64

	RankerNotes         string
	ShowWorkMethod      string
	ProcessImprovements string
}
