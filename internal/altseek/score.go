package altseek

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/costest-cli/internal/pricing"
	"github.com/sells-group/costest-cli/internal/refdata"
)

// specKeywords are material/treatment terms whose presence in exactly one
// of the two descriptions signals the items are less substitutable. Each
// asymmetric hit lowers the spec score by keywordPenalty.
var specKeywords = []string{"COAT", "GALV", "REINFORC", "TEMPORARY", "POLYMER", "STAINLESS"}

const keywordPenalty = 0.15

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// scoreInput carries everything similarity scoring needs beyond the
// candidate itself.
type scoreInput struct {
	targetArea    float64
	targetShape   string
	targetDesc    string
	targetBundle  *refdata.Bundle
	candBundle    *refdata.Bundle
	areaTolerance float64
	minTarget     int
}

// scoreCandidate computes the 5-dimensional similarity profile plus the
// weighted overall score, and the diagnostic notes that explain weak
// dimensions. Pure and deterministic; symmetric in the geometry term.
func scoreCandidate(in scoreInput, cand *Candidate) (map[string]float64, []string) {
	var notes []string

	areaRatio := 0.0
	if cand.AreaSqft > 0 && in.targetArea > 0 {
		areaRatio = math.Min(cand.AreaSqft, in.targetArea) / math.Max(cand.AreaSqft, in.targetArea)
		deviation := math.Abs(cand.AreaSqft-in.targetArea) / math.Max(in.targetArea, 1e-6)
		if deviation > in.areaTolerance {
			notes = append(notes, fmt.Sprintf("Area differs %.0f%% from target", deviation*100))
		}
	}

	shapeScore := 0.5
	switch {
	case in.targetShape != "" && cand.Shape != "":
		switch {
		case in.targetShape == cand.Shape:
			shapeScore = 1.0
		case prefix3(in.targetShape) == prefix3(cand.Shape):
			shapeScore = 0.7
		default:
			shapeScore = 0.4
			notes = append(notes, fmt.Sprintf("Shape mismatch: target=%s candidate=%s", in.targetShape, cand.Shape))
		}
	case in.targetShape != "" || cand.Shape != "":
		shapeScore = 0.6
	}
	geometryScore := clamp(0.7*areaRatio + 0.3*shapeScore)

	targetSection := in.targetBundle.SectionID()
	candSection := in.candBundle.SectionID()
	specScore := 0.5
	switch {
	case targetSection != "" && candSection != "":
		switch {
		case targetSection == candSection:
			specScore = 1.0
		case topSection(targetSection) == topSection(candSection):
			specScore = 0.75
		default:
			specScore = 0.55
			notes = append(notes, fmt.Sprintf("Spec section differs: target=%s candidate=%s", targetSection, candSection))
		}
	case candSection != "":
		specScore = 0.6
	default:
		notes = append(notes, "Candidate missing specification section metadata")
	}

	targetDesc := joinDescriptions(in.targetDesc, bundleDescription(in.targetBundle))
	candDesc := joinDescriptions(cand.Description, bundleDescription(in.candBundle))
	for _, kw := range specKeywords {
		if hasKeyword(targetDesc, kw) != hasKeyword(candDesc, kw) {
			specScore = clamp(specScore - keywordPenalty)
			notes = append(notes, fmt.Sprintf("Keyword mismatch: %q present in one description only", kw))
		}
	}

	var total, recent, mid, long int
	for _, def := range pricing.Categories {
		n := cand.CategoryCount[def.Name]
		total += n
		switch def.MaxMonths {
		case 12:
			recent += n
		case 24:
			mid += n
		case 36:
			long += n
		}
	}
	recencyScore := 0.0
	localityScore := 0.0
	if total > 0 {
		recencyScore = clamp(float64(3*recent+2*mid+long) / float64(3*total))
		district := cand.CategoryCount["DIST_12M"] + cand.CategoryCount["DIST_24M"] + cand.CategoryCount["DIST_36M"]
		localityScore = clamp(float64(district) / float64(total))
	} else {
		notes = append(notes, "No bid-history recency data available; relying on statewide surrogates")
	}

	minTarget := in.minTarget
	if minTarget < 10 {
		minTarget = 10
	}
	dataVolumeScore := clamp(float64(cand.DataPoints) / float64(minTarget))
	if cand.DataPoints < minTarget {
		notes = append(notes, fmt.Sprintf("Only %d bid-history data points (target %d)", cand.DataPoints, minTarget))
	}

	scores := map[string]float64{
		ScoreGeometry:   geometryScore,
		ScoreSpec:       clamp(specScore),
		ScoreRecency:    recencyScore,
		ScoreLocality:   localityScore,
		ScoreDataVolume: dataVolumeScore,
	}

	overall := 0.0
	for key, weight := range SimilarityWeights {
		overall += weight * scores[key]
	}
	scores[ScoreOverall] = clamp(overall)

	return scores, notes
}

func prefix3(s string) string {
	if len(s) > 3 {
		return s[:3]
	}
	return s
}

func topSection(section string) string {
	if i := strings.Index(section, "."); i >= 0 {
		return section[:i]
	}
	return section
}

func hasKeyword(text, keyword string) bool {
	return strings.Contains(strings.ToUpper(text), keyword)
}

func joinDescriptions(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

func bundleDescription(b *refdata.Bundle) string {
	if b == nil || b.PayItem == nil {
		return ""
	}
	return b.PayItem.Description
}
