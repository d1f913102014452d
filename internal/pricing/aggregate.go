package pricing

import (
	"math"
	"sort"

	"github.com/sells-group/costest-cli/internal/bidtabs"
)

// Aggregate reduces a record subset to (price, count) under the given mode.
// An empty subset yields (NaN, 0). Weighted-average mode requires at least
// one record with an explicit weight (missing weights default to 1.0) and
// otherwise falls back to the median.
func Aggregate(records []bidtabs.Record, mode AggregationMode) (float64, int) {
	if len(records) == 0 {
		return math.NaN(), 0
	}

	switch mode {
	case ModeWeightedAverage:
		if anyWeighted(records) {
			return weightedAverage(records), len(records)
		}
		return percentile(sortedPrices(records), 0.50), len(records)
	case ModeMean:
		return meanPrice(records), len(records)
	case ModeP40P60:
		prices := sortedPrices(records)
		p40 := percentile(prices, 0.40)
		p60 := percentile(prices, 0.60)
		return (p40 + p60) / 2, len(records)
	case ModeMedian:
		return percentile(sortedPrices(records), 0.50), len(records)
	default:
		return percentile(sortedPrices(records), 0.50), len(records)
	}
}

func anyWeighted(records []bidtabs.Record) bool {
	for _, r := range records {
		if r.HasWeight() {
			return true
		}
	}
	return false
}

func weightedAverage(records []bidtabs.Record) float64 {
	var sum, wsum float64
	for _, r := range records {
		w := r.Weight
		if math.IsNaN(w) {
			w = 1.0
		}
		sum += r.UnitPrice * w
		wsum += w
	}
	if wsum == 0 {
		return percentile(sortedPrices(records), 0.50)
	}
	return sum / wsum
}

func meanPrice(records []bidtabs.Record) float64 {
	var sum float64
	for _, r := range records {
		sum += r.UnitPrice
	}
	return sum / float64(len(records))
}

func sortedPrices(records []bidtabs.Record) []float64 {
	prices := make([]float64, len(records))
	for i, r := range records {
		prices[i] = r.UnitPrice
	}
	sort.Float64s(prices)
	return prices
}

// percentile computes the q-th quantile with linear interpolation between
// closest ranks, matching the convention of the historical tooling.
func percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}

	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
