package pricing

import (
	"math"

	"github.com/sells-group/costest-cli/internal/bidtabs"
)

// TrimOutliers drops records more than two population standard deviations
// from the mean price. Fewer than 3 records or zero spread leaves the input
// unchanged. This is a single pass, not iterative trimming.
func TrimOutliers(records []bidtabs.Record) []bidtabs.Record {
	if len(records) < 3 {
		return records
	}

	var sum float64
	for _, r := range records {
		sum += r.UnitPrice
	}
	mean := sum / float64(len(records))

	var sq float64
	for _, r := range records {
		d := r.UnitPrice - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(records)))
	if std == 0 {
		return records
	}

	lower := mean - 2*std
	upper := mean + 2*std
	var out []bidtabs.Record
	for _, r := range records {
		if r.UnitPrice >= lower && r.UnitPrice <= upper {
			out = append(out, r)
		}
	}
	return out
}
