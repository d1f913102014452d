package pricing

import (
	"time"

	"github.com/sells-group/costest-cli/internal/bidtabs"
)

// FilterWindow selects records whose letting date falls inside the
// [minMonths, maxMonths] age window relative to now: dated records are
// included when now-maxMonths <= date < now-minMonths. The most-recent
// window (minMonths == 0) uses an inclusive upper bound and additionally
// admits records with an unknown letting date; every other window excludes
// them.
func FilterWindow(records []bidtabs.Record, minMonths, maxMonths int, now time.Time) []bidtabs.Record {
	lower := now.AddDate(0, -maxMonths, 0)
	upper := now.AddDate(0, -minMonths, 0)

	var out []bidtabs.Record
	for _, r := range records {
		if !r.HasDate() {
			if minMonths == 0 {
				out = append(out, r)
			}
			continue
		}

		if r.LettingDate.Before(lower) {
			continue
		}
		if minMonths == 0 {
			if r.LettingDate.After(upper) {
				continue
			}
		} else if !r.LettingDate.Before(upper) {
			continue
		}
		out = append(out, r)
	}
	return out
}
