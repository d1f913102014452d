// Package stats provides the sample summary attached to audit output.
package stats

import "math"

// MeanFloor guards the coefficient-of-variation division for tiny means.
const MeanFloor = 1e-6

// Summary holds descriptive statistics for one pay item's price sample.
// StdDev is the sample standard deviation (reporting convention; the
// pricing engine's outlier trim uses population stddev separately).
type Summary struct {
	DataPoints int
	Mean       float64
	StdDev     float64
	CoefVar    float64
	Confidence float64
}

// Compute summarizes a price sample. An empty sample yields zero data
// points, infinite CV, and zero confidence.
func Compute(values []float64) Summary {
	var clean []float64
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}

	n := len(clean)
	if n == 0 {
		return Summary{CoefVar: math.Inf(1)}
	}

	var sum float64
	for _, v := range clean {
		sum += v
	}
	mean := sum / float64(n)

	var std float64
	if n > 1 {
		var sq float64
		for _, v := range clean {
			d := v - mean
			sq += d * d
		}
		std = math.Sqrt(sq / float64(n-1))
	}

	cv := std / math.Max(math.Abs(mean), MeanFloor)
	return Summary{
		DataPoints: n,
		Mean:       mean,
		StdDev:     std,
		CoefVar:    cv,
		Confidence: confidence(n, cv),
	}
}

// confidence blends sample size and dispersion into a 0-1 score: more data
// points and a lower CV both raise it.
func confidence(n int, cv float64) float64 {
	if n <= 0 || math.IsInf(cv, 0) || math.IsNaN(cv) {
		return 0
	}
	return (1 - math.Exp(-float64(n)/30.0)) * (1 / (1 + cv))
}
