package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/costest-cli/internal/bidtabs"
)

func TestAggregate_Empty(t *testing.T) {
	price, count := Aggregate(nil, ModeMean)
	assert.True(t, math.IsNaN(price))
	assert.Zero(t, count)
}

func TestAggregate_WeightedAverage(t *testing.T) {
	records := []bidtabs.Record{
		{UnitPrice: 10, Weight: 3},
		{UnitPrice: 20, Weight: 1},
		{UnitPrice: 30, Weight: math.NaN()}, // defaults to 1.0
	}

	price, count := Aggregate(records, ModeWeightedAverage)
	assert.InDelta(t, 80.0/5.0, price, 1e-9)
	assert.Equal(t, 3, count)
}

func TestAggregate_WeightedFallsBackToMedian(t *testing.T) {
	records := []bidtabs.Record{
		{UnitPrice: 1, Weight: math.NaN()},
		{UnitPrice: 1, Weight: math.NaN()},
		{UnitPrice: 10, Weight: math.NaN()},
	}

	price, _ := Aggregate(records, ModeWeightedAverage)
	assert.InDelta(t, 1.0, price, 1e-9, "no explicit weights means median, not mean")
}

func TestAggregate_ZeroWeightsFallBackToMedian(t *testing.T) {
	records := []bidtabs.Record{
		{UnitPrice: 1, Weight: 0},
		{UnitPrice: 1, Weight: 0},
		{UnitPrice: 10, Weight: 0},
	}

	price, _ := Aggregate(records, ModeWeightedAverage)
	assert.InDelta(t, 1.0, price, 1e-9)
}

func TestAggregate_Modes(t *testing.T) {
	records := []bidtabs.Record{
		{UnitPrice: 10}, {UnitPrice: 20}, {UnitPrice: 30}, {UnitPrice: 40}, {UnitPrice: 100},
	}

	tests := []struct {
		mode AggregationMode
		want float64
	}{
		{ModeMean, 40},
		{ModeMedian, 30},
		{ModeP40P60, (26.0 + 34.0) / 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			price, count := Aggregate(records, tt.mode)
			assert.InDelta(t, tt.want, price, 1e-9)
			assert.Equal(t, 5, count)
		})
	}
}
