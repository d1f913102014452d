package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Rectangles(t *testing.T) {
	tests := []struct {
		desc string
		want float64
	}{
		{"CONC BOX CULVERT 9' x 6'", 54},
		{"PIPE ARCH 12 IN x 18 IN", 1.5},
		{"PRECAST SECTION 9 FT X 6 FT", 54},
		{"SLAB 4.5' x 2'", 9},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			info := Parse(tt.desc)
			require.NotNil(t, info)
			assert.Equal(t, "rectangle", info.Shape)
			assert.InDelta(t, tt.want, info.AreaSqft, 1e-9)
		})
	}
}

func TestParse_RectangleSymmetry(t *testing.T) {
	a := Parse("BOX 9' x 6'")
	b := Parse("BOX 6' x 9'")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.InDelta(t, a.AreaSqft, b.AreaSqft, 1e-9, "area must not depend on dimension order")
}

func TestParse_Circles(t *testing.T) {
	info := Parse("RC PIPE DIA 42 IN")
	require.NotNil(t, info)
	assert.Equal(t, "circle", info.Shape)

	r := (42.0 / 12.0) / 2.0
	assert.InDelta(t, math.Pi*r*r, info.AreaSqft, 1e-9)

	ft := Parse("CULVERT DIA 3 FT")
	require.NotNil(t, ft)
	assert.InDelta(t, math.Pi*1.5*1.5, ft.AreaSqft, 1e-9)
}

func TestParse_MinArea(t *testing.T) {
	info := Parse("STRUCTURE MIN AREA 8.5 SFT")
	require.NotNil(t, info)
	assert.Equal(t, "min_area", info.Shape)
	assert.InDelta(t, 8.5, info.AreaSqft, 1e-9)
}

func TestParse_NoGeometry(t *testing.T) {
	assert.Nil(t, Parse("MOBILIZATION"))
	assert.Nil(t, Parse(""))
	assert.Nil(t, Parse("GUARDRAIL END TREATMENT"))
}
