// Package geometry extracts shape and area information from pay-item
// descriptions.
//
// Supported patterns:
//   - rectangles: "9' x 6'", "12 IN x 18 IN", "9 FT X 6 FT"
//   - circles:    "Ø 42 IN", "DIAMETER 36\"", "DIA 3 FT"
//   - minimum-area descriptors: "MIN AREA 8.5 SFT"
//
// All areas are returned in square feet.
package geometry

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Info describes parsed geometry. Shape is "rectangle", "circle", or
// "min_area".
type Info struct {
	Shape      string
	AreaSqft   float64
	SourceText string
	Dimensions string
}

var (
	rectPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(FT|FEET|FOOT|F|'|IN|INCH|INCHES|")?\s*[x×X]\s*(\d+(?:\.\d+)?)\s*(FT|FEET|FOOT|F|'|IN|INCH|INCHES|")?`)

	circlePattern = regexp.MustCompile(`(?i)(?:Ø|DIAM(?:ETER)?|DIA)\s*(\d+(?:\.\d+)?)\s*(FT|FEET|FOOT|F|'|IN|INCH|INCHES|")`)

	minAreaPattern = regexp.MustCompile(`(?i)MIN\s+AREA\s+(\d+(?:\.\d+)?)\s*(?:SQ\s*FT|SFT|SF|FT\^?2|FT2)`)
)

func lengthToFeet(value float64, unit string) float64 {
	switch strings.ToUpper(strings.TrimSpace(unit)) {
	case "IN", "INCH", "INCHES", `"`:
		return value / 12.0
	default:
		return value
	}
}

// Parse extracts geometry from a description, or returns nil when no
// recognized pattern is present.
func Parse(description string) *Info {
	text := strings.TrimSpace(description)
	if text == "" {
		return nil
	}

	if m := rectPattern.FindStringSubmatch(text); m != nil {
		a, _ := strconv.ParseFloat(m[1], 64)
		b, _ := strconv.ParseFloat(m[3], 64)
		aft := lengthToFeet(a, m[2])
		bft := lengthToFeet(b, m[4])
		return &Info{
			Shape:      "rectangle",
			AreaSqft:   aft * bft,
			SourceText: text,
			Dimensions: fmt.Sprintf("%.4g ft x %.4g ft", aft, bft),
		}
	}

	if m := circlePattern.FindStringSubmatch(text); m != nil {
		d, _ := strconv.ParseFloat(m[1], 64)
		dft := lengthToFeet(d, m[2])
		r := dft / 2.0
		return &Info{
			Shape:      "circle",
			AreaSqft:   math.Pi * r * r,
			SourceText: text,
			Dimensions: fmt.Sprintf("diameter %.4g ft", dft),
		}
	}

	if m := minAreaPattern.FindStringSubmatch(text); m != nil {
		area, _ := strconv.ParseFloat(m[1], 64)
		return &Info{
			Shape:      "min_area",
			AreaSqft:   area,
			SourceText: text,
		}
	}

	return nil
}
