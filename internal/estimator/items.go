package estimator

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/costest-cli/internal/bidtabs"
)

// LoadItems reads the project quantities table from a CSV or XLSX file.
// Item code and quantity columns are required; description and unit are
// optional.
func LoadItems(path string) ([]Item, error) {
	header, rows, err := bidtabs.ReadTable(path)
	if err != nil {
		return nil, err
	}

	cols := bidtabs.MatchColumns(header)
	if _, ok := cols["item_code"]; !ok {
		return nil, eris.Errorf("estimator: quantities file %s missing item code column", path)
	}
	if _, ok := cols["qty"]; !ok {
		return nil, eris.Errorf("estimator: quantities file %s missing quantity column", path)
	}

	cell := func(row []string, key string) string {
		idx, ok := cols[key]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var out []Item
	for _, row := range rows {
		code := bidtabs.NormalizeItemCode(cell(row, "item_code"))
		if code == "" {
			continue
		}
		out = append(out, Item{
			ItemCode:    code,
			Description: cell(row, "desc"),
			Unit:        cell(row, "unit"),
			Quantity:    parseQuantity(cell(row, "qty")),
		})
	}
	if len(out) == 0 {
		return nil, eris.Errorf("estimator: quantities file %s has no usable rows", path)
	}

	zap.L().Info("quantities loaded", zap.String("path", path), zap.Int("items", len(out)))
	return out, nil
}

func parseQuantity(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
