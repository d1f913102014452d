// Package refdata loads the reference datasets that back alternate-seek
// enrichment: the pay-item catalog, the statewide unit-price summary, and
// pre-extracted specification sections. Parsed workbooks are cached in
// SQLite keyed by source modification time so repeated runs skip the parse.
package refdata

import (
	"sort"
	"strings"

	"github.com/sells-group/costest-cli/internal/bidtabs"
)

// PayItem is one row of the pay-item catalog.
type PayItem struct {
	Section     string `json:"section"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
	Type        string `json:"type"`
	Comments    string `json:"comments"`
}

// UnitPrice is one row of the statewide unit-price summary.
type UnitPrice struct {
	Year            int     `json:"year"`
	Section         string  `json:"section"`
	Description     string  `json:"description"`
	Unit            string  `json:"unit"`
	Lowest          float64 `json:"lowest"`
	Highest         float64 `json:"highest"`
	WeightedAverage float64 `json:"weighted_average"`
	Contracts       float64 `json:"contracts"`
	TotalValue      float64 `json:"total_value"`
}

// SpecSection is one specification section with its extracted text.
type SpecSection struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
	Text      string `json:"text"`
}

// RelatedItem links another pay item sharing the target's spec section.
type RelatedItem struct {
	ItemCode        string  `json:"item_code"`
	Description     string  `json:"description"`
	WeightedAverage float64 `json:"weighted_average"`
	Contracts       float64 `json:"contracts"`
}

// Bundle is everything the alternate-seek engine knows about one pay item
// from reference data.
type Bundle struct {
	ItemCode     string        `json:"item_code"`
	PayItem      *PayItem      `json:"payitem,omitempty"`
	UnitPrice    *UnitPrice    `json:"unit_price,omitempty"`
	SpecSection  *SpecSection  `json:"spec_section,omitempty"`
	SpecText     string        `json:"spec_text,omitempty"`
	RelatedItems []RelatedItem `json:"related_items,omitempty"`
}

// SectionID returns the best-known specification section for the bundle:
// the catalog section first, then the unit-price summary section, then the
// spec-section metadata id.
func (b *Bundle) SectionID() string {
	if b == nil {
		return ""
	}
	if b.PayItem != nil {
		if s := strings.TrimSpace(b.PayItem.Section); s != "" {
			return s
		}
	}
	if b.UnitPrice != nil {
		if s := strings.TrimSpace(b.UnitPrice.Section); s != "" {
			return s
		}
	}
	if b.SpecSection != nil {
		return strings.TrimSpace(b.SpecSection.ID)
	}
	return ""
}

// Catalog holds the loaded reference datasets.
type Catalog struct {
	payItems   map[string]PayItem
	unitPrices map[string]UnitPrice
	sections   map[string]SpecSection
}

// NewCatalog builds a catalog from already-loaded datasets. Any map may be
// nil; lookups then simply miss.
func NewCatalog(payItems map[string]PayItem, unitPrices map[string]UnitPrice, sections map[string]SpecSection) *Catalog {
	if payItems == nil {
		payItems = map[string]PayItem{}
	}
	if unitPrices == nil {
		unitPrices = map[string]UnitPrice{}
	}
	if sections == nil {
		sections = map[string]SpecSection{}
	}
	return &Catalog{payItems: payItems, unitPrices: unitPrices, sections: sections}
}

// relatedLimit caps the related-item list per bundle.
const relatedLimit = 5

// Bundle assembles the reference bundle for one item code.
func (c *Catalog) Bundle(itemCode string) *Bundle {
	code := bidtabs.NormalizeItemCode(itemCode)
	b := &Bundle{ItemCode: code}

	if pi, ok := c.payItems[code]; ok {
		b.PayItem = &pi
	}
	if up, ok := c.unitPrices[code]; ok {
		b.UnitPrice = &up
	}

	sectionID := ""
	if b.PayItem != nil {
		sectionID = strings.TrimSpace(b.PayItem.Section)
	}
	if sectionID == "" && b.UnitPrice != nil {
		sectionID = strings.TrimSpace(b.UnitPrice.Section)
	}

	if sectionID != "" {
		if sec, ok := c.lookupSection(sectionID); ok {
			b.SpecSection = &sec
			b.SpecText = sec.Text
		}
		b.RelatedItems = c.relatedBySection(sectionID, code)
	}

	return b
}

func (c *Catalog) lookupSection(id string) (SpecSection, bool) {
	if sec, ok := c.sections[id]; ok {
		return sec, true
	}
	// Zero-padded three-digit fallback for purely numeric ids.
	if len(id) < 3 && strings.IndexFunc(id, notDigit) < 0 {
		padded := strings.Repeat("0", 3-len(id)) + id
		if sec, ok := c.sections[padded]; ok {
			return sec, true
		}
	}
	return SpecSection{}, false
}

func notDigit(r rune) bool { return r < '0' || r > '9' }

// relatedBySection returns up to relatedLimit other items sharing the spec
// section, ranked by contract count then weighted-average price descending.
func (c *Catalog) relatedBySection(sectionID, exclude string) []RelatedItem {
	var related []RelatedItem
	for code, up := range c.unitPrices {
		if code == exclude || strings.TrimSpace(up.Section) != sectionID {
			continue
		}
		related = append(related, RelatedItem{
			ItemCode:        code,
			Description:     up.Description,
			WeightedAverage: up.WeightedAverage,
			Contracts:       up.Contracts,
		})
	}

	sort.Slice(related, func(i, j int) bool {
		if related[i].Contracts != related[j].Contracts {
			return related[i].Contracts > related[j].Contracts
		}
		if related[i].WeightedAverage != related[j].WeightedAverage {
			return related[i].WeightedAverage > related[j].WeightedAverage
		}
		return related[i].ItemCode < related[j].ItemCode
	})

	if len(related) > relatedLimit {
		related = related[:relatedLimit]
	}
	return related
}
