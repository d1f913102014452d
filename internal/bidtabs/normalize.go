package bidtabs

import (
	"regexp"
	"strings"
)

// headerAliases maps internal column keys to the source header variants seen
// across BidTabs exports. Lookup happens on standardized header names
// (uppercase, non-alphanumerics collapsed to underscores).
var headerAliases = map[string][]string{
	"item_code": {"ITEM_CODE", "ITEM NO", "ITEMID", "ITEM ID", "PAY ITEM", "ITEM"},
	"desc":      {"ITEM_DESCRIPTION", "DESCRIPTION", "ITEM DESC", "ITEM DESCRIPTION"},
	"unit":      {"UNIT", "UOM"},
	"qty":       {"QUANTITY", "QTY"},
	"price":     {"UNIT_PRICE", "UNIT PRICE", "PRICE"},
	"letting":   {"LETTING_DATE", "LETTING", "LETTING DATE", "BID_DATE", "BID DATE"},
	"region":    {"REGION", "DISTRICT", "DIST"},
	"weight":    {"WGT", "WEIGHT", "WEIGHTED", "WTG", "WGT AVG", "WGT_AVG"},
	"job_size":  {"JOB_SIZE", "JOB SIZE", "CONTRACT_VALUE"},
	"shape":     {"GEOM_SHAPE", "SHAPE"},
	"area":      {"GEOM_AREA_SQFT", "AREA_SQFT", "AREA SQFT"},
}

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]+`)

// stdCol standardizes a header: "Unit Price" -> "UNIT_PRICE".
func stdCol(name string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToUpper(name), "_"), "_")
}

// MatchColumns maps internal keys to source column indices for one header row.
func MatchColumns(header []string) map[string]int {
	byStd := make(map[string]int, len(header))
	for i, h := range header {
		std := stdCol(h)
		if _, exists := byStd[std]; !exists {
			byStd[std] = i
		}
	}

	found := make(map[string]int)
	for key, options := range headerAliases {
		for _, opt := range options {
			if idx, ok := byStd[stdCol(opt)]; ok {
				found[key] = idx
				break
			}
		}
	}
	return found
}

var nonDigit = regexp.MustCompile(`\D`)
var nonWord = regexp.MustCompile(`[^\w\-]`)

var longDashes = strings.NewReplacer(
	"—", "-", "–", "-", "‒", "-", "‑", "-", "−", "-",
)

// NormalizeItemCode normalizes pay-item codes to a consistent form.
// Codes with exactly 8 digits become NNN-NNNNN ("30608033" -> "306-08033");
// anything else is uppercased with dash variants unified and odd characters
// stripped.
func NormalizeItemCode(raw string) string {
	digits := nonDigit.ReplaceAllString(raw, "")
	if len(digits) == 8 {
		return digits[:3] + "-" + digits[3:]
	}

	s := strings.ToUpper(strings.TrimSpace(raw))
	s = longDashes.Replace(s)
	return nonWord.ReplaceAllString(s, "")
}

// ItemPrefix returns the family prefix of a pay-item code: the part before
// the first hyphen, or the first 3 characters when there is no hyphen.
func ItemPrefix(code string) string {
	if i := strings.Index(code, "-"); i >= 0 {
		return code[:i]
	}
	if len(code) > 3 {
		return code[:3]
	}
	return code
}
