// Package bidtabs loads historical bid-record pools from BidTabs exports.
//
// Files arrive as CSV or XLSX with inconsistent headers (BID_DATE vs
// LETTING_DATE, ITEM NO vs PAY ITEM, ...). The loader normalizes headers via
// a declarative alias table, coerces types, and assigns each record a stable
// RowID so downstream deduplication never depends on object identity.
package bidtabs

import (
	"math"
	"time"
)

// Record is a single historical bid line. Optional numeric fields are NaN
// when the source file had no value; LettingDate is zero when unknown;
// Region is 0 when unknown.
type Record struct {
	RowID       int
	ItemCode    string
	Description string
	UnitPrice   float64
	Weight      float64
	Quantity    float64
	JobSize     float64
	LettingDate time.Time
	Region      int
	Shape       string
	AreaSqft    float64
}

// HasWeight reports whether the record carries an explicit weight.
func (r Record) HasWeight() bool { return !math.IsNaN(r.Weight) }

// HasDate reports whether the letting date is known.
func (r Record) HasDate() bool { return !r.LettingDate.IsZero() }

// HasArea reports whether geometry area is known.
func (r Record) HasArea() bool { return !math.IsNaN(r.AreaSqft) }

// Pool is a read-only collection of historical records. It is safe for
// concurrent readers; nothing mutates it after Load.
type Pool struct {
	records []Record
}

// NewPool builds a pool from records, assigning sequential RowIDs.
func NewPool(records []Record) *Pool {
	out := make([]Record, len(records))
	copy(out, records)
	for i := range out {
		out[i].RowID = i
	}
	return &Pool{records: out}
}

// Len returns the number of records in the pool.
func (p *Pool) Len() int { return len(p.records) }

// Records returns the backing slice. Callers must not modify it.
func (p *Pool) Records() []Record { return p.records }

// ForItem returns all records whose item code matches exactly.
func (p *Pool) ForItem(code string) []Record {
	var out []Record
	for i := range p.records {
		if p.records[i].ItemCode == code {
			out = append(out, p.records[i])
		}
	}
	return out
}

// ItemCodes returns the distinct item codes present, in first-seen order.
func (p *Pool) ItemCodes() []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range p.records {
		code := p.records[i].ItemCode
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
