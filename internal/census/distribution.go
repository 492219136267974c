// Package census models tabulated per-zone census data: the column/series
// shape census exports use, the resolved per-zone distributions, and the
// zone file format.
package census

import (
	"gonum.org/v1/gonum/floats"
)

// Entry is one category and its count.
type Entry struct {
	Label string  `json:"label" yaml:"label"`
	Count float64 `json:"count" yaml:"count"`
}

// Distribution is an ordered category→count breakdown for one zone.
// Bracketed distributions are positional: entry i holds bracket i.
// A nil Distribution means the source table is missing.
type Distribution []Entry

// Counts returns the counts in order.
func (d Distribution) Counts() []float64 {
	out := make([]float64, len(d))
	for i, e := range d {
		out[i] = e.Count
	}
	return out
}

// Total returns the sum of all counts.
func (d Distribution) Total() float64 {
	if len(d) == 0 {
		return 0
	}
	return floats.Sum(d.Counts())
}

// Count returns the count of the first entry whose label equals label.
func (d Distribution) Count(label string) (float64, bool) {
	for _, e := range d {
		if e.Label == label {
			return e.Count, true
		}
	}
	return 0, false
}

// SumOf adds up the counts of the given labels. ok is false if any label
// has no entry.
func (d Distribution) SumOf(labels ...string) (float64, bool) {
	var sum float64
	for _, l := range labels {
		c, ok := d.Count(l)
		if !ok {
			return 0, false
		}
		sum += c
	}
	return sum, true
}

// At returns the count held by bracket i.
func (d Distribution) At(i int) (float64, bool) {
	if i < 0 || i >= len(d) {
		return 0, false
	}
	return d[i].Count, true
}

// CumulativeTo sums the counts of brackets 0..i inclusive. Indices past the
// end are clamped.
func (d Distribution) CumulativeTo(i int) float64 {
	if i < 0 || len(d) == 0 {
		return 0
	}
	if i >= len(d) {
		i = len(d) - 1
	}
	return floats.Sum(d.Counts()[:i+1])
}

// Shares returns each entry's fraction of the total, or nil when the total
// is zero.
func (d Distribution) Shares() []float64 {
	total := d.Total()
	if total == 0 {
		return nil
	}
	shares := d.Counts()
	floats.Scale(1/total, shares)
	return shares
}
