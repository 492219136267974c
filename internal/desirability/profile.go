package desirability

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Profile is the set of dimensions a user expressed a preference on. A
// dimension either has a Factor (a computed match value and its importance)
// or only a raw importance still waiting for a value. Absent dimensions do
// not take part in scoring.
type Profile struct {
	factors     map[Dimension]Factor
	importances map[Dimension]float64
}

// Factor returns the factor for d, if present.
func (p *Profile) Factor(d Dimension) (Factor, bool) {
	f, ok := p.factors[d]
	return f, ok
}

// Importance returns the raw importance recorded for d without a value.
func (p *Profile) Importance(d Dimension) (float64, bool) {
	w, ok := p.importances[d]
	return w, ok
}

// Dimensions returns the dimensions that carry a factor, in display order.
func (p *Profile) Dimensions() []Dimension {
	var out []Dimension
	for _, d := range dimensions {
		if _, ok := p.factors[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Pending returns the dimensions with an importance but no value, sorted.
func (p *Profile) Pending() []Dimension {
	out := make([]Dimension, 0, len(p.importances))
	for d := range p.importances {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Score returns the weighted average of the present factors:
// Σ score / Σ importance. ok is false when no factor is present or every
// present importance is zero.
func (p *Profile) Score() (float64, bool) {
	var sum, weight float64
	for _, d := range dimensions {
		f, ok := p.factors[d]
		if !ok {
			continue
		}
		sum += f.Score()
		weight += f.importance
	}
	if weight <= 0 {
		return 0, false
	}
	return sum / weight, true
}

// Builder assembles a Profile dimension by dimension. The first invalid
// input is kept and returned by Build.
type Builder struct {
	factors     map[Dimension]Factor
	importances map[Dimension]float64
	err         error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		factors:     make(map[Dimension]Factor),
		importances: make(map[Dimension]float64),
	}
}

// Factor sets d's match value and importance. It replaces any pending
// importance for d.
func (b *Builder) Factor(d Dimension, value, importance float64) *Builder {
	if b.err != nil {
		return b
	}
	if !d.Valid() {
		b.err = eris.Errorf("desirability: unknown dimension %q", d)
		return b
	}
	f, err := NewFactor(value, importance)
	if err != nil {
		b.err = eris.Wrapf(err, "desirability: factor %s", d)
		return b
	}
	b.factors[d] = f
	delete(b.importances, d)
	return b
}

// Importance records a raw importance for d whose value is not known yet.
// It is ignored if d already has a factor.
func (b *Builder) Importance(d Dimension, importance float64) *Builder {
	if b.err != nil {
		return b
	}
	if !d.Valid() {
		b.err = eris.Errorf("desirability: unknown dimension %q", d)
		return b
	}
	if err := checkUnit("importance", importance); err != nil {
		b.err = eris.Wrapf(err, "desirability: importance %s", d)
		return b
	}
	if _, ok := b.factors[d]; ok {
		return b
	}
	b.importances[d] = importance
	return b
}

// Build returns the Profile or the first error recorded.
func (b *Builder) Build() (*Profile, error) {
	if b.err != nil {
		return nil, b.err
	}
	p := &Profile{
		factors:     make(map[Dimension]Factor, len(b.factors)),
		importances: make(map[Dimension]float64, len(b.importances)),
	}
	for d, f := range b.factors {
		p.factors[d] = f
	}
	for d, w := range b.importances {
		p.importances[d] = w
	}
	return p, nil
}
