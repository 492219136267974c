// Package desirability combines per-dimension match values and user-assigned
// importances into one weighted desirability score.
package desirability

import (
	"github.com/rotisserie/eris"
)

// ErrOutOfRange is returned when a value or importance lies outside [0,1].
var ErrOutOfRange = eris.New("desirability: out of range")

// Factor is a validated match value paired with its importance.
type Factor struct {
	value      float64
	importance float64
}

// NewFactor validates that value and importance both lie in [0,1]. Inputs
// are never clamped.
func NewFactor(value, importance float64) (Factor, error) {
	if err := checkUnit("value", value); err != nil {
		return Factor{}, err
	}
	if err := checkUnit("importance", importance); err != nil {
		return Factor{}, err
	}
	return Factor{value: value, importance: importance}, nil
}

// Value returns the match value.
func (f Factor) Value() float64 { return f.value }

// Importance returns the weight.
func (f Factor) Importance() float64 { return f.importance }

// Score returns value × importance.
func (f Factor) Score() float64 { return f.value * f.importance }

func checkUnit(name string, v float64) error {
	// Written as a negated range check so NaN fails too.
	if !(v >= 0 && v <= 1) {
		return eris.Wrapf(ErrOutOfRange, "%s must be between 0 and 1, got %v", name, v)
	}
	return nil
}
