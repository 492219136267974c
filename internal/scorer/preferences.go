// Package scorer turns zone records and a user's preferences into ranked
// desirability scores.
package scorer

import (
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/zonefit/internal/census"
	"github.com/sells-group/zonefit/internal/desirability"
	"github.com/sells-group/zonefit/internal/metric"
)

// Preference is what the user wants on one dimension. Category dimensions
// use Target, numeric ones use Value. Walk Score dimensions need neither.
type Preference struct {
	Target     string   `json:"target,omitempty" yaml:"target,omitempty"`
	Value      *float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Importance float64  `json:"importance" yaml:"importance"`
}

// Preferences maps each dimension the user cares about to a Preference.
type Preferences map[desirability.Dimension]Preference

// LoadPreferences reads a preferences file. The format follows the extension.
func LoadPreferences(path string) (Preferences, error) {
	format, err := census.FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scorer: open preferences %s", path)
	}
	defer f.Close() //nolint:errcheck

	prefs, err := ReadPreferences(f, format)
	if err != nil {
		return nil, eris.Wrapf(err, "scorer: read preferences %s", path)
	}
	return prefs, nil
}

// ReadPreferences decodes preferences from r.
func ReadPreferences(r io.Reader, format census.Format) (Preferences, error) {
	var prefs Preferences
	switch format {
	case census.FormatJSON:
		if err := json.NewDecoder(r).Decode(&prefs); err != nil {
			return nil, eris.Wrap(err, "scorer: decode json preferences")
		}
	case census.FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&prefs); err != nil && err != io.EOF {
			return nil, eris.Wrap(err, "scorer: decode yaml preferences")
		}
	default:
		return nil, eris.Errorf("scorer: unsupported format %q", format)
	}
	if prefs == nil {
		prefs = Preferences{}
	}
	return prefs, nil
}

// Dimensions returns the dimensions in p, in display order.
func (p Preferences) Dimensions() []desirability.Dimension {
	var out []desirability.Dimension
	for _, d := range desirability.Dimensions() {
		if _, ok := p[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Validate checks every preference against calc's keyword sets. Importances
// outside [0,1] are reported as desirability.ErrOutOfRange.
func (p Preferences) Validate(calc *metric.Calculator) error {
	if len(p) == 0 {
		return eris.New("scorer: no preferences given")
	}

	keys := make([]string, 0, len(p))
	for d := range p {
		keys = append(keys, string(d))
	}
	sort.Strings(keys)

	for _, k := range keys {
		d, err := desirability.ParseDimension(k)
		if err != nil {
			return eris.Wrap(err, "scorer: validate preferences")
		}
		pref := p[d]

		// Reuses the factor range check so the error wraps ErrOutOfRange.
		if _, err := desirability.NewFactor(0, pref.Importance); err != nil {
			return eris.Wrapf(err, "scorer: preference %s", d)
		}

		switch {
		case d.Categorical():
			if pref.Target == "" {
				return eris.Errorf("scorer: preference %s: target is required", d)
			}
			if !containsKeyword(keywordsFor(calc, d), pref.Target) {
				return eris.Errorf("scorer: preference %s: unknown target %q", d, pref.Target)
			}
		case d.Scored():
		default:
			if pref.Value == nil {
				return eris.Errorf("scorer: preference %s: value is required", d)
			}
			if !(*pref.Value >= 0) {
				return eris.Errorf("scorer: preference %s: value must be a non-negative number, got %v", d, *pref.Value)
			}
		}
	}
	return nil
}

func keywordsFor(calc *metric.Calculator, d desirability.Dimension) []string {
	switch d {
	case desirability.CommuteMode:
		return calc.TransportModes()
	case desirability.EducationLevel:
		return calc.EducationLevels()
	case desirability.PredominantRace:
		return calc.RaceCategories()
	default:
		return nil
	}
}

func containsKeyword(keywords []string, k string) bool {
	for _, kw := range keywords {
		if kw == k {
			return true
		}
	}
	return false
}
